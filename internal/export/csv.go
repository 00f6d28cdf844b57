// Package export writes the per-run result tables.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// listSep joins multi-value fields into one CSV cell.
const listSep = "; "

// resultRow is the flattened CSV shape of one profile. Column order matches
// the ProfileDetail field order.
type resultRow struct {
	FullName          string `csv:"Full_Name"`
	CurrentTitle      string `csv:"Current_Title"`
	Company           string `csv:"Company"`
	Location          string `csv:"Location"`
	Education         string `csv:"Education"`
	CompaniesWorkedAt string `csv:"Companies_Worked_At"`
	CommonInterests   string `csv:"Common_Interests"`
	CustomMessage     string `csv:"Custom_Message"`
	ProfileURL        string `csv:"Profile_URL"`
}

func toRow(d model.ProfileDetail) resultRow {
	return resultRow{
		FullName:          d.FullName,
		CurrentTitle:      d.CurrentTitle,
		Company:           d.Company,
		Location:          d.Location,
		Education:         strings.Join(d.Education, listSep),
		CompaniesWorkedAt: strings.Join(d.CompaniesWorkedAt, listSep),
		CommonInterests:   strings.Join(d.CommonInterests, listSep),
		CustomMessage:     d.CustomMessage,
		ProfileURL:        d.ProfileURL,
	}
}

// CSVWriter writes profile details as a CSV table. The zero value is ready
// to use.
type CSVWriter struct{}

// Write renders details to path. An empty detail list still produces a file
// with the header row. The file is replaced atomically: the run checkpoints
// after every profile while the download endpoint may be serving it.
func (CSVWriter) Write(path string, details []model.ProfileDetail) error {
	rows := make([]resultRow, 0, len(details))
	for _, d := range details {
		rows = append(rows, toRow(d))
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal csv")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "export: replace %s", path)
	}
	return nil
}

// XLSXPath derives the spreadsheet path next to a CSV result path.
func XLSXPath(csvPath string) string {
	ext := filepath.Ext(csvPath)
	return strings.TrimSuffix(csvPath, ext) + ".xlsx"
}
