package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

// resultColumns is the spreadsheet header, matching the CSV column order.
var resultColumns = []string{
	"Full_Name",
	"Current_Title",
	"Company",
	"Location",
	"Education",
	"Companies_Worked_At",
	"Common_Interests",
	"Custom_Message",
	"Profile_URL",
}

// XLSXWriter writes profile details as a spreadsheet. The zero value is
// ready to use.
type XLSXWriter struct{}

// Write renders details to path as a single-sheet workbook.
func (XLSXWriter) Write(path string, details []model.ProfileDetail) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Profiles")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range resultColumns {
		header.AddCell().Value = col
	}

	for _, d := range details {
		row := sheet.AddRow()
		for _, cell := range []string{
			d.FullName,
			d.CurrentTitle,
			d.Company,
			d.Location,
			strings.Join(d.Education, listSep),
			strings.Join(d.CompaniesWorkedAt, listSep),
			strings.Join(d.CommonInterests, listSep),
			d.CustomMessage,
			d.ProfileURL,
		} {
			row.AddCell().Value = cell
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
