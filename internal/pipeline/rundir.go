package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
)

const (
	resultFileName = "detailed_profiles.csv"
	pagesDirName   = "pages"
)

// deaccent strips combining marks so accented company and school names
// produce plain-ASCII directory segments.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// safeName reduces arbitrary filter text to a filesystem-safe identifier.
func safeName(s string) string {
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// runDirName derives a readable directory name for one run: the last URL
// segment for URL searches, otherwise the first company and title.
func runDirName(filter model.SearchFilter, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	if filter.URLMode() {
		urlPart := filter.LinkedInURL
		if idx := strings.Index(urlPart, "?"); idx >= 0 {
			urlPart = urlPart[:idx]
		}
		urlPart = urlPart[strings.LastIndex(urlPart, "/")+1:]
		return safeName("url_search_" + urlPart + "_" + timestamp)
	}
	company := "no_company"
	if len(filter.Companies) > 0 {
		company = filter.Companies[0]
	}
	title := "no_title"
	if len(filter.Titles) > 0 {
		title = filter.Titles[0]
	}
	return safeName(company + "_" + title + "_" + timestamp)
}

// RunDir holds the output layout for one run.
type RunDir struct {
	Root       string
	PagesDir   string
	ResultPath string
}

// RunPagesDir returns the page artifact directory inside a run's output
// directory, for readers working from a recorded run rather than a live
// RunDir.
func RunPagesDir(root string) string {
	return filepath.Join(root, pagesDirName)
}

// setupRunDir creates the per-run output directory under baseDir.
func setupRunDir(baseDir string, filter model.SearchFilter, now time.Time) (RunDir, error) {
	root := filepath.Join(baseDir, runDirName(filter, now))
	pages := filepath.Join(root, pagesDirName)
	if err := os.MkdirAll(pages, 0o755); err != nil {
		return RunDir{}, eris.Wrapf(err, "pipeline: create run dir %s", root)
	}
	return RunDir{
		Root:       root,
		PagesDir:   pages,
		ResultPath: filepath.Join(root, resultFileName),
	}, nil
}
