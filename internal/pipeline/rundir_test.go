package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "OpenAI_Engineer", "OpenAI_Engineer"},
		{"spaces", "Y Combinator", "Y_Combinator"},
		{"diacritics", "Café Zürich", "Cafe_Zurich"},
		{"special chars", "A/B?C*D", "ABCD"},
		{"trims underscores", "__edge__", "edge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeName(tt.in))
		})
	}
}

func TestRunDirName_FormMode(t *testing.T) {
	filter := model.SearchFilter{
		Companies:      []string{"Acme Corp", "Other"},
		Universities:   []string{"MIT"},
		Titles:         []string{"ML Engineer"},
		ProfilesNeeded: 3,
	}
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "Acme_Corp_ML_Engineer_20260301_123045", runDirName(filter, now))
}

func TestRunDirName_URLMode(t *testing.T) {
	filter := model.SearchFilter{
		LinkedInURL:    "https://www.linkedin.com/search/results/people/?keywords=golang",
		ProfilesNeeded: 3,
	}
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	got := runDirName(filter, now)
	assert.Contains(t, got, "url_search_")
	assert.Contains(t, got, "20260301_123045")
}

func TestRunDirName_EmptyFormFields(t *testing.T) {
	filter := model.SearchFilter{ProfilesNeeded: 1}
	got := runDirName(filter, time.Now())
	assert.Contains(t, got, "no_company")
	assert.Contains(t, got, "no_title")
}

func TestSetupRunDir(t *testing.T) {
	base := t.TempDir()
	filter := model.SearchFilter{
		Companies:      []string{"Acme"},
		Universities:   []string{"MIT"},
		Titles:         []string{"Engineer"},
		ProfilesNeeded: 1,
	}
	dir, err := setupRunDir(base, filter, time.Now())
	require.NoError(t, err)

	info, err := os.Stat(dir.PagesDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir.Root, resultFileName), dir.ResultPath)

	// Readers reconstructing the pages dir from a recorded output dir land
	// on the same path the run wrote to.
	assert.Equal(t, dir.PagesDir, RunPagesDir(dir.Root))
}
