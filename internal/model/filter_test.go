package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  SearchFilter
		wantErr string
	}{
		{
			name: "valid form filter",
			filter: SearchFilter{
				Companies:      []string{"Acme"},
				Universities:   []string{"MIT"},
				Titles:         []string{"Engineer"},
				ProfilesNeeded: 5,
			},
		},
		{
			name: "valid url filter",
			filter: SearchFilter{
				LinkedInURL:    "https://www.linkedin.com/search/results/people/?keywords=x",
				ProfilesNeeded: 1,
			},
		},
		{
			name:    "zero profiles needed",
			filter:  SearchFilter{LinkedInURL: "https://x", ProfilesNeeded: 0},
			wantErr: "profiles_needed must be positive",
		},
		{
			name:    "negative profiles needed",
			filter:  SearchFilter{LinkedInURL: "https://x", ProfilesNeeded: -2},
			wantErr: "profiles_needed must be positive",
		},
		{
			name: "form filter missing universities",
			filter: SearchFilter{
				Companies:      []string{"Acme"},
				Titles:         []string{"Engineer"},
				ProfilesNeeded: 5,
			},
			wantErr: "must provide either linkedin_url",
		},
		{
			name:    "empty filter",
			filter:  SearchFilter{ProfilesNeeded: 3},
			wantErr: "must provide either linkedin_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearchFilter_URLMode(t *testing.T) {
	assert.True(t, SearchFilter{LinkedInURL: "https://x"}.URLMode())
	assert.False(t, SearchFilter{Companies: []string{"Acme"}}.URLMode())
}

func TestSearchFilter_PagesNeeded(t *testing.T) {
	tests := []struct {
		needed  int
		perPage int
		want    int
	}{
		{10, 10, 1},
		{11, 10, 2},
		{1, 10, 1},
		{25, 10, 3},
		{5, 0, 1}, // zero per-page falls back to 10
	}
	for _, tt := range tests {
		f := SearchFilter{ProfilesNeeded: tt.needed}
		assert.Equal(t, tt.want, f.PagesNeeded(tt.perPage), "needed=%d perPage=%d", tt.needed, tt.perPage)
	}
}

func TestSearchFilter_TaskDescription(t *testing.T) {
	form := SearchFilter{
		Companies:    []string{"Acme", "Globex"},
		Universities: []string{"MIT"},
		Titles:       []string{"Engineer"},
	}
	desc := form.TaskDescription()
	assert.Contains(t, desc, "Companies: Acme, Globex")
	assert.Contains(t, desc, "Universities: MIT")
	assert.Contains(t, desc, "Additional Filters: None")

	withExtras := form
	withExtras.AdditionalFilters = []string{"fintech"}
	assert.Contains(t, withExtras.TaskDescription(), "Additional Filters: fintech")

	urlFilter := SearchFilter{LinkedInURL: "https://x/search"}
	assert.Equal(t, "LinkedIn Search URL: https://x/search", urlFilter.TaskDescription())
}

func TestSplitInput(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"OpenAI, Google", []string{"OpenAI", "Google"}},
		{"  Acme  ", []string{"Acme"}},
		{"a,,b, ,c", []string{"a", "b", "c"}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitInput(tt.input), "input=%q", tt.input)
	}
}
