package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// SearchFilter specifies one LinkedIn people search. Exactly one mode is
// active: a direct search URL, or a structured form search in which
// companies, universities and titles must all be non-empty.
type SearchFilter struct {
	LinkedInURL       string   `json:"linkedin_url,omitempty"`
	Companies         []string `json:"companies,omitempty"`
	Universities      []string `json:"universities,omitempty"`
	Titles            []string `json:"titles,omitempty"`
	ProfilesNeeded    int      `json:"profiles_needed"`
	AdditionalFilters []string `json:"additional_filters,omitempty"`
}

// Validate checks the filter invariants. It fails fast at construction time
// so a bad filter never reaches the browser.
func (f SearchFilter) Validate() error {
	if f.ProfilesNeeded <= 0 {
		return eris.Errorf("filter: profiles_needed must be positive, got %d", f.ProfilesNeeded)
	}
	if f.LinkedInURL != "" {
		return nil
	}
	if len(f.Companies) == 0 || len(f.Universities) == 0 || len(f.Titles) == 0 {
		return eris.New("filter: must provide either linkedin_url or all of companies, universities and titles")
	}
	return nil
}

// URLMode reports whether the filter drives a direct URL search.
func (f SearchFilter) URLMode() bool {
	return f.LinkedInURL != ""
}

// PagesNeeded returns the number of result pages to extract, assuming
// perPage profiles per result page.
func (f SearchFilter) PagesNeeded(perPage int) int {
	if perPage <= 0 {
		perPage = 10
	}
	return (f.ProfilesNeeded + perPage - 1) / perPage
}

// TaskDescription renders the filter into the text block embedded in the
// search task prompt.
func (f SearchFilter) TaskDescription() string {
	if f.URLMode() {
		return fmt.Sprintf("LinkedIn Search URL: %s", f.LinkedInURL)
	}
	additional := "None"
	if len(f.AdditionalFilters) > 0 {
		additional = strings.Join(f.AdditionalFilters, ", ")
	}
	return fmt.Sprintf("Companies: %s\nUniversities: %s\nTitles: %s\nAdditional Filters: %s",
		strings.Join(f.Companies, ", "),
		strings.Join(f.Universities, ", "),
		strings.Join(f.Titles, ", "),
		additional,
	)
}

// SplitInput splits comma-delimited user input into trimmed, non-empty items.
// "OpenAI, Google" -> ["OpenAI", "Google"].
func SplitInput(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
