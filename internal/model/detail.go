package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ProfileDetail is the structured result of extracting one LinkedIn profile.
// The schema is strict: unknown fields are rejected on decode, and absent
// data is represented as an empty string or slice, never omitted. The field
// order here is the column order of the exported table.
type ProfileDetail struct {
	FullName          string   `json:"Full_Name"`
	CurrentTitle      string   `json:"Current_Title"`
	Company           string   `json:"Company"`
	Location          string   `json:"Location"`
	Education         []string `json:"Education"`
	CompaniesWorkedAt []string `json:"Companies_Worked_At"`
	CommonInterests   []string `json:"Common_Interests"`
	CustomMessage     string   `json:"Custom_Message"`
	ProfileURL        string   `json:"Profile_URL"`
}

// requiredDetailFields lists the keys a payload must carry to satisfy the
// strict schema. Values may be empty, the keys may not be missing.
var requiredDetailFields = []string{
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

// DecodeProfileDetail parses and validates a raw extractor payload against
// the strict ProfileDetail schema. Extra fields and missing required fields
// are both decode errors.
func DecodeProfileDetail(raw []byte) (*ProfileDetail, error) {
	// First pass: key presence check on a generic map.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, eris.Wrap(err, "detail: parse payload")
	}
	for _, field := range requiredDetailFields {
		if _, ok := keys[field]; !ok {
			return nil, eris.Errorf("detail: missing required field %q", field)
		}
	}

	// Second pass: strict decode into the struct.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var detail ProfileDetail
	if err := dec.Decode(&detail); err != nil {
		return nil, eris.Wrap(err, "detail: decode payload")
	}

	// Normalize nil slices so CSV/JSON output is stable.
	if detail.Education == nil {
		detail.Education = []string{}
	}
	if detail.CompaniesWorkedAt == nil {
		detail.CompaniesWorkedAt = []string{}
	}
	if detail.CommonInterests == nil {
		detail.CommonInterests = []string{}
	}
	return &detail, nil
}
