package model

// ProfileStatus tracks a discovered profile through its processing lifecycle.
type ProfileStatus string

const (
	ProfileStatusPending    ProfileStatus = "pending"
	ProfileStatusProcessing ProfileStatus = "processing"
	ProfileStatusCompleted  ProfileStatus = "completed"
	ProfileStatusFailed     ProfileStatus = "failed"
)

// Terminal reports whether the status is a terminal state. Terminal records
// are never transitioned again within a run.
func (s ProfileStatus) Terminal() bool {
	return s == ProfileStatusCompleted || s == ProfileStatusFailed
}

// Valid reports whether the status is one of the known enum values.
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusPending, ProfileStatusProcessing, ProfileStatusCompleted, ProfileStatusFailed:
		return true
	}
	return false
}

// ProfileRecord is one entry in the progress ledger. IDs are assigned in
// insertion order and the URL is the dedup key: unique across the ledger.
type ProfileRecord struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	URL     string        `json:"url"`
	Status  ProfileStatus `json:"status"`
	Message string        `json:"message"`
}

// RawCandidate is an untrusted profile candidate as produced by the DOM
// analysis step. Either field may be missing or garbage.
type RawCandidate struct {
	Name string `json:"name"`
	URL  string `json:"URL"`
}

// Candidate is a validated, deduplicated candidate accepted into the ledger,
// carrying its assigned ledger id.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"URL"`
}
