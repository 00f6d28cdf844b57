// Package progress holds the shared ledger of discovered profiles that the
// search pipeline mutates and the progress API polls.
package progress

import (
	"strconv"
	"sync"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Ledger is the concurrency-safe source of truth for one search run. The
// orchestrator and the DOM extraction callbacks mutate it while HTTP pollers
// read snapshots; every operation holds the mutex for its whole
// read-modify-write sequence so a snapshot never observes a torn update.
type Ledger struct {
	mu         sync.Mutex
	records    []model.ProfileRecord
	target     int
	done       bool
	resultPath string
}

// Update is the closed set of fields a caller may change on a record.
// Nil pointers leave the field untouched.
type Update struct {
	Status  *model.ProfileStatus
	Message *string
}

// State is an immutable snapshot of the ledger.
type State struct {
	Profiles       []model.ProfileRecord `json:"profiles"`
	IsDone         bool                  `json:"is_done"`
	ProfilesNeeded int                   `json:"profiles_needed"`
	CSVFilePath    string                `json:"csv_file_path,omitempty"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Reset clears all state for a new run.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.target = 0
	l.done = false
	l.resultPath = ""
}

// SetTarget records the desired profile count for the current run.
func (l *Ledger) SetTarget(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = n
}

// AddProfile appends a new pending record and returns its assigned id.
// IDs are monotonic by insertion order and never reused within a run.
// URL uniqueness is the accumulator's responsibility, not the ledger's.
func (l *Ledger) AddProfile(name, url string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := model.ProfileRecord{
		ID:      strconv.Itoa(len(l.records) + 1),
		Name:    name,
		URL:     url,
		Status:  model.ProfileStatusPending,
		Message: "Profile discovered",
	}
	l.records = append(l.records, rec)
	return rec.ID
}

// UpdateProfile applies a partial update to the record with the given id.
// Unknown ids are a no-op: a record may legitimately never have been created
// if accumulation raced with capacity. Records that reached a terminal
// status are frozen; late updates from a straggling worker are dropped.
func (l *Ledger) UpdateProfile(id string, upd Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].ID != id {
			continue
		}
		if l.records[i].Status.Terminal() {
			return
		}
		if upd.Status != nil && upd.Status.Valid() {
			l.records[i].Status = *upd.Status
		}
		if upd.Message != nil {
			l.records[i].Message = *upd.Message
		}
		return
	}
}

// MarkDone flags the run as finished. Idempotent; once set it stays set
// until the next Reset.
func (l *Ledger) MarkDone() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = true
}

// SetResultPath records where the exported result table lives.
func (l *Ledger) SetResultPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resultPath = path
}

// URLSet returns the set of URLs currently in the ledger, used by the
// accumulator for cross-page dedup.
func (l *Ledger) URLSet() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	urls := make(map[string]struct{}, len(l.records))
	for _, rec := range l.records {
		urls[rec.URL] = struct{}{}
	}
	return urls
}

// Size returns the current number of records.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Target returns the desired profile count.
func (l *Ledger) Target() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

// Snapshot returns a deep copy of the current state. Callers never receive
// live references into the ledger.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	profiles := make([]model.ProfileRecord, len(l.records))
	copy(profiles, l.records)
	return State{
		Profiles:       profiles,
		IsDone:         l.done,
		ProfilesNeeded: l.target,
		CSVFilePath:    l.resultPath,
	}
}
