package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/browser"
	"github.com/sells-group/outreach-cli/internal/model"
)

// stubLLM answers Complete calls from a substring-keyed response table, with
// an optional fixed response and error.
type stubLLM struct {
	mu        sync.Mutex
	responses map[string]string // substring of user prompt -> response
	fixed     string
	err       error
	calls     []string
}

func (s *stubLLM) Complete(_ context.Context, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, user)
	if s.err != nil {
		return "", s.err
	}
	for key, resp := range s.responses {
		if strings.Contains(user, key) {
			return resp, nil
		}
	}
	return s.fixed, nil
}

// fakeExtractor returns canned results keyed by candidate URL.
type fakeExtractor struct {
	mu      sync.Mutex
	details map[string]*model.ProfileDetail
	errs    map[string]error
	calls   []string
}

func (f *fakeExtractor) Extract(_ context.Context, c model.Candidate) (*model.ProfileDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c.URL)
	if err, ok := f.errs[c.URL]; ok {
		return nil, err
	}
	if d, ok := f.details[c.URL]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, &ExtractionError{Kind: FailureNoResult, Err: errNoCannedResult}
}

var errNoCannedResult = &ExtractionError{Kind: FailureNoResult, Err: eris.New("no canned result")}

// fakeDriver feeds canned page content to the search callback.
type fakeDriver struct {
	pages []string
	seen  []int
}

func (d *fakeDriver) Search(ctx context.Context, _ string, maxPages int, onPage func(context.Context, int, string) error) error {
	for i, content := range d.pages {
		if i >= maxPages {
			break
		}
		d.seen = append(d.seen, i+1)
		if err := onPage(ctx, i+1, content); err != nil {
			if eris.Is(err, browser.ErrSearchDone) {
				return nil
			}
		}
	}
	return nil
}

// fakeProfileDriver implements profileDriver for extractor tests.
type fakeProfileDriver struct {
	content    string
	visitErr   error
	connectRes browser.ConnectResult
	connectErr error

	visited   []string
	sentNotes []string
	sentBool  []bool
}

func (d *fakeProfileDriver) VisitProfile(_ context.Context, url string) (string, error) {
	d.visited = append(d.visited, url)
	return d.content, d.visitErr
}

func (d *fakeProfileDriver) SendConnectionRequest(_ context.Context, _ string, note string, includeNote bool) (browser.ConnectResult, error) {
	d.sentNotes = append(d.sentNotes, note)
	d.sentBool = append(d.sentBool, includeNote)
	return d.connectRes, d.connectErr
}

// memExporter captures every checkpoint write.
type memExporter struct {
	mu     sync.Mutex
	writes [][]model.ProfileDetail
	path   string
	err    error
}

func (m *memExporter) Write(path string, details []model.ProfileDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.path = path
	copied := make([]model.ProfileDetail, len(details))
	copy(copied, details)
	m.writes = append(m.writes, copied)
	return nil
}

func (m *memExporter) last() []model.ProfileDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return nil
	}
	return m.writes[len(m.writes)-1]
}

// memRecorder captures run history calls.
type memRecorder struct {
	mu        sync.Mutex
	runs      []model.Run
	finished  map[string]model.RunStatus
	artifacts []model.PageArtifact
	outcomes  []model.ProfileRecord
}

func newMemRecorder() *memRecorder {
	return &memRecorder{finished: make(map[string]model.RunStatus)}
}

func (m *memRecorder) CreateRun(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) FinishRun(_ context.Context, id string, status model.RunStatus, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[id] = status
	return nil
}

func (m *memRecorder) SaveArtifact(_ context.Context, _ string, art model.PageArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, art)
	return nil
}

func (m *memRecorder) SaveOutcome(_ context.Context, _ string, rec model.ProfileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, rec)
	return nil
}
