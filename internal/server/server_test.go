package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/progress"
	"github.com/sells-group/outreach-cli/internal/store"
)

// fakeLauncher records launched runs instead of driving a browser.
type fakeLauncher struct {
	filters  []model.SearchFilter
	contexts []outreach.Context
}

func (f *fakeLauncher) Launch(filter model.SearchFilter, oc outreach.Context) {
	f.filters = append(f.filters, filter)
	f.contexts = append(f.contexts, oc)
}

// fakeOCR returns canned text or an error.
type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

// stubLLM answers by substring match against the system prompt.
type stubLLM struct {
	responses map[string]string
	err       error
}

func (s *stubLLM) Complete(_ context.Context, system, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for key, resp := range s.responses {
		if strings.Contains(system, key) {
			return resp, nil
		}
	}
	return "", eris.New("no canned response")
}

// memStore implements store.Store in memory for handler tests.
type memStore struct {
	runs []model.Run
	err  error
}

func (m *memStore) CreateRun(context.Context, model.Run) error { return nil }
func (m *memStore) FinishRun(context.Context, string, model.RunStatus, string) error {
	return nil
}
func (m *memStore) GetRun(context.Context, string) (*model.Run, error) {
	return nil, store.ErrRunNotFound
}
func (m *memStore) ListRuns(context.Context, store.RunFilter) ([]model.Run, error) {
	return m.runs, m.err
}
func (m *memStore) SaveArtifact(context.Context, string, model.PageArtifact) error { return nil }
func (m *memStore) SaveOutcome(context.Context, string, model.ProfileRecord) error { return nil }
func (m *memStore) ListOutcomes(context.Context, string) ([]model.ProfileRecord, error) {
	return nil, nil
}
func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

type testServer struct {
	srv      *Server
	launcher *fakeLauncher
	ledger   *progress.Ledger
	ocr      *fakeOCR
	llm      *stubLLM
	handler  http.Handler
}

func newTestServer(t *testing.T, st store.Store) *testServer {
	t.Helper()
	ts := &testServer{
		launcher: &fakeLauncher{},
		ledger:   progress.NewLedger(),
		ocr:      &fakeOCR{text: "resume text"},
		llm: &stubLLM{responses: map[string]string{
			"summarizes resumes": "- I am Ada, a compiler engineer",
			"connection request": "Hi [Linkedin Profile Name]!\nBest,\n[My Name]",
		}},
	}
	defaults := config.OutreachConfig{
		SendConnectionRequest: true,
		IncludeNote:           true,
		TemplateMode:          "examples",
	}
	ts.srv = New(ts.ledger, ts.launcher, ts.ocr, ts.llm, st, defaults)
	ts.handler = ts.srv.Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleLinkedIn_StartsRun(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":       "Acme, Globex",
		"universities":    "MIT",
		"titles":          "Engineer",
		"profiles_needed": 5,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Search initiated. Check Progress tab for details.", decodeBody(t, rec)["message"])

	require.Len(t, ts.launcher.filters, 1)
	filter := ts.launcher.filters[0]
	assert.Equal(t, []string{"Acme", "Globex"}, filter.Companies)
	assert.Equal(t, []string{"Engineer"}, filter.Titles)
	assert.Equal(t, 5, filter.ProfilesNeeded)

	// Ledger reset happens before the handler returns.
	state := ts.ledger.Snapshot()
	assert.Equal(t, 5, state.ProfilesNeeded)
	assert.False(t, state.IsDone)
}

func TestHandleLinkedIn_OutreachDefaults(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":       "Acme",
		"universities":    "MIT",
		"titles":          "Engineer",
		"profiles_needed": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ts.launcher.contexts, 1)
	oc := ts.launcher.contexts[0]
	assert.True(t, oc.SendConnectionRequest)
	assert.True(t, oc.IncludeNote)
	assert.Equal(t, outreach.TemplateModeExamples, oc.Mode)
}

func TestHandleLinkedIn_FlagOverrides(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":               "Acme",
		"universities":            "MIT",
		"titles":                  "Engineer",
		"profiles_needed":         1,
		"send_connection_request": true,
		"include_note":            false,
		"template_mode":           "strict",
		"custom_template":         "Hi [Linkedin Profile Name]",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	oc := ts.launcher.contexts[0]
	assert.True(t, oc.SendConnectionRequest)
	assert.False(t, oc.IncludeNote)
	assert.Equal(t, outreach.TemplateModeStrict, oc.Mode)
	assert.Equal(t, "Hi [Linkedin Profile Name]", oc.CustomTemplate)
}

func TestHandleLinkedIn_InvalidFilter(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies": "Acme",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
	assert.Empty(t, ts.launcher.filters)
}

func TestHandleLinkedIn_BadJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/linkedin", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProgress(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ledger.SetTarget(2)
	ts.ledger.AddProfile("Ada Lovelace", "https://www.linkedin.com/in/ada")

	rec := ts.do(t, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state progress.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 2, state.ProfilesNeeded)
	require.Len(t, state.Profiles, 1)
	assert.Equal(t, "Ada Lovelace", state.Profiles[0].Name)
	assert.False(t, state.IsDone)
}

func TestHandleDownloadResults_NotReady(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/download-results", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "processing not yet complete", decodeBody(t, rec)["error"])
}

func TestHandleDownloadResults_ServesFile(t *testing.T) {
	ts := newTestServer(t, nil)

	path := filepath.Join(t.TempDir(), "detailed_profiles.csv")
	require.NoError(t, os.WriteFile(path, []byte("Full_Name\nAda Lovelace\n"), 0o644))
	ts.ledger.SetResultPath(path)
	ts.ledger.MarkDone()

	rec := ts.do(t, http.MethodGet, "/api/download-results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="linkedin_profiles.csv"`)
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")
}

func TestHandleDownloadResults_FileMissing(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ledger.SetResultPath(filepath.Join(t.TempDir(), "gone.csv"))
	ts.ledger.MarkDone()

	rec := ts.do(t, http.MethodGet, "/api/download-results", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "result file not found", decodeBody(t, rec)["error"])
}

func multipartCV(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "cv.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleUploadCV(t *testing.T) {
	ts := newTestServer(t, nil)

	body, contentType := multipartCV(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-cv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "- I am Ada, a compiler engineer", resp["summary"])
	assert.Contains(t, resp["connection_requests"], "Hi [Linkedin Profile Name]!")

	// The uploaded material feeds subsequent runs.
	launch := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":       "Acme",
		"universities":    "MIT",
		"titles":          "Engineer",
		"profiles_needed": 1,
	})
	require.Equal(t, http.StatusOK, launch.Code)
	oc := ts.launcher.contexts[0]
	assert.Equal(t, "- I am Ada, a compiler engineer", oc.CVSummary)
	assert.Contains(t, oc.MessageTemplates, "<MESSAGE TEMPLATES>")
}

func TestHandleUploadCV_MissingFile(t *testing.T) {
	ts := newTestServer(t, nil)

	body, contentType := multipartCV(t, "wrong_field")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-cv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadCV_OCRFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ocr.err = eris.New("pdftotext: not found")

	body, contentType := multipartCV(t, "file")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-cv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleExamples(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/linkedin-examples", map[string]any{
		"templates": []string{"Hi there!", "Hello again!"},
		"mode":      "examples",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Connection requests received successfully!", decodeBody(t, rec)["message"])

	launch := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":       "Acme",
		"universities":    "MIT",
		"titles":          "Engineer",
		"profiles_needed": 1,
	})
	require.Equal(t, http.StatusOK, launch.Code)
	oc := ts.launcher.contexts[0]
	assert.Contains(t, oc.MessageTemplates, "1. Hi there!")
	assert.Contains(t, oc.MessageTemplates, "2. Hello again!")
}

func TestHandleSaveSummary(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/save-summary", map[string]any{
		"summary": "- I build databases",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Summary successfully saved.", decodeBody(t, rec)["message"])

	launch := ts.do(t, http.MethodPost, "/api/linkedin", map[string]any{
		"companies":       "Acme",
		"universities":    "MIT",
		"titles":          "Engineer",
		"profiles_needed": 1,
	})
	require.Equal(t, http.StatusOK, launch.Code)
	assert.Equal(t, "- I build databases", ts.launcher.contexts[0].CVSummary)
}

func TestHandleListRuns(t *testing.T) {
	st := &memStore{runs: []model.Run{{ID: "run-1", Status: model.RunStatusCompleted}}}
	ts := newTestServer(t, st)

	rec := ts.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestHandleListRuns_Disabled(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
