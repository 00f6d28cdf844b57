// Package server exposes the progress API consumed by the frontend: it
// launches searches, reports ledger state and serves run results.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/ocr"
	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/progress"
	"github.com/sells-group/outreach-cli/internal/store"
)

// maxUploadBytes caps CV uploads.
const maxUploadBytes = 10 << 20

// Launcher starts a pipeline run in the background.
type Launcher interface {
	Launch(filter model.SearchFilter, oc outreach.Context)
}

// Server holds the HTTP handler state. Outreach material uploaded between
// runs (CV summary, templates) is kept in memory, mirroring how a run is
// prepared from the frontend.
type Server struct {
	ledger   *progress.Ledger
	launcher Launcher
	ocr      ocr.Extractor
	llm      llm.Service
	store    store.Store // optional
	defaults config.OutreachConfig

	mu        sync.Mutex
	summary   string
	templates string
}

// New creates a Server. store may be nil when run history is disabled.
func New(ledger *progress.Ledger, launcher Launcher, extractor ocr.Extractor, svc llm.Service, st store.Store, defaults config.OutreachConfig) *Server {
	return &Server{
		ledger:   ledger,
		launcher: launcher,
		ocr:      extractor,
		llm:      svc,
		store:    st,
		defaults: defaults,
	}
}

// Router builds the chi router with CORS enabled for the frontend.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/linkedin", s.handleLinkedIn)
		r.Get("/progress", s.handleProgress)
		r.Get("/download-results", s.handleDownloadResults)
		r.Post("/upload-cv", s.handleUploadCV)
		r.Post("/linkedin-examples", s.handleExamples)
		r.Post("/save-summary", s.handleSaveSummary)
		r.Get("/runs", s.handleListRuns)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// searchRequest is the POST /api/linkedin body. Form fields arrive as
// comma-delimited strings; boolean outreach flags default to the configured
// values when omitted.
type searchRequest struct {
	LinkedInURL           string `json:"linkedin_url"`
	Companies             string `json:"companies"`
	Universities          string `json:"universities"`
	Titles                string `json:"titles"`
	ProfilesNeeded        int    `json:"profiles_needed"`
	AdditionalFilters     string `json:"additional_filters"`
	SendConnectionRequest *bool  `json:"send_connection_request"`
	IncludeNote           *bool  `json:"include_note"`
	TemplateMode          string `json:"template_mode"`
	CustomTemplate        string `json:"custom_template"`
}

func (s *Server) handleLinkedIn(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter := model.SearchFilter{
		LinkedInURL:       req.LinkedInURL,
		Companies:         model.SplitInput(req.Companies),
		Universities:      model.SplitInput(req.Universities),
		Titles:            model.SplitInput(req.Titles),
		ProfilesNeeded:    req.ProfilesNeeded,
		AdditionalFilters: model.SplitInput(req.AdditionalFilters),
	}
	if err := filter.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	oc := s.outreachContext(req)

	// Reset synchronously so an immediate /api/progress poll already sees
	// the fresh run.
	s.ledger.Reset()
	s.ledger.SetTarget(filter.ProfilesNeeded)
	s.launcher.Launch(filter, oc)

	zap.L().Info("search initiated",
		zap.Int("profiles_needed", filter.ProfilesNeeded),
		zap.Bool("url_mode", filter.URLMode()),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Search initiated. Check Progress tab for details.",
	})
}

// outreachContext combines request flags, configured defaults, and the
// uploaded CV material.
func (s *Server) outreachContext(req searchRequest) outreach.Context {
	send := s.defaults.SendConnectionRequest
	if req.SendConnectionRequest != nil {
		send = *req.SendConnectionRequest
	}
	note := s.defaults.IncludeNote
	if req.IncludeNote != nil {
		note = *req.IncludeNote
	}
	mode := outreach.TemplateMode(req.TemplateMode)
	if req.TemplateMode == "" {
		mode = outreach.TemplateMode(s.defaults.TemplateMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return outreach.Context{
		SendConnectionRequest: send,
		IncludeNote:           note,
		Mode:                  mode,
		CustomTemplate:        req.CustomTemplate,
		CVSummary:             s.summary,
		MessageTemplates:      s.templates,
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleDownloadResults(w http.ResponseWriter, r *http.Request) {
	state := s.ledger.Snapshot()
	if !state.IsDone || state.CSVFilePath == "" {
		writeError(w, http.StatusNotFound, "processing not yet complete")
		return
	}
	if _, err := os.Stat(state.CSVFilePath); err != nil {
		writeError(w, http.StatusNotFound, "result file not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="linkedin_profiles.csv"`)
	http.ServeFile(w, r, state.CSVFilePath)
}

// uploadResponse is the POST /api/upload-cv response.
type uploadResponse struct {
	Summary            string `json:"summary"`
	ConnectionRequests string `json:"connection_requests"`
}

func (s *Server) handleUploadCV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	cvText, err := s.ocr.ExtractText(r.Context(), pdf)
	if err != nil {
		zap.L().Warn("cv text extraction failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "could not extract text from PDF")
		return
	}

	summary, err := outreach.SummarizeResume(r.Context(), s.llm, cvText)
	if err != nil {
		zap.L().Warn("cv summarization failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not summarize resume")
		return
	}
	templates := outreach.GenerateTemplates(r.Context(), s.llm, summary)

	s.mu.Lock()
	s.summary = summary
	s.templates = outreach.FormatExcerpts(templates)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, uploadResponse{
		Summary:            summary,
		ConnectionRequests: templates,
	})
}

// examplesRequest is the POST /api/linkedin-examples body.
type examplesRequest struct {
	Templates []string `json:"templates"`
	Mode      string   `json:"mode"`
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	var req examplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	formatted := outreach.FormatExcerpts(joinTemplates(req.Templates))
	s.mu.Lock()
	s.templates = formatted
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Connection requests received successfully!",
	})
}

// summaryRequest is the POST /api/save-summary body.
type summaryRequest struct {
	Summary string `json:"summary"`
}

func (s *Server) handleSaveSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	s.summary = req.Summary
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Summary successfully saved.",
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{})
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// helpers

func joinTemplates(templates []string) string {
	out := ""
	for i, tpl := range templates {
		if i > 0 {
			out += "———"
		}
		out += tpl
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
