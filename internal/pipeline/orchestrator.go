// Package pipeline implements the profile discovery and outreach run: search
// page accumulation, per-profile extraction, and result export.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/browser"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/progress"
)

// SearchDriver walks search result pages and hands their rendered content to
// a callback. browser.Session is the production implementation.
type SearchDriver interface {
	Search(ctx context.Context, searchURL string, maxPages int, onPage func(ctx context.Context, pageNum int, content string) error) error
}

// Exporter writes the result table for a run.
type Exporter interface {
	Write(path string, details []model.ProfileDetail) error
}

// RunRecorder persists run history. Recording failures are logged and never
// fail a run; the CSV on disk is the authoritative result.
type RunRecorder interface {
	CreateRun(ctx context.Context, run model.Run) error
	FinishRun(ctx context.Context, id string, status model.RunStatus, resultPath string) error
	SaveArtifact(ctx context.Context, runID string, art model.PageArtifact) error
	SaveOutcome(ctx context.Context, runID string, rec model.ProfileRecord) error
}

// Orchestrator runs one search end to end. Construct a fresh one per run:
// the outreach context baked into the extractor may differ between runs.
type Orchestrator struct {
	Driver    SearchDriver
	Analyzer  *Analyzer
	Processor *Processor
	Ledger    *progress.Ledger
	Exporter  Exporter
	Recorder  RunRecorder // optional
	Search    config.SearchConfig
	BaseDir   string

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Run executes the full pipeline for one filter and returns the completed
// profile details. The ledger is always marked done on return, so progress
// pollers observe completion even when the run errors out.
func (o *Orchestrator) Run(ctx context.Context, filter model.SearchFilter) ([]model.ProfileDetail, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "orchestrator"))
	defer o.Ledger.MarkDone()

	o.Ledger.Reset()
	o.Ledger.SetTarget(filter.ProfilesNeeded)

	dir, err := setupRunDir(o.BaseDir, filter, o.now())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("starting run",
		zap.Int("profiles_needed", filter.ProfilesNeeded),
		zap.String("output_dir", dir.Root),
	)

	if o.Recorder != nil {
		run := model.Run{
			ID:             runID,
			Filter:         filter,
			Status:         model.RunStatusRunning,
			ProfilesNeeded: filter.ProfilesNeeded,
			OutputDir:      dir.Root,
			CreatedAt:      o.now(),
		}
		if err := o.Recorder.CreateRun(ctx, run); err != nil {
			log.Warn("failed to record run", zap.Error(err))
		}
	}

	details, err := o.execute(ctx, filter, dir, runID, log)

	status := model.RunStatusCompleted
	if err != nil {
		status = model.RunStatusFailed
	}
	if o.Recorder != nil {
		if rerr := o.Recorder.FinishRun(ctx, runID, status, dir.ResultPath); rerr != nil {
			log.Warn("failed to record run completion", zap.Error(rerr))
		}
	}
	return details, err
}

func (o *Orchestrator) execute(ctx context.Context, filter model.SearchFilter, dir RunDir, runID string, log *zap.Logger) ([]model.ProfileDetail, error) {
	if err := o.search(ctx, filter, dir, runID, log); err != nil {
		return nil, err
	}

	snapshot := o.Ledger.Snapshot()
	if len(snapshot.Profiles) == 0 {
		log.Warn("no profiles found")
		if err := o.Exporter.Write(dir.ResultPath, nil); err != nil {
			return nil, eris.Wrap(err, "pipeline: write empty result table")
		}
		o.Ledger.SetResultPath(dir.ResultPath)
		return nil, nil
	}

	// Accumulation caps per batch, but a racing writer can still push the
	// ledger past the target between capacity check and insert. Never
	// process more than requested.
	records := snapshot.Profiles
	if len(records) > filter.ProfilesNeeded {
		log.Warn("ledger holds more profiles than requested, capping",
			zap.Int("ledger", len(records)),
			zap.Int("profiles_needed", filter.ProfilesNeeded),
		)
		records = records[:filter.ProfilesNeeded]
	}

	details, err := o.processAll(ctx, records, dir, runID, log)

	// Checkpoints already wrote partial results; one final write makes the
	// table complete before the path is published.
	if werr := o.Exporter.Write(dir.ResultPath, details); werr != nil {
		log.Warn("final result write failed", zap.Error(werr))
	} else {
		o.Ledger.SetResultPath(dir.ResultPath)
	}

	if err != nil {
		return details, err
	}
	log.Info("run finished", zap.Int("completed", len(details)), zap.Int("discovered", len(snapshot.Profiles)))
	return details, nil
}

// search walks result pages, analyzing and accumulating until the target is
// reached or the pages run out.
func (o *Orchestrator) search(ctx context.Context, filter model.SearchFilter, dir RunDir, runID string, log *zap.Logger) error {
	searchURL := browser.BuildSearchURL(filter)
	maxPages := filter.PagesNeeded(o.Search.CandidatesPerPage)
	acc := NewAccumulator(o.Ledger)

	err := o.Driver.Search(ctx, searchURL, maxPages, func(ctx context.Context, pageNum int, content string) error {
		reasoning, candidates, err := o.Analyzer.AnalyzePage(ctx, content)
		if err != nil {
			return err
		}

		if len(candidates) > 0 {
			art := model.PageArtifact{
				Page:       pageNum,
				RawContent: content,
				Reasoning:  reasoning,
				Candidates: candidates,
			}
			if err := SavePageArtifact(dir.PagesDir, art); err != nil {
				log.Warn("failed to save page artifact", zap.Int("page", pageNum), zap.Error(err))
			}
			if o.Recorder != nil {
				if err := o.Recorder.SaveArtifact(ctx, runID, art); err != nil {
					log.Warn("failed to record page artifact", zap.Int("page", pageNum), zap.Error(err))
				}
			}
		}

		acc.Accept(candidates)
		if o.Ledger.Size() >= o.Ledger.Target() {
			return browser.ErrSearchDone
		}
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "pipeline: search phase")
	}
	return nil
}

// processAll runs each discovered profile through extraction sequentially,
// spacing profiles out and checkpointing the result table after every one.
func (o *Orchestrator) processAll(ctx context.Context, records []model.ProfileRecord, dir RunDir, runID string, log *zap.Logger) ([]model.ProfileDetail, error) {
	delay := time.Duration(o.Search.ProfileDelaySecs * float64(time.Second))
	if delay <= 0 {
		delay = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	var details []model.ProfileDetail
	for _, rec := range records {
		if err := limiter.Wait(ctx); err != nil {
			return details, eris.Wrap(err, "pipeline: run cancelled")
		}

		candidate := model.Candidate{ID: rec.ID, Name: rec.Name, URL: rec.URL}
		if detail := o.Processor.Process(ctx, candidate); detail != nil {
			details = append(details, *detail)
		}

		if o.Recorder != nil {
			if outcome, ok := o.recordByID(rec.ID); ok {
				if err := o.Recorder.SaveOutcome(ctx, runID, outcome); err != nil {
					log.Warn("failed to record profile outcome", zap.String("profile_id", rec.ID), zap.Error(err))
				}
			}
		}

		// Checkpoint so a crash mid-run loses at most one profile.
		if err := o.Exporter.Write(dir.ResultPath, details); err != nil {
			log.Warn("result checkpoint failed", zap.Error(err))
		}
	}
	return details, nil
}

func (o *Orchestrator) recordByID(id string) (model.ProfileRecord, bool) {
	for _, rec := range o.Ledger.Snapshot().Profiles {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.ProfileRecord{}, false
}
