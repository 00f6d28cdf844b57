package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/browser"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/progress"
)

// PipelineLauncher builds a fresh orchestrator per run and executes it in the
// background. Runs are serialized: LinkedIn tolerates exactly one logged-in
// browser session, and the ledger tracks a single run at a time.
type PipelineLauncher struct {
	Cfg      *config.Config
	LLM      llm.Service
	Ledger   *progress.Ledger
	Recorder pipeline.RunRecorder // optional

	// BaseCtx bounds all launched runs; nil means context.Background.
	BaseCtx context.Context

	mu sync.Mutex
	wg sync.WaitGroup
}

// Launch starts a run in the background. The HTTP handler returns
// immediately; progress is observed through the ledger.
func (l *PipelineLauncher) Launch(filter model.SearchFilter, oc outreach.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.run(filter, oc); err != nil {
			zap.L().Error("search run failed", zap.Error(err))
		}
	}()
}

// Wait blocks until all launched runs have finished. Used on shutdown.
func (l *PipelineLauncher) Wait() {
	l.wg.Wait()
}

func (l *PipelineLauncher) run(filter model.SearchFilter, oc outreach.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx := l.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := browser.Open(l.Cfg.Browser)
	if err != nil {
		// The orchestrator never ran, so pollers would wait forever
		// without this.
		l.Ledger.MarkDone()
		return err
	}
	defer session.Close()

	extractor := pipeline.NewBrowserExtractor(session, l.LLM, oc, l.Cfg.Search.ProfileStepBudget)
	orch := &pipeline.Orchestrator{
		Driver:    session,
		Analyzer:  pipeline.NewAnalyzer(l.LLM),
		Processor: pipeline.NewProcessor(extractor, l.Ledger),
		Ledger:    l.Ledger,
		Exporter:  export.CSVWriter{},
		Recorder:  l.Recorder,
		Search:    l.Cfg.Search,
		BaseDir:   l.Cfg.Output.BaseDir,
	}

	details, err := orch.Run(ctx, filter)
	if err != nil {
		return err
	}

	if l.Cfg.Output.XLSX && len(details) > 0 {
		if path := l.Ledger.Snapshot().CSVFilePath; path != "" {
			if werr := (export.XLSXWriter{}).Write(export.XLSXPath(path), details); werr != nil {
				zap.L().Warn("xlsx export failed", zap.Error(werr))
			}
		}
	}
	return nil
}
