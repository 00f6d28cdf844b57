package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/ocr"
	"github.com/sells-group/outreach-cli/internal/progress"
	"github.com/sells-group/outreach-cli/internal/server"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the progress API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := llm.NewFromConfig(cfg)
		if err != nil {
			return eris.Wrap(err, "init llm")
		}

		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return eris.Wrap(err, "init ocr")
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			zap.L().Warn("run history unavailable", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
		}

		ledger := progress.NewLedger()
		launcher := &server.PipelineLauncher{
			Cfg:     cfg,
			LLM:     svc,
			Ledger:  ledger,
			BaseCtx: ctx,
		}
		if st != nil {
			launcher.Recorder = st
		}

		srv := server.New(ledger, launcher, extractor, svc, st, cfg.Outreach)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}

			// Let any in-flight run finish its checkpoint writes.
			launcher.Wait()
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
