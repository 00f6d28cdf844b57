package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/browser"
	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outreach"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/progress"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	searchCompanies      string
	searchUniversities   string
	searchTitles         string
	searchFilters        string
	searchURL            string
	searchProfilesNeeded int
	searchNoConnect      bool
	searchNoNote         bool
	searchTemplateMode   string
	searchTemplate       string
	searchSummaryFile    string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a profile search and outreach pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter := model.SearchFilter{
			LinkedInURL:       searchURL,
			Companies:         model.SplitInput(searchCompanies),
			Universities:      model.SplitInput(searchUniversities),
			Titles:            model.SplitInput(searchTitles),
			AdditionalFilters: model.SplitInput(searchFilters),
			ProfilesNeeded:    searchProfilesNeeded,
		}
		if err := filter.Validate(); err != nil {
			return err
		}

		svc, err := llm.NewFromConfig(cfg)
		if err != nil {
			return eris.Wrap(err, "init llm")
		}

		oc, err := buildOutreachContext()
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			zap.L().Warn("run history unavailable", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
		}

		session, err := browser.Open(cfg.Browser)
		if err != nil {
			return eris.Wrap(err, "open browser")
		}
		defer session.Close()

		ledger := progress.NewLedger()
		extractor := pipeline.NewBrowserExtractor(session, svc, oc, cfg.Search.ProfileStepBudget)
		orch := &pipeline.Orchestrator{
			Driver:    session,
			Analyzer:  pipeline.NewAnalyzer(svc),
			Processor: pipeline.NewProcessor(extractor, ledger),
			Ledger:    ledger,
			Exporter:  export.CSVWriter{},
			Search:    cfg.Search,
			BaseDir:   cfg.Output.BaseDir,
		}
		if st != nil {
			orch.Recorder = st
		}

		details, runErr := orch.Run(ctx, filter)

		state := ledger.Snapshot()
		if len(state.Profiles) == 0 {
			fmt.Fprintln(os.Stderr, "No profiles found.")
			return runErr
		}

		formatOutcomes(os.Stdout, state.Profiles)
		if state.CSVFilePath != "" {
			fmt.Printf("\nResults written to %s\n", state.CSVFilePath)
		}

		if cfg.Output.XLSX && len(details) > 0 && state.CSVFilePath != "" {
			xlsxPath := export.XLSXPath(state.CSVFilePath)
			if err := (export.XLSXWriter{}).Write(xlsxPath, details); err != nil {
				zap.L().Warn("xlsx export failed", zap.Error(err))
			} else {
				fmt.Printf("Workbook written to %s\n", xlsxPath)
			}
		}

		return runErr
	},
}

// buildOutreachContext assembles outreach inputs from config, flags, and the
// optional summary and templates files.
func buildOutreachContext() (outreach.Context, error) {
	oc := outreach.Context{
		SendConnectionRequest: cfg.Outreach.SendConnectionRequest && !searchNoConnect,
		IncludeNote:           cfg.Outreach.IncludeNote && !searchNoNote,
		Mode:                  outreach.TemplateMode(cfg.Outreach.TemplateMode),
		CustomTemplate:        searchTemplate,
	}
	if searchTemplateMode != "" {
		oc.Mode = outreach.TemplateMode(searchTemplateMode)
	}

	if searchSummaryFile != "" {
		data, err := os.ReadFile(searchSummaryFile)
		if err != nil {
			return oc, eris.Wrap(err, "read summary file")
		}
		oc.CVSummary = string(data)
	}

	if cfg.Outreach.TemplatesFile != "" {
		templates, err := outreach.LoadTemplates(cfg.Outreach.TemplatesFile)
		if err != nil {
			return oc, err
		}
		oc.MessageTemplates = templates
	}

	return oc, nil
}

// formatOutcomes writes a tabular summary of per-profile outcomes.
func formatOutcomes(out io.Writer, records []model.ProfileRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tMESSAGE")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------")

	for _, rec := range records {
		msg := rec.Message
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ID, rec.Name, rec.Status, msg)
	}
	_ = w.Flush()
}

func init() {
	searchCmd.Flags().StringVar(&searchCompanies, "companies", "", "comma-separated company names")
	searchCmd.Flags().StringVar(&searchUniversities, "universities", "", "comma-separated universities")
	searchCmd.Flags().StringVar(&searchTitles, "titles", "", "comma-separated job titles")
	searchCmd.Flags().StringVar(&searchFilters, "additional-filters", "", "comma-separated extra keywords")
	searchCmd.Flags().StringVar(&searchURL, "linkedin-url", "", "pre-built LinkedIn search URL (overrides form filters)")
	searchCmd.Flags().IntVar(&searchProfilesNeeded, "profiles-needed", 0, "number of profiles to collect (required)")
	searchCmd.Flags().BoolVar(&searchNoConnect, "no-connect", false, "skip sending connection requests")
	searchCmd.Flags().BoolVar(&searchNoNote, "no-note", false, "send connection requests without a note")
	searchCmd.Flags().StringVar(&searchTemplateMode, "template-mode", "", "message template mode (examples, strict)")
	searchCmd.Flags().StringVar(&searchTemplate, "custom-template", "", "fixed message template for strict mode")
	searchCmd.Flags().StringVar(&searchSummaryFile, "summary-file", "", "path to a CV summary text file")
	_ = searchCmd.MarkFlagRequired("profiles-needed")
	rootCmd.AddCommand(searchCmd)
}
