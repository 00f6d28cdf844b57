package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/progress"
)

// Processor runs one candidate through extraction and keeps the ledger
// record in sync: processing while work is in flight, then exactly one
// terminal status no matter how extraction ends.
type Processor struct {
	extractor ProfileExtractor
	ledger    *progress.Ledger
}

// NewProcessor creates a Processor.
func NewProcessor(extractor ProfileExtractor, ledger *progress.Ledger) *Processor {
	return &Processor{extractor: extractor, ledger: ledger}
}

// Process extracts one candidate. A nil return means the profile failed; the
// ledger holds the failure message. Panics inside extraction are contained
// to the one profile.
func (p *Processor) Process(ctx context.Context, c model.Candidate) (detail *model.ProfileDetail) {
	log := zap.L().With(zap.String("component", "processor"), zap.String("profile_id", c.ID), zap.String("name", c.Name))

	p.setStatus(c.ID, model.ProfileStatusProcessing, "Processing profile...")

	defer func() {
		if r := recover(); r != nil {
			log.Error("profile processing panicked", zap.Any("panic", r))
			p.setStatus(c.ID, model.ProfileStatusFailed, fmt.Sprintf("Error: internal failure: %v", r))
			detail = nil
		}
	}()

	extracted, err := p.extractor.Extract(ctx, c)
	if err != nil {
		log.Warn("profile extraction failed", zap.Error(err))
		p.setStatus(c.ID, model.ProfileStatusFailed, failureMessage(err))
		return nil
	}

	p.setStatus(c.ID, model.ProfileStatusCompleted, extracted.CustomMessage)
	log.Info("profile completed")
	return extracted
}

// failureMessage renders a ledger message for an extraction error.
func failureMessage(err error) string {
	var xerr *ExtractionError
	if errors.As(err, &xerr) {
		switch xerr.Kind {
		case FailureStructural:
			return fmt.Sprintf("Failed to load profile: %v", xerr.Err)
		case FailureNoResult:
			return "Failed to process profile"
		case FailureSchema:
			if xerr.Raw == "" {
				return fmt.Sprintf("Error: %v", xerr.Err)
			}
			return fmt.Sprintf("Error: %v; last payload: %s", xerr.Err, truncateRaw(xerr.Raw))
		}
	}
	return fmt.Sprintf("Error: %v", err)
}

// maxRawInMessage bounds how much rejected payload a ledger message carries.
const maxRawInMessage = 300

func truncateRaw(raw string) string {
	if len(raw) <= maxRawInMessage {
		return raw
	}
	return raw[:maxRawInMessage] + "..."
}

func (p *Processor) setStatus(id string, status model.ProfileStatus, message string) {
	p.ledger.UpdateProfile(id, progress.Update{Status: &status, Message: &message})
}
