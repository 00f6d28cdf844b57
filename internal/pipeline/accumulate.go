package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/progress"
)

// Accumulator folds per-page candidate batches into the ledger, enforcing
// URL uniqueness and the run's profile target.
type Accumulator struct {
	ledger *progress.Ledger
}

// NewAccumulator creates an Accumulator over the given ledger.
func NewAccumulator(ledger *progress.Ledger) *Accumulator {
	return &Accumulator{ledger: ledger}
}

// Accept filters one batch and registers the survivors. Candidates without a
// URL are dropped, duplicates within the batch (first occurrence wins) and
// against earlier pages are dropped, and the remainder is truncated in order
// to whatever capacity is left. Returns the accepted candidates with their
// assigned ids.
func (a *Accumulator) Accept(batch []model.RawCandidate) []model.Candidate {
	log := zap.L().With(zap.String("component", "accumulator"))

	remaining := a.ledger.Target() - a.ledger.Size()
	if remaining <= 0 {
		return nil
	}

	existing := a.ledger.URLSet()
	seen := make(map[string]struct{}, len(batch))
	var unique []model.RawCandidate
	for _, c := range batch {
		if c.URL == "" {
			log.Warn("dropping candidate without URL", zap.String("name", c.Name))
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		if _, dup := existing[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		unique = append(unique, c)
	}

	if len(unique) > remaining {
		unique = unique[:remaining]
	}

	accepted := make([]model.Candidate, 0, len(unique))
	for _, c := range unique {
		name := c.Name
		if name == "" {
			name = "No name"
		}
		id := a.ledger.AddProfile(name, c.URL)
		accepted = append(accepted, model.Candidate{ID: id, Name: name, URL: c.URL})
	}

	if len(accepted) > 0 {
		log.Info("accepted candidates",
			zap.Int("accepted", len(accepted)),
			zap.Int("ledger_size", a.ledger.Size()),
			zap.Int("target", a.ledger.Target()),
		)
	}
	return accepted
}
