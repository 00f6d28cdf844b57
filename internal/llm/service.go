// Package llm abstracts "prompt in, text out" over the configured model
// providers. The pipeline never talks to a provider SDK directly.
package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Service generates text from a system + user prompt pair.
type Service interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// completionMaxTokens bounds every completion issued through this package.
const completionMaxTokens = 4096

// NewFromConfig builds a Service from configuration. Anthropic is the
// primary provider; OpenAI serves as fallback when both are configured,
// mirroring the multi-provider setup of the DOM-analysis step.
func NewFromConfig(cfg *config.Config) (Service, error) {
	var chain []Service
	if cfg.Anthropic.Key != "" {
		chain = append(chain, NewAnthropic(cfg.Anthropic))
	}
	if cfg.OpenAI.Key != "" {
		chain = append(chain, NewOpenAI(cfg.OpenAI))
	}
	switch len(chain) {
	case 0:
		return nil, eris.New("llm: no provider configured (set anthropic.key or openai.key)")
	case 1:
		return chain[0], nil
	default:
		return &fallbackService{chain: chain}, nil
	}
}

// fallbackService tries each provider in order until one succeeds.
type fallbackService struct {
	chain []Service
}

func (f *fallbackService) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for i, svc := range f.chain {
		text, err := svc.Complete(ctx, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
		zap.L().Warn("llm: provider failed, trying next",
			zap.Int("provider_index", i),
			zap.Error(err),
		)
	}
	return "", eris.Wrap(lastErr, "llm: all providers failed")
}

// retryCompletion wraps a provider call in the shared retry policy.
func retryCompletion(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), fn)
}
