package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// AnthropicService adapts the wrapped Anthropic client to the Service interface.
type AnthropicService struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic-backed Service.
func NewAnthropic(cfg config.AnthropicConfig) *AnthropicService {
	return &AnthropicService{
		client: anthropic.NewClient(cfg.Key),
		model:  cfg.Model,
	}
}

// NewAnthropicWithClient creates a Service over an existing client, used by tests.
func NewAnthropicWithClient(client anthropic.Client, model string) *AnthropicService {
	return &AnthropicService{client: client, model: model}
}

func (s *AnthropicService) Complete(ctx context.Context, system, user string) (string, error) {
	temp := 0.0
	return retryCompletion(ctx, func(ctx context.Context) (string, error) {
		resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       s.model,
			MaxTokens:   completionMaxTokens,
			System:      system,
			Messages:    []anthropic.Message{{Role: "user", Content: user}},
			Temperature: &temp,
		})
		if err != nil {
			return "", eris.Wrap(err, "llm: anthropic completion")
		}
		text := resp.Text()
		if text == "" {
			return "", eris.New("llm: anthropic returned empty completion")
		}
		return text, nil
	})
}
