package llm

import (
	"context"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/outreach-cli/internal/config"
)

// chatCompleter is the slice of the OpenAI client this service uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIService adapts the OpenAI chat API to the Service interface.
type OpenAIService struct {
	client chatCompleter
	model  string
}

// NewOpenAI creates an OpenAI-backed Service.
func NewOpenAI(cfg config.OpenAIConfig) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(cfg.Key),
		model:  cfg.Model,
	}
}

// NewOpenAIWithClient creates a Service over an existing client, used by tests.
func NewOpenAIWithClient(client chatCompleter, model string) *OpenAIService {
	return &OpenAIService{client: client, model: model}
}

func (s *OpenAIService) Complete(ctx context.Context, system, user string) (string, error) {
	return retryCompletion(ctx, func(ctx context.Context) (string, error) {
		messages := []openai.ChatCompletionMessage{}
		if system != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			})
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: user,
		})

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.model,
			Messages: messages,
		})
		if err != nil {
			return "", eris.Wrap(err, "llm: openai completion")
		}
		if len(resp.Choices) == 0 {
			return "", eris.New("llm: openai returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}
