package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/model"
)

const domSystemPrompt = `You are a helpful assistant that analyzes interactive elements from the DOM of a webpage.`

const domAnalysisPrompt = `
Your task:
1. The user did a search on LinkedIn for profiles.
2. Based on the above extracted page content, return a list of main profiles that resulted from the search in the format: [{"name": ..., "URL": ...}]. The output must be exactly in that JSON format. Note, there might be a lot of noise on the page content due to page layout. Only return the profiles that were intended to be included in the search.

Provide your output as follows:
<REASONING>
Mention your strategy for thinking about how to identify which profiles directly resulted from our search vs. what profiles might be noise due to page layout. Look at the DOM above and try to refine your strategy. Apply the strategy to identify the profiles that resulted from our search.
</REASONING>
<JSON>
List of profiles, each profile should have "name" and "URL".
</JSON>`

// Analyzer turns raw search result page content into candidate profiles via
// LLM DOM analysis.
type Analyzer struct {
	svc llm.Service
}

// NewAnalyzer creates an Analyzer backed by the given completion service.
func NewAnalyzer(svc llm.Service) *Analyzer {
	return &Analyzer{svc: svc}
}

// AnalyzePage extracts search result candidates from one page's rendered
// content. The reasoning section is returned for the page artifact.
func (a *Analyzer) AnalyzePage(ctx context.Context, rawContent string) (string, []model.RawCandidate, error) {
	response, err := a.svc.Complete(ctx, domSystemPrompt, rawContent+"\n"+domAnalysisPrompt)
	if err != nil {
		return "", nil, eris.Wrap(err, "pipeline: dom analysis")
	}

	reasoning := extractSection(response, "REASONING")
	jsonContent := extractSection(response, "JSON")
	if jsonContent == "" {
		return reasoning, nil, eris.New("pipeline: dom analysis response has no JSON section")
	}

	candidates, err := decodeCandidates(jsonContent)
	if err != nil {
		return reasoning, nil, err
	}

	zap.L().Debug("pipeline: page analyzed", zap.Int("candidates", len(candidates)))
	return reasoning, candidates, nil
}

// extractSection pulls the text between <TAG> and </TAG>. Empty when either
// marker is absent.
func extractSection(text, tag string) string {
	openTag := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	start := strings.Index(text, openTag)
	if start < 0 {
		return ""
	}
	rest := text[start+len(openTag):]
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// decodeCandidates parses the candidate list, tolerating markdown fences and
// surrounding prose around the array.
func decodeCandidates(text string) ([]model.RawCandidate, error) {
	cleaned := cleanJSONArray(text)
	var candidates []model.RawCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse candidate list")
	}
	return candidates, nil
}

// cleanJSONArray attempts to extract a JSON array from text that may contain
// markdown code fences or other wrapping.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first [ and last ].
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
