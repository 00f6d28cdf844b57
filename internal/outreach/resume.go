package outreach

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/llm"
)

const summarizeSystemPrompt = `You are a helpful assistant that summarizes resumes for professional networking.
Focus on:
- The person's first name, which must appear in the first bullet
- Notable projects or research
- Relevant courses or academic achievements
- Past experiences and roles
- Key interests or skills
- Potential conversation starters (sports, volunteering, study abroad, clubs)

Create a concise bullet-list summary (max 10 bullets).
Use short, direct statements written in the first person, as if the user is
writing about themselves: "I am a research engineer", never "The user is a
research engineer".`

const templatesSystemPrompt = `You are a professional networking assistant.
Given a resume summary inside <CV SUMMARY> tags, write 5 short LinkedIn
connection request templates (1-2 sentences each) in a single text block.
Write only in first person. Refer to the recipient exclusively through
placeholders such as [Linkedin Profile Name], [Company Name] and
[Linkedin Profile Details] — never copy CV SUMMARY facts into those
placeholders. Separate templates with the symbol "———" and end each with:
Best,
[My Name]
No extra commentary.`

// fallbackTemplates is returned when template generation fails, so outreach
// still has something usable.
const fallbackTemplates = `Hi [Linkedin Profile Name], I'm interested in your work at [Company Name] and would love to connect to learn more about your experience.
Best,
[My Name]
———
Hey [Linkedin Profile Name], I came across your background in [Linkedin Profile Details] and would value your perspective on the field. I'd love to connect.
Best,
[My Name]
———
Hi [Linkedin Profile Name], I'm exploring opportunities in [Linkedin Profile Details] and would appreciate any insights from your time at [Company Name].
Best,
[My Name]`

// SummarizeResume produces a first-person bullet summary of raw CV text.
func SummarizeResume(ctx context.Context, svc llm.Service, cvText string) (string, error) {
	if strings.TrimSpace(cvText) == "" {
		return "", eris.New("outreach: empty CV text")
	}
	summary, err := svc.Complete(ctx, summarizeSystemPrompt, "Here is my resume:\n"+cvText)
	if err != nil {
		return "", eris.Wrap(err, "outreach: summarize resume")
	}
	return strings.TrimSpace(summary), nil
}

// GenerateTemplates produces connection-request templates from a resume
// summary. On LLM failure it falls back to a static template block rather
// than failing the upload flow.
func GenerateTemplates(ctx context.Context, svc llm.Service, summary string) string {
	user := "Here is my CV SUMMARY, used for first-person details only:\n<CV SUMMARY>\n" + summary + "\n</CV SUMMARY>"
	text, err := svc.Complete(ctx, templatesSystemPrompt, user)
	if err != nil {
		zap.L().Warn("outreach: template generation failed, using fallback", zap.Error(err))
		return fallbackTemplates
	}
	return strings.TrimSpace(text)
}
