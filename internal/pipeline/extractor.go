package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/browser"
	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/outreach"
)

// FailureKind classifies why a profile failed to process.
type FailureKind string

const (
	// FailureStructural means the profile page could not be loaded or read.
	FailureStructural FailureKind = "structural"
	// FailureNoResult means extraction produced no usable payload.
	FailureNoResult FailureKind = "no_result"
	// FailureSchema means the payload failed strict schema validation.
	FailureSchema FailureKind = "schema"
)

// ExtractionError carries the failure classification alongside the cause.
// Raw holds the last model payload when the failure is a schema one, so the
// rejected output survives into the ledger.
type ExtractionError struct {
	Kind FailureKind
	Err  error
	Raw  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ProfileExtractor extracts the structured detail for one candidate profile.
type ProfileExtractor interface {
	Extract(ctx context.Context, c model.Candidate) (*model.ProfileDetail, error)
}

// profileDriver is the slice of the browser session the extractor needs.
type profileDriver interface {
	VisitProfile(ctx context.Context, profileURL string) (string, error)
	SendConnectionRequest(ctx context.Context, profileURL, note string, includeNote bool) (browser.ConnectResult, error)
}

const extractSystemPrompt = `You are a helpful assistant that extracts structured information from LinkedIn profile pages. You respond with exactly the JSON object requested, nothing else.`

const extractPromptFormat = `The page content above belongs to a specific LinkedIn profile whose information we want to extract. If you cannot find a piece of information, leave it blank.
%s
Return the information in this exact JSON format:
{
"Full_Name": "<full name from profile>",
"Current_Title": "<current job title>",
"Company": "<current company>",
"Location": "<location>",
"Education": ["<education item 1>", "<education item 2>"],
"Companies_Worked_At": ["<company 1>", "<company 2>"],
"Custom_Message": "<short first-person connection note for this person>",
"Common_Interests": ["<interest 1>", "<interest 2>"],
"Profile_URL": "%s"
}`

// Outcome messages recorded when outreach changes the custom message.
const (
	msgNoConnectButton = "No Connect Button Found or Already Connected"
	msgNoNote          = "No Note"
	potentialPrefix    = "potential message: "
)

// Per-profile work is capped by the step budget: each step is granted this
// much wall clock, and schema failures get a bounded number of re-prompts.
const (
	stepInterval      = 10 * time.Second
	maxDecodeAttempts = 3
)

// BrowserExtractor drives a browser session and a completion service to turn
// one candidate into a ProfileDetail, optionally sending a connection
// request along the way.
type BrowserExtractor struct {
	driver     profileDriver
	svc        llm.Service
	outreach   outreach.Context
	stepBudget int
}

// NewBrowserExtractor creates an extractor. stepBudget bounds the total
// per-profile work; zero or negative falls back to 25 steps.
func NewBrowserExtractor(driver profileDriver, svc llm.Service, oc outreach.Context, stepBudget int) *BrowserExtractor {
	if stepBudget <= 0 {
		stepBudget = 25
	}
	return &BrowserExtractor{driver: driver, svc: svc, outreach: oc, stepBudget: stepBudget}
}

// Extract visits the candidate's profile, extracts the structured detail and
// performs the configured outreach. All failures are returned as
// *ExtractionError so the processor can classify them.
func (e *BrowserExtractor) Extract(ctx context.Context, c model.Candidate) (*model.ProfileDetail, error) {
	log := zap.L().With(zap.String("component", "extractor"), zap.String("profile_id", c.ID), zap.String("url", c.URL))

	if strings.TrimSpace(c.URL) == "" {
		return nil, &ExtractionError{Kind: FailureStructural, Err: eris.New("candidate has no profile URL")}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.stepBudget)*stepInterval)
	defer cancel()

	content, err := e.driver.VisitProfile(ctx, c.URL)
	if err != nil {
		return nil, &ExtractionError{Kind: FailureStructural, Err: eris.Wrap(err, "visit profile")}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &ExtractionError{Kind: FailureStructural, Err: eris.New("profile page rendered empty")}
	}

	detail, err := e.extractDetail(ctx, c, content)
	if err != nil {
		return nil, err
	}

	// The candidate URL is authoritative regardless of what the model echoed.
	detail.ProfileURL = c.URL

	e.applyOutreach(ctx, c, detail, log)
	return detail, nil
}

// extractDetail runs the extraction prompt, re-prompting with the validation
// error on schema failures until the attempt budget runs out.
func (e *BrowserExtractor) extractDetail(ctx context.Context, c model.Candidate, content string) (*model.ProfileDetail, error) {
	prompt := content + "\n" + fmt.Sprintf(extractPromptFormat, e.outreach.Instructions(), c.URL)

	var (
		lastErr error
		lastRaw string
	)
	for attempt := 1; attempt <= maxDecodeAttempts; attempt++ {
		response, err := e.svc.Complete(ctx, extractSystemPrompt, prompt)
		if err != nil {
			return nil, &ExtractionError{Kind: FailureNoResult, Err: eris.Wrap(err, "extraction completion")}
		}

		cleaned := cleanJSONObject(response)
		if cleaned == "" {
			lastErr = eris.New("no JSON object in response")
		} else {
			detail, err := model.DecodeProfileDetail([]byte(cleaned))
			if err == nil {
				return detail, nil
			}
			lastErr = err
			lastRaw = cleaned
		}

		zap.L().Debug("pipeline: extraction payload invalid, re-prompting",
			zap.String("profile_id", c.ID), zap.Int("attempt", attempt), zap.Error(lastErr))
		prompt = content + "\n" + fmt.Sprintf(extractPromptFormat, e.outreach.Instructions(), c.URL) +
			"\nYour previous response was invalid: " + lastErr.Error() +
			"\nReturn only the corrected JSON object."
	}
	// Without a payload there is nothing schema-shaped to report.
	if lastRaw == "" {
		return nil, &ExtractionError{Kind: FailureNoResult, Err: lastErr}
	}
	return nil, &ExtractionError{Kind: FailureSchema, Err: lastErr, Raw: lastRaw}
}

// applyOutreach sends the connection request when configured and records the
// outcome in the custom message. Outreach failures never fail an otherwise
// successful extraction.
func (e *BrowserExtractor) applyOutreach(ctx context.Context, c model.Candidate, detail *model.ProfileDetail, log *zap.Logger) {
	if !e.outreach.SendConnectionRequest {
		detail.CustomMessage = potentialPrefix + detail.CustomMessage
		return
	}

	note := detail.CustomMessage
	result, err := e.driver.SendConnectionRequest(ctx, c.URL, note, e.outreach.IncludeNote)
	if err != nil {
		log.Warn("connection request failed", zap.Error(err))
		detail.CustomMessage = potentialPrefix + detail.CustomMessage
		return
	}
	switch {
	case result == browser.ConnectUnavailable:
		detail.CustomMessage = msgNoConnectButton
	case !e.outreach.IncludeNote:
		detail.CustomMessage = msgNoNote
	}
}

// cleanJSONObject attempts to extract a JSON object from text that may
// contain markdown code fences or other wrapping.
func cleanJSONObject(text string) string {
	text = strings.TrimSpace(text)

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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
