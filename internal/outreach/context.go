// Package outreach holds the connection-request configuration and the
// LLM-assisted resume summarization that feeds message generation.
package outreach

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TemplateMode selects how the custom message is produced.
type TemplateMode string

const (
	// TemplateModeExamples lets the model compose a message guided by
	// example templates and the CV summary.
	TemplateModeExamples TemplateMode = "examples"
	// TemplateModeStrict fills placeholders in a fixed template and
	// changes nothing else.
	TemplateModeStrict TemplateMode = "strict"
)

// Context carries every outreach input explicitly. Nothing here is read from
// process-wide state: handlers and the CLI construct one per run.
type Context struct {
	SendConnectionRequest bool
	IncludeNote           bool
	Mode                  TemplateMode
	CustomTemplate        string
	CVSummary             string
	MessageTemplates      string
}

// templatesFile is the on-disk shape of a saved template collection.
type templatesFile struct {
	Templates []string `yaml:"templates"`
}

// LoadTemplates reads message templates from a YAML file and returns the
// formatted excerpt block.
func LoadTemplates(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "outreach: read templates %s", path)
	}
	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", eris.Wrapf(err, "outreach: parse templates %s", path)
	}
	return FormatExcerpts(strings.Join(f.Templates, excerptDelimiter)), nil
}

// excerptDelimiter separates individual templates inside one text block.
const excerptDelimiter = "———"

// FormatExcerpts splits delimiter-separated template text into a numbered
// <MESSAGE TEMPLATES> block.
func FormatExcerpts(input string) string {
	var excerpts []string
	for _, part := range strings.Split(input, excerptDelimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			excerpts = append(excerpts, trimmed)
		}
	}

	var b strings.Builder
	b.WriteString("<MESSAGE TEMPLATES>\n")
	for i, excerpt := range excerpts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, excerpt)
	}
	b.WriteString("</MESSAGE TEMPLATES>")
	return b.String()
}

// Instructions renders the message-generation guidance passed to the profile
// extraction step. Empty when no note will be sent.
func (c Context) Instructions() string {
	if !c.SendConnectionRequest || !c.IncludeNote {
		return ""
	}
	if c.Mode == TemplateModeStrict && c.CustomTemplate != "" {
		return "Use this exact message template, replacing only the profile placeholders:\n" + c.CustomTemplate
	}
	if c.CVSummary == "" && c.MessageTemplates == "" {
		return "Hi [Linkedin Profile Name], I'm interested in your work and would love to connect.\nBest,\n[My Name]"
	}
	var b strings.Builder
	b.WriteString("<CUSTOM_MESSAGE GENERATION INSTRUCTIONS>\n")
	if c.CVSummary != "" {
		b.WriteString("<CV SUMMARY>\n" + c.CVSummary + "\n</CV SUMMARY>\n")
	}
	if c.MessageTemplates != "" {
		b.WriteString(c.MessageTemplates + "\n")
	}
	b.WriteString("Write the message in first person using only CV SUMMARY facts for my side, " +
		"and fill the profile placeholders from the extracted profile. " +
		"Use the profile's first name only, keep it under 300 characters.\n" +
		"</CUSTOM_MESSAGE GENERATION INSTRUCTIONS>")
	return b.String()
}
