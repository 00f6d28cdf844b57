package model

// ArtifactVersion is the current page artifact schema version. Readers skip
// artifacts with a version they do not understand instead of failing a run.
const ArtifactVersion = 1

// PageArtifact captures everything extracted from one search results page:
// the raw rendered content, the analyzer's reasoning, and the candidate list
// it produced. Artifacts are written per page so a run can be audited or
// re-accumulated after the fact.
type PageArtifact struct {
	Version    int            `json:"version"`
	Page       int            `json:"page"`
	RawContent string         `json:"raw_content"`
	Reasoning  string         `json:"reasoning"`
	Candidates []RawCandidate `json:"candidates"`
}
