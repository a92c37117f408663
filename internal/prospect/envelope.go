package prospect

import (
	"github.com/applyo/prospector/internal/agent"
)

// Outcome says which stage ended the run.
type Outcome string

const (
	OutcomeCached           Outcome = "cached"
	OutcomeOK               Outcome = "ok"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeNoneVerified     Outcome = "none_verified"
	OutcomeGenerationFailed Outcome = "generation_failed"
)

const (
	SourceCache      = "cache"
	SourceGeneration = "generation"
)

// Envelope is the uniform result of one run, whatever stage ended it.
// Envelopes may be shared between de-duplicated callers and must be treated as read-only.
type Envelope struct {
	Kind    string         `json:"kind"`
	Outcome Outcome        `json:"outcome"`
	Source  string         `json:"source"`
	Fields  map[string]any `json:"fields"`

	Error   string `json:"error,omitempty"`
	RawText string `json:"raw_text,omitempty"`

	VerificationSummary string `json:"verification_summary,omitempty"`
	Verified            int    `json:"verified,omitempty"`
	Total               int    `json:"total,omitempty"`

	Trace     []agent.ToolCallRecord `json:"trace,omitempty"`
	Rounds    int                    `json:"rounds,omitempty"`
	Exhausted bool                   `json:"exhausted,omitempty"`
}

// Failed reports whether no usable result was produced.
func (e *Envelope) Failed() bool {
	return e.Outcome == OutcomeExtractionFailed || e.Outcome == OutcomeGenerationFailed
}

func (e *Envelope) String(name string) string {
	s, _ := e.Fields[name].(string)
	return s
}

func (e *Envelope) Strings(name string) []string {
	if s, ok := e.Fields[name].([]string); ok {
		return s
	}
	return []string{}
}

func (e *Envelope) Objects(name string) []map[string]string {
	if o, ok := e.Fields[name].([]map[string]string); ok {
		return o
	}
	return []map[string]string{}
}
