package prospect

import (
	"encoding/json"

	"github.com/applyo/prospector/internal/task"
)

// Meta is carried by every agent response. State is caller data echoed back untouched.
type Meta struct {
	Outcome Outcome         `json:"outcome"`
	Error   string          `json:"error,omitempty"`
	RawText string          `json:"raw_text,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

// GenerationFailed reports whether the backend itself could not be reached.
func (m Meta) GenerationFailed() bool {
	return m.Outcome == OutcomeGenerationFailed
}

func metaFrom(env *Envelope, state json.RawMessage) Meta {
	return Meta{
		Outcome: env.Outcome,
		Error:   env.Error,
		RawText: env.RawText,
		State:   state,
	}
}

// inputsBuilder keeps absent optional fields out of the inputs map, so the
// prompt can tell "not provided" from "empty".
type inputsBuilder task.Inputs

func (b inputsBuilder) set(name, value string) inputsBuilder {
	b[name] = value
	return b
}

func (b inputsBuilder) opt(name string, value *string) inputsBuilder {
	if value != nil {
		b[name] = *value
	}
	return b
}
