package prospect

import (
	"context"
	"encoding/json"

	"github.com/applyo/prospector/internal/task"
	"github.com/applyo/prospector/internal/verify"
)

const (
	NotesParseFailed  = "Failed to parse response - AI model returned empty or invalid JSON"
	NotesNoneVerified = "No verified emails found"
	PatternNone       = "none"
)

type EmailRequest struct {
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Company   string          `json:"company"`
	Domain    *string         `json:"domain,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
}

type EmailResponse struct {
	Emails              []string `json:"emails"`
	PatternFound        string   `json:"pattern_found"`
	ResearchNotes       string   `json:"research_notes"`
	VerificationSummary string   `json:"verification_summary"`
	Meta
}

// FindEmails discovers candidate addresses and keeps only verified ones.
func (e *Engine) FindEmails(ctx context.Context, req EmailRequest) (*EmailResponse, error) {
	inputs := inputsBuilder{}.
		set("firstName", req.FirstName).
		set("lastName", req.LastName).
		set("company", req.Company).
		opt("domain", req.Domain)

	env, err := e.Run(ctx, task.KindEmails, task.Inputs(inputs))
	if err != nil {
		return nil, err
	}

	resp := &EmailResponse{
		Emails:              env.Strings("emails"),
		PatternFound:        env.String("pattern_found"),
		ResearchNotes:       env.String("research_notes"),
		VerificationSummary: env.VerificationSummary,
		Meta:                metaFrom(env, req.State),
	}

	switch env.Outcome {
	case OutcomeNoneVerified:
		resp.ResearchNotes = NotesNoneVerified
	case OutcomeExtractionFailed, OutcomeGenerationFailed:
		resp.ResearchNotes = NotesParseFailed
		resp.VerificationSummary = verify.Summary(0, 0, "emails")
	}
	if resp.PatternFound == "" {
		resp.PatternFound = PatternNone
	}
	return resp, nil
}
