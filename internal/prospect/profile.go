package prospect

import (
	"context"
	"encoding/json"

	"github.com/applyo/prospector/internal/task"
)

type ProfileRequest struct {
	Resume string          `json:"resume"`
	State  json.RawMessage `json:"state,omitempty"`
}

type ProfileResponse struct {
	Summary string `json:"summary"`
	Meta
}

// SummarizeProfile turns resume text into a candidate summary.
func (e *Engine) SummarizeProfile(ctx context.Context, req ProfileRequest) (*ProfileResponse, error) {
	env, err := e.Run(ctx, task.KindProfile, task.Inputs{"resume": req.Resume})
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		Summary: env.String("summary"),
		Meta:    metaFrom(env, req.State),
	}, nil
}
