package prospect

import (
	"context"
	"encoding/json"

	"github.com/applyo/prospector/internal/cache"
	"github.com/applyo/prospector/internal/task"
)

type CompanyRequest struct {
	Summary     string          `json:"summary"`
	Preferences string          `json:"preferences"`
	Location    *string         `json:"location,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
}

type Company struct {
	Company        string `json:"company"`
	Summary        string `json:"summary"`
	Reason         string `json:"reason"`
	CompanyWebsite string `json:"company_website"`
}

type CompanyResponse struct {
	Companies []Company `json:"companies"`
	Meta
}

// FindCompanies suggests companies that fit the candidate.
func (e *Engine) FindCompanies(ctx context.Context, req CompanyRequest) (*CompanyResponse, error) {
	inputs := inputsBuilder{}.
		set("summary", req.Summary).
		set("preferences", req.Preferences).
		opt("location", req.Location)

	env, err := e.Run(ctx, task.KindCompanies, task.Inputs(inputs))
	if err != nil {
		return nil, err
	}

	resp := &CompanyResponse{
		Companies: make([]Company, 0),
		Meta:      metaFrom(env, req.State),
	}
	for _, c := range env.Objects("companies") {
		resp.Companies = append(resp.Companies, Company{
			Company:        c["company"],
			Summary:        c["summary"],
			Reason:         c["reason"],
			CompanyWebsite: cache.NormalizeURL(c["company_website"]),
		})
	}
	return resp, nil
}
