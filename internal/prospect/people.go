package prospect

import (
	"context"
	"encoding/json"

	"github.com/applyo/prospector/internal/cache"
	"github.com/applyo/prospector/internal/task"
)

type PeopleRequest struct {
	Company string          `json:"company"`
	Website *string         `json:"website,omitempty"`
	Notes   *string         `json:"notes,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type PeopleResponse struct {
	Company string   `json:"company"`
	Website string   `json:"website"`
	People  []Person `json:"people"`
	Source  string   `json:"source"`
	Meta
}

// FindPeople answers from the company cache when it can, else runs people discovery.
func (e *Engine) FindPeople(ctx context.Context, req PeopleRequest) (*PeopleResponse, error) {
	inputs := inputsBuilder{}.
		set("company", req.Company).
		opt("website", req.Website).
		opt("notes", req.Notes)

	env, err := e.Run(ctx, task.KindPeople, task.Inputs(inputs))
	if err != nil {
		return nil, err
	}

	resp := &PeopleResponse{
		Company: env.String("company"),
		Website: cache.NormalizeURL(env.String("website")),
		People:  make([]Person, 0),
		Source:  env.Source,
		Meta:    metaFrom(env, req.State),
	}
	if resp.Company == "" {
		resp.Company = req.Company
	}
	if resp.Website == "" && req.Website != nil {
		resp.Website = cache.NormalizeURL(*req.Website)
	}
	for _, p := range env.Objects("people") {
		resp.People = append(resp.People, Person{Name: p["name"], Role: p["role"]})
	}
	return resp, nil
}
