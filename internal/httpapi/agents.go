package httpapi

import (
	"net/http"

	"github.com/applyo/prospector/internal/prospect"
)

type agentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rounds      int      `json:"rounds"`
	Tools       []string `json:"tools"`
	Verified    bool     `json:"verified"`
	Cached      bool     `json:"cached"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	kinds := s.prospector.Kinds()
	ret := make([]agentInfo, 0, len(kinds))
	for _, k := range kinds {
		tools := k.Tools
		if tools == nil {
			tools = []string{}
		}
		ret = append(ret, agentInfo{
			Name:        k.Name,
			Description: k.Description,
			Rounds:      k.Rounds,
			Tools:       tools,
			Verified:    k.Verify != nil,
			Cached:      k.Cache != nil,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	var req prospect.CompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.prospector.FindCompanies(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeAgentResponse(w, resp.Meta, resp)
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	var req prospect.PeopleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.prospector.FindPeople(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeAgentResponse(w, resp.Meta, resp)
}

func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	var req prospect.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.prospector.FindEmails(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeAgentResponse(w, resp.Meta, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req prospect.ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.prospector.SummarizeProfile(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeAgentResponse(w, resp.Meta, resp)
}

// writeAgentResponse answers 502 with the full body when the backend failed,
// 200 for every other outcome including zero results.
func writeAgentResponse(w http.ResponseWriter, meta prospect.Meta, body any) {
	status := http.StatusOK
	if meta.GenerationFailed() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, body)
}
