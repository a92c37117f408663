package httpapi

import (
	"net/http"

	"github.com/applyo/prospector/internal/auth"
	"github.com/applyo/prospector/internal/persistence"
)

type sessionResponse struct {
	Session *persistence.Session `json:"session"`
	User    *persistence.User    `json:"user"`
	Token   string               `json:"token,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUpEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUp
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, user, err := s.auth.SignUpEmail(r.Context(), req, auth.ClientFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.startSession(w, http.StatusCreated, sess, user)
}

func (s *Server) handleSignInEmail(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, user, err := s.auth.SignInEmail(r.Context(), req.Email, req.Password, auth.ClientFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.startSession(w, http.StatusOK, sess, user)
}

func (s *Server) handleSignInAnonymous(w http.ResponseWriter, r *http.Request) {
	sess, user, err := s.auth.SignInAnonymous(r.Context(), auth.ClientFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.startSession(w, http.StatusOK, sess, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeAppError(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, s.cookieSecure)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleGetSession answers null rather than 401 when nobody is signed in.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	sess, user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, User: user})
}

func (s *Server) startSession(w http.ResponseWriter, status int, sess *persistence.Session, user *persistence.User) {
	auth.SetSessionCookie(w, sess, s.cookieSecure)
	writeJSON(w, status, sessionResponse{Session: sess, User: user, Token: sess.Token})
}
