package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/applyo/prospector/internal/auth"
	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/internal/prospect"
	"github.com/applyo/prospector/internal/task"
)

// Prospector is the agent side of the API.
type Prospector interface {
	FindCompanies(ctx context.Context, req prospect.CompanyRequest) (*prospect.CompanyResponse, error)
	FindPeople(ctx context.Context, req prospect.PeopleRequest) (*prospect.PeopleResponse, error)
	FindEmails(ctx context.Context, req prospect.EmailRequest) (*prospect.EmailResponse, error)
	SummarizeProfile(ctx context.Context, req prospect.ProfileRequest) (*prospect.ProfileResponse, error)
	Kinds() []*task.Spec
}

// ChatStore persists chats and their messages. Every chat lookup is scoped to its owner.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *persistence.Chat) error
	GetChat(ctx context.Context, userID, chatID string) (*persistence.Chat, error)
	ListChats(ctx context.Context, userID string, limit, offset int) ([]persistence.Chat, int, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
	AddMessage(ctx context.Context, msg *persistence.Message) error
	ListMessages(ctx context.Context, chatID string) ([]persistence.Message, error)
}

type Server struct {
	prospector Prospector
	auth       *auth.Service
	chats      ChatStore
	replier    Replier

	origins      []string
	cookieSecure bool
	requestLimit time.Duration

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

// WithChats enables the chat routes. A nil replier stores user messages without answering.
func WithChats(store ChatStore, replier Replier) Option {
	return func(s *Server) {
		s.chats = store
		s.replier = replier
	}
}

// WithAllowedOrigins sets the CORS allow-list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.cookieSecure = secure
	}
}

// WithRequestTimeout bounds agent requests, which may run many generation rounds.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestLimit = d
	}
}

func NewServer(prospector Prospector, authSvc *auth.Service, opts ...Option) *Server {
	s := &Server{
		prospector:   prospector,
		auth:         authSvc,
		requestLimit: 5 * time.Minute,
		router:       chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(CORS(s.origins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/sign-up/email", s.handleSignUpEmail)
		r.Post("/sign-in/email", s.handleSignInEmail)
		r.Post("/sign-in/anonymous", s.handleSignInAnonymous)
		r.Post("/sign-out", s.handleSignOut)
		r.Get("/get-session", s.handleGetSession)
	})

	r.Route("/api/agents", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.auth))
		r.Use(middleware.Timeout(s.requestLimit))
		r.Get("/", s.handleListAgents)
		r.Post("/companies", s.handleCompanies)
		r.Post("/people", s.handlePeople)
		r.Post("/emails", s.handleEmails)
		r.Post("/profile", s.handleProfile)
	})

	if s.chats != nil {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.auth))
			r.Use(middleware.NoCache)
			r.Post("/chat/start", s.handleStartChat)
			r.Post("/chat/{chatID}/message", s.handleAddMessage)
			r.Get("/chat/{chatID}", s.handleGetChat)
			r.Delete("/chat/{chatID}", s.handleDeleteChat)
			r.Get("/chats", s.handleListChats)
		})
	}
}
