package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/applyo/prospector/internal/agent"
	"github.com/applyo/prospector/internal/auth"
	"github.com/applyo/prospector/internal/cache"
	"github.com/applyo/prospector/internal/config"
	"github.com/applyo/prospector/internal/httpapi"
	"github.com/applyo/prospector/internal/llm"
	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/internal/prospect"
	"github.com/applyo/prospector/internal/task"
	"github.com/applyo/prospector/internal/tools"
	"github.com/applyo/prospector/internal/verify"
	"github.com/applyo/prospector/pkg/icron"
	"github.com/applyo/prospector/pkg/log"
)

const chatSystemPrompt = "You are a job-search assistant. Help the user find companies, " +
	"the people to contact there and how to reach them. Be concise and concrete."

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.NewFromEnv()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := persistence.NewSQLiteStore(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, client, store)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(store, cfg.Auth.SessionTTL)
	srv := httpapi.NewServer(engine, authSvc,
		httpapi.WithChats(store, httpapi.NewConversationReplier(client, chatSystemPrompt, 50)),
		httpapi.WithAllowedOrigins(cfg.HTTP.AllowedOrigins()),
		httpapi.WithSecureCookies(cfg.Auth.CookieSecure),
	)

	cronEngine := icron.New()
	janitor := &sessionJanitor{cron: cronEngine, auth: authSvc, expr: cfg.Auth.PurgeCron}

	return runWithComponents(ctx, cfg, janitor, cronEngine, srv)
}

// runWithComponents schedules background jobs, serves HTTP and shuts both
// down when ctx is cancelled.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, cronEngine cronRunner, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronEngine.Start()
	defer cronEngine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}

// sessionJanitor purges expired sessions on a cron schedule.
type sessionJanitor struct {
	cron *cron.Cron
	auth *auth.Service
	expr string
}

func (j *sessionJanitor) Schedule(ctx context.Context) error {
	return icron.Schedule(ctx, j.cron, "session-purge", j.expr, func(ctx context.Context) error {
		_, err := j.auth.PurgeExpired(ctx)
		return err
	})
}

func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	return llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
}

// newEngine registers every tool and builds the engine over the embedded task kinds.
func newEngine(cfg *config.Config, client agent.ChatClient, store *persistence.SQLiteStore) (*prospect.Engine, error) {
	emailTool := tools.NewEmailVerifyTool(cfg.Verifier.APIKey, cfg.Verifier.APIURL)

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewWebSearchTool(tools.SearchConfig{
			Provider:   cfg.Search.Provider,
			APIKey:     cfg.Search.APIKey,
			APIURL:     cfg.Search.APIURL,
			MaxResults: cfg.Search.MaxResults,
		}),
		tools.NewResearchTool(tools.ResearchConfig{
			APIKey: cfg.Research.APIKey,
			APIURL: cfg.Research.APIURL,
			Model:  cfg.Research.Model,
		}),
		emailTool,
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	catalog, err := task.LoadDefault()
	if err != nil {
		return nil, err
	}

	ag := agent.NewLLMAgent(client, registry, agent.WithToolTimeout(cfg.Agent.ToolTimeout))
	verifier := verify.NewPass(emailTool,
		verify.WithCache(cfg.Verifier.CacheSize, cfg.Verifier.CacheTTL),
		verify.WithTimeout(cfg.Agent.ToolTimeout),
	)

	return prospect.NewEngine(catalog, ag, registry,
		prospect.WithCompanyCache(cache.NewCompanies(store)),
		prospect.WithVerifier(verifier),
		prospect.WithMaxRounds(cfg.Agent.MaxRounds),
	)
}
