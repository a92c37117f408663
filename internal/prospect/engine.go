// Package prospect runs agent tasks end to end: cache short-circuit, prompt,
// bounded generation session, extraction, verification and the envelope.
package prospect

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/applyo/prospector/internal/agent"
	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/internal/cache"
	"github.com/applyo/prospector/internal/extract"
	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/internal/prompt"
	"github.com/applyo/prospector/internal/task"
	"github.com/applyo/prospector/internal/tools"
	"github.com/applyo/prospector/internal/verify"
	"github.com/applyo/prospector/pkg/log"
)

// Engine is the one generic implementation behind every agent endpoint.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	catalog   *task.Catalog
	agent     agent.Agent
	toolsets  map[string]*tools.Registry
	companies *cache.Companies
	verifier  *verify.Pass
	maxRounds int
	flightTTL time.Duration
	inflight  singleflight.Group
}

// DefaultFlightTimeout bounds a generation shared by concurrent callers.
const DefaultFlightTimeout = 5 * time.Minute

type Option func(*Engine)

// WithCompanyCache enables the short-circuit for kinds with a cache policy.
func WithCompanyCache(c *cache.Companies) Option {
	return func(e *Engine) { e.companies = c }
}

// WithVerifier sets the pass used by kinds with a verify policy.
func WithVerifier(p *verify.Pass) Option {
	return func(e *Engine) { e.verifier = p }
}

// WithMaxRounds replaces every kind's round budget when n > 0.
func WithMaxRounds(n int) Option {
	return func(e *Engine) { e.maxRounds = n }
}

// WithFlightTimeout bounds a shared generation once it is detached from the
// caller that started it.
func WithFlightTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.flightTTL = d
		}
	}
}

// NewEngine checks every kind against the registry and its own template.
func NewEngine(catalog *task.Catalog, ag agent.Agent, registry *tools.Registry, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog:  catalog,
		agent:    ag,
		toolsets:  make(map[string]*tools.Registry),
		flightTTL: DefaultFlightTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}

	for _, spec := range catalog.List() {
		if err := prompt.Check(spec); err != nil {
			return nil, err
		}
		subset, err := registry.Subset(spec.Tools)
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", spec.Name, err)
		}
		e.toolsets[spec.Name] = subset
		if spec.Verify != nil && e.verifier == nil {
			return nil, fmt.Errorf("kind %s needs a verifier", spec.Name)
		}
	}
	return e, nil
}

// Kinds lists the task kinds the engine serves.
func (e *Engine) Kinds() []*task.Spec {
	return e.catalog.List()
}

// Run executes one task. Invalid input and unknown kinds are returned as
// errors before any generation; every other outcome is an envelope.
func (e *Engine) Run(ctx context.Context, kind string, inputs task.Inputs) (*Envelope, error) {
	spec, ok := e.catalog.Get(kind)
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "unknown agent %q", kind)
	}
	t, err := task.New(spec, inputs)
	if err != nil {
		return nil, err
	}

	if spec.Cache == nil {
		return e.generate(ctx, t), nil
	}

	key, _ := t.Inputs.Lookup(spec.Cache.Input)
	if hit, ok := e.companies.Lookup(ctx, key); ok {
		log.Info("Agent %s: cache hit for %q (%d people)", spec.Name, key, len(hit.People))
		return cachedEnvelope(spec.Name, hit), nil
	}

	flightKey := spec.Name + "|" + persistence.CompanyKey(key)
	// The flight outlives any single caller: each caller only stops waiting
	// when its own context ends.
	ch := e.inflight.DoChan(flightKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.flightTTL)
		defer cancel()
		return e.generate(fctx, t), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			log.Debug("Agent %s: shared in-flight result for %q", spec.Name, key)
		}
		return res.Val.(*Envelope), nil
	case <-ctx.Done():
		log.Warn("Agent %s: caller gave up waiting for %q: %v", spec.Name, key, ctx.Err())
		return &Envelope{
			Kind:    spec.Name,
			Outcome: OutcomeGenerationFailed,
			Source:  SourceGeneration,
			Fields:  emptyFields(spec.Output),
			Error:   ctx.Err().Error(),
		}, nil
	}
}

func (e *Engine) generate(ctx context.Context, t *task.Task) *Envelope {
	spec := t.Spec
	env := &Envelope{
		Kind:   spec.Name,
		Source: SourceGeneration,
		Fields: emptyFields(spec.Output),
	}

	p, err := prompt.Build(spec, t.Inputs)
	if err != nil {
		env.Outcome = OutcomeGenerationFailed
		env.Error = err.Error()
		return env
	}

	rounds := spec.Rounds
	if e.maxRounds > 0 {
		rounds = e.maxRounds
	}

	result, err := e.agent.Execute(ctx, agent.AgentRequest{
		SystemPrompt: p.System,
		UserMessage:  p.User,
		Tools:        e.toolsets[spec.Name],
		MaxRounds:    rounds,
		Temperature:  spec.Temperature,
	})
	if err != nil {
		log.Error("Agent %s: generation failed: %v", spec.Name, err)
		env.Outcome = OutcomeGenerationFailed
		env.Error = apperr.PublicMessage(err)
		return env
	}
	env.Trace = result.ToolCalls
	env.Rounds = result.Rounds
	env.Exhausted = result.Exhausted

	extracted, err := extract.Extract(result.Content, spec.Output)
	if err != nil {
		f, _ := extract.AsFailure(err)
		log.Warn("Agent %s: extraction failed after %d rounds: %v", spec.Name, result.Rounds, err)
		env.Outcome = OutcomeExtractionFailed
		env.Error = f.Reason
		env.RawText = f.RawText
		return env
	}
	env.Fields = extracted.Fields
	env.Outcome = OutcomeOK

	if spec.Verify != nil {
		candidates := extracted.Strings(spec.Verify.Field)
		report := e.verifier.Run(ctx, candidates, spec.Verify.Noun)
		env.Fields[spec.Verify.Field] = report.Kept
		env.VerificationSummary = report.Summary
		env.Verified = len(report.Kept)
		env.Total = report.Total
		if len(report.Kept) == 0 {
			env.Outcome = OutcomeNoneVerified
		}
	}

	log.Info("Agent %s finished: outcome=%s rounds=%d tool_calls=%d exhausted=%v",
		spec.Name, env.Outcome, env.Rounds, len(env.Trace), env.Exhausted)
	return env
}

func cachedEnvelope(kind string, hit *cache.Hit) *Envelope {
	people := make([]map[string]string, 0, len(hit.People))
	for _, p := range hit.People {
		people = append(people, map[string]string{"name": p.Name, "role": p.Role})
	}
	return &Envelope{
		Kind:    kind,
		Outcome: OutcomeCached,
		Source:  SourceCache,
		Fields: map[string]any{
			"company": hit.Company,
			"website": hit.Website,
			"people":  people,
		},
	}
}

// emptyFields gives every declared array an empty value so failed runs
// still carry well-formed fields.
func emptyFields(schema task.Schema) map[string]any {
	fields := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Type != task.TypeArray {
			continue
		}
		if f.Items == task.TypeObject {
			fields[f.Name] = []map[string]string{}
		} else {
			fields[f.Name] = []string{}
		}
	}
	return fields
}
