// Package verify runs the post-extraction verification pass.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/applyo/prospector/pkg/log"
)

const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"

	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 16
)

// Verifier returns an external verdict for one candidate.
type Verifier interface {
	Verify(ctx context.Context, value string) (string, error)
}

type Verdict struct {
	Value  string `json:"value"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

// Report is the outcome of one pass. Kept follows the candidates' order.
type Report struct {
	Kept     []string
	Total    int
	Verdicts []Verdict
	Summary  string
}

type Pass struct {
	verifier    Verifier
	cache       *expirable.LRU[string, string]
	timeout     time.Duration
	concurrency int
}

type Option func(*Pass)

// WithCache remembers successful verdicts for ttl. size <= 0 disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(p *Pass) {
		if size > 0 {
			p.cache = expirable.NewLRU[string, string](size, nil, ttl)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Pass) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(p *Pass) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewPass(verifier Verifier, opts ...Option) *Pass {
	p := &Pass{
		verifier:    verifier,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run verifies every candidate concurrently. A failed or timed out call
// counts as invalid. Only candidates with status "valid" are kept.
func (p *Pass) Run(ctx context.Context, candidates []string, noun string) Report {
	verdicts := make([]Verdict, len(candidates))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, value := range candidates {
		g.Go(func() error {
			verdicts[i] = p.verifyOne(ctx, value)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]string, 0, len(candidates))
	for _, v := range verdicts {
		if v.Status == StatusValid {
			kept = append(kept, v.Value)
		}
	}

	return Report{
		Kept:     kept,
		Total:    len(candidates),
		Verdicts: verdicts,
		Summary:  Summary(len(kept), len(candidates), noun),
	}
}

// Summary formats "<kept> out of <total> <noun> verified".
func Summary(kept, total int, noun string) string {
	return fmt.Sprintf("%d out of %d %s verified", kept, total, noun)
}

func (p *Pass) verifyOne(ctx context.Context, value string) Verdict {
	key := strings.ToLower(strings.TrimSpace(value))
	if p.cache != nil {
		if status, ok := p.cache.Get(key); ok {
			return Verdict{Value: value, Status: status, Cached: true}
		}
	}

	vctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	status, err := p.verifier.Verify(vctx, value)
	if err != nil {
		log.Warn("Verification of %s failed: %v", value, err)
		return Verdict{Value: value, Status: StatusInvalid, Error: err.Error()}
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if p.cache != nil {
		p.cache.Add(key, status)
	}
	log.Debug("Verification of %s: %s", value, status)
	return Verdict{Value: value, Status: status}
}
