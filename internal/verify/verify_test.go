package verify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	mu       sync.Mutex
	statuses map[string]string
	errs     map[string]error
	delay    time.Duration
	calls    int32
	inFlight int32
	peak     int32
}

func (f *fakeVerifier) Verify(ctx context.Context, value string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[value]; ok {
		return "", err
	}
	return f.statuses[value], nil
}

func TestPass_KeepsOnlyValidInOrder(t *testing.T) {
	t.Parallel()

	v := &fakeVerifier{statuses: map[string]string{
		"jo@acme.com":    "valid",
		"j.lee@acme.com": "invalid",
		"ceo@acme.com":   "Valid",
		"info@acme.com":  "catch-all",
	}}

	report := NewPass(v).Run(context.Background(),
		[]string{"ceo@acme.com", "j.lee@acme.com", "jo@acme.com", "info@acme.com"}, "emails")

	assert.Equal(t, []string{"ceo@acme.com", "jo@acme.com"}, report.Kept)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, "2 out of 4 emails verified", report.Summary)
	require.Len(t, report.Verdicts, 4)
	assert.Equal(t, "catch-all", report.Verdicts[3].Status)
}

func TestPass_FailClosed(t *testing.T) {
	t.Parallel()

	v := &fakeVerifier{
		statuses: map[string]string{"jo@acme.com": "valid", "slow@acme.com": "valid"},
		errs:     map[string]error{"boom@acme.com": errors.New("verifier down")},
	}

	report := NewPass(v).Run(context.Background(), []string{"boom@acme.com", "jo@acme.com"}, "emails")
	assert.Equal(t, []string{"jo@acme.com"}, report.Kept)
	assert.Equal(t, StatusInvalid, report.Verdicts[0].Status)
	assert.Equal(t, "verifier down", report.Verdicts[0].Error)
	assert.Equal(t, "1 out of 2 emails verified", report.Summary)
}

func TestPass_TimeoutIsInvalid(t *testing.T) {
	t.Parallel()

	v := &fakeVerifier{statuses: map[string]string{"slow@acme.com": "valid"}, delay: time.Second}

	start := time.Now()
	report := NewPass(v, WithTimeout(20*time.Millisecond)).Run(context.Background(), []string{"slow@acme.com"}, "emails")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, report.Kept)
	assert.Equal(t, "0 out of 1 emails verified", report.Summary)
}

func TestPass_RunsConcurrently(t *testing.T) {
	t.Parallel()

	statuses := map[string]string{}
	candidates := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	for _, c := range candidates {
		statuses[c] = "valid"
	}
	v := &fakeVerifier{statuses: statuses, delay: 100 * time.Millisecond}

	start := time.Now()
	report := NewPass(v).Run(context.Background(), candidates, "emails")
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, candidates, report.Kept)
	assert.Greater(t, atomic.LoadInt32(&v.peak), int32(1))
}

func TestPass_CachesSuccessfulVerdictsOnly(t *testing.T) {
	t.Parallel()

	v := &fakeVerifier{
		statuses: map[string]string{"jo@acme.com": "valid"},
		errs:     map[string]error{"down@acme.com": errors.New("503")},
	}
	pass := NewPass(v, WithCache(10, time.Minute))

	first := pass.Run(context.Background(), []string{"jo@acme.com", "down@acme.com"}, "emails")
	second := pass.Run(context.Background(), []string{"JO@acme.com ", "down@acme.com"}, "emails")

	assert.Equal(t, []string{"jo@acme.com"}, first.Kept)
	assert.Equal(t, []string{"JO@acme.com "}, second.Kept)
	assert.True(t, second.Verdicts[0].Cached)
	assert.False(t, second.Verdicts[1].Cached)
	assert.Equal(t, int32(3), atomic.LoadInt32(&v.calls))
}

func TestPass_Empty(t *testing.T) {
	t.Parallel()

	report := NewPass(&fakeVerifier{}).Run(context.Background(), nil, "emails")
	assert.Empty(t, report.Kept)
	assert.NotNil(t, report.Kept)
	assert.Equal(t, "0 out of 0 emails verified", report.Summary)
}
