package icron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	t.Parallel()

	ref := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expr     string
		wantNext time.Time
		wantLast time.Time
	}{
		{
			name:     "daily five fields",
			expr:     "0 0 * * *",
			wantNext: time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC),
			wantLast: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "hourly with seconds",
			expr:     "0 0 * * * *",
			wantNext: time.Date(2026, 5, 10, 16, 0, 0, 0, time.UTC),
			wantLast: time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC),
		},
		{
			name:     "every fifteen minutes",
			expr:     "*/15 * * * *",
			wantNext: time.Date(2026, 5, 10, 15, 45, 0, 0, time.UTC),
			wantLast: ref,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := GetTriggerInfo(tt.expr, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, info.Next)
			assert.Equal(t, tt.wantLast, info.Last)
			assert.Equal(t, tt.wantNext.Sub(ref), info.TimeUntilNext)
			assert.Equal(t, ref.Sub(tt.wantLast), info.TimeSinceLast)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate("@hourly"))
	assert.Error(t, Validate("every tuesday"))

	_, err := GetTriggerInfo("nope", time.Now())
	assert.Error(t, err)
}

func TestSchedule_RunsJob(t *testing.T) {
	t.Parallel()

	c := New()
	ran := make(chan struct{}, 1)
	err := Schedule(context.Background(), c, "probe", "* * * * * *", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("logged, not fatal")
	})
	require.NoError(t, err)

	c.Start()
	defer c.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	assert.Error(t, Schedule(context.Background(), c, "bad", "nope", func(context.Context) error { return nil }))
}
