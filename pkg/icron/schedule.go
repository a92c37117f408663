// Package icron schedules periodic maintenance jobs with robfig/cron.
package icron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/applyo/prospector/pkg/log"
)

// Expressions take an optional leading seconds field, so both
// "0 0 * * *" and "0 0 0 * * *" mean midnight.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// New returns a cron runner that understands the same expressions as GetTriggerInfo.
// A run still in progress makes the next tick skip.
func New() *cron.Cron {
	return cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
}

// Validate reports whether expr parses.
func Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// GetTriggerInfo returns the next trigger after refTime and the most recent
// one at or before it, searching back up to a year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
	}

	for i := range 366 * 24 {
		from := refTime.Add(-time.Duration(i+1) * time.Hour)
		candidate := schedule.Next(from)
		if !candidate.After(refTime) {
			// walk forward to the latest trigger not after refTime
			for next := schedule.Next(candidate); !next.After(refTime); next = schedule.Next(candidate) {
				candidate = next
			}
			info.Last = candidate
			break
		}
	}

	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)
	return info, nil
}

// Schedule registers job under name. Each run gets ctx and is followed by a
// log line with the next trigger time.
func Schedule(ctx context.Context, c *cron.Cron, name, expr string, job func(context.Context) error) error {
	_, err := c.AddFunc(expr, func() {
		started := time.Now()
		if err := job(ctx); err != nil {
			log.Error("Cron %s failed after %v: %v", name, time.Since(started), err)
		}
		if info, err := GetTriggerInfo(expr, time.Now()); err == nil {
			log.Debug("Cron %s: next run at %s", name, info.Next.Format(time.RFC3339))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	info, err := GetTriggerInfo(expr, time.Now())
	if err != nil {
		return err
	}
	log.Info("Cron %s scheduled (%s), first run at %s", name, expr, info.Next.Format(time.RFC3339))
	return nil
}
