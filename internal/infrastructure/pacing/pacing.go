// Package pacing holds the inter-item scheduling policies of a grading run.
package pacing

import (
	"context"
	"time"
)

// Interval pauses for a fixed duration after every scored item.
type Interval struct {
	delay time.Duration
}

func NewInterval(delay time.Duration) *Interval {
	if delay < 0 {
		delay = 0
	}
	return &Interval{delay: delay}
}

func (p *Interval) Pause(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// None disables pacing.
type None struct{}

func (None) Pause(ctx context.Context) error {
	return ctx.Err()
}
