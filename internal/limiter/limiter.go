// Package limiter paces long-running loops: the pause between scan roots and
// between deleted items.
package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next unit of work may start. Wait returns the
// context's error if it is cancelled first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval spaces calls at least every d. The first call passes immediately.
type Interval struct {
	lim *rate.Limiter
}

// NewInterval returns a pacer allowing one call per d. A non-positive d
// yields a pacer that never waits.
func NewInterval(d time.Duration) Pacer {
	if d <= 0 {
		return Noop{}
	}
	return &Interval{lim: rate.NewLimiter(rate.Every(d), 1)}
}

func (i *Interval) Wait(ctx context.Context) error {
	return i.lim.Wait(ctx)
}

// SetInterval changes the spacing of an existing pacer.
func (i *Interval) SetInterval(d time.Duration) {
	if d <= 0 {
		i.lim.SetLimit(rate.Inf)
		return
	}
	i.lim.SetLimit(rate.Every(d))
}

// Noop never waits. It still honours cancellation so loops stop promptly.
type Noop struct{}

func (Noop) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Millis converts a millisecond config value to a pacer.
func Millis(ms int) Pacer {
	return NewInterval(time.Duration(ms) * time.Millisecond)
}
