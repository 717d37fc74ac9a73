// Package ratelimit paces how fast selected rows are emitted, so a large
// export does not flood a downstream consumer.
package ratelimit

import (
	"context"
	"iter"

	"golang.org/x/time/rate"
)

type Limiter struct {
	limiter *rate.Limiter
}

// New paces rowsPerSecond; 0 or negative disables pacing.
func New(rowsPerSecond float64) *Limiter {
	if rowsPerSecond <= 0 {
		return &Limiter{
			limiter: rate.NewLimiter(rate.Inf, 1),
		}
	}

	// burst of 1: the first row goes out immediately, the rest are spaced
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rowsPerSecond), 1),
	}
}

func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Limit returns rows per second, or 0 when unlimited.
func (l *Limiter) Limit() float64 {
	limit := l.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}

// Unlimited reports whether the limiter never waits.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// Throttle yields the items of seq no faster than l allows. Errors from seq
// pass through without waiting; a cancelled context ends the sequence with
// the context error.
func Throttle[T any](ctx context.Context, l *Limiter, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	if l == nil || l.Unlimited() {
		return seq
	}
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			if err := l.Wait(ctx); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
