// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package retry runs an operation a bounded number of times with a fixed
// delay, letting the operation decide after each attempt whether another one
// is worthwhile.
package retry

import (
	"context"
	"time"

	"github.com/tomtom215/doipub/internal/logging"
)

// Decision is what an attempt asks the loop to do next.
type Decision int

const (
	// Done stops with this attempt's result as the final one.
	Done Decision = iota
	// Again asks for another attempt if the budget allows.
	Again
	// Stop ends the loop immediately; the failure is definitive.
	Stop
)

// Policy bounds the loop. Attempts below 1 are treated as 1.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// WithRetries builds a policy of retries+1 total attempts.
func WithRetries(retries int, delay time.Duration) Policy {
	if retries < 0 {
		retries = 0
	}
	return Policy{Attempts: retries + 1, Delay: delay}
}

// Op is one attempt. attempt starts at 1.
type Op[T any] func(ctx context.Context, attempt int) (T, Decision)

// Run executes op until it returns Done or Stop or the attempt budget is spent,
// sleeping p.Delay between attempts. It returns the last attempt's result and
// the number of attempts made.
//
// The error is non-nil only when ctx ends during a delay; the result is then
// the last one obtained before cancellation.
func Run[T any](ctx context.Context, p Policy, op Op[T]) (T, int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last T
	for attempt := 1; ; attempt++ {
		result, decision := op(ctx, attempt)
		last = result
		if decision != Again || attempt >= attempts {
			return last, attempt, nil
		}

		logging.Debug().Int("attempt", attempt).Int("max_attempts", attempts).Dur("delay", p.Delay).Msg("Retry attempt")
		if err := sleep(ctx, p.Delay); err != nil {
			return last, attempt, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
