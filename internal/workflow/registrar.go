// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package workflow

import (
	"context"

	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/retry"
)

// callRegistrar runs call under the retry policy. Duplicate rejections,
// internal and conversion failures stop the loop at once. It returns the last result and
// the number of attempts.
func (o *Orchestrator) callRegistrar(ctx context.Context, op, doi string, call func(context.Context) datacite.Result) (datacite.Result, int) {
	policy := retry.WithRetries(o.settings.Retries, o.settings.RetryDelay)

	result, attempts, err := retry.Run(ctx, policy, func(ctx context.Context, attempt int) (datacite.Result, retry.Decision) {
		r := call(ctx)
		f, failed := r.(datacite.Failure)
		if !failed {
			return r, retry.Done
		}
		log := logging.Ctx(ctx).Warn().
			Str("operation", op).
			Str("doi", doi).
			Int("attempt", attempt).
			Int("status", f.Status).
			Str("kind", string(f.Kind)).
			Str("error", f.Message())
		if !f.Retryable() {
			log.Msg("Registrar failure is definitive, not retrying")
			return r, retry.Stop
		}
		log.Msg("Registrar call failed")
		return r, retry.Again
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Str("doi", doi).
			Msg("Retry loop interrupted by cancellation")
	}
	metrics.RecordRegistrarAttempts(op, attempts)
	return result, attempts
}
