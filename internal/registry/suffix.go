// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
)

// SuffixNumber extracts the numeric tail after the last "." of a suffix that
// starts with tag. ok is false for other tags and non-numeric tails.
func SuffixNumber(suffix, tag string) (n int, ok bool) {
	if !strings.HasPrefix(suffix, tag) {
		return 0, false
	}
	tail := suffix
	if i := strings.LastIndex(suffix, "."); i >= 0 {
		tail = suffix[i+1:]
	}
	if tail == "" {
		return 0, false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextFromSuffixes computes the next suffix number from existing suffixes.
func NextFromSuffixes(suffixes []string, tag string) int {
	max := 0
	for _, s := range suffixes {
		if n, ok := SuffixNumber(s, tag); ok && n > max {
			max = n
		}
	}
	return max + 1
}

// FormatSuffix builds the suffix for allocation number n.
func FormatSuffix(tag string, n int) string {
	return tag + strconv.Itoa(n)
}

// Mint allocates the next free suffix under rec.Prefix for rec.Tag and
// creates the record. When a concurrent mint takes the same suffix first the
// maximum is re-read and allocation retried, at most conflictRetries times.
func Mint(ctx context.Context, s Store, rec models.DoiRecord, conflictRetries int) (*models.DoiRecord, error) {
	rec.ApplyDefaults()
	if conflictRetries < 0 {
		conflictRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		n, err := s.NextSuffixNumber(ctx, rec.Prefix, rec.Tag)
		if err != nil {
			return nil, fmt.Errorf("failed to compute next suffix: %w", err)
		}
		rec.Suffix = FormatSuffix(rec.Tag, n)

		created, err := s.Create(ctx, &rec)
		if err == nil {
			return created, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			return nil, err
		}

		lastErr = err
		metrics.RegistrySuffixConflicts.Inc()
		logging.Ctx(ctx).Warn().
			Str("doi", rec.DOI()).
			Int("attempt", attempt+1).
			Msg("Suffix taken by a concurrent mint, re-allocating")
	}
	return nil, apperr.Wrap(lastErr, apperr.KindConflict,
		fmt.Sprintf("could not allocate a suffix under %s after %d attempts", rec.Prefix, conflictRetries+1))
}

// observe records a store operation in metrics.
func observe(driver, op string, start time.Time, err error) {
	if apperr.KindOf(err) == apperr.KindNotFound || apperr.KindOf(err) == apperr.KindConflict {
		err = nil
	}
	metrics.RecordRegistryOperation(driver, op, time.Since(start), err)
}
