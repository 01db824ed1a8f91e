// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
)

// UserLookup resolves a CKAN token to its account.
type UserLookup interface {
	ShowUser(ctx context.Context, credential string) (*models.User, error)
}

// Authenticator resolves credentials to callers.
type Authenticator struct {
	lookup UserLookup
	cache  *gocache.Cache
}

// NewAuthenticator creates an authenticator. A ttl of zero disables caching.
func NewAuthenticator(lookup UserLookup, ttl time.Duration) *Authenticator {
	a := &Authenticator{lookup: lookup}
	if ttl > 0 {
		a.cache = gocache.New(ttl, 2*ttl)
	}
	return a
}

// Authenticate returns the caller owning credential.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*models.Caller, error) {
	credential = normalizeCredential(credential)
	if credential == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "No Authorization header present")
	}

	key := Fingerprint(credential)
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			metrics.RecordIdentityCache(true)
			u := v.(models.User)
			return &models.Caller{User: u, Credential: credential}, nil
		}
		metrics.RecordIdentityCache(false)
	}

	user, err := a.lookup.ShowUser(ctx, credential)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("token", key[:12]).Msg("Failed to resolve caller")
		switch apperr.KindOf(err) {
		case apperr.KindNotFound:
			return nil, apperr.Wrap(err, apperr.KindNotFound, "User not found")
		case apperr.KindForbidden, apperr.KindUnauthorized:
			return nil, apperr.Wrap(err, apperr.KindUnauthorized, "Invalid credentials")
		case apperr.KindUpstreamUnavailable:
			return nil, err
		default:
			return nil, apperr.Wrap(err, apperr.KindInternal, "Could not authenticate user")
		}
	}

	if a.cache != nil {
		a.cache.SetDefault(key, *user)
	}
	return &models.Caller{User: *user, Credential: credential}, nil
}

// Invalidate drops a cached identity.
func (a *Authenticator) Invalidate(credential string) {
	if a.cache != nil {
		a.cache.Delete(Fingerprint(normalizeCredential(credential)))
	}
}

// Fingerprint is the hex SHA-256 of a credential.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

func normalizeCredential(credential string) string {
	credential = strings.TrimSpace(credential)
	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		credential = strings.TrimSpace(credential[7:])
	}
	return credential
}
