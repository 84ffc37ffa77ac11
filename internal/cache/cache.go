// Package cache provides the durable on-device store for a single owner's
// progress record. It is the fast path: the orchestrator writes through to it
// on every mutation and falls back to it whenever the remote store is
// unreachable.
package cache

import (
	"alcyxob/mindtrack-app/internal/domain"
)

// ErrNoEntry is returned by Load when no usable cached record exists. A
// record belonging to a different owner, or one that fails to decode, is
// reported as absent rather than as an error: a foreign or corrupt cache
// entry must never leak into another account's session.
var ErrNoEntry = CacheError("no cached progress")

// CacheError helps distinguish cache errors.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// Store is the Local Cache Store contract.
//
// Load with an empty ownerID returns whatever is cached, used as the
// anonymous fallback. With an ownerID it returns ErrNoEntry unless the cached
// record was saved for that same owner.
//
// Save must be fast and synchronous: callers rely on it completing before the
// process may terminate.
type Store interface {
	Load(ownerID string) (*domain.UserProgress, error)
	Save(p *domain.UserProgress, ownerID string) error
}
