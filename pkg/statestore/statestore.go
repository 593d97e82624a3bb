// Package statestore implements the one shared mutable resource every flow
// handler suspends on: a TTL-bounded key/value store with at-most-once
// redemption. Both the issuance and presentation cores key it by a single
// flow identifier (a pre-authorized code, an issuer state, a request_uri
// nonce) and rely on get-then-purge being atomic with respect to that key.
package statestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ErrNotFound is returned by Get when the key is absent or its expiry has
// already passed. Callers must treat expiry as absence, not as a distinct
// error class — a flow handler that sees ErrNotFound past expires_at reacts
// identically to one that never existed.
var ErrNotFound = errors.New("statestore: key not found or expired")

// Store is the state-store capability the issuance and presentation cores
// suspend on. Implementations must provide linearizable single-key
// operations: concurrent Get/Purge calls against the same key never observe
// a value both callers believe they redeemed.
type Store interface {
	// Put stores value under key until expiresAt. A second Put on the same
	// key overwrites both value and expiry.
	Put(ctx context.Context, key string, value any, expiresAt time.Time) error

	// Get returns the value stored under key, or ErrNotFound if absent or
	// past its expiry.
	Get(ctx context.Context, key string) (any, error)

	// Purge removes key unconditionally. Purging an absent key is a no-op,
	// not an error.
	Purge(ctx context.Context, key string) error

	// Redeem performs Get and Purge as one linearizable operation against
	// key: of two concurrent Redeem calls on the same key, exactly one
	// observes the value and the other observes ErrNotFound. Flow handlers
	// use this, not Get+Purge, wherever at-most-once redemption matters
	// (consuming a pre-authorized code, a nonce, an authorization code).
	Redeem(ctx context.Context, key string) (any, error)
}

// Memory is an in-process Store backed by jellydator/ttlcache, suitable for
// a single-instance issuer or verifier and for tests. A multi-instance
// deployment needs a Store backed by shared storage (Redis, a SQL table with
// row-level locking); Memory does not coordinate across processes.
type Memory struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, any]
}

// NewMemory creates and starts a Memory store. Call Stop when done to shut
// down its background eviction loop.
func NewMemory() *Memory {
	cache := ttlcache.New[string, any]()
	go cache.Start()
	return &Memory{cache: cache}
}

func (m *Memory) Put(ctx context.Context, key string, value any, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired: store it with the smallest positive TTL so a Get
		// in the same instant still observes absence rather than a panic
		// from ttlcache on a non-positive duration.
		ttl = time.Nanosecond
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (any, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, ErrNotFound
	}
	return item.Value(), nil
}

func (m *Memory) Purge(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Redeem atomically gets and purges key under a single mutex so concurrent
// redemptions of the same key never both succeed. ttlcache's own Get/Delete
// are each internally synchronized but not jointly atomic, so the exclusion
// is enforced here rather than relied on from the cache.
func (m *Memory) Redeem(ctx context.Context, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.cache.Get(key)
	if item == nil {
		return nil, ErrNotFound
	}
	v := item.Value()
	m.cache.Delete(key)
	return v, nil
}

// Stop shuts down the background eviction goroutine.
func (m *Memory) Stop() {
	m.cache.Stop()
}

// Len reports the number of live (non-expired) entries, mainly for tests.
func (m *Memory) Len() int {
	return m.cache.Len()
}
