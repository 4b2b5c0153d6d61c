// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import (
	"sync"
	"time"

	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/linked"
)

// handshakeKey identifies one in-flight or recently completed handshake.
type handshakeKey struct {
	peerAddr string
	id       uint64
}

type cacheEntry struct {
	picked    stack.StackNonce
	err       error
	expiresAt time.Time
}

// defaultMaxEntries bounds the cache's memory growth from peers that
// handshake once and never retry, so their entries don't linger until a
// TTL sweep happens to look at that key again.
const defaultMaxEntries = 4096

// HandshakeCache remembers the picked nonce (or failure) for recent
// handshakes so a retried ClientOffer with the same (peer address, id)
// replays the original ServerNonce instead of re-running the
// monomorphizer, per the spec's idempotent-retry requirement. It is safe
// for concurrent use: every lookup briefly takes the cache's exclusive
// lock, and a write for a given key blocks concurrent handshakes for that
// same key until it completes (first writer wins). Entries are kept in insertion order so
// that once the cache is full, the oldest entry is evicted to make room
// rather than growing unbounded.
type HandshakeCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.RWMutex
	entries *linked.Hashmap[handshakeKey, *cacheEntry]
	// inflight tracks keys currently being resolved so concurrent
	// handshakes for the same peer+id wait rather than race the
	// monomorphizer twice.
	inflight map[handshakeKey]chan struct{}
}

// NewHandshakeCache returns a cache whose entries live for ttl and whose
// size is capped at defaultMaxEntries.
func NewHandshakeCache(ttl time.Duration) *HandshakeCache {
	return NewHandshakeCacheWithCapacity(ttl, defaultMaxEntries)
}

// NewHandshakeCacheWithCapacity returns a cache whose entries live for ttl
// and whose size is capped at maxEntries.
func NewHandshakeCacheWithCapacity(ttl time.Duration, maxEntries int) *HandshakeCache {
	return &HandshakeCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    linked.NewHashmap[handshakeKey, *cacheEntry](),
		inflight:   make(map[handshakeKey]chan struct{}),
	}
}

// Resolve returns the cached result for (peerAddr, id) if present and
// unexpired; otherwise it computes one via compute, caches it, and
// returns it. If a concurrent call for the same key is already computing,
// Resolve blocks until that call finishes and returns its result
// (first-writer-wins, readers block until write completes).
func (c *HandshakeCache) Resolve(peerAddr string, id uint64, compute func() (stack.StackNonce, error)) (stack.StackNonce, error) {
	key := handshakeKey{peerAddr: peerAddr, id: id}

	for {
		c.mu.Lock()
		if e := c.lookupLocked(key); e != nil {
			c.mu.Unlock()
			return e.picked, e.err
		}
		if wait, ok := c.inflight[key]; ok {
			c.mu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		c.inflight[key] = done
		c.mu.Unlock()

		picked, err := compute()

		c.mu.Lock()
		if _, exists := c.entries.Get(key); !exists && c.entries.Len() >= c.maxEntries {
			if oldest, _, ok := c.entries.OldestEntry(); ok {
				c.entries.Delete(oldest)
			}
		}
		c.entries.Put(key, &cacheEntry{picked: picked, err: err, expiresAt: time.Now().Add(c.ttl)})
		delete(c.inflight, key)
		c.mu.Unlock()
		close(done)

		return picked, err
	}
}

// lookupLocked must be called with c.mu held.
func (c *HandshakeCache) lookupLocked(key handshakeKey) *cacheEntry {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		c.entries.Delete(key)
		return nil
	}
	return e
}
