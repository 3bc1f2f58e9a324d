// Package cache implements the per-device bounded TTL cache of idempotent
// device replies. A Cache belongs to exactly one worker; nothing here is
// shared across devices, and callers outside internal/worker should never
// construct one directly.
package cache

import (
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Key identifies one cached reply: the operation name plus a hash of its
// parameters. device_id is not part of Key itself because a Cache already
// scopes one device.
type Key struct {
	Operation  string
	ParamsHash [blake2b.Size256]byte
}

// HashParams derives the params_hash component of a Key from the
// operation's serialized request parameters. blake2b-256 is used instead
// of a non-cryptographic hash so structurally different parameter sets
// cannot be made to collide.
func HashParams(params []byte) [blake2b.Size256]byte {
	return blake2b.Sum256(params)
}

// entry is the stored reply plus its insertion time.
type entry struct {
	reply      []byte
	insertedAt time.Time
}

// Cache is a bounded, TTL-expiring map of Key to serialized reply, scoped
// to a single device.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]entry
	order      []Key // insertion order, oldest first, for eviction
	ttl        time.Duration
	maxEntries int
}

// New returns an empty Cache using the default 30s TTL and 256-entry cap.
func New() *Cache {
	return NewWithLimits(30*time.Second, 256)
}

// NewWithLimits returns an empty Cache with the given TTL and capacity,
// as read from config.Core at worker construction time.
func NewWithLimits(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{entries: make(map[Key]entry), ttl: ttl, maxEntries: maxEntries}
}

// Get returns the cached reply for key if a fresh entry exists. An expired
// entry is evicted lazily on lookup and reported as a miss.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.insertedAt) > c.ttl {
		c.deleteLocked(key)
		return nil, false
	}
	return e.reply, true
}

// Put stores reply under key, evicting the oldest entry first if the
// device is already at capacity.
func (c *Cache) Put(key Key, reply []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{reply: reply, insertedAt: time.Now()}
	c.order = append(c.order, key)
}

// Purge removes every entry, used whenever a reply is classified as
// state-mutating or a Command requested bypass_cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
	c.order = nil
}

// Size reports the current entry count, for test assertions that a Purge
// actually emptied the cache.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) deleteLocked(key Key) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// String renders a Key's hash as hex, useful in log lines.
func (k Key) String() string {
	return k.Operation + ":" + hex.EncodeToString(k.ParamsHash[:8])
}
