package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sync"
	"time"

	"github.com/nao1215/scriptorium/internal/model"
)

// Key derives the cache key for one execution from the script name, the
// argument vector, and the exact input bytes. Every chunk is
// length-prefixed and the argument count is hashed too, so crafted
// input bytes cannot mimic an argument boundary.
func Key(name string, args []string, input []byte) string {
	h := sha256.New()

	writeChunk(h, []byte(name))

	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(args)))
	h.Write(count[:])
	for _, arg := range args {
		writeChunk(h, []byte(arg))
	}

	writeChunk(h, input)
	return hex.EncodeToString(h.Sum(nil))
}

// writeChunk hashes an 8-byte big-endian length followed by the bytes.
func writeChunk(h hash.Hash, p []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
	h.Write(lenBuf[:])
	h.Write(p)
}

// entry is one stored result together with the validation data needed
// to decide whether it may still be served.
type entry struct {
	result model.ScriptResult
	// modTime is the script's modification time when the result was produced.
	modTime time.Time
	// storedAt is when the entry was written, per the cache clock.
	storedAt time.Time
}

// Cache is a concurrency-safe in-memory result cache with a fixed TTL.
// A TTL of zero or less disables it entirely.
type Cache struct {
	ttl time.Duration
	// now returns the current time. Tests replace it via WithNow.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithNow replaces the clock used for entry age decisions. Tests use it
// to step time deterministically.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache whose entries expire after ttl. A ttl of zero or
// less yields a cache that stores nothing.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache) Enabled() bool {
	return c.ttl > 0
}

// Get returns the stored result for key if the entry exists, was
// produced from a script with the same modification time, and has not
// outlived the TTL. Entries failing either check are evicted on the
// spot.
func (c *Cache) Get(key string, modTime time.Time) (model.ScriptResult, bool) {
	if !c.Enabled() {
		return model.ScriptResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return model.ScriptResult{}, false
	}
	if !e.modTime.Equal(modTime) || c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return model.ScriptResult{}, false
	}
	return e.result, true
}

// Put stores a result under key, remembering the script's modification
// time for later validation. It is a no-op when the cache is disabled.
func (c *Cache) Put(key string, modTime time.Time, result model.ScriptResult) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		result:   result,
		modTime:  modTime,
		storedAt: c.now(),
	}
}

// Sweep drops entries whose TTL has expired and returns how many were
// removed. The background rescan loop calls it so entries for deleted
// scripts do not linger until the next Get.
func (c *Cache) Sweep() int {
	if !c.Enabled() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.now().Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
