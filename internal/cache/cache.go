// Package cache is the TTL cache facade between callers and the backend API.
//
// Entries live in a kvstore.Store as JSON envelopes carrying the payload and
// the time it was written. Each Domain has a fixed time-to-live; an entry
// older than that is treated as absent and removed the first time it is read.
// There is no background sweep.
//
// Storage failures never reach the caller. A failed read is a miss and a
// failed write is dropped; both are logged. A value that cannot be decoded is
// removed and reported as a miss.
package cache

import (
	"encoding/json"
	"time"

	"github.com/johnrirwin/youthinvest/internal/kvstore"
	"github.com/johnrirwin/youthinvest/internal/logging"
)

// Cache is constructed once at startup and shared by every caller.
// It holds no lock of its own; the store must be safe for concurrent use.
type Cache struct {
	store  kvstore.Store
	policy Policy
	prefix string
	now    func() time.Time
	logger *logging.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for hits, misses and swallowed errors.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Cache) {
		c.logger = logger.With(logging.WithField("component", "cache"))
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache over store. Domains missing from policy use their
// DefaultPolicy TTL.
func New(store kvstore.Store, policy Policy, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		policy: policy.withDefaults(),
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the time-to-live configured for d.
func (c *Cache) TTL(d Domain) time.Duration {
	return c.policy[d]
}

// Key returns the store key for d.
func (c *Cache) Key(d Domain) string {
	return c.prefix + string(d)
}

// Get returns the raw payload stored for d when it is present and fresh.
// An expired entry is removed as a side effect.
func (c *Cache) Get(d Domain) (json.RawMessage, bool) {
	ttl, ok := c.policy[d]
	if !ok {
		c.logger.Warn("Cache read for unknown domain", logging.WithField("domain", string(d)))
		return nil, false
	}

	e, ok := c.read(c.Key(d), true)
	if !ok {
		c.logger.Debug("Cache miss", logging.WithField("domain", string(d)))
		return nil, false
	}

	now := c.now()
	if e.expired(now, ttl) {
		c.logger.Debug("Cache entry expired", logging.WithFields(map[string]interface{}{
			"domain": string(d),
			"ageMs":  e.age(now).Milliseconds(),
		}))
		c.remove(c.Key(d))
		return nil, false
	}

	if e.empty() {
		return nil, false
	}

	c.logger.Debug("Cache hit", logging.WithField("domain", string(d)))
	return e.Data, true
}

// Lookup decodes the fresh payload for d into T. A payload that does not
// decode into T is discarded.
func Lookup[T any](c *Cache, d Domain) (T, bool) {
	var v T
	raw, ok := c.Get(d)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("Discarding undecodable cache payload", logging.WithFields(map[string]interface{}{
			"domain": string(d),
			"error":  err.Error(),
		}))
		c.remove(c.Key(d))
		var zero T
		return zero, false
	}
	return v, true
}

// Set stores payload for d stamped with the current time, replacing any
// existing entry. It is best effort.
func (c *Cache) Set(d Domain, payload interface{}) {
	if _, ok := c.policy[d]; !ok {
		c.logger.Warn("Cache write for unknown domain", logging.WithField("domain", string(d)))
		return
	}
	c.write(c.Key(d), payload)
}

// Invalidate removes the entries for the given domains.
func (c *Cache) Invalidate(domains ...Domain) {
	for _, d := range domains {
		c.remove(c.Key(d))
	}
	if len(domains) > 0 {
		c.logger.Debug("Cache invalidated", logging.WithField("domains", domains))
	}
}

// InvalidateOnMutation removes the entries an investment makes stale:
// projects, portfolio and user balance. Call it only after the mutation
// succeeded.
func (c *Cache) InvalidateOnMutation() {
	c.Invalidate(MutationDomains()...)
}

// Clear removes every domain's entry and the last-sync marker.
func (c *Cache) Clear() {
	for _, d := range Domains() {
		c.remove(c.Key(d))
	}
	c.remove(c.prefix + lastSync)
	c.logger.Info("Cache cleared")
}

// Status reports what is stored for every domain. It never evicts; an
// expired entry is reported with its original timestamp.
func (c *Cache) Status() StatusReport {
	now := c.now()
	report := StatusReport{Entries: make(map[Domain]EntryStatus, len(Domains()))}
	for _, d := range Domains() {
		report.Entries[d] = c.status(c.Key(d), now)
	}
	report.LastSync = c.status(c.prefix+lastSync, now)
	return report
}

// LastSync returns when a read-through fetch last succeeded.
func (c *Cache) LastSync() (time.Time, bool) {
	e, ok := c.read(c.prefix+lastSync, false)
	if !ok {
		return time.Time{}, false
	}
	return e.storedAt(), true
}

func (c *Cache) markSynced() {
	c.write(c.prefix+lastSync, c.now().UnixMilli())
}

func (c *Cache) status(key string, now time.Time) EntryStatus {
	e, ok := c.read(key, false)
	if !ok {
		return EntryStatus{}
	}
	return EntryStatus{Exists: true, StoredAt: e.storedAt(), Age: e.age(now)}
}

// read loads and decodes the envelope at key. Corrupt envelopes are removed
// only when discardCorrupt is set; diagnostics never mutate the store.
func (c *Cache) read(key string, discardCorrupt bool) (entry, bool) {
	raw, found, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("Cache store read failed", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
		return entry{}, false
	}
	if !found {
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		if discardCorrupt {
			c.logger.Warn("Discarding malformed cache entry", logging.WithFields(map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			}))
			c.remove(key)
		}
		return entry{}, false
	}
	return e, true
}

func (c *Cache) write(key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Cache payload is not serializable", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
		return
	}

	raw, err := json.Marshal(entry{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return
	}

	if err := c.store.Set(key, string(raw)); err != nil {
		c.logger.Warn("Cache store write failed", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
	}
}

func (c *Cache) remove(key string) {
	if err := c.store.Remove(key); err != nil {
		c.logger.Warn("Cache store remove failed", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
	}
}
