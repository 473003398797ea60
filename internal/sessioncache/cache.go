// Package sessioncache keeps authenticated sessions under opaque tokens so
// that callers don't have to log in on every request.
package sessioncache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"elms-extractor/internal/components/assert"
	"elms-extractor/internal/components/chrono"
	"elms-extractor/internal/components/telemetry"

	"github.com/mazen160/go-random"
)

const (
	report_cache_cleanup = "cleanup"
	report_cache_size    = "size"
)

// token length in characters, 32 alphanumerics is well over 128 bits
const tokenLength = 32

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionUnknown = fmt.Errorf("%w: unknown token", ErrInvalidSession)
	ErrSessionExpired = fmt.Errorf("%w: session expired, please login again", ErrInvalidSession)
)

type entry[S any] struct {
	expiresAt time.Time
	session   S
}

// Cache maps tokens to sessions, an entry expires ttl after it was last
// created or touched. Every method takes the same lock.
type Cache[S any] struct {
	ttl   time.Duration
	time  chrono.TimeAPI
	tel   telemetry.API
	mutex sync.Mutex
	store map[string]entry[S]
}

func New[S any](ttl time.Duration, clock chrono.TimeAPI, tel telemetry.API) *Cache[S] {
	assert.Positive(ttl)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Cache[S]{
		ttl:   ttl,
		time:  clock,
		tel:   telemetry.NewScopedAPI("sessioncache", tel),
		store: map[string]entry[S]{},
	}
}

func (c *Cache[S]) TTL() time.Duration {
	return c.ttl
}

// Create stores the session under a new random token.
func (c *Cache[S]) Create(session S) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var token string
	for {
		t, err := random.String(tokenLength)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		if _, exists := c.store[t]; !exists {
			token = t
			break
		}
	}

	c.store[token] = entry[S]{
		expiresAt: c.time.Now().Add(c.ttl),
		session:   session,
	}
	return token, nil
}

// Get returns the session stored under the token, an expired entry is
// removed and reported as ErrSessionExpired.
func (c *Cache[S]) Get(token string) (S, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var empty S
	e, ok := c.store[token]
	if !ok {
		return empty, ErrSessionUnknown
	}
	if c.time.Now().After(e.expiresAt) {
		delete(c.store, token)
		return empty, ErrSessionExpired
	}
	return e.session, nil
}

// Touch pushes the expiry of an existing entry to now + ttl.
func (c *Cache[S]) Touch(token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.store[token]
	if !ok {
		return
	}
	e.expiresAt = c.time.Now().Add(c.ttl)
	c.store[token] = e
}

func (c *Cache[S]) Remove(token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.store, token)
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Cache[S]) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.time.Now()
	removed := 0
	for token, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, token)
			removed++
		}
	}
	c.tel.ReportCount(report_cache_size, int64(len(c.store)))
	return removed
}

func (c *Cache[S]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.store)
}

// ScheduleCleanup runs Cleanup every interval on the given cron.
func (c *Cache[S]) ScheduleCleanup(cron chrono.CronAPI, interval time.Duration) error {
	assert.Positive(interval)

	return cron.Cron(fmt.Sprintf("@every %s", interval.String()), func() {
		removed := c.Cleanup()
		if removed > 0 {
			c.tel.ReportDebug(report_cache_cleanup, removed)
		}
	})
}
