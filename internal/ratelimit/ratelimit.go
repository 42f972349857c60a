// Package ratelimit implements sliding-window request limiting keyed by
// connecting identity, pre-auth source address, or authentication
// failures, plus a standing per-IP connection-rate limiter backed by
// golang.org/x/time/rate (§4.2).
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls window sizes and hard limits.
type Config struct {
	ShortWindow     time.Duration // 1s window
	ShortLimit      int
	LongWindow      time.Duration // 60s window
	LongLimit       int
	AuthBackoffBase time.Duration // 30s
	AuthBackoffMax  time.Duration // 1h
	StaleAfter      time.Duration // 60s cleanup horizon
}

// DefaultConfig matches the hard defaults called out in §4.2.
func DefaultConfig() Config {
	return Config{
		ShortWindow:     time.Second,
		ShortLimit:      40,
		LongWindow:      60 * time.Second,
		LongLimit:       600,
		AuthBackoffBase: 30 * time.Second,
		AuthBackoffMax:  time.Hour,
		StaleAfter:      60 * time.Second,
	}
}

type window struct {
	start time.Time
	count int
}

type entry struct {
	mu          sync.Mutex
	short       window
	long        window
	lastSeen    time.Time
	authFails   int
	blockedUntil time.Time
}

// Limiter is a sliding-window limiter keyed by an arbitrary identity
// string (a PlayerID, a source address, or any other pre-auth key).
type Limiter struct {
	cfg      Config
	entries  sync.Map // map[string]*entry
	stopOnce sync.Once
	stopCh   chan struct{}
	nowFn    func() time.Time
}

// New starts a Limiter and its background cleanup pass.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, stopCh: make(chan struct{}), nowFn: time.Now}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) now() time.Time { return l.nowFn() }

// Stop halts the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) get(key string) *entry {
	if v, ok := l.entries.Load(key); ok {
		return v.(*entry)
	}
	e := &entry{lastSeen: l.now()}
	actual, _ := l.entries.LoadOrStore(key, e)
	return actual.(*entry)
}

// Allow reports whether a request keyed by key is within both the short
// and long sliding windows, and is not serving an auth-failure backoff.
func (l *Limiter) Allow(key string) bool {
	e := l.get(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	e.lastSeen = now

	if now.Before(e.blockedUntil) {
		return false
	}

	if now.Sub(e.short.start) >= l.cfg.ShortWindow {
		e.short = window{start: now, count: 0}
	}
	if now.Sub(e.long.start) >= l.cfg.LongWindow {
		e.long = window{start: now, count: 0}
	}

	if e.short.count >= l.cfg.ShortLimit || e.long.count >= l.cfg.LongLimit {
		return false
	}

	e.short.count++
	e.long.count++
	return true
}

// RecordAuthFailure applies exponential backoff to key: 30s, 60s, 120s,
// ... capped at AuthBackoffMax, doubling per consecutive failure.
func (l *Limiter) RecordAuthFailure(key string) {
	e := l.get(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	e.lastSeen = now
	e.authFails++

	backoff := l.cfg.AuthBackoffBase
	for i := 1; i < e.authFails; i++ {
		backoff *= 2
		if backoff >= l.cfg.AuthBackoffMax {
			backoff = l.cfg.AuthBackoffMax
			break
		}
	}
	e.blockedUntil = now.Add(backoff)
}

// RecordAuthSuccess clears a key's failure count after a successful
// authentication.
func (l *Limiter) RecordAuthSuccess(key string) {
	e := l.get(key)
	e.mu.Lock()
	e.authFails = 0
	e.blockedUntil = time.Time{}
	e.mu.Unlock()
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.StaleAfter)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := l.now().Add(-l.cfg.StaleAfter)
	l.entries.Range(func(k, v interface{}) bool {
		e := v.(*entry)
		e.mu.Lock()
		stale := e.lastSeen.Before(cutoff) && e.blockedUntil.IsZero()
		e.mu.Unlock()
		if stale {
			l.entries.Delete(k)
		}
		return true
	})
}

// ConnectionLimiter caps new-connection acceptance rate per source
// address using a token bucket, independent of the per-identity sliding
// windows above (new connections have no identity yet).
type ConnectionLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewConnectionLimiter builds a per-address token-bucket limiter.
func NewConnectionLimiter(rps float64, burst int) *ConnectionLimiter {
	return &ConnectionLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a new connection from addr may proceed.
func (c *ConnectionLimiter) Allow(addr string) bool {
	c.mu.Lock()
	lim, ok := c.limiters[addr]
	if !ok {
		lim = rate.NewLimiter(c.rps, c.burst)
		c.limiters[addr] = lim
	}
	c.mu.Unlock()
	return lim.Allow()
}
