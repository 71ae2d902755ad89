// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rivaas.dev/dispatch"
)

const (
	defaultRequestsPerSecond = 100
	defaultClientTTL         = 10 * time.Minute

	// Cleanup runs at half the TTL, clamped to this range.
	minCleanupInterval = 10 * time.Second
	maxCleanupInterval = time.Minute
)

// KeyFunc derives the bucket key for a request. All requests with the
// same key share one token bucket.
type KeyFunc func(c *dispatch.Context) string

// Option configures the limiter.
type Option func(*config)

type config struct {
	rps       float64
	burst     int
	keyFunc   KeyFunc
	skipPaths map[string]bool
	logger    *slog.Logger
	onLimit   dispatch.HandlerFunc
	clientTTL time.Duration
}

// WithRequestsPerSecond sets the sustained refill rate per bucket.
// Default: 100.
func WithRequestsPerSecond(rps float64) Option {
	return func(cfg *config) {
		if rps > 0 {
			cfg.rps = rps
		}
	}
}

// WithBurst sets the bucket capacity. Default: the rounded
// requests-per-second rate, so a full second of traffic can arrive at
// once.
func WithBurst(burst int) Option {
	return func(cfg *config) {
		if burst > 0 {
			cfg.burst = burst
		}
	}
}

// WithKeyFunc sets the bucket keying strategy. Default: client IP.
func WithKeyFunc(fn KeyFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.keyFunc = fn
		}
	}
}

// WithSkipPaths exempts the given exact request paths from limiting.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithLogger sets the logger for limit events. Without it the
// request-scoped logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithOnLimitExceeded sets a custom handler for denied requests. Its
// response replaces the default 429.
func WithOnLimitExceeded(handler dispatch.HandlerFunc) Option {
	return func(cfg *config) {
		cfg.onLimit = handler
	}
}

// WithClientTTL sets how long an idle per-key bucket survives before
// the cleanup goroutine evicts it. Default: 10 minutes.
func WithClientTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		if ttl > 0 {
			cfg.clientTTL = ttl
		}
	}
}

// Limiter is the rate limiting interceptor. It is safe for concurrent
// use and for registration on multiple routers.
type Limiter struct {
	cfg   config
	limit rate.Limit

	mu      sync.Mutex
	clients map[string]*client

	stopCh   chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New returns a limiter with the given configuration. A background
// goroutine evicts idle buckets; call Stop when the limiter is
// discarded.
func New(opts ...Option) *Limiter {
	cfg := config{
		rps:       defaultRequestsPerSecond,
		keyFunc:   clientIP,
		skipPaths: make(map[string]bool),
		clientTTL: defaultClientTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.burst == 0 {
		cfg.burst = int(cfg.rps)
		if cfg.burst == 0 {
			cfg.burst = 1
		}
	}

	l := &Limiter{
		cfg:     cfg,
		limit:   rate.Limit(cfg.rps),
		clients: make(map[string]*client),
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Before takes a token from the request's bucket, short-circuiting
// with a 429 when none is available. The bucket rides in the state so
// After can report the remaining capacity.
func (l *Limiter) Before(c *dispatch.Context) (*dispatch.Response, any, error) {
	if l.cfg.skipPaths[c.Request.URL.Path] {
		return nil, nil, nil
	}

	key := l.cfg.keyFunc(c)
	lim := l.limiterFor(key)
	if lim.Allow() {
		return nil, lim, nil
	}

	l.logger(c).Warn("rate limit exceeded",
		"client", key,
		"path", c.Request.URL.Path,
	)

	if l.cfg.onLimit != nil {
		res, err := l.cfg.onLimit(c)
		if res != nil || err != nil {
			return res, nil, err
		}
	}

	res, _ := c.String(http.StatusTooManyRequests, "429 too many requests")
	res.Header.Set("Retry-After", l.retryAfter(lim))
	l.setHeaders(res, lim)
	return res, nil, nil
}

// After reports the bucket state on allowed responses.
func (l *Limiter) After(c *dispatch.Context, state any, res *dispatch.Response, err error) (*dispatch.Response, error) {
	lim, ok := state.(*rate.Limiter)
	if !ok || res == nil {
		return res, err
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	l.setHeaders(res, lim)
	return res, err
}

// Stop ends the cleanup goroutine. The limiter keeps limiting after
// Stop; idle buckets just stop being evicted.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *Limiter) logger(c *dispatch.Context) *slog.Logger {
	if l.cfg.logger != nil {
		return l.cfg.logger
	}
	return c.Logger()
}

// limiterFor returns the bucket for key, creating it on first use.
// Lookup, creation, and the access timestamp share one critical
// section so cleanup never races a bucket into eviction mid-request.
func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[key]
	if !ok {
		entry = &client{limiter: rate.NewLimiter(l.limit, l.cfg.burst)}
		l.clients[key] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

func (l *Limiter) setHeaders(res *dispatch.Response, lim *rate.Limiter) {
	remaining := int(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	res.Header.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.burst))
	res.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	res.Header.Set("X-RateLimit-Reset", strconv.FormatInt(l.resetTime(remaining), 10))
}

// retryAfter estimates the whole seconds until the bucket refills one
// token. Retry-After carries whole seconds, so the estimate is rounded
// up and never below one.
func (l *Limiter) retryAfter(lim *rate.Limiter) string {
	secs := 1.0
	if l.cfg.rps > 0 {
		if deficit := 1 - lim.Tokens(); deficit > 0 {
			secs = deficit / l.cfg.rps
		}
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(int(math.Ceil(secs)))
}

// resetTime estimates when the bucket is full again, in Unix seconds.
func (l *Limiter) resetTime(remaining int) int64 {
	missing := float64(l.cfg.burst - remaining)
	if missing <= 0 || l.cfg.rps <= 0 {
		return time.Now().Unix()
	}
	refill := time.Duration(missing / l.cfg.rps * float64(time.Second))
	return time.Now().Add(refill).Unix()
}

func (l *Limiter) cleanupLoop() {
	interval := l.cfg.clientTTL / 2
	if interval > maxCleanupInterval {
		interval = maxCleanupInterval
	}
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.removeStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, entry := range l.clients {
		if now.Sub(entry.lastAccess) > l.cfg.clientTTL {
			delete(l.clients, key)
		}
	}
}

// clientIP is the default key: the peer address without the port, with
// no proxy header trust.
func clientIP(c *dispatch.Context) string {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
