// ABOUTME: Memory-based sliding window rate limiting for the auth endpoints
// ABOUTME: Per-IP tracking with periodic cleanup of idle clients
package security

import (
	"log/slog"
	"sync"
	"time"
)

// MemoryRateLimiter limits requests per client IP over a sliding window.
type MemoryRateLimiter struct {
	maxRequests int
	window      time.Duration

	mutex   sync.Mutex
	clients map[string]*clientRecord

	logger    *slog.Logger
	stopChan  chan struct{}
	isRunning bool
}

type clientRecord struct {
	requests []time.Time
	lastSeen time.Time
}

// NewMemoryRateLimiter creates a rate limiter allowing maxRequests per
// window for each client IP.
func NewMemoryRateLimiter(maxRequests int, window time.Duration, logger *slog.Logger) *MemoryRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	limiter := &MemoryRateLimiter{
		maxRequests: maxRequests,
		window:      window,
		clients:     make(map[string]*clientRecord),
		logger:      logger.With("component", "rate_limiter"),
		stopChan:    make(chan struct{}),
	}

	limiter.startCleanupRoutine()
	return limiter
}

// Allow reports whether the client may make a request right now, and records
// it when allowed.
func (rl *MemoryRateLimiter) Allow(clientIP string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientRecord{}
		rl.clients[clientIP] = client
	}

	client.requests = filterAfter(client.requests, cutoff)
	client.lastSeen = now

	if len(client.requests) >= rl.maxRequests {
		rl.logger.Warn("Rate limit exceeded",
			"client_ip", clientIP,
			"requests_in_window", len(client.requests),
			"limit", rl.maxRequests)
		return false
	}

	client.requests = append(client.requests, now)
	return true
}

// Remaining returns how many requests the client has left in the current
// window.
func (rl *MemoryRateLimiter) Remaining(clientIP string) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	client, exists := rl.clients[clientIP]
	if !exists {
		return rl.maxRequests
	}

	used := len(filterAfter(client.requests, time.Now().Add(-rl.window)))
	remaining := rl.maxRequests - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (rl *MemoryRateLimiter) startCleanupRoutine() {
	if rl.isRunning {
		return
	}
	rl.isRunning = true
	go rl.cleanupLoop()
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.performCleanup()
		case <-rl.stopChan:
			return
		}
	}
}

// performCleanup drops expired request records and forgets clients idle for
// two full windows.
func (rl *MemoryRateLimiter) performCleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	idleCutoff := now.Add(-2 * rl.window)

	for clientIP, client := range rl.clients {
		client.requests = filterAfter(client.requests, cutoff)
		if len(client.requests) == 0 && client.lastSeen.Before(idleCutoff) {
			delete(rl.clients, clientIP)
		}
	}
}

// Stop halts the cleanup routine and clears all tracked clients.
func (rl *MemoryRateLimiter) Stop() {
	if !rl.isRunning {
		return
	}

	close(rl.stopChan)
	rl.isRunning = false

	rl.mutex.Lock()
	rl.clients = make(map[string]*clientRecord)
	rl.mutex.Unlock()
}

func filterAfter(requests []time.Time, cutoff time.Time) []time.Time {
	valid := requests[:0]
	for _, ts := range requests {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}
