// Package ratelimit implements per-client sliding-window admission control.
//
// WHY A SLIDING WINDOW (NOT FIXED BUCKETS)?
// A fixed-bucket counter resets at interval boundaries, so a client can burst
// at the end of one bucket and the start of the next, doubling its effective
// rate. A sliding window recomputes eligibility relative to "now" on every
// check: a request is counted against the budget for exactly Window seconds,
// no matter when it arrived. There is no boundary to straddle.
//
// Each Limiter owns its own client table — the run and install endpoints get
// independent Limiters and never share state.
package ratelimit

import (
	"sync"
	"time"
)

// Policy is an immutable admission budget: at most MaxRequests per client
// within any sliding window of length Window.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// WindowSeconds returns the window length in whole seconds, for rejection
// messages.
func (p Policy) WindowSeconds() int {
	return int(p.Window / time.Second)
}

// RunPolicy is the admission budget for code execution.
func RunPolicy() Policy {
	return Policy{MaxRequests: 20, Window: 60 * time.Second}
}

// InstallPolicy is the stricter budget for package installation. Installs get
// a longer deadline than runs, so the compensating control is a tighter rate.
func InstallPolicy() Policy {
	return Policy{MaxRequests: 10, Window: 300 * time.Second}
}

// compactEvery controls how often the limiter sweeps out clients whose entire
// window has expired. Without the sweep the client table grows forever (one
// entry per address ever seen); with it, memory is bounded by the number of
// clients active within the last window.
const compactEvery = 256

// Limiter tracks request timestamps per client for a single Policy.
//
// CONCURRENCY:
// The whole read-prune-append sequence for a client runs under one mutex.
// If two requests from the same client race for the last slot, exactly one
// observes a free slot and records itself; the other sees a full window.
// Without the lock, both could read the pre-append count and both be admitted.
type Limiter struct {
	policy Policy

	mu      sync.Mutex
	clients map[string][]time.Time
	admits  int // admissions since the last compaction sweep

	now func() time.Time // injectable clock, overridden in tests
}

// New creates a Limiter for the given policy.
func New(policy Policy) *Limiter {
	return &Limiter{
		policy:  policy,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Policy returns the limiter's admission policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow reports whether clientID may proceed under the policy. An admitted
// request is recorded against the client's window; a rejected one is not —
// being rate limited must not push the window further out.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.policy.Window)

	// Prune in place: keep only timestamps still inside the window.
	window := l.clients[clientID]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.policy.MaxRequests {
		l.clients[clientID] = kept
		return false
	}

	l.clients[clientID] = append(kept, now)

	l.admits++
	if l.admits >= compactEvery {
		l.admits = 0
		l.compact(cutoff)
	}
	return true
}

// compact removes clients whose most recent request fell out of the window.
// Called with l.mu held.
func (l *Limiter) compact(cutoff time.Time) {
	for id, window := range l.clients {
		if len(window) == 0 || !window[len(window)-1].After(cutoff) {
			delete(l.clients, id)
		}
	}
}
