package application

import (
	"sync"
	"time"
)

type breakerState struct {
	failCount     int
	windowStart   time.Time
	cooldownUntil time.Time
}

// circuitBreaker tracks windowed failure counts per provider name. State is
// shared across all symbols: provider health is a property of the upstream,
// not of any one instrument.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	cooldown  time.Duration
	states    map[string]*breakerState
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		states:    map[string]*breakerState{},
	}
}

// available reports whether the provider may be tried. A provider with no
// recorded failures is always available; a tripped one becomes available the
// moment its cooldown deadline passes. There is no probe limiting after
// cooldown: all concurrent callers may retry at once.
func (b *circuitBreaker) available(source string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[source]
	if !ok {
		return true
	}
	return !now.Before(st.cooldownUntil)
}

// recordFailure counts a failure, starting a fresh window when the previous
// one has aged out. Reaching the threshold sets (or extends) the cooldown;
// the return value reports that.
func (b *circuitBreaker) recordFailure(source string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.states[source]
	if st == nil {
		st = &breakerState{windowStart: now}
		b.states[source] = st
	}
	if now.Sub(st.windowStart) > b.window {
		st.failCount = 0
		st.windowStart = now
	}
	st.failCount++
	if st.failCount >= b.threshold {
		st.cooldownUntil = now.Add(b.cooldown)
		return true
	}
	return false
}

// recordSuccess drops the provider's state entirely; the next failure starts
// a clean window.
func (b *circuitBreaker) recordSuccess(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, source)
}
