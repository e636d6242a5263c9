package turboclient

import (
	"sync"
	"time"
)

// circuitState is the breaker's three-state machine (spec.md §4.1):
//
//	CLOSED --failure×N--> OPEN --deadline elapsed--> HALF-OPEN --success--> CLOSED
//	                                                         \--failure--> OPEN
//
// Shape grounded on
// jinterlante1206-AleutianLocal/services/trace/agent/mcts/circuit_breaker.go's
// CircuitState/CircuitBreakerConfig, adapted to the single-client, per-call
// scope §4.1 and §5 (Concurrency) describe: a client is only ever used by one
// caller for the duration of one logical call, so the breaker needs no
// half-open concurrency cap.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker tracks consecutive failures for one Client. It is not
// exported: callers only observe it through Client.Do's returned errors.
type circuitBreaker struct {
	mu               sync.Mutex
	threshold        int
	recovery         time.Duration
	consecutiveFails int
	openUntil        time.Time
	state            circuitState
}

func newCircuitBreaker(threshold int, recovery time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if recovery <= 0 {
		recovery = 30 * time.Second
	}
	return &circuitBreaker{threshold: threshold, recovery: recovery}
}

// allow reports whether a call may proceed, and if not, how much longer the
// caller must wait. A call on an OPEN breaker past its deadline is admitted
// as the HALF-OPEN probe.
func (b *circuitBreaker) allow(now time.Time) (ok bool, remaining time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != circuitOpen {
		return true, 0
	}
	if now.Before(b.openUntil) {
		return false, b.openUntil.Sub(now)
	}
	// Deadline elapsed: admit the very next call as the half-open probe.
	b.state = circuitHalfOpen
	return true, 0
}

// recordSuccess closes the breaker and resets the failure counter.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	b.state = circuitClosed
}

// recordFailure increments the failure counter and opens the breaker once
// the threshold is reached (or immediately, if the probe in HALF-OPEN
// failed).
func (b *circuitBreaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == circuitHalfOpen {
		b.state = circuitOpen
		b.openUntil = now.Add(b.recovery)
		return
	}
	b.consecutiveFails++
	if b.consecutiveFails >= b.threshold {
		b.state = circuitOpen
		b.openUntil = now.Add(b.recovery)
	}
}

// snapshot returns the current state for metrics/introspection.
func (b *circuitBreaker) snapshot() circuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
