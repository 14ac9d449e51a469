package base

import (
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal state where requests are allowed.
	CircuitClosed CircuitState = iota
	// CircuitOpen is the state where requests are blocked.
	CircuitOpen
	// CircuitHalfOpen is the state where trial requests are allowed.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calls to an upstream host after repeated server failures.
// 4xx responses, including 401, count as successes: they prove the host is answering.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu                   sync.Mutex
	state                CircuitState
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailureTime      time.Time
}

// NewCircuitBreaker creates a new CircuitBreaker with the given configuration.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: *config,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// Allow checks if a request is allowed to proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) >= cb.config.Timeout {
		cb.state = CircuitHalfOpen
		cb.consecutiveSuccesses = 0
		return true
	}
	return false
}

// Record records the outcome of a request.
func (cb *CircuitBreaker) Record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.consecutiveFailures = 0
		if cb.state == CircuitClosed {
			return
		}
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.consecutiveSuccesses = 0
		}
		return
	}

	cb.lastFailureTime = cb.now()
	cb.consecutiveSuccesses = 0

	switch cb.state {
	case CircuitClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// circuitSet keeps one breaker per upstream host. The portal talks to its own
// origin and to the backend, and one failing must not block the other.
type circuitSet struct {
	config *CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func newCircuitSet(config *CircuitBreakerConfig) *circuitSet {
	if config == nil {
		return nil
	}
	return &circuitSet{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// get returns the breaker for host; nil when breaking is disabled.
func (s *circuitSet) get(host string) *CircuitBreaker {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(s.config)
		s.breakers[host] = cb
	}
	return cb
}

// states returns a snapshot of every known breaker.
func (s *circuitSet) states() map[string]CircuitState {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]CircuitState, len(s.breakers))
	for host, cb := range s.breakers {
		out[host] = cb.State()
	}
	return out
}
