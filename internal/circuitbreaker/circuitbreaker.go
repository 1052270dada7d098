// Package circuitbreaker guards gateway endpoints against sustained
// failure. The transport client keys the breaker by flow (authorize, sync,
// refund, refund_sync) so one misbehaving endpoint does not block the
// others.
package circuitbreaker

import (
	"sync"
	"time"
)

// State of a single flow's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

type flowState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailureTime      time.Time
	openUntil            time.Time
}

// CircuitBreaker is an in-memory breaker keyed by flow name.
type CircuitBreaker struct {
	mu                       sync.RWMutex
	flows                    map[string]*flowState
	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// New creates a breaker with default thresholds.
func New() *CircuitBreaker {
	return NewWithSettings(defaultFailureThreshold, defaultOpenStateTimeout, defaultHalfOpenSuccessThreshold)
}

// NewWithSettings creates a breaker with custom thresholds.
func NewWithSettings(failThreshold int, openTimeout time.Duration, halfOpenSuccess int) *CircuitBreaker {
	return &CircuitBreaker{
		flows:                    make(map[string]*flowState),
		failureThreshold:         failThreshold,
		openStateTimeout:         openTimeout,
		halfOpenSuccessThreshold: halfOpenSuccess,
	}
}

// caller must hold the write lock.
func (cb *CircuitBreaker) getFlowState(flow string) *flowState {
	fs, exists := cb.flows[flow]
	if !exists {
		fs = &flowState{state: Closed}
		cb.flows[flow] = fs
	}
	return fs
}

// Allow reports whether a call on the flow may proceed. An Open circuit
// transitions to HalfOpen once its timeout expires, so Allow takes the
// write lock.
func (cb *CircuitBreaker) Allow(flow string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	fs := cb.getFlowState(flow)
	switch fs.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(fs.openUntil) {
			fs.state = HalfOpen
			fs.consecutiveSuccesses = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		fs.state = Closed
		return true
	}
}

// RecordFailure notes a failed call on the flow.
func (cb *CircuitBreaker) RecordFailure(flow string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	fs := cb.getFlowState(flow)
	fs.lastFailureTime = time.Now()

	switch fs.state {
	case Closed:
		fs.consecutiveFailures++
		if fs.consecutiveFailures >= cb.failureThreshold {
			fs.state = Open
			fs.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case HalfOpen:
		// A failure while probing re-opens immediately.
		fs.state = Open
		fs.openUntil = time.Now().Add(cb.openStateTimeout)
		fs.consecutiveFailures = 0
		fs.consecutiveSuccesses = 0
	case Open:
		return
	}
}

// RecordSuccess notes a successful call on the flow.
func (cb *CircuitBreaker) RecordSuccess(flow string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	fs := cb.getFlowState(flow)
	switch fs.state {
	case Closed:
		fs.consecutiveFailures = 0
	case HalfOpen:
		fs.consecutiveSuccesses++
		if fs.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			fs.state = Closed
			fs.consecutiveFailures = 0
			fs.consecutiveSuccesses = 0
		}
	case Open:
		// Allow should have blocked the call; success only matters in
		// Closed or HalfOpen.
		return
	}
}

// CurrentState returns a flow's state without triggering transitions.
func (cb *CircuitBreaker) CurrentState(flow string) State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	fs, exists := cb.flows[flow]
	if !exists {
		return Closed
	}
	return fs.state
}
