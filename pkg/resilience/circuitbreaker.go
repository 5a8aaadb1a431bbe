package resilience

import (
	"errors"
	"sync"
	"time"

	"character-chat/backend/pkg/logger"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit open")

// State represents the current state of a circuit breaker
type State string

const (
	// StateClosed lets every call through
	StateClosed State = "closed"
	// StateOpen short-circuits every call until the cooldown has passed
	StateOpen State = "open"
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	Cooldown         time.Duration
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// Metrics is a snapshot of a breaker's counters
type Metrics struct {
	Name            string    `json:"name"`
	State           State     `json:"state"`
	TotalRequests   uint64    `json:"total_requests"`
	TotalFailures   uint64    `json:"total_failures"`
	TotalSuccesses  uint64    `json:"total_successes"`
	Rejected        uint64    `json:"rejected"`
	TimesOpened     uint64    `json:"times_opened"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
}

// CircuitBreaker trips after consecutive failures and fails fast while open.
// It never retries on its own.
type CircuitBreaker struct {
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
	mutex sync.Mutex

	state           State
	failureCount    uint
	successCount    uint
	probesInFlight  uint
	nextAttemptTime time.Time
	metrics         Metrics
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		state:   StateClosed,
		metrics: Metrics{Name: cfg.Name},
	}
}

// Execute runs fn unless the breaker is open. Every error counts as a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteClassified(fn, nil)
}

// ExecuteClassified runs fn unless the breaker is open. Only errors for which
// isFailure reports true count against the breaker; a nil isFailure counts
// every error. Other errors are returned untouched and leave the state as is.
func (cb *CircuitBreaker) ExecuteClassified(fn func() error, isFailure func(error) bool) error {
	if !cb.allowRequest() {
		cb.log.Warn("Circuit breaker rejected call", "name", cb.cfg.Name)
		return ErrCircuitOpen
	}

	start := cb.now()
	err := fn()
	switch {
	case err == nil:
		cb.recordSuccess()
	case isFailure == nil || isFailure(err):
		cb.recordFailure()
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.cfg.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(start).String(),
		)
	default:
		cb.recordIgnored()
	}
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen && !cb.now().Before(cb.nextAttemptTime) {
		cb.toHalfOpen()
	}

	switch cb.state {
	case StateClosed:
		cb.metrics.TotalRequests++
		return true
	case StateHalfOpen:
		if cb.probesInFlight+cb.successCount < cb.cfg.SuccessThreshold {
			cb.probesInFlight++
			cb.metrics.TotalRequests++
			return true
		}
	}

	cb.metrics.Rejected++
	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.metrics.TotalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.probesInFlight--
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.toClosed()
		}
	}
}

// recordIgnored releases a half-open probe slot without moving the state
func (cb *CircuitBreaker) recordIgnored() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen && cb.probesInFlight > 0 {
		cb.probesInFlight--
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.metrics.TotalFailures++
	cb.metrics.LastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.probesInFlight = 0
	cb.metrics.TimesOpened++
	cb.nextAttemptTime = cb.now().Add(cb.cfg.Cooldown)

	cb.log.Info("Circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failureCount,
		"next_attempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.probesInFlight = 0

	cb.log.Info("Circuit breaker half-open", "name", cb.cfg.Name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0

	cb.log.Info("Circuit breaker closed", "name", cb.cfg.Name)
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen && !cb.now().Before(cb.nextAttemptTime) {
		return StateHalfOpen
	}
	return cb.state
}

// Metrics returns a snapshot of the breaker's counters
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	m := cb.metrics
	m.State = cb.state
	return m
}
