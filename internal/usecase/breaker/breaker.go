// Package breaker implements the per-backend circuit breakers that decide
// which backends a query may fan out to, and the fallback modes a query
// degrades through. Breakers are global per backend type, not per tenant:
// backend outages affect the shared infrastructure, not one tenant's data.
package breaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Backend identifies a search backend guarded by a breaker.
type Backend string

// Guarded backends.
const (
	BackendVector  Backend = "vector"
	BackendKeyword Backend = "keyword"
)

// State is a breaker state.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures within Window
	// that opens the breaker.
	FailureThreshold int
	// Window bounds how far back failures count.
	Window time.Duration
	// Cooldown is how long an open breaker waits before probing.
	Cooldown time.Duration
}

// breaker is the state machine for a single backend.
type breaker struct {
	state    State
	failures []time.Time
	openedAt time.Time
	probing  bool
}

// Controller owns one breaker per backend and plans query fan-out.
type Controller struct {
	cfg    Config
	gauge  *prometheus.GaugeVec
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	breakers map[Backend]*breaker
}

// New creates a breaker controller.
// gauge is a gauge vec with label "backend" (0=closed, 1=half_open, 2=open),
// passed explicitly; nil disables metrics.
func New(cfg Config, gauge *prometheus.GaugeVec, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		gauge:  gauge,
		logger: logger,
		now:    time.Now,
		breakers: map[Backend]*breaker{
			BackendVector:  {},
			BackendKeyword: {},
		},
	}
}

// Allow reports whether a call to the backend may proceed, transitioning
// OPEN breakers to HALF_OPEN once the cooldown elapsed. In HALF_OPEN at most
// one probe is in flight; concurrent callers are rejected until the probe
// reports.
func (c *Controller) Allow(backend Backend) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.breakers[backend]
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if c.now().Sub(b.openedAt) < c.cfg.Cooldown {
			return false
		}
		c.transition(backend, b, StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// ReportSuccess records a successful backend call. A HALF_OPEN probe success
// closes the breaker; in CLOSED it resets the consecutive-failure run.
func (c *Controller) ReportSuccess(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.breakers[backend]
	b.probing = false
	b.failures = b.failures[:0]
	if b.state != StateClosed {
		c.transition(backend, b, StateClosed)
	}
}

// ReportFailure records a failed backend call (timeout or unavailability;
// caller errors do not count). A HALF_OPEN probe failure reopens the breaker
// and restarts the cooldown.
func (c *Controller) ReportFailure(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b := c.breakers[backend]

	if b.state == StateHalfOpen {
		b.probing = false
		b.openedAt = now
		c.transition(backend, b, StateOpen)
		return
	}
	if b.state == StateOpen {
		return
	}

	b.failures = append(b.failures, now)
	b.failures = pruneOld(b.failures, now.Add(-c.cfg.Window))

	if len(b.failures) >= c.cfg.FailureThreshold {
		b.failures = b.failures[:0]
		b.openedAt = now
		c.transition(backend, b, StateOpen)
	}
}

// Release returns an admission without reporting an outcome. Used when an
// admitted backend ends up not being called (query shape ruled it out), so a
// HALF_OPEN probe slot is not leaked.
func (c *Controller) Release(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakers[backend].probing = false
}

// State returns the backend's current breaker state without side effects.
func (c *Controller) State(backend Backend) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.breakers[backend].state
}

// transition switches states and mirrors the change to metrics and logs.
// Caller holds the lock.
func (c *Controller) transition(backend Backend, b *breaker, to State) {
	from := b.state
	b.state = to

	if c.gauge != nil {
		c.gauge.WithLabelValues(string(backend)).Set(float64(to))
	}
	if c.logger != nil {
		c.logger.Warn("Breaker state change",
			zap.String("backend", string(backend)),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
}

// pruneOld drops failure timestamps before the cutoff, in place.
func pruneOld(failures []time.Time, cutoff time.Time) []time.Time {
	kept := failures[:0]
	for _, t := range failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
