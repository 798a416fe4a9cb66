// Package health serves Kubernetes-style /livez and /readyz probes.
//
// Checks run periodically in the background and the endpoints only report
// the cached outcome, so a slow dependency never blocks a probe. A check
// flips to unhealthy after FailureThreshold consecutive failures and back
// after SuccessThreshold consecutive successes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds controls flapping protection for a check.
type Thresholds struct {
	FailureThreshold int
	SuccessThreshold int
}

// DefaultThresholds matches the Kubernetes probe defaults.
var DefaultThresholds = Thresholds{FailureThreshold: 3, SuccessThreshold: 1}

// check is run by exactly one goroutine; the counters need no locking.
// healthy and lastErr are read concurrently by the endpoints.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
	limits  Thresholds

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails, oks int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, limits Thresholds) *check {
	if limits.FailureThreshold < 1 {
		limits.FailureThreshold = DefaultThresholds.FailureThreshold
	}
	if limits.SuccessThreshold < 1 {
		limits.SuccessThreshold = DefaultThresholds.SuccessThreshold
	}
	c := &check{name: name, timeout: timeout, fn: fn, limits: limits}
	c.healthy.Store(true)
	return c
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.limits.FailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= c.limits.SuccessThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// probe is a named group of checks.
type probe struct {
	mu     sync.RWMutex
	checks []*check
}

func (p *probe) add(c *check) {
	p.mu.Lock()
	p.checks = append(p.checks, c)
	p.mu.Unlock()
}

func (p *probe) snapshot() []*check {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*check(nil), p.checks...)
}

func (p *probe) failures() map[string]string {
	out := make(map[string]string)
	for _, c := range p.snapshot() {
		if msg, failed := c.failure(); failed {
			out[c.name] = msg
		}
	}
	return out
}

// Health aggregates liveness and readiness checks.
type Health struct {
	ready     atomic.Bool
	liveness  probe
	readiness probe

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.liveness.add(newCheck(name, timeout, fn, DefaultThresholds))
}

// AddReadinessCheck registers a check that decides whether the instance
// should receive traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.AddReadinessCheckWithThresholds(name, timeout, fn, DefaultThresholds)
}

// AddReadinessCheckWithThresholds is AddReadinessCheck with custom thresholds.
func (h *Health) AddReadinessCheckWithThresholds(name string, timeout time.Duration, fn CheckFunc, limits Thresholds) {
	h.readiness.add(newCheck(name, timeout, fn, limits))
}

// Start runs every registered check immediately and then every interval.
// Checks added after Start are not scheduled.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}

	ctx, h.cancel = context.WithCancel(ctx)
	checks := append(h.liveness.snapshot(), h.readiness.snapshot()...)
	for _, c := range checks {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			schedule(ctx, c, interval)
		}()
	}
}

func schedule(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels the background checks and waits for them to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

// SetReady flips the manual readiness gate, typically true after startup and
// false when draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.readiness.failures()) == 0
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.liveness.failures())
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.readiness.failures()
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failures}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
