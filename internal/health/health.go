// Package health validates upstream reachability at startup and keeps
// re-checking unhealthy services in the background until they recover.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCheckInterval = 2 * time.Minute
	// DefaultStabilizationDelay guards against upstreams that report warm
	// before they can actually serve: the first request after a cold start
	// intermittently fails without it.
	DefaultStabilizationDelay = 5 * time.Second
)

// Check performs one lightweight real call against an upstream.
type Check func(ctx context.Context) error

type Monitor struct {
	mu       sync.RWMutex
	names    []string
	checks   map[string]Check
	status   map[string]bool
	interval time.Duration
	settle   time.Duration
}

func NewMonitor(interval, stabilizationDelay time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if stabilizationDelay < 0 {
		stabilizationDelay = DefaultStabilizationDelay
	}
	return &Monitor{
		checks:   make(map[string]Check),
		status:   make(map[string]bool),
		interval: interval,
		settle:   stabilizationDelay,
	}
}

// Register adds a named upstream check. Not safe to call after WarmUp.
func (m *Monitor) Register(name string, check Check) {
	m.names = append(m.names, name)
	m.checks[name] = check
	m.status[name] = false
}

// WarmUp runs every check once and returns the readiness map. Individual
// failures never abort warm-up. On full readiness it sleeps the fixed
// stabilization delay before returning, so callers can declare the process
// ready immediately after.
func (m *Monitor) WarmUp(ctx context.Context) map[string]bool {
	m.runChecks(ctx)
	report := m.Snapshot()

	if m.Healthy() {
		log.Info().Dur("stabilization", m.settle).Msg("all upstreams ready, settling before accepting traffic")
		select {
		case <-ctx.Done():
		case <-time.After(m.settle):
		}
	} else {
		log.Warn().Interface("readiness", report).Msg("starting with degraded upstreams")
	}
	return report
}

// Run re-checks unhealthy services on a fixed interval and returns once
// everything reports healthy (or the context ends). Start it only when
// WarmUp reported partial readiness.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runChecks(ctx)
			if m.Healthy() {
				log.Info().Msg("all upstreams recovered, stopping health loop")
				return
			}
		}
	}
}

// runChecks re-runs every currently-unhealthy check. Healthy services are
// left alone; they are trusted until proven otherwise by a real call.
func (m *Monitor) runChecks(ctx context.Context) {
	for _, name := range m.names {
		m.mu.RLock()
		healthy := m.status[name]
		check := m.checks[name]
		m.mu.RUnlock()
		if healthy {
			continue
		}

		err := check(ctx)
		m.mu.Lock()
		m.status[name] = err == nil
		m.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("service", name).Msg("upstream check failed")
		} else {
			log.Info().Str("service", name).Msg("upstream check passed")
		}
	}
}

// Snapshot returns a copy of the per-service readiness map.
func (m *Monitor) Snapshot() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}

// Healthy reports whether every registered service is ready.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ok := range m.status {
		if !ok {
			return false
		}
	}
	return true
}
