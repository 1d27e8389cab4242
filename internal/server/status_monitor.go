package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrorEmitter publishes error events
type ErrorEmitter interface {
	EmitError(module string, err error, context map[string]interface{})
}

// StatusMonitor periodically pings the store and emits an event when it becomes unreachable
type StatusMonitor struct {
	ping    func(ctx context.Context) error
	emitter ErrorEmitter
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	healthy bool
	since   time.Time
}

// NewStatusMonitor creates a new status monitor. emitter may be nil.
func NewStatusMonitor(ping func(ctx context.Context) error, emitter ErrorEmitter, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		ping:    ping,
		emitter: emitter,
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "status_monitor").Logger(),
		healthy: true,
		since:   time.Now(),
	}
}

// Start begins periodic monitoring until ctx is done
func (m *StatusMonitor) Start(ctx context.Context, interval time.Duration) {
	go m.monitor(ctx, interval)
}

func (m *StatusMonitor) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check pings the store once and records transitions. It returns the current state.
func (m *StatusMonitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.ping(pctx)
	cancel()

	// Shutting down is not an outage
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		return m.Healthy()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	healthy := err == nil
	if healthy == m.healthy {
		return healthy
	}

	downFor := time.Since(m.since)
	m.healthy = healthy
	m.since = time.Now()

	if !healthy {
		m.log.Error().Err(err).Msg("Store became unreachable")
		if m.emitter != nil {
			m.emitter.EmitError("status_monitor", err, map[string]interface{}{"component": "store"})
		}
		return false
	}

	m.log.Info().Dur("down_for", downFor).Msg("Store reachable again")
	return true
}

// Healthy reports the last observed store state
func (m *StatusMonitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}
