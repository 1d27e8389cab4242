// Package notifications delivers trade confirmations to users: through a
// NotificationSink in the background and over websockets to open browser sessions.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultMaxInFlight bounds concurrent background sends
const DefaultMaxInFlight = 64

// Dispatcher sends notifications asynchronously. Delivery is best effort:
// failures are logged, never returned to the caller.
type Dispatcher struct {
	sink    domain.NotificationSink
	timeout time.Duration
	slots   chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher around sink. Each send gets its own timeout.
func NewDispatcher(sink domain.NotificationSink, timeout time.Duration, maxInFlight int, log zerolog.Logger) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Dispatcher{
		sink:    sink,
		timeout: timeout,
		slots:   make(chan struct{}, maxInFlight),
		log:     log.With().Str("service", "notifications").Logger(),
	}
}

// Notify queues a message without blocking. It returns false when the message
// was dropped because the dispatcher is closed or saturated.
func (d *Dispatcher) Notify(username, subject, body string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("username", username).Str("subject", subject).Msg("Dispatcher closed, notification dropped")
		return false
	}

	select {
	case d.slots <- struct{}{}:
	default:
		d.log.Warn().Str("username", username).Str("subject", subject).Msg("Too many notifications in flight, dropped")
		return false
	}

	d.wg.Add(1)
	go d.send(username, subject, body)
	return true
}

func (d *Dispatcher) send(username, subject, body string) {
	defer d.wg.Done()
	defer func() { <-d.slots }()
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Str("username", username).Interface("panic", p).Msg("Notification sink panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Send(ctx, username, subject, body); err != nil {
		d.log.Error().
			Err(fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)).
			Str("username", username).
			Str("subject", subject).
			Msg("Failed to deliver notification")
		return
	}

	d.log.Debug().Str("username", username).Str("subject", subject).Msg("Notification delivered")
}

// Close stops accepting messages and waits for in-flight sends, or until ctx is done
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still in flight: %w", ctx.Err())
	}
}

// LogSink is a NotificationSink that only writes the message to the log
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-only sink
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("sink", "log").Logger()}
}

// Send logs the message
func (s *LogSink) Send(_ context.Context, username, subject, body string) error {
	s.log.Info().Str("username", username).Str("subject", subject).Str("body", body).Msg("Notification")
	return nil
}
