package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingEmitter struct {
	mu     sync.Mutex
	errors []error
}

func (r *recordingEmitter) EmitError(module string, err error, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

type switchablePing struct {
	mu  sync.Mutex
	err error
}

func (p *switchablePing) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *switchablePing) ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func TestStatusMonitor_EmitsOnTransitionOnly(t *testing.T) {
	p := &switchablePing{}
	emitter := &recordingEmitter{}
	m := NewStatusMonitor(p.ping, emitter, zerolog.Nop())
	ctx := context.Background()

	assert.True(t, m.Check(ctx))
	assert.Zero(t, emitter.count())

	p.set(errors.New("connection refused"))
	assert.False(t, m.Check(ctx))
	assert.False(t, m.Check(ctx))
	assert.Equal(t, 1, emitter.count())
	assert.False(t, m.Healthy())

	p.set(nil)
	assert.True(t, m.Check(ctx))
	assert.True(t, m.Healthy())

	p.set(errors.New("timeout"))
	m.Check(ctx)
	assert.Equal(t, 2, emitter.count())
}

func TestStatusMonitor_CancelledContextIsNotAnOutage(t *testing.T) {
	emitter := &recordingEmitter{}
	m := NewStatusMonitor(func(ctx context.Context) error { return ctx.Err() }, emitter, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, m.Check(ctx))
	assert.Zero(t, emitter.count())
}

func TestStatusMonitor_StartChecksImmediately(t *testing.T) {
	p := &switchablePing{err: errors.New("down")}
	emitter := &recordingEmitter{}
	m := NewStatusMonitor(p.ping, emitter, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx, time.Hour)

	assert.Eventually(t, func() bool { return emitter.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestStatusMonitor_NilEmitter(t *testing.T) {
	m := NewStatusMonitor(func(context.Context) error { return errors.New("down") }, nil, zerolog.Nop())
	assert.NotPanics(t, func() { m.Check(context.Background()) })
}
