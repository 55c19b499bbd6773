// Package engine serializes every command against the flow through a
// single-worker queue and owns the server-side state around it: preview
// sessions, autosave and event publication.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/layout"
	"github.com/gyaneshwarpardhi/caseflow/internal/metrics"
	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
)

var (
	ErrQueueFull = errors.New("engine: command queue full")
	ErrTimeout   = errors.New("engine: command timed out")
)

// command is one unit of work run on the worker.
type command struct {
	name    string
	mutates bool
	fn      func(ed *editor.Editor) error
	done    chan error
}

// Engine runs commands against one editor, one at a time.
type Engine struct {
	ed   *editor.Editor
	bus  *event.Bus
	pool *workerPool[*command]
	conf atomic.Pointer[config.EngineConf]

	handoff atomic.Pointer[handoff.Binding]

	// sessions is only touched from the worker.
	sessions map[string]*preview.Session

	store    atomic.Pointer[snapshotStore]
	dirty    atomic.Bool
	revision atomic.Uint64
}

// New creates an Engine around g and starts its worker. Events go to bus,
// which may be nil.
func New(ctx context.Context, g *flow.Graph, lc layout.Config, bus *event.Bus, conf config.EngineConf) *Engine {
	e := &Engine{
		bus:      bus,
		sessions: make(map[string]*preview.Session),
	}
	e.conf.Store(&conf)
	e.ed = editor.New(g, lc, e)
	e.pool = newWorkerPool[*command](ctx, 1, conf.QueueDepth, e.execute)
	e.observeGraph()
	return e
}

// SetConf swaps the engine settings (used on hot-reload). The queue keeps
// the capacity it was created with.
func (e *Engine) SetConf(conf config.EngineConf) {
	e.conf.Store(&conf)
}

// SetHandoff selects what finished preview walks hand off to.
func (e *Engine) SetHandoff(b *handoff.Binding) {
	e.handoff.Store(b)
}

// Publish forwards an event to the bus and counts undelivered copies.
func (e *Engine) Publish(ev event.Event) int {
	if e.bus == nil {
		return 0
	}
	dropped := e.bus.Publish(ev)
	if dropped > 0 {
		metrics.EventsDropped.Add(float64(dropped))
	}
	return dropped
}

// Do runs fn on the worker as a mutating command and waits for it.
func (e *Engine) Do(ctx context.Context, name string, fn func(ed *editor.Editor) error) error {
	return e.submit(ctx, &command{name: name, mutates: true, fn: fn})
}

// View runs fn on the worker without marking the flow as changed.
func (e *Engine) View(ctx context.Context, name string, fn func(ed *editor.Editor) error) error {
	return e.submit(ctx, &command{name: name, fn: fn})
}

func (e *Engine) submit(ctx context.Context, c *command) error {
	c.done = make(chan error, 1)
	conf := e.conf.Load()
	timeout := time.Duration(conf.CommandTimeoutMs) * time.Millisecond

	if !e.pool.Submit(c) {
		metrics.CommandsDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.CommandsEnqueued.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-c.done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) execute(_ context.Context, c *command) error {
	start := time.Now()
	err := e.call(c)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.CommandsProcessed.WithLabelValues(c.name, status).Inc()
	metrics.CommandDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.QueueUtilization.Set(e.QueueUtilization())
	// Only successful mutations count as a new revision.
	if c.mutates && err == nil {
		e.revision.Add(1)
		e.dirty.Store(true)
		e.observeGraph()
	}

	c.done <- err
	return err
}

func (e *Engine) call(c *command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: command %s panicked: %v", c.name, r)
		}
	}()
	return c.fn(e.ed)
}

func (e *Engine) observeGraph() {
	g := e.ed.Graph()
	var cases, answers int
	for _, n := range g.Nodes() {
		if n.Type() == flow.NodeTypeCase {
			cases++
		} else {
			answers++
		}
	}
	metrics.Nodes.WithLabelValues(string(flow.NodeTypeCase)).Set(float64(cases))
	metrics.Nodes.WithLabelValues(string(flow.NodeTypeAnswer)).Set(float64(answers))
	metrics.Connections.Set(float64(len(g.Connections())))
}

// Revision counts mutating commands run so far.
func (e *Engine) Revision() uint64 {
	return e.revision.Load()
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the queue gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
