package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler processes one event for a run. Handlers emit follow-up events
// through the Run; returning an error fails the whole run.
type Handler func(ctx context.Context, run *Run, ev Event) error

type registration struct {
	handler Handler
	workers int
}

// Engine routes typed events to registered handlers within a run. Every
// message travels in a run-scoped envelope, so events from one run are never
// delivered to another run's handlers, fan-out workers run unordered under a
// per-type bound, and fan-in is left to the exact-count Collect gate.
type Engine struct {
	log      *zap.Logger
	deadline time.Duration
	handlers map[EventType]registration
}

// NewEngine builds an engine whose runs fail if no terminal result is
// produced within deadline.
func NewEngine(log *zap.Logger, deadline time.Duration) *Engine {
	return &Engine{
		log:      log,
		deadline: deadline,
		handlers: make(map[EventType]registration),
	}
}

// Handle registers the handler for an event type with a worker bound.
// Registration is not safe to call once runs have started.
func (e *Engine) Handle(t EventType, workers int, h Handler) {
	if workers < 1 {
		workers = 1
	}
	e.handlers[t] = registration{handler: h, workers: workers}
}

// envelope correlates an event with the run that emitted it.
type envelope struct {
	runID string
	ev    Event
}

type runResult struct {
	combined string
	err      error
}

// Run is the lifecycle scope binding one topic to one result. All state is
// run-local; concurrent runs on the same engine share nothing but the
// handler table.
type Run struct {
	ID     string
	engine *Engine

	events  chan envelope
	done    chan struct{}
	results chan runResult
	finish  sync.Once

	pending sync.WaitGroup

	mu          sync.Mutex
	collected   map[EventType][]Event
	collectDone map[EventType]bool
}

// Run executes one workflow invocation: it seeds a StartEvent carrying the
// topic and blocks until a terminal result, a handler error, the run
// deadline, or ctx cancellation.
func (e *Engine) Run(ctx context.Context, topic string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	r := &Run{
		ID:          uuid.NewString(),
		engine:      e,
		events:      make(chan envelope, 128),
		done:        make(chan struct{}),
		results:     make(chan runResult, 1),
		collected:   make(map[EventType][]Event),
		collectDone: make(map[EventType]bool),
	}

	e.log.Info("run started", zap.String("run_id", r.ID), zap.String("topic", topic))

	go r.dispatch(ctx)
	r.Emit(StartEvent{Topic: topic})

	// A run with no in-flight events and no terminal result is stalled;
	// fail it instead of waiting out the deadline.
	go func() {
		r.pending.Wait()
		r.resolve("", fmt.Errorf("run %s stalled: all handlers finished without a terminal result", r.ID))
	}()

	select {
	case res := <-r.results:
		if res.err != nil {
			e.log.Warn("run failed", zap.String("run_id", r.ID), zap.Error(res.err))
			return "", res.err
		}
		e.log.Info("run complete", zap.String("run_id", r.ID))
		return res.combined, nil
	case <-ctx.Done():
		e.log.Warn("run deadline exceeded",
			zap.String("run_id", r.ID),
			zap.String("topic", topic),
			zap.Duration("deadline", e.deadline))
		return "", fmt.Errorf("run %s for topic %q (deadline %s): %w", r.ID, topic, e.deadline, ctx.Err())
	}
}

// Emit routes an event to this run's handlers. Events emitted after the run
// has resolved are dropped.
func (r *Run) Emit(ev Event) {
	r.pending.Add(1)
	select {
	case <-r.done:
		r.pending.Done()
	case r.events <- envelope{runID: r.ID, ev: ev}:
	}
}

// Collect buffers ev and returns the full batch, in arrival order, once n
// events of its type have arrived for this run. Until then it returns nil.
// The batch is returned exactly once; events of that type arriving after
// completion are ignored.
func (r *Run) Collect(ev Event, n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := ev.Type()
	if r.collectDone[t] {
		return nil
	}
	r.collected[t] = append(r.collected[t], ev)
	if len(r.collected[t]) < n {
		return nil
	}
	r.collectDone[t] = true
	batch := r.collected[t]
	delete(r.collected, t)
	return batch
}

func (r *Run) dispatch(ctx context.Context) {
	// Per-type worker bounds, allocated per run.
	sems := make(map[EventType]chan struct{}, len(r.engine.handlers))
	for t, reg := range r.engine.handlers {
		sems[t] = make(chan struct{}, reg.workers)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case env := <-r.events:
			if env.runID != r.ID {
				// Cannot happen through Emit; guards the correlation
				// contract all the same.
				r.engine.log.Error("dropping cross-run event",
					zap.String("run_id", r.ID),
					zap.String("event_run_id", env.runID),
					zap.String("event", string(env.ev.Type())))
				r.pending.Done()
				continue
			}
			if env.ev.Type() == EventResult {
				res := env.ev.(ResultEvent)
				r.pending.Done()
				r.resolve(res.Combined, nil)
				return
			}
			reg, ok := r.engine.handlers[env.ev.Type()]
			if !ok {
				r.pending.Done()
				r.resolve("", fmt.Errorf("no handler registered for %s events", env.ev.Type()))
				return
			}

			sem := sems[env.ev.Type()]
			go func(ev Event) {
				defer r.pending.Done()
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				case <-r.done:
					return
				}
				defer func() { <-sem }()

				if err := reg.handler(ctx, r, ev); err != nil {
					r.resolve("", fmt.Errorf("%s handler: %w", ev.Type(), err))
				}
			}(env.ev)
		}
	}
}

func (r *Run) resolve(combined string, err error) {
	r.finish.Do(func() {
		close(r.done)
		r.results <- runResult{combined: combined, err: err}
	})
}
