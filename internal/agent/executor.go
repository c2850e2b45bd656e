package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/blueprint/internal/observability"
)

// DefaultStepDelay is the pause after each streamed step.
const DefaultStepDelay = 200 * time.Millisecond

// Executor offers the two ways of running a pipeline: to completion
// (Run) or as an event stream (Stream).
type Executor struct {
	pipeline  *Pipeline
	stepDelay time.Duration
	logger    *observability.Logger
	status    *observability.Status
}

type Option func(*Executor)

// WithStepDelay sets the pacing delay between streamed steps. Zero disables it.
func WithStepDelay(d time.Duration) Option {
	return func(e *Executor) { e.stepDelay = d }
}

func WithLogger(l *observability.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithStatus(s *observability.Status) Option {
	return func(e *Executor) { e.status = s }
}

func NewExecutor(p *Pipeline, opts ...Option) *Executor {
	e := &Executor{pipeline: p, stepDelay: DefaultStepDelay}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the pipeline to completion. Failures are reported in the
// record's Error field, never as a Go error.
func (e *Executor) Run(ctx context.Context, idea string) Record {
	runID := e.begin(idea, "aggregate")
	rec := e.pipeline.Run(ctx, runID, idea, func(Event) {})
	e.end(runID, rec)
	return rec
}

// Stream executes the pipeline in the background and delivers each event
// as soon as it is produced. The channel ends with STREAM_END and is then
// closed. If ctx is cancelled the run is abandoned and the channel is
// closed without further events.
func (e *Executor) Stream(ctx context.Context, idea string) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		send := func(ev Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		runID := e.begin(idea, "stream")
		rec := e.pipeline.Run(ctx, runID, idea, func(ev Event) {
			if !send(ev) {
				cancel()
				return
			}
			if !ev.IsError() {
				e.pause(ctx)
			}
		})
		e.end(runID, rec)

		// a departed consumer gets nothing more, send checks ctx first
		send(Event{Name: EventDone})
	}()
	return ch
}

func (e *Executor) pause(ctx context.Context) {
	if e.stepDelay <= 0 {
		return
	}
	t := time.NewTimer(e.stepDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (e *Executor) begin(idea, mode string) string {
	runID := uuid.NewString()
	e.status.Begin(runID, idea)
	e.logger.LogPipeline(runID, "started", map[string]any{"mode": mode, "idea": idea})
	return runID
}

func (e *Executor) end(runID string, rec Record) {
	e.status.End(runID)
	data := map[string]any{"steps": rec.Len()}
	status := "completed"
	if rec.Failed() {
		status = "failed"
		data["error"] = rec.Error
	}
	e.logger.LogPipeline(runID, status, data)
}
