package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rahul/blueprint/internal/llm"
	"github.com/rahul/blueprint/internal/observability"
)

// Pipeline runs the steps in order, threading each step's output into
// the step that consumes it.
type Pipeline struct {
	steps  []Step
	logger *observability.Logger
}

func NewPipeline(steps []Step, logger *observability.Logger) *Pipeline {
	return &Pipeline{steps: steps, logger: logger}
}

// Steps returns the configured steps in order.
func (p *Pipeline) Steps() []Step { return p.steps }

type stepOutcome struct {
	output string
	err    error
}

// Run executes the chain for idea. emit receives one event per completed
// step and one Error event if the chain halts. The returned record holds
// every completed step and, on failure, the error description.
func (p *Pipeline) Run(ctx context.Context, runID, idea string, emit func(Event)) Record {
	var rec Record
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return p.halt(&rec, runID, step.Name, llm.Fail("", err), emit)
		}

		input := idea
		if step.Source != "" {
			input, _ = rec.Get(step.Source)
		}

		start := time.Now()
		res := p.execute(ctx, step, input)
		if res.err != nil {
			return p.halt(&rec, runID, step.Name, res.err, emit)
		}
		p.logger.LogStep(runID, string(step.Name), time.Since(start), nil)

		rec.Set(step.Name, res.output)
		emit(stepEvent(step.Name, res.output))
	}
	return rec
}

func (p *Pipeline) halt(rec *Record, runID string, at StepName, err error, emit func(Event)) Record {
	p.logger.LogStep(runID, string(at), 0, err)
	rec.Error = err.Error()
	if rec.Error == "" {
		rec.Error = fmt.Sprintf("%s failed", at)
	}
	emit(errorEvent(rec.Error))
	return *rec
}

// execute converts a panicking generator into a failed outcome.
func (p *Pipeline) execute(ctx context.Context, step Step, input string) (res stepOutcome) {
	defer func() {
		if r := recover(); r != nil {
			res = stepOutcome{err: llm.Fail("", fmt.Errorf("%s: panic: %v", step.Name, r))}
		}
	}()
	out, err := step.Execute(ctx, input)
	return stepOutcome{output: out, err: err}
}
