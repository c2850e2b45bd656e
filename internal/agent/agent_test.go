package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rahul/blueprint/internal/llm"
)

const mealIdea = "A meal-planning app for students"

func constGenerator(text string) llm.Generator {
	return llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		return text, nil
	})
}

// failOnCall answers "<echo>" until the nth call, which fails with msg.
func failOnCall(n int32, msg string) llm.Generator {
	var calls atomic.Int32
	return llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		if calls.Add(1) == n {
			return "", errors.New(msg)
		}
		return "<echo>", nil
	})
}

func echoPrompt() llm.Generator {
	return llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		return prompt, nil
	})
}

// recordingGenerator keeps every prompt it receives.
type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	next    llm.Generator
}

func (r *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()
	return r.next.Generate(ctx, prompt)
}

func newExecutor(gen llm.Generator, opts ...Option) *Executor {
	p := NewPipeline(NewSteps(gen, nil), nil)
	return NewExecutor(p, append([]Option{WithStepDelay(0)}, opts...)...)
}

func collect(ch <-chan Event) []Event {
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			panic(fmt.Sprintf("stream did not close, got %d events", len(events)))
		}
	}
}

func eventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

func stepNames(names []StepName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
