// Package llm is the text generation capability used by the pipeline steps.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResponse is returned when a provider answers without message content.
var ErrEmptyResponse = errors.New("response has no message content")

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationFailure wraps any error raised while generating text.
type GenerationFailure struct {
	Provider string
	Err      error
}

func (f *GenerationFailure) Error() string {
	if f.Provider == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.Provider, f.Err)
}

func (f *GenerationFailure) Unwrap() error { return f.Err }

// Fail wraps err as a GenerationFailure unless it already is one.
func Fail(provider string, err error) error {
	if err == nil {
		return nil
	}
	var gf *GenerationFailure
	if errors.As(err, &gf) {
		return err
	}
	return &GenerationFailure{Provider: provider, Err: err}
}

// FuncGenerator adapts a plain function to the Generator interface.
type FuncGenerator func(ctx context.Context, prompt string) (string, error)

func (f FuncGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type deadlineGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithDeadline bounds every call to next by timeout. A non-positive
// timeout returns next unchanged.
func WithDeadline(next Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return next
	}
	return &deadlineGenerator{next: next, timeout: timeout}
}

func (d *deadlineGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := d.next.Generate(ctx, prompt)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, Fail("", r.err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", Fail("", fmt.Errorf("generation timed out after %s: %w", d.timeout, ctx.Err()))
		}
		return "", Fail("", ctx.Err())
	}
}
