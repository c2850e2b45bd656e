package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type recordingObserver struct {
	prompts []any
}

func (r *recordingObserver) LogLLM(chatID, taskID string, prompt any, response string, toolCalls any) {
	r.prompts = append(r.prompts, prompt)
}

func TestModelGenerator_Generate(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "# Summary"}}}}
	obs := &recordingObserver{}
	g := NewModelGenerator("together:test", model, 0)
	g.Observer = obs

	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "# Summary", out)

	require.Len(t, model.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, model.opts.MaxTokens)
	assert.Equal(t, []any{"hello"}, obs.prompts)
}

func TestModelGenerator_Failures(t *testing.T) {
	cases := map[string]*fakeModel{
		"transport":  {err: errors.New("connection refused")},
		"no choices": {resp: &llms.ContentResponse{}},
		"no content": {resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: ""}}}},
	}
	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewModelGenerator("together:test", model, 100)
			_, err := g.Generate(context.Background(), "hello")
			require.Error(t, err)

			var gf *GenerationFailure
			require.True(t, errors.As(err, &gf))
			assert.Equal(t, "together:test", gf.Provider)
		})
	}
}

func TestModelGenerator_WhitespaceIsValidOutput(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: " \n"}}}}
	out, err := NewModelGenerator("together:test", model, 0).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, " \n", out)
}

func TestFail_KeepsMessageAndDoesNotDoubleWrap(t *testing.T) {
	base := errors.New("boom")
	err := Fail("", base)
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, base)

	assert.Same(t, err, Fail("other", err))
	assert.Nil(t, Fail("x", nil))
}

func TestWithDeadline(t *testing.T) {
	slow := FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := WithDeadline(slow, 20*time.Millisecond)

	start := time.Now()
	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	var gf *GenerationFailure
	assert.True(t, errors.As(err, &gf))
}

func TestWithDeadline_ZeroIsPassThrough(t *testing.T) {
	g := FuncGenerator(func(ctx context.Context, prompt string) (string, error) { return prompt, nil })
	wrapped := WithDeadline(g, 0)

	out, err := wrapped.Generate(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, "same", out)
}

func TestCachedGenerator(t *testing.T) {
	var calls atomic.Int32
	fail := true
	next := FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("flaky")
		}
		return "out:" + prompt, nil
	})
	c, err := NewCachedGenerator(next, 8)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	fail = false
	out, err := c.Generate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "out:a", out)

	out, err = c.Generate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "out:a", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Provider{Name: "nope"}, nil)
	assert.Error(t, err)
}
