package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rahul/blueprint/internal/llm"
	"github.com/rahul/blueprint/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllStepsSucceed(t *testing.T) {
	rec := newExecutor(constGenerator("<echo>")).Run(context.Background(), mealIdea)

	assert.False(t, rec.Failed())
	assert.True(t, rec.Complete())
	assert.Equal(t, stepNames(StepOrder), stepNames(rec.Steps()))
	assert.Equal(t, map[string]string{
		"research_summary":         "<echo>",
		"parsed_features":          "<echo>",
		"architecture_plan":        "<echo>",
		"tech_stack":               "<echo>",
		"security_recommendations": "<echo>",
	}, rec.Map())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"research_summary":"<echo>","parsed_features":"<echo>","architecture_plan":"<echo>","tech_stack":"<echo>","security_recommendations":"<echo>"}`, string(data))
}

func TestRun_ThirdCallFails(t *testing.T) {
	rec := newExecutor(failOnCall(3, "upstream returned 503")).Run(context.Background(), mealIdea)

	assert.Equal(t, map[string]string{
		"research_summary": "<echo>",
		"parsed_features":  "<echo>",
		"error":            "upstream returned 503",
	}, rec.Map())
}

func TestRun_FailureAtEachStep(t *testing.T) {
	for k := 1; k <= len(StepOrder); k++ {
		t.Run(string(StepOrder[k-1]), func(t *testing.T) {
			msg := fmt.Sprintf("step %d failed", k)
			rec := newExecutor(failOnCall(int32(k), msg)).Run(context.Background(), mealIdea)

			assert.Equal(t, k-1, rec.Len())
			assert.Equal(t, stepNames(StepOrder[:k-1]), stepNames(rec.Steps()))
			assert.Equal(t, msg, rec.Error)
			for _, later := range StepOrder[k-1:] {
				_, ok := rec.Get(later)
				assert.False(t, ok, "unexpected entry for %s", later)
			}
		})
	}
}

func TestRun_EmptyErrorMessageStillFails(t *testing.T) {
	rec := newExecutor(failOnCall(2, "")).Run(context.Background(), mealIdea)

	assert.True(t, rec.Failed())
	assert.False(t, rec.Complete())
	assert.Equal(t, map[string]string{
		"research_summary": "<echo>",
		"error":            "parsed_features failed",
	}, rec.Map())
}

func TestStream_EmptyErrorMessageStillFails(t *testing.T) {
	events := collect(newExecutor(failOnCall(1, "")).Stream(context.Background(), mealIdea))

	assert.Equal(t, []string{EventError, EventDone}, eventNames(events))
	assert.Equal(t, "research_summary failed", events[0].Output)
}

func TestRun_PanickingGeneratorBecomesError(t *testing.T) {
	gen := llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		panic("nil map")
	})
	rec := newExecutor(gen).Run(context.Background(), mealIdea)

	assert.Equal(t, 0, rec.Len())
	assert.Contains(t, rec.Error, "panic: nil map")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newExecutor(constGenerator("<echo>")).Run(ctx, mealIdea)
	assert.Equal(t, 0, rec.Len())
	assert.Equal(t, context.Canceled.Error(), rec.Error)
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	exec := newExecutor(echoPrompt())

	var wg sync.WaitGroup
	results := make([]Record, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = exec.Run(context.Background(), fmt.Sprintf("idea number %d", i))
		}(i)
	}
	wg.Wait()

	for i, rec := range results {
		require.True(t, rec.Complete())
		research, _ := rec.Get(StepResearch)
		assert.Contains(t, research, fmt.Sprintf(`"idea number %d"`, i))
	}
}

func TestStream_AllStepsSucceed(t *testing.T) {
	events := collect(newExecutor(constGenerator("<echo>")).Stream(context.Background(), mealIdea))

	want := append(stepNames(StepOrder), EventDone)
	assert.Equal(t, want, eventNames(events))
	for _, ev := range events[:5] {
		assert.Equal(t, "<echo>", ev.Output)
	}
}

func TestStream_FailureAtEachStep(t *testing.T) {
	for k := 1; k <= len(StepOrder); k++ {
		t.Run(string(StepOrder[k-1]), func(t *testing.T) {
			events := collect(newExecutor(failOnCall(int32(k), "boom")).Stream(context.Background(), mealIdea))

			want := append(stepNames(StepOrder[:k-1]), EventError, EventDone)
			assert.Equal(t, want, eventNames(events))
			assert.Equal(t, "boom", events[k-1].Output)
		})
	}
}

func TestStream_FirstCallFails(t *testing.T) {
	events := collect(newExecutor(failOnCall(1, "connection refused")).Stream(context.Background(), mealIdea))

	require.Len(t, events, 2)
	assert.Equal(t, Event{Name: EventError, Output: "connection refused"}, events[0])
	assert.True(t, events[1].IsDone())
}

func TestStream_StepDelayPacesEvents(t *testing.T) {
	delay := 20 * time.Millisecond
	start := time.Now()
	events := collect(newExecutor(constGenerator("x"), WithStepDelay(delay)).Stream(context.Background(), mealIdea))

	require.Len(t, events, 6)
	assert.GreaterOrEqual(t, time.Since(start), 5*delay)
}

func TestStream_CancelAbandonsRun(t *testing.T) {
	var calls int
	var mu sync.Mutex
	gen := llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return "research", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch := newExecutor(gen).Stream(ctx, mealIdea)

	first := <-ch
	assert.Equal(t, string(StepResearch), first.Name)
	cancel()

	rest := collect(ch)
	assert.Empty(t, rest)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, calls, 2, "no step after the abandoned one may start")
}

func TestExecutor_TracksActiveRuns(t *testing.T) {
	status := observability.NewStatus()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	gen := llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return "ok", nil
	})

	exec := newExecutor(gen, WithStatus(status))
	done := make(chan Record)
	go func() { done <- exec.Run(context.Background(), mealIdea) }()

	<-started
	assert.Equal(t, 1, status.ActiveRuns())
	close(release)
	rec := <-done
	assert.True(t, rec.Complete())
	assert.Equal(t, 0, status.ActiveRuns())
}

func TestRecord_Markdown(t *testing.T) {
	rec := newExecutor(failOnCall(2, "quota exceeded")).Run(context.Background(), mealIdea)
	md := rec.Markdown(mealIdea)

	assert.True(t, strings.HasPrefix(md, "# Blueprint: "+mealIdea))
	assert.Contains(t, md, "## Research Summary\n\n<echo>")
	assert.Contains(t, md, "## Error\n\nquota exceeded")
	assert.NotContains(t, md, "Parsed Features")
}

func TestRecord_UnmarshalOrdersBySteps(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"parsed_features":"b","research_summary":"a","error":"x"}`), &rec))

	assert.Equal(t, []string{"research_summary", "parsed_features"}, stepNames(rec.Steps()))
	assert.Equal(t, "x", rec.Error)

	assert.Error(t, json.Unmarshal([]byte(`{"bogus":"1"}`), &rec))
}
