package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rahul/blueprint/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_ExecuteIsIdempotent(t *testing.T) {
	steps := NewSteps(echoPrompt(), nil)
	for _, step := range steps {
		a, err := step.Execute(context.Background(), mealIdea)
		require.NoError(t, err)
		b, err := step.Execute(context.Background(), mealIdea)
		require.NoError(t, err)
		assert.Equal(t, a, b, step.Name)
	}
}

func TestStep_ExecuteWrapsFailure(t *testing.T) {
	step := NewSteps(llm.FuncGenerator(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("503 service unavailable")
	}), nil)[0]

	_, err := step.Execute(context.Background(), mealIdea)
	require.Error(t, err)

	var gf *llm.GenerationFailure
	assert.True(t, errors.As(err, &gf))
	assert.Equal(t, "503 service unavailable", err.Error())
}

func TestPipeline_PromptsEmbedPreviousOutput(t *testing.T) {
	gen := &recordingGenerator{next: echoPrompt()}
	rec := newExecutor(gen).Run(context.Background(), mealIdea)
	require.True(t, rec.Complete())
	require.Len(t, gen.prompts, 5)

	research, _ := rec.Get(StepResearch)
	features, _ := rec.Get(StepFeatures)
	architecture, _ := rec.Get(StepArchitecture)
	techStack, _ := rec.Get(StepTechStack)
	security, _ := rec.Get(StepSecurity)

	assert.Contains(t, gen.prompts[0], mealIdea)
	assert.Contains(t, gen.prompts[1], research)
	assert.Contains(t, gen.prompts[2], features)
	assert.Contains(t, gen.prompts[3], architecture)
	assert.Contains(t, gen.prompts[4], architecture)

	// security consumes the architecture plan, not the tech stack
	assert.NotContains(t, security, techStack)
	assert.NotContains(t, security, "Tech Stack Strategist")
}

func TestNewSteps_SourcesAndOrder(t *testing.T) {
	steps := NewSteps(echoPrompt(), map[StepName]string{StepResearch: "idea: {{input}}"})
	require.Len(t, steps, 5)

	want := map[StepName]StepName{
		StepResearch:     "",
		StepFeatures:     StepResearch,
		StepArchitecture: StepFeatures,
		StepTechStack:    StepArchitecture,
		StepSecurity:     StepArchitecture,
	}
	for i, step := range steps {
		assert.Equal(t, StepOrder[i], step.Name)
		assert.Equal(t, want[step.Name], step.Source)
	}
	assert.Equal(t, "idea: x", steps[0].Prompt("x"))
	assert.True(t, strings.Contains(steps[1].Template, "Product Feature Analyst"))
}
