package agent

import (
	"context"
	"strings"

	"github.com/rahul/blueprint/internal/llm"
)

// StepName identifies one stage of the blueprint chain.
type StepName string

const (
	StepResearch     StepName = "research_summary"
	StepFeatures     StepName = "parsed_features"
	StepArchitecture StepName = "architecture_plan"
	StepTechStack    StepName = "tech_stack"
	StepSecurity     StepName = "security_recommendations"
)

// StepOrder is the fixed execution order of the chain.
var StepOrder = []StepName{
	StepResearch,
	StepFeatures,
	StepArchitecture,
	StepTechStack,
	StepSecurity,
}

var stepTitles = map[StepName]string{
	StepResearch:     "Research Summary",
	StepFeatures:     "Parsed Features",
	StepArchitecture: "Architecture Plan",
	StepTechStack:    "Tech Stack",
	StepSecurity:     "Security & Infrastructure",
}

// stepSources maps a step to the step whose output it consumes.
// The first step consumes the product idea.
var stepSources = map[StepName]StepName{
	StepFeatures:     StepResearch,
	StepArchitecture: StepFeatures,
	StepTechStack:    StepArchitecture,
	StepSecurity:     StepArchitecture,
}

// Title returns the human readable name of the step.
func (n StepName) Title() string {
	if t, ok := stepTitles[n]; ok {
		return t
	}
	return string(n)
}

// Valid reports whether n is one of the five chain steps.
func (n StepName) Valid() bool {
	_, ok := stepTitles[n]
	return ok
}

// Step is a prompt template bound to a generator.
type Step struct {
	Name StepName
	// Source is the step whose output feeds this one. Empty means the product idea.
	Source    StepName
	Template  string
	Generator llm.Generator
}

// Prompt renders the template around input.
func (s Step) Prompt(input string) string {
	return strings.Replace(s.Template, InputPlaceholder, input, 1)
}

// Execute runs one generation. Failures come back as *llm.GenerationFailure.
func (s Step) Execute(ctx context.Context, input string) (string, error) {
	out, err := s.Generator.Generate(ctx, s.Prompt(input))
	if err != nil {
		return "", llm.Fail("", err)
	}
	return out, nil
}

// NewSteps binds the five templates to gen in chain order.
func NewSteps(gen llm.Generator, templates map[StepName]string) []Step {
	steps := make([]Step, 0, len(StepOrder))
	for _, name := range StepOrder {
		tmpl, ok := templates[name]
		if !ok {
			tmpl = defaultTemplates[name]
		}
		steps = append(steps, Step{
			Name:      name,
			Source:    stepSources[name],
			Template:  tmpl,
			Generator: gen,
		})
	}
	return steps
}
