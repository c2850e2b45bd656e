package governance

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request is a product idea submitted by a user.
type Request struct {
	Idea   string
	UserID string
}

// Result contains the outcome of a policy evaluation. Idea is the
// trimmed text the pipeline should receive.
type Result struct {
	Effect Effect
	Reason string
	Idea   string
}

// PolicyEngine decides whether a product idea may enter the pipeline.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine checks emptiness, length and denied patterns. The
// idea itself is only trimmed; markup is stripped for pattern matching alone.
type DefaultPolicyEngine struct {
	MaxLength   int
	DeniedRegex []*regexp.Regexp
	sanitizer   *bluemonday.Policy
}

func NewDefaultPolicyEngine(maxLength int) *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		MaxLength:   maxLength,
		DeniedRegex: make([]*regexp.Regexp, 0),
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// plainText is the idea with markup removed, so `mal<b></b>ware` still
// matches a pattern for malware.
func (e *DefaultPolicyEngine) plainText(idea string) string {
	return html.UnescapeString(e.sanitizer.Sanitize(idea))
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return Result{Effect: EffectDeny, Reason: "product_idea is required"}, nil
	}

	if e.MaxLength > 0 && utf8.RuneCountInString(idea) > e.MaxLength {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("product_idea exceeds %d characters", e.MaxLength),
		}, nil
	}

	plain := e.plainText(idea)
	for _, re := range e.DeniedRegex {
		if re.MatchString(idea) || re.MatchString(plain) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("product_idea matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
		Idea:   idea,
	}, nil
}
