// Package policy gates run starts with an OPA prescreen over the applicant
// payload. The prescreen is a cheap eligibility check, not the decision:
// anything it lets through still goes to the full deliberation.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Prescreen decisions.
const (
	DecisionAllow  = "allow"
	DecisionReview = "review"
	DecisionBlock  = "block"
)

// Engine is the OPA prescreen engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new prescreen engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.case_prescreen.decision"),
		rego.Module("case_prescreen.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the prescreen policy against the applicant payload.
// Input is a map with an "applicant" key holding the decoded payload.
// Returns one of allow, review, block.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate prescreen: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means it was
		// replaced with one that doesn't. Fail open to the debate.
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the default prescreen policy content.
const DefaultPolicy = `
package case_prescreen

default decision = "allow"

# A run cannot start without an applicant record.
decision = "block" {
	not input.applicant
}

# Non-positive loan amounts are malformed input.
decision = "block" {
	input.applicant.loan_amount <= 0
}

# Very low scores are flagged for the transcript but still deliberated.
decision = "review" {
	input.applicant.loan_amount > 0
	input.applicant.credit_score < 450
}
`
