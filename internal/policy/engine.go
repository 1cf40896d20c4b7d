// Package policy evaluates bot configurations against rego rules.
package policy

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
)

const query = "data.bot_policy.deny"

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must declare package bot_policy and a partial set rule deny.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("bot_policy.rego", policyContent),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: prepared}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the sorted violation messages for input. An empty result
// means the input is acceptable.
func (e *Engine) Evaluate(ctx context.Context, input any) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	violations := make([]string, 0, len(values))
	for _, v := range values {
		violations = append(violations, fmt.Sprint(v))
	}
	sort.Strings(violations)
	return violations, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package bot_policy

deny contains "gpt_model must not be empty" if {
	input.gpt_model == ""
}

deny contains "temperature must be between 0.0 and 2.0" if {
	input.temperature < 0
}

deny contains "temperature must be between 0.0 and 2.0" if {
	input.temperature > 2
}

deny contains "max_tokens must be positive" if {
	input.max_tokens <= 0
}

deny contains "max_tokens must not exceed 4096" if {
	input.max_tokens > 4096
}

deny contains msg if {
	not input.bot_type in {"chat", "completion"}
	msg := sprintf("bot_type %q is not supported", [input.bot_type])
}

deny contains "system_prompt must not exceed 4000 characters" if {
	count(input.system_prompt) > 4000
}

deny contains "completion bots need a system_prompt" if {
	input.bot_type == "completion"
	input.system_prompt == ""
}
`
