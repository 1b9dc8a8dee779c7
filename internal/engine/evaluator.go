package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// Evaluator runs a catalog against one environment.
type Evaluator struct {
	rules []Rule
	env   *Env
}

// NewEvaluator creates an Evaluator for rules and env.
func NewEvaluator(rules []Rule, env *Env) *Evaluator {
	return &Evaluator{rules: rules, env: env}
}

// Run evaluates every rule in catalog order. It always returns one result
// per rule; a rule that errors or panics is recorded as a warning.
func (e *Evaluator) Run(ctx context.Context) *types.ResultSet {
	rs := types.NewResultSet()
	for _, r := range e.rules {
		rs.Add(e.RunRule(ctx, r))
	}
	return rs
}

// RunRule evaluates a single rule.
func (e *Evaluator) RunRule(ctx context.Context, r Rule) (result types.CheckResult) {
	start := time.Now()
	log := logging.From(ctx)

	result = types.CheckResult{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Fixable:     r.Fixable(),
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("engine", "check panicked", "rule", r.ID, "panic", fmt.Sprint(p))
			result.Verdict = types.VerdictWarning
			result.Details = fmt.Sprintf("Check could not be evaluated: %v", p)
			result.Remediation = "Verify this setting manually"
		}
		result.Duration = time.Since(start)
		result.DurationMS = result.Duration.Milliseconds()
	}()

	if err := ctx.Err(); err != nil {
		result.Verdict = types.VerdictWarning
		result.Details = "Evaluation cancelled: " + err.Error()
		return result
	}

	f, err := r.Check(ctx, e.env)
	if err != nil {
		log.Warn("engine", "check failed", "rule", r.ID, "error", err.Error())
		result.Verdict = types.VerdictWarning
		result.Details = "Check could not be evaluated: " + err.Error()
		result.Remediation = "Verify this setting manually"
		return result
	}

	result.Verdict = f.Verdict
	result.Details = f.Details
	if f.Verdict != types.VerdictPass {
		result.Remediation = r.Remediation
		if f.Remediation != "" {
			result.Remediation = f.Remediation
		}
	}
	log.Debug("engine", "rule evaluated", "rule", r.ID, "verdict", string(result.Verdict))
	return result
}
