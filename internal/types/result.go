// Package types defines shared type definitions used across all sshcheck packages.
package types

import "time"

// Verdict is the classification produced by evaluating one rule.
type Verdict string

const (
	// VerdictPass means the directive state satisfies the rule.
	VerdictPass Verdict = "pass"
	// VerdictFail means the directive state violates the rule.
	VerdictFail Verdict = "fail"
	// VerdictWarning means the rule is not satisfied but the risk is lower,
	// or the rule could not be evaluated.
	VerdictWarning Verdict = "warning"
)

// Rating bands for the score. The thresholds are part of the report contract.
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingFair      = "fair"
	RatingPoor      = "poor"
)

// CheckResult holds the outcome of evaluating a single rule.
type CheckResult struct {
	// ID is the stable snake_case rule identifier.
	ID string `json:"id"`

	// Name is the human-readable rule name. It is also the remediation
	// dispatch key.
	Name string `json:"name"`

	// Category is the rule family (authentication, protocol, ...).
	Category string `json:"category"`

	// Description explains what the rule verifies.
	Description string `json:"description,omitempty"`

	// Verdict is the rule outcome.
	Verdict Verdict `json:"verdict"`

	// Details describes the observed directive state.
	Details string `json:"details,omitempty"`

	// Remediation describes how to fix a non-passing result. Empty on pass.
	Remediation string `json:"remediation,omitempty"`

	// Fixable reports whether the rule can be corrected by writing one directive.
	Fixable bool `json:"fixable"`

	// Duration is how long the rule took to evaluate (not serialized to JSON).
	Duration time.Duration `json:"-"`

	// DurationMS is the duration in milliseconds for JSON serialization.
	DurationMS int64 `json:"duration_ms"`
}

// Passed reports whether the verdict is VerdictPass.
func (r CheckResult) Passed() bool {
	return r.Verdict == VerdictPass
}

// ResultSet is the ordered outcome of one evaluation pass.
// Order is rule execution order.
type ResultSet struct {
	results []CheckResult
}

// NewResultSet creates a ResultSet holding the given results in order.
func NewResultSet(results ...CheckResult) *ResultSet {
	rs := &ResultSet{}
	for _, r := range results {
		rs.Add(r)
	}
	return rs
}

// Add appends a result.
func (rs *ResultSet) Add(r CheckResult) {
	rs.results = append(rs.results, r)
}

// Results returns a copy of the results in insertion order.
func (rs *ResultSet) Results() []CheckResult {
	out := make([]CheckResult, len(rs.results))
	copy(out, rs.results)
	return out
}

// Total is the number of results.
func (rs *ResultSet) Total() int {
	return len(rs.results)
}

// Passed is the number of passing results.
func (rs *ResultSet) Passed() int {
	return rs.count(VerdictPass)
}

// Failed is the number of failing results.
func (rs *ResultSet) Failed() int {
	return rs.count(VerdictFail)
}

// Warnings is the number of warning results.
func (rs *ResultSet) Warnings() int {
	return rs.count(VerdictWarning)
}

func (rs *ResultSet) count(v Verdict) int {
	n := 0
	for _, r := range rs.results {
		if r.Verdict == v {
			n++
		}
	}
	return n
}

// Score is passes/total*100, or 0 for an empty set.
func (rs *ResultSet) Score() float64 {
	if rs.Total() == 0 {
		return 0
	}
	return float64(rs.Passed()) * 100 / float64(rs.Total())
}

// Rating maps the score onto its qualitative band.
func (rs *ResultSet) Rating() string {
	return RatingFor(rs.Score())
}

// RatingFor maps a score onto its band: >=90 excellent, >=70 good,
// >=50 fair, otherwise poor.
func RatingFor(score float64) string {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 70:
		return RatingGood
	case score >= 50:
		return RatingFair
	default:
		return RatingPoor
	}
}

// Find returns the result with the given rule name.
func (rs *ResultSet) Find(name string) (CheckResult, bool) {
	for _, r := range rs.results {
		if r.Name == name {
			return r, true
		}
	}
	return CheckResult{}, false
}

// AllPassed reports whether no result failed. Warnings do not count.
func (rs *ResultSet) AllPassed() bool {
	return rs.Failed() == 0
}
