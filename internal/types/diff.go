package types

// VerdictChange records a rule whose verdict differs between two passes.
type VerdictChange struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Before Verdict `json:"before"`
	After  Verdict `json:"after"`
}

// Improved reports whether the change moved the rule to a passing verdict.
func (c VerdictChange) Improved() bool {
	return c.After == VerdictPass && c.Before != VerdictPass
}

// Diff returns the rules whose verdict changed from before to after, in
// after's order. Rules are matched by ID; a rule present on only one side
// is not reported.
func Diff(before, after *ResultSet) []VerdictChange {
	prev := make(map[string]Verdict, before.Total())
	for _, r := range before.results {
		prev[r.ID] = r.Verdict
	}

	var out []VerdictChange
	for _, r := range after.results {
		v, ok := prev[r.ID]
		if !ok || v == r.Verdict {
			continue
		}
		out = append(out, VerdictChange{ID: r.ID, Name: r.Name, Before: v, After: r.Verdict})
	}
	return out
}
