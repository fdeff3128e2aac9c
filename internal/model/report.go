package model

// Report holds the outcome of checking a single source file.
type Report struct {
	RunID      string
	Source     Source
	Findings   []Finding
	GuardFound bool // the canonical guard was recognised
	Exempt     bool // no guard, but the file is allowed to omit it
}

// Worst returns the highest severity among the findings, or 0 when there are none.
func (r Report) Worst() Severity {
	var worst Severity

	for _, f := range r.Findings {
		if f.Severity > worst {
			worst = f.Severity
		}
	}

	return worst
}

// Count returns how many findings have the given severity.
func (r Report) Count(s Severity) int {
	n := 0

	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}

	return n
}
