package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// RuleOutcome is the pass/fail result of one rule in one run.
type RuleOutcome struct {
	Rule          Rule   `json:"rule"`
	Passed        bool   `json:"passed"`
	ObservedValue any    `json:"observed_value,omitempty"`
	Message       string `json:"message"`
	// Error is set when the data could not be read.
	Error string `json:"error,omitempty"`
	err   error
}

// Err returns the data access error behind a failed outcome, if any.
func (o RuleOutcome) Err() error {
	return o.err
}

// RunResult is the aggregate outcome of executing a suite once.
// It is never modified after Run returns.
type RunResult struct {
	RunID      string        `json:"run_id"`
	RunName    string        `json:"run_name"`
	Suite      string        `json:"suite"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcomes   []RuleOutcome `json:"outcomes"`
	Success    bool          `json:"success"`
}

// Statistics summarizes a run.
type Statistics struct {
	Evaluated      int     `json:"evaluated"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	CriticalFailed int     `json:"critical_failed"`
	SuccessPercent float64 `json:"success_percent"`
}

// Statistics counts passed and failed outcomes.
func (r *RunResult) Statistics() Statistics {
	var s Statistics
	for _, o := range r.Outcomes {
		s.Evaluated++
		if o.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		if o.Rule.Severity.AtLeast(SeverityCritical) {
			s.CriticalFailed++
		}
	}
	if s.Evaluated > 0 {
		s.SuccessPercent = float64(s.Passed) * 100 / float64(s.Evaluated)
	} else {
		s.SuccessPercent = 100
	}
	return s
}

// Duration is how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clone returns a deep copy that shares no slices or maps with r.
func (r *RunResult) Clone() *RunResult {
	c := *r
	c.Outcomes = slices.Clone(r.Outcomes)
	for i := range c.Outcomes {
		c.Outcomes[i].Rule = c.Outcomes[i].Rule.clone()
	}
	return &c
}

// Describe renders a deterministic summary: one line per outcome in suite
// order, followed by the totals.
func (r *RunResult) Describe() string {
	var b strings.Builder

	status := "SUCCEEDED"
	if !r.Success {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Validation of suite %q %s (run %s)\n", r.Suite, status, r.RunName)

	for i, o := range r.Outcomes {
		mark := "PASS"
		if !o.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%3d. %-4s %-27s %-10s %-8s observed=%s  %s\n",
			i+1, mark, o.Rule.Kind, o.Rule.Target(), o.Rule.Severity, formatObserved(o.ObservedValue), o.Message)
	}

	s := r.Statistics()
	fmt.Fprintf(&b, "Total: %d, passed: %d, failed: %d, critical failed: %d (%.1f%% success)\n",
		s.Evaluated, s.Passed, s.Failed, s.CriticalFailed, s.SuccessPercent)
	return b.String()
}

func formatObserved(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}
