package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jadesonbruno/dataquality/rules"
)

// ConsoleSink prints a result as a table followed by its totals.
type ConsoleSink struct {
	w           io.Writer
	styles      Styles
	onlyFailing bool
}

// ConsoleOption configures a ConsoleSink.
type ConsoleOption func(*ConsoleSink)

// OnlyFailing hides passing outcomes from the table.
func OnlyFailing() ConsoleOption {
	return func(s *ConsoleSink) {
		s.onlyFailing = true
	}
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer, opts ...ConsoleOption) *ConsoleSink {
	s := &ConsoleSink{w: w, styles: NewStyles(w)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Publish(_ context.Context, r *rules.RunResult) error {
	st := s.styles

	status := st.Success.Render("SUCCEEDED")
	if !r.Success {
		status = st.Error.Render("FAILED")
	}
	if _, err := fmt.Fprintf(s.w, "%s %s %s\n",
		st.Bold.Render("Suite "+r.Suite), status, st.Muted.Render("("+r.RunName+", "+r.Source+")")); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(s.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Status", "Rule", "Target", "Severity", "Observed", "Message"})

	shown := 0
	for i, o := range r.Outcomes {
		if s.onlyFailing && o.Passed {
			continue
		}
		msg := truncate(o.Message, 80)
		if o.Rule.Notes != "" {
			msg += " " + st.Muted.Render("("+o.Rule.Notes+")")
		}
		t.AppendRow(table.Row{
			i + 1,
			st.status(o.Passed),
			string(o.Rule.Kind),
			o.Rule.Target(),
			st.severity(o.Rule.Severity).Render(string(o.Rule.Severity)),
			formatObserved(o.ObservedValue),
			msg,
		})
		shown++
	}
	if shown > 0 {
		t.Render()
	}

	stats := r.Statistics()
	_, err := fmt.Fprintf(s.w, "Total: %d, passed: %d, failed: %d, critical failed: %d (%.1f%% success) in %s\n",
		stats.Evaluated, stats.Passed, stats.Failed, stats.CriticalFailed, stats.SuccessPercent, r.Duration().Round(time.Millisecond))
	return err
}

func formatObserved(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return text.Trim(s, maxLen-3) + "..."
}

var _ rules.Sink = (*ConsoleSink)(nil)
