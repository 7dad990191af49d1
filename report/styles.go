package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/jadesonbruno/dataquality/rules"
)

// Styles holds the terminal styles of the console report.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

// NewStyles builds styles for w. Colors are dropped automatically when w is
// not a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    r.NewStyle().Bold(true),
	}
}

func (s Styles) severity(sev rules.Severity) lipgloss.Style {
	switch sev {
	case rules.SeverityCritical:
		return s.Error
	case rules.SeverityWarning:
		return s.Warning
	case rules.SeverityInfo:
		return s.Info
	default:
		return s.Muted
	}
}

func (s Styles) status(passed bool) string {
	if passed {
		return s.Success.Render("PASS")
	}
	return s.Error.Render("FAIL")
}
