// Package output renders a check report as monitoring plugin text.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

type State int

const (
	StateOK State = iota
	StateWarn
	StateCrit
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarn:
		return "WARN"
	case StateCrit:
		return "CRIT"
	default:
		return "UNKNOWN"
	}
}

// ExitCode is the plugin exit status for s.
func (s State) ExitCode() int {
	return int(s)
}

// StateOf folds NOTICE into OK.
func StateOf(s check.Severity) State {
	switch s {
	case check.WarnSeverity:
		return StateWarn
	case check.CritSeverity:
		return StateCrit
	default:
		return StateOK
	}
}

func marker(s check.Severity) string {
	switch s {
	case check.WarnSeverity:
		return "(!)"
	case check.CritSeverity:
		return "(!!)"
	default:
		return ""
	}
}

// Format renders report. The first line is the state and the summary of every
// non-NOTICE result, followed by performance data; one detail line per result follows.
func Format(report check.Collection) string {
	var b strings.Builder
	b.WriteString(StateOf(report.Status()).String())
	if summary := Summary(report); summary != "" {
		b.WriteString(" - ")
		b.WriteString(summary)
	}
	if perf := perfData(report.Metrics()); perf != "" {
		b.WriteString(" | ")
		b.WriteString(perf)
	}
	for _, r := range report.Results() {
		b.WriteByte('\n')
		b.WriteString(r.Detail())
		b.WriteString(marker(r.Severity))
	}
	return b.String()
}

// Summary joins the summary of every non-NOTICE result, each with its marker.
func Summary(report check.Collection) string {
	var parts []string
	for _, r := range report.Results() {
		if r.Severity == check.NoticeSeverity {
			continue
		}
		parts = append(parts, r.Summary+marker(r.Severity))
	}
	return strings.Join(parts, ", ")
}

// Write prints the rendered report and returns its state.
func Write(w io.Writer, report check.Collection) (State, error) {
	if _, err := fmt.Fprintln(w, Format(report)); err != nil {
		return StateUnknown, fmt.Errorf("failed to write report: %w", err)
	}
	return StateOf(report.Status()), nil
}

// Unknown reports a problem that prevented the check from running.
func Unknown(w io.Writer, err error) State {
	fmt.Fprintf(w, "%s - %v\n", StateUnknown, err)
	return StateUnknown
}

func perfData(metrics []check.Metric) string {
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		parts = append(parts, fmt.Sprintf("%s=%s;%s;%s",
			m.Label, formatFloat(m.Value), formatLevel(m.Warn), formatLevel(m.Crit)))
	}
	return strings.Join(parts, " ")
}

func formatLevel(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
