// Copyright (C) 2025 Jeff Rose
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package check holds the leveled result model shared by every certificate rule:
// severities, single results, the ordered collection and the threshold checker.
package check

import (
	"fmt"
	"strings"
)

type Severity int

const (
	OKSeverity Severity = iota
	NoticeSeverity
	WarnSeverity
	CritSeverity
)

func (s Severity) String() string {
	switch s {
	case OKSeverity:
		return "OK"
	case NoticeSeverity:
		return "NOTICE"
	case WarnSeverity:
		return "WARN"
	case CritSeverity:
		return "CRIT"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Healthy reports whether s is OK or NOTICE. The two only differ in verbosity.
func (s Severity) Healthy() bool {
	return s <= NoticeSeverity
}

// ParseSeverity accepts the names returned by String, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "OK":
		return OKSeverity, nil
	case "NOTICE":
		return NoticeSeverity, nil
	case "WARN", "WARNING":
		return WarnSeverity, nil
	case "CRIT", "CRITICAL":
		return CritSeverity, nil
	}
	return OKSeverity, fmt.Errorf("unknown severity: %q", name)
}

// Metric is performance data attached to a result.
type Metric struct {
	Label string
	Value float64
	Warn  *float64
	Crit  *float64
}

// Map applies f to the value and to both levels.
func (m Metric) Map(f func(float64) float64) Metric {
	mapped := Metric{Label: m.Label, Value: f(m.Value)}
	if m.Warn != nil {
		w := f(*m.Warn)
		mapped.Warn = &w
	}
	if m.Crit != nil {
		c := f(*m.Crit)
		mapped.Crit = &c
	}
	return mapped
}

type Result struct {
	Severity Severity
	Summary  string
	Details  string
	Metric   *Metric
}

// Detail returns the verbose text of r, falling back to the summary.
func (r Result) Detail() string {
	if r.Details != "" {
		return r.Details
	}
	return r.Summary
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s", r.Severity, r.Detail())
}

func newResult(severity Severity, summary string) *Result {
	return &Result{Severity: severity, Summary: summary}
}

func OK(summary string) *Result { return newResult(OKSeverity, summary) }

// OKWithDetails is an OK result whose verbose line differs from its summary.
func OKWithDetails(summary, details string) *Result {
	return &Result{Severity: OKSeverity, Summary: summary, Details: details}
}

func Notice(summary string) *Result { return newResult(NoticeSeverity, summary) }

func Warn(summary string) *Result { return newResult(WarnSeverity, summary) }

func Crit(summary string) *Result { return newResult(CritSeverity, summary) }
