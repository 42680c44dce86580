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

package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

type RuleType string

const (
	StandardRule RuleType = "standard"
	CertRule     RuleType = "cert"
)

type Rule struct {
	Name            string   `yaml:"name"`
	Type            RuleType `yaml:"type"`
	Tags            []string `yaml:"tags"`
	Notifications   []string `yaml:"notifications"`
	Condition       string   `yaml:"condition,omitempty"`
	MinDaysValidity int      `yaml:"minDaysValidity,omitempty"`
}

type RuleResult struct {
	Satisfied bool
	Message   string
	Error     error
}

var (
	ErrEmptyCondition = errors.New("rule condition cannot be empty")
	ErrInvalidSyntax  = errors.New("invalid rule syntax")
)

// EvaluationParams describes one finished check run of a target.
type EvaluationParams struct {
	Target string
	Tags   []string
	Status check.Severity
	// DaysRemaining is nil when no certificate could be read.
	DaysRemaining *float64
	FetchFailed   bool
	ResponseTime  time.Duration
}

func (r Rule) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("rule type must be specified")
	}
	switch r.Type {
	case StandardRule:
		if strings.TrimSpace(r.Condition) == "" {
			return ErrEmptyCondition
		}
		return nil
	case CertRule:
		if r.MinDaysValidity <= 0 {
			return fmt.Errorf("minDaysValidity must be positive")
		}
		return nil
	default:
		return fmt.Errorf("invalid rule type: %s", r.Type)
	}
}

func EvaluateRule(rule Rule, params EvaluationParams) RuleResult {
	if err := rule.Validate(); err != nil {
		return RuleResult{Error: err}
	}

	switch rule.Type {
	case StandardRule:
		return evaluateStandardRule(rule, params)
	case CertRule:
		return evaluateCertRule(rule, params.DaysRemaining)
	}
	return RuleResult{Error: fmt.Errorf("unsupported rule type: %s", rule.Type)}
}

func environment(params EvaluationParams) map[string]interface{} {
	days := -1.0
	if params.DaysRemaining != nil {
		days = *params.DaysRemaining
	}
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"target":        params.Target,
		"tags":          tags,
		"status":        params.Status.String(),
		"severity":      int(params.Status),
		"daysRemaining": days,
		"fetchFailed":   params.FetchFailed,
		"responseTime":  params.ResponseTime.Seconds(),
	}
}

func evaluateStandardRule(rule Rule, params EvaluationParams) RuleResult {
	if rule.Condition == "" {
		return RuleResult{Error: ErrEmptyCondition}
	}

	env := environment(params)
	program, err := expr.Compile(normalizeCondition(rule.Condition), expr.Env(env), expr.AsBool())
	if err != nil {
		return RuleResult{Error: fmt.Errorf("%w: %v", ErrInvalidSyntax, err)}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return RuleResult{Error: fmt.Errorf("rule evaluation failed: %w", err)}
	}

	satisfied, ok := result.(bool)
	if !ok {
		return RuleResult{Error: fmt.Errorf("rule must evaluate to boolean, got %T", result)}
	}

	return RuleResult{
		Satisfied: satisfied,
		Message:   fmt.Sprintf("Rule condition met: %s", rule.Name),
	}
}

const day = 24 * time.Hour

// normalizeCondition rewrites duration literals such as 2s, 720h or 30d into
// plain numbers in the unit of the variable they are compared with: seconds
// for responseTime, days otherwise.
func normalizeCondition(condition string) string {
	words := strings.Split(condition, " ")
	for i, word := range words {
		dur, ok := parseDurationLiteral(word)
		if !ok {
			continue
		}
		value := dur.Hours() / 24
		if comparedVariable(words, i) == "responseTime" {
			value = dur.Seconds()
		}
		words[i] = strconv.FormatFloat(value, 'f', -1, 64)
	}
	return strings.Join(words, " ")
}

// comparedVariable names the duration variable nearest to words[i], looking
// left first. It returns "" when the condition mentions neither.
func comparedVariable(words []string, i int) string {
	for j := i - 1; j >= 0; j-- {
		if v := durationVariable(words[j]); v != "" {
			return v
		}
	}
	for j := i + 1; j < len(words); j++ {
		if v := durationVariable(words[j]); v != "" {
			return v
		}
	}
	return ""
}

func durationVariable(word string) string {
	switch {
	case strings.Contains(word, "responseTime"):
		return "responseTime"
	case strings.Contains(word, "daysRemaining"):
		return "daysRemaining"
	default:
		return ""
	}
}

func parseDurationLiteral(word string) (time.Duration, bool) {
	if n, found := strings.CutSuffix(word, "d"); found {
		v, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return time.Duration(v) * day, true
	}
	dur, err := time.ParseDuration(word)
	if err != nil || !strings.ContainsAny(word, "hms") {
		return 0, false
	}
	return dur, true
}
