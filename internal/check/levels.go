package check

import (
	"errors"
	"fmt"
)

var ErrInvalidLevels = errors.New("invalid levels")

type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type Direction int

const (
	// LowerIsBad breaches when the value shrinks to a level, e.g. a countdown.
	LowerIsBad Direction = iota
	// UpperIsBad breaches when the value grows to a level, e.g. a latency.
	UpperIsBad
)

type Levels[T Number] struct {
	Warn      T
	Crit      T
	Direction Direction
}

func LowerLevels[T Number](warn, crit T) Levels[T] {
	return Levels[T]{Warn: warn, Crit: crit, Direction: LowerIsBad}
}

func UpperLevels[T Number](warn, crit T) Levels[T] {
	return Levels[T]{Warn: warn, Crit: crit, Direction: UpperIsBad}
}

// Validate rejects levels where crit sits before warn in the bad direction,
// since WARN could then never be reached.
func (l Levels[T]) Validate() error {
	switch l.Direction {
	case LowerIsBad:
		if l.Crit > l.Warn {
			return fmt.Errorf("%w: crit %v above warn %v", ErrInvalidLevels, l.Crit, l.Warn)
		}
	case UpperIsBad:
		if l.Crit < l.Warn {
			return fmt.Errorf("%w: crit %v below warn %v", ErrInvalidLevels, l.Crit, l.Warn)
		}
	default:
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidLevels, l.Direction)
	}
	return nil
}

// Evaluate returns the severity of value. A value that is not in breach is NOTICE.
func (l Levels[T]) Evaluate(value T) Severity {
	if l.Direction == UpperIsBad {
		switch {
		case value >= l.Crit:
			return CritSeverity
		case value >= l.Warn:
			return WarnSeverity
		}
		return NoticeSeverity
	}

	switch {
	case value <= l.Crit:
		return CritSeverity
	case value <= l.Warn:
		return WarnSeverity
	}
	return NoticeSeverity
}

// Check evaluates value and attaches it, with both levels, as metric label.
func (l Levels[T]) Check(value T, label, message string) Result {
	warn, crit := float64(l.Warn), float64(l.Crit)
	return Result{
		Severity: l.Evaluate(value),
		Summary:  message,
		Metric: &Metric{
			Label: label,
			Value: float64(value),
			Warn:  &warn,
			Crit:  &crit,
		},
	}
}
