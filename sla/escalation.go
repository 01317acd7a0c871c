package sla

import (
	"fmt"
	"sort"
	"strings"
)

// byTriggerDesc orders levels by trigger percentage, highest first. Levels
// sharing a trigger keep their input order, so the first one listed wins.
func byTriggerDesc(levels []EscalationLevel) []EscalationLevel {
	sorted := make([]EscalationLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TriggerPercentage > sorted[j].TriggerPercentage
	})
	return sorted
}

func activeLevel(percentage float64, levels []EscalationLevel) (EscalationLevel, bool) {
	for _, l := range byTriggerDesc(levels) {
		if l.TriggerPercentage <= percentage {
			return l, true
		}
	}
	return EscalationLevel{}, false
}

// DetermineEscalationLevel returns the level number of the highest level whose
// trigger has been reached, or 0 when none has.
func DetermineEscalationLevel(percentage float64, levels []EscalationLevel) int {
	l, ok := activeLevel(percentage, levels)
	if !ok {
		return 0
	}
	return l.LevelNumber
}

// StatusFor classifies the active level. A level named "critical" or
// triggering above 125% is critical; one named "breach" or triggering at 100%
// or more is a breach; anything else is a warning.
func StatusFor(percentage float64, levels []EscalationLevel) Status {
	current := DetermineEscalationLevel(percentage, levels)
	if current == 0 {
		return StatusPending
	}

	var level *EscalationLevel
	for i := range levels {
		if levels[i].LevelNumber == current {
			level = &levels[i]
			break
		}
	}
	if level == nil {
		return StatusPending
	}

	name := level.LevelName
	switch {
	case strings.EqualFold(name, "critical") || level.TriggerPercentage > 125:
		return StatusCritical
	case strings.EqualFold(name, "breach") || level.TriggerPercentage >= 100:
		return StatusBreach
	default:
		return StatusWarning
	}
}

// FindLevel returns the level with the given number.
func FindLevel(levelNumber int, levels []EscalationLevel) (EscalationLevel, bool) {
	for _, l := range levels {
		if l.LevelNumber == levelNumber {
			return l, true
		}
	}
	return EscalationLevel{}, false
}

// ValidateEscalationLevels rejects ladders whose evaluation would be ambiguous:
// non-positive or repeated level numbers and repeated trigger percentages.
func ValidateEscalationLevels(levels []EscalationLevel) error {
	numbers := make(map[int]struct{}, len(levels))
	triggers := make(map[float64]int, len(levels))
	for _, l := range levels {
		if l.LevelNumber <= 0 {
			return fmt.Errorf("%w: level number must be positive, got %d", ErrInvalidEscalationLevels, l.LevelNumber)
		}
		if _, dup := numbers[l.LevelNumber]; dup {
			return fmt.Errorf("%w: duplicate level number %d", ErrInvalidEscalationLevels, l.LevelNumber)
		}
		numbers[l.LevelNumber] = struct{}{}

		if other, dup := triggers[l.TriggerPercentage]; dup {
			return fmt.Errorf("%w: levels %d and %d share trigger percentage %g",
				ErrInvalidEscalationLevels, other, l.LevelNumber, l.TriggerPercentage)
		}
		triggers[l.TriggerPercentage] = l.LevelNumber
	}
	return nil
}
