package sla

import (
	"math"
	"time"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ElapsedTime measures the time from start to end against a target. A zero
// end means now. Business units are measured in business minutes, every
// other unit in calendar minutes.
func ElapsedTime(start time.Time, target Target, cfg BusinessHoursConfig, end time.Time) ElapsedTimeResult {
	if end.IsZero() {
		end = time.Now()
	}

	targetMinutes := target.Minutes(cfg)
	businessTime := target.Unit.IsBusinessTime()

	total := TotalMinutes(start, end)
	business := total
	if businessTime {
		business = BusinessMinutes(start, end, cfg)
	}

	effective := total
	if businessTime {
		effective = business
	}

	var pct float64
	if targetMinutes > 0 {
		pct = round2(float64(effective) / targetMinutes * 100)
	}

	result := ElapsedTimeResult{
		TotalMinutes:       total,
		BusinessMinutes:    business,
		PercentageOfTarget: pct,
		IsOverdue:          float64(effective) > targetMinutes,
	}
	if result.IsOverdue {
		result.OverdueMinutes = float64(effective) - targetMinutes
	}
	return result
}

// Evaluation bundles everything a caller needs to track one SLA instance.
type Evaluation struct {
	Elapsed  ElapsedTimeResult `json:"elapsed"`
	Deadline time.Time         `json:"deadline"`
	Level    int               `json:"level"`
	Status   Status            `json:"status"`
}

// Evaluate measures start against target and maps the resulting percentage
// onto levels. A zero now means the current time.
func Evaluate(start time.Time, target Target, cfg BusinessHoursConfig, levels []EscalationLevel, now time.Time) Evaluation {
	if now.IsZero() {
		now = time.Now()
	}
	elapsed := ElapsedTime(start, target, cfg, now)
	return Evaluation{
		Elapsed:  elapsed,
		Deadline: Deadline(start, target.Value, target.Unit, cfg),
		Level:    DetermineEscalationLevel(elapsed.PercentageOfTarget, levels),
		Status:   StatusFor(elapsed.PercentageOfTarget, levels),
	}
}
