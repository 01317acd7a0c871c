package sla

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// roundTo rounds v to the given number of decimals. Negative zero prints as 0.
func roundTo(v float64, decimals int) string {
	scale := math.Pow10(decimals)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func round1(v float64) string {
	return roundTo(v, 1)
}

// FormatElapsedTime renders a minute count for display using calendar units
// (24h days, 7-day weeks) regardless of business hours.
func FormatElapsedTime(minutes float64) string {
	switch {
	case minutes < minutesPerHour:
		return fmt.Sprintf("%s min", roundTo(minutes, 0))
	case minutes < minutesPerDay:
		return round1(minutes/minutesPerHour) + " hrs"
	case minutes < minutesPerWeek:
		return round1(minutes/minutesPerDay) + " days"
	default:
		return round1(minutes/minutesPerWeek) + " weeks"
	}
}

// FormatTimeRemaining renders the distance to deadline, e.g. "3.5 hrs
// remaining" or "20 min overdue". A zero now means the current time.
func FormatTimeRemaining(deadline, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	diff := deadline.Sub(now).Minutes()
	if diff <= 0 {
		return FormatElapsedTime(math.Abs(diff)) + " overdue"
	}
	return FormatElapsedTime(diff) + " remaining"
}
