package sla

import (
	"math"
	"slices"
	"time"
)

// All helpers work on the wall clock of the location carried by the time
// values they receive. Derived times are always built with time.Date, so
// inputs are never modified and DST transitions normalize naturally.

func atHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}

// addDays moves t by n calendar days keeping its wall-clock time.
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func earliest(ts ...time.Time) time.Time {
	first := ts[0]
	for _, t := range ts[1:] {
		if t.Before(first) {
			first = t
		}
	}
	return first
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// minutesDuration saturates at maxHorizonMinutes in either direction so a
// projection can never wrap around past its start.
func minutesDuration(minutes float64) time.Duration {
	switch {
	case math.IsNaN(minutes):
		return 0
	case minutes > maxHorizonMinutes:
		minutes = maxHorizonMinutes
	case minutes < -maxHorizonMinutes:
		minutes = -maxHorizonMinutes
	}
	return time.Duration(minutes * float64(time.Minute))
}

func horizonDays(days float64) int {
	switch {
	case math.IsNaN(days):
		return 0
	case days > maxHorizonDays:
		return maxHorizonDays
	case days < -maxHorizonDays:
		return -maxHorizonDays
	}
	return int(days)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether t's calendar date is listed in holidays.
func IsHoliday(t time.Time, holidays []string) bool {
	if len(holidays) == 0 {
		return false
	}
	return slices.Contains(holidays, t.Format(dateLayout))
}

func IsBusinessDay(t time.Time, cfg BusinessHoursConfig) bool {
	if cfg.ExcludeWeekends && IsWeekend(t) {
		return false
	}
	return !IsHoliday(t, cfg.Holidays)
}

// IsBusinessHour reports whether t lies in [StartHour:00, EndHour:00) on a
// business day. The end instant itself is outside the window.
func IsBusinessHour(t time.Time, cfg BusinessHoursConfig) bool {
	if !IsBusinessDay(t, cfg) {
		return false
	}
	m := minuteOfDay(t)
	return m >= cfg.StartHour*60 && m < cfg.EndHour*60
}

func BusinessDayStart(t time.Time, cfg BusinessHoursConfig) time.Time {
	return atHour(t, cfg.StartHour)
}

func BusinessDayEnd(t time.Time, cfg BusinessHoursConfig) time.Time {
	return atHour(t, cfg.EndHour)
}

// NextBusinessDayStart returns the start of the first business day strictly
// after t's calendar date.
func NextBusinessDayStart(t time.Time, cfg BusinessHoursConfig) time.Time {
	next := atHour(addDays(t, 1), cfg.StartHour)
	for !IsBusinessDay(next, cfg) {
		next = atHour(addDays(next, 1), cfg.StartHour)
	}
	return next
}

// PreviousBusinessDayEnd returns the end of the last business day strictly
// before t's calendar date.
func PreviousBusinessDayEnd(t time.Time, cfg BusinessHoursConfig) time.Time {
	prev := atHour(addDays(t, -1), cfg.EndHour)
	for !IsBusinessDay(prev, cfg) {
		prev = atHour(addDays(prev, -1), cfg.EndHour)
	}
	return prev
}

// BusinessMinutes counts whole minutes between start and end that fall inside
// business hours. Each day's contribution is truncated to whole minutes.
func BusinessMinutes(start, end time.Time, cfg BusinessHoursConfig) int {
	if !end.After(start) {
		return 0
	}

	total := 0
	current := start
	for current.Before(end) {
		if !IsBusinessDay(current, cfg) {
			current = atHour(addDays(current, 1), cfg.StartHour)
			continue
		}

		dayStart := BusinessDayStart(current, cfg)
		dayEnd := BusinessDayEnd(current, cfg)
		if !current.Before(dayEnd) {
			current = NextBusinessDayStart(current, cfg)
			continue
		}

		effectiveStart := current
		if dayStart.After(effectiveStart) {
			effectiveStart = dayStart
		}
		effectiveEnd := earliest(end, dayEnd, nextMidnight(current))
		if effectiveEnd.After(effectiveStart) {
			total += wholeMinutes(effectiveEnd.Sub(effectiveStart))
		}

		current = NextBusinessDayStart(current, cfg)
	}
	return total
}

// TotalMinutes is the number of whole calendar minutes from start to end.
func TotalMinutes(start, end time.Time) int {
	return wholeMinutes(end.Sub(start))
}

func BusinessHours(start, end time.Time, cfg BusinessHoursConfig) float64 {
	return float64(BusinessMinutes(start, end, cfg)) / minutesPerHour
}

// ConvertToMinutes converts a target value into minutes. Unknown units are
// treated as hours.
func ConvertToMinutes(value float64, unit TargetUnit, cfg BusinessHoursConfig) float64 {
	switch unit {
	case UnitMinutes:
		return value
	case UnitHours, UnitBusinessHours:
		return value * minutesPerHour
	case UnitDays:
		return value * minutesPerDay
	case UnitBusinessDays:
		perDay := (cfg.EndHour - cfg.StartHour) * 60
		if perDay <= 0 {
			perDay = minutesPerBusinessDay
		}
		return value * float64(perDay)
	case UnitWeeks:
		return value * minutesPerWeek
	default:
		return value * minutesPerHour
	}
}

// Deadline projects the due time of a target starting at start. Only the
// business_* units skip non-business time; hours, days and weeks are plain
// calendar arithmetic.
func Deadline(start time.Time, value float64, unit TargetUnit, cfg BusinessHoursConfig) time.Time {
	switch unit {
	case UnitMinutes:
		return start.Add(minutesDuration(value))
	case UnitHours:
		return start.Add(minutesDuration(value * minutesPerHour))
	case UnitBusinessHours:
		return AddBusinessMinutes(start, value*minutesPerHour, cfg)
	case UnitDays:
		return addDays(start, horizonDays(value))
	case UnitWeeks:
		return addDays(start, horizonDays(value*7))
	case UnitBusinessDays:
		return AddBusinessDays(start, value, cfg)
	default:
		return start.Add(minutesDuration(value * minutesPerHour))
	}
}

// AddBusinessMinutes advances start by the given amount of business time. A
// start outside business hours is first moved to the next window opening.
func AddBusinessMinutes(start time.Time, minutes float64, cfg BusinessHoursConfig) time.Time {
	if cfg.EndHour <= cfg.StartHour {
		// No business window to consume.
		return start.Add(minutesDuration(minutes))
	}

	current := start
	if !IsBusinessHour(current, cfg) {
		switch {
		case !IsBusinessDay(current, cfg):
			current = NextBusinessDayStart(current, cfg)
		case minuteOfDay(current) < cfg.StartHour*60:
			current = BusinessDayStart(current, cfg)
		default:
			current = NextBusinessDayStart(current, cfg)
		}
	}

	limit := addDays(start, maxHorizonDays)
	remaining := minutes
	for remaining > 0 && current.Before(limit) {
		available := math.Floor(BusinessDayEnd(current, cfg).Sub(current).Minutes())
		if remaining <= available {
			return current.Add(minutesDuration(remaining))
		}
		if available > 0 {
			remaining -= available
		}
		current = NextBusinessDayStart(current, cfg)
	}
	return current
}

// AddBusinessDays steps forward one calendar day at a time, counting only
// business days. The time of day of start is preserved and not snapped.
func AddBusinessDays(start time.Time, days float64, cfg BusinessHoursConfig) time.Time {
	current := start
	remaining := days
	for steps := 0; remaining > 0 && steps < maxHorizonDays; steps++ {
		current = addDays(current, 1)
		if IsBusinessDay(current, cfg) {
			remaining--
		}
	}
	return current
}
