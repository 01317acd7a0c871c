package sla

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrInvalidBusinessHours    = errors.New("invalid business hours config")
	ErrInvalidEscalationLevels = errors.New("invalid escalation levels")
	ErrUnknownUnit             = errors.New("unknown target unit")
	ErrInvalidTarget           = errors.New("invalid target")
)

const (
	minutesPerHour        = 60
	minutesPerDay         = 1440
	minutesPerWeek        = 10080
	minutesPerBusinessDay = 480

	// MaxTargetMinutes caps accepted targets at five years of calendar time.
	MaxTargetMinutes = 5 * 366 * minutesPerDay

	// Projections never reach further than this from their start.
	maxHorizonDays    = 100 * 366
	maxHorizonMinutes = maxHorizonDays * minutesPerDay

	dateLayout = "2006-01-02"
)

// TargetUnit is the unit an SLA target is expressed in.
type TargetUnit string

const (
	UnitMinutes       TargetUnit = "minutes"
	UnitHours         TargetUnit = "hours"
	UnitBusinessHours TargetUnit = "business_hours"
	UnitDays          TargetUnit = "days"
	UnitBusinessDays  TargetUnit = "business_days"
	UnitWeeks         TargetUnit = "weeks"
)

// ParseTargetUnit validates a unit string. The calculator itself treats unknown
// units as hours; callers use this at input boundaries to reject them instead.
func ParseTargetUnit(s string) (TargetUnit, error) {
	switch u := TargetUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitMinutes, UnitHours, UnitBusinessHours, UnitDays, UnitBusinessDays, UnitWeeks:
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// IsBusinessTime reports whether elapsed time for this unit is measured in
// business minutes rather than calendar minutes.
func (u TargetUnit) IsBusinessTime() bool {
	return u == UnitBusinessHours || u == UnitBusinessDays
}

// Calendar returns the calendar counterpart of a business unit.
func (u TargetUnit) Calendar() TargetUnit {
	switch u {
	case UnitBusinessHours:
		return UnitHours
	case UnitBusinessDays:
		return UnitDays
	}
	return u
}

// Target is the allowed elapsed time before an SLA is breached.
type Target struct {
	Value float64    `json:"target_value"`
	Unit  TargetUnit `json:"target_unit"`
}

// Minutes converts the target into minutes under cfg.
func (t Target) Minutes(cfg BusinessHoursConfig) float64 {
	return ConvertToMinutes(t.Value, t.Unit, cfg)
}

// Validate rejects targets whose size exceeds MaxTargetMinutes. Zero and
// negative targets stay valid; the calculator reports them as 0%.
func (t Target) Validate(cfg BusinessHoursConfig) error {
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
		return fmt.Errorf("%w: value %v is not a number", ErrInvalidTarget, t.Value)
	}
	if m := math.Abs(t.Minutes(cfg)); m > MaxTargetMinutes {
		return fmt.Errorf("%w: %v %s is longer than %d minutes", ErrInvalidTarget, t.Value, t.Unit, MaxTargetMinutes)
	}
	return nil
}

// BusinessHoursConfig describes a tenant's working window. It is passed by
// value and never modified by the calculator.
type BusinessHoursConfig struct {
	StartHour       int      `json:"start_hour"`
	EndHour         int      `json:"end_hour"`
	Timezone        string   `json:"timezone"`
	ExcludeWeekends bool     `json:"exclude_weekends"`
	Holidays        []string `json:"holidays"`
}

// DefaultBusinessHours returns 09:00-17:00 America/New_York, Monday to Friday.
func DefaultBusinessHours() BusinessHoursConfig {
	return BusinessHoursConfig{
		StartHour:       9,
		EndHour:         17,
		Timezone:        "America/New_York",
		ExcludeWeekends: true,
		Holidays:        []string{},
	}
}

// Validate checks the invariants the calculator assumes but does not enforce.
func (c BusinessHoursConfig) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 || c.EndHour < 0 || c.EndHour > 23 {
		return fmt.Errorf("%w: hours must be within 0-23 (start=%d, end=%d)", ErrInvalidBusinessHours, c.StartHour, c.EndHour)
	}
	if c.EndHour <= c.StartHour {
		return fmt.Errorf("%w: end hour %d must be after start hour %d", ErrInvalidBusinessHours, c.EndHour, c.StartHour)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidBusinessHours, c.Timezone, err)
		}
	}
	seen := make(map[string]struct{}, len(c.Holidays))
	for _, h := range c.Holidays {
		if _, err := time.Parse(dateLayout, h); err != nil {
			return fmt.Errorf("%w: holiday %q is not a YYYY-MM-DD date", ErrInvalidBusinessHours, h)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: duplicate holiday %s", ErrInvalidBusinessHours, h)
		}
		seen[h] = struct{}{}
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c BusinessHoursConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalTime pins an instant to the tenant's wall clock.
func (c BusinessHoursConfig) LocalTime(t time.Time) time.Time {
	return t.In(c.Location())
}

// EscalationLevel is one rung of an escalation ladder. Only LevelNumber,
// LevelName and TriggerPercentage drive evaluation; the rest is carried
// through for the caller.
type EscalationLevel struct {
	LevelNumber       int     `json:"level_number"`
	LevelName         string  `json:"level_name"`
	TriggerPercentage float64 `json:"trigger_percentage"`

	NotifyEmail       bool     `json:"notify_email,omitempty"`
	EmailRecipients   []string `json:"email_recipients,omitempty"`
	NotifySlack       bool     `json:"notify_slack,omitempty"`
	SlackChannel      string   `json:"slack_channel,omitempty"`
	ShowBadge         bool     `json:"show_badge,omitempty"`
	BadgeColor        string   `json:"badge_color,omitempty"`
	CreateTask        bool     `json:"create_task,omitempty"`
	EscalateOwnership bool     `json:"escalate_ownership,omitempty"`
}

// ElapsedTimeResult is the outcome of measuring a start time against a target.
type ElapsedTimeResult struct {
	TotalMinutes       int     `json:"total_minutes"`
	BusinessMinutes    int     `json:"business_minutes"`
	PercentageOfTarget float64 `json:"percentage_of_target"`
	IsOverdue          bool    `json:"is_overdue"`
	OverdueMinutes     float64 `json:"overdue_minutes"`
}

// Status is the SLA state derived from the current escalation level.
type Status string

const (
	StatusPending  Status = "pending"
	StatusWarning  Status = "warning"
	StatusBreach   Status = "breach"
	StatusCritical Status = "critical"
)

// Rank orders statuses by severity.
func (s Status) Rank() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusBreach:
		return 2
	case StatusCritical:
		return 3
	}
	return 0
}

// Label is the display form of the status, e.g. "Breach".
func (s Status) Label() string {
	return cases.Title(language.English).String(string(s))
}
