package db

import (
	"time"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

// ===========================
// BUSINESS HOURS MODELS
// ===========================

// BusinessHoursSetting is a tenant's working window as stored in business_hours_settings
type BusinessHoursSetting struct {
	OrganizationID  string    `json:"organization_id"`
	StartHour       int       `json:"start_hour"`
	EndHour         int       `json:"end_hour"`
	Timezone        string    `json:"timezone"`
	ExcludeWeekends bool      `json:"exclude_weekends"`
	Holidays        []string  `json:"holidays"` // YYYY-MM-DD
	UpdatedAt       time.Time `json:"updated_at"`
}

// Config converts the stored row into the calculator's config value
func (s BusinessHoursSetting) Config() sla.BusinessHoursConfig {
	holidays := make([]string, len(s.Holidays))
	copy(holidays, s.Holidays)
	return sla.BusinessHoursConfig{
		StartHour:       s.StartHour,
		EndHour:         s.EndHour,
		Timezone:        s.Timezone,
		ExcludeWeekends: s.ExcludeWeekends,
		Holidays:        holidays,
	}
}

// UpdateBusinessHoursRequest is the body of PUT /orgs/:org_id/business-hours
type UpdateBusinessHoursRequest struct {
	StartHour       *int     `json:"start_hour" binding:"required,min=0,max=23"`
	EndHour         *int     `json:"end_hour" binding:"required,min=0,max=23"`
	Timezone        string   `json:"timezone"`
	ExcludeWeekends bool     `json:"exclude_weekends"`
	Holidays        []string `json:"holidays"`
}

// ===========================
// SLA DEFINITION MODELS
// ===========================

// SLADefinition defines how long an entity of a given type may stay open
type SLADefinition struct {
	ID               string         `json:"id"`
	OrganizationID   string         `json:"organization_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	EntityType       string         `json:"entity_type"` // job_requisition, submission, interview, placement, ticket ...
	TargetValue      float64        `json:"target_value"`
	TargetUnit       sla.TargetUnit `json:"target_unit"`
	UseBusinessHours bool           `json:"use_business_hours"`
	IsActive         bool           `json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CreatedBy        string         `json:"created_by,omitempty"`

	// Nested levels (populated when needed)
	Levels []SLAEscalationLevel `json:"levels,omitempty"`
}

// Target returns the effective target. With business hours disabled the
// business units fall back to their calendar counterparts.
func (d SLADefinition) Target() sla.Target {
	unit := d.TargetUnit
	if !d.UseBusinessHours {
		unit = unit.Calendar()
	}
	return sla.Target{Value: d.TargetValue, Unit: unit}
}

// EngineLevels returns the escalation ladder in the calculator's shape
func (d SLADefinition) EngineLevels() []sla.EscalationLevel {
	levels := make([]sla.EscalationLevel, 0, len(d.Levels))
	for _, l := range d.Levels {
		levels = append(levels, l.EngineLevel())
	}
	return levels
}

// SLAEscalationLevel is a single rung of an SLA definition's escalation ladder
type SLAEscalationLevel struct {
	ID                string    `json:"id"`
	SLADefinitionID   string    `json:"sla_definition_id"`
	LevelNumber       int       `json:"level_number"`
	LevelName         string    `json:"level_name"`
	TriggerPercentage float64   `json:"trigger_percentage"`
	NotifyEmail       bool      `json:"notify_email"`
	EmailRecipients   []string  `json:"email_recipients,omitempty"`
	NotifySlack       bool      `json:"notify_slack"`
	SlackChannel      string    `json:"slack_channel,omitempty"`
	ShowBadge         bool      `json:"show_badge"`
	BadgeColor        string    `json:"badge_color,omitempty"`
	CreateTask        bool      `json:"create_task"`
	EscalateOwnership bool      `json:"escalate_ownership"`
	CreatedAt         time.Time `json:"created_at"`
}

func (l SLAEscalationLevel) EngineLevel() sla.EscalationLevel {
	return sla.EscalationLevel{
		LevelNumber:       l.LevelNumber,
		LevelName:         l.LevelName,
		TriggerPercentage: l.TriggerPercentage,
		NotifyEmail:       l.NotifyEmail,
		EmailRecipients:   l.EmailRecipients,
		NotifySlack:       l.NotifySlack,
		SlackChannel:      l.SlackChannel,
		ShowBadge:         l.ShowBadge,
		BadgeColor:        l.BadgeColor,
		CreateTask:        l.CreateTask,
		EscalateOwnership: l.EscalateOwnership,
	}
}

// CreateSLADefinitionRequest is the body of POST /orgs/:org_id/sla/definitions
type CreateSLADefinitionRequest struct {
	Name             string                `json:"name" binding:"required"`
	Description      string                `json:"description"`
	EntityType       string                `json:"entity_type" binding:"required"`
	TargetValue      float64               `json:"target_value" binding:"required,gt=0,lte=1000000"`
	TargetUnit       string                `json:"target_unit" binding:"required,oneof=minutes hours business_hours days business_days weeks"`
	UseBusinessHours *bool                 `json:"use_business_hours"`
	Levels           []sla.EscalationLevel `json:"levels"`
	CreatedBy        string                `json:"created_by"`
}

// ===========================
// SLA TRACKING MODELS
// ===========================

// SLATracker follows one entity against one SLA definition
type SLATracker struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	SLADefinitionID string     `json:"sla_definition_id"`
	EntityType      string     `json:"entity_type"`
	EntityID        string     `json:"entity_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CurrentLevel    int        `json:"current_level"`
	Status          sla.Status `json:"status"`
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// StartSLATrackerRequest is the body of POST /orgs/:org_id/sla/trackers
type StartSLATrackerRequest struct {
	SLADefinitionID string     `json:"sla_definition_id" binding:"required"`
	EntityType      string     `json:"entity_type" binding:"required"`
	EntityID        string     `json:"entity_id" binding:"required"`
	StartedAt       *time.Time `json:"started_at"`
}

// SLAEvent records a change of level or status observed during evaluation
type SLAEvent struct {
	ID                 string     `json:"id"`
	TrackerID          string     `json:"tracker_id"`
	SLADefinitionID    string     `json:"sla_definition_id"`
	OrganizationID     string     `json:"organization_id"`
	Status             sla.Status `json:"status"`
	PreviousStatus     sla.Status `json:"previous_status"`
	Level              int        `json:"level"`
	PreviousLevel      int        `json:"previous_level"`
	PercentageOfTarget float64    `json:"percentage_of_target"`
	TotalMinutes       int        `json:"total_minutes"`
	BusinessMinutes    int        `json:"business_minutes"`
	OverdueMinutes     float64    `json:"overdue_minutes"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
}

// SLATrackerStatus is the response of an on-demand tracker evaluation
type SLATrackerStatus struct {
	Tracker       SLATracker          `json:"tracker"`
	Definition    SLADefinition       `json:"definition"`
	Evaluation    sla.Evaluation      `json:"evaluation"`
	StatusLabel   string              `json:"status_label"`
	Elapsed       string              `json:"elapsed"`
	TimeRemaining string              `json:"time_remaining"`
	CurrentLevel  *SLAEscalationLevel `json:"current_level,omitempty"`
}

// ===========================
// CALCULATION REQUESTS
// ===========================

// BusinessMinutesRequest is the body of POST /sla/business-minutes
type BusinessMinutesRequest struct {
	Start         time.Time                `json:"start" binding:"required"`
	End           time.Time                `json:"end" binding:"required"`
	BusinessHours *sla.BusinessHoursConfig `json:"business_hours"`
}

// TargetCalculationRequest is the body of POST /sla/elapsed and POST /sla/deadline.
// End is ignored by the deadline calculation and defaults to now for elapsed.
type TargetCalculationRequest struct {
	Start         time.Time                `json:"start" binding:"required"`
	End           *time.Time               `json:"end"`
	TargetValue   float64                  `json:"target_value" binding:"gte=-1000000,lte=1000000"`
	TargetUnit    string                   `json:"target_unit" binding:"required"`
	BusinessHours *sla.BusinessHoursConfig `json:"business_hours"`
}

// EscalationStatusRequest is the body of POST /sla/status
type EscalationStatusRequest struct {
	Percentage *float64              `json:"percentage" binding:"required"`
	Levels     []sla.EscalationLevel `json:"levels"`
}

// CompleteSLATrackerRequest is the optional body of POST /orgs/:org_id/sla/trackers/:id/complete
type CompleteSLATrackerRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
}
