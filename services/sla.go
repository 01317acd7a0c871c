package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/SumanthNagolu/intime-v3-sub032/db"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

var ErrNotFound = errors.New("not found")

const businessHoursCachePrefix = "sla:business_hours:"

// checkID rejects ids that cannot name a row in a UUID keyed table.
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

// SLAService stores SLA definitions and trackers and evaluates them against
// each organization's business hours.
type SLAService struct {
	PG       *sql.DB
	Redis    *redis.Client
	Defaults sla.BusinessHoursConfig
	CacheTTL time.Duration
}

func NewSLAService(pg *sql.DB, redis *redis.Client, defaults sla.BusinessHoursConfig) *SLAService {
	return &SLAService{
		PG:       pg,
		Redis:    redis,
		Defaults: defaults,
		CacheTTL: 10 * time.Minute,
	}
}

func cloneBusinessHours(cfg sla.BusinessHoursConfig) sla.BusinessHoursConfig {
	holidays := make([]string, len(cfg.Holidays))
	copy(holidays, cfg.Holidays)
	cfg.Holidays = holidays
	return cfg
}

// ==========================================
// BUSINESS HOURS
// ==========================================

// GetBusinessHours returns an organization's business hours from cache,
// then Postgres, then the configured defaults.
func (s *SLAService) GetBusinessHours(ctx context.Context, orgID string) (sla.BusinessHoursConfig, error) {
	if cfg, ok := s.cachedBusinessHours(ctx, orgID); ok {
		return cfg, nil
	}

	query := `
		SELECT organization_id, start_hour, end_hour, timezone, exclude_weekends, holidays, updated_at
		FROM business_hours_settings
		WHERE organization_id = $1`

	var setting db.BusinessHoursSetting
	err := s.PG.QueryRowContext(ctx, query, orgID).Scan(
		&setting.OrganizationID, &setting.StartHour, &setting.EndHour, &setting.Timezone,
		&setting.ExcludeWeekends, pq.Array(&setting.Holidays), &setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		cfg := cloneBusinessHours(s.Defaults)
		s.cacheBusinessHours(ctx, orgID, cfg)
		return cfg, nil
	}
	if err != nil {
		return sla.BusinessHoursConfig{}, fmt.Errorf("failed to get business hours: %w", err)
	}

	cfg := setting.Config()
	s.cacheBusinessHours(ctx, orgID, cfg)
	return cfg, nil
}

// UpsertBusinessHours validates and stores an organization's business hours
func (s *SLAService) UpsertBusinessHours(ctx context.Context, orgID string, cfg sla.BusinessHoursConfig) (db.BusinessHoursSetting, error) {
	if cfg.Holidays == nil {
		cfg.Holidays = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return db.BusinessHoursSetting{}, err
	}

	setting := db.BusinessHoursSetting{
		OrganizationID:  orgID,
		StartHour:       cfg.StartHour,
		EndHour:         cfg.EndHour,
		Timezone:        cfg.Timezone,
		ExcludeWeekends: cfg.ExcludeWeekends,
		Holidays:        cfg.Holidays,
		UpdatedAt:       time.Now(),
	}

	query := `
		INSERT INTO business_hours_settings (
			organization_id, start_hour, end_hour, timezone, exclude_weekends, holidays, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id) DO UPDATE SET
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			timezone = EXCLUDED.timezone,
			exclude_weekends = EXCLUDED.exclude_weekends,
			holidays = EXCLUDED.holidays,
			updated_at = EXCLUDED.updated_at`

	_, err := s.PG.ExecContext(ctx, query,
		setting.OrganizationID, setting.StartHour, setting.EndHour, setting.Timezone,
		setting.ExcludeWeekends, pq.Array(setting.Holidays), setting.UpdatedAt)
	if err != nil {
		return db.BusinessHoursSetting{}, fmt.Errorf("failed to save business hours: %w", err)
	}

	if s.Redis != nil {
		if err := s.Redis.Del(ctx, businessHoursCachePrefix+orgID).Err(); err != nil {
			log.Printf("Warning: failed to invalidate business hours cache for org %s: %v", orgID, err)
		}
	}

	log.Printf("Updated business hours for org %s: %02d:00-%02d:00 %s", orgID, cfg.StartHour, cfg.EndHour, cfg.Timezone)
	return setting, nil
}

func (s *SLAService) cachedBusinessHours(ctx context.Context, orgID string) (sla.BusinessHoursConfig, bool) {
	if s.Redis == nil {
		return sla.BusinessHoursConfig{}, false
	}

	data, err := s.Redis.Get(ctx, businessHoursCachePrefix+orgID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Warning: business hours cache read failed for org %s: %v", orgID, err)
		}
		return sla.BusinessHoursConfig{}, false
	}

	var cfg sla.BusinessHoursConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("Warning: discarding corrupt business hours cache entry for org %s: %v", orgID, err)
		return sla.BusinessHoursConfig{}, false
	}
	return cfg, true
}

func (s *SLAService) cacheBusinessHours(ctx context.Context, orgID string, cfg sla.BusinessHoursConfig) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, businessHoursCachePrefix+orgID, data, s.CacheTTL).Err(); err != nil {
		log.Printf("Warning: business hours cache write failed for org %s: %v", orgID, err)
	}
}

// ==========================================
// SLA DEFINITIONS
// ==========================================

// CreateDefinition creates an SLA definition with its escalation levels
func (s *SLAService) CreateDefinition(ctx context.Context, orgID string, req db.CreateSLADefinitionRequest) (db.SLADefinition, error) {
	unit, err := sla.ParseTargetUnit(req.TargetUnit)
	if err != nil {
		return db.SLADefinition{}, err
	}
	if err := sla.ValidateEscalationLevels(req.Levels); err != nil {
		return db.SLADefinition{}, err
	}
	if err := (sla.Target{Value: req.TargetValue, Unit: unit}).Validate(s.Defaults); err != nil {
		return db.SLADefinition{}, err
	}

	now := time.Now()
	def := db.SLADefinition{
		ID:               uuid.New().String(),
		OrganizationID:   orgID,
		Name:             req.Name,
		Description:      req.Description,
		EntityType:       req.EntityType,
		TargetValue:      req.TargetValue,
		TargetUnit:       unit,
		UseBusinessHours: true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        req.CreatedBy,
	}
	if req.UseBusinessHours != nil {
		def.UseBusinessHours = *req.UseBusinessHours
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return def, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO sla_definitions (
			id, organization_id, name, description, entity_type, target_value, target_unit,
			use_business_hours, is_active, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.ExecContext(ctx, query,
		def.ID, def.OrganizationID, def.Name, def.Description, def.EntityType, def.TargetValue,
		string(def.TargetUnit), def.UseBusinessHours, def.IsActive, def.CreatedAt, def.UpdatedAt, def.CreatedBy)
	if err != nil {
		return def, fmt.Errorf("failed to insert sla definition: %w", err)
	}

	levelQuery := `
		INSERT INTO sla_escalation_levels (
			id, sla_definition_id, level_number, level_name, trigger_percentage,
			notify_email, email_recipients, notify_slack, slack_channel,
			show_badge, badge_color, create_task, escalate_ownership, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for _, l := range req.Levels {
		level := db.SLAEscalationLevel{
			ID:                uuid.New().String(),
			SLADefinitionID:   def.ID,
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
			CreatedAt:         now,
		}
		if level.EmailRecipients == nil {
			level.EmailRecipients = []string{}
		}

		_, err = tx.ExecContext(ctx, levelQuery,
			level.ID, level.SLADefinitionID, level.LevelNumber, level.LevelName, level.TriggerPercentage,
			level.NotifyEmail, pq.Array(level.EmailRecipients), level.NotifySlack, level.SlackChannel,
			level.ShowBadge, level.BadgeColor, level.CreateTask, level.EscalateOwnership, level.CreatedAt)
		if err != nil {
			return def, fmt.Errorf("failed to insert escalation level %d: %w", level.LevelNumber, err)
		}

		def.Levels = append(def.Levels, level)
	}

	if err = tx.Commit(); err != nil {
		return def, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Created SLA definition %s (%s) with %d levels", def.Name, def.ID, len(def.Levels))
	return def, nil
}

// GetDefinition returns an organization's SLA definition with its levels
func (s *SLAService) GetDefinition(ctx context.Context, orgID, id string) (db.SLADefinition, error) {
	if err := checkID("sla definition", id); err != nil {
		return db.SLADefinition{}, err
	}

	query := `
		SELECT id, organization_id, name, COALESCE(description, ''), entity_type, target_value, target_unit,
		       use_business_hours, is_active, created_at, updated_at, COALESCE(created_by, '')
		FROM sla_definitions
		WHERE id = $1 AND organization_id = $2`

	var def db.SLADefinition
	err := s.PG.QueryRowContext(ctx, query, id, orgID).Scan(
		&def.ID, &def.OrganizationID, &def.Name, &def.Description, &def.EntityType, &def.TargetValue,
		&def.TargetUnit, &def.UseBusinessHours, &def.IsActive, &def.CreatedAt, &def.UpdatedAt, &def.CreatedBy,
	)
	if err == sql.ErrNoRows {
		return def, fmt.Errorf("sla definition %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return def, fmt.Errorf("failed to get sla definition: %w", err)
	}

	levels, err := s.getEscalationLevels(ctx, def.ID)
	if err != nil {
		return def, err
	}
	def.Levels = levels
	return def, nil
}

func (s *SLAService) getEscalationLevels(ctx context.Context, definitionID string) ([]db.SLAEscalationLevel, error) {
	query := `
		SELECT id, sla_definition_id, level_number, level_name, trigger_percentage,
		       notify_email, email_recipients, notify_slack, COALESCE(slack_channel, ''),
		       show_badge, COALESCE(badge_color, ''), create_task, escalate_ownership, created_at
		FROM sla_escalation_levels
		WHERE sla_definition_id = $1
		ORDER BY level_number ASC`

	rows, err := s.PG.QueryContext(ctx, query, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation levels: %w", err)
	}
	defer rows.Close()

	var levels []db.SLAEscalationLevel
	for rows.Next() {
		var l db.SLAEscalationLevel
		err := rows.Scan(
			&l.ID, &l.SLADefinitionID, &l.LevelNumber, &l.LevelName, &l.TriggerPercentage,
			&l.NotifyEmail, pq.Array(&l.EmailRecipients), &l.NotifySlack, &l.SlackChannel,
			&l.ShowBadge, &l.BadgeColor, &l.CreateTask, &l.EscalateOwnership, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// ==========================================
// SLA TRACKERS
// ==========================================

const trackerColumns = `
	t.id, t.organization_id, t.sla_definition_id, t.entity_type, t.entity_id,
	t.started_at, t.completed_at, t.current_level, t.status, t.last_evaluated_at, t.created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTracker(row rowScanner) (db.SLATracker, error) {
	var t db.SLATracker
	var completedAt, lastEvaluatedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.SLADefinitionID, &t.EntityType, &t.EntityID,
		&t.StartedAt, &completedAt, &t.CurrentLevel, &t.Status, &lastEvaluatedAt, &t.CreatedAt,
	)
	if err != nil {
		return t, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if lastEvaluatedAt.Valid {
		t.LastEvaluatedAt = &lastEvaluatedAt.Time
	}
	return t, nil
}

// StartTracker begins tracking an entity against an active SLA definition
func (s *SLAService) StartTracker(ctx context.Context, orgID string, req db.StartSLATrackerRequest) (db.SLATracker, error) {
	def, err := s.GetDefinition(ctx, orgID, req.SLADefinitionID)
	if err != nil {
		return db.SLATracker{}, err
	}
	if !def.IsActive {
		return db.SLATracker{}, fmt.Errorf("sla definition %s is inactive: %w", def.ID, ErrNotFound)
	}

	now := time.Now()
	tracker := db.SLATracker{
		ID:              uuid.New().String(),
		OrganizationID:  orgID,
		SLADefinitionID: def.ID,
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		StartedAt:       now,
		Status:          sla.StatusPending,
		CreatedAt:       now,
	}
	if req.StartedAt != nil {
		tracker.StartedAt = *req.StartedAt
	}

	query := `
		INSERT INTO sla_trackers (
			id, organization_id, sla_definition_id, entity_type, entity_id,
			started_at, current_level, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.PG.ExecContext(ctx, query,
		tracker.ID, tracker.OrganizationID, tracker.SLADefinitionID, tracker.EntityType, tracker.EntityID,
		tracker.StartedAt, tracker.CurrentLevel, string(tracker.Status), tracker.CreatedAt)
	if err != nil {
		return db.SLATracker{}, fmt.Errorf("failed to insert sla tracker: %w", err)
	}

	log.Printf("Started SLA tracker %s for %s %s", tracker.ID, tracker.EntityType, tracker.EntityID)
	return tracker, nil
}

func (s *SLAService) GetTracker(ctx context.Context, orgID, id string) (db.SLATracker, error) {
	if err := checkID("sla tracker", id); err != nil {
		return db.SLATracker{}, err
	}

	query := `SELECT` + trackerColumns + `
		FROM sla_trackers t
		WHERE t.id = $1 AND t.organization_id = $2`

	tracker, err := scanTracker(s.PG.QueryRowContext(ctx, query, id, orgID))
	if err == sql.ErrNoRows {
		return tracker, fmt.Errorf("sla tracker %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return tracker, fmt.Errorf("failed to get sla tracker: %w", err)
	}
	return tracker, nil
}

// CompleteTracker stops the clock on a tracker
func (s *SLAService) CompleteTracker(ctx context.Context, orgID, id string, at time.Time) error {
	if err := checkID("sla tracker", id); err != nil {
		return err
	}

	query := `
		UPDATE sla_trackers SET completed_at = $3
		WHERE id = $1 AND organization_id = $2 AND completed_at IS NULL`

	res, err := s.PG.ExecContext(ctx, query, id, orgID, at)
	if err != nil {
		return fmt.Errorf("failed to complete sla tracker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete sla tracker: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("open sla tracker %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListActiveTrackers returns open trackers of active definitions, least
// recently evaluated first.
func (s *SLAService) ListActiveTrackers(ctx context.Context, limit int) ([]db.SLATracker, error) {
	query := `SELECT` + trackerColumns + `
		FROM sla_trackers t
		JOIN sla_definitions d ON d.id = t.sla_definition_id
		WHERE t.completed_at IS NULL
		AND d.is_active = true
		ORDER BY t.last_evaluated_at ASC NULLS FIRST, t.started_at ASC
		LIMIT $1`

	rows, err := s.PG.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sla trackers: %w", err)
	}
	defer rows.Close()

	var trackers []db.SLATracker
	for rows.Next() {
		tracker, err := scanTracker(rows)
		if err != nil {
			log.Printf("Warning: error scanning sla tracker: %v", err)
			continue
		}
		trackers = append(trackers, tracker)
	}
	return trackers, rows.Err()
}

// ==========================================
// EVALUATION
// ==========================================

// EvaluateTracker measures a tracker against its definition at now. Completed
// trackers are measured up to their completion time. Instants are pinned to
// the organization's timezone before the calculation.
func (s *SLAService) EvaluateTracker(ctx context.Context, tracker db.SLATracker, now time.Time) (sla.Evaluation, db.SLADefinition, error) {
	def, err := s.GetDefinition(ctx, tracker.OrganizationID, tracker.SLADefinitionID)
	if err != nil {
		return sla.Evaluation{}, def, err
	}

	cfg, err := s.GetBusinessHours(ctx, tracker.OrganizationID)
	if err != nil {
		return sla.Evaluation{}, def, err
	}

	end := now
	if tracker.CompletedAt != nil {
		end = *tracker.CompletedAt
	}

	eval := sla.Evaluate(cfg.LocalTime(tracker.StartedAt), def.Target(), cfg, def.EngineLevels(), cfg.LocalTime(end))
	return eval, def, nil
}

// TrackerStatus evaluates a tracker on demand without persisting anything
func (s *SLAService) TrackerStatus(ctx context.Context, orgID, id string, now time.Time) (db.SLATrackerStatus, error) {
	tracker, err := s.GetTracker(ctx, orgID, id)
	if err != nil {
		return db.SLATrackerStatus{}, err
	}

	eval, def, err := s.EvaluateTracker(ctx, tracker, now)
	if err != nil {
		return db.SLATrackerStatus{}, err
	}

	status := db.SLATrackerStatus{
		Tracker:       tracker,
		Definition:    def,
		Evaluation:    eval,
		StatusLabel:   eval.Status.Label(),
		Elapsed:       sla.FormatElapsedTime(float64(effectiveMinutes(def, eval))),
		TimeRemaining: sla.FormatTimeRemaining(eval.Deadline, now),
	}
	for i := range def.Levels {
		if def.Levels[i].LevelNumber == eval.Level {
			status.CurrentLevel = &def.Levels[i]
			break
		}
	}
	return status, nil
}

func effectiveMinutes(def db.SLADefinition, eval sla.Evaluation) int {
	if def.Target().Unit.IsBusinessTime() {
		return eval.Elapsed.BusinessMinutes
	}
	return eval.Elapsed.TotalMinutes
}

// Escalated reports whether moving from one level to another raises severity,
// judged by the levels' trigger percentages.
func Escalated(levels []sla.EscalationLevel, from, to int) bool {
	if to == 0 || to == from {
		return false
	}
	next, ok := sla.FindLevel(to, levels)
	if !ok {
		return false
	}
	prev, ok := sla.FindLevel(from, levels)
	if !ok {
		return true
	}
	return next.TriggerPercentage > prev.TriggerPercentage
}

// EscalationEnqueuer queues an escalation on the transaction that records it
type EscalationEnqueuer func(ctx context.Context, tx *sql.Tx) error

// RecordEvaluation stores the outcome of an evaluation on the tracker and
// appends an SLAEvent when the level or status changed. It reports the event
// (nil when nothing changed) and whether the level increased.
//
// On escalation, enqueue runs before commit. If it fails nothing is stored,
// so the tracker keeps its old level and the next evaluation escalates again.
func (s *SLAService) RecordEvaluation(ctx context.Context, tracker db.SLATracker, def db.SLADefinition, eval sla.Evaluation, now time.Time, source string, enqueue EscalationEnqueuer) (*db.SLAEvent, bool, error) {
	changed := eval.Level != tracker.CurrentLevel || eval.Status != tracker.Status
	escalated := Escalated(def.EngineLevels(), tracker.CurrentLevel, eval.Level)

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE sla_trackers
		SET current_level = $2, status = $3, last_evaluated_at = $4
		WHERE id = $1`,
		tracker.ID, eval.Level, string(eval.Status), now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update sla tracker: %w", err)
	}

	var event *db.SLAEvent
	if changed {
		event = &db.SLAEvent{
			ID:                 uuid.New().String(),
			TrackerID:          tracker.ID,
			SLADefinitionID:    tracker.SLADefinitionID,
			OrganizationID:     tracker.OrganizationID,
			Status:             eval.Status,
			PreviousStatus:     tracker.Status,
			Level:              eval.Level,
			PreviousLevel:      tracker.CurrentLevel,
			PercentageOfTarget: eval.Elapsed.PercentageOfTarget,
			TotalMinutes:       eval.Elapsed.TotalMinutes,
			BusinessMinutes:    eval.Elapsed.BusinessMinutes,
			OverdueMinutes:     eval.Elapsed.OverdueMinutes,
			CreatedBy:          db.GetSystemUserBySource(source),
			CreatedAt:          now,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sla_events (
				id, tracker_id, sla_definition_id, organization_id, status, previous_status,
				level, previous_level, percentage_of_target, total_minutes, business_minutes,
				overdue_minutes, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			event.ID, event.TrackerID, event.SLADefinitionID, event.OrganizationID,
			string(event.Status), string(event.PreviousStatus), event.Level, event.PreviousLevel,
			event.PercentageOfTarget, event.TotalMinutes, event.BusinessMinutes, event.OverdueMinutes,
			event.CreatedBy, event.CreatedAt)
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert sla event: %w", err)
		}
	}

	if escalated && enqueue != nil {
		if err = enqueue(ctx, tx); err != nil {
			return nil, false, fmt.Errorf("failed to queue escalation to level %d: %w", eval.Level, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, escalated, nil
}
