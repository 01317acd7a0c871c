package workers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/SumanthNagolu/intime-v3-sub032/db"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

// EscalationNotifier hands escalations to the delivery side through PGMQ.
// Email, Slack, badges and task creation are consumers of the queue.
type EscalationNotifier struct {
	PG    *sql.DB
	Queue string
}

// EscalationMessage represents a message in the SLA notification queue
type EscalationMessage struct {
	TrackerID          string              `json:"tracker_id"`
	OrganizationID     string              `json:"organization_id"`
	SLADefinitionID    string              `json:"sla_definition_id"`
	EntityType         string              `json:"entity_type"`
	EntityID           string              `json:"entity_id"`
	Type               string              `json:"type"` // "escalated"
	Status             sla.Status          `json:"status"`
	Level              sla.EscalationLevel `json:"level"`
	PercentageOfTarget float64             `json:"percentage_of_target"`
	OverdueMinutes     float64             `json:"overdue_minutes"`
	Deadline           time.Time           `json:"deadline"`
	Channels           []string            `json:"channels"` // ["email", "slack", "badge", "task"]
	CreatedAt          time.Time           `json:"created_at"`
}

func NewEscalationNotifier(pg *sql.DB, queue string) *EscalationNotifier {
	if queue == "" {
		queue = "sla_notifications"
	}
	return &EscalationNotifier{PG: pg, Queue: queue}
}

// NewEscalationMessage builds the queue payload for a tracker that reached level
func NewEscalationMessage(tracker db.SLATracker, level sla.EscalationLevel, eval sla.Evaluation) EscalationMessage {
	return EscalationMessage{
		TrackerID:          tracker.ID,
		OrganizationID:     tracker.OrganizationID,
		SLADefinitionID:    tracker.SLADefinitionID,
		EntityType:         tracker.EntityType,
		EntityID:           tracker.EntityID,
		Type:               "escalated",
		Status:             eval.Status,
		Level:              level,
		PercentageOfTarget: eval.Elapsed.PercentageOfTarget,
		OverdueMinutes:     eval.Elapsed.OverdueMinutes,
		Deadline:           eval.Deadline,
		Channels:           channelsFor(level),
		CreatedAt:          time.Now(),
	}
}

func channelsFor(level sla.EscalationLevel) []string {
	channels := []string{}
	if level.NotifyEmail && len(level.EmailRecipients) > 0 {
		channels = append(channels, "email")
	}
	if level.NotifySlack && level.SlackChannel != "" {
		channels = append(channels, "slack")
	}
	if level.ShowBadge {
		channels = append(channels, "badge")
	}
	if level.CreateTask {
		channels = append(channels, "task")
	}
	return channels
}

// Notify enqueues an escalation message on tx, so the message is only
// visible to consumers once the escalation itself commits.
func (n *EscalationNotifier) Notify(ctx context.Context, tx *sql.Tx, msg EscalationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pgmq.send($1, $2::jsonb)`, n.Queue, string(payload)); err != nil {
		return fmt.Errorf("failed to send escalation message to %s: %w", n.Queue, err)
	}

	log.Printf("Queued SLA escalation for tracker %s: level %d (%s) via %v",
		msg.TrackerID, msg.Level.LevelNumber, msg.Level.LevelName, msg.Channels)
	return nil
}

// EnsureQueue creates the notification queue if it does not exist yet
func (n *EscalationNotifier) EnsureQueue(ctx context.Context) error {
	if _, err := n.PG.ExecContext(ctx, `SELECT pgmq.create($1)`, n.Queue); err != nil {
		return fmt.Errorf("failed to create queue %s: %w", n.Queue, err)
	}
	return nil
}

// QueueStats returns PGMQ metrics for the notification queue
func (n *EscalationNotifier) QueueStats(ctx context.Context) (map[string]interface{}, error) {
	var metricsJSON sql.NullString
	err := n.PG.QueryRowContext(ctx, `SELECT row_to_json(m)::text FROM pgmq.metrics($1) m`, n.Queue).Scan(&metricsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for queue %s: %w", n.Queue, err)
	}

	stats := map[string]interface{}{}
	if metricsJSON.Valid {
		if err := json.Unmarshal([]byte(metricsJSON.String), &stats); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for queue %s: %w", n.Queue, err)
		}
	}
	return stats, nil
}
