package workers

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SumanthNagolu/intime-v3-sub032/db"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

func TestEscalationNotifier_Notify(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	n := NewEscalationNotifier(mockDB, "")
	assert.Equal(t, "sla_notifications", n.Queue)

	tracker := db.SLATracker{ID: "trk-1", OrganizationID: "org-1", EntityType: "submission", EntityID: "sub-1"}
	level := sla.EscalationLevel{LevelNumber: 1, LevelName: "warning", TriggerPercentage: 75, NotifyEmail: true, EmailRecipients: []string{"a@example.com"}}
	msg := NewEscalationMessage(tracker, level, sla.Evaluation{Status: sla.StatusWarning, Level: 1})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pgmq.send($1, $2::jsonb)`)).
		WithArgs("sla_notifications", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := mockDB.Begin()
	require.NoError(t, err)
	assert.NoError(t, n.Notify(context.Background(), tx, msg))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationNotifier_NotifyError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	n := NewEscalationNotifier(mockDB, "custom_queue")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pgmq.send($1, $2::jsonb)`)).
		WithArgs("custom_queue", sqlmock.AnyArg()).
		WillReturnError(errors.New("queue does not exist"))

	tx, err := mockDB.Begin()
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	err = n.Notify(context.Background(), tx, EscalationMessage{TrackerID: "trk-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "custom_queue")
}

func TestNewEscalationMessage_Channels(t *testing.T) {
	level := sla.EscalationLevel{
		LevelNumber:  3,
		LevelName:    "critical",
		NotifyEmail:  true, // no recipients, so no email channel
		NotifySlack:  true,
		SlackChannel: "#escalations",
		CreateTask:   true,
	}
	msg := NewEscalationMessage(db.SLATracker{ID: "trk-9"}, level, sla.Evaluation{Status: sla.StatusCritical, Level: 3})

	assert.Equal(t, []string{"slack", "task"}, msg.Channels)
	assert.Equal(t, "escalated", msg.Type)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"critical"`)
}

func TestEscalationNotifier_QueueStats(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	n := NewEscalationNotifier(mockDB, "sla_notifications")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT row_to_json(m)::text FROM pgmq.metrics($1) m`)).
		WithArgs("sla_notifications").
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}).AddRow(`{"queue_name":"sla_notifications","queue_length":3}`))

	stats, err := n.QueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(3), stats["queue_length"])
}
