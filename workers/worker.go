package workers

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/SumanthNagolu/intime-v3-sub032/db"
	"github.com/SumanthNagolu/intime-v3-sub032/internal/metrics"
	"github.com/SumanthNagolu/intime-v3-sub032/services"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

// TrackerStore is the part of services.SLAService the worker depends on
type TrackerStore interface {
	ListActiveTrackers(ctx context.Context, limit int) ([]db.SLATracker, error)
	EvaluateTracker(ctx context.Context, tracker db.SLATracker, now time.Time) (sla.Evaluation, db.SLADefinition, error)
	RecordEvaluation(ctx context.Context, tracker db.SLATracker, def db.SLADefinition, eval sla.Evaluation, now time.Time, source string, enqueue services.EscalationEnqueuer) (*db.SLAEvent, bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, tx *sql.Tx, msg EscalationMessage) error
}

// SLAWorker periodically re-evaluates open SLA trackers and queues a
// notification whenever a tracker climbs to a higher escalation level.
type SLAWorker struct {
	Store     TrackerStore
	Notifier  Notifier
	Interval  time.Duration
	BatchSize int

	now func() time.Time
}

func NewSLAWorker(store TrackerStore, notifier Notifier, interval time.Duration, batchSize int) *SLAWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SLAWorker{
		Store:     store,
		Notifier:  notifier,
		Interval:  interval,
		BatchSize: batchSize,
		now:       time.Now,
	}
}

// Start runs the evaluation loop until ctx is cancelled
func (w *SLAWorker) Start(ctx context.Context) {
	log.Printf("SLA worker started, evaluating trackers every %s...", w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("SLA worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates one batch of open trackers. It returns the number of
// trackers evaluated and the number that escalated.
func (w *SLAWorker) RunOnce(ctx context.Context) (int, int) {
	trackers, err := w.Store.ListActiveTrackers(ctx, w.BatchSize)
	if err != nil {
		log.Printf("Worker: failed to list active sla trackers: %v", err)
		metrics.EvaluationErrors.Inc()
		return 0, 0
	}

	now := w.now()
	evaluated, escalated := 0, 0
	for _, tracker := range trackers {
		if ctx.Err() != nil {
			break
		}
		up, err := w.processTracker(ctx, tracker, now)
		if err != nil {
			log.Printf("Worker: failed to evaluate sla tracker %s: %v", tracker.ID, err)
			metrics.EvaluationErrors.Inc()
			continue
		}
		evaluated++
		if up {
			escalated++
		}
	}

	metrics.RecordWorkerRun(len(trackers), now)
	if len(trackers) > 0 {
		log.Printf("Worker: evaluated %d/%d sla trackers, %d escalated", evaluated, len(trackers), escalated)
	}
	return evaluated, escalated
}

func (w *SLAWorker) processTracker(ctx context.Context, tracker db.SLATracker, now time.Time) (bool, error) {
	eval, def, err := w.Store.EvaluateTracker(ctx, tracker, now)
	if err != nil {
		return false, err
	}
	metrics.RecordEvaluation(string(eval.Status))

	// A failed enqueue rolls the evaluation back, leaving the escalation for the next tick.
	var enqueue services.EscalationEnqueuer
	if level, ok := sla.FindLevel(eval.Level, def.EngineLevels()); ok && w.Notifier != nil {
		msg := NewEscalationMessage(tracker, level, eval)
		enqueue = func(ctx context.Context, tx *sql.Tx) error {
			return w.Notifier.Notify(ctx, tx, msg)
		}
	}

	event, escalated, err := w.Store.RecordEvaluation(ctx, tracker, def, eval, now, "worker", enqueue)
	if err != nil {
		return false, err
	}
	if event != nil {
		log.Printf("Worker: sla tracker %s moved %s -> %s (level %d -> %d, %.2f%%)",
			tracker.ID, event.PreviousStatus, event.Status, event.PreviousLevel, event.Level, event.PercentageOfTarget)
	}
	if escalated {
		metrics.RecordEscalation(eval.Level)
	}
	return escalated, nil
}
