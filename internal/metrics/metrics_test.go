package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEscalation(t *testing.T) {
	before := testutil.ToFloat64(Escalations.WithLabelValues("2"))
	RecordEscalation(2)
	assert.Equal(t, before+1, testutil.ToFloat64(Escalations.WithLabelValues("2")))
}

func TestRecordWorkerRun(t *testing.T) {
	at := time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)
	RecordWorkerRun(7, at)

	assert.Equal(t, 7.0, testutil.ToFloat64(ActiveTrackers))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(LastWorkerRun))
}
