package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SumanthNagolu/intime-v3-sub032/services"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

func setupSLARouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	defaults := sla.BusinessHoursConfig{StartHour: 9, EndHour: 17, Timezone: "UTC", ExcludeWeekends: true, Holidays: []string{}}
	h := NewSLAHandler(services.NewSLAService(mockDB, nil, defaults))
	h.now = func() time.Time { return time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC) }

	r := gin.New()
	api := r.Group("/api")
	api.POST("/sla/business-minutes", h.BusinessMinutes)
	api.POST("/sla/elapsed", h.ElapsedTime)
	api.POST("/sla/deadline", h.Deadline)
	api.POST("/sla/status", h.EscalationStatus)
	api.GET("/sla/format", h.FormatMinutes)
	api.GET("/orgs/:org_id/business-hours", h.GetBusinessHours)
	api.PUT("/orgs/:org_id/business-hours", h.UpdateBusinessHours)
	api.GET("/orgs/:org_id/sla/definitions/:id", h.GetDefinition)
	api.POST("/orgs/:org_id/sla/definitions", h.CreateDefinition)
	api.POST("/orgs/:org_id/sla/trackers/:id/complete", h.CompleteTracker)

	return r, mock
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestBusinessMinutes_AcrossWeekend(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/business-minutes", gin.H{
		"start": "2024-01-05T16:00:00Z", // Friday
		"end":   "2024-01-08T10:00:00Z", // Monday
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(120), body["business_minutes"])
	assert.Equal(t, float64(2), body["business_hours"])
	assert.Equal(t, float64(3960), body["total_minutes"])
}

func TestBusinessMinutes_InvalidBusinessHours(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/business-minutes", gin.H{
		"start":          "2024-01-05T16:00:00Z",
		"end":            "2024-01-08T10:00:00Z",
		"business_hours": gin.H{"start_hour": 17, "end_hour": 9},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestElapsedTime_Overdue(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/elapsed", gin.H{
		"start":        "2024-01-05T16:00:00Z",
		"end":          "2024-01-08T10:00:00Z",
		"target_value": 1,
		"target_unit":  "business_hours",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, float64(120), result["business_minutes"])
	assert.Equal(t, float64(200), result["percentage_of_target"])
	assert.Equal(t, true, result["is_overdue"])
	assert.Equal(t, float64(60), result["overdue_minutes"])
	assert.Equal(t, "2 hrs", body["elapsed_formatted"])
}

func TestElapsedTime_UnknownUnit(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/elapsed", gin.H{
		"start":        "2024-01-05T16:00:00Z",
		"target_value": 1,
		"target_unit":  "fortnights",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeadline_RollsOverWeekend(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/deadline", gin.H{
		"start":        "2024-01-05T16:00:00Z",
		"target_value": 2,
		"target_unit":  "business_hours",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-01-08T10:00:00Z", body["deadline"])
	assert.Equal(t, float64(120), body["target_minutes"])
	assert.Equal(t, "30 min remaining", body["time_remaining"])
}

func TestDeadline_RejectsOversizedTargets(t *testing.T) {
	r, _ := setupSLARouter(t)

	for _, body := range []gin.H{
		{"start": "2024-01-08T09:00:00Z", "target_value": 1e10, "target_unit": "minutes"},
		{"start": "2024-01-08T09:00:00Z", "target_value": 3e6, "target_unit": "business_days"},
		{"start": "2024-01-08T09:00:00Z", "target_value": 300, "target_unit": "weeks"},
	} {
		w := doJSON(r, http.MethodPost, "/api/sla/deadline", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}

func TestElapsedTime_RejectsOversizedTarget(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/elapsed", gin.H{
		"start":        "2024-01-08T09:00:00Z",
		"target_value": 20000,
		"target_unit":  "business_days",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid target")
}

func TestCreateDefinition_RejectsOversizedTarget(t *testing.T) {
	r, mock := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/orgs/org-1/sla/definitions", gin.H{
		"name":         "Response",
		"entity_type":  "ticket",
		"target_value": 100000,
		"target_unit":  "days",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalationStatus(t *testing.T) {
	r, _ := setupSLARouter(t)

	levels := []sla.EscalationLevel{
		{LevelNumber: 1, LevelName: "warning", TriggerPercentage: 75},
		{LevelNumber: 2, LevelName: "breach", TriggerPercentage: 100},
		{LevelNumber: 3, LevelName: "critical", TriggerPercentage: 150},
	}
	w := doJSON(r, http.MethodPost, "/api/sla/status", gin.H{"percentage": 110, "levels": levels})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["level"])
	assert.Equal(t, "breach", body["status"])
	assert.Equal(t, "Breach", body["status_label"])
}

func TestEscalationStatus_ZeroPercentIsPending(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/status", gin.H{
		"percentage": 0,
		"levels":     []sla.EscalationLevel{{LevelNumber: 1, LevelName: "warning", TriggerPercentage: 75}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(0), body["level"])
	assert.Equal(t, "pending", body["status"])
}

func TestEscalationStatus_DuplicateTriggers(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/sla/status", gin.H{
		"percentage": 80,
		"levels": []sla.EscalationLevel{
			{LevelNumber: 1, TriggerPercentage: 75},
			{LevelNumber: 2, TriggerPercentage: 75},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormatMinutes(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodGet, "/api/sla/format?minutes=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.5 hrs", decode(t, w)["formatted"])

	w = doJSON(r, http.MethodGet, "/api/sla/format?minutes=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBusinessHours_Default(t *testing.T) {
	r, mock := setupSLARouter(t)

	mock.ExpectQuery("FROM business_hours_settings").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id", "start_hour", "end_hour", "timezone", "exclude_weekends", "holidays", "updated_at"}))

	w := doJSON(r, http.MethodGet, "/api/orgs/org-1/business-hours", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(9), body["start_hour"])
	assert.Equal(t, "UTC", body["timezone"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBusinessHours_Invalid(t *testing.T) {
	r, mock := setupSLARouter(t)

	w := doJSON(r, http.MethodPut, "/api/orgs/org-1/business-hours", gin.H{"start_hour": 18, "end_hour": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/api/orgs/org-1/business-hours", gin.H{"end_hour": 17})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBusinessHours(t *testing.T) {
	r, mock := setupSLARouter(t)

	mock.ExpectExec("INSERT INTO business_hours_settings").
		WithArgs("org-1", 0, 8, "UTC", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPut, "/api/orgs/org-1/business-hours", gin.H{"start_hour": 0, "end_hour": 8})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["start_hour"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDefinition_NotFound(t *testing.T) {
	r, mock := setupSLARouter(t)

	id := "9d2f4b6a-1c3e-4a5b-8f7d-6e0c2a4b8d13"
	mock.ExpectQuery("FROM sla_definitions").
		WithArgs(id, "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := doJSON(r, http.MethodGet, "/api/orgs/org-1/sla/definitions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMalformedIDIsNotFound(t *testing.T) {
	r, mock := setupSLARouter(t)

	w := doJSON(r, http.MethodGet, "/api/orgs/org-1/sla/definitions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/orgs/org-1/sla/trackers/trk-1/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefinition_BindingErrors(t *testing.T) {
	r, _ := setupSLARouter(t)

	w := doJSON(r, http.MethodPost, "/api/orgs/org-1/sla/definitions", gin.H{
		"name":         "Response",
		"entity_type":  "ticket",
		"target_value": 4,
		"target_unit":  "fortnights",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteTracker_DefaultsToNow(t *testing.T) {
	r, mock := setupSLARouter(t)

	now := time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC)
	id := "5e8a1f3c-7b2d-4c9e-a6f0-3d1b8e4c2a97"
	mock.ExpectExec("UPDATE sla_trackers SET completed_at").
		WithArgs(id, "org-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPost, "/api/orgs/org-1/sla/trackers/"+id+"/complete", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
