package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SumanthNagolu/intime-v3-sub032/db"
	"github.com/SumanthNagolu/intime-v3-sub032/services"
	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

type SLAHandler struct {
	SLAService *services.SLAService
	now        func() time.Time
}

func NewSLAHandler(slaService *services.SLAService) *SLAHandler {
	return &SLAHandler{
		SLAService: slaService,
		now:        time.Now,
	}
}

// respondError maps service and calculator errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sla.ErrInvalidBusinessHours),
		errors.Is(err, sla.ErrInvalidEscalationLevels),
		errors.Is(err, sla.ErrUnknownUnit),
		errors.Is(err, sla.ErrInvalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("SLA handler error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
	}
}

// businessHours picks the request's business hours or the service defaults
func (h *SLAHandler) businessHours(override *sla.BusinessHoursConfig) (sla.BusinessHoursConfig, error) {
	if override == nil {
		return h.SLAService.Defaults, nil
	}
	cfg := *override
	if cfg.Timezone == "" {
		cfg.Timezone = h.SLAService.Defaults.Timezone
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ==========================================
// CALCULATIONS
// ==========================================

// BusinessMinutes counts business minutes between two instants
func (h *SLAHandler) BusinessMinutes(c *gin.Context) {
	var req db.BusinessMinutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cfg, err := h.businessHours(req.BusinessHours)
	if err != nil {
		respondError(c, err)
		return
	}

	start, end := cfg.LocalTime(req.Start), cfg.LocalTime(req.End)
	c.JSON(http.StatusOK, gin.H{
		"business_minutes": sla.BusinessMinutes(start, end, cfg),
		"business_hours":   sla.BusinessHours(start, end, cfg),
		"total_minutes":    sla.TotalMinutes(start, end),
	})
}

// ElapsedTime measures elapsed time against a target
func (h *SLAHandler) ElapsedTime(c *gin.Context) {
	var req db.TargetCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	unit, err := sla.ParseTargetUnit(req.TargetUnit)
	if err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.businessHours(req.BusinessHours)
	if err != nil {
		respondError(c, err)
		return
	}

	target := sla.Target{Value: req.TargetValue, Unit: unit}
	if err := target.Validate(cfg); err != nil {
		respondError(c, err)
		return
	}

	end := h.now()
	if req.End != nil {
		end = *req.End
	}
	result := sla.ElapsedTime(cfg.LocalTime(req.Start), target, cfg, cfg.LocalTime(end))

	elapsed := result.TotalMinutes
	if unit.IsBusinessTime() {
		elapsed = result.BusinessMinutes
	}

	c.JSON(http.StatusOK, gin.H{
		"result":            result,
		"elapsed_formatted": sla.FormatElapsedTime(float64(elapsed)),
		"overdue_formatted": sla.FormatElapsedTime(result.OverdueMinutes),
	})
}

// Deadline computes when a target expires
func (h *SLAHandler) Deadline(c *gin.Context) {
	var req db.TargetCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	unit, err := sla.ParseTargetUnit(req.TargetUnit)
	if err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.businessHours(req.BusinessHours)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := (sla.Target{Value: req.TargetValue, Unit: unit}).Validate(cfg); err != nil {
		respondError(c, err)
		return
	}

	deadline := sla.Deadline(cfg.LocalTime(req.Start), req.TargetValue, unit, cfg)
	c.JSON(http.StatusOK, gin.H{
		"deadline":       deadline,
		"target_minutes": sla.ConvertToMinutes(req.TargetValue, unit, cfg),
		"time_remaining": sla.FormatTimeRemaining(deadline, cfg.LocalTime(h.now())),
	})
}

// EscalationStatus maps a percentage of target onto an escalation ladder
func (h *SLAHandler) EscalationStatus(c *gin.Context) {
	var req db.EscalationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := sla.ValidateEscalationLevels(req.Levels); err != nil {
		respondError(c, err)
		return
	}

	pct := *req.Percentage
	status := sla.StatusFor(pct, req.Levels)
	c.JSON(http.StatusOK, gin.H{
		"level":        sla.DetermineEscalationLevel(pct, req.Levels),
		"status":       status,
		"status_label": status.Label(),
	})
}

// FormatMinutes renders a minute count for display
func (h *SLAHandler) FormatMinutes(c *gin.Context) {
	minutes, err := strconv.ParseFloat(c.Query("minutes"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be a number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": sla.FormatElapsedTime(minutes)})
}

// ==========================================
// ORGANIZATION SETTINGS
// ==========================================

func (h *SLAHandler) GetBusinessHours(c *gin.Context) {
	cfg, err := h.SLAService.GetBusinessHours(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *SLAHandler) UpdateBusinessHours(c *gin.Context) {
	var req db.UpdateBusinessHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cfg := sla.BusinessHoursConfig{
		StartHour:       *req.StartHour,
		EndHour:         *req.EndHour,
		Timezone:        req.Timezone,
		ExcludeWeekends: req.ExcludeWeekends,
		Holidays:        req.Holidays,
	}
	if cfg.Timezone == "" {
		cfg.Timezone = h.SLAService.Defaults.Timezone
	}

	setting, err := h.SLAService.UpsertBusinessHours(c.Request.Context(), c.Param("org_id"), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// ==========================================
// DEFINITIONS AND TRACKERS
// ==========================================

func (h *SLAHandler) CreateDefinition(c *gin.Context) {
	var req db.CreateSLADefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	def, err := h.SLAService.CreateDefinition(c.Request.Context(), c.Param("org_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}

func (h *SLAHandler) GetDefinition(c *gin.Context) {
	def, err := h.SLAService.GetDefinition(c.Request.Context(), c.Param("org_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (h *SLAHandler) StartTracker(c *gin.Context) {
	var req db.StartSLATrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	tracker, err := h.SLAService.StartTracker(c.Request.Context(), c.Param("org_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tracker)
}

// GetTrackerStatus evaluates a tracker at the current time
func (h *SLAHandler) GetTrackerStatus(c *gin.Context) {
	status, err := h.SLAService.TrackerStatus(c.Request.Context(), c.Param("org_id"), c.Param("id"), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *SLAHandler) CompleteTracker(c *gin.Context) {
	var req db.CompleteSLATrackerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	completedAt := h.now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	if err := h.SLAService.CompleteTracker(c.Request.Context(), c.Param("org_id"), c.Param("id"), completedAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SLA tracker completed", "completed_at": completedAt})
}
