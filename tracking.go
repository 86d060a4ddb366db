package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/plan"
)

// getSuggestions returns the AI picker options (breakfast, main dishes,
// exercises) for the user, as the health service sent them.
// GET /api/suggestions.
func (h *Handler) getSuggestions(c *gin.Context) {
	raw, err := h.api.Suggestions(c.Request.Context(), currentSession(c))
	if err != nil {
		upstreamError(c, "getSuggestions", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// trackEntry marks a planned entry completed (or not) on a date. The plan must
// have been saved first so the health service can tie tracking to it.
// POST /api/tracking.
func (h *Handler) trackEntry(c *gin.Context) {
	s := currentSession(c)

	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	day, ok := plan.ParseDayKey(req.Day)
	if !ok {
		apiError(c, http.StatusBadRequest, "day must be one of: Mon, Tue, Wed, Thu, Fri, Sat, Sun")
		return
	}

	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	entry, found := w.plan.Find(day, req.InstanceID)
	planID := w.planID
	w.mu.Unlock()

	if !found {
		apiError(c, http.StatusNotFound, "entry not found")
		return
	}
	if planID == 0 {
		apiError(c, http.StatusConflict, "save the plan before tracking entries")
		return
	}

	date := plan.DateForDay(day, h.now())
	if req.Date != nil {
		date = req.Date.Time
	}

	err := h.api.TrackItem(c.Request.Context(), s, backend.TrackRequest{
		WeeklyPlanID: planID,
		Date:         date.Format("2006-01-02"),
		ItemType:     entry.Kind,
		ItemID:       entry.ID,
		InstanceID:   entry.InstanceID,
		IsCompleted:  req.IsCompleted,
	})
	if err != nil {
		upstreamError(c, "trackEntry", err)
		return
	}

	w.mu.Lock()
	if current, ok := w.plan.Find(day, entry.InstanceID); ok {
		current.IsCompleted = req.IsCompleted
		w.plan.Replace(day, current)
	}
	w.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "date": date.Format("2006-01-02")})
}

// getTrackingWeek returns the completion state of the saved plan for the
// Monday..Sunday week containing date (default today), for the calendar.
// GET /api/tracking?date=YYYY-MM-DD.
func (h *Handler) getTrackingWeek(c *gin.Context) {
	date := c.DefaultQuery("date", h.now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	week, err := h.api.PlanTracking(c.Request.Context(), currentSession(c), date)
	if err != nil {
		upstreamError(c, "getTrackingWeek", err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// getReminders lists the reminders currently scheduled for the user.
// GET /api/reminders.
func (h *Handler) getReminders(c *gin.Context) {
	userID := currentSession(c).UserID
	pending, err := h.reminders.Pending(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[getReminders] Query error: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to load reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": pending})
}
