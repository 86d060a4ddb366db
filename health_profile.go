package main

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/health"
	"lg/health-planner-api/internal/plan"
)

// previewHealthProfile computes BMI, BMR, TDEE and the daily intake/burn goals
// for a profile without storing anything. Used by the profile form to show
// the numbers before the user submits them to the health service.
// POST /api/health/preview (public).
func (h *Handler) previewHealthProfile(c *gin.Context) {
	var req healthPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	activity, err := health.ParseActivity(string(req.ActivityLevel))
	if err != nil {
		apiError(c, http.StatusBadRequest, "activity_level must be one of: sedentary, light, moderate, active (or 1-4)")
		return
	}
	goal, err := health.ParseGoal(string(req.Goal))
	if err != nil {
		apiError(c, http.StatusBadRequest, "goal must be one of: lose, maintain, gain (or 1-3)")
		return
	}

	p := health.Profile{
		Sex:      req.Sex,
		HeightCM: req.HeightCM,
		WeightKG: req.WeightKG,
		Activity: activity,
		Goal:     goal,
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = req.DateOfBirth.Time
	}

	res, err := health.Compute(p, h.now())
	switch {
	case errors.Is(err, health.ErrIncompleteProfile):
		apiError(c, http.StatusBadRequest, "sex, date_of_birth, height_cm and weight_kg are required")
		return
	case errors.Is(err, health.ErrImplausibleAge):
		apiError(c, http.StatusBadRequest, "date_of_birth is not plausible")
		return
	case err != nil:
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity_level": activity.String(),
		"goal":           goal.String(),
		"result":         res,
	})
}

// getTargets returns the user's daily intake and burn goals from the health
// service and refreshes the workspace's copy.
// GET /api/targets.
func (h *Handler) getTargets(c *gin.Context) {
	s := currentSession(c)
	t, err := h.api.Targets(c.Request.Context(), s)
	if err != nil {
		upstreamError(c, "getTargets", err)
		return
	}

	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	w.targets = t
	w.mu.Unlock()

	c.JSON(http.StatusOK, t)
}

// addMetric records a new health metric (the profile form's submit) and
// refreshes the workspace targets from the service's recalculated goals.
// POST /api/metrics.
func (h *Handler) addMetric(c *gin.Context) {
	s := currentSession(c)

	var req addMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HeightCM <= 0 || req.WeightKG <= 0 {
		apiError(c, http.StatusBadRequest, "height_cm and weight_kg are required")
		return
	}
	activity, err := health.ParseActivity(string(req.ActivityLevel))
	if err != nil {
		apiError(c, http.StatusBadRequest, "activity_level must be one of: sedentary, light, moderate, active (or 1-4)")
		return
	}
	goal, err := health.ParseGoal(string(req.Goal))
	if err != nil {
		apiError(c, http.StatusBadRequest, "goal must be one of: lose, maintain, gain (or 1-3)")
		return
	}

	id, err := h.api.AddMetric(c.Request.Context(), s, backend.MetricInput{
		HeightCM:               req.HeightCM,
		WeightKG:               req.WeightKG,
		HeartRate:              req.HeartRate,
		BloodPressureSystolic:  req.BloodPressureSystolic,
		BloodPressureDiastolic: req.BloodPressureDiastolic,
		SleepHours:             req.SleepHours,
		Goal:                   goal.MetricName(),
		ActivityLevel:          activity.String(),
		HasHypertension:        req.HasHypertension,
		HasDiabetes:            req.HasDiabetes,
	})
	if err != nil {
		upstreamError(c, "addMetric", err)
		return
	}

	targets := h.loadTargets(c.Request.Context(), s)
	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	w.targets = targets
	w.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"metric_id": id, "targets": targets})
}

// getReport returns the metric history with the weight trend, and the
// calorie summary of every day of the plan being edited.
// GET /api/reports.
func (h *Handler) getReport(c *gin.Context) {
	s := currentSession(c)
	metrics, err := h.api.Metrics(c.Request.Context(), s)
	if err != nil {
		upstreamError(c, "getReport", err)
		return
	}
	targets := backend.TargetsFrom(metrics)

	resp := reportResponse{
		Metrics:        metrics,
		WeightChangeKG: weightChange(metrics),
		Targets:        targets,
		Week:           make([]plan.DaySummary, 0, len(plan.Days)),
	}
	if len(metrics) > 0 {
		resp.Latest = &metrics[0]
	}

	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	w.targets = targets
	for _, d := range plan.Days {
		sum := w.plan.Summarize(d, targets)
		resp.Week = append(resp.Week, sum)
		resp.WeekNet += sum.NetCalories
	}
	w.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

// weightChange is the newest recorded weight minus the oldest, to one
// decimal. Nil when fewer than two metrics carry a weight.
func weightChange(metrics []backend.Metric) *float64 {
	var newest, oldest *float64
	for i := range metrics {
		if metrics[i].WeightKG == nil {
			continue
		}
		if newest == nil {
			newest = metrics[i].WeightKG
		}
		oldest = metrics[i].WeightKG
	}
	if newest == nil || newest == oldest {
		return nil
	}
	diff := math.Round((*newest-*oldest)*10) / 10
	return &diff
}
