package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/plan"
	"lg/health-planner-api/internal/session"
)

/* ─── Helpers ────────────────────────────────────────────────────────── */

// view snapshots the workspace for the given day. Caller holds w.mu.
func (w *workspace) view(day plan.DayKey) scheduleView {
	return scheduleView{
		Day:       day,
		Plan:      w.plan.Clone(),
		Inventory: w.inventory,
		Targets:   w.targets,
		Summary:   w.plan.Summarize(day, w.targets),
		Editor:    w.editor.View(),
		PlanID:    w.planID,
	}
}

// dayParam validates a weekday key, defaulting to Monday when empty.
func dayParam(c *gin.Context, raw string) (plan.DayKey, bool) {
	if raw == "" {
		return plan.Mon, true
	}
	day, ok := plan.ParseDayKey(raw)
	if !ok {
		apiError(c, http.StatusBadRequest, "day must be one of: Mon, Tue, Wed, Thu, Fri, Sat, Sun")
	}
	return day, ok
}

// loadTargets fetches the display targets, falling back to the defaults when
// the analytics call fails. Targets are display-only, so this never blocks.
func (h *Handler) loadTargets(ctx context.Context, s session.Session) plan.DailyTargets {
	t, err := h.api.Targets(ctx, s)
	if err != nil {
		log.Printf("[loadTargets] using default targets for user %d: %v", s.UserID, err)
		return plan.DefaultTargets
	}
	return t
}

/* ─── Loading a plan ─────────────────────────────────────────────────── */

// createDraftSchedule asks the health service for a draft week built from the
// user's picks, then replaces the workspace plan and inventory with it.
// POST /api/schedule/draft.
func (h *Handler) createDraftSchedule(c *gin.Context) {
	s := currentSession(c)

	var req backend.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	raw, err := h.api.GenerateDraft(c.Request.Context(), s, req)
	if err != nil {
		upstreamError(c, "createDraftSchedule", err)
		return
	}

	p, inv, err := plan.Ingest(raw)
	if err != nil {
		log.Printf("[createDraftSchedule] %v", err)
		w := h.workspaces.get(s.UserID)
		w.mu.Lock()
		w.load(plan.NewWeeklyPlan(), plan.Inventory{}, w.targets, 0)
		w.mu.Unlock()
		apiError(c, http.StatusUnprocessableEntity, "the generated plan could not be read")
		return
	}

	targets := h.loadTargets(c.Request.Context(), s)

	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.load(p, inv, targets, 0)
	c.JSON(http.StatusOK, w.view(plan.Mon))
}

// loadCurrentSchedule resumes editing from the user's last saved plan.
// POST /api/schedule/load-current.
func (h *Handler) loadCurrentSchedule(c *gin.Context) {
	s := currentSession(c)

	raw, err := h.api.CurrentPlan(c.Request.Context(), s)
	if err != nil {
		upstreamError(c, "loadCurrentSchedule", err)
		return
	}

	p, inv, meta, found, err := plan.FromSaved(raw)
	if err != nil {
		log.Printf("[loadCurrentSchedule] %v", err)
		apiError(c, http.StatusUnprocessableEntity, "the saved plan could not be read")
		return
	}
	if !found {
		apiError(c, http.StatusNotFound, "no saved plan")
		return
	}

	targets := h.loadTargets(c.Request.Context(), s)

	w := h.workspaces.get(s.UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.load(p, inv, targets, meta.PlanID)
	c.JSON(http.StatusOK, w.view(plan.Mon))
}

// getSchedule returns the plan with the summary for one day.
// GET /api/schedule?day=Mon.
func (h *Handler) getSchedule(c *gin.Context) {
	day, ok := dayParam(c, c.Query("day"))
	if !ok {
		return
	}
	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	c.JSON(http.StatusOK, w.view(day))
}

/* ─── Editor ─────────────────────────────────────────────────────────── */

// getEditor returns the editor session state.
// GET /api/schedule/editor.
func (h *Handler) getEditor(c *gin.Context) {
	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	c.JSON(http.StatusOK, w.editor.View())
}

// openNewEntry starts placing an inventory item into a day.
// POST /api/schedule/editor/new.
func (h *Handler) openNewEntry(c *gin.Context) {
	var req openNewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	day, ok := dayParam(c, req.Day)
	if !ok {
		return
	}

	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()

	item, found := w.inventory.Find(req.InventoryID)
	if !found {
		apiError(c, http.StatusNotFound, "inventory item not found")
		return
	}
	if err := w.editor.OpenNew(day, item); err != nil {
		editorError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.editor.View())
}

// openEditEntry starts editing an existing entry.
// POST /api/schedule/editor/edit.
func (h *Handler) openEditEntry(c *gin.Context) {
	var req openEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	day, ok := dayParam(c, req.Day)
	if !ok {
		return
	}

	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, found := w.plan.Find(day, req.InstanceID)
	if !found {
		apiError(c, http.StatusNotFound, "entry not found")
		return
	}
	if err := w.editor.OpenEdit(day, entry); err != nil {
		editorError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.editor.View())
}

// patchEditor updates the form fields that were sent.
// PATCH /api/schedule/editor.
func (h *Handler) patchEditor(c *gin.Context) {
	var req patchEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if req.Title != nil {
		err = errors.Join(err, w.editor.SetTitle(*req.Title))
	}
	if req.Calories != nil {
		err = errors.Join(err, w.editor.SetCalories(*req.Calories))
	}
	if req.Time != nil {
		err = errors.Join(err, w.editor.SetTimeText(*req.Time))
	}
	if err != nil {
		editorError(c, err)
		return
	}
	c.JSON(http.StatusOK, w.editor.View())
}

// saveEditor validates the form and writes the entry into the plan.
// POST /api/schedule/editor/save.
func (h *Handler) saveEditor(c *gin.Context) {
	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.editor.View().Day
	entry, err := w.editor.Save(w.plan)
	if err != nil {
		editorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry":   entry,
		"summary": w.plan.Summarize(day, w.targets),
	})
}

// deleteEditorEntry removes the entry being edited.
// POST /api/schedule/editor/delete.
func (h *Handler) deleteEditorEntry(c *gin.Context) {
	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.editor.View().Day
	removed, err := w.editor.Delete(w.plan)
	if err != nil {
		editorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted": removed,
		"summary": w.plan.Summarize(day, w.targets),
	})
}

// cancelEditor discards the editor session.
// POST /api/schedule/editor/cancel.
func (h *Handler) cancelEditor(c *gin.Context) {
	w := h.workspaces.get(currentSession(c).UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.editor.Cancel()
	c.JSON(http.StatusOK, w.editor.View())
}

/* ─── Persistence ────────────────────────────────────────────────────── */

// saveSchedule sends the whole plan to the health service, then replaces the
// user's scheduled reminders with ones derived from it. A save failure leaves
// the workspace as it was so the client can retry. A reminder failure is
// reported as a warning; the plan is saved either way.
// POST /api/schedule/save.
func (h *Handler) saveSchedule(c *gin.Context) {
	s := currentSession(c)
	w := h.workspaces.get(s.UserID)

	w.mu.Lock()
	snapshot := w.plan.Clone()
	w.mu.Unlock()

	res, err := h.api.SavePlan(c.Request.Context(), s, snapshot)
	if err != nil {
		upstreamError(c, "saveSchedule", err)
		return
	}

	if res.PlanID != 0 {
		w.mu.Lock()
		w.planID = res.PlanID
		w.mu.Unlock()
	}

	resp := saveScheduleResponse{
		PlanID:       res.PlanID,
		StartDate:    res.StartDate,
		EndDate:      res.EndDate,
		RemindersSet: true,
	}
	now := h.now()
	n, err := h.bridge.Replace(c.Request.Context(), s.UserID, plan.Reminders(snapshot, now), now)
	if err != nil {
		log.Printf("[saveSchedule] reminders not set for user %d: %v", s.UserID, err)
		resp.RemindersSet = false
		resp.Warning = "plan saved, reminders not set"
	}
	resp.Reminders = n
	c.JSON(http.StatusOK, resp)
}
