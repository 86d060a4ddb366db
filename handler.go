package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/editor"
	"lg/health-planner-api/internal/notify"
	"lg/health-planner-api/internal/session"
)

// Handler holds shared dependencies (health service client, reminder bridge,
// per-user workspaces) for all route handlers.
type Handler struct {
	api        *backend.Client
	tokens     *session.Parser
	bridge     *notify.Bridge
	reminders  notify.Lister
	workspaces *workspaces
	now        func() time.Time // overridable for tests
}

func newHandler(api *backend.Client, tokens *session.Parser, store notify.Store) *Handler {
	return &Handler{
		api:        api,
		tokens:     tokens,
		bridge:     notify.NewBridge(store, time.Local),
		reminders:  store,
		workspaces: newWorkspaces(),
		now:        time.Now,
	}
}

/* ─── Error helpers ──────────────────────────────────────────────────── */

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// upstreamError answers a failed health service call with 502. A rejection
// carries the service's own message; transport failures get a generic one.
func upstreamError(c *gin.Context, fn string, err error) {
	log.Printf("[%s] health service error: %v", fn, err)
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		apiError(c, http.StatusBadGateway, apiErr.Message)
		return
	}
	apiError(c, http.StatusBadGateway, "health service unavailable")
}

// editorError maps editor session errors to responses. Validation errors keep
// the session open and name the offending field.
func editorError(c *gin.Context, err error) {
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, editor.ErrUnknownEntry):
		apiError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrNotOpen), errors.Is(err, editor.ErrAlreadyOpen), errors.Is(err, editor.ErrNotEditing):
		apiError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("[editorError] unexpected error: %v", err)
		apiError(c, http.StatusInternalServerError, "editor error")
	}
}

/* ─── Routes ─────────────────────────────────────────────────────────── */

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)
	router.POST("/api/register", h.register)
	router.POST("/api/health/preview", h.previewHealthProfile)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/suggestions", h.getSuggestions)
	api.GET("/targets", h.getTargets)
	api.POST("/tracking", h.trackEntry)
	api.GET("/tracking", h.getTrackingWeek)
	api.POST("/metrics", h.addMetric)
	api.GET("/reports", h.getReport)
	api.GET("/reminders", h.getReminders)

	api.POST("/schedule/draft", h.createDraftSchedule)
	api.POST("/schedule/load-current", h.loadCurrentSchedule)
	api.GET("/schedule", h.getSchedule)
	api.POST("/schedule/save", h.saveSchedule)

	api.GET("/schedule/editor", h.getEditor)
	api.POST("/schedule/editor/new", h.openNewEntry)
	api.POST("/schedule/editor/edit", h.openEditEntry)
	api.PATCH("/schedule/editor", h.patchEditor)
	api.POST("/schedule/editor/save", h.saveEditor)
	api.POST("/schedule/editor/delete", h.deleteEditorEntry)
	api.POST("/schedule/editor/cancel", h.cancelEditor)
}
