package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/session"
)

// sessionKey is the gin context key the auth middleware stores the Session at.
const sessionKey = "session"

// login forwards credentials to the health service and returns its token.
// POST /api/login (public, no auth required).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	s, err := h.api.Login(c.Request.Context(), strings.TrimSpace(body.Email), body.Password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			apiError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		upstreamError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": s.Token,
		"user":  gin.H{"id": s.UserID, "full_name": s.FullName, "email": s.Email},
	})
}

// register creates an account with the health service. The client signs in
// afterwards with /api/login.
// POST /api/register (public, no auth required).
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	body := backend.RegisterRequest{
		FullName: strings.TrimSpace(req.FullName),
		Email:    email,
		Password: req.Password,
		Gender:   req.Gender,
	}
	if req.DateOfBirth != nil {
		body.DateOfBirth = req.DateOfBirth.Format("2006-01-02")
	}

	user, err := h.api.Register(c.Request.Context(), body)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusConflict:
				apiError(c, http.StatusConflict, "email already registered")
				return
			case http.StatusBadRequest:
				apiError(c, http.StatusBadRequest, apiErr.Message)
				return
			}
		}
		upstreamError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// authMiddleware validates the Bearer token and sets the Session (and user_id)
// on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		s, err := h.tokens.Parse(c.Request.Context(), token)
		if errors.Is(err, session.ErrInvalidToken) {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if err != nil {
			upstreamError(c, "authMiddleware", err)
			c.Abort()
			return
		}

		c.Set(sessionKey, s)
		c.Set("user_id", s.UserID)
		c.Next()
	}
}

// currentSession returns the Session set by authMiddleware.
func currentSession(c *gin.Context) session.Session {
	s, _ := c.Get(sessionKey)
	sess, _ := s.(session.Session)
	return sess
}
