// Package backend is the HTTP client for the health service: login, AI
// suggestions and drafts, the saved weekly plan, tracking and analytics.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lg/health-planner-api/internal/plan"
	"lg/health-planner-api/internal/session"
)

// APIError is a request the health service answered but rejected: a non-2xx
// status, or a 2xx body carrying an "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("health service returned status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether err is (or wraps) an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Client talks to the health service over plain HTTP. No retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

/* ─── Request plumbing ───────────────────────────────────────────────── */

// do sends one request and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var errBody struct {
		Error string `json:"error"`
	}
	// Non-object bodies (arrays) simply have no error field.
	_ = json.Unmarshal(respBytes, &errBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errBody.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if errBody.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBytes...)
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

/* ─── Accounts ───────────────────────────────────────────────────────── */

// User is the account block of a login response.
type User struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/accounts/login/", "", body, &resp); err != nil {
		return session.Session{}, err
	}
	if resp.Token == "" {
		return session.Session{}, &APIError{Status: http.StatusOK, Message: "login response has no token"}
	}
	return session.Session{
		Token:    resp.Token,
		UserID:   resp.User.ID,
		Email:    resp.User.Email,
		FullName: resp.User.FullName,
	}, nil
}

// RegisterRequest is a new account. Only email and password are required.
type RegisterRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
}

// Register creates an account. A taken email comes back as a 409 APIError.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/register/", "", req, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// VerifyToken asks the health service whether token is one it issued and
// still accepts. A 401 or 403 answer is reported as session.ErrInvalidToken.
func (c *Client) VerifyToken(ctx context.Context, token string) (session.Session, error) {
	var resp struct {
		UserID any    `json:"user_id"`
		Email  string `json:"email"`
	}
	err := c.do(ctx, http.MethodGet, "/accounts/verify-token/", token, nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return session.Session{}, fmt.Errorf("%w: %s", session.ErrInvalidToken, apiErr.Message)
	}
	if err != nil {
		return session.Session{}, err
	}
	userID, err := session.UserIDClaim(resp.UserID)
	if err != nil {
		return session.Session{}, err
	}
	return session.Session{Token: token, UserID: userID, Email: resp.Email}, nil
}

/* ─── AI planning ────────────────────────────────────────────────────── */

// Suggestions returns the picker options (breakfast, main dish and exercise
// lists) as the health service sent them.
func (c *Client) Suggestions(ctx context.Context, s session.Session) (json.RawMessage, error) {
	var raw json.RawMessage
	path := "/api/selection/suggestions?user_id=" + strconv.Itoa(s.UserID)
	if err := c.do(ctx, http.MethodGet, path, s.Token, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CustomItem is a user-entered meal or workout sent along with a draft
// request. Type is a meal slot ("breakfast", "lunch", "dinner") or "workout".
type CustomItem struct {
	Name string `json:"name"`
	Cal  int    `json:"cal"`
	Type string `json:"type"`
}

// DraftRequest selects the items the AI should plan the week around.
type DraftRequest struct {
	FoodIDs     []int        `json:"food_ids"`
	ExerciseIDs []int        `json:"exercise_ids"`
	CustomItems []CustomItem `json:"custom_items"`
}

// GenerateDraft asks for a proposed week. The payload is returned undecoded
// for plan.Ingest.
func (c *Client) GenerateDraft(ctx context.Context, s session.Session, req DraftRequest) (json.RawMessage, error) {
	if req.FoodIDs == nil {
		req.FoodIDs = []int{}
	}
	if req.ExerciseIDs == nil {
		req.ExerciseIDs = []int{}
	}
	if req.CustomItems == nil {
		req.CustomItems = []CustomItem{}
	}
	body := struct {
		UserID int `json:"user_id"`
		DraftRequest
	}{s.UserID, req}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/plan/preview", s.Token, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

/* ─── Saved plans ────────────────────────────────────────────────────── */

// CurrentPlan returns the latest saved plan, or "{}" when there is none.
func (c *Client) CurrentPlan(ctx context.Context, s session.Session) (json.RawMessage, error) {
	var raw json.RawMessage
	path := "/api/plan/current?user_id=" + strconv.Itoa(s.UserID)
	if err := c.do(ctx, http.MethodGet, path, s.Token, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveResult is what the health service reports for a stored plan. Fields are
// zero when the response omits them.
type SaveResult struct {
	PlanID    int    `json:"plan_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Message   string `json:"message"`
}

// SavePlan persists the whole plan in one request.
func (c *Client) SavePlan(ctx context.Context, s session.Session, p plan.WeeklyPlan) (SaveResult, error) {
	body := struct {
		UserID   int             `json:"user_id"`
		PlanData plan.WeeklyPlan `json:"plan_data"`
	}{s.UserID, p}

	var res SaveResult
	if err := c.do(ctx, http.MethodPost, "/api/plan/save", s.Token, body, &res); err != nil {
		return SaveResult{}, err
	}
	return res, nil
}

// TrackRequest marks one planned entry done (or not) on a date.
type TrackRequest struct {
	WeeklyPlanID int            `json:"weekly_plan_id"`
	Date         string         `json:"date"`
	ItemType     plan.Kind      `json:"item_type"`
	ItemID       plan.CatalogID `json:"item_id"`
	InstanceID   string         `json:"instance_id"`
	IsCompleted  bool           `json:"is_completed"`
}

// TrackItem records completion of a planned entry.
func (c *Client) TrackItem(ctx context.Context, s session.Session, req TrackRequest) error {
	body := struct {
		UserID int `json:"user_id"`
		TrackRequest
	}{s.UserID, req}
	return c.do(ctx, http.MethodPost, "/api/plan/track", s.Token, body, nil)
}

/* ─── Analytics ──────────────────────────────────────────────────────── */

// Metric is one health metric record. The service returns nulls for fields
// the user never filled in.
type Metric struct {
	MetricID               int      `json:"metric_id"`
	HeightCM               *float64 `json:"height_cm"`
	WeightKG               *float64 `json:"weight_kg"`
	HeartRate              *float64 `json:"heart_rate"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic"`
	BMI                    *float64 `json:"bmi"`
	TDEE                   *float64 `json:"tdee"`
	Goal                   *int     `json:"goal"`
	DailyCalo              *float64 `json:"daily_calo"`
	DailyBurn              *float64 `json:"daily_burn"`
	HasHypertension        bool     `json:"has_hypertension"`
	HasDiabetes            bool     `json:"has_diabetes"`
	SleepHours             *float64 `json:"sleep_hours"`
	ActivityLevel          *int     `json:"activity_level"`
	UpdatedAt              string   `json:"updated_at"`
}

// Metrics returns the user's metric history, newest first.
func (c *Client) Metrics(ctx context.Context, s session.Session) ([]Metric, error) {
	var resp struct {
		Metrics []Metric `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodGet, "/analysis/", s.Token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Metrics == nil {
		return []Metric{}, nil
	}
	return resp.Metrics, nil
}

// Targets reads the latest health metric's intake and burn goals. Missing
// values fall back to plan.DefaultTargets.
func (c *Client) Targets(ctx context.Context, s session.Session) (plan.DailyTargets, error) {
	metrics, err := c.Metrics(ctx, s)
	if err != nil {
		return plan.DefaultTargets, err
	}
	return TargetsFrom(metrics), nil
}

// TargetsFrom reads the goals off the newest metric in a history.
func TargetsFrom(metrics []Metric) plan.DailyTargets {
	t := plan.DefaultTargets
	if len(metrics) == 0 {
		return t
	}
	latest := metrics[0]
	if latest.DailyCalo != nil {
		t.CalorieIntakeGoal = int(*latest.DailyCalo)
	}
	if latest.DailyBurn != nil {
		t.CalorieBurnGoal = int(*latest.DailyBurn)
	}
	return t
}

// MetricInput is a new health metric. Goal and ActivityLevel use the
// service's names ("lose_weight", "light").
type MetricInput struct {
	HeightCM               float64  `json:"height_cm"`
	WeightKG               float64  `json:"weight_kg"`
	HeartRate              *float64 `json:"heart_rate,omitempty"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic,omitempty"`
	SleepHours             *float64 `json:"sleep_hours,omitempty"`
	Goal                   string   `json:"goal"`
	ActivityLevel          string   `json:"activity_level"`
	HasHypertension        bool     `json:"has_hypertension"`
	HasDiabetes            bool     `json:"has_diabetes"`
}

// AddMetric stores a metric and returns its id.
func (c *Client) AddMetric(ctx context.Context, s session.Session, m MetricInput) (int, error) {
	var resp struct {
		MetricID int `json:"metric_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/analysis/add_metric/", s.Token, m, &resp); err != nil {
		return 0, err
	}
	return resp.MetricID, nil
}

// TrackedItem is one tracking row of a saved plan.
type TrackedItem struct {
	TrackingID  int             `json:"tracking_id"`
	Date        string          `json:"date"`
	ItemType    string          `json:"item_type"`
	ItemID      plan.CatalogID  `json:"item_id"`
	ItemDetail  json.RawMessage `json:"item_detail,omitempty"`
	IsCompleted bool            `json:"is_completed"`
}

// TrackingWeek is the Monday..Sunday week of tracking rows around a date.
type TrackingWeek struct {
	StartOfWeek string        `json:"start_of_week"`
	EndOfWeek   string        `json:"end_of_week"`
	Items       []TrackedItem `json:"plan_tracking"`
}

// PlanTracking returns the tracking rows for the week containing date
// (YYYY-MM-DD).
func (c *Client) PlanTracking(ctx context.Context, s session.Session, date string) (TrackingWeek, error) {
	var week TrackingWeek
	path := "/analysis/get_plan_tracking/?date=" + url.QueryEscape(date)
	if err := c.do(ctx, http.MethodGet, path, s.Token, nil, &week); err != nil {
		return TrackingWeek{}, err
	}
	if week.Items == nil {
		week.Items = []TrackedItem{}
	}
	return week, nil
}
