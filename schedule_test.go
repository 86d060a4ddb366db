package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/notify"
	"lg/health-planner-api/internal/plan"
	"lg/health-planner-api/internal/session"
)

// testNow is a Wednesday morning; every weekday except Wednesday is in the
// future relative to it.
var testNow = time.Date(2026, 10, 21, 9, 0, 0, 0, time.Local)

const testDraft = `{
	"meal_plan": {
		"Monday": {"breakfast": {"id": 1, "name": "Oatmeal", "cal": 300},
		           "dinner": {"id": 2, "name": "Stir Fry", "calories": 550}},
		"Funday": {"lunch": {"id": 3, "name": "Cake", "cal": 900}}
	},
	"workout_plan": {"Monday": {"exercises": [{"id": 9, "name": "Run", "cal": 250, "duration_min": 30}]}}
}`

// mockResponse is a canned health service answer.
type mockResponse struct {
	status int
	body   string
}

// mockHealthService answers by path and records request bodies.
type mockHealthService struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	bodies    map[string]map[string]any
	queries   map[string]string
}

func (m *mockHealthService) set(path string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = mockResponse{status, body}
}

func (m *mockHealthService) lastQuery(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[path]
}

func (m *mockHealthService) lastBody(path string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[path]
}

// failingStore is a reminder store whose cancel-all always fails.
type failingStore struct{ *notify.MemoryScheduler }

func (failingStore) CancelAll(context.Context, int) error { return errors.New("scheduler unavailable") }

// setupScheduleTest creates a Gin engine wired to a mock health service and an
// in-memory reminder store.
func setupScheduleTest(t *testing.T, store notify.Store) (*gin.Engine, *mockHealthService) {
	t.Helper()
	mock := &mockHealthService{
		responses: map[string]mockResponse{
			"/api/plan/preview": {http.StatusOK, testDraft},
			"/analysis/":        {http.StatusOK, `{"metrics":[{"daily_calo":2263,"daily_burn":200}]}`},
			"/api/plan/save":    {http.StatusOK, `{"message":"ok","plan_id":41,"start_date":"2026-10-19","end_date":"2026-10-25"}`},
		},
		bodies:  map[string]map[string]any{},
		queries: map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accounts/verify-token/" {
			verifyTestToken(w, r)
			return
		}
		mock.mu.Lock()
		resp, ok := mock.responses[r.URL.Path]
		mock.queries[r.URL.Path] = r.URL.RawQuery
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			var body map[string]any
			json.Unmarshal(b, &body)
			mock.bodies[r.URL.Path] = body
		}
		mock.mu.Unlock()
		if !ok {
			resp = mockResponse{http.StatusNotFound, `{"error":"not found"}`}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		io.WriteString(w, resp.body)
	}))
	t.Cleanup(srv.Close)

	if store == nil {
		store = notify.NewMemoryScheduler()
	}
	gin.SetMode(gin.TestMode)
	api := backend.NewClient(srv.URL)
	h := newHandler(api, session.NewParser("", api), store)
	h.now = func() time.Time { return testNow }
	router := gin.New()
	h.registerRoutes(router)
	return router, mock
}

// testSecret is the mock health service's signing key.
const testSecret = "test-secret"

// verifyTestToken answers /accounts/verify-token/ the way the health service
// does: HS256 with its own key, 403 for anything else.
func verifyTestToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"Invalid token"}`)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"user_id": claims["user_id"], "email": claims["email"]})
}

func testToken(t *testing.T, userID int) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID, "email": "an@example.com",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// doRequest sends a request with the given body (may be empty) as user 7.
func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken(t, 7))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response: %v (%s)", err, w.Body.String())
	}
	return v
}

func loadDraft(t *testing.T, router *gin.Engine) scheduleView {
	t.Helper()
	w := doRequest(t, router, "POST", "/api/schedule/draft", `{"food_ids":[1,2],"exercise_ids":[9]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return decode[scheduleView](t, w)
}

/* ─── Auth ───────────────────────────────────────────────────────────── */

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)

	req := httptest.NewRequest("GET", "/api/schedule", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no header: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/schedule", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

// forgedTokens returns tokens claiming user 7 that the health service never
// issued: unsigned, and signed with another key.
func forgedTokens(t *testing.T) map[string]string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": 7, "email": "an@example.com"}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("attacker"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return map[string]string{"alg none": unsigned, "wrong key": otherKey}
}

func TestAuth_RejectsForgedTokens(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	loadDraft(t, router)

	for name, tok := range forgedTokens(t) {
		for _, path := range []string{"/api/schedule?day=Mon", "/api/schedule/editor", "/api/reminders"} {
			t.Run(name+" "+path, func(t *testing.T) {
				req := httptest.NewRequest("GET", path, nil)
				req.Header.Set("Authorization", "Bearer "+tok)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				if w.Code != http.StatusUnauthorized {
					t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
				}
				if strings.Contains(w.Body.String(), "Oatmeal") {
					t.Errorf("forged token read another user's plan")
				}
			})
		}
	}

	// The genuine token still reaches the plan.
	if w := doRequest(t, router, "GET", "/api/schedule?day=Mon", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Oatmeal") {
		t.Errorf("valid token: got %d", w.Code)
	}
}

func TestAuth_LocalSecretRejectsForgedTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHandler(backend.NewClient("http://127.0.0.1:0"), session.NewParser(testSecret, nil), notify.NewMemoryScheduler())
	router := gin.New()
	h.registerRoutes(router)

	for name, tok := range forgedTokens(t) {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/schedule", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
	if w := doRequest(t, router, "GET", "/api/schedule", ""); w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}
}

func TestAuth_HealthServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	gin.SetMode(gin.TestMode)
	api := backend.NewClient(srv.URL)
	h := newHandler(api, session.NewParser("", api), notify.NewMemoryScheduler())
	router := gin.New()
	h.registerRoutes(router)

	if w := doRequest(t, router, "GET", "/api/schedule", ""); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when tokens can't be verified, got %d", w.Code)
	}
}

/* ─── Draft ingestion ────────────────────────────────────────────────── */

// TestDraft_MondayScenario: the draft puts three entries on Monday sorted by
// time, skips the unknown weekday, and shows net 300+550-250 = 600.
func TestDraft_MondayScenario(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)
	v := loadDraft(t, router)

	mon := v.Plan[plan.Mon]
	if len(mon) != 3 {
		t.Fatalf("expected 3 Monday entries, got %d", len(mon))
	}
	wantTimes := []string{"07:00", "17:00", "19:00"}
	for i, e := range mon {
		if e.Time != wantTimes[i] {
			t.Errorf("entry %d time = %s, want %s", i, e.Time, wantTimes[i])
		}
	}
	if v.Plan.Len() != 3 {
		t.Errorf("unknown weekday should be skipped, plan has %d entries", v.Plan.Len())
	}
	if len(v.Inventory) != 3 {
		t.Errorf("expected 3 inventory items, got %d", len(v.Inventory))
	}
	if v.Summary.NetCalories != 600 || v.Summary.Intake != 850 || v.Summary.Burn != 250 {
		t.Errorf("unexpected summary %+v", v.Summary)
	}
	if v.Targets.CalorieIntakeGoal != 2263 {
		t.Errorf("targets not loaded: %+v", v.Targets)
	}
	if mock.lastBody("/api/plan/preview")["user_id"] != float64(7) {
		t.Errorf("draft request should carry the session's user id")
	}
}

func TestDraft_Malformed(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)
	loadDraft(t, router)

	mock.set("/api/plan/preview", http.StatusOK, `{"meal_plan": "oops"}`)
	w := doRequest(t, router, "POST", "/api/schedule/draft", `{}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	v := decode[scheduleView](t, doRequest(t, router, "GET", "/api/schedule", ""))
	if v.Plan.Len() != 0 {
		t.Errorf("plan should be empty after a malformed draft, has %d entries", v.Plan.Len())
	}
}

func TestDraft_BackendError(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)
	mock.set("/api/plan/preview", http.StatusInternalServerError, `{"error":"AI engine failed"}`)

	w := doRequest(t, router, "POST", "/api/schedule/draft", `{}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["error"] != "AI engine failed" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestGetSchedule_InvalidDay(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	if w := doRequest(t, router, "GET", "/api/schedule?day=Funday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

/* ─── Editor flow ────────────────────────────────────────────────────── */

// TestEditor_PlaceOnTuesday opens Run from the inventory for Tuesday, moves it
// to 06:30 and saves. Tuesday then has exactly one entry.
func TestEditor_PlaceOnTuesday(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	loadDraft(t, router)

	w := doRequest(t, router, "POST", "/api/schedule/editor/new", `{"day":"Tue","inventory_id":"inv_9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("open new: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if v := decode[map[string]any](t, w); v["state"] != "open_for_new" || v["time"] != "17:00" {
		t.Errorf("unexpected editor %v", v)
	}

	if w := doRequest(t, router, "PATCH", "/api/schedule/editor", `{"time":"06:30","calories":"260"}`); w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", w.Code)
	}
	w = doRequest(t, router, "POST", "/api/schedule/editor/save", "")
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	saved := decode[struct {
		Entry   plan.ScheduleEntry `json:"entry"`
		Summary plan.DaySummary    `json:"summary"`
	}](t, w)
	if saved.Summary.Burn != 260 || saved.Summary.Day != plan.Tue {
		t.Errorf("unexpected summary %+v", saved.Summary)
	}

	v := decode[scheduleView](t, doRequest(t, router, "GET", "/api/schedule?day=Tue", ""))
	if len(v.Plan[plan.Tue]) != 1 || v.Plan[plan.Tue][0].Time != "06:30" {
		t.Fatalf("unexpected Tuesday %+v", v.Plan[plan.Tue])
	}
	for _, e := range v.Plan[plan.Mon] {
		if e.InstanceID == saved.Entry.InstanceID {
			t.Errorf("new placement reused an existing instance id")
		}
	}
	if v.Editor.State != "closed" {
		t.Errorf("editor should be closed after save, is %s", v.Editor.State)
	}
}

func TestEditor_ValidationKeepsSessionOpen(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	v := loadDraft(t, router)
	oatmeal := v.Plan[plan.Mon][0]

	doRequest(t, router, "POST", "/api/schedule/editor/edit", `{"day":"Mon","instance_id":"`+oatmeal.InstanceID+`"}`)
	doRequest(t, router, "PATCH", "/api/schedule/editor", `{"calories":"lots"}`)

	w := doRequest(t, router, "POST", "/api/schedule/editor/save", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["field"] != "calories" {
		t.Errorf("field = %q, want calories", resp["field"])
	}
	if ed := decode[map[string]any](t, doRequest(t, router, "GET", "/api/schedule/editor", "")); ed["state"] != "open_for_edit" {
		t.Errorf("editor should stay open, state = %v", ed["state"])
	}
}

func TestEditor_DeleteAndStateErrors(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	v := loadDraft(t, router)
	run := v.Plan[plan.Mon][1]

	if w := doRequest(t, router, "POST", "/api/schedule/editor/delete", ""); w.Code != http.StatusConflict {
		t.Errorf("delete with closed editor: expected 409, got %d", w.Code)
	}

	doRequest(t, router, "POST", "/api/schedule/editor/edit", `{"day":"Mon","instance_id":"`+run.InstanceID+`"}`)
	if w := doRequest(t, router, "POST", "/api/schedule/editor/new", `{"day":"Mon","inventory_id":"inv_1"}`); w.Code != http.StatusConflict {
		t.Errorf("second open: expected 409, got %d", w.Code)
	}
	w := doRequest(t, router, "POST", "/api/schedule/editor/delete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	after := decode[scheduleView](t, doRequest(t, router, "GET", "/api/schedule?day=Mon", ""))
	if len(after.Plan[plan.Mon]) != 2 {
		t.Fatalf("expected 2 Monday entries, got %d", len(after.Plan[plan.Mon]))
	}
	for _, e := range after.Plan[plan.Mon] {
		if e.InstanceID == run.InstanceID {
			t.Errorf("deleted entry still present")
		}
	}
}

func TestEditor_UnknownTargets(t *testing.T) {
	router, _ := setupScheduleTest(t, nil)
	loadDraft(t, router)
	if w := doRequest(t, router, "POST", "/api/schedule/editor/new", `{"day":"Mon","inventory_id":"inv_404"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown inventory item: expected 404, got %d", w.Code)
	}
	if w := doRequest(t, router, "POST", "/api/schedule/editor/edit", `{"day":"Mon","instance_id":"nope"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown entry: expected 404, got %d", w.Code)
	}
}

/* ─── Save ───────────────────────────────────────────────────────────── */

// TestSave_SchedulesReminders saves on Wednesday: all three Monday entries
// fall on next Monday and are scheduled.
func TestSave_SchedulesReminders(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)
	loadDraft(t, router)

	w := doRequest(t, router, "POST", "/api/schedule/save", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[saveScheduleResponse](t, w)
	if resp.PlanID != 41 || !resp.RemindersSet || resp.Reminders != 3 {
		t.Errorf("unexpected save response %+v", resp)
	}

	body := mock.lastBody("/api/plan/save")
	data, _ := body["plan_data"].(map[string]any)
	if mon, _ := data["Mon"].([]any); len(mon) != 3 {
		t.Errorf("saved plan should carry 3 Monday entries, got %v", data["Mon"])
	}

	reminders := decode[struct {
		Reminders []notify.Notification `json:"reminders"`
	}](t, doRequest(t, router, "GET", "/api/reminders", ""))
	if len(reminders.Reminders) != 3 {
		t.Fatalf("expected 3 pending reminders, got %d", len(reminders.Reminders))
	}
	first := reminders.Reminders[0]
	if first.Name != "Oatmeal" || first.FireAt.Format("2006-01-02 15:04") != "2026-10-26 07:00" {
		t.Errorf("unexpected first reminder %+v", first)
	}
}

func TestSave_BackendFailureKeepsPlan(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)
	loadDraft(t, router)
	mock.set("/api/plan/save", http.StatusInternalServerError, `{"error":"db down"}`)

	w := doRequest(t, router, "POST", "/api/schedule/save", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	v := decode[scheduleView](t, doRequest(t, router, "GET", "/api/schedule", ""))
	if v.Plan.Len() != 3 {
		t.Errorf("plan should be kept for a retry, has %d entries", v.Plan.Len())
	}
	if r := decode[map[string][]any](t, doRequest(t, router, "GET", "/api/reminders", "")); len(r["reminders"]) != 0 {
		t.Errorf("no reminders should be scheduled after a failed save")
	}
}

func TestSave_ReminderFailureIsSoft(t *testing.T) {
	router, _ := setupScheduleTest(t, failingStore{notify.NewMemoryScheduler()})
	loadDraft(t, router)

	w := doRequest(t, router, "POST", "/api/schedule/save", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[saveScheduleResponse](t, w)
	if resp.RemindersSet || resp.Warning != "plan saved, reminders not set" || resp.PlanID != 41 {
		t.Errorf("unexpected save response %+v", resp)
	}
}

/* ─── Load current ───────────────────────────────────────────────────── */

func TestLoadCurrent(t *testing.T) {
	router, mock := setupScheduleTest(t, nil)

	mock.set("/api/plan/current", http.StatusOK, `{}`)
	if w := doRequest(t, router, "POST", "/api/schedule/load-current", ""); w.Code != http.StatusNotFound {
		t.Errorf("no saved plan: expected 404, got %d", w.Code)
	}

	mock.set("/api/plan/current", http.StatusOK, `{
		"plan_id": 41, "start_date": "2026-10-19", "end_date": "2026-10-25",
		"Mon": [], "Tue": [{"id": 9, "instanceId": "x1", "title": "Run", "type": "workout", "cal": 250, "time": "17:00", "icon": "🏃", "isCompleted": true}],
		"Wed": [], "Thu": [], "Fri": [], "Sat": [], "Sun": []
	}`)
	w := doRequest(t, router, "POST", "/api/schedule/load-current", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v := decode[scheduleView](t, w)
	if v.PlanID != 41 || len(v.Plan[plan.Tue]) != 1 || !v.Plan[plan.Tue][0].IsCompleted {
		t.Errorf("unexpected loaded plan %+v", v)
	}
	if len(v.Inventory) != 1 || v.Inventory[0].Key != "inv_9" {
		t.Errorf("inventory should be rebuilt from entries, got %+v", v.Inventory)
	}
}
