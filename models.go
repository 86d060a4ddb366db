package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/editor"
	"lg/health-planner-api/internal/plan"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// enumValue accepts either a JSON number (2) or string ("light") so clients
// can send the health service's numeric codes or readable ids.
type enumValue string

func (e *enumValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = enumValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or number: %w", err)
	}
	*e = enumValue(n.String())
	return nil
}

/* ─── Schedule ───────────────────────────────────────────────────────── */

// scheduleView is the response shape for the schedule endpoints: the whole
// plan plus everything the screen shows for the selected day.
type scheduleView struct {
	Day       plan.DayKey       `json:"day"`
	Plan      plan.WeeklyPlan   `json:"plan"`
	Inventory plan.Inventory    `json:"inventory"`
	Targets   plan.DailyTargets `json:"targets"`
	Summary   plan.DaySummary   `json:"summary"`
	Editor    editor.View       `json:"editor"`
	PlanID    int               `json:"plan_id,omitempty"`
}

// openNewRequest is the request body for POST /api/schedule/editor/new.
type openNewRequest struct {
	Day         string `json:"day"`
	InventoryID string `json:"inventory_id"`
}

// openEditRequest is the request body for POST /api/schedule/editor/edit.
type openEditRequest struct {
	Day        string `json:"day"`
	InstanceID string `json:"instance_id"`
}

// patchEditorRequest is the request body for PATCH /api/schedule/editor.
// Fields are pointers so only the ones sent are changed. Calories and time are
// the raw form text; they are validated on save.
type patchEditorRequest struct {
	Title    *string `json:"title"`
	Calories *string `json:"calories"`
	Time     *string `json:"time"`
}

// saveScheduleResponse is the response for POST /api/schedule/save. A failed
// reminder refresh doesn't fail the save: RemindersSet is false and Warning
// says why.
type saveScheduleResponse struct {
	PlanID       int    `json:"plan_id,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Reminders    int    `json:"reminders"`
	RemindersSet bool   `json:"reminders_set"`
	Warning      string `json:"warning,omitempty"`
}

/* ─── Health profile ─────────────────────────────────────────────────── */

// healthPreviewRequest is the request body for POST /api/health/preview.
type healthPreviewRequest struct {
	Sex           string    `json:"sex"`
	DateOfBirth   *DateOnly `json:"date_of_birth"`
	HeightCM      float64   `json:"height_cm"`
	WeightKG      float64   `json:"weight_kg"`
	ActivityLevel enumValue `json:"activity_level"`
	Goal          enumValue `json:"goal"`
}

// addMetricRequest is the request body for POST /api/metrics.
type addMetricRequest struct {
	HeightCM               float64   `json:"height_cm"`
	WeightKG               float64   `json:"weight_kg"`
	HeartRate              *float64  `json:"heart_rate"`
	BloodPressureSystolic  *float64  `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64  `json:"blood_pressure_diastolic"`
	SleepHours             *float64  `json:"sleep_hours"`
	ActivityLevel          enumValue `json:"activity_level"`
	Goal                   enumValue `json:"goal"`
	HasHypertension        bool      `json:"has_hypertension"`
	HasDiabetes            bool      `json:"has_diabetes"`
}

// reportResponse is the response for GET /api/reports: the metric history
// plus the calorie summary of the week being planned.
type reportResponse struct {
	Metrics        []backend.Metric  `json:"metrics"`
	Latest         *backend.Metric   `json:"latest"`
	WeightChangeKG *float64          `json:"weight_change_kg"`
	Targets        plan.DailyTargets `json:"targets"`
	Week           []plan.DaySummary `json:"week"`
	WeekNet        int               `json:"week_net_calories"`
}

/* ─── Accounts ───────────────────────────────────────────────────────── */

// registerRequest is the request body for POST /api/register.
type registerRequest struct {
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Gender      string    `json:"gender"`
	DateOfBirth *DateOnly `json:"date_of_birth"`
}

/* ─── Tracking ───────────────────────────────────────────────────────── */

// trackRequest is the request body for POST /api/tracking. Date defaults to
// the day's next occurrence.
type trackRequest struct {
	Day         string    `json:"day"`
	InstanceID  string    `json:"instance_id"`
	Date        *DateOnly `json:"date"`
	IsCompleted bool      `json:"is_completed"`
}
