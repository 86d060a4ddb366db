package editor

import (
	"errors"
	"testing"
	"time"

	"lg/health-planner-api/internal/plan"
)

const draft = `{
	"meal_plan": {"Monday": {"breakfast": {"id": 1, "name": "Oatmeal", "cal": 300},
	                         "dinner": {"id": 2, "name": "Stir Fry", "cal": 550}}},
	"workout_plan": {"Monday": {"exercises": [{"id": 9, "name": "Run", "cal": 250, "duration_min": 30}]}}
}`

func setup(t *testing.T) (plan.WeeklyPlan, plan.Inventory) {
	t.Helper()
	p, inv, err := plan.Ingest([]byte(draft))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return p, inv
}

func instanceIDs(p plan.WeeklyPlan) map[string]bool {
	ids := map[string]bool{}
	for _, list := range p {
		for _, e := range list {
			ids[e.InstanceID] = true
		}
	}
	return ids
}

/* ─── New placements ──────────────────────────────────────────────────── */

// TestSaveNew_AddsExactlyOne places Run on Tuesday: the day grows by one and
// the new instance id is not shared with any existing entry.
func TestSaveNew_AddsExactlyOne(t *testing.T) {
	p, inv := setup(t)
	before := instanceIDs(p)
	run, _ := inv.Find("inv_9")

	var s Session
	if err := s.OpenNew(plan.Tue, run); err != nil {
		t.Fatalf("OpenNew: %v", err)
	}
	if s.State() != OpenForNew {
		t.Fatalf("state = %s, want open_for_new", s.State())
	}
	if v := s.View(); v.Time != "17:00" || v.Calories != "250" {
		t.Errorf("form defaults = %s / %s, want 17:00 / 250", v.Time, v.Calories)
	}

	e, err := s.Save(p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(p[plan.Tue]) != 1 {
		t.Fatalf("expected 1 entry on Tue, got %d", len(p[plan.Tue]))
	}
	if before[e.InstanceID] {
		t.Errorf("new instance id %s collides with an existing entry", e.InstanceID)
	}
	if s.State() != Closed {
		t.Errorf("session should close after save")
	}
}

func TestSaveNew_SortsIntoDay(t *testing.T) {
	p, inv := setup(t)
	oatmeal, _ := inv.Find("1")

	var s Session
	_ = s.OpenNew(plan.Mon, oatmeal)
	_ = s.SetTime(time.Date(2026, 1, 1, 13, 5, 0, 0, time.UTC))
	if _, err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mon := p[plan.Mon]
	if len(mon) != 4 {
		t.Fatalf("expected 4 entries on Mon, got %d", len(mon))
	}
	if mon[1].Time != "13:05" || mon[1].Title != "Oatmeal" {
		t.Errorf("expected 13:05 Oatmeal second, got %s %s", mon[1].Time, mon[1].Title)
	}
}

/* ─── Edits ───────────────────────────────────────────────────────────── */

// TestSaveEdit_PreservesInstanceAndResorts moves breakfast to the evening.
func TestSaveEdit_PreservesInstanceAndResorts(t *testing.T) {
	p, _ := setup(t)
	oatmeal := p[plan.Mon][0]

	var s Session
	if err := s.OpenEdit(plan.Mon, oatmeal); err != nil {
		t.Fatalf("OpenEdit: %v", err)
	}
	_ = s.SetTitle("Overnight Oats")
	_ = s.SetCalories("320")
	_ = s.SetTimeText("21:30")

	e, err := s.Save(p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.InstanceID != oatmeal.InstanceID {
		t.Errorf("instance id changed: %s -> %s", oatmeal.InstanceID, e.InstanceID)
	}
	mon := p[plan.Mon]
	if len(mon) != 3 {
		t.Fatalf("edit changed entry count to %d", len(mon))
	}
	last := mon[len(mon)-1]
	if last.InstanceID != oatmeal.InstanceID || last.Title != "Overnight Oats" || last.Calories != 320 {
		t.Errorf("expected edited entry last, got %+v", last)
	}
	for i := 1; i < len(mon); i++ {
		if mon[i-1].Time > mon[i].Time {
			t.Errorf("Mon not sorted after edit")
		}
	}
}

func TestOpenEdit_ShowsAbsoluteCalories(t *testing.T) {
	var s Session
	_ = s.OpenEdit(plan.Mon, plan.ScheduleEntry{InstanceID: "x", Calories: -250, Time: "17:00"})
	if v := s.View(); v.Calories != "250" {
		t.Errorf("calories = %q, want 250", v.Calories)
	}
}

/* ─── Validation ──────────────────────────────────────────────────────── */

func TestSave_ValidationKeepsSessionOpen(t *testing.T) {
	cases := []struct {
		name, cal, time, field string
	}{
		{"empty time", "300", "", "time"},
		{"bad time", "300", "7pm", "time"},
		{"out of range", "300", "24:10", "time"},
		{"empty calories", "", "07:00", "calories"},
		{"non-integer calories", "3.5", "07:00", "calories"},
		{"text calories", "lots", "07:00", "calories"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := setup(t)
			var s Session
			_ = s.OpenEdit(plan.Mon, p[plan.Mon][0])
			_ = s.SetCalories(tc.cal)
			_ = s.SetTimeText(tc.time)

			_, err := s.Save(p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
			if s.State() != OpenForEdit {
				t.Errorf("session closed after rejected save")
			}
			if p[plan.Mon][0].Calories != 300 {
				t.Errorf("plan mutated by rejected save")
			}
		})
	}
}

/* ─── Delete / cancel / state errors ──────────────────────────────────── */

func TestDelete_RemovesExactEntry(t *testing.T) {
	p, _ := setup(t)
	target := p[plan.Mon][1]
	others := []string{p[plan.Mon][0].InstanceID, p[plan.Mon][2].InstanceID}

	var s Session
	_ = s.OpenEdit(plan.Mon, target)
	removed, err := s.Delete(p)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.InstanceID != target.InstanceID {
		t.Errorf("removed %s, want %s", removed.InstanceID, target.InstanceID)
	}
	if len(p[plan.Mon]) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(p[plan.Mon]))
	}
	for i, id := range others {
		if p[plan.Mon][i].InstanceID != id {
			t.Errorf("unexpected entry left at %d", i)
		}
	}
}

func TestDelete_NotAllowedForNew(t *testing.T) {
	p, inv := setup(t)
	var s Session
	_ = s.OpenNew(plan.Mon, inv[0])
	if _, err := s.Delete(p); !errors.Is(err, ErrNotEditing) {
		t.Errorf("expected ErrNotEditing, got %v", err)
	}
}

func TestCancel_DiscardsChanges(t *testing.T) {
	p, inv := setup(t)
	var s Session
	_ = s.OpenNew(plan.Wed, inv[0])
	s.Cancel()
	if len(p[plan.Wed]) != 0 || s.State() != Closed {
		t.Errorf("cancel should leave the plan untouched and close the session")
	}
}

func TestStateErrors(t *testing.T) {
	p, inv := setup(t)
	var s Session
	if _, err := s.Save(p); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Save on closed: %v", err)
	}
	if err := s.SetTitle("x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SetTitle on closed: %v", err)
	}
	_ = s.OpenNew(plan.Mon, inv[0])
	if err := s.OpenEdit(plan.Mon, p[plan.Mon][0]); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("expected ErrAlreadyOpen, got %v", err)
	}
}

func TestSaveEdit_EntryGone(t *testing.T) {
	p, _ := setup(t)
	var s Session
	_ = s.OpenEdit(plan.Mon, p[plan.Mon][0])
	p[plan.Mon] = []plan.ScheduleEntry{}
	if _, err := s.Save(p); !errors.Is(err, ErrUnknownEntry) {
		t.Errorf("expected ErrUnknownEntry, got %v", err)
	}
	if len(p[plan.Mon]) != 0 {
		t.Errorf("stale edit must not re-insert the entry")
	}
}
