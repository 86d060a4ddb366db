package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedDraft is returned when a draft payload can't be decoded.
var ErrMalformedDraft = errors.New("malformed plan draft")

// backendDayNames maps the health service's weekday names to plan keys, in
// week order so ingestion is deterministic.
var backendDayNames = []struct {
	Name string
	Key  DayKey
}{
	{"Monday", Mon}, {"Tuesday", Tue}, {"Wednesday", Wed}, {"Thursday", Thu},
	{"Friday", Fri}, {"Saturday", Sat}, {"Sunday", Sun},
}

// slot is a draft placement kind with its default time and icon.
type slot struct {
	Kind Kind
	Time string
	Icon string
}

var (
	slotBreakfast = slot{KindMeal, "07:00", "🥣"}
	slotLunch     = slot{KindMeal, "12:00", "🍚"}
	slotDinner    = slot{KindMeal, "19:00", "🍲"}
	slotExercise  = slot{KindWorkout, "17:00", "🏃"}
)

// defaultTime is the fallback for an entry whose stored time can't be read.
func defaultTime(k Kind) string {
	if k == KindWorkout {
		return slotExercise.Time
	}
	return slotLunch.Time
}

// DraftItem is a leaf of the draft: one meal or exercise.
type DraftItem struct {
	ID          CatalogID `json:"id"`
	Name        string    `json:"name"`
	Cal         float64   `json:"cal"`
	Calories    float64   `json:"calories"`
	DurationMin float64   `json:"duration_min"`
	Time        string    `json:"time"`
	Description string    `json:"description"`
}

type draftMealDay struct {
	Breakfast *DraftItem `json:"breakfast"`
	Lunch     *DraftItem `json:"lunch"`
	Dinner    *DraftItem `json:"dinner"`
}

type draftWorkoutDay struct {
	Exercises []DraftItem `json:"exercises"`
}

// Draft is the health service's proposed week, split into meal and workout trees
// keyed by weekday name ("Monday").
type Draft struct {
	MealPlan    map[string]draftMealDay    `json:"meal_plan"`
	WorkoutPlan map[string]draftWorkoutDay `json:"workout_plan"`
}

// calories picks "cal", falling back to "calories".
func (it DraftItem) calories() int {
	v := it.Cal
	if v == 0 {
		v = it.Calories
	}
	return int(math.Round(v))
}

func (it DraftItem) durationLabel() string {
	if it.DurationMin <= 0 {
		return ""
	}
	return strconv.FormatFloat(it.DurationMin, 'f', -1, 64) + " min"
}

// normalizeTime returns t as HH:MM when it is a valid clock time
// ("7:05", "07:05", "07:05:00"), otherwise "".
func normalizeTime(t string) string {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed.Format("15:04")
		}
	}
	return ""
}

// Ingest decodes a draft payload and turns it into a WeeklyPlan and an
// Inventory. Unknown weekday names are skipped.
func Ingest(raw []byte) (WeeklyPlan, Inventory, error) {
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return NewWeeklyPlan(), nil, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}
	return IngestDraft(d)
}

// IngestDraft builds the plan and inventory from an already-decoded draft.
// Meals are placed before workouts and days are walked Monday..Sunday, so the
// first-seen item for the inventory is stable.
func IngestDraft(d Draft) (WeeklyPlan, Inventory, error) {
	p := NewWeeklyPlan()
	inv := newInventoryBuilder()

	place := func(day DayKey, it DraftItem, s slot) error {
		if it.ID == "" {
			return fmt.Errorf("%w: %s item %q on %s has no id", ErrMalformedDraft, s.Kind, it.Name, day)
		}
		inv.add(InventoryItem{
			Key:         inventoryKey(it.ID),
			ID:          it.ID,
			Title:       it.Name,
			Kind:        s.Kind,
			Calories:    it.calories(),
			DefaultTime: s.Time,
			Duration:    it.durationLabel(),
			Description: it.Description,
			Icon:        s.Icon,
		})
		t := normalizeTime(it.Time)
		if t == "" {
			t = s.Time
		}
		p[day] = append(p[day], ScheduleEntry{
			ID:          it.ID,
			InstanceID:  uuid.NewString(),
			Title:       it.Name,
			Kind:        s.Kind,
			Calories:    it.calories(),
			Time:        t,
			Duration:    it.durationLabel(),
			Description: it.Description,
			Icon:        s.Icon,
		})
		return nil
	}

	for _, dn := range backendDayNames {
		meals, ok := d.MealPlan[dn.Name]
		if !ok {
			continue
		}
		for _, m := range []struct {
			item *DraftItem
			slot slot
		}{{meals.Breakfast, slotBreakfast}, {meals.Lunch, slotLunch}, {meals.Dinner, slotDinner}} {
			if m.item == nil {
				continue
			}
			if err := place(dn.Key, *m.item, m.slot); err != nil {
				return NewWeeklyPlan(), nil, err
			}
		}
	}

	for _, dn := range backendDayNames {
		workouts, ok := d.WorkoutPlan[dn.Name]
		if !ok {
			continue
		}
		for _, ex := range workouts.Exercises {
			if err := place(dn.Key, ex, slotExercise); err != nil {
				return NewWeeklyPlan(), nil, err
			}
		}
	}

	p.SortAll()
	return p, inv.items, nil
}
