package plan

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SavedMeta describes the stored plan a WeeklyPlan was rebuilt from.
type SavedMeta struct {
	PlanID    int    `json:"plan_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FromSaved rebuilds a plan from the health service's current-plan payload:
// the seven day keys plus plan_id/start_date/end_date. An empty object means
// the user has no saved plan and yields an empty plan with found=false.
func FromSaved(raw []byte) (p WeeklyPlan, inv Inventory, meta SavedMeta, found bool, err error) {
	p = NewWeeklyPlan()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return p, nil, meta, false, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}
	if len(fields) == 0 {
		return p, Inventory{}, meta, false, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return p, nil, meta, false, fmt.Errorf("%w: plan metadata: %v", ErrMalformedDraft, err)
	}

	builder := newInventoryBuilder()
	for _, d := range Days {
		rawDay, ok := fields[string(d)]
		if !ok || string(rawDay) == "null" {
			continue
		}
		var entries []ScheduleEntry
		if err := json.Unmarshal(rawDay, &entries); err != nil {
			return NewWeeklyPlan(), nil, meta, false, fmt.Errorf("%w: day %s: %v", ErrMalformedDraft, d, err)
		}
		for i := range entries {
			if t := normalizeTime(entries[i].Time); t != "" {
				entries[i].Time = t
			} else {
				entries[i].Time = defaultTime(entries[i].Kind)
			}
			if entries[i].InstanceID == "" {
				entries[i].InstanceID = uuid.NewString()
			}
			builder.add(InventoryItem{
				Key:         inventoryKey(entries[i].ID),
				ID:          entries[i].ID,
				Title:       entries[i].Title,
				Kind:        entries[i].Kind,
				Calories:    entries[i].Calories,
				DefaultTime: entries[i].Time,
				Duration:    entries[i].Duration,
				Description: entries[i].Description,
				Icon:        entries[i].Icon,
			})
		}
		p[d] = entries
	}
	p.SortAll()
	return p, builder.items, meta, true, nil
}
