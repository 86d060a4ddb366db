// Package plan holds the editable weekly schedule: per-weekday entry lists,
// the inventory of items that can be placed into any day, and the derivations
// made from them (daily calorie summaries, reminder lists).
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DayKey is one of the seven fixed weekday keys of a WeeklyPlan.
type DayKey string

const (
	Mon DayKey = "Mon"
	Tue DayKey = "Tue"
	Wed DayKey = "Wed"
	Thu DayKey = "Thu"
	Fri DayKey = "Fri"
	Sat DayKey = "Sat"
	Sun DayKey = "Sun"
)

// Days lists the weekday keys in display order.
var Days = []DayKey{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// dayWeekdays maps each key to its time.Weekday.
var dayWeekdays = map[DayKey]time.Weekday{
	Mon: time.Monday, Tue: time.Tuesday, Wed: time.Wednesday, Thu: time.Thursday,
	Fri: time.Friday, Sat: time.Saturday, Sun: time.Sunday,
}

// ParseDayKey validates a weekday key ("Mon".."Sun").
func ParseDayKey(s string) (DayKey, bool) {
	d := DayKey(s)
	_, ok := dayWeekdays[d]
	return d, ok
}

// Weekday returns the time.Weekday for the key.
func (d DayKey) Weekday() time.Weekday {
	return dayWeekdays[d]
}

// Kind distinguishes calorie intake (meal) from calorie burn (workout).
type Kind string

const (
	KindMeal    Kind = "meal"
	KindWorkout Kind = "workout"
)

// CatalogID is the source catalog id of an item. The health service sends
// numbers for catalog items and strings ("custom_3") for user-entered ones, so
// both are accepted; it always serializes as a string.
type CatalogID string

func (id *CatalogID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CatalogID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("catalog id must be a string or number: %w", err)
	}
	*id = CatalogID(n.String())
	return nil
}

// ScheduleEntry is one placement of a meal or workout in a day. JSON names
// follow the plan format stored by the health service.
type ScheduleEntry struct {
	ID          CatalogID `json:"id"`
	InstanceID  string    `json:"instanceId"`
	Title       string    `json:"title"`
	Kind        Kind      `json:"type"`
	Calories    int       `json:"cal"`
	Time        string    `json:"time"` // HH:MM, 24h
	Duration    string    `json:"duration,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	IsCompleted bool      `json:"isCompleted,omitempty"`
}

// WeeklyPlan maps every weekday key to its entries, sorted by time.
type WeeklyPlan map[DayKey][]ScheduleEntry

// NewWeeklyPlan returns a plan with all seven days present and empty.
func NewWeeklyPlan() WeeklyPlan {
	p := make(WeeklyPlan, len(Days))
	for _, d := range Days {
		p[d] = []ScheduleEntry{}
	}
	return p
}

// sortByTime orders entries by time. "HH:MM" is fixed-width, so a string
// compare is a time compare. Stable so equal times keep insertion order.
func sortByTime(entries []ScheduleEntry) {
	slices.SortStableFunc(entries, func(a, b ScheduleEntry) int {
		return strings.Compare(a.Time, b.Time)
	})
}

// SortAll re-sorts every day.
func (p WeeklyPlan) SortAll() {
	for _, d := range Days {
		sortByTime(p[d])
	}
}

// Add appends an entry to a day and re-sorts it.
func (p WeeklyPlan) Add(day DayKey, e ScheduleEntry) {
	list := append(p[day], e)
	sortByTime(list)
	p[day] = list
}

// Replace swaps the entry with e.InstanceID in the given day for e and
// re-sorts. Returns false if the day has no such entry.
func (p WeeklyPlan) Replace(day DayKey, e ScheduleEntry) bool {
	list := p[day]
	for i := range list {
		if list[i].InstanceID == e.InstanceID {
			list[i] = e
			sortByTime(list)
			return true
		}
	}
	return false
}

// Remove deletes exactly the entry with instanceID from the day.
func (p WeeklyPlan) Remove(day DayKey, instanceID string) (ScheduleEntry, bool) {
	list := p[day]
	for i := range list {
		if list[i].InstanceID == instanceID {
			removed := list[i]
			p[day] = slices.Delete(slices.Clone(list), i, i+1)
			return removed, true
		}
	}
	return ScheduleEntry{}, false
}

// Find looks up an entry by instance id in one day.
func (p WeeklyPlan) Find(day DayKey, instanceID string) (ScheduleEntry, bool) {
	for _, e := range p[day] {
		if e.InstanceID == instanceID {
			return e, true
		}
	}
	return ScheduleEntry{}, false
}

// Clone returns a deep copy, used to hand a snapshot to the network layer
// without holding the workspace lock.
func (p WeeklyPlan) Clone() WeeklyPlan {
	out := make(WeeklyPlan, len(p))
	for d, list := range p {
		out[d] = slices.Clone(list)
	}
	for _, d := range Days {
		if out[d] == nil {
			out[d] = []ScheduleEntry{}
		}
	}
	return out
}

// Len counts entries across all days.
func (p WeeklyPlan) Len() int {
	n := 0
	for _, list := range p {
		n += len(list)
	}
	return n
}
