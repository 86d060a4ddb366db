package plan

import (
	"fmt"
	"time"
)

// Reminder kinds as the notification layer and health service name them.
const (
	ReminderFood     = "food"
	ReminderExercise = "exercise"
)

// Reminder is one flattened plan entry resolved to a calendar date.
type Reminder struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Date       string `json:"date"`        // YYYY-MM-DD
	NotifyTime string `json:"notify_time"` // HH:MM:SS
}

// FireAt resolves the reminder to an instant in loc.
func (r Reminder) FireAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", r.Date+" "+r.NotifyTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder %q: %w", r.Name, err)
	}
	return t, nil
}

// DateForDay returns midnight of the next occurrence of day on or after now's
// date. Today counts as distance zero; a weekday already passed this week
// rolls forward a week. AddDate handles month and year boundaries.
func DateForDay(day DayKey, now time.Time) time.Time {
	distance := int(day.Weekday()) - int(now.Weekday())
	if distance < 0 {
		distance += 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, distance)
}

// Reminders flattens the plan into one reminder per entry, dated with
// DateForDay relative to now.
func Reminders(p WeeklyPlan, now time.Time) []Reminder {
	out := []Reminder{}
	for _, d := range Days {
		entries := p[d]
		if len(entries) == 0 {
			continue
		}
		date := DateForDay(d, now).Format("2006-01-02")
		for _, e := range entries {
			kind := ReminderFood
			if e.Kind == KindWorkout {
				kind = ReminderExercise
			}
			notify := e.Time
			if len(notify) == 5 && notify[2] == ':' {
				notify += ":00"
			}
			out = append(out, Reminder{
				Name:       e.Title,
				Type:       kind,
				Date:       date,
				NotifyTime: notify,
			})
		}
	}
	return out
}
