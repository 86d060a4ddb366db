// Package editor is the single-modal editing session for one schedule entry:
// opened from the inventory (new placement) or from an existing entry, saved,
// deleted, or cancelled.
package editor

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lg/health-planner-api/internal/plan"
)

// State of the session.
type State int

const (
	Closed State = iota
	OpenForNew
	OpenForEdit
)

func (s State) String() string {
	switch s {
	case OpenForNew:
		return "open_for_new"
	case OpenForEdit:
		return "open_for_edit"
	default:
		return "closed"
	}
}

var (
	ErrNotOpen      = errors.New("no entry is being edited")
	ErrAlreadyOpen  = errors.New("an entry is already being edited")
	ErrNotEditing   = errors.New("only existing entries can be deleted")
	ErrUnknownEntry = errors.New("entry no longer exists in the plan")
)

// ValidationError rejects a save; the session stays open.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Session holds the form state bound to one entry. The zero value is Closed.
type Session struct {
	state    State
	day      plan.DayKey
	target   plan.ScheduleEntry
	title    string
	calories string
	timeText string
}

// View is a read-only snapshot of the session for rendering.
type View struct {
	State    string              `json:"state"`
	Day      plan.DayKey         `json:"day,omitempty"`
	Target   *plan.ScheduleEntry `json:"target,omitempty"`
	Title    string              `json:"title"`
	Calories string              `json:"calories"`
	Time     string              `json:"time"`
}

// State reports the current state.
func (s *Session) State() State { return s.state }

// View returns the current snapshot.
func (s *Session) View() View {
	v := View{State: s.state.String(), Title: s.title, Calories: s.calories, Time: s.timeText}
	if s.state != Closed {
		target := s.target
		v.Day = s.day
		v.Target = &target
	}
	return v
}

// OpenNew starts placing an inventory item into day.
func (s *Session) OpenNew(day plan.DayKey, item plan.InventoryItem) error {
	if s.state != Closed {
		return ErrAlreadyOpen
	}
	s.state = OpenForNew
	s.day = day
	s.target = item.Place()
	s.title = item.Title
	s.calories = strconv.Itoa(item.Calories)
	s.timeText = item.DefaultTime
	return nil
}

// OpenEdit starts editing an existing entry of day.
func (s *Session) OpenEdit(day plan.DayKey, entry plan.ScheduleEntry) error {
	if s.state != Closed {
		return ErrAlreadyOpen
	}
	cal := entry.Calories
	if cal < 0 {
		cal = -cal
	}
	s.state = OpenForEdit
	s.day = day
	s.target = entry
	s.title = entry.Title
	s.calories = strconv.Itoa(cal)
	s.timeText = entry.Time
	return nil
}

func (s *Session) SetTitle(title string) error {
	if s.state == Closed {
		return ErrNotOpen
	}
	s.title = title
	return nil
}

func (s *Session) SetCalories(text string) error {
	if s.state == Closed {
		return ErrNotOpen
	}
	s.calories = text
	return nil
}

// SetTimeText stores raw time text; it is validated on save.
func (s *Session) SetTimeText(text string) error {
	if s.state == Closed {
		return ErrNotOpen
	}
	s.timeText = text
	return nil
}

// SetTime stores a picker value as "HH:MM". Only the formatted string is
// kept, never the picker's own value.
func (s *Session) SetTime(t time.Time) error {
	return s.SetTimeText(t.Format("15:04"))
}

// validate parses the form into an entry.
func (s *Session) validate() (plan.ScheduleEntry, error) {
	timeText := strings.TrimSpace(s.timeText)
	if timeText == "" {
		return plan.ScheduleEntry{}, &ValidationError{Field: "time", Message: "time is required"}
	}
	if !clockPattern.MatchString(timeText) {
		return plan.ScheduleEntry{}, &ValidationError{Field: "time", Message: "time must be HH:MM"}
	}
	calText := strings.TrimSpace(s.calories)
	if calText == "" {
		return plan.ScheduleEntry{}, &ValidationError{Field: "calories", Message: "calories are required"}
	}
	cal, err := strconv.Atoi(calText)
	if err != nil {
		return plan.ScheduleEntry{}, &ValidationError{Field: "calories", Message: "calories must be a whole number"}
	}

	e := s.target
	e.Title = strings.TrimSpace(s.title)
	if e.Title == "" {
		e.Title = s.target.Title
	}
	e.Calories = cal
	e.Time = timeText
	return e, nil
}

// Save validates the form and writes it to p: a new placement is appended to
// the day, an edit replaces the entry with the same instance id. The day is
// re-sorted either way. On a ValidationError the session stays open.
func (s *Session) Save(p plan.WeeklyPlan) (plan.ScheduleEntry, error) {
	if s.state == Closed {
		return plan.ScheduleEntry{}, ErrNotOpen
	}
	e, err := s.validate()
	if err != nil {
		return plan.ScheduleEntry{}, err
	}
	switch s.state {
	case OpenForNew:
		p.Add(s.day, e)
	case OpenForEdit:
		if !p.Replace(s.day, e) {
			s.Cancel()
			return plan.ScheduleEntry{}, ErrUnknownEntry
		}
	}
	s.Cancel()
	return e, nil
}

// Delete removes the edited entry from p. Not allowed for new placements.
func (s *Session) Delete(p plan.WeeklyPlan) (plan.ScheduleEntry, error) {
	switch s.state {
	case Closed:
		return plan.ScheduleEntry{}, ErrNotOpen
	case OpenForNew:
		return plan.ScheduleEntry{}, ErrNotEditing
	}
	removed, ok := p.Remove(s.day, s.target.InstanceID)
	s.Cancel()
	if !ok {
		return plan.ScheduleEntry{}, ErrUnknownEntry
	}
	return removed, nil
}

// Cancel discards the session.
func (s *Session) Cancel() {
	*s = Session{}
}
