// Package notify turns saved-plan reminders into scheduled local
// notifications and delivers them when they come due.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"lg/health-planner-api/internal/plan"
)

// Notification is one scheduled reminder for a user.
type Notification struct {
	ID     int64     `json:"id" db:"id"`
	UserID int       `json:"user_id" db:"user_id"`
	Name   string    `json:"name" db:"name"`
	Kind   string    `json:"kind" db:"kind"`
	Title  string    `json:"title" db:"title"`
	Body   string    `json:"body" db:"body"`
	FireAt time.Time `json:"fire_at" db:"fire_at"`
}

// Scheduler is the notification store. CancelAll must complete before the
// next Schedule call for the same user.
type Scheduler interface {
	CancelAll(ctx context.Context, userID int) error
	Schedule(ctx context.Context, n Notification) error
}

// Lister returns a user's pending notifications, soonest first.
type Lister interface {
	Pending(ctx context.Context, userID int) ([]Notification, error)
}

// Claimer hands out due notifications exactly once.
type Claimer interface {
	ClaimDue(ctx context.Context, now time.Time) ([]Notification, error)
}

// Store is a scheduler that can also list and claim.
type Store interface {
	Scheduler
	Lister
	Claimer
}

// Sender delivers a due notification somewhere a person will see it.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

/* ─── Bridge ─────────────────────────────────────────────────────────── */

// Bridge converts reminder lists into notifications on a Scheduler.
type Bridge struct {
	scheduler Scheduler
	loc       *time.Location
}

// NewBridge resolves reminder dates in loc (time.Local when nil).
func NewBridge(s Scheduler, loc *time.Location) *Bridge {
	if loc == nil {
		loc = time.Local
	}
	return &Bridge{scheduler: s, loc: loc}
}

// Location is the zone reminder dates are resolved in.
func (b *Bridge) Location() *time.Location { return b.loc }

// ToNotification builds the notification content for a reminder.
func ToNotification(userID int, r plan.Reminder, fireAt time.Time) Notification {
	n := Notification{
		UserID: userID,
		Name:   r.Name,
		Kind:   r.Type,
		Title:  "🍽️ Time to eat!",
		Body:   fmt.Sprintf("It's %s. Time for %s.", fireAt.Format("15:04"), r.Name),
		FireAt: fireAt,
	}
	if r.Type == plan.ReminderExercise {
		n.Title = "🏃 Time to work out!"
	}
	return n
}

// Replace cancels everything scheduled for the user, then schedules one
// notification per reminder whose instant is strictly after now. Reminders
// with unparseable dates are skipped. Returns how many were scheduled.
func (b *Bridge) Replace(ctx context.Context, userID int, reminders []plan.Reminder, now time.Time) (int, error) {
	pending := make([]Notification, 0, len(reminders))
	for _, r := range reminders {
		fireAt, err := r.FireAt(b.loc)
		if err != nil {
			log.Printf("[Bridge.Replace] skipping reminder: %v", err)
			continue
		}
		if !fireAt.After(now) {
			continue
		}
		pending = append(pending, ToNotification(userID, r, fireAt))
	}

	if err := b.scheduler.CancelAll(ctx, userID); err != nil {
		return 0, fmt.Errorf("cancel scheduled reminders: %w", err)
	}
	scheduled := 0
	for _, n := range pending {
		if err := b.scheduler.Schedule(ctx, n); err != nil {
			return scheduled, fmt.Errorf("schedule reminder %q: %w", n.Name, err)
		}
		scheduled++
	}
	return scheduled, nil
}
