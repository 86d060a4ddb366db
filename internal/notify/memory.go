package notify

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryScheduler keeps notifications in process. Used when no database is
// configured, and in tests.
type MemoryScheduler struct {
	mu     sync.Mutex
	nextID int64
	byUser map[int][]Notification
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{byUser: make(map[int][]Notification)}
}

func (m *MemoryScheduler) CancelAll(_ context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
	return nil
}

func (m *MemoryScheduler) Schedule(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	m.byUser[n.UserID] = append(m.byUser[n.UserID], n)
	return nil
}

func (m *MemoryScheduler) Pending(_ context.Context, userID int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.byUser[userID])
	sortByFireAt(out)
	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

// ClaimDue removes and returns every notification at or before now.
func (m *MemoryScheduler) ClaimDue(_ context.Context, now time.Time) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []Notification
	for userID, list := range m.byUser {
		keep := list[:0]
		for _, n := range list {
			if n.FireAt.After(now) {
				keep = append(keep, n)
			} else {
				due = append(due, n)
			}
		}
		if len(keep) == 0 {
			delete(m.byUser, userID)
		} else {
			m.byUser[userID] = keep
		}
	}
	sortByFireAt(due)
	return due, nil
}

func sortByFireAt(list []Notification) {
	slices.SortStableFunc(list, func(a, b Notification) int {
		return a.FireAt.Compare(b.FireAt)
	})
}
