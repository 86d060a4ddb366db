package main

import (
	"sync"
	"time"

	"lg/health-planner-api/internal/editor"
	"lg/health-planner-api/internal/plan"
)

// workspace is one user's editing state: the plan being built, the inventory
// it was drafted from, the open editor session and the display targets.
// Every field is guarded by mu; network calls happen outside the lock.
type workspace struct {
	mu        sync.Mutex
	plan      plan.WeeklyPlan
	inventory plan.Inventory
	editor    editor.Session
	targets   plan.DailyTargets
	planID    int // id of the last saved plan; 0 until saved or loaded

	lastUsed time.Time // guarded by workspaces.mu
}

// load swaps in a freshly ingested plan and closes any open editor.
func (w *workspace) load(p plan.WeeklyPlan, inv plan.Inventory, targets plan.DailyTargets, planID int) {
	w.plan = p
	w.inventory = inv
	w.targets = targets
	w.planID = planID
	w.editor.Cancel()
}

// workspaceIdleTTL is how long an untouched workspace is kept. The saved plan
// lives in the health service, so an evicted user reloads it.
const workspaceIdleTTL = 12 * time.Hour

// workspaceSweepEvery bounds how often get scans for idle workspaces.
const workspaceSweepEvery = 10 * time.Minute

// workspaces holds one workspace per signed-in user, created on first use and
// dropped after workspaceIdleTTL without requests.
type workspaces struct {
	mu        sync.Mutex
	byUser    map[int]*workspace
	now       func() time.Time
	lastSweep time.Time
}

func newWorkspaces() *workspaces {
	return &workspaces{byUser: make(map[int]*workspace), now: time.Now}
}

func (ws *workspaces) get(userID int) *workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	now := ws.now()
	if now.Sub(ws.lastSweep) >= workspaceSweepEvery {
		ws.sweep(now)
	}
	w, ok := ws.byUser[userID]
	if !ok {
		w = &workspace{
			plan:      plan.NewWeeklyPlan(),
			inventory: plan.Inventory{},
			targets:   plan.DefaultTargets,
		}
		ws.byUser[userID] = w
	}
	w.lastUsed = now
	return w
}

// sweep drops workspaces idle for workspaceIdleTTL. Caller holds ws.mu.
func (ws *workspaces) sweep(now time.Time) {
	for id, w := range ws.byUser {
		if now.Sub(w.lastUsed) >= workspaceIdleTTL {
			delete(ws.byUser, id)
		}
	}
	ws.lastSweep = now
}

func (ws *workspaces) count() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.byUser)
}
