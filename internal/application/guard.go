package application

import "sync"

// syncGuard serializes reconciliation per user. While a run is in flight,
// further triggers for the same user set a rerun flag instead of starting a
// second run; the holder drains the flag before releasing.
type syncGuard struct {
	mu    sync.Mutex
	users map[string]*guardState
}

type guardState struct {
	rerun bool
}

func newSyncGuard() *syncGuard {
	return &syncGuard{users: make(map[string]*guardState)}
}

// acquire takes the per-user slot. The second return is false when a run is
// already in flight; the pending trigger has been recorded as a rerun.
func (g *syncGuard) acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state, running := g.users[userID]; running {
		state.rerun = true
		return false
	}
	g.users[userID] = &guardState{}
	return true
}

// consumeRerun clears and returns the rerun flag while keeping the slot held.
func (g *syncGuard) consumeRerun(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, running := g.users[userID]
	if !running {
		return false
	}
	rerun := state.rerun
	state.rerun = false
	return rerun
}

// release frees the per-user slot.
func (g *syncGuard) release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.users, userID)
}
