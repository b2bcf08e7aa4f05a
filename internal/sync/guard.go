package sync

import "go.uber.org/atomic"

// Guard is the echo-suppression flag for multi-device sync. It is held while
// this process broadcasts its own change so that the broadcast's echo is not
// re-applied as a remote update, and it drops inbound snapshots that arrive
// during that window.
//
// Known limitation, kept on purpose: this is a best-effort boolean, not a
// distributed lock. A genuine remote change landing in the window between a
// local write and End is dropped, and concurrent writers across devices
// resolve by last write wins with no conflict detection.
type Guard struct {
	busy atomic.Bool
}

// Begin claims the guard. Returns false if it is already held.
func (g *Guard) Begin() bool {
	return g.busy.CompareAndSwap(false, true)
}

// End releases the guard.
func (g *Guard) End() {
	g.busy.Store(false)
}

// Active reports whether the guard is held.
func (g *Guard) Active() bool {
	return g.busy.Load()
}
