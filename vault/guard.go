package vault

import "sync/atomic"

// reentrancyGuard enforces the single-flight invariant: at most one top-level
// operation is in flight at a time. External calls made mid-operation may
// invoke arbitrary code that calls back into the vault before the original
// call returns; a second entrant fails immediately instead of observing
// half-applied state.
type reentrancyGuard struct {
	locked atomic.Bool
}

func (g *reentrancyGuard) enter() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (g *reentrancyGuard) exit() {
	g.locked.Store(false)
}
