// Package replay implements the per-neighbor anti-replay window that
// spec.md leaves as an opaque, externally-stored value. A sliding bitmap
// over a monotonic frame counter lets a PERMANENT neighbor reject a
// replayed HELLOACK/UPDATE without re-running the handshake.
package replay

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// DefaultWindowSize is the number of trailing counter values tracked.
const DefaultWindowSize = 64

// Window is a fixed-size sliding-bitmap anti-replay window, the same shape
// IPsec/802.15.4 anti-replay uses: a high-water counter plus a bitmap of
// which of the trailing counters (as many as the window's size) have
// already been seen.
type Window struct {
	mu      sync.Mutex
	size    uint
	highest uint32
	seen    *bitset.BitSet
	init    bool
}

// NewWindow creates a window of the given size. size <= 0 uses
// DefaultWindowSize.
func NewWindow(size uint) *Window {
	if size == 0 {
		size = DefaultWindowSize
	}
	return &Window{
		size: size,
		seen: bitset.New(size),
	}
}

// Reset clears the window, as if no frames had ever been received. The
// neighbor table does not call it: promotion and re-keying keep the
// running window.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen.ClearAll()
	w.highest = 0
	w.init = false
}

// Accept reports whether counter is a fresh (non-replayed) frame counter,
// marking it seen as a side effect. The first call always accepts and
// establishes the window's baseline.
func (w *Window) Accept(counter uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.init {
		w.init = true
		w.highest = counter
		w.seen.Set(uint(counter) % w.size)
		return true
	}

	if counter > w.highest {
		advance := uint64(counter) - uint64(w.highest)
		if advance >= uint64(w.size) {
			w.seen.ClearAll()
		} else {
			for i := uint64(1); i <= advance; i++ {
				w.seen.Clear(uint(w.highest+uint32(i)) % w.size)
			}
		}
		w.highest = counter
		w.seen.Set(uint(counter) % w.size)
		return true
	}

	behind := uint64(w.highest) - uint64(counter)
	if behind >= uint64(w.size) {
		// Too old to be tracked: treat as replayed.
		return false
	}

	idx := uint(counter) % w.size
	if w.seen.Test(idx) {
		return false
	}
	w.seen.Set(idx)
	return true
}
