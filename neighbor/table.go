// Package neighbor implements the fixed-capacity neighbor table
// summarized (but not fully specified) by spec.md §2–§3: it allocates and
// frees entries, holds per-neighbor state, keys, replay windows and
// expiration bookkeeping. Grounded on the control-plane neighbor cache
// shape in the pack (yanet2's NeighbourEntry/NeighbourState), but
// single-writer rather than RCU-style, since spec.md §5 guarantees the
// table is only ever touched from the Engine's actor.
package neighbor

import (
	"time"

	"github.com/kahnreaz/contiki/proto"
	"github.com/kahnreaz/contiki/replay"
)

// Table is a fixed-capacity pool of neighbor entries, keyed by identity.
// It is not safe for concurrent use — callers (the Engine) must only touch
// it from their single serializing actor, matching spec.md invariant 6 and
// the "no locks needed" guarantee of §5.
type Table struct {
	entries []Entry
	byExt   map[proto.ExtendedAddr]int // extended addr -> index into entries
}

// NewTable creates a table with room for capacity neighbors.
func NewTable(capacity int) *Table {
	t := &Table{
		entries: make([]Entry, capacity),
		byExt:   make(map[proto.ExtendedAddr]int, capacity),
	}
	for i := range t.entries {
		t.entries[i].Handle = i
	}
	return t
}

// Capacity returns the table's fixed size.
func (t *Table) Capacity() int { return len(t.entries) }

// Len returns the number of currently-allocated (non-Free) entries.
func (t *Table) Len() int {
	return len(t.byExt)
}

// New allocates a fresh entry in status Free->caller-assigned. Returns
// (nil, false) if the table is full, mirroring neighbor_new() returning
// NULL in the original.
func (t *Table) New() (*Entry, bool) {
	for i := range t.entries {
		if t.entries[i].Status == Free {
			return &t.entries[i], true
		}
	}
	return nil, false
}

// Register indexes e under its current Ids.Extended so future Lookup
// calls can find it. Callers must set Ids before calling Register.
func (t *Table) Register(e *Entry) {
	t.byExt[e.Ids.Extended] = e.Handle
}

// Lookup finds an existing entry by extended address, if any.
func (t *Table) Lookup(addr proto.ExtendedAddr) (*Entry, bool) {
	idx, ok := t.byExt[addr]
	if !ok {
		return nil, false
	}
	return &t.entries[idx], true
}

// Update consumes a peer's local index and trailing addressing/key data —
// the peer's short address, or its broadcast key when broadcast-key mode
// is enabled — and promotes e to Permanent. It is called identically from
// both the HELLOACK path (the handshake initiator completing on a valid
// HELLOACK) and the ACK path (the handshake responder completing on a
// valid ACK), per spec.md §4.1.5/§4.1.7, and also from a re-key of an
// already-PERMANENT neighbor. The anti-replay window is created once, on
// first promotion, and otherwise left running: resetting it on every
// re-key would erase the very history that rejects a replayed frame from
// before the re-key.
func (t *Table) Update(e *Entry, peerLocalIndex uint8, trailer []byte, withBroadcastKey bool) {
	e.LocalIndex = peerLocalIndex
	if withBroadcastKey {
		copy(e.BroadcastKey[:], trailer)
		e.hasBroadcast = true
	} else if len(trailer) >= proto.ShortAddrLen {
		e.Ids.Short = proto.GetShortAddr(trailer)
	}
	if e.AntiReplay == nil {
		e.AntiReplay = replay.NewWindow(0)
	}
	e.Status = Permanent
	t.Register(e)
}

// Delete frees e, removing it from the identity index.
func (t *Table) Delete(e *Entry) {
	delete(t.byExt, e.Ids.Extended)
	e.reset()
}

// Free releases e without touching the identity index, for an entry
// returned by New that was never Register-ed (e.g. allocation aborted
// before Ids was populated).
func (t *Table) Free(e *Entry) {
	e.reset()
}

// EntryAt returns the entry at handle, or nil if handle is out of range.
// Callers must check Status before trusting the result, since the slot
// may have been freed and reused since the handle was captured.
func (t *Table) EntryAt(handle int) *Entry {
	if handle < 0 || handle >= len(t.entries) {
		return nil
	}
	return &t.entries[handle]
}

// Each calls fn for every currently-allocated entry. fn must not allocate
// or delete entries from within the callback.
func (t *Table) Each(fn func(*Entry)) {
	for i := range t.entries {
		if t.entries[i].Status != Free {
			fn(&t.entries[i])
		}
	}
}

// ReapExpired deletes every non-Permanent entry whose ExpirationTime has
// passed as of now, returning how many were removed.
func (t *Table) ReapExpired(now time.Time) int {
	removed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.Status == Free || e.Status == Permanent {
			continue
		}
		if !e.ExpirationTime.After(now) {
			t.Delete(e)
			removed++
		}
	}
	return removed
}
