package apkes

import "time"

// waitSlot is one record in the fixed-size wait-timer pool (spec.md §3,
// "pool record holding a stable neighbor handle ... not a raw reference").
// handle indexes into the Engine's neighbor.Table and stays valid even if
// the table compacts other entries.
type waitSlot struct {
	timer  *time.Timer
	handle int
	inUse  bool
}

// waitPool is the fixed-size pool of in-flight HELLOACK wait-timers,
// sized by MaxTentativeNeighbors — spec.md invariant 1, the primary
// flood-protection mechanism.
type waitPool struct {
	slots []waitSlot
}

func newWaitPool(size int) *waitPool {
	return &waitPool{slots: make([]waitSlot, size)}
}

// allocSlot reserves a free slot with no timer armed yet, returning its
// index. Returns false if the pool is full.
func (p *waitPool) allocSlot() (int, bool) {
	for i := range p.slots {
		if !p.slots[i].inUse {
			p.slots[i].inUse = true
			return i, true
		}
	}
	return -1, false
}

// arm records handle against the previously-allocated slot i and starts a
// timer that calls cb after delay.
func (p *waitPool) arm(i, handle int, delay time.Duration, cb func()) {
	p.slots[i].handle = handle
	p.slots[i].timer = time.AfterFunc(delay, cb)
}

// free releases slot i, stopping its timer if it hasn't fired yet. It is
// always called from the wait callback itself regardless of outcome
// (spec.md §5, "cancellation").
func (p *waitPool) free(i int) {
	if p.slots[i].timer != nil {
		p.slots[i].timer.Stop()
	}
	p.slots[i] = waitSlot{}
}

// len reports the number of currently-armed wait-timers, for tests
// asserting invariant 1.
func (p *waitPool) len() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse {
			n++
		}
	}
	return n
}

func (p *waitPool) handleAt(i int) int {
	return p.slots[i].handle
}
