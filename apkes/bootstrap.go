package apkes

import "time"

// Bootstrap implements spec.md §4.1.1: broadcasts ROUNDS HELLOs, each
// separated by ROUND_DURATION, then invokes onDone exactly once and
// flips IsBootstrapped to true. The secret provider's Init runs once at the
// start; an Init error is logged and the bootstrap proceeds. Calling
// Bootstrap more than once has no effect on a run already in progress or
// completed.
func (e *Engine) Bootstrap(onDone func()) {
	e.Act(nil, func() {
		if e.onDone != nil || e.bootstrapped.Load() {
			return
		}
		if onDone == nil {
			onDone = func() {}
		}
		if err := e.provider.Init(); err != nil {
			e.drop(KindInternal, "secret provider init failed: %v", err)
		}
		e.onDone = onDone
		e.round = 0
		e.runRound()
	})
}

// runRound sends one HELLO and arms the round timer for the next one, or,
// after the final HELLO, for completion — matching the teacher's
// self-rearming-timer-via-Act pattern. Completion fires one ROUND_DURATION
// after the last HELLO rather than immediately after sending it, so the
// final round's HELLOACK/ACK exchange gets its full window (spec.md §8
// scenario 6 pins completion to t ≈ ROUNDS*ROUND_DURATION). Must run
// inside the actor.
func (e *Engine) runRound() {
	e.round++
	e.sendHello()

	if e.round >= e.cfg.rounds {
		e.roundTimer = time.AfterFunc(e.cfg.roundDuration, func() {
			e.Act(nil, e.completeBootstrap)
		})
		return
	}

	e.roundTimer = time.AfterFunc(e.cfg.roundDuration, func() {
		e.Act(nil, e.runRound)
	})
}

// completeBootstrap fires the bootstrap-complete callback exactly once
// (spec.md invariant 5), clears it, and marks the node bootstrapped. Must
// run inside the actor.
func (e *Engine) completeBootstrap() {
	e.bootstrapped.Store(true)
	cb := e.onDone
	e.onDone = nil
	if cb == nil {
		return
	}
	cb()
}
