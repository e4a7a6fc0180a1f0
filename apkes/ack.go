package apkes

import (
	"github.com/kahnreaz/contiki/neighbor"
	"github.com/kahnreaz/contiki/proto"
)

// onAck implements spec.md §4.1.7. Must run inside the actor.
func (e *Engine) onAck(sender *neighbor.Entry, sealed []byte) {
	if sender == nil || sender.Status != neighbor.TentativeAwaitingACK {
		if sender != nil {
			e.drop(KindProtocolState, "dropping ACK from %x in state %v", sender.Ids.Extended, sender.Status)
		} else {
			e.drop(KindProtocolState, "dropping ACK from unknown sender")
		}
		return
	}

	body, err := e.openUnicast(sender.PairwiseKey, proto.CmdAck, sealed, sender.Ids.Extended[:])
	if err != nil {
		e.drop(KindAuthentication, "ACK from %x failed authentication: %v", sender.Ids.Extended, err)
		return
	}

	a, err := proto.DecodeAck(body, e.cfg.withBroadcastKey)
	if err != nil {
		e.drop(KindProtocolState, "malformed ACK body from %x: %v", sender.Ids.Extended, err)
		return
	}

	e.table.Update(sender, a.LocalIndex, a.BroadcastKey, e.cfg.withBroadcastKey)
}
