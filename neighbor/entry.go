package neighbor

import (
	"time"

	"github.com/kahnreaz/contiki/proto"
	"github.com/kahnreaz/contiki/replay"
)

// Entry is one neighbor's state, owned by a Table and referenced
// elsewhere by a stable Handle. Field meanings follow spec.md §3.
type Entry struct {
	// Handle is this entry's stable slot index, valid for the entry's
	// entire lifetime even as the table compacts other slots around it.
	Handle int

	Ids        proto.Identity
	Status     Status
	LocalIndex uint8

	// PairwiseKey is valid only once Status >= TentativeAwaitingACK on the
	// initiator side, or once the handshake completes on the responder
	// side.
	PairwiseKey [proto.PairwiseKeyLen]byte

	// Metadata holds peer_challenge||own_challenge during the handshake
	// and is only meaningful while Status is Tentative or
	// TentativeAwaitingACK.
	Metadata [proto.PairwiseKeyLen]byte

	AntiReplay *replay.Window

	// ExpirationTime is the wall-clock deadline after which a
	// non-Permanent entry must be reclaimed.
	ExpirationTime time.Time

	// BroadcastKey is the EBEAP broadcast key learned from this peer, if
	// broadcast-key mode is enabled.
	BroadcastKey [proto.BroadcastKeyLen]byte
	hasBroadcast bool
}

func (e *Entry) reset() {
	*e = Entry{Handle: e.Handle}
}
