package apkes

import "github.com/kahnreaz/contiki/proto"

// Gateway is the Frame Gateway collaborator (spec.md §4, "out of scope"):
// it owns framing, transmission and reception. The Engine only ever hands
// it fully-built frame bytes (command id, optional key-id header, sealed
// payload) to transmit, and only ever receives already-demuxed
// (sourceAddr, commandID, payload) triples back via HandleFrame. It never
// inspects or builds wire bytes itself beyond what's defined in proto.
type Gateway interface {
	// SendBroadcast transmits frame (already framed, unauthenticated) to
	// all one-hop neighbors.
	SendBroadcast(frame []byte)

	// SendUnicast transmits frame to the single peer identified by to.
	SendUnicast(to proto.Identity, frame []byte)
}
