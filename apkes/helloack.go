package apkes

import (
	"encoding/binary"

	"github.com/kahnreaz/contiki/neighbor"
	"github.com/kahnreaz/contiki/proto"
)

// onHelloAck implements spec.md §4.1.5. Must run inside the actor.
//
// from is the sender's extended address (resolved by the Gateway before
// dispatch); sender is the existing table entry for from, or nil if
// unknown. keySource/haveKeySource carry the key-id header's key-source
// field when broadcast-key mode is active; otherwise the peer's short
// address is read from the payload trailer once decoded.
func (e *Engine) onHelloAck(from proto.ExtendedAddr, sender *neighbor.Entry, sealed []byte, keySource proto.ShortAddr, haveKeySource bool) {
	secret, ok := e.provider.GetSecretWithHelloAckSender(proto.Identity{Extended: from})
	if !ok {
		e.drop(KindAuthentication, "no secret for HELLOACK from %x", from)
		return
	}

	body, err := e.openUnicast([proto.PairwiseKeyLen]byte(secret), proto.CmdHelloAck, sealed, from[:])
	if err != nil {
		e.drop(KindAuthentication, "HELLOACK from %x failed authentication: %v", from, err)
		return
	}

	trailerLen := proto.ShortAddrLen
	if e.cfg.withBroadcastKey {
		trailerLen = proto.BroadcastKeyLen
	}
	h, err := proto.DecodeHelloAck(body, trailerLen)
	if err != nil {
		e.drop(KindProtocolState, "malformed HELLOACK body from %x: %v", from, err)
		return
	}

	if h.PeerChallenge != e.ownChallenge {
		e.drop(KindAuthentication, "HELLOACK from %x carries stale/wrong challenge", from)
		return
	}

	var short proto.ShortAddr
	if haveKeySource {
		short = keySource
	} else if !e.cfg.withBroadcastKey {
		short = proto.GetShortAddr(h.Trailer)
	}

	freshlyAllocated := false
	switch {
	case sender == nil:
		var ok bool
		sender, ok = e.table.New()
		if !ok {
			e.drop(KindResourceExhausted, "dropping HELLOACK from %x, neighbor table full", from)
			return
		}
		freshlyAllocated = true
		sender.Ids = proto.Identity{Extended: from, Short: short}
		sender.Status = neighbor.Tentative
	case sender.Status == neighbor.Permanent:
		// There is no dedicated frame counter in the HELLOACK payload
		// (spec.md's anti_replay_info is "used by value, not
		// implemented"); a fresh re-key always carries a newly
		// randomized own_challenge, so its leading bytes double as the
		// replay window's counter — an exact replay reuses the same
		// bytes and is correctly flagged as seen.
		counter := binary.LittleEndian.Uint32(h.OwnChallenge[:4])
		if sender.AntiReplay == nil || !sender.AntiReplay.Accept(counter) {
			e.drop(KindReplay, "replayed HELLOACK from %x", from)
			return
		}
	case sender.Status == neighbor.Tentative:
		// Proceed; any pending wait-timer will see status moved forward
		// and no-op at fire time (spec.md §9).
	default:
		e.drop(KindProtocolState, "dropping HELLOACK from %x in state %v", from, sender.Status)
		return
	}

	copy(sender.Metadata[:proto.ChallengeLen], h.PeerChallenge[:])
	copy(sender.Metadata[proto.ChallengeLen:], h.OwnChallenge[:])
	sender.Ids.Extended = from
	sender.Ids.Short = short

	key, err := deriveKey([proto.PairwiseKeyLen]byte(secret), sender.Metadata)
	if err != nil {
		e.drop(KindInternal, "key derivation failed for %x: %v", from, err)
		if freshlyAllocated {
			e.table.Free(sender)
		}
		return
	}
	sender.PairwiseKey = key

	e.table.Update(sender, h.LocalIndex, h.Trailer, e.cfg.withBroadcastKey)

	// Seed the replay window with this completing HELLOACK's own counter
	// so a literal replay of it is rejected outright, rather than being
	// treated as the window's uninitialized baseline (which always
	// accepts). No-op on a re-key, where the counter was already
	// accepted above.
	sender.AntiReplay.Accept(binary.LittleEndian.Uint32(h.OwnChallenge[:4]))

	ackBody := proto.EncodeAck(uint8(sender.Handle), ackBroadcastKey(e))
	ackSealed, err := e.sealUnicast(key, proto.CmdAck, ackBody)
	if err != nil {
		e.drop(KindInternal, "sealing ACK to %x failed: %v", from, err)
		return
	}
	frame := e.frameWithKeyID(proto.CmdAck, e.self.Short, ackSealed)
	e.gateway.SendUnicast(sender.Ids, frame)
}

func ackBroadcastKey(e *Engine) []byte {
	if !e.cfg.withBroadcastKey {
		return nil
	}
	return e.cfg.broadcastKey[:]
}
