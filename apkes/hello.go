package apkes

import (
	"math/rand"
	"time"

	"github.com/kahnreaz/contiki/neighbor"
	"github.com/kahnreaz/contiki/proto"
)

// sendHello broadcasts one HELLO carrying a freshly-randomized
// ownChallenge, per spec.md §4.1.2. Must run inside the actor.
func (e *Engine) sendHello() {
	copy(e.ownChallenge[:], e.randomBytes(proto.ChallengeLen))
	payload := proto.EncodeHello(e.ownChallenge, e.self.Short)
	frame := append([]byte{byte(proto.CmdHello)}, payload...)
	e.gateway.SendBroadcast(frame)
}

// onHello implements spec.md §4.1.2's receipt path. Must run inside the
// actor.
func (e *Engine) onHello(from proto.ExtendedAddr, payload []byte) {
	peerChallenge, peerShort, err := proto.DecodeHello(payload)
	if err != nil {
		e.drop(KindProtocolState, "malformed HELLO from %x: %v", from, err)
		return
	}

	slotIndex, ok := e.pool.allocSlot()
	if !ok {
		e.drop(KindResourceExhausted, "dropping HELLO from %x, wait-timer pool full", from)
		return
	}

	// Already known: drop (at most one handshake per peer per bootstrap).
	if _, ok := e.table.Lookup(from); ok {
		e.pool.free(slotIndex)
		e.drop(KindProtocolState, "dropping HELLO from already-known peer %x", from)
		return
	}

	entry, ok := e.table.New()
	if !ok {
		e.pool.free(slotIndex)
		e.drop(KindResourceExhausted, "dropping HELLO from %x, neighbor table full", from)
		return
	}

	entry.Ids = proto.Identity{Extended: from, Short: peerShort}
	entry.Status = neighbor.Tentative
	copy(entry.Metadata[:proto.ChallengeLen], peerChallenge[:])
	copy(entry.Metadata[proto.ChallengeLen:], e.randomBytes(proto.ChallengeLen))
	e.table.Register(entry)

	delay := time.Duration(rand.Int63n(int64(e.cfg.maxWaitingPeriod) + 1))
	entry.ExpirationTime = time.Now().Add(e.cfg.maxWaitingPeriod + e.cfg.ackDelay)

	e.pool.arm(slotIndex, entry.Handle, delay, func() {
		e.Act(nil, func() {
			e.onWaitTimerFired(slotIndex)
		})
	})
}

// onWaitTimerFired implements spec.md §4.1.3. Must run inside the actor.
func (e *Engine) onWaitTimerFired(slot int) {
	handle := e.pool.handleAt(slot)
	e.pool.free(slot)

	entry := e.table.EntryAt(handle)
	if entry == nil || entry.Status != neighbor.Tentative {
		return
	}

	secret, ok := e.provider.GetSecretWithHelloSender(entry.Ids)
	if !ok {
		e.drop(KindAuthentication, "no secret for %x, abandoning HELLOACK", entry.Ids.Extended)
		e.table.Delete(entry)
		return
	}

	key, err := deriveKey([proto.PairwiseKeyLen]byte(secret), entry.Metadata)
	if err != nil {
		e.drop(KindInternal, "key derivation failed for %x: %v", entry.Ids.Extended, err)
		e.table.Delete(entry)
		return
	}
	entry.PairwiseKey = key
	entry.Status = neighbor.TentativeAwaitingACK

	var peerChallenge, ownChallenge [proto.ChallengeLen]byte
	copy(peerChallenge[:], entry.Metadata[:proto.ChallengeLen])
	copy(ownChallenge[:], entry.Metadata[proto.ChallengeLen:])

	trailer := e.trailer()

	body := proto.EncodeHelloAck(peerChallenge, ownChallenge, uint8(entry.Handle), trailer)
	// Sealed under the long-term secret, not the derived key: the peer
	// can't derive key until it has decrypted own_challenge from this
	// very payload.
	sealed, err := e.sealUnicast([proto.PairwiseKeyLen]byte(secret), proto.CmdHelloAck, body)
	if err != nil {
		e.drop(KindInternal, "sealing HELLOACK to %x failed: %v", entry.Ids.Extended, err)
		return
	}

	frame := e.frameWithKeyID(proto.CmdHelloAck, e.self.Short, sealed)
	e.gateway.SendUnicast(entry.Ids, frame)
}

// trailer builds the HELLOACK/ACK trailer: the broadcast key in
// broadcast-key mode, our own short address otherwise (spec.md §4.1.3).
func (e *Engine) trailer() []byte {
	if e.cfg.withBroadcastKey {
		return e.cfg.broadcastKey[:]
	}
	buf := make([]byte, proto.ShortAddrLen)
	proto.PutShortAddr(buf, e.self.Short)
	return buf
}

// frameWithKeyID prepends the command id and, in broadcast-key mode, the
// 5-byte key-id header spec.md §6 describes (index = command id, source =
// our short address).
func (e *Engine) frameWithKeyID(id proto.CommandID, source proto.ShortAddr, sealed []byte) []byte {
	frame := []byte{byte(id)}
	if e.cfg.withBroadcastKey {
		hdr := proto.KeyIDHeader{Index: id, Source: source}.Encode()
		frame = append(frame, hdr[:]...)
	}
	return append(frame, sealed...)
}
