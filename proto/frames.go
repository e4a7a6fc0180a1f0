package proto

// Command frame payload layouts (§6 of the spec), always following the
// 1-byte command identifier which callers prepend/strip themselves.
//
//   HELLO:    challenge[8] || short_addr[2]
//   HELLOACK: peer_challenge[8] || own_challenge[8] || local_index[1] || trailer
//   ACK:      local_index[1] || broadcast_key[optional]
//
// trailer is broadcast_key[16] when broadcast-key mode is enabled, or the
// sender's short_addr[2] otherwise.

// EncodeHello builds the HELLO payload (post command-id).
func EncodeHello(challenge [ChallengeLen]byte, short ShortAddr) []byte {
	buf := make([]byte, ChallengeLen+ShortAddrLen)
	copy(buf[:ChallengeLen], challenge[:])
	PutShortAddr(buf[ChallengeLen:], short)
	return buf
}

// DecodeHello parses a HELLO payload.
func DecodeHello(payload []byte) (challenge [ChallengeLen]byte, short ShortAddr, err error) {
	if len(payload) < ChallengeLen+ShortAddrLen {
		return challenge, 0, ErrShortBuffer
	}
	copy(challenge[:], payload[:ChallengeLen])
	short = GetShortAddr(payload[ChallengeLen : ChallengeLen+ShortAddrLen])
	return challenge, short, nil
}

// HelloAck is the decoded form of a HELLOACK payload. Trailer holds either
// the broadcast key or the peer's short address, depending on mode; callers
// distinguish by whether broadcast-key mode is active.
type HelloAck struct {
	PeerChallenge [ChallengeLen]byte
	OwnChallenge  [ChallengeLen]byte
	LocalIndex    uint8
	Trailer       []byte
}

// EncodeHelloAck builds the HELLOACK payload.
func EncodeHelloAck(peerChallenge, ownChallenge [ChallengeLen]byte, localIndex uint8, trailer []byte) []byte {
	buf := make([]byte, 0, 2*ChallengeLen+1+len(trailer))
	buf = append(buf, peerChallenge[:]...)
	buf = append(buf, ownChallenge[:]...)
	buf = append(buf, localIndex)
	buf = append(buf, trailer...)
	return buf
}

// DecodeHelloAck parses a HELLOACK payload. trailerLen must be
// BroadcastKeyLen or ShortAddrLen depending on whether broadcast-key mode
// is active for this link.
func DecodeHelloAck(payload []byte, trailerLen int) (HelloAck, error) {
	want := 2*ChallengeLen + 1 + trailerLen
	if len(payload) < want {
		return HelloAck{}, ErrShortBuffer
	}
	var h HelloAck
	copy(h.PeerChallenge[:], payload[:ChallengeLen])
	copy(h.OwnChallenge[:], payload[ChallengeLen:2*ChallengeLen])
	h.LocalIndex = payload[2*ChallengeLen]
	if trailerLen > 0 {
		h.Trailer = append([]byte(nil), payload[2*ChallengeLen+1:want]...)
	}
	return h, nil
}

// Ack is the decoded form of an ACK payload.
type Ack struct {
	LocalIndex   uint8
	BroadcastKey []byte
}

// EncodeAck builds the ACK payload. broadcastKey may be nil when
// broadcast-key mode is disabled.
func EncodeAck(localIndex uint8, broadcastKey []byte) []byte {
	buf := make([]byte, 0, 1+len(broadcastKey))
	buf = append(buf, localIndex)
	buf = append(buf, broadcastKey...)
	return buf
}

// DecodeAck parses an ACK payload. withBroadcastKey selects whether a
// trailing BroadcastKeyLen-byte key is expected.
func DecodeAck(payload []byte, withBroadcastKey bool) (Ack, error) {
	want := 1
	if withBroadcastKey {
		want += BroadcastKeyLen
	}
	if len(payload) < want {
		return Ack{}, ErrShortBuffer
	}
	a := Ack{LocalIndex: payload[0]}
	if withBroadcastKey {
		a.BroadcastKey = append([]byte(nil), payload[1:1+BroadcastKeyLen]...)
	}
	return a, nil
}
