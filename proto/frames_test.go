package proto

import "testing"

func TestHelloRoundTrip(t *testing.T) {
	var challenge [ChallengeLen]byte
	for i := range challenge {
		challenge[i] = byte(0xAA + i)
	}
	payload := EncodeHello(challenge, ShortAddr(0x1234))

	gotChallenge, gotShort, err := DecodeHello(payload)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if gotChallenge != challenge {
		t.Fatalf("challenge mismatch: got %x want %x", gotChallenge, challenge)
	}
	if gotShort != ShortAddr(0x1234) {
		t.Fatalf("short addr mismatch: got %x", gotShort)
	}
}

func TestHelloDecodeShort(t *testing.T) {
	if _, _, err := DecodeHello([]byte{1, 2, 3}); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestHelloAckRoundTripWithShortAddrTrailer(t *testing.T) {
	var peerC, ownC [ChallengeLen]byte
	for i := range peerC {
		peerC[i] = byte(i)
		ownC[i] = byte(0x10 + i)
	}
	trailer := make([]byte, ShortAddrLen)
	PutShortAddr(trailer, ShortAddr(0x55AA))

	payload := EncodeHelloAck(peerC, ownC, 7, trailer)
	got, err := DecodeHelloAck(payload, ShortAddrLen)
	if err != nil {
		t.Fatalf("DecodeHelloAck: %v", err)
	}
	if got.PeerChallenge != peerC || got.OwnChallenge != ownC || got.LocalIndex != 7 {
		t.Fatalf("field mismatch: %+v", got)
	}
	if GetShortAddr(got.Trailer) != 0x55AA {
		t.Fatalf("trailer mismatch: %x", got.Trailer)
	}
}

func TestHelloAckRoundTripWithBroadcastKeyTrailer(t *testing.T) {
	var peerC, ownC [ChallengeLen]byte
	bk := make([]byte, BroadcastKeyLen)
	for i := range bk {
		bk[i] = byte(i * 3)
	}
	payload := EncodeHelloAck(peerC, ownC, 2, bk)
	got, err := DecodeHelloAck(payload, BroadcastKeyLen)
	if err != nil {
		t.Fatalf("DecodeHelloAck: %v", err)
	}
	if len(got.Trailer) != BroadcastKeyLen {
		t.Fatalf("trailer length mismatch: %d", len(got.Trailer))
	}
}

func TestAckRoundTrip(t *testing.T) {
	bk := make([]byte, BroadcastKeyLen)
	bk[0] = 0xFF
	payload := EncodeAck(3, bk)
	got, err := DecodeAck(payload, true)
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if got.LocalIndex != 3 || len(got.BroadcastKey) != BroadcastKeyLen || got.BroadcastKey[0] != 0xFF {
		t.Fatalf("field mismatch: %+v", got)
	}
}

func TestAckRoundTripNoBroadcastKey(t *testing.T) {
	payload := EncodeAck(9, nil)
	got, err := DecodeAck(payload, false)
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if got.LocalIndex != 9 || got.BroadcastKey != nil {
		t.Fatalf("field mismatch: %+v", got)
	}
}

func TestKeyIDHeaderRoundTrip(t *testing.T) {
	h := KeyIDHeader{Index: CmdHelloAck, Source: ShortAddr(0x0102)}
	enc := h.Encode()
	got, err := DecodeKeyIDHeader(enc[:])
	if err != nil {
		t.Fatalf("DecodeKeyIDHeader: %v", err)
	}
	if got != h {
		t.Fatalf("header mismatch: got %+v want %+v", got, h)
	}
}
