package apkes

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kahnreaz/contiki/flash"
	"github.com/kahnreaz/contiki/linksec"
	"github.com/kahnreaz/contiki/neighbor"
	"github.com/kahnreaz/contiki/proto"
	"github.com/kahnreaz/contiki/replay"
	"github.com/kahnreaz/contiki/scheme"
)

// spyGateway counts outbound sends instead of delivering them anywhere,
// for scenarios that only need to assert whether a frame was (not) sent.
type spyGateway struct {
	unicastCount int
}

func (g *spyGateway) SendBroadcast([]byte) {}
func (g *spyGateway) SendUnicast(proto.Identity, []byte) {
	g.unicastCount++
}

func newSoloEngine(t *testing.T, secret scheme.Secret, gw Gateway, opts ...Option) *Engine {
	t.Helper()
	self := proto.Identity{Extended: proto.ExtendedAddr{0x01}, Short: 0x1}
	provider := scheme.NewPlainScheme(secret)
	return New(self, neighbor.NewTable(8), provider, flash.New(flash.NewMemoryDevice(4096, 4096), 0), gw, nil, opts...)
}

// Scenario 4: challenge mismatch. A HELLOACK that authenticates correctly
// under the shared secret but whose peer_challenge doesn't match the
// engine's current own_challenge must still be dropped.
func TestChallengeMismatchDropped(t *testing.T) {
	secret := scheme.Secret{0xAB}
	gw := &spyGateway{}
	e := newSoloEngine(t, secret, gw)
	e.ownChallenge = [proto.ChallengeLen]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

	peer := proto.ExtendedAddr{0x02}
	wrongChallenge := [proto.ChallengeLen]byte{0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC}
	var ownChallengeB [proto.ChallengeLen]byte
	trailer := make([]byte, proto.ShortAddrLen)
	proto.PutShortAddr(trailer, 0x02)
	body := proto.EncodeHelloAck(wrongChallenge, ownChallengeB, 0, trailer)

	suite, err := linksec.New([proto.PairwiseKeyLen]byte(secret))
	if err != nil {
		t.Fatalf("linksec.New: %v", err)
	}
	sealed := suite.Seal(proto.CmdHelloAck, body, peer[:])

	e.onHelloAck(peer, nil, sealed, 0, false)

	if _, ok := e.table.Lookup(peer); ok {
		t.Fatal("expected no neighbor entry to be created on challenge mismatch")
	}
	if gw.unicastCount != 0 {
		t.Fatalf("expected no ACK to be sent, got %d unicast sends", gw.unicastCount)
	}
}

// Scenario 5: replaying a prior HELLOACK against an already-PERMANENT
// neighbor must be rejected by the anti-replay window, with no ACK
// re-emitted and no re-keying.
func TestReplayOfPermanentHelloAckRejected(t *testing.T) {
	secret := scheme.Secret{0x11}
	gw := &spyGateway{}
	e := newSoloEngine(t, secret, gw)
	e.ownChallenge = [proto.ChallengeLen]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	peer := proto.ExtendedAddr{0x09}
	entry, ok := e.table.New()
	if !ok {
		t.Fatal("failed to allocate neighbor entry")
	}
	entry.Ids = proto.Identity{Extended: peer, Short: 0x09}
	entry.Status = neighbor.Permanent
	entry.AntiReplay = replay.NewWindow(0)
	e.table.Register(entry)

	var ownChallengeB [proto.ChallengeLen]byte
	copy(ownChallengeB[:], []byte{0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB})
	trailer := make([]byte, proto.ShortAddrLen)
	proto.PutShortAddr(trailer, 0x09)
	body := proto.EncodeHelloAck(e.ownChallenge, ownChallengeB, 0, trailer)

	suite, err := linksec.New([proto.PairwiseKeyLen]byte(secret))
	if err != nil {
		t.Fatalf("linksec.New: %v", err)
	}
	sealed := suite.Seal(proto.CmdHelloAck, body, peer[:])

	e.onHelloAck(peer, entry, sealed, 0, false)
	if gw.unicastCount != 1 {
		t.Fatalf("expected the first (fresh re-key) HELLOACK to produce one ACK, got %d", gw.unicastCount)
	}

	// Exact replay of the same frame.
	e.onHelloAck(peer, entry, sealed, 0, false)
	if gw.unicastCount != 1 {
		t.Fatalf("expected the replayed HELLOACK to be rejected, unicast count changed to %d", gw.unicastCount)
	}
}

// Scenario 6: with no peers replying, the bootstrap-complete callback
// fires exactly once, at approximately ROUNDS * ROUND_DURATION.
func TestBootstrapCompletionExactlyOnce(t *testing.T) {
	secret := scheme.Secret{}
	gw := &spyGateway{}
	e := newSoloEngine(t, secret, gw, WithRounds(3), WithRoundDuration(30*time.Millisecond))

	var calls atomic.Int32
	done := make(chan struct{})
	e.Bootstrap(func() {
		calls.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrap never completed")
	}

	// A second explicit Bootstrap call after completion must be a no-op.
	e.Bootstrap(func() { calls.Add(1) })
	sync(e)

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("bootstrap-complete callback fired %d times, want exactly 1", calls.Load())
	}
	if !e.IsBootstrapped() {
		t.Fatal("expected IsBootstrapped() to be true after completion")
	}
}
