package scheme

import (
	"testing"

	"github.com/kahnreaz/contiki/proto"
)

func TestPlainSchemeAlwaysReturnsSecret(t *testing.T) {
	var secret Secret
	secret[0] = 0x42
	p := NewPlainScheme(secret)
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	idA := proto.Identity{Extended: proto.ExtendedAddr{1}}
	idB := proto.Identity{Extended: proto.ExtendedAddr{2}}

	gotA, ok := p.GetSecretWithHelloSender(idA)
	if !ok || gotA != secret {
		t.Fatalf("GetSecretWithHelloSender(A) = %x, %v", gotA, ok)
	}
	gotB, ok := p.GetSecretWithHelloAckSender(idB)
	if !ok || gotB != secret {
		t.Fatalf("GetSecretWithHelloAckSender(B) = %x, %v", gotB, ok)
	}
}

func TestPairingSchemeLooksUpByExtendedAddr(t *testing.T) {
	p := NewPairingScheme()
	addr := proto.ExtendedAddr{0xAA}
	var secret Secret
	secret[0] = 0x11
	if err := p.AddPair(addr, secret); err != nil {
		t.Fatalf("AddPair: %v", err)
	}

	id := proto.Identity{Extended: addr}
	got, ok := p.GetSecretWithHelloSender(id)
	if !ok || got != secret {
		t.Fatalf("GetSecretWithHelloSender = %x, %v", got, ok)
	}

	unknown := proto.Identity{Extended: proto.ExtendedAddr{0xFF}}
	if _, ok := p.GetSecretWithHelloAckSender(unknown); ok {
		t.Fatal("expected no secret for unknown peer")
	}
}

func TestPairingSchemeRejectsDuplicate(t *testing.T) {
	p := NewPairingScheme()
	addr := proto.ExtendedAddr{0x01}
	if err := p.AddPair(addr, Secret{}); err != nil {
		t.Fatalf("AddPair: %v", err)
	}
	if err := p.AddPair(addr, Secret{}); err == nil {
		t.Fatal("expected error re-adding the same pair")
	}
	if got := p.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
}
