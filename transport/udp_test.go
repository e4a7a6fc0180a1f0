package transport

import (
	"net"
	"testing"
	"time"

	"github.com/kahnreaz/contiki/proto"
)

func mustUDPAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		t.Fatalf("ResolveUDPAddr(%q): %v", s, err)
	}
	return addr
}

type received struct {
	from    proto.ExtendedAddr
	id      proto.CommandID
	payload []byte
}

func newTestGateway(t *testing.T, self proto.ExtendedAddr, out chan received) *UDPGateway {
	t.Helper()
	g, err := NewUDPGateway(UDPConfig{
		ListenAddr: "127.0.0.1:0",
		Self:       self,
		Handler: func(from proto.ExtendedAddr, id proto.CommandID, payload []byte) {
			out <- received{from, id, append([]byte(nil), payload...)}
		},
	})
	if err != nil {
		t.Fatalf("NewUDPGateway: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { g.Stop() })
	return g
}

func TestUDPGatewayUnicastRoundTrip(t *testing.T) {
	outA := make(chan received, 1)
	outB := make(chan received, 1)
	addrA := proto.ExtendedAddr{0x01}
	addrB := proto.ExtendedAddr{0x02}

	a := newTestGateway(t, addrA, outA)
	b := newTestGateway(t, addrB, outB)

	a.Peers().Add(addrB, mustUDPAddr(t, b.LocalAddr().String()))

	frame := append([]byte{byte(proto.CmdHello)}, []byte("payload")...)
	a.SendUnicast(proto.Identity{Extended: addrB}, frame)

	select {
	case msg := <-outB:
		if msg.from != addrA {
			t.Fatalf("from = %x, want %x", msg.from, addrA)
		}
		if msg.id != proto.CmdHello {
			t.Fatalf("id = %v, want CmdHello", msg.id)
		}
		if string(msg.payload) != "payload" {
			t.Fatalf("payload = %q, want %q", msg.payload, "payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unicast frame")
	}
}

func TestUDPGatewayBroadcastFanOut(t *testing.T) {
	addrA := proto.ExtendedAddr{0xA1}
	addrB := proto.ExtendedAddr{0xB1}
	addrC := proto.ExtendedAddr{0xC1}

	outB := make(chan received, 1)
	outC := make(chan received, 1)

	a := newTestGateway(t, addrA, make(chan received, 1))
	b := newTestGateway(t, addrB, outB)
	c := newTestGateway(t, addrC, outC)

	a.Peers().Add(addrB, mustUDPAddr(t, b.LocalAddr().String()))
	a.Peers().Add(addrC, mustUDPAddr(t, c.LocalAddr().String()))

	frame := append([]byte{byte(proto.CmdHello)}, []byte("hello")...)
	a.SendBroadcast(frame)

	for _, ch := range []chan received{outB, outC} {
		select {
		case msg := <-ch:
			if msg.from != addrA || msg.id != proto.CmdHello {
				t.Fatalf("unexpected frame: %+v", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast fan-out")
		}
	}
}

func TestUDPGatewayUnknownPeerDropped(t *testing.T) {
	addrA := proto.ExtendedAddr{0x01}
	a := newTestGateway(t, addrA, make(chan received, 1))

	// No peer registered for 0x99; SendUnicast must not panic or block.
	a.SendUnicast(proto.Identity{Extended: proto.ExtendedAddr{0x99}}, []byte{byte(proto.CmdHello)})
}

func TestUDPGatewayDoubleStartStop(t *testing.T) {
	g, err := NewUDPGateway(UDPConfig{
		ListenAddr: "127.0.0.1:0",
		Handler:    func(proto.ExtendedAddr, proto.CommandID, []byte) {},
	})
	if err != nil {
		t.Fatalf("NewUDPGateway: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start error = %v, want ErrAlreadyStarted", err)
	}
	if err := g.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := g.Stop(); err != ErrClosed {
		t.Fatalf("second Stop error = %v, want ErrClosed", err)
	}
}
