package transport

import (
	"net"
	"sync"

	"github.com/kahnreaz/contiki/proto"
)

// PeerBook maps a neighbor's extended address to the UDP address it is
// reachable at. The APKES Engine only ever addresses peers by
// proto.Identity; PeerBook is what lets a Gateway turn that back into
// something net.PacketConn can write to.
//
// A single node's one-hop radio range is modeled as the set of UDP
// addresses currently in the book: SendBroadcast fans out to all of them,
// mirroring a single 802.15.4 broadcast reaching every listening neighbor.
type PeerBook struct {
	mu    sync.RWMutex
	addrs map[proto.ExtendedAddr]*net.UDPAddr
}

// NewPeerBook creates an empty PeerBook.
func NewPeerBook() *PeerBook {
	return &PeerBook{addrs: make(map[proto.ExtendedAddr]*net.UDPAddr)}
}

// Add records that id is reachable at addr, overwriting any prior mapping.
func (b *PeerBook) Add(id proto.ExtendedAddr, addr *net.UDPAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[id] = addr
}

// Remove forgets id, if known.
func (b *PeerBook) Remove(id proto.ExtendedAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.addrs, id)
}

// Lookup returns the UDP address registered for id, if any.
func (b *PeerBook) Lookup(id proto.ExtendedAddr) (*net.UDPAddr, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.addrs[id]
	return addr, ok
}

// Each calls fn once per (extended address, UDP address) pair currently in
// the book. fn must not call back into the PeerBook.
func (b *PeerBook) Each(fn func(proto.ExtendedAddr, *net.UDPAddr)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, addr := range b.addrs {
		fn(id, addr)
	}
}

// Len returns the number of peers currently registered.
func (b *PeerBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addrs)
}
