package scheme

import (
	"fmt"
	"sync"

	"github.com/kahnreaz/contiki/proto"
)

// PairingScheme is a per-pair provider keyed by a peer's extended address,
// the way a factory-provisioned pre-shared-secret deployment would store
// one secret per device rather than one for the whole network. It mirrors
// the teacher's MemoryValidator (map + RWMutex + Add/Get/Count) adapted to
// the two-role provider interface.
type PairingScheme struct {
	mu      sync.RWMutex
	secrets map[proto.ExtendedAddr]Secret
}

// NewPairingScheme creates an empty pairing provider.
func NewPairingScheme() *PairingScheme {
	return &PairingScheme{secrets: make(map[proto.ExtendedAddr]Secret)}
}

// AddPair registers the secret shared with the peer at addr.
func (p *PairingScheme) AddPair(addr proto.ExtendedAddr, secret Secret) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.secrets[addr]; exists {
		return fmt.Errorf("apkes/scheme: pair already registered for %x", addr)
	}
	p.secrets[addr] = secret
	return nil
}

// Count returns the number of registered pairs.
func (p *PairingScheme) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.secrets)
}

func (p *PairingScheme) Init() error { return nil }

func (p *PairingScheme) GetSecretWithHelloSender(id proto.Identity) (Secret, bool) {
	return p.lookup(id)
}

func (p *PairingScheme) GetSecretWithHelloAckSender(id proto.Identity) (Secret, bool) {
	return p.lookup(id)
}

func (p *PairingScheme) lookup(id proto.Identity) (Secret, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.secrets[id.Extended]
	return s, ok
}
