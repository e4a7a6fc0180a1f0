package scheme

import "github.com/kahnreaz/contiki/proto"

// PlainScheme is the simplest provider: a single network-wide secret shared
// by every node, analogous to the teacher's single global PSK derivation in
// handshake.derivePolicyKey before per-handshake separation is applied.
type PlainScheme struct {
	secret Secret
}

// NewPlainScheme creates a provider that always returns secret.
func NewPlainScheme(secret Secret) *PlainScheme {
	return &PlainScheme{secret: secret}
}

func (p *PlainScheme) Init() error { return nil }

func (p *PlainScheme) GetSecretWithHelloSender(proto.Identity) (Secret, bool) {
	return p.secret, true
}

func (p *PlainScheme) GetSecretWithHelloAckSender(proto.Identity) (Secret, bool) {
	return p.secret, true
}
