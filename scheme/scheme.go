// Package scheme implements the pluggable Secret Provider abstraction
// (spec.md §4.2): a policy object that converts a peer identity into the
// long-term secret underlying pairwise-key derivation. It mirrors the
// shape of the teacher repo's Validator — Get-by-key plus a count/identity
// surface — but splits the lookup into the two roles spec.md requires.
package scheme

import "github.com/kahnreaz/contiki/proto"

// SecretLen is the expected length of a long-term secret.
const SecretLen = proto.PairwiseKeyLen

// Secret is a long-term shared secret used to derive a pairwise key.
type Secret [SecretLen]byte

// Provider supplies the long-term secret shared with a peer. The two
// operations are split because some provisioning schemes (e.g.
// unidirectional pre-shared secrets) treat the HELLO and HELLOACK roles
// asymmetrically.
type Provider interface {
	// Init runs once at bootstrap; implementations that need no setup can
	// make it a no-op.
	Init() error

	// GetSecretWithHelloSender returns the secret to use when replying to
	// a HELLO from id, i.e. when we are about to send a HELLOACK.
	GetSecretWithHelloSender(id proto.Identity) (Secret, bool)

	// GetSecretWithHelloAckSender returns the secret to use when
	// verifying a HELLOACK from id, i.e. when we are about to send an ACK.
	GetSecretWithHelloAckSender(id proto.Identity) (Secret, bool)
}
