package apkes

import (
	"crypto/aes"

	"github.com/kahnreaz/contiki/proto"
)

// deriveKey implements spec.md §4.1.4: "encrypt the 16-byte metadata
// buffer (peer_challenge || own_challenge) in place with padded AES-128."
// Since the buffer is exactly one AES block, "padded AES-128" here is a
// single-block ECB encryption of metadata under secret — crypto/aes is the
// right tool for a single fixed-size block cipher primitive, which
// spec.md §1 explicitly keeps out of scope as a pluggable collaborator;
// there is no ecosystem library in the pack for "encrypt one AES block"
// that would improve on the standard library here.
func deriveKey(secret [proto.PairwiseKeyLen]byte, metadata [proto.PairwiseKeyLen]byte) ([proto.PairwiseKeyLen]byte, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return [proto.PairwiseKeyLen]byte{}, err
	}
	var out [proto.PairwiseKeyLen]byte
	block.Encrypt(out[:], metadata[:])
	return out, nil
}
