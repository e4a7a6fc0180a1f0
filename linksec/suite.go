// Package linksec is the concrete default for spec.md's "Frame Gateway"
// decrypt/verify-unicast collaborator. The spec leaves the cipher
// unspecified (802.15.4 radios normally run AES-CCM*, which the Go
// standard library has no mode for); this package reuses the teacher's
// own encrypted-transport shape instead — HKDF-expand a short secret up to
// an AEAD key, seal/open one frame at a time — built on
// golang.org/x/crypto/chacha20poly1305, the same AEAD the teacher's
// tunnel.Session uses for its data-plane frames.
package linksec

import (
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/kahnreaz/contiki/proto"
)

const (
	aeadKeySize = chacha20poly1305.KeySize
	nonceSize   = chacha20poly1305.NonceSize

	// hkdfInfo separates this derivation from any other use of the same
	// secret/pairwise key elsewhere in the system.
	hkdfInfo = "apkes-linksec"
)

// Suite seals and opens command frames under a single APKES secret or
// pairwise key. A Suite is cheap to construct and is typically built fresh
// for each handshake step rather than cached, since the 16-byte input key
// changes every time a new secret or pairwise key comes into play.
type Suite struct {
	aead cipher.AEAD
}

// New derives an AEAD suite from a 16-byte APKES secret or pairwise key.
func New(key [proto.PairwiseKeyLen]byte) (*Suite, error) {
	aeadKey, err := expandKey(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(aeadKey[:])
	if err != nil {
		return nil, err
	}
	return &Suite{aead: aead}, nil
}

func expandKey(key [proto.PairwiseKeyLen]byte) ([aeadKeySize]byte, error) {
	var out [aeadKeySize]byte
	r := hkdf.New(sha256.New, key[:], nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// nonceFor builds the per-command nonce. Each pairwise-key/secret instance
// authenticates at most one frame per command within a single handshake
// (HELLOACK is sent once, ACK is sent once, both under the same pairwise
// key but different command identifiers), so separating nonces by command
// id is sufficient — it never repeats for a fixed key.
func nonceFor(id proto.CommandID) [nonceSize]byte {
	var nonce [nonceSize]byte
	nonce[0] = byte(id)
	return nonce
}

// Seal encrypts and authenticates payload for command id, with aad bound
// in (typically the sender's identity bytes). The returned slice is
// payload-sized plus the AEAD tag.
func (s *Suite) Seal(id proto.CommandID, payload, aad []byte) []byte {
	nonce := nonceFor(id)
	return s.aead.Seal(nil, nonce[:], payload, aad)
}

// Open authenticates and decrypts sealed for command id. It returns an
// error (never a partial result) on any authentication failure — callers
// must treat that as a dropped frame, not a protocol error.
func (s *Suite) Open(id proto.CommandID, sealed, aad []byte) ([]byte, error) {
	nonce := nonceFor(id)
	return s.aead.Open(nil, nonce[:], sealed, aad)
}

// Overhead returns the number of bytes Seal adds beyond the plaintext.
func (s *Suite) Overhead() int {
	return s.aead.Overhead()
}
