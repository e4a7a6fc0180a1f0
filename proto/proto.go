// Package proto defines the wire-level constants, identities and frame
// layouts for the APKES handshake. It has no knowledge of timers,
// neighbor state or cryptography — its encoders and decoders (frames.go)
// only convert between these byte layouts and plain values, which other
// packages turn into the Engine's working state.
package proto

import "encoding/binary"

const (
	// ChallengeLen is the length in bytes of a single challenge, half of
	// PairwiseKeyLen.
	ChallengeLen = 8

	// PairwiseKeyLen is the length in bytes of a derived pairwise key.
	PairwiseKeyLen = 16

	// ExtendedAddrLen is the length in bytes of a long (EUI-64-style) address.
	ExtendedAddrLen = 8

	// ShortAddrLen is the length in bytes of a short address on the wire.
	ShortAddrLen = 2

	// BroadcastKeyLen is the length in bytes of the EBEAP broadcast key
	// optionally piggybacked on HELLOACK/ACK.
	BroadcastKeyLen = 16

	// KeyIDHeaderLen is the length in bytes of the key-id-mode header
	// (mode/index + key source) used when broadcast-key mode is enabled.
	KeyIDHeaderLen = 5
)

// CommandID identifies a command frame's payload layout.
type CommandID uint8

const (
	CmdHello    CommandID = 0x0A
	CmdHelloAck CommandID = 0x0B
	CmdAck      CommandID = 0x0C
)

func (c CommandID) String() string {
	switch c {
	case CmdHello:
		return "HELLO"
	case CmdHelloAck:
		return "HELLOACK"
	case CmdAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// ExtendedAddr is a long, globally-unique peer address.
type ExtendedAddr [ExtendedAddrLen]byte

// ShortAddr is a short, locally-assigned peer address.
type ShortAddr uint16

// PutShortAddr writes addr little-endian into buf, per 802.15.4 convention.
func PutShortAddr(buf []byte, addr ShortAddr) {
	binary.LittleEndian.PutUint16(buf, uint16(addr))
}

// GetShortAddr reads a little-endian short address from buf.
func GetShortAddr(buf []byte) ShortAddr {
	return ShortAddr(binary.LittleEndian.Uint16(buf))
}

// Identity is a peer's full address: the long-term extended address plus
// its (session-scoped) short address. The extended address is what secret
// providers key on; the short address is what appears in subsequent data
// frames.
type Identity struct {
	Extended ExtendedAddr
	Short    ShortAddr
}

// KeyIDHeader is the optional 5-byte header prefixing a secured command
// frame when broadcast-key mode is active, identifying which long-term key
// (by command id) and which peer (by short address) produced the frame.
type KeyIDHeader struct {
	Index  CommandID
	Source ShortAddr
}

// Encode writes the header's wire form: index(1) || source(2) || reserved(2).
func (h KeyIDHeader) Encode() [KeyIDHeaderLen]byte {
	var buf [KeyIDHeaderLen]byte
	buf[0] = byte(h.Index)
	PutShortAddr(buf[1:3], h.Source)
	return buf
}

// DecodeKeyIDHeader parses a KeyIDHeader from the front of buf.
func DecodeKeyIDHeader(buf []byte) (KeyIDHeader, error) {
	if len(buf) < KeyIDHeaderLen {
		return KeyIDHeader{}, ErrShortBuffer
	}
	return KeyIDHeader{
		Index:  CommandID(buf[0]),
		Source: GetShortAddr(buf[1:3]),
	}, nil
}
