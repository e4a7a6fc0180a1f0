package proto

import "errors"

// ErrShortBuffer is returned by decoders when the input is too small for
// the layout they expect.
var ErrShortBuffer = errors.New("apkes/proto: buffer too short")
