// Package flash implements the append-only keying-material store of
// spec.md §4.3, grounded directly on apkes-flash.c: erase/append/restore
// against a fixed offset, with a process-local write cursor that higher
// layers must reconstruct after a restart (store-side bookkeeping of what
// was already written is explicitly out of scope, same as the original).
package flash

import (
	"errors"
	"sync"
)

// ErrOutOfRange is returned when an operation would read or write outside
// the backing Device's declared size.
var ErrOutOfRange = errors.New("apkes/flash: access out of range")

// Device is the minimal non-volatile storage surface the store needs,
// matching the xmem_erase/xmem_pwrite/xmem_pread calls in apkes-flash.c.
// A real embedded target backs this with a SPI flash driver; tests and the
// demo CLI use the in-memory implementation below.
type Device interface {
	// EraseUnitSize is the device's bulk-erase granularity.
	EraseUnitSize() int
	// Erase bulk-erases one erase unit starting at offset.
	Erase(offset int) error
	// WriteAt writes buf at offset.
	WriteAt(buf []byte, offset int) error
	// ReadAt reads len(buf) bytes starting at offset into buf.
	ReadAt(buf []byte, offset int) error
}

// Store is an append-only log of keying material backed by a Device at a
// fixed region offset.
type Store struct {
	mu     sync.Mutex
	dev    Device
	offset int
	cursor int
}

// New creates a store writing to dev starting at region offset. Unlike
// Erase, New does not touch the device — callers that need a clean region
// call Erase explicitly, mirroring apkes_flash_erase_keying_material being
// a distinct call from initialization in the original.
func New(dev Device, offset int) *Store {
	return &Store{dev: dev, offset: offset}
}

// Erase bulk-erases the store's region and resets the write cursor to 0.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.Erase(s.offset); err != nil {
		return err
	}
	s.cursor = 0
	return nil
}

// Append writes buf at the current cursor and advances the cursor by
// len(buf). There is no wrap-around and no bounds check beyond what the
// underlying Device enforces.
func (s *Store) Append(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.WriteAt(buf, s.offset+s.cursor); err != nil {
		return err
	}
	s.cursor += len(buf)
	return nil
}

// Restore performs a random-access read of len(out) bytes at
// offset+relativeOffset, independent of the write cursor.
func (s *Store) Restore(out []byte, relativeOffset int) error {
	return s.dev.ReadAt(out, s.offset+relativeOffset)
}

// Cursor returns the current write offset relative to the store's region,
// so callers can reconstruct it after scanning restored records.
func (s *Store) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetCursor lets a caller that has scanned previously-restored records
// reconstruct the write cursor, since the store itself keeps no persistent
// bookkeeping of what was already appended.
func (s *Store) SetCursor(cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}
