package table

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a built table.
//
// IMPORTANT: the version byte and tags below are FROZEN. Generated sources
// carry the fingerprint in their banner, so changing the encoding makes
// every previously generated file look stale. Adding tags is fine.
//
// Encoding:
//   - First byte: FingerprintVersion
//   - TagCapacity + uint32 capacity
//   - One tag per slot, in slot order: TagEmpty, or TagOccupied followed by
//     uint32 key and uint32 handler index
//   - Integers are big-endian fixed width; names are never encoded
// ---------------------------------------------------------------------------

// FingerprintVersion is the version prefix of the serialization format.
const FingerprintVersion byte = 1

const (
	TagCapacity byte = 0x01
	TagEmpty    byte = 0x02
	TagOccupied byte = 0x03
)

// Serialize produces the deterministic byte encoding of t.
func Serialize(t *Table) []byte {
	s := &serializer{buf: make([]byte, 0, 8+len(t.Slots)*9)}
	s.writeByte(FingerprintVersion)
	s.writeByte(TagCapacity)
	s.writeUint32(t.Capacity)
	for _, slot := range t.Slots {
		if !slot.Occupied {
			s.writeByte(TagEmpty)
			continue
		}
		s.writeByte(TagOccupied)
		s.writeUint32(slot.Key)
		s.writeUint32(slot.HandlerIdx)
	}
	return s.buf
}

// Fingerprint returns the SHA-256 of Serialize(t). Two tables with the same
// capacity and slot contents have the same fingerprint regardless of the
// symbolic names attached to their keys.
func Fingerprint(t *Table) [32]byte {
	return sha256.Sum256(Serialize(t))
}

// FingerprintHex returns the first 16 hex digits of the fingerprint, the
// form printed in generated banners and diagnostics.
func FingerprintHex(t *Table) string {
	fp := Fingerprint(t)
	return hex.EncodeToString(fp[:8])
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}
