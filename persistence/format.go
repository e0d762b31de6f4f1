// Package persistence saves and restores regressor state losslessly.
//
// A file is a little-endian FileHeader followed by a zstd frame. The frame
// holds a roaring bitmap of the slots whose weight or accumulator is not
// +0.0, then one (weight, gradient_sqr) float32 pair per set bit in
// ascending slot order. Untouched slots are implied to be zero.
package persistence

import "errors"

const (
	// MagicNumber identifies regressor files (ASCII: "FWLR")
	MagicNumber = 0x464C5752
	// Version is the current file format version
	Version = 0x00010000
)

var (
	ErrInvalidMagic     = errors.New("invalid magic number")
	ErrInvalidVersion   = errors.New("unsupported version")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrCorrupt          = errors.New("corrupt regressor payload")
	ErrHashBitsMismatch = errors.New("hash_bits mismatch")
)

// FileHeader is the 32-byte header at the start of every regressor file
type FileHeader struct {
	Magic          uint32
	Version        uint32
	HashBits       uint8
	Padding        [3]byte
	LearningRate   float32 // informational, the model configuration wins
	PowerT         float32 // informational
	Touched        uint32  // number of stored slots
	CompressedSize uint32  // size of the zstd frame that follows
	Checksum       uint32  // CRC32 of the uncompressed payload
}
