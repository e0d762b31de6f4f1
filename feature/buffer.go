// Package feature implements the record and output buffer layouts and the feature combiner
package feature

import "math"

// Hash is a combined feature hash as stored in an output buffer slot
type Hash uint32

// WeightBits is a float32 reinterpreted as its raw IEEE-754 bit pattern
type WeightBits uint32

// One is the bit pattern of float32 1.0
const One WeightBits = 0x3F800000

// FloatToBits stores f into a buffer slot without loss
func FloatToBits(f float32) WeightBits {
	return WeightBits(math.Float32bits(f))
}

// BitsToFloat reads back a float32 stored by FloatToBits
func BitsToFloat(b WeightBits) float32 {
	return math.Float32frombits(uint32(b))
}

// Buffer is the flat output of the combiner. Element 0 is the label bits,
// followed by (Hash, WeightBits) pairs.
type Buffer []uint32

// Label returns the label stored at position 0
func (b Buffer) Label() float32 {
	return BitsToFloat(WeightBits(b[0]))
}

// Len returns the number of (hash, weight) pairs
func (b Buffer) Len() int {
	return (len(b) - 1) / 2
}

// Pair returns the n-th (hash, weight) pair
func (b Buffer) Pair(n int) (Hash, WeightBits) {
	return Hash(b[1+2*n]), WeightBits(b[2+2*n])
}
