// Package hash implements the feature hash combination used by the fwlearn feature combiner
package hash

// VowpalFNVPrime is the multiplier vowpal wabbit applies to a partial hash
// before mixing in the next namespace
const VowpalFNVPrime uint32 = 16777619

// ConstantHash is the hash vowpal wabbit reserves for its implicit bias feature
const ConstantHash uint32 = 11650396

// Vowpal crosses raw hash h into partial hash p the way vowpal wabbit does.
// The multiplication wraps around at 32 bits.
func Vowpal(p uint32, h uint32) uint32 {
	return h ^ (p * VowpalFNVPrime)
}

// Fwumnious crosses raw hash h into partial hash p using wrapping addition
func Fwumnious(p uint32, h uint32) uint32 {
	return p + h
}

// Mask returns the mask folding a 32-bit hash into a table of 2^bits slots
func Mask(bits uint8) uint32 {
	return uint32((uint64(1) << bits) - 1)
}
