//go:build !noasm && amd64

package hash

import (
	"slices"

	"github.com/klauspost/cpuid/v2"
)

const avx2Lanes = 8

func init() {
	if cpuid.CPU.Supports(cpuid.AVX2) {
		CrossVowpal = crossVowpalAVX2
		CrossFwumnious = crossFwumniousAVX2
		crossLanes = avx2Lanes
	} else {
		CrossVowpal = crossVowpalUnrolled
		CrossFwumnious = crossFwumniousUnrolled
		crossLanes = 1
	}
}

// crossVowpalKernel stores h ^ (src[i] * prime) to dst[i], n must be a multiple of 8
//
//go:noescape
func crossVowpalKernel(dst *uint32, src *uint32, h uint32, prime uint32, n int)

// crossFwumniousKernel stores src[i] + h to dst[i], n must be a multiple of 8
//
//go:noescape
func crossFwumniousKernel(dst *uint32, src *uint32, h uint32, n int)

func crossVowpalAVX2(out []uint32, in []uint32, h uint32) []uint32 {
	var n = len(out)
	out = slices.Grow(out, len(in))[:n+len(in)]
	var blocks = len(in) &^ (avx2Lanes - 1)
	if blocks > 0 {
		crossVowpalKernel(&out[n], &in[0], h, VowpalFNVPrime, blocks)
	}
	for i := blocks; i < len(in); i++ {
		out[n+i] = Vowpal(in[i], h)
	}
	return out
}

func crossFwumniousAVX2(out []uint32, in []uint32, h uint32) []uint32 {
	var n = len(out)
	out = slices.Grow(out, len(in))[:n+len(in)]
	var blocks = len(in) &^ (avx2Lanes - 1)
	if blocks > 0 {
		crossFwumniousKernel(&out[n], &in[0], h, blocks)
	}
	for i := blocks; i < len(in); i++ {
		out[n+i] = Fwumnious(in[i], h)
	}
	return out
}
