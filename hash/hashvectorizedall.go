package hash

import "slices"

// CrossVowpal appends Vowpal(p, h) for every partial hash p of in to out, in order
var CrossVowpal func(out []uint32, in []uint32, h uint32) []uint32 = crossVowpalUnrolled

// CrossFwumnious appends Fwumnious(p, h) for every partial hash p of in to out, in order
var CrossFwumnious func(out []uint32, in []uint32, h uint32) []uint32 = crossFwumniousUnrolled

var crossLanes int = 1

// CrossLanes reports how many partial hashes one vector instruction of the
// selected cross loop handles, 1 for the scalar loops. Can't return 0.
func CrossLanes() int {
	return crossLanes
}

func crossVowpalGeneric(out []uint32, in []uint32, h uint32) []uint32 {
	for _, p := range in {
		out = append(out, Vowpal(p, h))
	}
	return out
}

func crossFwumniousGeneric(out []uint32, in []uint32, h uint32) []uint32 {
	for _, p := range in {
		out = append(out, Fwumnious(p, h))
	}
	return out
}

func crossVowpalUnrolled(out []uint32, in []uint32, h uint32) []uint32 {
	var n = len(out)
	out = slices.Grow(out, len(in))[:n+len(in)]
	var dst = out[n:]
	var i int
	for ; i+4 <= len(in); i += 4 {
		dst[i] = h ^ (in[i] * VowpalFNVPrime)
		dst[i+1] = h ^ (in[i+1] * VowpalFNVPrime)
		dst[i+2] = h ^ (in[i+2] * VowpalFNVPrime)
		dst[i+3] = h ^ (in[i+3] * VowpalFNVPrime)
	}
	for ; i < len(in); i++ {
		dst[i] = h ^ (in[i] * VowpalFNVPrime)
	}
	return out
}

func crossFwumniousUnrolled(out []uint32, in []uint32, h uint32) []uint32 {
	var n = len(out)
	out = slices.Grow(out, len(in))[:n+len(in)]
	var dst = out[n:]
	var i int
	for ; i+4 <= len(in); i += 4 {
		dst[i] = in[i] + h
		dst[i+1] = in[i+1] + h
		dst[i+2] = in[i+2] + h
		dst[i+3] = in[i+3] + h
	}
	for ; i < len(in); i++ {
		dst[i] = in[i] + h
	}
	return out
}
