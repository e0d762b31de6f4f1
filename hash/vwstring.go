package hash

import "github.com/spaolacci/murmur3"

// VWString hashes a feature or namespace name the way vowpal wabbit's
// hashstring does. Surrounding spaces are ignored, a purely decimal
// string hashes to its value plus seed, anything else to murmur3_32
// seeded with seed.
func VWString(s string, seed uint32) uint32 {
	var start, end = 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	s = s[start:end]

	var numeric = len(s) > 0
	var value uint64
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			numeric = false
			break
		}
		value = 10*value + uint64(s[i]-'0')
	}
	if numeric {
		return uint32(value + uint64(seed))
	}
	return murmur3.Sum32WithSeed([]byte(s), seed)
}
