package feature

import (
	"fmt"

	"github.com/neurlang/fwlearn/hash"
)

// Variant selects the hash combination used when crossing namespaces
type Variant uint8

const (
	// Vowpal crosses with hash.Vowpal, bit compatible with vowpal wabbit
	Vowpal Variant = iota
	// Fwumnious crosses with hash.Fwumnious
	Fwumnious
)

func (v Variant) String() string {
	switch v {
	case Vowpal:
		return "vowpal"
	case Fwumnious:
		return "fwumnious"
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

// ParseVariant parses the name returned by Variant.String
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "", "vowpal":
		return Vowpal, nil
	case "fwumnious":
		return Fwumnious, nil
	}
	return Vowpal, fmt.Errorf("unknown hash variant %q", s)
}

// ComboDesc describes one feature combo: a single namespace ("keep") or a
// cross of several ("interactions"), and the weight of every feature it emits.
type ComboDesc struct {
	FeatureIndices []int   // namespace indices, crossed in this order
	Weight         float32 // product of the namespaces' weight suffixes
}

// Combiner translates record buffers into output buffers. The returned
// buffer and the crossing scratch space are reused by the next Translate,
// so a Combiner must not be shared between goroutines.
type Combiner struct {
	descs       []ComboDesc
	addConstant bool
	variant     Variant
	cross       func(out []uint32, in []uint32, h uint32) []uint32

	headerEnd int // first slot past the header of the highest namespace used

	hashesIn  []uint32
	hashesOut []uint32
	output    Buffer
}

// New creates a combiner for the combos descs
func New(descs []ComboDesc, addConstant bool, variant Variant) *Combiner {
	var c = &Combiner{
		descs:       descs,
		addConstant: addConstant,
		variant:     variant,
		hashesIn:    make([]uint32, 0, 100),
		hashesOut:   make([]uint32, 0, 100),
		output:      make(Buffer, 0, 1024),
	}
	var maxNs = -1
	for _, desc := range descs {
		for _, ns := range desc.FeatureIndices {
			maxNs = max(maxNs, ns)
		}
	}
	c.headerEnd = HeaderLen + 2*(maxNs+1)
	c.SetVariant(variant)
	return c
}

// SetVariant switches the hash combination rule
func (c *Combiner) SetVariant(variant Variant) {
	c.variant = variant
	if variant == Fwumnious {
		c.cross = hash.CrossFwumnious
	} else {
		c.cross = hash.CrossVowpal
	}
}

// Variant returns the hash combination rule in use
func (c *Combiner) Variant() Variant {
	return c.variant
}

// Translate turns record r into an output buffer: the label, then for every
// combo in order one (hash, weight bits) pair per element of the cross
// product of its namespaces, then the constant feature if enabled.
//
// A combo with any absent namespace emits nothing. Translate panics with
// a *PreconditionError when r is malformed.
func (c *Combiner) Translate(r Record) Buffer {
	if len(r) < c.headerEnd {
		panic(&PreconditionError{Namespace: -1, Len: len(r), Reason: "shorter than header"})
	}
	c.output = append(c.output[:0], r[1])

	var in, out = c.hashesIn, c.hashesOut
	for _, desc := range c.descs {
		var weightBits = uint32(FloatToBits(desc.Weight))
		in = append(in[:0], 0) // crossing starts from the empty partial hash
		for _, ns := range desc.FeatureIndices {
			start, end, err := checkRange(r, ns, c.headerEnd)
			if err != nil {
				panic(err)
			}
			if start == end {
				// no feature is no feature: the whole combo is inactive
				in = in[:0]
				break
			}
			out = out[:0]
			for _, h := range r[start:end] {
				out = c.cross(out, in, h)
			}
			in, out = out, in
		}
		for _, h := range in {
			c.output = append(c.output, h, weightBits)
		}
	}
	c.hashesIn, c.hashesOut = in, out

	if c.addConstant {
		c.output = append(c.output, hash.ConstantHash, uint32(One))
	}
	return c.output
}
