// Package model holds the configuration of a fwlearn model instance
package model

import (
	"fmt"
	"math"

	"github.com/neurlang/fwlearn/feature"
)

// Instance is the validated configuration the combiner and regressor are built from
type Instance struct {
	LearningRate float32 // base step size
	PowerT       float32 // exponent of the adaptive learning rate decay
	HashBits     uint8   // weight table has 2^HashBits slots

	AddConstantFeature bool // append the implicit bias feature to every example

	FeatureComboDescs []feature.ComboDesc // keeps and interactions, in emission order

	Variant feature.Variant // hash combination used for interactions

	// FixFeatureWeightSquare applies the combo weight once in the update
	// instead of twice. Off by default to stay bit compatible with vowpal wabbit.
	FixFeatureWeightSquare bool
}

// NewEmpty returns an instance with vowpal wabbit's defaults and no combos
func NewEmpty() *Instance {
	return &Instance{
		LearningRate: 0.5, // vw default
		PowerT:       0.5,
		HashBits:     18, // vw default
		Variant:      feature.Vowpal,
	}
}

// MaxHashBits bounds the weight table to 2^31 slots per array
const MaxHashBits = 31

// Validate reports the first problem that would make the instance unusable
func (mi *Instance) Validate() error {
	if mi.HashBits < 1 || mi.HashBits > MaxHashBits {
		return newConfigError("hash_bits", fmt.Sprintf("must be in [1, %d], got %d", MaxHashBits, mi.HashBits))
	}
	var lr = float64(mi.LearningRate)
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr <= 0 {
		return newConfigError("learning_rate", fmt.Sprintf("must be finite and positive, got %v", mi.LearningRate))
	}
	var pt = float64(mi.PowerT)
	if math.IsNaN(pt) || math.IsInf(pt, 0) || pt < 0 {
		return newConfigError("power_t", fmt.Sprintf("must be finite and non-negative, got %v", mi.PowerT))
	}
	if len(mi.FeatureComboDescs) == 0 {
		return newConfigError("features", "no --keep, --interactions or model features given")
	}
	for i, desc := range mi.FeatureComboDescs {
		if len(desc.FeatureIndices) == 0 {
			return newConfigError("features", fmt.Sprintf("combo %d has no namespaces", i))
		}
		for _, idx := range desc.FeatureIndices {
			if idx < 0 {
				return newConfigError("features", fmt.Sprintf("combo %d has negative namespace index %d", i, idx))
			}
		}
	}
	return nil
}

// Slots returns the number of weight slots, 2^HashBits
func (mi *Instance) Slots() int {
	return 1 << mi.HashBits
}
