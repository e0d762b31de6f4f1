package model

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/vwmap"
)

// Options are the command line switches a model instance is built from.
// Nil pointers leave the NewEmpty default in place.
type Options struct {
	Keep         []string // single namespace letters
	Interactions []string // two or more namespace letters each

	HashBits     *uint8
	LearningRate *float32
	PowerT       *float32
	L2           *float32

	Link         string // only "logistic" is supported
	LossFunction string // only "logistic" is supported

	Adaptive   bool
	Sgd        bool
	NoConstant bool
	Constant   bool // opt into the implicit bias feature
	Fwumnious  bool // cross with wrapping addition instead of vowpal's hash

	FixFeatureWeightSquare bool
}

// NewFromOptions builds an instance from command line options, resolving
// namespace letters through vw
func NewFromOptions(opts Options, vw *vwmap.NamespaceMap) (*Instance, error) {
	var mi = NewEmpty()

	for _, namespaces := range opts.Keep {
		if utf8.RuneCountInString(namespaces) != 1 {
			return nil, newConfigError("keep", fmt.Sprintf("--keep can only have single letter as a namespace parameter: %s", namespaces))
		}
		desc, err := comboFromLetters(namespaces, vw)
		if err != nil {
			return nil, err
		}
		mi.FeatureComboDescs = append(mi.FeatureComboDescs, desc)
	}
	for _, namespaces := range opts.Interactions {
		if utf8.RuneCountInString(namespaces) <= 1 {
			return nil, newConfigError("interactions", fmt.Sprintf("--interactions needs two or more namespaces: %s", namespaces))
		}
		desc, err := comboFromLetters(namespaces, vw)
		if err != nil {
			return nil, err
		}
		mi.FeatureComboDescs = append(mi.FeatureComboDescs, desc)
	}

	if opts.HashBits != nil {
		mi.HashBits = *opts.HashBits
	}
	if opts.LearningRate != nil {
		mi.LearningRate = *opts.LearningRate
	}
	if opts.PowerT != nil {
		mi.PowerT = *opts.PowerT
	}
	if opts.Link != "" && opts.Link != "logistic" {
		return nil, newConfigError("link", "--link only supports 'logistic'")
	}
	if opts.LossFunction != "" && opts.LossFunction != "logistic" {
		return nil, newConfigError("loss_function", "--loss_function only supports 'logistic'")
	}
	if opts.L2 != nil && math.Abs(float64(*opts.L2)) > 0.00000001 {
		return nil, newConfigError("l2", "--l2 can only be 0.0")
	}
	if !opts.Adaptive {
		return nil, newConfigError("adaptive", "You must use --adaptive")
	}
	if !opts.Sgd {
		return nil, newConfigError("sgd", "You must use --sgd")
	}
	if opts.Constant && opts.NoConstant {
		return nil, newConfigError("constant", "--constant and --noconstant are mutually exclusive")
	}
	if !opts.NoConstant && !opts.Constant {
		return nil, newConfigError("noconstant", "You must use --noconstant or --constant")
	}
	mi.AddConstantFeature = opts.Constant
	if opts.Fwumnious {
		mi.Variant = feature.Fwumnious
	}
	mi.FixFeatureWeightSquare = opts.FixFeatureWeightSquare

	if err := mi.Validate(); err != nil {
		return nil, err
	}
	return mi, nil
}

// comboFromLetters resolves namespace letters, the combo weight is the
// product of the namespaces' weight suffixes
func comboFromLetters(letters string, vw *vwmap.NamespaceMap) (feature.ComboDesc, error) {
	var desc = feature.ComboDesc{Weight: 1.0}
	for _, char := range letters {
		ns, ok := vw.ByChar(char)
		if !ok {
			return desc, newConfigError("namespaces", fmt.Sprintf("Unknown namespace char in command line: %c", char))
		}
		desc.FeatureIndices = append(desc.FeatureIndices, ns.Index)
		desc.Weight *= ns.Weight
	}
	return desc, nil
}
