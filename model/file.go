package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/vwmap"
)

// description is the on-disk model description
//
//	{"desc": {"learning_rate": 0.1, "hash_bits": 24, "features": ["user", "user,item"]}}
type description struct {
	Desc struct {
		LearningRate       *float32 `json:"learning_rate" yaml:"learning_rate"`
		PowerT             *float32 `json:"power_t" yaml:"power_t"`
		HashBits           *uint8   `json:"hash_bits" yaml:"hash_bits"`
		AddConstantFeature bool     `json:"add_constant_feature" yaml:"add_constant_feature"`
		Variant            string   `json:"variant" yaml:"variant"`
		Features           []string `json:"features" yaml:"features"`
	} `json:"desc" yaml:"desc"`
}

// NewFromFile builds an instance from a JSON model description, or YAML
// when the file name ends in .yaml or .yml. Features are comma separated
// namespace names resolved through vw.
func NewFromFile(path string, vw *vwmap.NamespaceMap) (*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d description
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	default:
		err = gojson.Unmarshal(data, &d)
	}
	if err != nil {
		return nil, wrapConfigError(path, err)
	}
	return newFromDescription(&d, vw)
}

func newFromDescription(d *description, vw *vwmap.NamespaceMap) (*Instance, error) {
	var mi = NewEmpty()
	if d.Desc.LearningRate == nil {
		return nil, newConfigError("learning_rate", "missing from model description")
	}
	if d.Desc.HashBits == nil {
		return nil, newConfigError("hash_bits", "missing from model description")
	}
	mi.LearningRate = *d.Desc.LearningRate
	mi.HashBits = *d.Desc.HashBits
	if d.Desc.PowerT != nil {
		mi.PowerT = *d.Desc.PowerT
	}
	mi.AddConstantFeature = d.Desc.AddConstantFeature
	variant, err := feature.ParseVariant(d.Desc.Variant)
	if err != nil {
		return nil, wrapConfigError("variant", err)
	}
	mi.Variant = variant

	for _, fname := range d.Desc.Features {
		var desc = feature.ComboDesc{Weight: 1.0}
		for _, name := range strings.Split(fname, ",") {
			ns, ok := vw.ByName(strings.TrimSpace(name))
			if !ok {
				return nil, newConfigError("features", fmt.Sprintf("Unknown feature name in model json: %s", name))
			}
			desc.FeatureIndices = append(desc.FeatureIndices, ns.Index)
			desc.Weight *= ns.Weight
		}
		mi.FeatureComboDescs = append(mi.FeatureComboDescs, desc)
	}

	if err := mi.Validate(); err != nil {
		return nil, err
	}
	return mi, nil
}
