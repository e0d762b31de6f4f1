// Package regressor implements the online logistic regressor with per-feature adaptive learning rates
package regressor

import (
	"fmt"
	"math"

	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/hash"
	"github.com/neurlang/fwlearn/model"
)

// Regressor owns the weight table and the accumulated squared gradients.
// It is not safe for concurrent use: every update depends on the exact
// state left by the previous one.
type Regressor struct {
	learningRate float32
	minusPowerT  float32
	fixSquare    bool

	hashBits    uint8
	hashMask    uint32
	weights     []float32
	gradientSqr []float32
}

// New creates a regressor with all weights and accumulators at zero
func New(mi *model.Instance) *Regressor {
	var hashMask = hash.Mask(mi.HashBits)
	return &Regressor{
		learningRate: mi.LearningRate,
		minusPowerT:  -mi.PowerT,
		fixSquare:    mi.FixFeatureWeightSquare,
		hashBits:     mi.HashBits,
		hashMask:     hashMask,
		weights:      make([]float32, uint64(hashMask)+1),
		gradientSqr:  make([]float32, uint64(hashMask)+1),
	}
}

// HashBits returns the log2 of the table size
func (r *Regressor) HashBits() uint8 {
	return r.hashBits
}

// Weights returns the weight table. The slice aliases the regressor state.
func (r *Regressor) Weights() []float32 {
	return r.weights
}

// GradientSqr returns the accumulated squared gradients. The slice aliases the regressor state.
func (r *Regressor) GradientSqr() []float32 {
	return r.gradientSqr
}

// Predict returns the prediction for fb without learning from it
func (r *Regressor) Predict(fb feature.Buffer) float32 {
	return r.Learn(fb, false)
}

// Learn returns the logistic prediction for fb and, if update is set,
// takes one adaptive gradient step on every feature of fb.
//
// The dot product sums raw weights, the feature weights only scale the
// update. The prediction is the one made before the update.
func (r *Regressor) Learn(fb feature.Buffer, update bool) float32 {
	if len(fb)%2 != 1 {
		panic(fmt.Sprintf("regressor: feature buffer of length %d is not a label followed by pairs", len(fb)))
	}
	var y = fb.Label() // 0.0 or 1.0

	// first we need a dot product, which in our case is a simple sum
	var wsum float32
	for i := 1; i < len(fb); i += 2 {
		wsum += r.weights[fb[i]&r.hashMask]
	}
	var prediction = sigmoid(wsum)

	if update {
		var generalGradient = -(prediction - y)
		for i := 1; i < len(fb); i += 2 {
			var slot = fb[i] & r.hashMask
			var featureWeight = feature.BitsToFloat(feature.WeightBits(fb[i+1]))
			var gradient = generalGradient * featureWeight
			// the accumulator includes this step's gradient before it is read
			r.gradientSqr[slot] += float32(gradient * gradient)
			var updateFactor = float32(gradient * r.learningRate)
			if !r.fixSquare {
				// vowpal wabbit applies the feature weight a second time here
				updateFactor = float32(featureWeight * updateFactor)
			}
			updateFactor = float32(updateFactor * pow32(r.gradientSqr[slot], r.minusPowerT))
			r.weights[slot] += updateFactor
		}
	}
	return prediction
}

// sigmoid evaluates 1/(1+e^-x) rounding like the float32 reference
func sigmoid(x float32) float32 {
	var e = float32(math.Exp(float64(-x)))
	var d = float32(1 + e)
	return float32(1 / d)
}

func pow32(x, y float32) float32 {
	if y == 0 {
		return 1
	}
	return float32(math.Pow(float64(x), float64(y)))
}
