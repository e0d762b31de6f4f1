package regressor

import (
	"math"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/model"
)

const one = uint32(feature.One)

func newInstance(learningRate, powerT float32) *model.Instance {
	var mi = model.NewEmpty()
	mi.LearningRate = learningRate
	mi.PowerT = powerT
	mi.HashBits = 18
	return mi
}

// trajectory learns every buffer in turn and checks the returned predictions
func trajectory(t *testing.T, rr *Regressor, steps []feature.Buffer, want []float32) {
	t.Helper()
	for i, fb := range steps {
		if p := rr.Learn(fb, true); p != want[i] {
			t.Errorf("step %d: prediction %v, want %v", i, p, want[i])
		}
	}
}

func TestPowerTZero(t *testing.T) {
	var rr = New(newInstance(0.1, 0.0))

	// Empty model: no matter how many features, prediction is 0.5
	for _, fb := range []feature.Buffer{{0}, {0, 1, one}, {0, 1, one, 2, one}} {
		if p := rr.Learn(fb, false); p != 0.5 {
			t.Errorf("empty model predicted %v", p)
		}
	}

	trajectory(t, rr,
		[]feature.Buffer{{0, 1, one}, {0, 1, one}, {0, 1, one}},
		[]float32{0.5, 0.48750263, 0.47533244})
}

func TestPowerTHalf(t *testing.T) {
	trajectory(t, New(newInstance(0.1, 0.5)),
		[]feature.Buffer{{0, 1, one}, {0, 1, one}, {0, 1, one}},
		[]float32{0.5, 0.4750208, 0.45788094})
}

func TestPowerTHalfTwoFeatures(t *testing.T) {
	// Here we take twice two features and then once just one
	trajectory(t, New(newInstance(0.1, 0.5)),
		[]feature.Buffer{{0, 1, one, 2, one}, {0, 1, one, 2, one}, {0, 1, one}},
		[]float32{0.5, 0.45016602, 0.45836908})
}

func TestNonOneWeight(t *testing.T) {
	var two = uint32(feature.FloatToBits(2.0))
	trajectory(t, New(newInstance(0.1, 0.0)),
		[]feature.Buffer{{0, 1, two}, {0, 1, two}, {0, 1, two}},
		[]float32{0.5, 0.45016602, 0.40611085})
}

func TestFixFeatureWeightSquare(t *testing.T) {
	var mi = newInstance(0.1, 0.0)
	mi.FixFeatureWeightSquare = true
	var two = uint32(feature.FloatToBits(2.0))
	trajectory(t, New(mi),
		[]feature.Buffer{{0, 1, two}, {0, 1, two}, {0, 1, two}},
		[]float32{0.5, 0.4750208, 0.45140287})
}

func TestPositiveLabel(t *testing.T) {
	trajectory(t, New(newInstance(0.1, 0.5)),
		[]feature.Buffer{{one, 1, one}, {one, 1, one}, {one, 1, one}},
		[]float32{0.5, 0.52497917, 0.5421191})
}

func TestHashMask(t *testing.T) {
	var rr = New(newInstance(0.1, 0.0))
	// 1 and 1+2^18 land in the same slot
	trajectory(t, rr,
		[]feature.Buffer{{0, 1 + 1<<18, one}, {0, 1 + 1<<18, one}},
		[]float32{0.5, 0.48750263})
	if p := rr.Predict(feature.Buffer{0, 1, one}); p != 0.47533244 {
		t.Errorf("masked slot predicted %v", p)
	}
	if len(rr.Weights()) != 1<<18 || len(rr.GradientSqr()) != 1<<18 || rr.HashBits() != 18 {
		t.Errorf("unexpected table size %d %d %d", len(rr.Weights()), len(rr.GradientSqr()), rr.HashBits())
	}
}

func TestDotProductIgnoresFeatureWeight(t *testing.T) {
	var rr = New(newInstance(0.1, 0.0))
	rr.Weights()[5] = 1.5
	var a = rr.Predict(feature.Buffer{0, 5, one})
	var b = rr.Predict(feature.Buffer{0, 5, uint32(feature.FloatToBits(-7))})
	if a != b || a != sigmoid(1.5) || a <= 0.8 {
		t.Errorf("predictions %v %v", a, b)
	}
}

func TestMalformedBuffer(t *testing.T) {
	var rr = New(newInstance(0.1, 0.0))
	for _, fb := range []feature.Buffer{{}, {0, 1}, {0, 1, one, 2}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %v", fb)
				}
			}()
			rr.Learn(fb, true)
		}()
	}
}

func genBuffer(t *rapid.T, label string) feature.Buffer {
	var n = rapid.IntRange(0, 6).Draw(t, label+" pairs")
	var fb = feature.Buffer{uint32(feature.FloatToBits(float32(rapid.IntRange(0, 1).Draw(t, label+" label"))))}
	for i := 0; i < n; i++ {
		fb = append(fb,
			rapid.Uint32().Draw(t, label+" hash"),
			uint32(feature.FloatToBits(rapid.Float32Range(0.25, 4).Draw(t, label+" weight"))))
	}
	return fb
}

func TestDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var steps = rapid.IntRange(1, 20).Draw(t, "steps")
		var buffers = make([]feature.Buffer, steps)
		for i := range buffers {
			buffers[i] = genBuffer(t, "example")
		}
		var mi = newInstance(rapid.Float32Range(0.01, 1).Draw(t, "lr"), rapid.Float32Range(0, 1).Draw(t, "power_t"))
		mi.HashBits = 8

		var run = func() []uint32 {
			var rr = New(mi)
			var out []uint32
			for _, fb := range buffers {
				out = append(out, math.Float32bits(rr.Learn(fb, true)))
			}
			return out
		}
		if a, b := run(), run(); !reflect.DeepEqual(a, b) {
			t.Fatalf("runs diverged: %v != %v", a, b)
		}
	})
}

func TestZeroModelPredictsHalf(t *testing.T) {
	var rr = New(newInstance(0.5, 0.5))
	rapid.Check(t, func(t *rapid.T) {
		if p := rr.Predict(genBuffer(t, "example")); p != 0.5 {
			t.Fatalf("prediction %v", p)
		}
	})
}

func TestReadOnlyIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var mi = newInstance(0.1, 0.5)
		mi.HashBits = 6
		var rr = New(mi)
		for i := rapid.IntRange(0, 5).Draw(t, "warmup"); i > 0; i-- {
			rr.Learn(genBuffer(t, "warmup"), true)
		}
		var weights = append([]float32(nil), rr.Weights()...)
		var gradientSqr = append([]float32(nil), rr.GradientSqr()...)

		var fb = genBuffer(t, "query")
		var first = rr.Learn(fb, false)
		for i := 0; i < 3; i++ {
			if p := rr.Learn(fb, false); math.Float32bits(p) != math.Float32bits(first) {
				t.Fatalf("prediction changed: %v != %v", p, first)
			}
		}
		if !reflect.DeepEqual(weights, rr.Weights()) || !reflect.DeepEqual(gradientSqr, rr.GradientSqr()) {
			t.Fatalf("read only learn mutated the model")
		}
	})
}

func TestPredictionFromPreUpdateWeights(t *testing.T) {
	var a, b = New(newInstance(0.1, 0.5)), New(newInstance(0.1, 0.5))
	var fb = feature.Buffer{0, 3, one, 9, one}
	a.Learn(feature.Buffer{0, 3, one}, true)
	b.Learn(feature.Buffer{0, 3, one}, true)
	if pa, pb := a.Learn(fb, true), b.Learn(fb, false); pa != pb {
		t.Errorf("update changed the returned prediction: %v != %v", pa, pb)
	}
}

func BenchmarkLearn(b *testing.B) {
	var rr = New(newInstance(0.1, 0.5))
	var fb = feature.Buffer{one}
	for i := uint32(0); i < 32; i++ {
		fb = append(fb, i*2654435761, one)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr.Learn(fb, true)
	}
}
