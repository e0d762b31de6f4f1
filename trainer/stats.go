package trainer

import "math"

// clamp keeps the log loss finite for saturated predictions
const clamp = 1e-15

// Stats summarizes a run
type Stats struct {
	Passes   int     // passes completed
	Examples int     // examples seen, over all passes
	Positive int     // examples labeled 1
	LossSum  float64 // sum of the per example logistic loss
}

// add accounts one example with label y and prediction p made before learning from it
func (s *Stats) add(y, p float32) {
	s.Examples++
	if y > 0.5 {
		s.Positive++
	}
	s.LossSum += logLoss(y, p)
}

// AverageLoss is the progressive validation log loss
func (s Stats) AverageLoss() float64 {
	if s.Examples == 0 {
		return 0
	}
	return s.LossSum / float64(s.Examples)
}

func logLoss(y, p float32) float64 {
	var q = math.Min(math.Max(float64(p), clamp), 1-clamp)
	return -(float64(y)*math.Log(q) + (1-float64(y))*math.Log(1-q))
}
