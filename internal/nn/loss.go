package nn

import (
	"math"

	"github.com/dasaro/nn-teaching/internal/activation"
)

// probFloor keeps log() finite for saturated probabilities.
const probFloor = 1e-15

// LossKind identifies the loss paired with an output activation.
type LossKind int

// Loss functions.
const (
	// LossBinaryCrossEntropy pairs with sigmoid outputs:
	//	-Σ t·log(p) + (1-t)·log(1-p)
	LossBinaryCrossEntropy LossKind = iota
	// LossCrossEntropy pairs with softmax outputs: -Σ t·log(p)
	LossCrossEntropy
	// LossSquaredError is used with every other output: ½·Σ (p-t)²
	LossSquaredError
)

// String returns the loss name.
func (k LossKind) String() string {
	switch k {
	case LossBinaryCrossEntropy:
		return "binary_cross_entropy"
	case LossCrossEntropy:
		return "cross_entropy"
	case LossSquaredError:
		return "squared_error"
	default:
		return "unknown"
	}
}

// LossFor returns the loss that pairs with an output activation. For the two
// cross-entropy pairings the output error reduces to prediction - target.
func LossFor(out activation.Kind) LossKind {
	switch out {
	case activation.KindSigmoid:
		return LossBinaryCrossEntropy
	case activation.KindSoftmax:
		return LossCrossEntropy
	default:
		return LossSquaredError
	}
}

// LossKind returns the loss used to train n.
func (n *Network) LossKind() LossKind {
	return LossFor(n.OutputActivation())
}

// Loss computes the per-sample loss of prediction against target.
//
// The result is NaN or ±Inf when the prediction is; callers use that to
// detect divergence. Lengths must match.
func Loss(kind LossKind, prediction, target []float64) float64 {
	if len(prediction) != len(target) {
		panic(shapeErr("loss", "target", -1, len(prediction), len(target)))
	}

	var sum float64
	switch kind {
	case LossBinaryCrossEntropy:
		for i, p := range prediction {
			t := target[i]
			sum -= t*math.Log(clampProb(p)) + (1-t)*math.Log(clampProb(1-p))
		}
	case LossCrossEntropy:
		for i, p := range prediction {
			if t := target[i]; t > 0 {
				sum -= t * math.Log(clampProb(p))
			}
		}
	default:
		for i, p := range prediction {
			d := p - target[i]
			sum += 0.5 * d * d
		}
	}
	return sum
}

// clampProb floors p at probFloor. NaN passes through unchanged.
func clampProb(p float64) float64 {
	if p < probFloor {
		return probFloor
	}
	return p
}
