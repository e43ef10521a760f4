// Package metrics records per-epoch training measurements and implements the
// decision rule that turns network outputs into class predictions.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dasaro/nn-teaching/internal/activation"
)

// Epoch is the record of one completed training epoch.
type Epoch struct {
	Index        int     // 1-based epoch number
	Accuracy     float64 // Fraction of samples classified correctly
	Loss         float64 // Mean per-sample loss
	LearningRate float64 // Learning rate used during the epoch
	GradNorm     float64 // Mean gradient norm over the epoch's updates
	WeightNorm   float64 // Euclidean norm of all weights after the epoch
	DeadFraction float64 // Fraction of hidden units that never responded
	Correct      int
	Total        int
}

// History is the append-only sequence of epoch records of one run.
type History []Epoch

// Last returns the most recent record.
func (h History) Last() (Epoch, bool) {
	if len(h) == 0 {
		return Epoch{}, false
	}
	return h[len(h)-1], true
}

// Tail returns the last n records, or all of them if there are fewer.
func (h History) Tail(n int) History {
	if n >= len(h) {
		return h
	}
	if n <= 0 {
		return nil
	}
	return h[len(h)-n:]
}

// Losses returns the loss of every record.
func (h History) Losses() []float64 {
	out := make([]float64, len(h))
	for i, e := range h {
		out[i] = e.Loss
	}
	return out
}

// Accuracies returns the accuracy of every record.
func (h History) Accuracies() []float64 {
	out := make([]float64, len(h))
	for i, e := range h {
		out[i] = e.Accuracy
	}
	return out
}

// LossDeltas returns up to n consecutive loss differences ending at the last
// record: loss[i] - loss[i-1].
func (h History) LossDeltas(n int) []float64 {
	losses := h.Tail(n + 1).Losses()
	if len(losses) < 2 {
		return nil
	}
	deltas := make([]float64, len(losses)-1)
	floats.SubTo(deltas, losses[1:], losses[:len(losses)-1])
	return deltas
}

// BestAccuracy returns the highest accuracy recorded, or 0 for an empty history.
func (h History) BestAccuracy() float64 {
	if len(h) == 0 {
		return 0
	}
	return floats.Max(h.Accuracies())
}

// SignFlips counts adjacent pairs of deltas with opposite signs. Deltas whose
// magnitude does not exceed tol are treated as noise and skipped.
func SignFlips(deltas []float64, tol float64) int {
	flips := 0
	prev := 0.0
	for _, d := range deltas {
		if math.Abs(d) <= tol {
			continue
		}
		if prev != 0 && math.Signbit(prev) != math.Signbit(d) {
			flips++
		}
		prev = d
	}
	return flips
}

// LossSpread returns the mean and population standard deviation of the loss
// over the last n records.
func (h History) LossSpread(n int) (mean, std float64) {
	losses := h.Tail(n).Losses()
	if len(losses) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(losses, nil)
}

// Threshold returns the decision threshold for a single-unit output with the
// given activation: 0 for tanh, 0.5 otherwise.
func Threshold(kind activation.Kind) float64 {
	if kind == activation.KindTanh {
		return 0
	}
	return 0.5
}

// Class maps an output vector to a class index. Single-unit outputs are
// thresholded (1 above the threshold, else 0); wider outputs use argmax.
func Class(kind activation.Kind, output []float64) int {
	if len(output) == 1 {
		if output[0] > Threshold(kind) {
			return 1
		}
		return 0
	}
	return floats.MaxIdx(output)
}

// Correct reports whether output and target map to the same class.
func Correct(kind activation.Kind, output, target []float64) bool {
	return Class(kind, output) == Class(kind, target)
}

// Accuracy returns correct/total, or 0 when total is 0.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
