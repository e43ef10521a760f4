// Package dataset holds training samples and the toy datasets bundled with
// the engine.
package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/nn"
)

// Sample is one training example.
type Sample struct {
	Input  []float64 `yaml:"input"`
	Target []float64 `yaml:"target"` // Single value for binary tasks, one-hot for multi-class
	Label  string    `yaml:"label,omitempty"`
}

// Dataset is an ordered sequence of samples.
type Dataset []Sample

// Validate checks that d is non-empty, that every sample matches the given
// input and output sizes, and that every value is finite.
//
// Size disagreements wrap nn.ErrShapeMismatch; an empty dataset or a
// non-finite value wraps nn.ErrInvalidConfig.
func (d Dataset) Validate(inputSize, outputSize int) error {
	if len(d) == 0 {
		return errors.Wrap(nn.ErrInvalidConfig, "dataset is empty")
	}
	for i, s := range d {
		if len(s.Input) != inputSize {
			return &nn.ShapeError{Op: "dataset", What: fmt.Sprintf("sample %d input", i), Layer: -1, Want: inputSize, Got: len(s.Input)}
		}
		if len(s.Target) != outputSize {
			return &nn.ShapeError{Op: "dataset", What: fmt.Sprintf("sample %d target", i), Layer: -1, Want: outputSize, Got: len(s.Target)}
		}
		if !finite(s.Input) || !finite(s.Target) {
			return errors.Wrapf(nn.ErrInvalidConfig, "dataset: sample %d has a non-finite value", i)
		}
	}
	return nil
}

// Inputs returns the input vector of every sample.
func (d Dataset) Inputs() [][]float64 {
	out := make([][]float64, len(d))
	for i, s := range d {
		out[i] = s.Input
	}
	return out
}

// Order returns the visiting order of one epoch: the identity when rng is nil,
// otherwise a Fisher-Yates permutation drawn from rng.
func (d Dataset) Order(rng *rand.Rand) []int {
	idx := make([]int, len(d))
	for i := range idx {
		idx[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}
	return idx
}

// Shuffled returns a copy of d in the order drawn from rng. Samples are
// shared, not copied.
func (d Dataset) Shuffled(rng *rand.Rand) Dataset {
	out := make(Dataset, len(d))
	for i, j := range d.Order(rng) {
		out[i] = d[j]
	}
	return out
}

// Split shuffles d with rng and cuts it into a training part holding
// round(frac*len(d)) samples and a validation part holding the rest.
func (d Dataset) Split(frac float64, rng *rand.Rand) (train, validation Dataset, err error) {
	if !(frac > 0 && frac < 1) {
		return nil, nil, errors.Wrapf(nn.ErrInvalidConfig, "dataset: split fraction must be in (0, 1), got %v", frac)
	}
	shuffled := d.Shuffled(rng)
	cut := int(math.Round(frac * float64(len(d))))
	return shuffled[:cut], shuffled[cut:], nil
}

// Binary converts a two-class one-hot dataset to single-output targets: the
// new target is the first element of the old one.
func (d Dataset) Binary() Dataset {
	out := make(Dataset, len(d))
	for i, s := range d {
		out[i] = Sample{Input: s.Input, Target: []float64{s.Target[0]}, Label: s.Label}
	}
	return out
}

// OneHot returns a vector of length n with a 1 at class.
func OneHot(class, n int) []float64 {
	v := make([]float64, n)
	v[class] = 1
	return v
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
