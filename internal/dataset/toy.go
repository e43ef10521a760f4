package dataset

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/nn"
)

// Names of the bundled datasets, as accepted by Builtin.
const (
	NameTwoClusters = "two_clusters"
	NameXOR         = "xor"
	NameDogs        = "dogs"
	NameDogsBinary  = "dogs_binary"
	NamePrototypes  = "prototypes"
)

// TwoClusters returns 2*n two-dimensional points: n around (-1, -1) with
// target 0 and n around (1, 1) with target 1. Each coordinate is jittered by
// at most 0.3, so the classes are linearly separable.
func TwoClusters(n int, rng *rand.Rand) Dataset {
	d := make(Dataset, 0, 2*n)
	for class, center := range []float64{-1, 1} {
		for i := 0; i < n; i++ {
			d = append(d, Sample{
				Input: []float64{
					center + (rng.Float64()*2-1)*0.3,
					center + (rng.Float64()*2-1)*0.3,
				},
				Target: []float64{float64(class)},
				Label:  fmt.Sprintf("c%d-%d", class, i+1),
			})
		}
	}
	return d
}

// XOR returns the four points of the exclusive-or truth table.
func XOR() Dataset {
	return Dataset{
		{Input: []float64{0, 0}, Target: []float64{0}, Label: "00"},
		{Input: []float64{0, 1}, Target: []float64{1}, Label: "01"},
		{Input: []float64{1, 0}, Target: []float64{1}, Label: "10"},
		{Input: []float64{1, 1}, Target: []float64{0}, Label: "11"},
	}
}

// Dog features, in input order.
const (
	FeatureSize = iota
	FeatureFriendliness
	FeatureBark
	FeatureDomestic
	NumFeatures
)

// Dogs returns 24 shuffled samples with four features in [0, 1]: 12 dogs,
// 6 cats and 6 inanimate objects. Targets are one-hot: [1, 0] for dogs and
// [0, 1] for everything else.
func Dogs(rng *rand.Rand) Dataset {
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	d := make(Dataset, 0, 24)
	for i := 0; i < 12; i++ {
		d = append(d, Sample{
			Input:  []float64{between(0.6, 0.9), between(0.8, 1), between(0.9, 1), between(0.9, 1)},
			Target: OneHot(0, 2),
			Label:  fmt.Sprintf("dog%d", i+1),
		})
	}
	for i := 0; i < 6; i++ {
		d = append(d, Sample{
			Input:  []float64{between(0.2, 0.4), between(0.4, 0.7), between(0, 0.1), between(0.6, 0.8)},
			Target: OneHot(1, 2),
			Label:  fmt.Sprintf("cat%d", i+1),
		})
	}
	for i := 0; i < 6; i++ {
		d = append(d, Sample{
			Input:  []float64{between(0, 0.6), between(0, 0.1), between(0, 0.1), between(0, 0.1)},
			Target: OneHot(1, 2),
			Label:  fmt.Sprintf("object%d", i+1),
		})
	}
	return d.Shuffled(rng)
}

// Prototypes returns one clear example of each kind in the dog dataset, in a
// fixed order. Useful for step-by-step inspection.
func Prototypes() Dataset {
	return Dataset{
		{Input: []float64{0.8, 0.9, 1.0, 0.95}, Target: OneHot(0, 2), Label: "prototype-dog"},
		{Input: []float64{0.3, 0.6, 0.05, 0.75}, Target: OneHot(1, 2), Label: "prototype-cat"},
		{Input: []float64{0.65, 0.85, 0.9, 0.9}, Target: OneHot(0, 2), Label: "family-dog"},
		{Input: []float64{0.4, 0.05, 0.0, 0.0}, Target: OneHot(1, 2), Label: "object"},
	}
}

// Builtin returns the bundled dataset called name. size is the number of
// points per cluster for two_clusters and is ignored otherwise.
func Builtin(name string, size int, seed int64) (Dataset, error) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Reproducible toy data, not security-critical

	switch name {
	case NameTwoClusters:
		if size < 1 {
			return nil, errors.Wrapf(nn.ErrInvalidConfig, "dataset: two_clusters size must be >= 1, got %d", size)
		}
		return TwoClusters(size, rng), nil
	case NameXOR:
		return XOR(), nil
	case NameDogs:
		return Dogs(rng), nil
	case NameDogsBinary:
		return Dogs(rng).Binary(), nil
	case NamePrototypes:
		return Prototypes(), nil
	default:
		return nil, errors.Wrapf(nn.ErrInvalidConfig, "dataset: unknown dataset %q", name)
	}
}
