// Package dataset provides labelled samples and the bundled toy datasets.
//
// Example usage:
//
//	ds, err := dataset.Builtin(dataset.NameDogs, 0, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trainSet, validation, _ := ds.Split(0.8, rand.New(rand.NewSource(1)))
package dataset

import (
	"math/rand"

	"github.com/dasaro/nn-teaching/internal/dataset"
)

// Sample is one labelled input.
type Sample = dataset.Sample

// Dataset is an ordered list of samples.
type Dataset = dataset.Dataset

// Names of the bundled datasets.
const (
	NameTwoClusters = dataset.NameTwoClusters
	NameXOR         = dataset.NameXOR
	NameDogs        = dataset.NameDogs
	NameDogsBinary  = dataset.NameDogsBinary
	NamePrototypes  = dataset.NamePrototypes
)

// Builtin returns a bundled dataset by name.
func Builtin(name string, size int, seed int64) (Dataset, error) {
	return dataset.Builtin(name, size, seed)
}

// TwoClusters returns 2*n separable points around (-1,-1) and (1,1).
func TwoClusters(n int, rng *rand.Rand) Dataset {
	return dataset.TwoClusters(n, rng)
}

// XOR returns the four XOR samples.
func XOR() Dataset {
	return dataset.XOR()
}

// Dogs returns the shuffled dog/cat/object feature dataset with one-hot
// targets.
func Dogs(rng *rand.Rand) Dataset {
	return dataset.Dogs(rng)
}

// OneHot returns an n-element vector with a 1 at class.
func OneHot(class, n int) []float64 {
	return dataset.OneHot(class, n)
}

// Prototypes returns one clear example of each kind in the dog dataset.
func Prototypes() Dataset {
	return dataset.Prototypes()
}
