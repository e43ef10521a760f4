package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/dasaro/nn-teaching/internal/activation"
)

func mustNew(t *testing.T, cfg Config) *Network {
	t.Helper()
	n, err := New(cfg)
	require.NoError(t, err)
	return n
}

func assertNetsClose(t *testing.T, want, got *Network, delta float64) {
	t.Helper()
	require.Equal(t, want.Sizes(), got.Sizes())
	for l := 0; l < want.NumEdges(); l++ {
		assert.True(t, mat.EqualApprox(want.Weights(l), got.Weights(l), delta), "edge %d weights", l)
		assert.True(t, mat.EqualApprox(want.Biases(l), got.Biases(l), delta), "edge %d biases", l)
	}
}

func TestNew_Shapes(t *testing.T) {
	n := mustNew(t, Config{
		Sizes:       []int{4, 8, 3, 2},
		Activations: []activation.Kind{activation.KindLeakyReLU, activation.KindTanh, activation.KindSoftmax},
		Init:        Xavier(1),
	})

	assert.Equal(t, []int{4, 8, 3, 2}, n.Sizes())
	assert.Equal(t, 4, n.NumLayers())
	assert.Equal(t, 3, n.NumEdges())
	assert.Equal(t, 4, n.InputSize())
	assert.Equal(t, 2, n.OutputSize())
	assert.Equal(t, activation.KindSoftmax, n.OutputActivation())
	assert.Equal(t, activation.KindLeakyReLU, n.Activation(1).Kind())

	for l := 0; l < n.NumEdges(); l++ {
		r, c := n.Weights(l).Dims()
		assert.Equal(t, n.Sizes()[l], r, "edge %d rows", l)
		assert.Equal(t, n.Sizes()[l+1], c, "edge %d cols", l)
		assert.Equal(t, n.Sizes()[l+1], n.Biases(l).Len(), "edge %d bias", l)
	}
	assert.Equal(t, "4-8-3-2 [leaky_relu tanh softmax]", n.Architecture())
}

func TestNew_InvalidConfig(t *testing.T) {
	sig := activation.KindSigmoid
	tests := []struct {
		name string
		cfg  Config
	}{
		{"single layer", Config{Sizes: []int{3}, Activations: nil}},
		{"zero size", Config{Sizes: []int{2, 0, 1}, Activations: []activation.Kind{sig, sig}}},
		{"too wide", Config{Sizes: []int{2, MaxLayerSize + 1, 1}, Activations: []activation.Kind{sig, sig}}},
		{"too deep", Config{Sizes: []int{2, 2, 2, 2, 2, 2, 1}, Activations: []activation.Kind{sig, sig, sig, sig, sig, sig}}},
		{"activation count", Config{Sizes: []int{2, 2, 1}, Activations: []activation.Kind{sig}}},
		{"hidden softmax", Config{Sizes: []int{2, 2, 2}, Activations: []activation.Kind{activation.KindSoftmax, activation.KindSoftmax}}},
		{"single-unit softmax", Config{Sizes: []int{2, 1}, Activations: []activation.Kind{activation.KindSoftmax}}},
		{"unknown activation", Config{Sizes: []int{2, 1}, Activations: []activation.Kind{activation.Kind(9)}}},
		{"uniform without scale", Config{Sizes: []int{2, 1}, Activations: []activation.Kind{sig}, Init: Uniform(0, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestInit_SeedDeterminism(t *testing.T) {
	cfg := Config{
		Sizes:       []int{3, 5, 2},
		Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
		Init:        Xavier(7),
	}
	a := mustNew(t, cfg)
	b := mustNew(t, cfg)
	assert.True(t, a.Equal(b))

	cfg.Init.Seed = 8
	c := mustNew(t, cfg)
	assert.False(t, a.Equal(c))
}

func TestInit_XavierBound(t *testing.T) {
	n := mustNew(t, Config{
		Sizes:       []int{10, 6},
		Activations: []activation.Kind{activation.KindSigmoid},
		Init:        Xavier(3),
	})
	bound := 0.6123724356957945 // sqrt(6/16)
	stats := n.LayerStats(0)
	assert.GreaterOrEqual(t, stats.Min, -bound)
	assert.LessOrEqual(t, stats.Max, bound)
	assert.Greater(t, stats.Std, 0.0)
	for j := 0; j < 6; j++ {
		assert.Equal(t, 0.0, n.Biases(0).AtVec(j))
	}
}

func TestInit_Constant(t *testing.T) {
	n := mustNew(t, Config{
		Sizes:       []int{2, 3},
		Activations: []activation.Kind{activation.KindSigmoid},
		Init:        Constant(0.25, -1),
	})
	stats := n.LayerStats(0)
	assert.Equal(t, 0.25, stats.Min)
	assert.Equal(t, 0.25, stats.Max)
	assert.Equal(t, -1.0, n.Biases(0).AtVec(2))
}

func TestCloneAndCopyFrom(t *testing.T) {
	cfg := Config{
		Sizes:       []int{2, 3, 1},
		Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
		Init:        Uniform(0.5, 11),
	}
	n := mustNew(t, cfg)
	c := n.Clone()
	require.True(t, n.Equal(c))

	n.Weights(0).Set(0, 0, 42)
	assert.False(t, n.Equal(c), "clone must not share storage")

	require.NoError(t, n.CopyFrom(c))
	assert.True(t, n.Equal(c))

	other := mustNew(t, Config{
		Sizes:       []int{2, 4, 1},
		Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
	})
	assert.ErrorIs(t, n.CopyFrom(other), ErrShapeMismatch)
	assert.False(t, n.Equal(other))
}

func TestSetWeightsAndBiases(t *testing.T) {
	n := mustNew(t, Config{
		Sizes:       []int{2, 2},
		Activations: []activation.Kind{activation.KindSigmoid},
	})

	require.NoError(t, n.SetWeights(0, mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	assert.Equal(t, 3.0, n.Weights(0).At(1, 0))

	err := n.SetWeights(0, mat.NewDense(3, 2, nil))
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Want)
	assert.Equal(t, 3, se.Got)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	require.NoError(t, n.SetBiases(0, []float64{0.5, -0.5}))
	assert.Equal(t, -0.5, n.Biases(0).AtVec(1))
	assert.ErrorIs(t, n.SetBiases(0, []float64{1}), ErrShapeMismatch)

	assert.Error(t, n.SetWeights(5, mat.NewDense(2, 2, nil)))
}
