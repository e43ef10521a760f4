// Package nn implements a small fully connected feedforward network trained
// with stochastic gradient descent.
//
// This package provides:
//   - Network: layer sizes, per-edge weight matrices, per-layer biases and
//     activation functions
//   - Forward: computes the full activation trace for one input
//   - Backward: computes gradients from a trace and updates parameters,
//     optionally with momentum
//   - Momentum: velocity state shadowing every weight and bias
//   - Loss, weight statistics and perturbation helpers
//
// Weights are stored source-major: the matrix for the edge from layer l to
// layer l+1 has Sizes()[l] rows and Sizes()[l+1] columns, so the
// pre-activation of layer l+1 is aᵀW + b.
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/dasaro/nn-teaching/internal/activation"
)

// Architecture limits. The engine targets small teaching-sized topologies.
const (
	MaxHiddenLayers = 4
	MaxLayerSize    = 256
)

// Config describes a network to construct.
type Config struct {
	// Sizes lists the unit count of every layer: input, hidden..., output.
	Sizes []int

	// Activations holds one kind per non-input layer (len(Sizes)-1 entries).
	// Softmax is only accepted on the output layer.
	Activations []activation.Kind

	// LeakyAlpha is the negative slope for leaky ReLU layers.
	// Zero selects activation.DefaultLeakyAlpha.
	LeakyAlpha float64

	// Init selects the initial weights and biases.
	Init Init
}

// Validate checks the architecture before any allocation.
func (c Config) Validate() error {
	if len(c.Sizes) < 2 {
		return invalidConfig("need at least input and output layers, got %d layers", len(c.Sizes))
	}
	if hidden := len(c.Sizes) - 2; hidden > MaxHiddenLayers {
		return invalidConfig("%d hidden layers exceeds limit of %d", hidden, MaxHiddenLayers)
	}
	for i, n := range c.Sizes {
		if n <= 0 || n > MaxLayerSize {
			return invalidConfig("layer %d size must be 1-%d, got %d", i, MaxLayerSize, n)
		}
	}
	if len(c.Activations) != len(c.Sizes)-1 {
		return invalidConfig("need %d activations, got %d", len(c.Sizes)-1, len(c.Activations))
	}
	last := len(c.Activations) - 1
	for i, k := range c.Activations {
		if _, err := activation.New(k, c.LeakyAlpha); err != nil {
			return invalidConfig("layer %d: %v", i+1, err)
		}
		if k == activation.KindSoftmax && i != last {
			return invalidConfig("layer %d: softmax is only valid on the output layer", i+1)
		}
	}
	if c.Activations[last] == activation.KindSoftmax && c.Sizes[len(c.Sizes)-1] < 2 {
		return invalidConfig("softmax output needs at least 2 units")
	}
	return c.Init.validate()
}

// Network is a feedforward network with a fixed architecture.
//
// A Network is mutated in place by Backward and Perturb. It is not safe for
// concurrent use; each training run owns its network exclusively.
type Network struct {
	sizes   []int
	weights []*mat.Dense    // weights[l]: sizes[l] x sizes[l+1]
	biases  []*mat.VecDense // biases[l]: sizes[l+1]
	acts    []activation.Func
}

// New creates a network from cfg and initializes its parameters.
func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		sizes:   append([]int(nil), cfg.Sizes...),
		weights: make([]*mat.Dense, len(cfg.Sizes)-1),
		biases:  make([]*mat.VecDense, len(cfg.Sizes)-1),
		acts:    make([]activation.Func, len(cfg.Sizes)-1),
	}
	for l := range n.weights {
		n.weights[l] = mat.NewDense(n.sizes[l], n.sizes[l+1], nil)
		n.biases[l] = mat.NewVecDense(n.sizes[l+1], nil)
		f, err := activation.New(cfg.Activations[l], cfg.LeakyAlpha)
		if err != nil {
			return nil, invalidConfig("layer %d: %v", l+1, err)
		}
		n.acts[l] = f
	}

	cfg.Init.apply(n)
	return n, nil
}

// Sizes returns a copy of the layer sizes.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// NumLayers returns the number of layers including the input layer.
func (n *Network) NumLayers() int {
	return len(n.sizes)
}

// InputSize returns the number of input units.
func (n *Network) InputSize() int {
	return n.sizes[0]
}

// OutputSize returns the number of output units.
func (n *Network) OutputSize() int {
	return n.sizes[len(n.sizes)-1]
}

// Activation returns the activation of non-input layer l (1-based, matching
// trace indices).
func (n *Network) Activation(l int) activation.Func {
	return n.acts[l-1]
}

// OutputActivation returns the activation kind of the output layer.
func (n *Network) OutputActivation() activation.Kind {
	return n.acts[len(n.acts)-1].Kind()
}

// Weights returns the weight matrix of edge l (from layer l to layer l+1).
// The returned matrix is the live parameter; callers must not modify it
// while a training run is in progress.
func (n *Network) Weights(l int) *mat.Dense {
	return n.weights[l]
}

// Biases returns the bias vector of layer l+1.
func (n *Network) Biases(l int) *mat.VecDense {
	return n.biases[l]
}

// NumEdges returns the number of weight matrices.
func (n *Network) NumEdges() int {
	return len(n.weights)
}

// SetWeights replaces the weights of edge l. w must have Sizes()[l] rows and
// Sizes()[l+1] columns.
func (n *Network) SetWeights(l int, w mat.Matrix) error {
	if l < 0 || l >= len(n.weights) {
		return fmt.Errorf("nn: edge %d out of range [0, %d)", l, len(n.weights))
	}
	r, c := w.Dims()
	if r != n.sizes[l] {
		return shapeErr("set weights", "rows", l, n.sizes[l], r)
	}
	if c != n.sizes[l+1] {
		return shapeErr("set weights", "cols", l, n.sizes[l+1], c)
	}
	n.weights[l].Copy(w)
	return nil
}

// SetBiases replaces the biases of layer l+1.
func (n *Network) SetBiases(l int, b []float64) error {
	if l < 0 || l >= len(n.biases) {
		return fmt.Errorf("nn: edge %d out of range [0, %d)", l, len(n.biases))
	}
	if len(b) != n.sizes[l+1] {
		return shapeErr("set biases", "bias", l, n.sizes[l+1], len(b))
	}
	n.biases[l].CopyVec(mat.NewVecDense(len(b), append([]float64(nil), b...)))
	return nil
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{
		sizes:   append([]int(nil), n.sizes...),
		weights: make([]*mat.Dense, len(n.weights)),
		biases:  make([]*mat.VecDense, len(n.biases)),
		acts:    append([]activation.Func(nil), n.acts...),
	}
	for l := range n.weights {
		c.weights[l] = mat.DenseCopyOf(n.weights[l])
		c.biases[l] = mat.VecDenseCopyOf(n.biases[l])
	}
	return c
}

// CopyFrom overwrites the parameters of n with those of src. Both networks
// must share the same layer sizes.
func (n *Network) CopyFrom(src *Network) error {
	if err := n.sameShape("copy", src.sizes); err != nil {
		return err
	}
	for l := range n.weights {
		n.weights[l].Copy(src.weights[l])
		n.biases[l].CopyVec(src.biases[l])
	}
	return nil
}

// Equal reports whether both networks have identical sizes and parameters.
func (n *Network) Equal(o *Network) bool {
	if n.sameShape("equal", o.sizes) != nil {
		return false
	}
	for l := range n.weights {
		if !mat.Equal(n.weights[l], o.weights[l]) || !mat.Equal(n.biases[l], o.biases[l]) {
			return false
		}
	}
	return true
}

// Architecture returns a printable summary such as "4-8-2 [leaky_relu softmax]".
func (n *Network) Architecture() string {
	s := ""
	for i, size := range n.sizes {
		if i > 0 {
			s += "-"
		}
		s += fmt.Sprint(size)
	}
	kinds := make([]string, len(n.acts))
	for i, f := range n.acts {
		kinds[i] = f.Kind().String()
	}
	return fmt.Sprintf("%s %v", s, kinds)
}

func (n *Network) sameShape(op string, sizes []int) error {
	if len(sizes) != len(n.sizes) {
		return shapeErr(op, "layer count", -1, len(n.sizes), len(sizes))
	}
	for i := range sizes {
		if sizes[i] != n.sizes[i] {
			return shapeErr(op, "layer size", i, n.sizes[i], sizes[i])
		}
	}
	return nil
}
