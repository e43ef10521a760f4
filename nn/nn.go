// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/dasaro/nn-teaching/internal/activation"
	"github.com/dasaro/nn-teaching/internal/nn"
)

// Errors

var (
	// ErrShapeMismatch reports an input, target or state that does not match
	// the network architecture.
	ErrShapeMismatch = nn.ErrShapeMismatch

	// ErrInvalidConfig reports a configuration rejected before any computation.
	ErrInvalidConfig = nn.ErrInvalidConfig
)

// ShapeError carries the details of a size disagreement.
type ShapeError = nn.ShapeError

// Activations

// Kind identifies an activation function.
type Kind = activation.Kind

// Supported activations.
const (
	Sigmoid   = activation.KindSigmoid
	LeakyReLU = activation.KindLeakyReLU
	Tanh      = activation.KindTanh
	Softmax   = activation.KindSoftmax
)

// DefaultLeakyAlpha is the negative slope used when Config.LeakyAlpha is 0.
const DefaultLeakyAlpha = activation.DefaultLeakyAlpha

// ParseKind converts a name such as "leaky_relu" into a Kind.
func ParseKind(s string) (Kind, error) {
	return activation.ParseKind(s)
}

// Network

// Network is a fully connected feedforward network.
type Network = nn.Network

// Config describes a network to construct.
type Config = nn.Config

// New validates cfg and builds an initialized network.
//
// Example:
//
//	net, err := nn.New(nn.Config{
//	    Sizes:       []int{4, 6, 2},
//	    Activations: []nn.Kind{nn.LeakyReLU, nn.Softmax},
//	    Init:        nn.Xavier(1),
//	})
func New(cfg Config) (*Network, error) {
	return nn.New(cfg)
}

// Initialization

// Init is a weight initialization policy.
type Init = nn.Init

// Xavier returns a seeded Xavier/Glorot uniform policy with zero biases.
func Xavier(seed int64) Init {
	return nn.Xavier(seed)
}

// Uniform returns a seeded U(-scale, +scale) policy with zero biases.
func Uniform(scale float64, seed int64) Init {
	return nn.Uniform(scale, seed)
}

// Constant sets every weight to w and every bias to b.
func Constant(w, b float64) Init {
	return nn.Constant(w, b)
}

// Forward and backward passes

// Trace holds the activations of every layer for one input.
type Trace = nn.Trace

// ForwardOptions configures a forward pass.
type ForwardOptions = nn.ForwardOptions

// Forward runs input through net and returns the activation trace.
func Forward(net *Network, input []float64) (*Trace, error) {
	return nn.Forward(net, input)
}

// ForwardWith is Forward with diagnostics options.
func ForwardWith(net *Network, input []float64, opts ForwardOptions) (*Trace, error) {
	return nn.ForwardWith(net, input, opts)
}

// Predict returns only the output activations for input.
func Predict(net *Network, input []float64) ([]float64, error) {
	return nn.Predict(net, input)
}

// Update configures how Backward applies gradients.
type Update = nn.Update

// GradientReport summarizes the gradients applied by Backward.
type GradientReport = nn.GradientReport

// LayerGradient summarizes the gradient of one edge.
type LayerGradient = nn.LayerGradient

// Backward backpropagates the error of trace against target and updates
// net in place.
//
// Example:
//
//	trace, _ := nn.Forward(net, x)
//	report, err := nn.Backward(net, trace, y, nn.Update{
//	    LearningRate: 0.5,
//	    Momentum:     nn.NewMomentum(0.9),
//	})
func Backward(net *Network, trace *Trace, target []float64, u Update) (GradientReport, error) {
	return nn.Backward(net, trace, target, u)
}

// Momentum is velocity state shadowing every weight and bias.
type Momentum = nn.Momentum

// NewMomentum creates empty momentum state. Buffers are allocated on the
// first Backward call.
func NewMomentum(coefficient float64) *Momentum {
	return nn.NewMomentum(coefficient)
}

// Loss

// LossKind identifies a loss function.
type LossKind = nn.LossKind

// Loss functions.
const (
	BinaryCrossEntropy = nn.LossBinaryCrossEntropy
	CrossEntropy       = nn.LossCrossEntropy
	SquaredError       = nn.LossSquaredError
)

// LossFor returns the loss paired with an output activation.
func LossFor(out Kind) LossKind {
	return nn.LossFor(out)
}

// Loss computes the per-sample loss of prediction against target.
func Loss(kind LossKind, prediction, target []float64) float64 {
	return nn.Loss(kind, prediction, target)
}

// Diagnostics

// WeightStats summarizes a set of parameters.
type WeightStats = nn.WeightStats

// ActivityTracker counts dead hidden units over an epoch.
type ActivityTracker = nn.ActivityTracker

// NewActivityTracker creates a tracker for the hidden layers of net.
func NewActivityTracker(net *Network) *ActivityTracker {
	return nn.NewActivityTracker(net)
}

// Perturb adds U(-scale/2, +scale/2) noise to each weight of net with
// probability fraction and returns how many weights changed.
func Perturb(net *Network, rng *rand.Rand, scale, fraction float64) int {
	return nn.Perturb(net, rng, scale, fraction)
}

// PredictionSpread returns the standard deviation of the first output over
// inputs. A value near zero means the network ignores its input.
func PredictionSpread(net *Network, inputs [][]float64) (float64, error) {
	return nn.PredictionSpread(net, inputs)
}
