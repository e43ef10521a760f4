// Package optim implements the gradient-descent stepper used to train
// feedforward networks.
//
// This package provides:
//   - Optimizer interface: one update per training sample
//   - SGD: stochastic gradient descent with optional momentum
//   - Bounds: learning-rate limits applied by adaptive control
//
// Example usage:
//
//	opt, err := optim.NewSGD(optim.SGDConfig{LR: 0.5, Momentum: 0.9})
//	if err != nil {
//	    return err
//	}
//
//	for _, s := range samples {
//	    trace, err := nn.Forward(net, s.Input)
//	    if err != nil {
//	        return err
//	    }
//	    if _, err := opt.Step(net, trace, s.Target); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"math"

	"github.com/dasaro/nn-teaching/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers update network parameters in place from a forward trace and the
// expected output of that trace.
type Optimizer interface {
	// Step backpropagates the error of trace against target and applies one
	// update to net.
	Step(net *nn.Network, trace *nn.Trace, target []float64) (nn.GradientReport, error)

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR changes the learning rate, clamped to the optimizer's bounds, and
	// returns the value actually set.
	SetLR(lr float64) float64

	// Reset clears any state accumulated across steps.
	Reset()
}

// Bounds limits the learning rate. A zero Max means no upper limit.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp returns lr limited to b.
func (b Bounds) Clamp(lr float64) float64 {
	if lr < b.Min {
		lr = b.Min
	}
	if b.Max > 0 && lr > b.Max {
		lr = b.Max
	}
	return lr
}

func (b Bounds) validate() error {
	if b.Min < 0 || math.IsNaN(b.Min) {
		return invalidConfig("min learning rate must be >= 0, got %v", b.Min)
	}
	if b.Max < 0 || math.IsNaN(b.Max) {
		return invalidConfig("max learning rate must be >= 0, got %v", b.Max)
	}
	if b.Max > 0 && b.Min > b.Max {
		return invalidConfig("min learning rate %v exceeds max %v", b.Min, b.Max)
	}
	return nil
}
