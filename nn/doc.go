// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides a small fully connected feedforward network.
//
// # Overview
//
// This package contains:
//   - Network: layer sizes, weights, biases and per-layer activations
//   - Forward: full activation trace for one input
//   - Backward: gradients from a trace and an in-place parameter update
//   - Momentum: optional velocity state for Backward
//   - Initialization: Xavier, Uniform, Constant
//   - Diagnostics: weight statistics, dead unit tracking, perturbation
//
// # Basic Usage
//
//	import "github.com/dasaro/nn-teaching/nn"
//
//	func main() {
//	    net, err := nn.New(nn.Config{
//	        Sizes:       []int{2, 4, 1},
//	        Activations: []nn.Kind{nn.Tanh, nn.Sigmoid},
//	        Init:        nn.Xavier(42),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    trace, _ := nn.Forward(net, []float64{0.5, -1})
//	    _, _ = nn.Backward(net, trace, []float64{1}, nn.Update{LearningRate: 0.1})
//	}
//
// # Activations
//
// Hidden layers accept Sigmoid, LeakyReLU and Tanh. Softmax is only valid
// on the output layer, where it pairs with cross-entropy loss.
//
// # Loss Functions
//
// The loss follows the output activation:
//
//	sigmoid  -> binary cross-entropy
//	softmax  -> categorical cross-entropy
//	others   -> squared error
//
// Backward uses the matching output error, so the gradient of a sigmoid or
// softmax output is simply prediction - target.
package nn
