// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers used to train nn networks.
//
// Training applies one update per sample (online learning):
//
//	opt, _ := optim.NewSGD(optim.SGDConfig{LR: 0.5, Momentum: 0.9})
//	for _, s := range samples {
//	    trace, _ := nn.Forward(net, s.Input)
//	    _, _ = opt.Step(net, trace, s.Target)
//	}
package optim

import (
	"github.com/dasaro/nn-teaching/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Bounds limits the learning rate an optimizer accepts.
type Bounds = optim.Bounds

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer, err := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.5,
//	    Momentum: 0.9,
//	    Bounds:   optim.Bounds{Min: 1e-3, Max: 2},
//	})
func NewSGD(cfg SGDConfig) (*SGD, error) {
	return optim.NewSGD(cfg)
}
