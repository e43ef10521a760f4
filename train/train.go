// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train trains nn networks with per-sample gradient descent.
//
// # Overview
//
// A run processes the dataset once per epoch, one update per sample. After
// every epoch a monitor inspects the history and may adjust the learning
// rate, perturb stagnant weights or stop a diverging run. A run ends as
// Converged, MaxEpochsReached, Diverged or Interrupted.
//
// # Basic Usage
//
//	net, _ := nn.New(nn.Config{
//	    Sizes:       []int{2, 1},
//	    Activations: []nn.Kind{nn.Sigmoid},
//	    Init:        nn.Xavier(7),
//	})
//
//	cfg := train.DefaultConfig().WithMomentum(0.9)
//	res, err := train.Train(ctx, net, ds, cfg)
//	if errors.Is(err, train.ErrDiverged) {
//	    // net holds the weights of the last stable epoch
//	}
package train

import (
	"context"

	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/train"
)

// Errors

// ErrDiverged is matched by every DivergedError.
var ErrDiverged = train.ErrDiverged

// DivergedError reports the epoch that diverged and the epoch restored.
type DivergedError = train.DivergedError

// Configuration

// Config holds the training hyperparameters.
type Config = train.Config

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return train.DefaultConfig()
}

// Results

// Status is the terminal state of a run.
type Status = train.Status

// Terminal states.
const (
	StatusConverged        = train.StatusConverged
	StatusMaxEpochsReached = train.StatusMaxEpochsReached
	StatusDiverged         = train.StatusDiverged
	StatusInterrupted      = train.StatusInterrupted
)

// Result describes a finished run.
type Result = train.Result

// Epoch is the record of one completed epoch.
type Epoch = metrics.Epoch

// History is the ordered list of epoch records.
type History = metrics.History

// Trainer

// Trainer runs training with a fixed configuration.
type Trainer = train.Trainer

// Option configures a Trainer.
type Option = train.Option

// Observer is called after every epoch with the record and the monitor's
// decision.
type Observer = train.Observer

// New creates a Trainer.
//
// Example:
//
//	tr, err := train.New(cfg,
//	    train.WithLogger(slog.Default()),
//	    train.WithObserver(func(ep train.Epoch, a train.Action) {
//	        fmt.Println(ep.Index, ep.Loss, a.Kind)
//	    }),
//	)
func New(cfg Config, opts ...Option) (*Trainer, error) {
	return train.New(cfg, opts...)
}

// WithLogger, WithMonitor and WithObserver set optional Trainer collaborators.
var (
	WithLogger   = train.WithLogger
	WithMonitor  = train.WithMonitor
	WithObserver = train.WithObserver
)

// Train trains net on ds with a one-shot Trainer.
func Train(ctx context.Context, net *nn.Network, ds dataset.Dataset, cfg Config) (Result, error) {
	return train.Train(ctx, net, ds, cfg)
}

// Evaluate returns the accuracy and mean loss of net on ds without training.
func Evaluate(net *nn.Network, ds dataset.Dataset) (accuracy, loss float64, err error) {
	return train.Evaluate(net, ds)
}

// Monitor

// Monitor decides the control action after every epoch.
type Monitor = monitor.Monitor

// MonitorConfig holds the monitor thresholds.
type MonitorConfig = monitor.Config

// Action is a monitor decision.
type Action = monitor.Action

// Monitor actions.
const (
	ActionNone               = monitor.ActionNone
	ActionAdjustLearningRate = monitor.ActionAdjustLearningRate
	ActionPerturb            = monitor.ActionPerturb
	ActionStop               = monitor.ActionStop
)

// DefaultMonitorConfig returns the default monitor thresholds.
func DefaultMonitorConfig() MonitorConfig {
	return monitor.DefaultConfig()
}

// PassiveMonitorConfig returns a monitor that only stops diverged runs.
func PassiveMonitorConfig() MonitorConfig {
	return monitor.PassiveConfig()
}

// NewMonitor validates cfg and creates a Monitor.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	return monitor.New(cfg)
}
