// Package train runs per-sample gradient descent on a feedforward network,
// steered by the convergence and stagnation monitor.
package train

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/optim"
)

// Status is the terminal state of a training run.
type Status int

// Terminal states.
const (
	StatusConverged Status = iota + 1
	StatusMaxEpochsReached
	StatusDiverged
	StatusInterrupted
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxEpochsReached:
		return "max_epochs_reached"
	case StatusDiverged:
		return "diverged"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// RunState is the mutable state of one training run. It is created by Train
// and never shared between runs.
type RunState struct {
	Epoch        int
	History      metrics.History
	LearningRate float64
	monitor.State
}

// Result describes a finished run.
type Result struct {
	Status            Status
	Epochs            int     // Epochs started, including a diverged one
	Accuracy          float64 // Accuracy of the last kept epoch
	Loss              float64 // Loss of the last kept epoch; +Inf if none was kept
	LastStableEpoch   int
	History           metrics.History
	FinalLearningRate float64
	Perturbations     int
	Diagnostics       Diagnostics
}

// Observer receives every epoch record together with the monitor's
// decision, before the decision is applied.
type Observer func(epoch metrics.Epoch, action monitor.Action)

// Trainer runs training with a fixed configuration. It holds no per-run
// state, so one Trainer may run several networks, including concurrently.
type Trainer struct {
	cfg      Config
	logger   *slog.Logger
	monitor  *monitor.Monitor
	observer Observer
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the diagnostics sink. Epoch summaries are logged at
// Debug, monitor actions at Info.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMonitor replaces the default monitor.
func WithMonitor(m *monitor.Monitor) Option {
	return func(t *Trainer) {
		if m != nil {
			t.monitor = m
		}
	}
}

// WithObserver registers a per-epoch callback.
func WithObserver(o Observer) Option {
	return func(t *Trainer) {
		t.observer = o
	}
}

// New creates a trainer. Without WithMonitor it uses monitor.DefaultConfig
// with the window set to cfg.StagnationWindow.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.monitor == nil {
		mcfg := monitor.DefaultConfig()
		if cfg.StagnationWindow > 0 {
			mcfg.Window = cfg.StagnationWindow
		}
		m, err := monitor.New(mcfg)
		if err != nil {
			return nil, err
		}
		t.monitor = m
	}
	return t, nil
}

// Train runs a default trainer configured with cfg.
func Train(ctx context.Context, net *nn.Network, ds dataset.Dataset, cfg Config) (Result, error) {
	t, err := New(cfg)
	if err != nil {
		return Result{}, err
	}
	return t.Train(ctx, net, ds)
}

// Config returns the trainer's configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Train trains net on ds in place until a terminal state is reached.
//
// On divergence the weights are restored to the end of the last stable epoch
// and the Result is returned together with a *DivergedError. When ctx is
// cancelled the run stops before the next epoch with StatusInterrupted and
// ctx.Err(). An invalid dataset is rejected before any update.
func (t *Trainer) Train(ctx context.Context, net *nn.Network, ds dataset.Dataset) (Result, error) {
	if err := ds.Validate(net.InputSize(), net.OutputSize()); err != nil {
		return Result{}, errors.Wrap(err, "train")
	}

	opt, err := optim.NewSGD(optim.SGDConfig{
		LR:          t.cfg.LearningRate,
		Momentum:    t.cfg.Momentum(),
		WeightDecay: t.cfg.WeightDecay,
		GradClip:    t.cfg.GradClip,
		WeightClamp: t.cfg.WeightClamp,
		Bounds:      optim.Bounds{Min: t.cfg.MinLearningRate, Max: t.cfg.MaxLearningRate},
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "train")
	}

	r := &run{
		Trainer:  t,
		net:      net,
		ds:       ds,
		opt:      opt,
		rng:      rand.New(rand.NewSource(t.cfg.Seed)), //nolint:gosec // Reproducible shuffling and noise, not security-critical
		snapshot: net.Clone(),
		tracker:  nn.NewActivityTracker(net),
		state:    RunState{LearningRate: opt.GetLR()},
	}
	return r.loop(ctx)
}

// run is one invocation of Trainer.Train.
type run struct {
	*Trainer
	net      *nn.Network
	ds       dataset.Dataset
	opt      *optim.SGD
	rng      *rand.Rand
	snapshot *nn.Network
	tracker  *nn.ActivityTracker
	state    RunState
	stable   int
}

func (r *run) loop(ctx context.Context) (Result, error) {
	r.logger.Debug("training started",
		"arch", r.net.Architecture(),
		"samples", len(r.ds),
		"lr", r.state.LearningRate,
		"momentum", r.cfg.Momentum(),
	)

	for r.state.Epoch < r.cfg.MaxEpochs {
		if err := ctx.Err(); err != nil {
			r.logger.Info("training interrupted", "epoch", r.state.Epoch)
			return r.finish(StatusInterrupted, err)
		}
		r.state.Epoch++

		ep, err := r.epoch()
		if err != nil {
			return Result{}, err
		}
		r.state.History = append(r.state.History, ep)

		action := r.monitor.Observe(r.state.History, &r.state.State)
		if r.observer != nil {
			r.observer(ep, action)
		}
		r.logger.Debug("epoch",
			"epoch", ep.Index,
			"accuracy", ep.Accuracy,
			"loss", ep.Loss,
			"lr", ep.LearningRate,
			"grad_norm", ep.GradNorm,
		)

		if action.Kind == monitor.ActionStop || !finite(ep.Loss) || !finite(ep.WeightNorm) {
			return r.diverged(ep)
		}
		if err := r.snapshot.CopyFrom(r.net); err != nil {
			return Result{}, errors.Wrap(err, "snapshot")
		}
		r.stable = ep.Index

		if r.converged(ep) {
			r.logger.Info("training converged", "epoch", ep.Index, "accuracy", ep.Accuracy, "loss", ep.Loss)
			return r.finish(StatusConverged, nil)
		}
		r.apply(action)
	}

	r.logger.Info("max epochs reached", "epochs", r.state.Epoch, "accuracy", r.lastAccuracy())
	return r.finish(StatusMaxEpochsReached, nil)
}

// epoch runs one pass over the dataset. A non-finite loss aborts the pass;
// the returned record then carries that loss.
func (r *run) epoch() (metrics.Epoch, error) {
	lr := r.opt.GetLR()
	counter := metrics.NewCounter(r.net.OutputActivation())
	lossKind := r.net.LossKind()
	r.tracker.Reset()

	var order []int
	if r.cfg.Shuffle {
		order = r.ds.Order(r.rng)
	} else {
		order = r.ds.Order(nil)
	}

	var gradSum float64
	for _, i := range order {
		s := r.ds[i]
		trace, err := nn.ForwardWith(r.net, s.Input, nn.ForwardOptions{Logger: r.logger})
		if err != nil {
			return metrics.Epoch{}, errors.Wrapf(err, "epoch %d", r.state.Epoch)
		}

		loss := nn.Loss(lossKind, trace.Output(), s.Target)
		if !finite(loss) {
			return metrics.Epoch{Index: r.state.Epoch, Loss: loss, LearningRate: lr, Total: counter.Total}, nil
		}
		counter.Add(trace.Output(), s.Target, loss)
		r.tracker.Observe(trace)

		report, err := r.opt.Step(r.net, trace, s.Target)
		if err != nil {
			return metrics.Epoch{}, errors.Wrapf(err, "epoch %d", r.state.Epoch)
		}
		gradSum += report.Norm()
	}

	return metrics.Epoch{
		Index:        r.state.Epoch,
		Accuracy:     counter.Accuracy(),
		Loss:         counter.MeanLoss(),
		LearningRate: lr,
		GradNorm:     gradSum / float64(counter.Total),
		WeightNorm:   r.net.WeightNorm(),
		DeadFraction: r.tracker.DeadFraction(),
		Correct:      counter.Correct,
		Total:        counter.Total,
	}, nil
}

func (r *run) converged(ep metrics.Epoch) bool {
	if ep.Accuracy >= r.cfg.ConvergenceTarget {
		return true
	}
	return r.cfg.TargetLoss > 0 && ep.Loss <= r.cfg.TargetLoss
}

// apply carries out a monitor action other than Stop.
func (r *run) apply(a monitor.Action) {
	switch a.Kind {
	case monitor.ActionAdjustLearningRate:
		before := r.opt.GetLR()
		r.state.LearningRate = r.opt.ScaleLR(a.Factor)
		r.logger.Info("learning rate adjusted",
			"epoch", r.state.Epoch,
			"reason", a.Reason,
			"from", before,
			"to", r.state.LearningRate,
		)

	case monitor.ActionPerturb:
		changed := nn.Perturb(r.net, r.rng, r.cfg.PerturbScale, r.cfg.PerturbFraction)
		r.opt.Reset()
		if lr := r.opt.GetLR(); r.cfg.PerturbBoost > 1 && lr < r.cfg.LearningRate {
			r.state.LearningRate = r.opt.SetLR(math.Min(lr*r.cfg.PerturbBoost, r.cfg.LearningRate))
		}
		r.logger.Info("anti-stagnation perturbation",
			"epoch", r.state.Epoch,
			"reason", a.Reason,
			"weights", changed,
			"lr", r.state.LearningRate,
		)
	}
}

func (r *run) diverged(ep metrics.Epoch) (Result, error) {
	if err := r.net.CopyFrom(r.snapshot); err != nil {
		return Result{}, errors.Wrap(err, "restore snapshot")
	}
	r.logger.Info("training diverged", "epoch", ep.Index, "loss", ep.Loss, "restored", r.stable)
	return r.finish(StatusDiverged, &DivergedError{Epoch: ep.Index, LastStableEpoch: r.stable, Loss: ep.Loss})
}

// finish builds the Result for status, attaches diagnostics of the kept
// weights and returns cause unchanged.
func (r *run) finish(status Status, cause error) (Result, error) {
	res := r.result(status)
	d, err := diagnose(r.net, r.ds, r.state.History[:r.stable], r.monitor.Config().Window)
	if err != nil {
		return res, errors.Wrap(err, "diagnostics")
	}
	res.Diagnostics = d

	r.logger.Info("training summary",
		"status", status,
		"best_accuracy", d.BestAccuracy,
		"loss_mean", d.LossMean,
		"loss_std", d.LossStd,
		"symmetry", d.Symmetry,
		"max_abs_weight", d.MaxAbsWeight,
		"prediction_spread", d.PredictionSpread,
	)
	return res, cause
}

func (r *run) lastAccuracy() float64 {
	if r.stable == 0 {
		return 0
	}
	return r.state.History[r.stable-1].Accuracy
}

func (r *run) result(status Status) Result {
	res := Result{
		Status:            status,
		Epochs:            r.state.Epoch,
		Loss:              math.Inf(1),
		LastStableEpoch:   r.stable,
		History:           r.state.History,
		FinalLearningRate: r.opt.GetLR(),
		Perturbations:     r.state.Perturbations,
	}
	if r.stable > 0 {
		kept := r.state.History[r.stable-1]
		res.Accuracy = kept.Accuracy
		res.Loss = kept.Loss
	}
	return res
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
