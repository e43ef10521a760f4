// Package search runs a grid of independent training trials and ranks them.
//
// Every trial builds its own network and trainer, so trials share no mutable
// state and run as a fork-join over a worker pool. Results are ranked the
// same way whatever the execution order.
package search

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/parallel"
	"github.com/dasaro/nn-teaching/internal/train"
)

// Options controls how trials are executed.
type Options struct {
	// Workers is the number of trials run at once. 0 selects the CPU count;
	// 1 runs trials sequentially.
	Workers int

	// EpochBudget caps the epochs of every trial. 0 keeps the base MaxEpochs.
	EpochBudget int

	// Logger receives one record per finished trial. Nil discards.
	Logger *slog.Logger
}

// TrialResult is the immutable outcome of one trial.
type TrialResult struct {
	ID           uuid.UUID
	Trial        Trial
	Architecture string
	Status       train.Status
	Accuracy     float64
	Epochs       int
	Loss         float64

	Perturbations     int
	FinalLearningRate float64
}

// Perfect reports whether the trial classified every sample correctly.
func (r TrialResult) Perfect() bool {
	return r.Accuracy >= 1
}

// Search runs one trial per grid point on ds and returns the results ranked
// best first: accuracy descending, then fewer epochs, then lower loss, then
// grid order.
//
// Every trial configuration is validated before the first trial starts.
// A diverged trial is reported through its Status, not as an error.
func Search(ctx context.Context, base Base, ds dataset.Dataset, grid Grid, opts Options) ([]TrialResult, error) {
	if err := base.Network.Validate(); err != nil {
		return nil, errors.Wrap(err, "search: base network")
	}
	if opts.EpochBudget < 0 {
		return nil, errors.Wrapf(nn.ErrInvalidConfig, "search: epoch budget must be >= 0, got %d", opts.EpochBudget)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var opt []train.Option
	if base.Monitor != (monitor.Config{}) {
		m, err := monitor.New(base.Monitor)
		if err != nil {
			return nil, errors.Wrap(err, "search: monitor")
		}
		opt = append(opt, train.WithMonitor(m))
	}

	trials := grid.Expand(base)
	jobs := make([]job, len(trials))
	for i, tr := range trials {
		netCfg, trainCfg := tr.configs(base, opts.EpochBudget)
		if err := netCfg.Validate(); err != nil {
			return nil, errors.Wrapf(err, "search: trial %s", tr.Key())
		}
		trainer, err := train.New(trainCfg, append(opt, train.WithLogger(logger.With("trial", tr.Index)))...)
		if err != nil {
			return nil, errors.Wrapf(err, "search: trial %s", tr.Key())
		}
		if err := ds.Validate(netCfg.Sizes[0], netCfg.Sizes[len(netCfg.Sizes)-1]); err != nil {
			return nil, errors.Wrap(err, "search")
		}
		jobs[i] = job{trial: tr, net: netCfg, trainer: trainer}
	}

	pool := parallel.Workers(opts.Workers)
	logger.Info("search started", "trials", len(jobs), "workers", pool.NumWorkers)

	results, err := parallel.Map(ctx, jobs, func(ctx context.Context, _ int, j job) (TrialResult, error) {
		res, err := j.run(ctx, ds)
		if err != nil {
			return res, err
		}
		logger.Info("trial finished",
			"trial", j.trial.Index,
			"setting", j.trial.Setting(),
			"seed", j.trial.Seed,
			"status", res.Status,
			"accuracy", res.Accuracy,
			"epochs", res.Epochs,
			"perturbations", res.Perturbations,
		)
		return res, nil
	}, pool)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	Rank(results)
	return results, nil
}

// job is a fully validated trial ready to run.
type job struct {
	trial   Trial
	net     nn.Config
	trainer *train.Trainer
}

func (j job) run(ctx context.Context, ds dataset.Dataset) (TrialResult, error) {
	net, err := nn.New(j.net)
	if err != nil {
		return TrialResult{}, err
	}

	res, err := j.trainer.Train(ctx, net, ds)
	if err != nil && !errors.Is(err, train.ErrDiverged) {
		return TrialResult{}, errors.Wrapf(err, "trial %d", j.trial.Index)
	}
	return TrialResult{
		ID:           j.trial.ID(),
		Trial:        j.trial,
		Architecture: net.Architecture(),
		Status:       res.Status,
		Accuracy:     res.Accuracy,
		Epochs:       res.Epochs,
		Loss:         res.Loss,

		Perturbations:     res.Perturbations,
		FinalLearningRate: res.FinalLearningRate,
	}, nil
}

// Rank sorts results best first in place.
func Rank(results []TrialResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		if a.Epochs != b.Epochs {
			return a.Epochs < b.Epochs
		}
		if a.Loss != b.Loss {
			return a.Loss < b.Loss
		}
		return a.Trial.Index < b.Trial.Index
	})
}
