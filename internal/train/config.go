package train

import (
	"math"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/nn"
)

// Config holds the options of a training run.
type Config struct {
	// LearningRate is the initial step size. Must be > 0.
	LearningRate float64 `yaml:"learningRate"`

	// MomentumCoefficient enables momentum when non-nil and non-zero.
	// Must be in [0, 1).
	MomentumCoefficient *float64 `yaml:"momentumCoefficient"`

	// Shuffle visits the samples in a new seeded order every epoch.
	// Otherwise they are visited as provided.
	Shuffle bool `yaml:"shuffle"`

	// MaxEpochs bounds the run. Must be >= 1.
	MaxEpochs int `yaml:"maxEpochs"`

	// ConvergenceTarget is the epoch accuracy, in (0, 1], at which training stops.
	ConvergenceTarget float64 `yaml:"convergenceTarget"`

	// StagnationWindow is the number of epochs inspected by the monitor.
	// Zero keeps the monitor's own window.
	StagnationWindow int `yaml:"stagnationWindow"`

	// TargetLoss also stops training once the epoch loss is at or below it.
	// 0 disables.
	TargetLoss float64 `yaml:"targetLoss"`

	// Regularization, applied by every update. 0 disables each.
	WeightDecay float64 `yaml:"weightDecay"`
	GradClip    float64 `yaml:"gradClip"`
	WeightClamp float64 `yaml:"weightClamp"`

	// Learning-rate limits for adaptive adjustments. A zero max means no
	// upper limit.
	MinLearningRate float64 `yaml:"minLearningRate"`
	MaxLearningRate float64 `yaml:"maxLearningRate"`

	// Anti-stagnation perturbation: noise amplitude, fraction of weights
	// touched, and the learning-rate boost applied afterwards (never above
	// LearningRate).
	PerturbScale    float64 `yaml:"perturbScale"`
	PerturbFraction float64 `yaml:"perturbFraction"`
	PerturbBoost    float64 `yaml:"perturbBoost"`

	// Seed drives shuffling and perturbation noise.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a configuration that trains the bundled toy
// datasets.
func DefaultConfig() Config {
	return Config{
		LearningRate:      0.5,
		Shuffle:           true,
		MaxEpochs:         1000,
		ConvergenceTarget: 1,
		StagnationWindow:  5,
		MinLearningRate:   1e-3,
		MaxLearningRate:   2,
		PerturbScale:      0.01,
		PerturbFraction:   1,
		PerturbBoost:      1.5,
		Seed:              1,
	}
}

// Momentum returns the momentum coefficient, 0 when disabled.
func (c Config) Momentum() float64 {
	if c.MomentumCoefficient == nil {
		return 0
	}
	return *c.MomentumCoefficient
}

// WithMomentum returns a copy of c with the momentum coefficient set.
func (c Config) WithMomentum(coef float64) Config {
	c.MomentumCoefficient = &coef
	return c
}

// Validate checks the configuration. Errors wrap nn.ErrInvalidConfig.
func (c Config) Validate() error {
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0) {
		return invalidConfig("learning rate must be positive and finite, got %v", c.LearningRate)
	}
	if m := c.Momentum(); m < 0 || m >= 1 || math.IsNaN(m) {
		return invalidConfig("momentum coefficient must be in [0, 1), got %v", m)
	}
	if c.MaxEpochs < 1 {
		return invalidConfig("max epochs must be >= 1, got %d", c.MaxEpochs)
	}
	if !(c.ConvergenceTarget > 0 && c.ConvergenceTarget <= 1) {
		return invalidConfig("convergence target must be in (0, 1], got %v", c.ConvergenceTarget)
	}
	if c.StagnationWindow < 0 || c.StagnationWindow == 1 {
		return invalidConfig("stagnation window must be 0 or >= 2, got %d", c.StagnationWindow)
	}
	if c.TargetLoss < 0 || math.IsNaN(c.TargetLoss) {
		return invalidConfig("target loss must be >= 0, got %v", c.TargetLoss)
	}
	if c.MaxLearningRate > 0 && c.MinLearningRate > c.MaxLearningRate {
		return invalidConfig("min learning rate %v exceeds max %v", c.MinLearningRate, c.MaxLearningRate)
	}
	if c.LearningRate < c.MinLearningRate || (c.MaxLearningRate > 0 && c.LearningRate > c.MaxLearningRate) {
		return invalidConfig("learning rate %v outside [%v, %v]", c.LearningRate, c.MinLearningRate, c.MaxLearningRate)
	}
	if c.PerturbScale < 0 {
		return invalidConfig("perturb scale must be >= 0, got %v", c.PerturbScale)
	}
	if c.PerturbFraction < 0 || c.PerturbFraction > 1 {
		return invalidConfig("perturb fraction must be in [0, 1], got %v", c.PerturbFraction)
	}
	if c.PerturbBoost != 0 && c.PerturbBoost < 1 {
		return invalidConfig("perturb boost must be 0 or >= 1, got %v", c.PerturbBoost)
	}
	return nil
}

func invalidConfig(format string, args ...any) error {
	return errors.Wrapf(nn.ErrInvalidConfig, "train: "+format, args...)
}
