package optim

import (
	"math"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/nn"
)

// SGD implements per-sample stochastic gradient descent with optional
// momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity - lr * gradient
//	param = param + velocity
//
// The velocity state is created lazily on the first step and is bound to the
// network it was first used with.
type SGD struct {
	cfg      SGDConfig
	lr       float64
	momentum *nn.Momentum
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Initial learning rate (default: 0.01)
	Momentum float64 // Momentum coefficient in [0, 1); 0 disables momentum

	WeightDecay float64 // L2 penalty added to weight gradients; 0 disables
	GradClip    float64 // Element-wise gradient clip; 0 disables
	WeightClamp float64 // Post-update weight clamp; 0 disables

	Bounds Bounds // Limits applied by SetLR
}

// Validate checks the configuration. Errors wrap nn.ErrInvalidConfig.
func (c SGDConfig) Validate() error {
	if !(c.LR > 0) || math.IsInf(c.LR, 0) {
		return invalidConfig("learning rate must be positive and finite, got %v", c.LR)
	}
	if c.Momentum < 0 || c.Momentum >= 1 || math.IsNaN(c.Momentum) {
		return invalidConfig("momentum must be in [0, 1), got %v", c.Momentum)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"weight decay", c.WeightDecay},
		{"gradient clip", c.GradClip},
		{"weight clamp", c.WeightClamp},
	} {
		if f.v < 0 || math.IsNaN(f.v) {
			return invalidConfig("%s must be >= 0, got %v", f.name, f.v)
		}
	}
	return c.Bounds.validate()
}

// NewSGD creates a new SGD optimizer.
//
// A zero LR defaults to 0.01. The initial learning rate is clamped to
// cfg.Bounds.
func NewSGD(cfg SGDConfig) (*SGD, error) {
	if cfg.LR == 0 {
		cfg.LR = 0.01
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SGD{cfg: cfg, lr: cfg.Bounds.Clamp(cfg.LR)}
	if cfg.Momentum > 0 {
		s.momentum = nn.NewMomentum(cfg.Momentum)
	}
	return s, nil
}

// Step performs a single optimization step for one sample.
func (s *SGD) Step(net *nn.Network, trace *nn.Trace, target []float64) (nn.GradientReport, error) {
	report, err := nn.Backward(net, trace, target, nn.Update{
		LearningRate: s.lr,
		Momentum:     s.momentum,
		WeightDecay:  s.cfg.WeightDecay,
		GradClip:     s.cfg.GradClip,
		WeightClamp:  s.cfg.WeightClamp,
	})
	if err != nil {
		return report, errors.Wrap(err, "sgd step")
	}
	return report, nil
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR sets the learning rate, clamped to the configured bounds.
func (s *SGD) SetLR(lr float64) float64 {
	s.lr = s.cfg.Bounds.Clamp(lr)
	return s.lr
}

// ScaleLR multiplies the learning rate by factor, clamped to the configured
// bounds, and returns the new value.
func (s *SGD) ScaleLR(factor float64) float64 {
	return s.SetLR(s.lr * factor)
}

// Momentum returns the momentum state, or nil when momentum is disabled.
func (s *SGD) Momentum() *nn.Momentum {
	return s.momentum
}

// Reset zeroes the momentum velocities, if any.
func (s *SGD) Reset() {
	if s.momentum != nil {
		s.momentum.Reset()
	}
}

var _ Optimizer = (*SGD)(nil)

func invalidConfig(format string, args ...any) error {
	return errors.Wrapf(nn.ErrInvalidConfig, "sgd: "+format, args...)
}
