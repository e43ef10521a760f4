// Package monitor implements the per-epoch convergence and stagnation
// heuristics that steer a training run.
//
// A Monitor inspects the epoch history after every epoch and returns at most
// one Action. Rules are evaluated in priority order and the first rule that
// produces an action wins:
//
//  1. Non-finite loss: Stop.
//  2. Stagnation: accuracy gained no more than Epsilon over the last Window
//     epochs. The stagnation counter grows by one per stagnant epoch; once it
//     exceeds StagnationThreshold (or, while stagnant, too many hidden units
//     are dead) the monitor asks for a Perturb and resets the counter.
//  3. Smooth descent: the last Window loss deltas are all negative and the
//     mean relative decrease exceeds ReferenceRate: raise the learning rate.
//  4. Oscillation: at least OscillationFlips sign flips among the last Window
//     loss deltas: lower the learning rate.
//
// The heuristics were tuned on small toy datasets. Every threshold lives in
// Config.
package monitor

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/nn"
)

// ActionKind identifies what the training controller should do next.
type ActionKind int

// Monitor actions.
const (
	ActionNone ActionKind = iota
	ActionAdjustLearningRate
	ActionPerturb
	ActionStop
)

// String returns the name of the action.
func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionAdjustLearningRate:
		return "adjust_lr"
	case ActionPerturb:
		return "perturb"
	case ActionStop:
		return "stop"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is the monitor's decision for one epoch.
type Action struct {
	Kind   ActionKind
	Factor float64 // Learning-rate multiplier for ActionAdjustLearningRate
	Reason string
}

// Action reasons.
const (
	ReasonDiverged    = "diverged"
	ReasonStagnation  = "stagnation"
	ReasonDeadUnits   = "dead units"
	ReasonSmooth      = "smooth descent"
	ReasonOscillation = "oscillation"
)

// State is the part of a run's state owned by the monitor.
type State struct {
	Stagnation           int  // Consecutive stagnant epochs since the last reset
	AntiStagnationActive bool // A perturbation was applied and progress has not resumed
	Perturbations        int  // Total perturbations requested
}

// Config holds the heuristic thresholds.
type Config struct {
	Window               int     `yaml:"window"`               // Epochs inspected by every windowed rule
	Epsilon              float64 `yaml:"epsilon"`              // Accuracy gain over Window at or below which an epoch is stagnant
	StagnationThreshold  int     `yaml:"stagnationThreshold"`  // Stagnant epochs tolerated before a perturbation
	DeadUnitThreshold    float64 `yaml:"deadUnitThreshold"`    // Dead hidden-unit fraction that triggers an early perturbation; 0 disables
	ReferenceRate        float64 `yaml:"referenceRate"`        // Mean relative loss decrease per epoch above which descent is "fast"
	IncreaseFactor       float64 `yaml:"increaseFactor"`       // Learning-rate multiplier on smooth descent (> 1)
	DecreaseFactor       float64 `yaml:"decreaseFactor"`       // Learning-rate multiplier on oscillation (in (0, 1))
	OscillationTolerance float64 `yaml:"oscillationTolerance"` // Loss deltas this small are ignored when counting flips
	OscillationFlips     int     `yaml:"oscillationFlips"`     // Sign flips within Window that count as oscillation

	// Passive disables every rule except divergence detection.
	Passive bool `yaml:"passive"`
}

// DefaultConfig returns thresholds that work on the bundled toy datasets.
func DefaultConfig() Config {
	return Config{
		Window:               5,
		Epsilon:              1e-3,
		StagnationThreshold:  5,
		DeadUnitThreshold:    0.5,
		ReferenceRate:        0.02,
		IncreaseFactor:       1.05,
		DecreaseFactor:       0.7,
		OscillationTolerance: 1e-4,
		OscillationFlips:     2,
	}
}

// PassiveConfig returns DefaultConfig with only divergence detection enabled.
func PassiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Passive = true
	return cfg
}

// Validate checks the thresholds. Errors wrap nn.ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Window < 2:
		return invalidConfig("window must be >= 2, got %d", c.Window)
	case c.Epsilon < 0:
		return invalidConfig("epsilon must be >= 0, got %v", c.Epsilon)
	case c.StagnationThreshold < 0:
		return invalidConfig("stagnation threshold must be >= 0, got %d", c.StagnationThreshold)
	case c.DeadUnitThreshold < 0 || c.DeadUnitThreshold > 1:
		return invalidConfig("dead unit threshold must be in [0, 1], got %v", c.DeadUnitThreshold)
	case c.ReferenceRate < 0:
		return invalidConfig("reference rate must be >= 0, got %v", c.ReferenceRate)
	case !(c.IncreaseFactor > 1):
		return invalidConfig("increase factor must be > 1, got %v", c.IncreaseFactor)
	case !(c.DecreaseFactor > 0 && c.DecreaseFactor < 1):
		return invalidConfig("decrease factor must be in (0, 1), got %v", c.DecreaseFactor)
	case c.OscillationTolerance < 0:
		return invalidConfig("oscillation tolerance must be >= 0, got %v", c.OscillationTolerance)
	case c.OscillationFlips < 1:
		return invalidConfig("oscillation flips must be >= 1, got %d", c.OscillationFlips)
	}
	return nil
}

// Monitor evaluates the heuristics. It is stateless; per-run counters live in
// State, so one Monitor may serve many runs.
type Monitor struct {
	cfg Config
}

// New creates a monitor with the given thresholds.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{cfg: cfg}, nil
}

// Config returns the monitor's thresholds.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Observe inspects h after an epoch was appended and returns the action to
// take. It updates the stagnation fields of s.
func (m *Monitor) Observe(h metrics.History, s *State) Action {
	last, ok := h.Last()
	if !ok {
		return Action{Kind: ActionNone}
	}

	if math.IsNaN(last.Loss) || math.IsInf(last.Loss, 0) {
		return Action{Kind: ActionStop, Reason: ReasonDiverged}
	}
	if m.cfg.Passive {
		return Action{Kind: ActionNone}
	}

	if a, ok := m.stagnation(h, last, s); ok {
		return a
	}

	deltas := h.LossDeltas(m.cfg.Window)
	if len(deltas) < m.cfg.Window {
		return Action{Kind: ActionNone}
	}

	if m.smoothDescent(h, deltas) {
		return Action{Kind: ActionAdjustLearningRate, Factor: m.cfg.IncreaseFactor, Reason: ReasonSmooth}
	}

	if metrics.SignFlips(deltas, m.cfg.OscillationTolerance) >= m.cfg.OscillationFlips {
		return Action{Kind: ActionAdjustLearningRate, Factor: m.cfg.DecreaseFactor, Reason: ReasonOscillation}
	}

	return Action{Kind: ActionNone}
}

// stagnation updates the counter and reports a Perturb action when one is due.
// A stagnant epoch that does not trigger a perturbation lets the lower
// priority rules run.
func (m *Monitor) stagnation(h metrics.History, last metrics.Epoch, s *State) (Action, bool) {
	if len(h) <= m.cfg.Window {
		return Action{}, false
	}

	gain := last.Accuracy - h[len(h)-1-m.cfg.Window].Accuracy
	if gain > m.cfg.Epsilon {
		s.Stagnation = 0
		s.AntiStagnationActive = false
		return Action{}, false
	}

	s.Stagnation++
	reason := ""
	switch {
	case s.Stagnation > m.cfg.StagnationThreshold:
		reason = ReasonStagnation
	case m.cfg.DeadUnitThreshold > 0 && last.DeadFraction > m.cfg.DeadUnitThreshold:
		reason = ReasonDeadUnits
	default:
		return Action{}, false
	}

	s.Stagnation = 0
	s.AntiStagnationActive = true
	s.Perturbations++
	return Action{Kind: ActionPerturb, Reason: reason}, true
}

// smoothDescent reports whether every delta is negative and the loss falls by
// more than ReferenceRate per epoch relative to its previous value.
func (m *Monitor) smoothDescent(h metrics.History, deltas []float64) bool {
	prev := h.Tail(len(deltas) + 1).Losses()
	var rel float64
	for i, d := range deltas {
		if d >= 0 || prev[i] <= 0 {
			return false
		}
		rel += -d / prev[i]
	}
	return rel/float64(len(deltas)) > m.cfg.ReferenceRate
}

func invalidConfig(format string, args ...any) error {
	return errors.Wrapf(nn.ErrInvalidConfig, "monitor: "+format, args...)
}
