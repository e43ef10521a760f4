package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dasaro/nn-teaching/internal/activation"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/train"
)

// Base is the configuration every trial starts from. Grid axes override
// parts of it. A zero Monitor leaves every trial on the trainer's default
// monitor; otherwise all trials share one monitor built from it.
type Base struct {
	Network  nn.Config
	Training train.Config
	Monitor  monitor.Config
}

// Grid lists the values to try on each axis. An empty axis keeps the base
// value, so the number of trials is the product of the non-empty axis
// lengths.
type Grid struct {
	LearningRates     []float64         `yaml:"learningRates"`
	Momenta           []float64         `yaml:"momenta"`
	Hidden            [][]int           `yaml:"hidden"`            // Hidden layer sizes; an empty entry means no hidden layer
	HiddenActivations []activation.Kind `yaml:"hiddenActivations"` // Applied to every hidden layer
	Seeds             []int64           `yaml:"seeds"`             // Weight init and shuffle seeds
}

// Size returns the number of trials the grid expands to.
func (g Grid) Size() int {
	n := 1
	for _, l := range []int{len(g.LearningRates), len(g.Momenta), len(g.Hidden), len(g.HiddenActivations), len(g.Seeds)} {
		if l > 0 {
			n *= l
		}
	}
	return n
}

// Trial is one point of the grid.
type Trial struct {
	Index            int
	LearningRate     float64
	Momentum         float64
	Hidden           []int
	HiddenActivation activation.Kind
	Seed             int64
}

// Expand enumerates the grid in a fixed order: seeds vary fastest, then
// hidden activations, hidden sizes, momenta and learning rates.
func (g Grid) Expand(base Base) []Trial {
	lrs := g.LearningRates
	if len(lrs) == 0 {
		lrs = []float64{base.Training.LearningRate}
	}
	moms := g.Momenta
	if len(moms) == 0 {
		moms = []float64{base.Training.Momentum()}
	}
	hidden := g.Hidden
	if len(hidden) == 0 {
		hidden = [][]int{baseHidden(base.Network)}
	}
	acts := g.HiddenActivations
	if len(acts) == 0 {
		acts = []activation.Kind{baseHiddenActivation(base.Network)}
	}
	seeds := g.Seeds
	if len(seeds) == 0 {
		seeds = []int64{base.Network.Init.Seed}
	}

	trials := make([]Trial, 0, g.Size())
	for _, lr := range lrs {
		for _, m := range moms {
			for _, h := range hidden {
				for _, a := range acts {
					for _, s := range seeds {
						trials = append(trials, Trial{
							Index:            len(trials),
							LearningRate:     lr,
							Momentum:         m,
							Hidden:           append([]int(nil), h...),
							HiddenActivation: a,
							Seed:             s,
						})
					}
				}
			}
		}
	}
	return trials
}

// Setting returns a printable description of everything but the seed.
func (t Trial) Setting() string {
	return fmt.Sprintf("lr=%g momentum=%g hidden=%s act=%s", t.LearningRate, t.Momentum, hiddenString(t.Hidden), t.HiddenActivation)
}

// Key identifies the trial within its grid.
func (t Trial) Key() string {
	return fmt.Sprintf("%d %s seed=%d", t.Index, t.Setting(), t.Seed)
}

// trialNamespace scopes trial IDs.
var trialNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("nn-teaching/search/trial"))

// ID returns a name-based UUID derived from Key. The same grid always yields
// the same IDs.
func (t Trial) ID() uuid.UUID {
	return uuid.NewSHA1(trialNamespace, []byte(t.Key()))
}

// configs builds the network and training configuration of t.
func (t Trial) configs(base Base, epochBudget int) (nn.Config, train.Config) {
	netCfg := base.Network
	in, out := netCfg.Sizes[0], netCfg.Sizes[len(netCfg.Sizes)-1]
	outAct := netCfg.Activations[len(netCfg.Activations)-1]

	netCfg.Sizes = append(append([]int{in}, t.Hidden...), out)
	netCfg.Activations = make([]activation.Kind, 0, len(t.Hidden)+1)
	for range t.Hidden {
		netCfg.Activations = append(netCfg.Activations, t.HiddenActivation)
	}
	netCfg.Activations = append(netCfg.Activations, outAct)
	netCfg.Init.Seed = t.Seed

	trainCfg := base.Training
	trainCfg.LearningRate = t.LearningRate
	trainCfg.MomentumCoefficient = nil
	if t.Momentum != 0 {
		trainCfg = trainCfg.WithMomentum(t.Momentum)
	}
	trainCfg.Seed = t.Seed
	if epochBudget > 0 && epochBudget < trainCfg.MaxEpochs {
		trainCfg.MaxEpochs = epochBudget
	}
	return netCfg, trainCfg
}

func baseHidden(cfg nn.Config) []int {
	if len(cfg.Sizes) <= 2 {
		return nil
	}
	return cfg.Sizes[1 : len(cfg.Sizes)-1]
}

func baseHiddenActivation(cfg nn.Config) activation.Kind {
	if len(cfg.Sizes) <= 2 || len(cfg.Activations) == 0 {
		return activation.KindSigmoid
	}
	return cfg.Activations[0]
}

func hiddenString(h []int) string {
	if len(h) == 0 {
		return "none"
	}
	parts := make([]string, len(h))
	for i, n := range h {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}
