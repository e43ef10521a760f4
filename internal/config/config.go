// Package config loads the YAML configuration used by the nnteach command.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dasaro/nn-teaching/internal/activation"
	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/search"
	"github.com/dasaro/nn-teaching/internal/train"
)

// Config captures everything needed for a training run or a search.
type Config struct {
	Network  Network        `yaml:"network"`
	Training train.Config   `yaml:"training"`
	Monitor  monitor.Config `yaml:"monitor"`
	Search   Search         `yaml:"search"`
	Dataset  Dataset        `yaml:"dataset"`
	LogEvery int            `yaml:"logEvery"`
}

// Network describes the architecture and initialization.
type Network struct {
	Sizes       []int             `yaml:"sizes"`
	Activations []activation.Kind `yaml:"activations"`
	LeakyAlpha  float64           `yaml:"leakyAlpha"`
	Init        string            `yaml:"init"`      // xavier, uniform or constant
	InitScale   float64           `yaml:"initScale"` // Uniform bound or constant weight
	InitBias    float64           `yaml:"initBias"`
	Seed        int64             `yaml:"seed"`
}

// Search holds the hyperparameter grid and its execution options.
type Search struct {
	Grid        search.Grid `yaml:",inline"`
	Workers     int         `yaml:"workers"`
	EpochBudget int         `yaml:"epochBudget"`
}

// Dataset selects a bundled dataset or provides samples inline.
type Dataset struct {
	Name    string          `yaml:"name"` // Bundled dataset, see dataset.Builtin
	Size    int             `yaml:"size"` // Points per cluster for two_clusters
	Seed    int64           `yaml:"seed"`
	Samples dataset.Dataset `yaml:"samples"` // Used instead of Name when present
}

// Overrides captures CLI supplied values. Zero values keep the config,
// except Momentum where only nil does and 0 disables momentum.
type Overrides struct {
	Epochs       int
	LearningRate float64
	Momentum     *float64
	Seed         int64
	Workers      int
	Dataset      string
}

// Default returns a configuration that trains a 2-4-1 network on two
// clusters.
func Default() *Config {
	return &Config{
		Network: Network{
			Sizes:       []int{2, 4, 1},
			Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
			Init:        "xavier",
			Seed:        1,
		},
		Training: train.DefaultConfig(),
		Monitor:  monitor.DefaultConfig(),
		Dataset: Dataset{
			Name: dataset.NameTwoClusters,
			Size: 8,
			Seed: 1,
		},
		LogEvery: 10,
	}
}

// Load reads and validates a Config from a YAML file. Keys missing from the
// file keep their Default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads and validates a Config from YAML.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Training.MaxEpochs = o.Epochs
	}
	if o.LearningRate > 0 {
		c.Training.LearningRate = o.LearningRate
	}
	switch {
	case o.Momentum == nil:
	case *o.Momentum == 0:
		c.Training.MomentumCoefficient = nil
	default:
		c.Training = c.Training.WithMomentum(*o.Momentum)
	}
	if o.Seed != 0 {
		c.Network.Seed = o.Seed
		c.Training.Seed = o.Seed
		c.Dataset.Seed = o.Seed
	}
	if o.Workers > 0 {
		c.Search.Workers = o.Workers
	}
	if o.Dataset != "" {
		c.Dataset.Name = o.Dataset
		c.Dataset.Samples = nil
	}
}

// Validate verifies the config is runnable. Errors wrap nn.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(nn.ErrInvalidConfig, "config is nil")
	}
	netCfg, err := c.Network.NN()
	if err != nil {
		return err
	}
	if err := netCfg.Validate(); err != nil {
		return errors.Wrap(err, "network")
	}
	if err := c.Training.Validate(); err != nil {
		return errors.Wrap(err, "training")
	}
	if err := c.MonitorConfig().Validate(); err != nil {
		return errors.Wrap(err, "monitor")
	}
	if c.Search.Workers < 0 {
		return errors.Wrapf(nn.ErrInvalidConfig, "search: workers must be >= 0, got %d", c.Search.Workers)
	}
	if c.Search.EpochBudget < 0 {
		return errors.Wrapf(nn.ErrInvalidConfig, "search: epochBudget must be >= 0, got %d", c.Search.EpochBudget)
	}
	if c.Dataset.Name == "" && len(c.Dataset.Samples) == 0 {
		return errors.Wrap(nn.ErrInvalidConfig, "dataset: name or samples required")
	}
	if c.LogEvery < 0 {
		return errors.Wrapf(nn.ErrInvalidConfig, "logEvery must be >= 0, got %d", c.LogEvery)
	}
	return nil
}

// NN converts the network section into an nn.Config.
func (n Network) NN() (nn.Config, error) {
	var policy nn.Init
	switch strings.ToLower(n.Init) {
	case "", "xavier":
		policy = nn.Xavier(n.Seed)
	case "uniform":
		policy = nn.Uniform(n.InitScale, n.Seed)
	case "constant":
		policy = nn.Constant(n.InitScale, 0)
	default:
		return nn.Config{}, errors.Wrapf(nn.ErrInvalidConfig, "network: unknown init %q", n.Init)
	}
	policy.Bias = n.InitBias

	return nn.Config{
		Sizes:       n.Sizes,
		Activations: n.Activations,
		LeakyAlpha:  n.LeakyAlpha,
		Init:        policy,
	}, nil
}

// MonitorConfig returns the monitor thresholds, with the window taken from
// training.stagnationWindow when that is set.
func (c *Config) MonitorConfig() monitor.Config {
	m := c.Monitor
	if c.Training.StagnationWindow > 0 {
		m.Window = c.Training.StagnationWindow
	}
	return m
}

// LoadDataset returns the configured samples.
func (c *Config) LoadDataset() (dataset.Dataset, error) {
	if len(c.Dataset.Samples) > 0 {
		return c.Dataset.Samples, nil
	}
	return dataset.Builtin(c.Dataset.Name, c.Dataset.Size, c.Dataset.Seed)
}

// SearchBase returns the base configuration for a hyperparameter search.
func (c *Config) SearchBase() (search.Base, error) {
	netCfg, err := c.Network.NN()
	if err != nil {
		return search.Base{}, err
	}
	return search.Base{Network: netCfg, Training: c.Training, Monitor: c.MonitorConfig()}, nil
}
