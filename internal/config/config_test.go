package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasaro/nn-teaching/internal/activation"
	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dogs.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []int{4, 6, 2}, cfg.Network.Sizes)
	assert.Equal(t, []activation.Kind{activation.KindLeakyReLU, activation.KindSoftmax}, cfg.Network.Activations)

	assert.Equal(t, 0.3, cfg.Training.LearningRate)
	require.NotNil(t, cfg.Training.MomentumCoefficient)
	assert.Equal(t, 0.8, cfg.Training.Momentum())
	assert.Equal(t, 300, cfg.Training.MaxEpochs)
	assert.Equal(t, 5.0, cfg.Training.WeightClamp)
	assert.Equal(t, 2.0, cfg.Training.MaxLearningRate, "unset keys keep defaults")

	assert.Equal(t, 1.1, cfg.Monitor.IncreaseFactor)
	assert.Equal(t, monitor.DefaultConfig().DecreaseFactor, cfg.Monitor.DecreaseFactor)
	assert.Equal(t, 6, cfg.MonitorConfig().Window)

	assert.Equal(t, []float64{0.3, 0.4, 0.5}, cfg.Search.Grid.LearningRates)
	assert.Equal(t, 45, cfg.Search.Grid.Size())
	assert.Equal(t, 4, cfg.Search.Workers)

	ds, err := cfg.LoadDataset()
	require.NoError(t, err)
	assert.Len(t, ds, 24)

	base, err := cfg.SearchBase()
	require.NoError(t, err)
	assert.Equal(t, nn.InitXavier, base.Network.Init.Kind)
	assert.Equal(t, int64(3), base.Network.Init.Seed)
	assert.Equal(t, cfg.MonitorConfig(), base.Monitor)
	assert.Equal(t, 1.1, base.Monitor.IncreaseFactor)
	assert.Equal(t, 6, base.Monitor.Window)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_InlineSamples(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
network:
  sizes: [2, 1]
  activations: [sigmoid]
dataset:
  samples:
    - {input: [0, 0], target: [0], label: low}
    - {input: [1, 1], target: [1], label: high}
`))
	require.NoError(t, err)

	ds, err := cfg.LoadDataset()
	require.NoError(t, err)
	assert.Equal(t, dataset.Dataset{
		{Input: []float64{0, 0}, Target: []float64{0}, Label: "low"},
		{Input: []float64{1, 1}, Target: []float64{1}, Label: "high"},
	}, ds)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "training:\n  learningrate: 0.1\n"},
		{"unknown activation", "network:\n  activations: [relu6, sigmoid]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
		})
	}

	invalid := []struct {
		name string
		yaml string
	}{
		{"zero lr", "training:\n  learningRate: 0\n"},
		{"sizes", "network:\n  sizes: [2, 0, 1]\n"},
		{"init", "network:\n  init: orthogonal\n"},
		{"uniform scale", "network:\n  init: uniform\n"},
		{"monitor", "monitor:\n  decreaseFactor: 2\n"},
		{"workers", "search:\n  workers: -1\n"},
		{"dataset", "dataset:\n  name: \"\"\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, nn.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, Default(), cfg)

	cfg.ApplyOverrides(Overrides{Epochs: 7, LearningRate: 0.9, Momentum: ptr(0.5), Seed: 9, Workers: 3, Dataset: "xor"})
	assert.Equal(t, 7, cfg.Training.MaxEpochs)
	assert.Equal(t, 0.9, cfg.Training.LearningRate)
	assert.Equal(t, 0.5, cfg.Training.Momentum())
	assert.Equal(t, int64(9), cfg.Network.Seed)
	assert.Equal(t, int64(9), cfg.Training.Seed)
	assert.Equal(t, int64(9), cfg.Dataset.Seed)
	assert.Equal(t, 3, cfg.Search.Workers)
	assert.Equal(t, "xor", cfg.Dataset.Name)
	require.NoError(t, cfg.Validate())
}

func ptr(v float64) *float64 { return &v }

func TestApplyOverrides_Momentum(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dogs.yaml"))
	require.NoError(t, err)
	require.Equal(t, 0.8, cfg.Training.Momentum())

	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, 0.8, cfg.Training.Momentum(), "nil keeps the file value")

	cfg.ApplyOverrides(Overrides{Momentum: ptr(0.3)})
	assert.Equal(t, 0.3, cfg.Training.Momentum())

	cfg.ApplyOverrides(Overrides{Momentum: ptr(0)})
	assert.Nil(t, cfg.Training.MomentumCoefficient)
	assert.Equal(t, 0.0, cfg.Training.Momentum())
	require.NoError(t, cfg.Validate())
}
