package train

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/dasaro/nn-teaching/internal/activation"
	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
)

func newNet(t *testing.T, cfg nn.Config) *nn.Network {
	t.Helper()
	n, err := nn.New(cfg)
	require.NoError(t, err)
	return n
}

func passive(t *testing.T) Option {
	t.Helper()
	m, err := monitor.New(monitor.PassiveConfig())
	require.NoError(t, err)
	return WithMonitor(m)
}

func TestTrain_ConvergesOnTwoClusters(t *testing.T) {
	ds := dataset.TwoClusters(2, rand.New(rand.NewSource(1))) //nolint:gosec // test data
	net := newNet(t, nn.Config{
		Sizes:       []int{2, 1},
		Activations: []activation.Kind{activation.KindSigmoid},
		Init:        nn.Xavier(7),
	})

	cfg := DefaultConfig()
	cfg.MaxEpochs = 500
	res, err := Train(context.Background(), net, ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, StatusConverged, res.Status)
	assert.GreaterOrEqual(t, res.Accuracy, 0.95)
	assert.LessOrEqual(t, res.Epochs, 500)
	assert.Len(t, res.History, res.Epochs)
	assert.Equal(t, res.Epochs, res.LastStableEpoch)
}

func TestTrain_Deterministic(t *testing.T) {
	ds := dataset.XOR()
	cfg := DefaultConfig()
	cfg.MaxEpochs = 30
	cfg.Seed = 11

	var results []Result
	for i := 0; i < 2; i++ {
		net := newNet(t, nn.Config{
			Sizes:       []int{2, 3, 1},
			Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
			Init:        nn.Xavier(5),
		})
		res, err := Train(context.Background(), net, ds, cfg.WithMomentum(0.5))
		require.NoError(t, err)
		results = append(results, res)
	}
	assert.Equal(t, results[0], results[1])
}

// The loss of a run on an overlapping dataset at a high learning rate goes
// up and down from epoch to epoch; momentum smooths it out.
func TestTrain_MomentumReducesOscillation(t *testing.T) {
	ds := dataset.Dataset{
		{Input: []float64{-0.33, -0.5}, Target: []float64{1}},
		{Input: []float64{0.15, -0.64}, Target: []float64{1}},
		{Input: []float64{0.41, 0.88}, Target: []float64{1}},
		{Input: []float64{-0.2, 0.94}, Target: []float64{0}},
		{Input: []float64{0.25, 0.89}, Target: []float64{0}},
		{Input: []float64{-0.15, -0.88}, Target: []float64{1}},
		{Input: []float64{0.23, 0.28}, Target: []float64{0}},
		{Input: []float64{0.2, -0.04}, Target: []float64{1}},
	}

	flips := func(momentum *float64) int {
		net := newNet(t, nn.Config{
			Sizes:       []int{2, 2, 1},
			Activations: []activation.Kind{activation.KindLeakyReLU, activation.KindSigmoid},
			Init:        nn.Constant(0, 0),
		})
		require.NoError(t, net.SetWeights(0, mat.NewDense(2, 2, []float64{0.66, -0.79, 0.57, -0.69})))
		require.NoError(t, net.SetWeights(1, mat.NewDense(2, 1, []float64{0.43, 0.56})))

		cfg := Config{
			LearningRate:        1,
			MomentumCoefficient: momentum,
			MaxEpochs:           40,
			ConvergenceTarget:   1,
		}
		tr, err := New(cfg, passive(t))
		require.NoError(t, err)
		res, err := tr.Train(context.Background(), net, ds)
		require.NoError(t, err)
		require.Equal(t, StatusMaxEpochsReached, res.Status)
		return metrics.SignFlips(res.History.LossDeltas(len(res.History)), 1e-4)
	}

	mu := 0.5
	plain, withMomentum := flips(nil), flips(&mu)
	assert.GreaterOrEqual(t, plain, 10, "plain run should oscillate")
	assert.Less(t, withMomentum, plain)
}

func TestTrain_DivergesImmediately(t *testing.T) {
	net := newNet(t, nn.Config{
		Sizes:       []int{1, 1},
		Activations: []activation.Kind{activation.KindLeakyReLU},
		Init:        nn.Constant(1, 0),
	})
	initial := net.Clone()
	ds := dataset.Dataset{{Input: []float64{1e155}, Target: []float64{0}}}

	res, err := Train(context.Background(), net, ds, DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiverged)

	var de *DivergedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Epoch)
	assert.Equal(t, 0, de.LastStableEpoch)
	assert.True(t, math.IsInf(de.Loss, 1))

	assert.Equal(t, StatusDiverged, res.Status)
	assert.Equal(t, 1, res.Epochs)
	assert.True(t, math.IsInf(res.Loss, 1))
	assert.True(t, net.Equal(initial), "initial weights restored")
}

func TestTrain_DivergenceRestoresLastStableEpoch(t *testing.T) {
	// A slope of 1 on both sides makes the unit linear. With a shallow
	// negative slope the overshoot would be damped and the run would settle.
	net := newNet(t, nn.Config{
		Sizes:       []int{1, 1},
		Activations: []activation.Kind{activation.KindLeakyReLU},
		LeakyAlpha:  1,
		Init:        nn.Constant(1, 1),
	})
	// Same input, opposite targets: the huge step size overshoots on every
	// sample, so nothing is ever classified correctly while the output
	// explodes.
	ds := dataset.Dataset{
		{Input: []float64{1}, Target: []float64{0}},
		{Input: []float64{1}, Target: []float64{1}},
	}

	snapshots := map[int]*nn.Network{}
	tr, err := New(Config{LearningRate: 300, MaxEpochs: 500, ConvergenceTarget: 1},
		passive(t),
		WithObserver(func(ep metrics.Epoch, _ monitor.Action) {
			snapshots[ep.Index] = net.Clone()
		}),
	)
	require.NoError(t, err)

	res, err := tr.Train(context.Background(), net, ds)
	require.ErrorIs(t, err, ErrDiverged)
	assert.Equal(t, StatusDiverged, res.Status)
	require.Greater(t, res.LastStableEpoch, 0)
	assert.Equal(t, res.Epochs-1, res.LastStableEpoch)
	assert.Equal(t, 0.0, res.Accuracy)
	assert.False(t, math.IsInf(res.Loss, 0))
	assert.True(t, net.Equal(snapshots[res.LastStableEpoch]))
	assert.Equal(t, 0.0, res.Diagnostics.BestAccuracy)
}

func TestTrain_Interrupted(t *testing.T) {
	newXOR := func() *nn.Network {
		return newNet(t, nn.Config{
			Sizes:       []int{2, 1},
			Activations: []activation.Kind{activation.KindSigmoid},
			Init:        nn.Xavier(1),
		})
	}

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		net := newXOR()
		initial := net.Clone()
		res, err := Train(ctx, net, dataset.XOR(), DefaultConfig())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusInterrupted, res.Status)
		assert.Equal(t, 0, res.Epochs)
		assert.True(t, net.Equal(initial))
	})

	t.Run("between epochs", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tr, err := New(DefaultConfig(), WithObserver(func(ep metrics.Epoch, _ monitor.Action) {
			if ep.Index == 3 {
				cancel()
			}
		}))
		require.NoError(t, err)

		res, err := tr.Train(ctx, newXOR(), dataset.XOR())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusInterrupted, res.Status)
		assert.Equal(t, 3, res.Epochs)
		assert.Equal(t, 3, res.LastStableEpoch)
	})
}

func TestTrain_Perturbation(t *testing.T) {
	mcfg := monitor.DefaultConfig()
	mcfg.Window = 2
	mcfg.Epsilon = 1
	mcfg.StagnationThreshold = 0
	m, err := monitor.New(mcfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := DefaultConfig()
	cfg.MaxEpochs = 10
	tr, err := New(cfg, WithMonitor(m), WithLogger(logger))
	require.NoError(t, err)

	net := newNet(t, nn.Config{
		Sizes:       []int{2, 1},
		Activations: []activation.Kind{activation.KindSigmoid},
		Init:        nn.Xavier(3),
	})
	res, err := tr.Train(context.Background(), net, dataset.XOR())
	require.NoError(t, err)

	assert.Equal(t, StatusMaxEpochsReached, res.Status)
	assert.Equal(t, 8, res.Perturbations)
	assert.Contains(t, buf.String(), "anti-stagnation perturbation")
	assert.Contains(t, buf.String(), "reason=stagnation")
	assert.Contains(t, buf.String(), "training summary")
	assert.Contains(t, buf.String(), "symmetry=")
}

func TestTrain_Diagnostics(t *testing.T) {
	ds := dataset.XOR()
	net := newNet(t, nn.Config{
		Sizes:       []int{2, 3, 1},
		Activations: []activation.Kind{activation.KindTanh, activation.KindSigmoid},
		Init:        nn.Xavier(5),
	})

	cfg := DefaultConfig()
	cfg.MaxEpochs = 20
	tr, err := New(cfg, passive(t))
	require.NoError(t, err)
	res, err := tr.Train(context.Background(), net, ds)
	require.NoError(t, err)

	d := res.Diagnostics
	require.Len(t, d.Layers, 2)
	require.Len(t, d.Symmetry, 2)
	for l := 0; l < net.NumEdges(); l++ {
		assert.Equal(t, net.Symmetry(l), d.Symmetry[l])
		assert.Equal(t, net.LayerStats(l), d.Layers[l])
	}
	assert.Equal(t, 0.0, d.Symmetry[1], "single output unit")
	assert.Greater(t, d.Symmetry[0], 0.0)
	assert.Equal(t, net.AllWeightStats(), d.Weights)
	assert.Equal(t, net.MaxAbsWeight(), d.MaxAbsWeight)

	spread, err := nn.PredictionSpread(net, ds.Inputs())
	require.NoError(t, err)
	assert.Equal(t, spread, d.PredictionSpread)

	assert.GreaterOrEqual(t, d.BestAccuracy, res.Accuracy)
	mean, std := res.History.LossSpread(monitor.PassiveConfig().Window)
	assert.Equal(t, mean, d.LossMean)
	assert.Equal(t, std, d.LossStd)
}

func TestTrain_InvalidInput(t *testing.T) {
	net := newNet(t, nn.Config{
		Sizes:       []int{2, 1},
		Activations: []activation.Kind{activation.KindSigmoid},
	})

	_, err := Train(context.Background(), net, dataset.Dataset{}, DefaultConfig())
	assert.True(t, errors.Is(err, nn.ErrInvalidConfig))

	_, err = Train(context.Background(), net, dataset.Dogs(rand.New(rand.NewSource(1))), DefaultConfig()) //nolint:gosec // test data
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lr", func(c *Config) { c.LearningRate = 0 }},
		{"negative lr", func(c *Config) { c.LearningRate = -0.1 }},
		{"lr above max", func(c *Config) { c.LearningRate = 5 }},
		{"momentum", func(c *Config) { *c = c.WithMomentum(1) }},
		{"epochs", func(c *Config) { c.MaxEpochs = 0 }},
		{"target zero", func(c *Config) { c.ConvergenceTarget = 0 }},
		{"target above one", func(c *Config) { c.ConvergenceTarget = 1.5 }},
		{"window", func(c *Config) { c.StagnationWindow = 1 }},
		{"target loss", func(c *Config) { c.TargetLoss = -1 }},
		{"bounds", func(c *Config) { c.MinLearningRate = 3 }},
		{"perturb fraction", func(c *Config) { c.PerturbFraction = 2 }},
		{"perturb boost", func(c *Config) { c.PerturbBoost = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, nn.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	net := newNet(t, nn.Config{
		Sizes:       []int{2, 1},
		Activations: []activation.Kind{activation.KindSigmoid},
		Init:        nn.Constant(1, -1.5),
	})
	// Acts as AND: only [1, 1] lands above 0.5.
	acc, loss, err := Evaluate(net, dataset.XOR())
	require.NoError(t, err)
	assert.Equal(t, 0.25, acc)
	assert.Greater(t, loss, 0.0)

	_, _, err = Evaluate(net, dataset.Dataset{{Input: []float64{1}, Target: []float64{1}}})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "converged", StatusConverged.String())
	assert.Equal(t, "diverged", StatusDiverged.String())
	assert.Equal(t, "Status(0)", Status(0).String())
}

func BenchmarkTrainEpochs(b *testing.B) {
	ds := dataset.Dogs(rand.New(rand.NewSource(1))) //nolint:gosec // benchmark data
	cfg := DefaultConfig()
	cfg.MaxEpochs = 20

	for i := 0; i < b.N; i++ {
		net, err := nn.New(nn.Config{
			Sizes:       []int{4, 8, 2},
			Activations: []activation.Kind{activation.KindLeakyReLU, activation.KindSoftmax},
			Init:        nn.Xavier(int64(i)),
		})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := Train(context.Background(), net, ds, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
