package train

import (
	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/nn"
)

// Diagnostics describes the network and its history at the end of a run.
type Diagnostics struct {
	Weights          nn.WeightStats   // Every weight of the network
	Layers           []nn.WeightStats // One entry per edge
	Symmetry         []float64        // Per edge; near 0 means the units of the layer never differentiated
	MaxAbsWeight     float64
	PredictionSpread float64 // Std of the first output across the dataset; near 0 means the input is ignored
	BestAccuracy     float64 // Over the kept epochs
	LossMean         float64 // Over the last Window kept epochs
	LossStd          float64
}

// diagnose summarizes net after a run. h must only hold kept epochs.
func diagnose(net *nn.Network, ds dataset.Dataset, h metrics.History, window int) (Diagnostics, error) {
	spread, err := nn.PredictionSpread(net, ds.Inputs())
	if err != nil {
		return Diagnostics{}, err
	}

	d := Diagnostics{
		Weights:          net.AllWeightStats(),
		Layers:           make([]nn.WeightStats, net.NumEdges()),
		Symmetry:         make([]float64, net.NumEdges()),
		MaxAbsWeight:     net.MaxAbsWeight(),
		PredictionSpread: spread,
		BestAccuracy:     h.BestAccuracy(),
	}
	for l := range d.Layers {
		d.Layers[l] = net.LayerStats(l)
		d.Symmetry[l] = net.Symmetry(l)
	}
	d.LossMean, d.LossStd = h.LossSpread(window)
	return d, nil
}
