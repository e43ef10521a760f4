package search

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the trials that share a setting and differ only by
// seed.
type Summary struct {
	Setting      string
	Trial        Trial // First trial of the group, for its hyperparameters
	Trials       int
	Perfect      int // Trials that reached 100% accuracy
	MeanAccuracy float64
	MeanEpochs   float64
	BestEpochs   int
	WorstEpochs  int
	Consistency  float64 // 1 - (worst-best)/mean epochs; 1 when every seed took equally long
}

// Summarize groups results by setting and ranks the groups: most perfect
// trials first, then higher mean accuracy, then fewer mean epochs.
func Summarize(results []TrialResult) []Summary {
	type group struct {
		first   Trial
		acc     []float64
		epochs  []float64
		perfect int
	}

	var order []string
	groups := map[string]*group{}
	for _, r := range results {
		key := r.Trial.Setting()
		g, ok := groups[key]
		if !ok {
			g = &group{first: r.Trial}
			groups[key] = g
			order = append(order, key)
		}
		if r.Trial.Index < g.first.Index {
			g.first = r.Trial
		}
		g.acc = append(g.acc, r.Accuracy)
		g.epochs = append(g.epochs, float64(r.Epochs))
		if r.Perfect() {
			g.perfect++
		}
	}

	out := make([]Summary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		s := Summary{
			Setting:      key,
			Trial:        g.first,
			Trials:       len(g.acc),
			Perfect:      g.perfect,
			MeanAccuracy: stat.Mean(g.acc, nil),
			MeanEpochs:   stat.Mean(g.epochs, nil),
			BestEpochs:   int(floats.Min(g.epochs)),
			WorstEpochs:  int(floats.Max(g.epochs)),
			Consistency:  1,
		}
		if s.MeanEpochs > 0 {
			s.Consistency = 1 - float64(s.WorstEpochs-s.BestEpochs)/s.MeanEpochs
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Perfect != b.Perfect {
			return a.Perfect > b.Perfect
		}
		if a.MeanAccuracy != b.MeanAccuracy {
			return a.MeanAccuracy > b.MeanAccuracy
		}
		if a.MeanEpochs != b.MeanEpochs {
			return a.MeanEpochs < b.MeanEpochs
		}
		return a.Trial.Index < b.Trial.Index
	})
	return out
}
