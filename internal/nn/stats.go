package nn

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/dasaro/nn-teaching/internal/activation"
)

// WeightStats summarizes a set of parameter values.
type WeightStats struct {
	Min, Max  float64
	Mean, Std float64 // Std is the population standard deviation
	Median    float64 // Upper median for even counts
	Range     float64
}

// ComputeStats summarizes values. It returns the zero value for an empty slice.
func ComputeStats(values []float64) WeightStats {
	if len(values) == 0 {
		return WeightStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	return WeightStats{
		Min:    lo,
		Max:    hi,
		Mean:   mean,
		Std:    std,
		Median: sorted[len(sorted)/2],
		Range:  hi - lo,
	}
}

// LayerStats summarizes the weights of edge l.
func (n *Network) LayerStats(l int) WeightStats {
	return ComputeStats(mat.DenseCopyOf(n.weights[l]).RawMatrix().Data)
}

// WeightNorm returns the Euclidean norm over every weight of the network.
func (n *Network) WeightNorm() float64 {
	var sum float64
	for _, w := range n.weights {
		f := mat.Norm(w, 2)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Symmetry returns the mean absolute difference between the incoming weight
// vectors of every pair of units in layer l+1. Values near zero mean the
// units compute nearly the same function and symmetry was never broken.
func (n *Network) Symmetry(l int) float64 {
	w := n.weights[l]
	rows, units := w.Dims()
	if units < 2 {
		return 0
	}

	var total float64
	var count int
	for i := 0; i < units-1; i++ {
		for j := i + 1; j < units; j++ {
			for k := 0; k < rows; k++ {
				total += math.Abs(w.At(k, i) - w.At(k, j))
				count++
			}
		}
	}
	return total / float64(count)
}

// Perturb adds uniform noise in [-scale/2, scale/2] to a random subset of the
// weights. Each weight is selected with probability fraction (1 selects all).
// Biases are left alone. It returns the number of weights changed.
func Perturb(n *Network, rng *rand.Rand, scale, fraction float64) int {
	changed := 0
	for _, w := range n.weights {
		rows, cols := w.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if fraction < 1 && rng.Float64() >= fraction {
					continue
				}
				w.Set(i, j, w.At(i, j)+(rng.Float64()-0.5)*scale)
				changed++
			}
		}
	}
	return changed
}

// deadSlope is the slope below which a saturating unit counts as inactive.
const deadSlope = 1e-3

// ActivityTracker records, over a sequence of forward passes, which hidden
// units ever responded. A unit is dead when it never did: a leaky ReLU unit
// whose input was never positive, or a sigmoid/tanh unit that stayed
// saturated.
type ActivityTracker struct {
	kinds  []activation.Kind
	active [][]bool
}

// NewActivityTracker creates a tracker for the hidden layers of n.
func NewActivityTracker(n *Network) *ActivityTracker {
	hidden := len(n.sizes) - 2
	t := &ActivityTracker{
		kinds:  make([]activation.Kind, hidden),
		active: make([][]bool, hidden),
	}
	for h := 0; h < hidden; h++ {
		t.kinds[h] = n.acts[h].Kind()
		t.active[h] = make([]bool, n.sizes[h+1])
	}
	return t
}

// Observe records one forward trace.
func (t *ActivityTracker) Observe(trace *Trace) {
	for h := range t.active {
		pre, act := trace.PreActivations[h+1], trace.Activations[h+1]
		for u := range t.active[h] {
			if t.active[h][u] {
				continue
			}
			switch t.kinds[h] {
			case activation.KindSigmoid:
				t.active[h][u] = activation.SigmoidPrime(act[u]) >= deadSlope
			case activation.KindTanh:
				t.active[h][u] = activation.TanhPrime(act[u]) >= deadSlope
			default:
				t.active[h][u] = pre[u] > 0
			}
		}
	}
}

// DeadFraction returns the fraction of hidden units that never responded.
// Networks without hidden layers report 0.
func (t *ActivityTracker) DeadFraction() float64 {
	var dead, total float64
	for _, layer := range t.active {
		for _, a := range layer {
			if !a {
				dead++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return dead / total
}

// Reset forgets every observation.
func (t *ActivityTracker) Reset() {
	for _, layer := range t.active {
		for u := range layer {
			layer[u] = false
		}
	}
}

// PredictionSpread returns the population standard deviation of the first
// output unit across inputs. Near-zero spread means the network answers the
// same thing regardless of input.
func PredictionSpread(n *Network, inputs [][]float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	first := make([]float64, len(inputs))
	for i, in := range inputs {
		out, err := Predict(n, in)
		if err != nil {
			return 0, err
		}
		first[i] = out[0]
	}
	_, std := stat.PopMeanStdDev(first, nil)
	return std, nil
}

// flatten returns every weight of n in edge, row-major order.
func (n *Network) flatten() []float64 {
	var out []float64
	for _, w := range n.weights {
		out = append(out, mat.DenseCopyOf(w).RawMatrix().Data...)
	}
	return out
}

// AllWeightStats summarizes every weight of the network.
func (n *Network) AllWeightStats() WeightStats {
	return ComputeStats(n.flatten())
}

// MaxAbsWeight returns the largest absolute weight.
func (n *Network) MaxAbsWeight() float64 {
	return floats.Norm(n.flatten(), math.Inf(1))
}
