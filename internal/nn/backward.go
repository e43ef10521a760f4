package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Update configures how Backward applies the gradients it computes.
type Update struct {
	// LearningRate scales every gradient step. Zero computes gradients but
	// leaves the parameters untouched.
	LearningRate float64

	// Momentum enables the momentum update when non-nil. An unallocated
	// state is filled with zeros on first use.
	Momentum *Momentum

	// WeightDecay adds WeightDecay*w to every weight gradient (L2). 0 disables.
	WeightDecay float64

	// GradClip clips every gradient element to [-GradClip, GradClip]. 0 disables.
	GradClip float64

	// WeightClamp clamps every weight to [-WeightClamp, WeightClamp] after the
	// update. 0 disables.
	WeightClamp float64
}

// LayerGradient summarizes the gradient applied to one edge.
type LayerGradient struct {
	WeightNorm float64 // Frobenius norm of the weight gradient
	BiasNorm   float64 // Euclidean norm of the bias gradient
	MaxAbs     float64 // Largest absolute weight gradient element
}

// GradientReport is returned by Backward for diagnostics and visualization.
// It never influences training control flow.
type GradientReport struct {
	Layers      []LayerGradient // One entry per edge, input side first
	OutputError []float64       // Error term of the output layer
}

// Norm returns the Euclidean norm over all weight gradients.
func (r GradientReport) Norm() float64 {
	var sum float64
	for _, l := range r.Layers {
		sum += l.WeightNorm * l.WeightNorm
	}
	return math.Sqrt(sum)
}

// Backward backpropagates the error of trace against target and updates the
// parameters of n in place.
//
// The output error is prediction - target for sigmoid and softmax outputs
// (cross-entropy pairing) and (prediction - target) * f'(output) otherwise.
// Hidden errors use the weights as they were during the forward pass: every
// gradient is computed before any parameter changes.
//
// Update rules:
//   - Without momentum: w -= lr * g
//   - With momentum:    v = μ*v - lr*g; w += v
//
// Returns an error wrapping ErrShapeMismatch if trace or target do not match
// the architecture of n, or if u.Momentum was shaped for another network.
// Nothing is modified when an error is returned.
func Backward(n *Network, trace *Trace, target []float64, u Update) (GradientReport, error) {
	if err := n.checkTrace("backward", trace); err != nil {
		return GradientReport{}, err
	}
	if len(target) != n.OutputSize() {
		return GradientReport{}, shapeErr("backward", "target", len(n.sizes)-1, n.OutputSize(), len(target))
	}
	if u.Momentum != nil {
		if err := u.Momentum.ensure(n); err != nil {
			return GradientReport{}, err
		}
	}

	deltas, err := n.deltas(trace, target)
	if err != nil {
		return GradientReport{}, err
	}

	edges := len(n.weights)
	gradW := make([]*mat.Dense, edges)
	gradB := make([]*mat.VecDense, edges)
	report := GradientReport{
		Layers:      make([]LayerGradient, edges),
		OutputError: append([]float64(nil), deltas[edges]...),
	}

	for l := 0; l < edges; l++ {
		a := mat.NewVecDense(n.sizes[l], trace.Activations[l])
		d := mat.NewVecDense(n.sizes[l+1], deltas[l+1])

		g := mat.NewDense(n.sizes[l], n.sizes[l+1], nil)
		g.Outer(1, a, d)
		gb := mat.VecDenseCopyOf(d)

		if u.WeightDecay != 0 {
			g.Apply(func(i, j int, v float64) float64 {
				return v + u.WeightDecay*n.weights[l].At(i, j)
			}, g)
		}
		if u.GradClip > 0 {
			g.Apply(func(_, _ int, v float64) float64 { return clamp(v, u.GradClip) }, g)
			for j := 0; j < gb.Len(); j++ {
				gb.SetVec(j, clamp(gb.AtVec(j), u.GradClip))
			}
		}

		gradW[l], gradB[l] = g, gb
		report.Layers[l] = LayerGradient{
			WeightNorm: mat.Norm(g, 2),
			BiasNorm:   mat.Norm(gb, 2),
			MaxAbs:     floats.Norm(g.RawMatrix().Data, math.Inf(1)),
		}
	}

	for l := 0; l < edges; l++ {
		n.step(l, gradW[l], gradB[l], u)
	}

	return report, nil
}

// deltas returns the error term of every non-input layer (index 0 unused).
func (n *Network) deltas(trace *Trace, target []float64) ([][]float64, error) {
	last := len(n.sizes) - 1
	deltas := make([][]float64, len(n.sizes))

	out := trace.Activations[last]
	dOut := make([]float64, len(out))
	floats.SubTo(dOut, out, target)
	if n.LossKind() == LossSquaredError {
		slope := make([]float64, len(out))
		if err := n.acts[last-1].Derivative(slope, trace.PreActivations[last], out); err != nil {
			return nil, err
		}
		floats.Mul(dOut, slope)
	}
	deltas[last] = dOut

	for l := last - 1; l >= 1; l-- {
		next := mat.NewVecDense(n.sizes[l+1], deltas[l+1])
		back := mat.NewVecDense(n.sizes[l], nil)
		back.MulVec(n.weights[l], next)

		d := back.RawVector().Data
		slope := make([]float64, len(d))
		if err := n.acts[l-1].Derivative(slope, trace.PreActivations[l], trace.Activations[l]); err != nil {
			return nil, err
		}
		floats.Mul(d, slope)
		deltas[l] = d
	}
	return deltas, nil
}

// step applies one gradient update to edge l.
func (n *Network) step(l int, g *mat.Dense, gb *mat.VecDense, u Update) {
	w, b := n.weights[l], n.biases[l]

	if u.Momentum == nil {
		scaled := mat.NewDense(n.sizes[l], n.sizes[l+1], nil)
		scaled.Scale(-u.LearningRate, g)
		w.Add(w, scaled)
		b.AddScaledVec(b, -u.LearningRate, gb)
	} else {
		vw, vb := u.Momentum.weights[l], u.Momentum.biases[l]
		mu := u.Momentum.coefficient

		scaled := mat.NewDense(n.sizes[l], n.sizes[l+1], nil)
		scaled.Scale(-u.LearningRate, g)
		vw.Scale(mu, vw)
		vw.Add(vw, scaled)
		w.Add(w, vw)

		vb.ScaleVec(mu, vb)
		vb.AddScaledVec(vb, -u.LearningRate, gb)
		b.AddVec(b, vb)
	}

	if u.WeightClamp > 0 {
		w.Apply(func(_, _ int, v float64) float64 { return clamp(v, u.WeightClamp) }, w)
	}
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
