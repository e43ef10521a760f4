package nn

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Trace is the full record of one forward pass.
//
// Index 0 is the input layer: Activations[0] is a copy of the input and
// PreActivations[0] is nil. Index l > 0 holds layer l's pre-activation
// z = aᵀW + b and activation f(z). Backward needs the whole trace, not only
// the output.
type Trace struct {
	Activations    [][]float64
	PreActivations [][]float64
}

// Output returns the output layer activation.
func (t *Trace) Output() []float64 {
	return t.Activations[len(t.Activations)-1]
}

// Sizes returns the layer sizes recorded in the trace.
func (t *Trace) Sizes() []int {
	sizes := make([]int, len(t.Activations))
	for i, a := range t.Activations {
		sizes[i] = len(a)
	}
	return sizes
}

// ForwardOptions configures a forward pass.
type ForwardOptions struct {
	// Logger receives per-layer activation summaries at debug level.
	// Nil disables diagnostics; the computation is identical either way.
	Logger *slog.Logger
}

// Forward runs input through the network and returns the activation trace.
//
// Returns an error wrapping ErrShapeMismatch if len(input) differs from the
// input layer size.
func Forward(n *Network, input []float64) (*Trace, error) {
	return ForwardWith(n, input, ForwardOptions{})
}

// ForwardWith is Forward with diagnostics.
func ForwardWith(n *Network, input []float64, opts ForwardOptions) (*Trace, error) {
	if len(input) != n.sizes[0] {
		return nil, shapeErr("forward", "input", 0, n.sizes[0], len(input))
	}

	layers := len(n.sizes)
	trace := &Trace{
		Activations:    make([][]float64, layers),
		PreActivations: make([][]float64, layers),
	}
	trace.Activations[0] = append([]float64(nil), input...)

	debug := opts.Logger != nil && opts.Logger.Enabled(context.Background(), slog.LevelDebug)

	for l := 1; l < layers; l++ {
		prev := mat.NewVecDense(n.sizes[l-1], trace.Activations[l-1])

		z := mat.NewVecDense(n.sizes[l], nil)
		z.MulVec(n.weights[l-1].T(), prev)
		z.AddVec(z, n.biases[l-1])

		pre := z.RawVector().Data
		act := make([]float64, len(pre))
		n.acts[l-1].Apply(act, pre)

		trace.PreActivations[l] = pre
		trace.Activations[l] = act

		if debug {
			opts.Logger.Debug("forward layer",
				"layer", l,
				"activation", n.acts[l-1].Kind().String(),
				"min", floats.Min(act),
				"max", floats.Max(act),
			)
		}
	}

	return trace, nil
}

// Predict returns only the output activation for input.
func Predict(n *Network, input []float64) ([]float64, error) {
	trace, err := Forward(n, input)
	if err != nil {
		return nil, err
	}
	return trace.Output(), nil
}

// checkTrace verifies that trace was produced by a network with n's sizes.
func (n *Network) checkTrace(op string, t *Trace) error {
	if t == nil || len(t.Activations) != len(n.sizes) || len(t.PreActivations) != len(n.sizes) {
		got := 0
		if t != nil {
			got = len(t.Activations)
		}
		return shapeErr(op, "trace layer count", -1, len(n.sizes), got)
	}
	for l, size := range n.sizes {
		if len(t.Activations[l]) != size {
			return shapeErr(op, "trace activations", l, size, len(t.Activations[l]))
		}
		if l > 0 && len(t.PreActivations[l]) != size {
			return shapeErr(op, "trace pre-activations", l, size, len(t.PreActivations[l]))
		}
	}
	return nil
}
