package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Momentum holds one velocity per weight matrix and bias vector.
//
// Velocities are allocated lazily, zero-filled, the first time Backward uses
// them, and shaped after the network they are used with. A Momentum must not
// be shared between networks.
//
// Update rule:
//
//	velocity = coefficient * velocity - lr * gradient
//	param    = param + velocity
type Momentum struct {
	coefficient float64
	weights     []*mat.Dense
	biases      []*mat.VecDense
}

// NewMomentum creates an empty momentum state with the given coefficient.
// The coefficient is fixed for the lifetime of the state.
func NewMomentum(coefficient float64) *Momentum {
	return &Momentum{coefficient: coefficient}
}

// Coefficient returns the momentum coefficient.
func (m *Momentum) Coefficient() float64 {
	return m.coefficient
}

// Allocated reports whether the velocities exist yet.
func (m *Momentum) Allocated() bool {
	return m.weights != nil
}

// Velocity returns the weight and bias velocities of edge l, or nils before
// the first update.
func (m *Momentum) Velocity(l int) (*mat.Dense, *mat.VecDense) {
	if !m.Allocated() {
		return nil, nil
	}
	return m.weights[l], m.biases[l]
}

// Reset zeroes every velocity without releasing it.
func (m *Momentum) Reset() {
	for l := range m.weights {
		m.weights[l].Zero()
		m.biases[l].Zero()
	}
}

// ensure allocates zero velocities for n, or verifies that existing ones
// still match n's architecture.
func (m *Momentum) ensure(n *Network) error {
	if !m.Allocated() {
		m.weights = make([]*mat.Dense, len(n.weights))
		m.biases = make([]*mat.VecDense, len(n.biases))
		for l := range n.weights {
			m.weights[l] = mat.NewDense(n.sizes[l], n.sizes[l+1], nil)
			m.biases[l] = mat.NewVecDense(n.sizes[l+1], nil)
		}
		return nil
	}

	if len(m.weights) != len(n.weights) {
		return shapeErr("momentum", "edge count", -1, len(n.weights), len(m.weights))
	}
	for l, v := range m.weights {
		r, c := v.Dims()
		if r != n.sizes[l] {
			return shapeErr("momentum", "velocity rows", l, n.sizes[l], r)
		}
		if c != n.sizes[l+1] {
			return shapeErr("momentum", "velocity cols", l, n.sizes[l+1], c)
		}
		if m.biases[l].Len() != n.sizes[l+1] {
			return shapeErr("momentum", "bias velocity", l, n.sizes[l+1], m.biases[l].Len())
		}
	}
	return nil
}
