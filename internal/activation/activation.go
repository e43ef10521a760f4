// Package activation implements the element-wise activation functions used by
// the network layers, together with their derivatives.
//
// Every function is pure: it reads its inputs, writes its outputs and keeps no
// state between calls. Derivatives are evaluated from whichever side of the
// function is cheaper to use:
//
//	sigmoid:    σ'(x)  = y * (1 - y)        (output)
//	leaky ReLU: f'(x)  = 1 if x >= 0 else α (input)
//	tanh:       tanh'  = 1 - y²              (output)
//	softmax:    folded into the output error term (prediction - target)
package activation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultLeakyAlpha is the negative-side slope used when none is configured.
const DefaultLeakyAlpha = 0.01

// sigmoidClamp bounds the sigmoid argument so exp never overflows.
const sigmoidClamp = 500.0

// ErrNoDerivative is returned by Softmax.Derivative. The softmax slope only
// exists combined with cross-entropy loss, where it reduces to prediction - target.
var ErrNoDerivative = errors.New("activation: softmax has no standalone derivative")

// Kind identifies an activation function.
type Kind int

// Supported activation kinds.
const (
	KindSigmoid Kind = iota
	KindLeakyReLU
	KindTanh
	KindSoftmax
)

var kindNames = map[Kind]string{
	KindSigmoid:   "sigmoid",
	KindLeakyReLU: "leaky_relu",
	KindTanh:      "tanh",
	KindSoftmax:   "softmax",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a configuration name into a Kind.
// Matching is case-insensitive and accepts "-" in place of "_".
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("activation: unknown kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("activation: unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so kinds can be read from
// YAML configuration files.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Func is an activation applied over a whole layer.
//
// Apply writes f(z) into dst. Derivative writes the slope of f into dst given
// both the pre-activation z and the activation a = f(z); each implementation
// reads only the side it needs. dst may alias z or a.
type Func interface {
	Kind() Kind
	Apply(dst, z []float64)
	Derivative(dst, z, a []float64) error
}

// New returns the Func for kind. alpha is only used by leaky ReLU; a
// non-positive alpha selects DefaultLeakyAlpha.
func New(kind Kind, alpha float64) (Func, error) {
	switch kind {
	case KindSigmoid:
		return SigmoidFunc{}, nil
	case KindLeakyReLU:
		if alpha <= 0 {
			alpha = DefaultLeakyAlpha
		}
		return LeakyReLUFunc{Alpha: alpha}, nil
	case KindTanh:
		return TanhFunc{}, nil
	case KindSoftmax:
		return SoftmaxFunc{}, nil
	default:
		return nil, fmt.Errorf("activation: unknown kind %d", int(kind))
	}
}

// Sigmoid computes 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	x = math.Max(-sigmoidClamp, math.Min(sigmoidClamp, x))
	return 1 / (1 + math.Exp(-x))
}

// SigmoidPrime returns the sigmoid slope given its output y.
func SigmoidPrime(y float64) float64 {
	return y * (1 - y)
}

// LeakyReLU returns x for positive x and alpha*x otherwise.
func LeakyReLU(x, alpha float64) float64 {
	if x > 0 {
		return x
	}
	return alpha * x
}

// LeakyReLUPrime returns the leaky ReLU slope at input x. x == 0 takes the
// positive branch.
func LeakyReLUPrime(x, alpha float64) float64 {
	if x >= 0 {
		return 1
	}
	return alpha
}

// Tanh is the hyperbolic tangent.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// TanhPrime returns the tanh slope given its output y.
func TanhPrime(y float64) float64 {
	return 1 - y*y
}

// Softmax writes the normalized exponentials of v into dst.
//
// The maximum element is subtracted before exponentiating, so the result is
// invariant to adding a constant to every element and never overflows.
// dst and v must have the same length; dst may alias v.
func Softmax(dst, v []float64) {
	if len(v) == 0 {
		return
	}
	if len(dst) != len(v) {
		panic(fmt.Sprintf("activation: softmax length mismatch: dst %d, src %d", len(dst), len(v)))
	}
	maxVal := floats.Max(v)
	for i, x := range v {
		dst[i] = math.Exp(x - maxVal)
	}
	floats.Scale(1/floats.Sum(dst), dst)
}

// SigmoidFunc applies Sigmoid element-wise.
type SigmoidFunc struct{}

// Kind implements Func.
func (SigmoidFunc) Kind() Kind { return KindSigmoid }

// Apply implements Func.
func (SigmoidFunc) Apply(dst, z []float64) {
	for i, x := range z {
		dst[i] = Sigmoid(x)
	}
}

// Derivative implements Func. Only the activation a is read.
func (SigmoidFunc) Derivative(dst, _, a []float64) error {
	for i, y := range a {
		dst[i] = SigmoidPrime(y)
	}
	return nil
}

// LeakyReLUFunc applies LeakyReLU element-wise with slope Alpha.
type LeakyReLUFunc struct {
	Alpha float64
}

// Kind implements Func.
func (LeakyReLUFunc) Kind() Kind { return KindLeakyReLU }

// Apply implements Func.
func (f LeakyReLUFunc) Apply(dst, z []float64) {
	for i, x := range z {
		dst[i] = LeakyReLU(x, f.Alpha)
	}
}

// Derivative implements Func. Only the pre-activation z is read.
func (f LeakyReLUFunc) Derivative(dst, z, _ []float64) error {
	for i, x := range z {
		dst[i] = LeakyReLUPrime(x, f.Alpha)
	}
	return nil
}

// TanhFunc applies Tanh element-wise.
type TanhFunc struct{}

// Kind implements Func.
func (TanhFunc) Kind() Kind { return KindTanh }

// Apply implements Func.
func (TanhFunc) Apply(dst, z []float64) {
	for i, x := range z {
		dst[i] = Tanh(x)
	}
}

// Derivative implements Func. Only the activation a is read.
func (TanhFunc) Derivative(dst, _, a []float64) error {
	for i, y := range a {
		dst[i] = TanhPrime(y)
	}
	return nil
}

// SoftmaxFunc normalizes a whole layer. It is only valid on the output layer.
type SoftmaxFunc struct{}

// Kind implements Func.
func (SoftmaxFunc) Kind() Kind { return KindSoftmax }

// Apply implements Func.
func (SoftmaxFunc) Apply(dst, z []float64) {
	Softmax(dst, z)
}

// Derivative always fails with ErrNoDerivative.
func (SoftmaxFunc) Derivative(_, _, _ []float64) error {
	return ErrNoDerivative
}
