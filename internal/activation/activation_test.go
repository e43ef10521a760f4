package activation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// samplePoints spans typical inputs, zero and large magnitudes.
var samplePoints = []float64{
	-50, -20, -8, -4, -3, -2, -1.5, -1, -0.5, -0.25, -0.1, -1e-3,
	0,
	1e-3, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 4, 8, 20, 50,
}

func numericalSlope(f func(float64) float64, x float64, formula fd.Formula) float64 {
	return fd.Derivative(f, x, &fd.Settings{Formula: formula, Step: 1e-6})
}

func TestSigmoidDerivativeMatchesNumerical(t *testing.T) {
	require.GreaterOrEqual(t, len(samplePoints), 20)
	for _, x := range samplePoints {
		want := numericalSlope(Sigmoid, x, fd.Central)
		got := SigmoidPrime(Sigmoid(x))
		assert.InDelta(t, want, got, 1e-6, "sigmoid'(%v)", x)
	}
}

func TestTanhDerivativeMatchesNumerical(t *testing.T) {
	for _, x := range samplePoints {
		want := numericalSlope(Tanh, x, fd.Central)
		got := TanhPrime(Tanh(x))
		assert.InDelta(t, want, got, 1e-6, "tanh'(%v)", x)
	}
}

func TestLeakyReLUDerivativeMatchesNumerical(t *testing.T) {
	alpha := DefaultLeakyAlpha
	f := func(x float64) float64 { return LeakyReLU(x, alpha) }

	for _, x := range samplePoints {
		// The kink at zero resolves toward the positive branch, which is the
		// forward difference.
		formula := fd.Central
		if x == 0 {
			formula = fd.Forward
		}
		want := numericalSlope(f, x, formula)
		got := LeakyReLUPrime(x, alpha)
		assert.InDelta(t, want, got, 1e-6, "leakyReLU'(%v)", x)
	}
}

func TestLeakyReLUTieIsPositive(t *testing.T) {
	assert.Equal(t, 1.0, LeakyReLUPrime(0, 0.1))
	assert.Equal(t, 0.1, LeakyReLUPrime(-1e-12, 0.1))
	assert.Equal(t, 0.0, LeakyReLU(0, 0.1))
}

func TestSigmoidExtremesStayFinite(t *testing.T) {
	for _, x := range []float64{-1e6, -800, 800, 1e6} {
		y := Sigmoid(x)
		assert.False(t, math.IsNaN(y) || math.IsInf(y, 0), "sigmoid(%v) = %v", x, y)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, 1.0)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	cases := [][]float64{
		{0},
		{1, 2, 3},
		{-1000, 0, 1000},
		{5, 5, 5, 5},
		{0.1, -0.3, 2.7, 1e-9},
	}
	for _, v := range cases {
		out := make([]float64, len(v))
		Softmax(out, v)
		assert.InDelta(t, 1.0, floats.Sum(out), 1e-12, "softmax(%v)", v)
		for _, p := range out {
			assert.False(t, math.IsNaN(p))
		}
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	v := []float64{0.5, -1.25, 3, 2}
	base := make([]float64, len(v))
	Softmax(base, v)

	for _, c := range []float64{-100, -1, 0.5, 42, 700} {
		shifted := make([]float64, len(v))
		copy(shifted, v)
		floats.AddConst(c, shifted)

		out := make([]float64, len(v))
		Softmax(out, shifted)
		for i := range out {
			assert.InDelta(t, base[i], out[i], 1e-12, "shift %v index %d", c, i)
		}
	}
}

func TestSoftmaxInPlace(t *testing.T) {
	v := []float64{1, 2, 3}
	Softmax(v, v)
	assert.InDelta(t, 1.0, floats.Sum(v), 1e-12)
	assert.Greater(t, v[2], v[1])
	assert.Greater(t, v[1], v[0])
}

func TestFuncVectorForms(t *testing.T) {
	z := []float64{-2, -0.5, 0, 0.5, 2}

	tests := []struct {
		kind   Kind
		scalar func(float64) float64
		slope  func(z, a float64) float64
	}{
		{KindSigmoid, Sigmoid, func(_, a float64) float64 { return SigmoidPrime(a) }},
		{KindTanh, Tanh, func(_, a float64) float64 { return TanhPrime(a) }},
		{
			KindLeakyReLU,
			func(x float64) float64 { return LeakyReLU(x, DefaultLeakyAlpha) },
			func(x, _ float64) float64 { return LeakyReLUPrime(x, DefaultLeakyAlpha) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			f, err := New(tt.kind, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind())

			a := make([]float64, len(z))
			f.Apply(a, z)
			d := make([]float64, len(z))
			require.NoError(t, f.Derivative(d, z, a))

			for i := range z {
				assert.InDelta(t, tt.scalar(z[i]), a[i], 1e-15)
				assert.InDelta(t, tt.slope(z[i], a[i]), d[i], 1e-15)
			}
		})
	}
}

func TestSoftmaxHasNoDerivative(t *testing.T) {
	f, err := New(KindSoftmax, 0)
	require.NoError(t, err)
	err = f.Derivative(make([]float64, 2), []float64{1, 2}, []float64{0.3, 0.7})
	assert.ErrorIs(t, err, ErrNoDerivative)
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" Leaky-ReLU ")
	require.NoError(t, err)
	assert.Equal(t, KindLeakyReLU, got)

	_, err = ParseKind("relu6")
	assert.Error(t, err)
}

func TestKindTextRoundTrip(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("tanh")))
	assert.Equal(t, KindTanh, k)

	text, err := KindSoftmax.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "softmax", string(text))

	_, err = Kind(99).MarshalText()
	assert.Error(t, err)
}

func TestNewLeakyAlphaDefault(t *testing.T) {
	f, err := New(KindLeakyReLU, -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultLeakyAlpha, f.(LeakyReLUFunc).Alpha)

	_, err = New(Kind(42), 0)
	assert.Error(t, err)
}
