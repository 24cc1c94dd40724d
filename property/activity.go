package property

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/thermo"
)

// ActivityModel computes liquid-phase ln γᵢ. Implementations are read-only
// after construction; x is a full-length, non-negative vector that the model
// normalizes itself.
type ActivityModel interface {
	// Name identifies the model in logs and configuration.
	Name() string

	// LnGamma writes ln γᵢ(x, T) into out, which has len(x).
	LnGamma(x []float64, T float64, out []float64) error
}

// Ideal is the Raoult's-law model, γᵢ ≡ 1.
type Ideal struct{}

// Name implements ActivityModel.
func (Ideal) Name() string { return "ideal" }

// LnGamma implements ActivityModel.
func (Ideal) LnGamma(x []float64, _ float64, out []float64) error {
	for i := range out {
		out[i] = 0
	}

	return nil
}

// NRTL is the non-random two-liquid model with τᵢⱼ = aᵢⱼ + bᵢⱼ/T and
// Gᵢⱼ = exp(−αᵢⱼ·τᵢⱼ). Matrices are n×n with zero diagonals.
type NRTL struct {
	A     [][]float64
	B     [][]float64
	Alpha [][]float64
}

// NewNRTL returns an all-zero (ideal) NRTL for n components.
func NewNRTL(n int) *NRTL {
	return &NRTL{A: square(n), B: square(n), Alpha: square(n)}
}

// SetPair assigns the binary parameters between i and j.
// aij/bij build τᵢⱼ, aji/bji build τⱼᵢ, alpha is symmetric.
func (m *NRTL) SetPair(i, j int, aij, bij, aji, bji, alpha float64) {
	m.A[i][j], m.B[i][j] = aij, bij
	m.A[j][i], m.B[j][i] = aji, bji
	m.Alpha[i][j], m.Alpha[j][i] = alpha, alpha
}

// Name implements ActivityModel.
func (m *NRTL) Name() string { return "nrtl" }

// LnGamma implements ActivityModel.
//
//	ln γᵢ = Σⱼ xⱼτⱼᵢGⱼᵢ / Σₖ xₖGₖᵢ
//	      + Σⱼ (xⱼGᵢⱼ / Σₖ xₖGₖⱼ)(τᵢⱼ − Σₘ xₘτₘⱼGₘⱼ / Σₖ xₖGₖⱼ)
func (m *NRTL) LnGamma(x []float64, T float64, out []float64) error {
	n := len(x)
	if len(m.A) != n || len(out) != n {
		return fmt.Errorf("%w: nrtl sized %d, x has %d", thermo.ErrDimensionMismatch, len(m.A), n)
	}
	xs := normalized(x)
	tau := square(n)
	g := square(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tau[i][j] = m.A[i][j] + m.B[i][j]/T
			g[i][j] = math.Exp(-m.Alpha[i][j] * tau[i][j])
		}
	}

	// den[j] = Σₖ xₖGₖⱼ, num[j] = Σₘ xₘτₘⱼGₘⱼ
	den := make([]float64, n)
	num := make([]float64, n)
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			den[j] += xs[k] * g[k][j]
			num[j] += xs[k] * tau[k][j] * g[k][j]
		}
	}
	for i := 0; i < n; i++ {
		v := num[i] / den[i]
		for j := 0; j < n; j++ {
			v += xs[j] * g[i][j] / den[j] * (tau[i][j] - num[j]/den[j])
		}
		out[i] = v
	}

	return nil
}

// Margules is the multicomponent regular-solution form
//
//	ln γᵢ = Σⱼ Aᵢⱼxⱼ − ½ ΣⱼΣₖ Aⱼₖxⱼxₖ
//
// with a symmetric, zero-diagonal A. For a binary it reduces to the
// one-parameter Margules model ln γ₁ = A·x₂².
type Margules struct {
	A [][]float64
}

// NewMargules returns a zero (ideal) interaction matrix for n components.
func NewMargules(n int) *Margules { return &Margules{A: square(n)} }

// SetPair assigns the symmetric interaction between i and j.
func (m *Margules) SetPair(i, j int, a float64) {
	m.A[i][j], m.A[j][i] = a, a
}

// Name implements ActivityModel.
func (m *Margules) Name() string { return "margules" }

// LnGamma implements ActivityModel.
func (m *Margules) LnGamma(x []float64, _ float64, out []float64) error {
	n := len(x)
	if len(m.A) != n || len(out) != n {
		return fmt.Errorf("%w: margules sized %d, x has %d", thermo.ErrDimensionMismatch, len(m.A), n)
	}
	xs := normalized(x)
	var quad float64
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			quad += m.A[j][k] * xs[j] * xs[k]
		}
	}
	for i := 0; i < n; i++ {
		var lin float64
		for j := 0; j < n; j++ {
			lin += m.A[i][j] * xs[j]
		}
		out[i] = lin - 0.5*quad
	}

	return nil
}

// nrtlPair is one row of the built-in NRTL table, keyed by (I, J).
type nrtlPair struct {
	I, J               string
	Aij, Bij, Aji, Bji float64
	Alpha              float64
}

// Regressed VLE parameters at atmospheric pressure.
var nrtlPairs = []nrtlPair{
	{I: "Ethanol", J: "Water", Aij: -0.9852, Bij: 302.2365, Aji: 3.7555, Bji: -676.0314, Alpha: 0.3},
	{I: "Methanol", J: "Water", Aij: 0, Bij: -24.4933, Aji: 0, Bji: 307.1726, Alpha: 0.3},
}

// DefaultNRTL returns an NRTL model for cs with every built-in pair whose
// two members are present. Unknown pairs stay ideal.
func DefaultNRTL(cs *thermo.ComponentSet) *NRTL {
	m := NewNRTL(cs.Len())
	for _, p := range nrtlPairs {
		i, err1 := cs.Index(p.I)
		j, err2 := cs.Index(p.J)
		if err1 != nil || err2 != nil {
			continue
		}
		m.SetPair(i, j, p.Aij, p.Bij, p.Aji, p.Bji, p.Alpha)
	}

	return m
}

func square(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}

	return out
}

// normalized returns x/Σx, or x unchanged when the sum is not positive.
func normalized(x []float64) []float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	out := make([]float64, len(x))
	if s <= 0 {
		copy(out, x)

		return out
	}
	for i, v := range x {
		out[i] = v / s
	}

	return out
}
