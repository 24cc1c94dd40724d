package equilibrium_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/thermo"
)

const atm = 101325.0

// benzeneToluene is an ideal binary.
func benzeneToluene(t *testing.T) *property.Package {
	t.Helper()
	pkg, err := property.NewFromCatalog([]string{"Benzene", "Toluene"})
	require.NoError(t, err)

	return pkg
}

// waterEthanol is the NRTL binary in (Water, Ethanol) order.
func waterEthanol(t *testing.T) *property.Package {
	t.Helper()
	cs := thermo.MustComponentSet("Water", "Ethanol")
	pkg, err := property.NewFromCatalog(cs.IDs(), property.WithActivityModel(property.DefaultNRTL(cs)))
	require.NoError(t, err)

	return pkg
}

// twinMargules is two chemicals with identical vapor pressures and a
// symmetric Margules interaction a.
func twinMargules(t *testing.T, a float64) *property.Package {
	t.Helper()
	base, err := property.Lookup("Benzene")
	require.NoError(t, err)
	A, B := base, base
	A.ID, B.ID = "A", "B"
	m := property.NewMargules(2)
	m.SetPair(0, 1, a)
	pkg, err := property.New([]property.Chemical{A, B}, property.WithActivityModel(m))
	require.NoError(t, err)

	return pkg
}

func psat(t *testing.T, p *property.Package, i int, T float64) float64 {
	t.Helper()
	v, err := p.Saturation(i, T)
	require.NoError(t, err)

	return v
}

// TestBubble_IdealRaoult matches ΣzPsat and the incipient vapor.
func TestBubble_IdealRaoult(t *testing.T) {
	pkg := benzeneToluene(t)
	s, err := equilibrium.NewBubblePointSolver(pkg)
	require.NoError(t, err)

	z := []float64{0.4, 0.6}
	T := 365.0
	p0, p1 := psat(t, pkg, 0, T), psat(t, pkg, 1, T)
	bub, err := s.SolveAtT(context.Background(), z, T)
	require.NoError(t, err)
	want := 0.4*p0 + 0.6*p1
	assert.InEpsilon(t, want, bub.P, 1e-7)
	assert.InDelta(t, 0.4*p0/want, bub.Y[0], 1e-7)
	assert.InDelta(t, 1.0, material.Sum(bub.Y), 1e-12)
	assert.Equal(t, []string{"Benzene", "Toluene"}, bub.Components)
}

// TestBubbleDew_Envelope checks P_dew ≤ P_bubble and that the dew point of
// the incipient vapor returns the original liquid.
func TestBubbleDew_Envelope(t *testing.T) {
	ctx := context.Background()
	for name, pkg := range map[string]*property.Package{
		"ideal": benzeneToluene(t),
		"nrtl":  waterEthanol(t),
	} {
		t.Run(name, func(t *testing.T) {
			bs, err := equilibrium.NewBubblePointSolver(pkg)
			require.NoError(t, err)
			ds, err := equilibrium.NewDewPointSolver(pkg)
			require.NoError(t, err)

			z := []float64{0.3, 0.7}
			T := 360.0
			bub, err := bs.SolveAtT(ctx, z, T)
			require.NoError(t, err)
			dew, err := ds.SolveAtT(ctx, z, T)
			require.NoError(t, err)
			assert.LessOrEqual(t, dew.P, bub.P)
			assert.InDelta(t, 1.0, material.Sum(dew.X), 1e-12)

			back, err := ds.SolveAtT(ctx, bub.Y, T)
			require.NoError(t, err)
			assert.InEpsilon(t, bub.P, back.P, 1e-6)
			assert.InDelta(t, z[0], back.X[0], 1e-6)
		})
	}
}

// TestBubble_AtPRoundTrip inverts SolveAtT with SolveAtP.
func TestBubble_AtPRoundTrip(t *testing.T) {
	ctx := context.Background()
	pkg := waterEthanol(t)
	s, err := equilibrium.NewBubblePointSolver(pkg)
	require.NoError(t, err)
	ds, err := equilibrium.NewDewPointSolver(pkg)
	require.NoError(t, err)

	z := []float64{0.5, 0.5}
	bub, err := s.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.Greater(t, bub.T, 345.0)
	assert.Less(t, bub.T, 365.0)

	again, err := s.SolveAtT(ctx, z, bub.T)
	require.NoError(t, err)
	assert.InEpsilon(t, atm, again.P, 1e-6)

	dew, err := ds.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, dew.T, bub.T)
}

// TestBubble_PureComponent short-circuits to the saturation point.
func TestBubble_PureComponent(t *testing.T) {
	ctx := context.Background()
	pkg := benzeneToluene(t)
	s, err := equilibrium.NewBubblePointSolver(pkg)
	require.NoError(t, err)

	bub, err := s.SolveAtT(ctx, []float64{0, 2}, 380)
	require.NoError(t, err)
	assert.Equal(t, psat(t, pkg, 1, 380), bub.P)
	assert.Equal(t, []float64{0, 1}, bub.Y)

	ds, err := equilibrium.NewDewPointSolver(pkg)
	require.NoError(t, err)
	dew, err := ds.SolveAtP(ctx, []float64{1, 0}, atm)
	require.NoError(t, err)
	assert.InDelta(t, 353.2, dew.T, 0.5)
}

// TestBubble_DegenerateInput rejects bad input before iterating.
func TestBubble_DegenerateInput(t *testing.T) {
	ctx := context.Background()
	s, err := equilibrium.NewBubblePointSolver(benzeneToluene(t))
	require.NoError(t, err)

	_, err = s.SolveAtT(ctx, []float64{0, 0}, 360)
	assert.ErrorIs(t, err, equilibrium.ErrDegenerateInput)
	_, err = s.SolveAtT(ctx, []float64{1}, 360)
	assert.ErrorIs(t, err, thermo.ErrDimensionMismatch)
	_, err = s.SolveAtP(ctx, []float64{0.5, 0.5}, -1)
	assert.ErrorIs(t, err, thermo.ErrInvalidCondition)
	_, err = equilibrium.NewDewPointSolver(nil)
	assert.ErrorIs(t, err, equilibrium.ErrDegenerateInput)
}

// TestBubble_ColdStartIsReproducible gives bit-identical answers.
func TestBubble_ColdStartIsReproducible(t *testing.T) {
	ctx := context.Background()
	pkg := waterEthanol(t)
	s, err := equilibrium.NewBubblePointSolver(pkg, equilibrium.WithColdStart())
	require.NoError(t, err)

	z := []float64{0.7, 0.3}
	first, err := s.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	_, err = s.SolveAtP(ctx, []float64{0.2, 0.8}, 2*atm)
	require.NoError(t, err)
	second, err := s.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestBubble_WarmStartAndReset keeps answers within tolerance.
func TestBubble_WarmStartAndReset(t *testing.T) {
	ctx := context.Background()
	pkg := waterEthanol(t)
	cold, err := equilibrium.NewBubblePointSolver(pkg, equilibrium.WithColdStart())
	require.NoError(t, err)
	warm, err := equilibrium.NewBubblePointSolver(pkg)
	require.NoError(t, err)

	z := []float64{0.6, 0.4}
	ref, err := cold.SolveAtP(ctx, z, atm)
	require.NoError(t, err)

	warm.WarmStart(equilibrium.BubblePoint{T: 340, P: atm, Y: []float64{0.5, 0.5}})
	got, err := warm.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.InDelta(t, ref.T, got.T, 1e-5)

	// cached answer on unchanged input
	again, err := warm.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	warm.Reset()
	got, err = warm.SolveAtP(ctx, z, atm)
	require.NoError(t, err)
	assert.InDelta(t, ref.T, got.T, 1e-5)
}
