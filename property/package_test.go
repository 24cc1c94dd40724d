package property_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/thermo"
)

func ethanolWater(t *testing.T) *property.Package {
	t.Helper()
	cs := thermo.MustComponentSet("Ethanol", "Water")
	pkg, err := property.NewFromCatalog(cs.IDs(), property.WithActivityModel(property.DefaultNRTL(cs)))
	require.NoError(t, err)

	return pkg
}

// TestAntoine_NormalBoilingPoint checks the catalog against Tb at 1 atm.
func TestAntoine_NormalBoilingPoint(t *testing.T) {
	for _, id := range property.CatalogIDs() {
		c, err := property.Lookup(id)
		require.NoError(t, err)
		p, err := c.Antoine.Pressure(c.Tb)
		require.NoError(t, err)
		assert.InEpsilon(t, 101325.0, p, 0.01, id)

		T, err := c.Antoine.Temperature(p)
		require.NoError(t, err)
		assert.InDelta(t, c.Tb, T, 1e-9, id)
	}
}

// TestLookup_Unknown returns the sentinel.
func TestLookup_Unknown(t *testing.T) {
	_, err := property.Lookup("Unobtainium")
	assert.ErrorIs(t, err, property.ErrUnknownChemical)

	_, err = property.NewFromCatalog([]string{"Water", "Unobtainium"})
	assert.ErrorIs(t, err, property.ErrUnknownChemical)
}

// TestNew_RejectsBadData covers Chemical.Validate and duplicate IDs.
func TestNew_RejectsBadData(t *testing.T) {
	w, _ := property.Lookup("Water")
	bad := w
	bad.CpL = 0
	_, err := property.New([]property.Chemical{bad})
	assert.ErrorIs(t, err, property.ErrBadChemical)

	_, err = property.New([]property.Chemical{w, w})
	assert.ErrorIs(t, err, thermo.ErrDuplicateComponent)
}

// TestNRTL_InfiniteDilution reproduces ln γ∞ of ethanol in water.
func TestNRTL_InfiniteDilution(t *testing.T) {
	pkg := ethanolWater(t)
	g, err := pkg.Activity(thermo.Liquid, []float64{0, 1}, 351.44)
	require.NoError(t, err)
	assert.InDelta(t, 1.7019, math.Log(g[0]), 1e-3)
	assert.InDelta(t, 1.0, g[1], 1e-12)
}

// TestMargules_Binary reduces to ln γ₁ = A·x₂².
func TestMargules_Binary(t *testing.T) {
	m := property.NewMargules(2)
	m.SetPair(0, 1, 3)
	out := make([]float64, 2)
	require.NoError(t, m.LnGamma([]float64{0.2, 0.8}, 300, out))
	assert.InDelta(t, 3*0.8*0.8, out[0], 1e-12)
	assert.InDelta(t, 3*0.2*0.2, out[1], 1e-12)

	assert.ErrorIs(t, m.LnGamma([]float64{1}, 300, out[:1]), thermo.ErrDimensionMismatch)
}

// TestFugacity_IdealGasAndRaoult checks both phase branches.
func TestFugacity_IdealGasAndRaoult(t *testing.T) {
	pkg, err := property.NewFromCatalog([]string{"Benzene", "Toluene"})
	require.NoError(t, err)
	x := []float64{0.4, 0.6}

	phiV, err := pkg.Fugacity(thermo.Vapor, x, 360, 101325)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, phiV)

	phiL, err := pkg.Fugacity(thermo.Liquid, x, 360, 101325)
	require.NoError(t, err)
	psat, err := pkg.Saturation(0, 360)
	require.NoError(t, err)
	assert.InDelta(t, psat/101325, phiL[0], 1e-12)

	_, err = pkg.Fugacity(thermo.Liquid, x, -1, 101325)
	assert.ErrorIs(t, err, thermo.ErrInvalidCondition)
	_, err = pkg.Fugacity(thermo.Liquid, []float64{1}, 360, 101325)
	assert.ErrorIs(t, err, thermo.ErrDimensionMismatch)
}

// TestEnthalpy_LatentHeat recovers Hvap at Tb.
func TestEnthalpy_LatentHeat(t *testing.T) {
	pkg, err := property.NewFromCatalog([]string{"Water"})
	require.NoError(t, err)
	hl, err := pkg.Enthalpy(thermo.Liquid, []float64{1}, 373.15, 101325)
	require.NoError(t, err)
	hv, err := pkg.Enthalpy(thermo.Vapor, []float64{1}, 373.15, 101325)
	require.NoError(t, err)
	assert.InDelta(t, 40660.0, hv-hl, 1e-6)

	h0, err := pkg.Enthalpy(thermo.Liquid, []float64{1}, property.Tref, 101325)
	require.NoError(t, err)
	assert.Zero(t, h0)
}

// TestEntropy_Vaporization gives ΔS = Hvap/Tb at the reference pressure.
func TestEntropy_Vaporization(t *testing.T) {
	pkg, err := property.NewFromCatalog([]string{"Water"})
	require.NoError(t, err)
	c := pkg.Chemical(0)
	p, err := c.Antoine.Pressure(c.Tb)
	require.NoError(t, err)

	sl, err := pkg.Entropy(thermo.Liquid, []float64{1}, c.Tb, p)
	require.NoError(t, err)
	sv, err := pkg.Entropy(thermo.Vapor, []float64{1}, c.Tb, p)
	require.NoError(t, err)
	assert.InDelta(t, c.Hvap/c.Tb, sv-sl, 1e-9)

	// Mixing raises the entropy of a binary liquid at fixed T.
	bin, err := property.NewFromCatalog([]string{"Benzene", "Toluene"})
	require.NoError(t, err)
	pure, _ := bin.Entropy(thermo.Liquid, []float64{1, 0}, 300, 1e5)
	mixed, _ := bin.Entropy(thermo.Liquid, []float64{0.5, 0.5}, 300, 1e5)
	pureT, _ := bin.Entropy(thermo.Liquid, []float64{0, 1}, 300, 1e5)
	assert.Greater(t, mixed, 0.5*(pure+pureT))
}

// TestPackage_ConcurrentReads exercises the shared-provider contract.
func TestPackage_ConcurrentReads(t *testing.T) {
	pkg := ethanolWater(t)
	want, err := pkg.Fugacity(thermo.Liquid, []float64{0.3, 0.7}, 355, 101325)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				got, err := pkg.Fugacity(thermo.Liquid, []float64{0.3, 0.7}, 355, 101325)
				if assert.NoError(t, err) {
					assert.Equal(t, want, got)
				}
			}
		}()
	}
	wg.Wait()
}
