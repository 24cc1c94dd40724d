package equilibrium_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/equilibrium"
)

// tight leaves two outer and two inner iterations, cold.
var tight = []equilibrium.Option{equilibrium.WithMaxIterations(2, 2), equilibrium.WithColdStart()}

// TestPoints_IterationBudget surfaces an exhausted budget as ErrDidNotConverge.
func TestPoints_IterationBudget(t *testing.T) {
	ctx := context.Background()
	pkg := waterEthanol(t)
	z := []float64{0.5, 0.5}

	// bubble at T is linear in ln P and settles within the budget
	bs, err := equilibrium.NewBubblePointSolver(pkg, tight...)
	require.NoError(t, err)
	_, err = bs.SolveAtP(ctx, z, atm)
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge, "bubble at P")

	ds, err := equilibrium.NewDewPointSolver(pkg, tight...)
	require.NoError(t, err)
	_, err = ds.SolveAtT(ctx, z, 350)
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge, "dew at T")
	_, err = ds.SolveAtP(ctx, z, atm)
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge, "dew at P")
}

// TestVLE_IterationBudget fails instead of returning an unconverged split.
func TestVLE_IterationBudget(t *testing.T) {
	pkg := waterEthanol(t)
	ix := liquidFeed(t, pkg, 355, atm, 5, 5)
	vle, err := equilibrium.NewVLE(pkg, ix, tight...)
	require.NoError(t, err)

	_, err = vle.Solve(context.Background(), equilibrium.AtVP(0.5, atm))
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge)
	assert.Equal(t, 355.0, ix.Condition().T, "a failed solve leaves the indexer alone")
}

// TestLLE_IterationBudget reports the budget, not a miscible liquid.
func TestLLE_IterationBudget(t *testing.T) {
	lle, err := equilibrium.NewLLE(twinMargules(t, 3), tight...)
	require.NoError(t, err)

	r, err := lle.Solve(context.Background(), []float64{0.5, 0.5}, 300)
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge)
	assert.False(t, r.Miscible)
}

// TestVLLE_IterationBudget propagates the liquid-liquid failure.
func TestVLLE_IterationBudget(t *testing.T) {
	pkg := twinMargules(t, 3)
	T := 300.0
	P := 3 * psat(t, pkg, 0, T)
	s, err := equilibrium.NewVLLE(pkg, liquidFeed(t, pkg, T, P, 5, 5), tight...)
	require.NoError(t, err)

	_, err = s.Solve(context.Background(), equilibrium.AtTP(T, P))
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge)
}
