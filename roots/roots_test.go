package roots_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/roots"
)

func cubic(x float64) (float64, error) { return x*x*x - 2*x - 5, nil }

// TestBrent_Cubic solves the classic Wallis cubic.
func TestBrent_Cubic(t *testing.T) {
	r, err := roots.Brent(context.Background(), cubic, 2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0945514815423265, r.X, 1e-9)
	assert.Less(t, r.Iterations, 20)
}

// TestBrent_NoBracket rejects same-sign ends.
func TestBrent_NoBracket(t *testing.T) {
	_, err := roots.Brent(context.Background(), cubic, 3, 4)
	assert.ErrorIs(t, err, roots.ErrNoBracket)
}

// TestFind_ExpandsBracket grows a bad initial interval.
func TestFind_ExpandsBracket(t *testing.T) {
	f := func(x float64) (float64, error) { return math.Log(x) - 3, nil }
	r, err := roots.Find(context.Background(), f, 1, 2, roots.WithDomain(1e-9, 1e6))
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(3), r.X, 1e-7)
}

// TestFind_DomainExhausted reports ErrNoBracket.
func TestFind_DomainExhausted(t *testing.T) {
	f := func(x float64) (float64, error) { return x*x + 1, nil }
	_, err := roots.Find(context.Background(), f, -1, 1, roots.WithDomain(-10, 10))
	assert.ErrorIs(t, err, roots.ErrNoBracket)
}

// TestBrent_PropagatesResidualError aborts on a failing residual.
func TestBrent_PropagatesResidualError(t *testing.T) {
	boom := errors.New("boom")
	f := func(x float64) (float64, error) {
		if x > 2.5 {
			return 0, boom
		}

		return x - 2.7, nil
	}
	_, err := roots.Brent(context.Background(), f, 2, 3)
	assert.ErrorIs(t, err, boom)
}

// TestBrent_MaxIterations honours the budget.
func TestBrent_MaxIterations(t *testing.T) {
	_, err := roots.Brent(context.Background(), cubic, -100, 100, roots.WithMaxIter(2), roots.WithXTol(0, 0), roots.WithFTol(0))
	assert.ErrorIs(t, err, roots.ErrMaxIterations)
}

// TestBrent_Cancelled stops on a done context.
func TestBrent_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := roots.Brent(ctx, cubic, 2, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSecant_Smooth converges from a close guess.
func TestSecant_Smooth(t *testing.T) {
	r, err := roots.Secant(context.Background(), cubic, 2, 2.1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0945514815423265, r.X, 1e-8)
}
