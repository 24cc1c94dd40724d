package equilibrium

import (
	"context"
	"math"

	"github.com/katalvlaran/lvflow/roots"
)

// rachfordRice returns the vapor fraction V ∈ [0, 1] solving
//
//	Σ zᵢ(Kᵢ − 1) / (1 + V(Kᵢ − 1)) = 0
//
// over the indices in act. A sub-cooled feed returns 0, a superheated one 1.
func rachfordRice(ctx context.Context, z, K []float64, act []int, o Options) (float64, error) {
	f := func(V float64) (float64, error) {
		var s float64
		for _, i := range act {
			d := K[i] - 1
			s += z[i] * d / (1 + V*d)
		}

		return s, nil
	}
	f0, _ := f(0)
	if f0 <= 0 {
		return 0, nil
	}
	f1, _ := f(1)
	if f1 >= 0 {
		return 1, nil
	}
	res, err := roots.Brent(ctx, f, 0, 1,
		roots.WithXTol(1e-15, 1e-14), roots.WithFTol(1e-15), roots.WithMaxIter(o.MaxIter))
	if err != nil {
		return 0, notConverged("Rachford-Rice", err)
	}

	return math.Min(math.Max(res.X, 0), 1), nil
}

// phaseSplit writes the normalized phase compositions for vapor fraction V:
// xᵢ = zᵢ / (1 + V(Kᵢ − 1)), yᵢ = Kᵢxᵢ.
func phaseSplit(z, K []float64, act []int, V float64, x, y []float64) {
	var sx, sy float64
	for i := range x {
		x[i], y[i] = 0, 0
	}
	for _, i := range act {
		x[i] = z[i] / (1 + V*(K[i]-1))
		y[i] = K[i] * x[i]
		sx += x[i]
		sy += y[i]
	}
	for _, i := range act {
		x[i] /= sx
		y[i] /= sy
	}
}
