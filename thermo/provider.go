package thermo

import "fmt"

// PropertyProvider is the thermodynamic property capability consumed by the
// equilibrium solvers. Implementations must be pure functions of their
// arguments and safe for concurrent read-only use: one provider is typically
// shared by every solver instance of a flowsheet.
//
// Composition arguments are mole fractions aligned with Components(); they
// need not be normalized by the caller but must be non-negative.
type PropertyProvider interface {
	// Components returns the component list every vector is aligned with.
	Components() *ComponentSet

	// Fugacity returns fugacity coefficients φᵢ of phase at (T, P).
	// For liquid phases the coefficient is γᵢ·Psatᵢ/P so that the fugacity
	// is always xᵢ·φᵢ·P regardless of phase.
	Fugacity(phase Phase, x []float64, T, P float64) ([]float64, error)

	// Activity returns liquid activity coefficients γᵢ at T.
	Activity(phase Phase, x []float64, T float64) ([]float64, error)

	// Saturation returns the vapor pressure [Pa] of component i at T.
	Saturation(i int, T float64) (float64, error)

	// SaturationTemperature is the inverse of Saturation [K].
	SaturationTemperature(i int, P float64) (float64, error)

	// Enthalpy returns the molar enthalpy [J/mol] of phase at (T, P).
	Enthalpy(phase Phase, x []float64, T, P float64) (float64, error)

	// Entropy returns the molar entropy [J/(mol·K)] of phase at (T, P).
	Entropy(phase Phase, x []float64, T, P float64) (float64, error)
}

// KValues returns Kᵢ = φᵢᴸ(x) / φᵢⱽ(y) at (T, P), i.e. yᵢ/xᵢ at equilibrium.
// x and y are full-length mole-fraction vectors.
func KValues(p PropertyProvider, x, y []float64, T, P float64) ([]float64, error) {
	phiL, err := p.Fugacity(Liquid, x, T, P)
	if err != nil {
		return nil, fmt.Errorf("thermo: liquid fugacity: %w", err)
	}
	phiV, err := p.Fugacity(Vapor, y, T, P)
	if err != nil {
		return nil, fmt.Errorf("thermo: vapor fugacity: %w", err)
	}
	k := make([]float64, len(phiL))
	for i := range k {
		k[i] = phiL[i] / phiV[i]
	}

	return k, nil
}
