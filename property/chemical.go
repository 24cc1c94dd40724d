package property

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Sentinel errors for the reference property package.
var (
	// ErrUnknownChemical is returned by Lookup for IDs outside the catalog.
	ErrUnknownChemical = errors.New("property: unknown chemical")

	// ErrBadChemical indicates missing or non-physical pure-component data.
	ErrBadChemical = errors.New("property: invalid chemical data")

	// ErrOutOfRange indicates a state outside the correlation's domain.
	ErrOutOfRange = errors.New("property: state outside correlation range")
)

// Tref is the enthalpy/entropy reference temperature [K].
const Tref = 298.15

// R is the gas constant [J/(mol·K)].
const R = 8.314462618

// Antoine holds log10(P/Pa) = A − B/(T/K + C).
type Antoine struct {
	A float64 `yaml:"A" mapstructure:"A"`
	B float64 `yaml:"B" mapstructure:"B"`
	C float64 `yaml:"C" mapstructure:"C"`
}

// Pressure returns the vapor pressure [Pa] at T [K].
func (a Antoine) Pressure(T float64) (float64, error) {
	den := T + a.C
	if den <= 0 {
		return 0, fmt.Errorf("%w: Antoine denominator T+C=%g", ErrOutOfRange, den)
	}

	return math.Pow(10, a.A-a.B/den), nil
}

// Temperature inverts Pressure.
func (a Antoine) Temperature(P float64) (float64, error) {
	if P <= 0 {
		return 0, fmt.Errorf("%w: P=%g", ErrOutOfRange, P)
	}
	den := a.A - math.Log10(P)
	if den <= 0 {
		return 0, fmt.Errorf("%w: P=%g Pa above Antoine asymptote", ErrOutOfRange, P)
	}

	return a.B/den - a.C, nil
}

// Chemical is the pure-component data the reference package needs.
type Chemical struct {
	ID      string  `yaml:"id" mapstructure:"id"`
	MW      float64 `yaml:"mw" mapstructure:"mw"`     // g/mol
	Antoine Antoine `yaml:"antoine" mapstructure:"antoine"`
	Tb      float64 `yaml:"tb" mapstructure:"tb"`     // normal boiling point [K]
	Hvap    float64 `yaml:"hvap" mapstructure:"hvap"` // latent heat at Tb [J/mol]
	CpL     float64 `yaml:"cpl" mapstructure:"cpl"`   // liquid heat capacity [J/(mol·K)]
	CpV     float64 `yaml:"cpv" mapstructure:"cpv"`   // ideal-gas heat capacity [J/(mol·K)]
}

// Validate checks the fields that enter the correlations.
func (c Chemical) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: empty ID", ErrBadChemical)
	case c.Antoine.B <= 0:
		return fmt.Errorf("%w: %s: Antoine B must be positive", ErrBadChemical, c.ID)
	case c.Tb <= 0:
		return fmt.Errorf("%w: %s: Tb must be positive", ErrBadChemical, c.ID)
	case c.Hvap < 0 || c.CpL <= 0 || c.CpV <= 0:
		return fmt.Errorf("%w: %s: caloric data must be positive", ErrBadChemical, c.ID)
	}

	return nil
}

// Antoine constants converted from the classic mmHg/°C tables:
// A_Pa = A_mmHg + log10(133.322), C_K = C_°C − 273.15.
var catalog = map[string]Chemical{
	"Water": {
		ID: "Water", MW: 18.015,
		Antoine: Antoine{A: 10.19622, B: 1730.63, C: -39.724},
		Tb:      373.15, Hvap: 40660, CpL: 75.3, CpV: 33.6,
	},
	"Ethanol": {
		ID: "Ethanol", MW: 46.069,
		Antoine: Antoine{A: 10.32908, B: 1642.89, C: -42.85},
		Tb:      351.44, Hvap: 38560, CpL: 112.4, CpV: 65.6,
	},
	"Methanol": {
		ID: "Methanol", MW: 32.042,
		Antoine: Antoine{A: 10.20588, B: 1582.271, C: -33.424},
		Tb:      337.85, Hvap: 35210, CpL: 81.1, CpV: 44.1,
	},
	"Benzene": {
		ID: "Benzene", MW: 78.114,
		Antoine: Antoine{A: 9.03056, B: 1211.033, C: -52.36},
		Tb:      353.2, Hvap: 30720, CpL: 136.0, CpV: 82.4,
	},
	"Toluene": {
		ID: "Toluene", MW: 92.141,
		Antoine: Antoine{A: 9.07955, B: 1344.8, C: -53.668},
		Tb:      383.8, Hvap: 33180, CpL: 157.0, CpV: 103.7,
	},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Chemical, error) {
	c, ok := catalog[id]
	if !ok {
		return Chemical{}, fmt.Errorf("%w: %q", ErrUnknownChemical, id)
	}

	return c, nil
}

// LookupAll resolves several catalog entries, preserving order.
func LookupAll(ids ...string) ([]Chemical, error) {
	out := make([]Chemical, 0, len(ids))
	for _, id := range ids {
		c, err := Lookup(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, nil
}

// CatalogIDs lists the built-in chemicals in lexical order.
func CatalogIDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
