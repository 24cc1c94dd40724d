package equilibrium

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind tags which pair of state variables a Specification fixes.
type Kind int

const (
	KindInvalid Kind = iota
	KindTP           // temperature and pressure
	KindVP           // vapor fraction and pressure
	KindVT           // vapor fraction and temperature
	KindHP           // molar enthalpy and pressure
	KindSP           // molar entropy and pressure
	KindXP           // liquid composition and pressure (binary)
	KindYP           // vapor composition and pressure (binary)
)

var kindNames = map[Kind]string{
	KindTP: "T,P", KindVP: "V,P", KindVT: "V,T", KindHP: "H,P",
	KindSP: "S,P", KindXP: "x,P", KindYP: "y,P",
}

// String returns the variable pair, e.g. "V,P".
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Specification is the tagged variant a flash is dispatched on. Only the
// fields named by Kind are meaningful. H is J/mol and S is J/(mol·K) of
// the whole feed.
type Specification struct {
	Kind Kind
	T, P float64
	V    float64
	H, S float64
	X, Y []float64
}

// AtTP fixes temperature [K] and pressure [Pa].
func AtTP(T, P float64) Specification { return Specification{Kind: KindTP, T: T, P: P} }

// AtVP fixes the vapor molar fraction and pressure.
func AtVP(V, P float64) Specification { return Specification{Kind: KindVP, V: V, P: P} }

// AtVT fixes the vapor molar fraction and temperature.
func AtVT(V, T float64) Specification { return Specification{Kind: KindVT, V: V, T: T} }

// AtHP fixes the feed molar enthalpy and pressure.
func AtHP(H, P float64) Specification { return Specification{Kind: KindHP, H: H, P: P} }

// AtSP fixes the feed molar entropy and pressure.
func AtSP(S, P float64) Specification { return Specification{Kind: KindSP, S: S, P: P} }

// AtXP fixes the liquid mole fractions and pressure (binary systems).
func AtXP(x []float64, P float64) Specification {
	return Specification{Kind: KindXP, X: append([]float64(nil), x...), P: P}
}

// AtYP fixes the vapor mole fractions and pressure (binary systems).
func AtYP(y []float64, P float64) Specification {
	return Specification{Kind: KindYP, Y: append([]float64(nil), y...), P: P}
}

// Validate checks the fields selected by Kind.
func (s Specification) Validate() error {
	bad := func(name string, v float64) error {
		return fmt.Errorf("%w: %s=%g", ErrInvalidSpecification, name, v)
	}
	posT := func() error {
		if !positive(s.T) {
			return bad("T", s.T)
		}

		return nil
	}
	posP := func() error {
		if !positive(s.P) {
			return bad("P", s.P)
		}

		return nil
	}
	frac := func() error {
		if math.IsNaN(s.V) || s.V < 0 || s.V > 1 {
			return bad("V", s.V)
		}

		return nil
	}
	finite := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return bad(name, v)
		}

		return nil
	}
	comp := func(name string, v []float64) error {
		if len(v) == 0 {
			return fmt.Errorf("%w: %s is empty", ErrInvalidSpecification, name)
		}
		for _, x := range v {
			if x < 0 || math.IsNaN(x) {
				return fmt.Errorf("%w: %s has negative entries", ErrInvalidSpecification, name)
			}
		}

		return nil
	}

	switch s.Kind {
	case KindTP:
		return firstErr(posT(), posP())
	case KindVP:
		return firstErr(frac(), posP())
	case KindVT:
		return firstErr(frac(), posT())
	case KindHP:
		return firstErr(finite("H", s.H), posP())
	case KindSP:
		return firstErr(finite("S", s.S), posP())
	case KindXP:
		return firstErr(comp("x", s.X), posP())
	case KindYP:
		return firstErr(comp("y", s.Y), posP())
	}

	return fmt.Errorf("%w: kind %s", ErrInvalidSpecification, s.Kind)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// Given collects optionally supplied state variables, as read from flags or
// configuration; nil means "not given".
type Given struct {
	T, P, V, H, S *float64
	X, Y          []float64
}

// SpecificationFrom builds a Specification from exactly two given variables
// forming a supported pair.
func SpecificationFrom(g Given) (Specification, error) {
	var names []string
	for name, set := range map[string]bool{
		"T": g.T != nil, "P": g.P != nil, "V": g.V != nil, "H": g.H != nil,
		"S": g.S != nil, "x": g.X != nil, "y": g.Y != nil,
	} {
		if set {
			names = append(names, name)
		}
	}
	if len(names) != 2 {
		sort.Strings(names)

		return Specification{}, fmt.Errorf("%w: need exactly two of T,P,V,H,S,x,y; got [%s]",
			ErrInvalidSpecification, strings.Join(names, ","))
	}

	var s Specification
	switch {
	case g.T != nil && g.P != nil:
		s = AtTP(*g.T, *g.P)
	case g.V != nil && g.P != nil:
		s = AtVP(*g.V, *g.P)
	case g.V != nil && g.T != nil:
		s = AtVT(*g.V, *g.T)
	case g.H != nil && g.P != nil:
		s = AtHP(*g.H, *g.P)
	case g.S != nil && g.P != nil:
		s = AtSP(*g.S, *g.P)
	case g.X != nil && g.P != nil:
		s = AtXP(g.X, *g.P)
	case g.Y != nil && g.P != nil:
		s = AtYP(g.Y, *g.P)
	default:
		sort.Strings(names)

		return Specification{}, fmt.Errorf("%w: unsupported pair (%s)", ErrInvalidSpecification, strings.Join(names, ","))
	}

	return s, s.Validate()
}
