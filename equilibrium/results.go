package equilibrium

// BubblePoint is a frozen bubble-point answer: the feed z is the liquid,
// Y the incipient vapor.
type BubblePoint struct {
	Components []string
	Z, Y       []float64
	T, P       float64
	Iterations int
}

// DewPoint is a frozen dew-point answer: the feed z is the vapor,
// X the incipient liquid.
type DewPoint struct {
	Components []string
	Z, X       []float64
	T, P       float64
	Iterations int
}

// VLEResult is a frozen two-phase flash answer. X and Y are mole fractions;
// for a single-phase answer the missing phase reports its incipient
// composition. Flows are in the units of the indexer.
type VLEResult struct {
	Components  []string
	T, P        float64
	V           float64 // vapor molar fraction of the whole feed
	X, Y        []float64
	LiquidFlows []float64
	VaporFlows  []float64
	Iterations  int
}

// LLEResult is a frozen liquid-liquid answer. X1 is the phase richer in
// the first present component; Beta is the molar fraction in X2.
type LLEResult struct {
	Components []string
	T          float64
	X1, X2     []float64
	Beta       float64
	Miscible   bool
	Iterations int
}

// VLLEResult is a frozen three-phase answer. Beta is the fraction of the
// liquid in the second liquid phase; with LiquidSplit false it is 0 and
// X2 is nil.
type VLLEResult struct {
	Components  []string
	T, P        float64
	V           float64
	Beta        float64
	Y, X1, X2   []float64
	LiquidSplit bool
	Iterations  int

	VaporFlows        []float64
	LiquidFlows       []float64
	SecondLiquidFlows []float64
}
