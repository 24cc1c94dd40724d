package equilibrium_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/thermo"
)

// ExampleVLE_Solve flashes a quarter of an equimolar benzene/toluene feed
// at atmospheric pressure.
func ExampleVLE_Solve() {
	pkg, err := property.NewFromCatalog([]string{"Benzene", "Toluene"})
	if err != nil {
		fmt.Println(err)
		return
	}
	cond, _ := thermo.NewThermalCondition(300, 101325)
	ix, _ := material.NewMultiPhase(pkg.Components(), cond)
	_ = ix.SetFlows(thermo.Liquid, []float64{10, 10})

	vle, err := equilibrium.NewVLE(pkg, ix)
	if err != nil {
		fmt.Println(err)
		return
	}
	res, err := vle.Solve(context.Background(), equilibrium.AtVP(0.25, 101325))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("V=%.2f vapor=%.1f kmol/h benzene-rich vapor: %t\n",
		res.V, ix.PhaseTotal(thermo.Vapor), res.Y[0] > res.X[0])
	// Output: V=0.25 vapor=5.0 kmol/h benzene-rich vapor: true
}

// ExampleSpecificationFrom builds a flash specification from two inputs.
func ExampleSpecificationFrom() {
	T, P := 350.0, 101325.0
	spec, err := equilibrium.SpecificationFrom(equilibrium.Given{T: &T, P: &P})
	fmt.Println(spec.Kind, err)

	_, err = equilibrium.SpecificationFrom(equilibrium.Given{T: &T})
	fmt.Println(err)
	// Output:
	// T,P <nil>
	// equilibrium: invalid specification: need exactly two of T,P,V,H,S,x,y; got [T]
}
