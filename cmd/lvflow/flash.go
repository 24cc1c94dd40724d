package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/thermo"
)

// mixtureFlags select the chemicals, activity model and feed composition.
type mixtureFlags struct {
	chemicals []string
	activity  string
	z         []float64
}

func (m *mixtureFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&m.chemicals, "chemicals", nil, "comma-separated catalog chemicals, e.g. Water,Ethanol")
	cmd.Flags().StringVar(&m.activity, "activity", "ideal", "liquid activity model: ideal or nrtl")
	cmd.Flags().Float64SliceVar(&m.z, "z", nil, "feed mole fractions, one per chemical")
	_ = cmd.MarkFlagRequired("chemicals")
	_ = cmd.MarkFlagRequired("z")
}

func (m *mixtureFlags) pkg() (*property.Package, []float64, error) {
	if len(m.z) != len(m.chemicals) {
		return nil, nil, fmt.Errorf("--z has %d values for %d chemicals", len(m.z), len(m.chemicals))
	}
	var opts []property.Option
	switch m.activity {
	case "ideal":
	case "nrtl":
		cs, err := thermo.NewComponentSet(m.chemicals...)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, property.WithActivityModel(property.DefaultNRTL(cs)))
	default:
		return nil, nil, fmt.Errorf("unknown activity model %q", m.activity)
	}
	pkg, err := property.NewFromCatalog(m.chemicals, opts...)
	if err != nil {
		return nil, nil, err
	}
	z, err := material.Normalize(m.z)
	if err != nil {
		return nil, nil, err
	}

	return pkg, z, nil
}

func newFlashCmd() *cobra.Command {
	var mix mixtureFlags
	cmd := &cobra.Command{
		Use:   "flash",
		Short: "Two-phase flash of a feed given any two of T, P, V, H, S, x, y",
		Example: `  lvflow flash --chemicals Water,Ethanol --activity nrtl --z 0.5,0.5 --P 101325 --V 0.5
  lvflow flash --chemicals Benzene,Toluene --z 0.4,0.6 --T 368 --P 101325`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlash(cmd, mix)
		},
	}
	mix.bind(cmd)
	for _, v := range []struct{ name, usage string }{
		{"T", "temperature [K]"},
		{"P", "pressure [Pa]"},
		{"V", "vapor molar fraction"},
		{"H", "molar enthalpy [J/mol]"},
		{"S", "molar entropy [J/(mol·K)]"},
	} {
		cmd.Flags().Float64(v.name, 0, v.usage)
	}
	cmd.Flags().Float64Slice("x", nil, "liquid mole fractions")
	cmd.Flags().Float64Slice("y", nil, "vapor mole fractions")
	cmd.Flags().Float64("T0", 300, "initial temperature of the feed [K]")

	return cmd
}

// given collects the state flags the user actually set.
func given(cmd *cobra.Command) (equilibrium.Given, error) {
	var g equilibrium.Given
	scalar := map[string]**float64{"T": &g.T, "P": &g.P, "V": &g.V, "H": &g.H, "S": &g.S}
	for name, dst := range scalar {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64(name)
		if err != nil {
			return g, err
		}
		*dst = &v
	}
	for name, dst := range map[string]*[]float64{"x": &g.X, "y": &g.Y} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64Slice(name)
		if err != nil {
			return g, err
		}
		*dst = v
	}

	return g, nil
}

func runFlash(cmd *cobra.Command, mix mixtureFlags) error {
	log, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	pkg, z, err := mix.pkg()
	if err != nil {
		return err
	}
	g, err := given(cmd)
	if err != nil {
		return err
	}
	spec, err := equilibrium.SpecificationFrom(g)
	if err != nil {
		return err
	}

	// 1. One kmol/h of feed at T0 and the specified (or atmospheric) pressure.
	T0, _ := cmd.Flags().GetFloat64("T0")
	P0 := 101325.0
	if g.P != nil {
		P0 = *g.P
	}
	cond, err := thermo.NewThermalCondition(T0, P0)
	if err != nil {
		return err
	}
	ix, err := material.NewMultiPhase(pkg.Components(), cond)
	if err != nil {
		return err
	}
	if err = ix.SetFlows(thermo.Liquid, z); err != nil {
		return err
	}

	// 2. Flash.
	vle, err := equilibrium.NewVLE(pkg, ix, equilibrium.WithLogger(log))
	if err != nil {
		return err
	}
	r, err := vle.Solve(ctxOf(cmd), spec)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "spec %s  T=%.3f K  P=%.1f Pa  V=%.6f  iterations=%d\n", spec.Kind, r.T, r.P, r.V, r.Iterations)
	printCompositions(w, r.Components, []string{"z", "x", "y"}, z, r.X, r.Y)

	return nil
}

func newPointCmd(kind string) *cobra.Command {
	var mix mixtureFlags
	cmd := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("%s point of a mixture at a given T or P", strings.ToUpper(kind[:1])+kind[1:]),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPoint(cmd, kind, mix)
		},
	}
	mix.bind(cmd)
	cmd.Flags().Float64("T", 0, "temperature [K]")
	cmd.Flags().Float64("P", 0, "pressure [Pa]")
	cmd.MarkFlagsOneRequired("T", "P")
	cmd.MarkFlagsMutuallyExclusive("T", "P")

	return cmd
}

func runPoint(cmd *cobra.Command, kind string, mix mixtureFlags) error {
	log, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	pkg, z, err := mix.pkg()
	if err != nil {
		return err
	}
	atT := cmd.Flags().Changed("T")
	T, _ := cmd.Flags().GetFloat64("T")
	P, _ := cmd.Flags().GetFloat64("P")
	ctx := ctxOf(cmd)
	w := cmd.OutOrStdout()

	if kind == "bubble" {
		s, err := equilibrium.NewBubblePointSolver(pkg, equilibrium.WithLogger(log))
		if err != nil {
			return err
		}
		var bp equilibrium.BubblePoint
		if atT {
			bp, err = s.SolveAtT(ctx, z, T)
		} else {
			bp, err = s.SolveAtP(ctx, z, P)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "bubble point  T=%.3f K  P=%.1f Pa  iterations=%d\n", bp.T, bp.P, bp.Iterations)
		printCompositions(w, bp.Components, []string{"x", "y"}, bp.Z, bp.Y)

		return nil
	}

	s, err := equilibrium.NewDewPointSolver(pkg, equilibrium.WithLogger(log))
	if err != nil {
		return err
	}
	var dp equilibrium.DewPoint
	if atT {
		dp, err = s.SolveAtT(ctx, z, T)
	} else {
		dp, err = s.SolveAtP(ctx, z, P)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "dew point  T=%.3f K  P=%.1f Pa  iterations=%d\n", dp.T, dp.P, dp.Iterations)
	printCompositions(w, dp.Components, []string{"y", "x"}, dp.Z, dp.X)

	return nil
}

func printCompositions(w io.Writer, ids, heads []string, cols ...[]float64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "COMPONENT\t%s\n", strings.ToUpper(strings.Join(heads, "\t")))
	for i, id := range ids {
		row := []string{id}
		for _, c := range cols {
			row = append(row, fmt.Sprintf("%.6f", c[i]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
