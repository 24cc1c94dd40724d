package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/config"
	"github.com/katalvlaran/lvflow/recycle"
	"github.com/katalvlaran/lvflow/thermo"
)

// TestLoad_RecyclePlant builds and converges the sample flowsheet.
func TestLoad_RecyclePlant(t *testing.T) {
	f, err := config.Load("testdata/recycle.yaml")
	require.NoError(t, err)
	assert.Equal(t, "plant", f.Name)
	assert.Len(t, f.Units, 4)

	plant, err := f.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Benzene", "Toluene"}, plant.Package.Components().IDs())
	assert.Len(t, plant.Streams, 7)

	opts, err := f.EngineOptions()
	require.NoError(t, err)
	eng := recycle.New(opts...)
	o := eng.Options()
	assert.Equal(t, 50, o.MaxPasses)
	assert.Equal(t, 1e-7, o.RelTol)
	assert.Equal(t, recycle.DefaultTempTol, o.TempTol)
	assert.Equal(t, 2, o.Parallelism)

	rep, err := eng.Run(context.Background(), plant.System)
	require.NoError(t, err)
	require.True(t, rep.Converged())
	assert.Equal(t, "plant", rep.System)

	cond := plant.Streams["condensate"].Indexer()
	bot := plant.Streams["bottoms"].Indexer().Overall()
	for i, n := range cond.Overall() {
		assert.InEpsilon(t, 10.0, n+bot[i], 1e-5)
	}
	assert.Equal(t, []thermo.Phase{thermo.Liquid}, cond.Phases())
}

// TestLoad_InlineChemicals decodes inline data and a Margules model.
func TestLoad_InlineChemicals(t *testing.T) {
	f, err := config.Load("testdata/decanter.yaml")
	require.NoError(t, err)
	pkg, err := f.Package()
	require.NoError(t, err)
	assert.Equal(t, "margules", pkg.ActivityModel().Name())
	assert.Equal(t, 136.0, pkg.Chemical(1).CpL)

	plant, err := f.Build(nil)
	require.NoError(t, err)
	_, err = recycle.New().Run(context.Background(), plant.System)
	require.NoError(t, err)
	light := plant.Streams["light"].Indexer().Total()
	heavy := plant.Streams["heavy"].Indexer().Total()
	assert.InDelta(t, 5.0, light, 1e-5)
	assert.InDelta(t, 5.0, heavy, 1e-5)
}

// TestBuild_HXProcess exchanges heat between two declared streams.
func TestBuild_HXProcess(t *testing.T) {
	f, err := config.Parse([]byte(`
chemicals: [Benzene, Toluene]
streams:
  - {id: hot, T: 370, P: 303975, flows: {Toluene: 10}}
  - {id: cold, T: 300, P: 303975, flows: {Benzene: 10}}
units:
  - {id: X, type: hx_process, inlets: [hot, cold], outlets: [hot_out, cold_out], params: {dT: 10, T_lim0: 340}}
`))
	require.NoError(t, err)
	plant, err := f.Build(nil)
	require.NoError(t, err)
	_, err = recycle.New().Run(context.Background(), plant.System)
	require.NoError(t, err)

	assert.InDelta(t, 340.0, plant.Streams["hot_out"].Condition().T, 1e-9)
	cold := plant.Streams["cold_out"].Condition().T
	assert.Greater(t, cold, 300.0)
	assert.LessOrEqual(t, cold, 360.0)
}

const base = `
chemicals: [Water, Ethanol]
units:
  - {id: H, type: heat_exchanger, inlets: [a], outlets: [b], params: {T: 350}}
`

// TestParse_Invalid rejects malformed files with ErrInvalidConfig.
func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":       base + "colour: blue\n",
		"no chemicals":      "units: [{id: H, type: mixer, inlets: [a], outlets: [b]}]\n",
		"no units":          "chemicals: [Water]\n",
		"unit without id":   "chemicals: [Water]\nunits: [{type: mixer, inlets: [a], outlets: [b]}]\n",
		"unknown type":      "chemicals: [Water]\nunits: [{id: X, type: reactor}]\n",
		"duplicate unit":    base + "  - {id: H, type: mixer, inlets: [c], outlets: [d]}\n",
		"empty port":        "chemicals: [Water]\nunits: [{id: M, type: mixer, inlets: [''], outlets: [b]}]\n",
		"stray tear":        base + "tears: [z]\n",
		"bad accelerator":   base + "solver: {accelerator: broyden}\n",
		"negative passes":   base + "solver: {max_passes: -1}\n",
		"bad phase":         base + "streams: [{id: a, phase: plasma}]\n",
		"negative T":        base + "streams: [{id: a, T: -10}]\n",
		"negative flow":     base + "streams: [{id: a, flows: {Water: -1}}]\n",
		"flow of stranger":  base + "streams: [{id: a, flows: {Methanol: 1}}]\n",
		"duplicate stream":  base + "streams: [{id: a}, {id: a}]\n",
		"unknown model":     base + "activity: {model: uniquac}\n",
		"self pair":         base + "activity: {model: margules, pairs: [{i: Water, j: Water, a: 1}]}\n",
		"inline without id": "chemicals: [{mw: 18}]\nunits: [{id: M, type: mixer, inlets: [a], outlets: [b]}]\n",
		"not yaml":          "chemicals: [",
	} {
		_, err := config.Parse([]byte(doc))
		assert.ErrorIs(t, err, config.ErrInvalidConfig, name)
	}
}

// TestParse_FieldRules reports every broken field of a document at once.
func TestParse_FieldRules(t *testing.T) {
	doc := base + `activity: {model: quantum}
streams: [{id: a, phase: plasma, T: -10, P: 0, flows: {Water: -1, Ethanol: 3}}]
solver: {max_passes: -4, rel_tol: -1, parallelism: -2}
`
	_, err := config.Parse([]byte(doc))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	msg := err.Error()
	for _, want := range []string{
		"activity.model fails oneof=ideal nrtl margules",
		"streams[0].phase fails phase",
		"streams[0].T fails gt=0",
		"streams[0].flows fails flows",
		"solver.max_passes fails gte=0",
		"solver.rel_tol fails gte=0",
		"solver.parallelism fails gte=0",
	} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "streams[0].P", "zero P keeps the standard pressure")
}

// TestBuild_Invalid rejects bad params and wiring.
func TestBuild_Invalid(t *testing.T) {
	units := map[string]string{
		"unknown param":    "{id: H, type: heat_exchanger, inlets: [a], outlets: [b], params: {T: 350, duty: 1}}",
		"both T and V":     "{id: H, type: heat_exchanger, inlets: [a], outlets: [b], params: {T: 350, V: 1}}",
		"one state var":    "{id: F, type: flash, inlets: [a], outlets: [v, l], params: {T: 350}}",
		"adiabatic + T":    "{id: F, type: flash, inlets: [a], outlets: [v, l], params: {adiabatic: true, T: 350}}",
		"outlet count":     "{id: F, type: flash, inlets: [a], outlets: [v], params: {T: 350, P: 101325}}",
		"bad split":        "{id: S, type: splitter, inlets: [a], outlets: [b, c], params: {split: [1.5]}}",
		"splitter inlets":  "{id: S, type: splitter, inlets: [a, x], outlets: [b, c], params: {split: [0.5]}}",
		"exchanger inlets": "{id: X, type: hx_process, inlets: [a], outlets: [b, c]}",
		"negative dT":      "{id: X, type: hx_process, inlets: [a, x], outlets: [b, c], params: {dT: -1}}",
	}
	for name, u := range units {
		f, err := config.Parse([]byte("chemicals: [Water, Ethanol]\nunits:\n  - " + u + "\n"))
		require.NoError(t, err, name)
		_, err = f.Build(nil)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, name)
	}

	for name, doc := range map[string]string{
		"unknown chemical": "chemicals: [Water, Unobtainium]\n",
		"pair of stranger": "chemicals: [Water]\nactivity: {model: margules, pairs: [{i: Water, j: Ethanol, a: 1}]}\n",
	} {
		f, err := config.Parse([]byte(doc + "units: [{id: M, type: mixer, inlets: [a], outlets: [b]}]\n"))
		require.NoError(t, err, name)
		_, err = f.Build(nil)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, name)
	}
}
