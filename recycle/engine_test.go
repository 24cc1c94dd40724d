package recycle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/katalvlaran/lvflow/checkpoint"
	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/recycle"
	"github.com/katalvlaran/lvflow/thermo"
	"github.com/katalvlaran/lvflow/units"
)

const atm = 101325.0

func benzeneToluene(t *testing.T) *property.Package {
	t.Helper()
	pkg, err := property.NewFromCatalog([]string{"Benzene", "Toluene"})
	require.NoError(t, err)

	return pkg
}

// plant is feed → M → F(368 K) → liquid → S → {recycle → M, bottoms}.
type plant struct {
	sys                    *flowsheet.System
	feed, recycle, bottoms *flowsheet.Stream
	vapor                  *flowsheet.Stream
}

func newPlant(t *testing.T, pkg *property.Package) plant {
	t.Helper()
	cs := pkg.Components()
	mk := func(id string) *flowsheet.Stream {
		s, err := flowsheet.NewEmpty(id, cs)
		require.NoError(t, err)
		return s
	}
	feed, err := flowsheet.NewFeed("feed", cs, thermo.Liquid, 300, atm, []float64{10, 10})
	require.NoError(t, err)
	p := plant{sys: flowsheet.NewSystem("plant"), feed: feed, recycle: mk("recycle"), bottoms: mk("bottoms"), vapor: mk("vapor")}
	mixed, liquid := mk("mixed"), mk("liquid")

	m, err := units.NewMixer("M", pkg, []*flowsheet.Stream{feed, p.recycle}, mixed)
	require.NoError(t, err)
	f, err := units.NewFlash("F", pkg, []*flowsheet.Stream{mixed}, p.vapor, liquid, equilibrium.AtTP(368, atm))
	require.NoError(t, err)
	s, err := units.NewSplitter("S", liquid, p.recycle, p.bottoms, 0.5)
	require.NoError(t, err)
	for _, u := range []flowsheet.Unit{m, f, s} {
		require.NoError(t, p.sys.AddUnit(u))
	}

	return p
}

func total(s *flowsheet.Stream) float64 { return s.Indexer().Total() }

// TestEngine_RecycleConverges closes the mass balance around the loop.
func TestEngine_RecycleConverges(t *testing.T) {
	pkg := benzeneToluene(t)
	p := newPlant(t, pkg)

	rep, err := recycle.New().Run(context.Background(), p.sys)
	require.NoError(t, err)
	require.True(t, rep.Converged())
	require.Len(t, rep.Groups, 1)
	g := rep.Groups[0]
	assert.Equal(t, "M+F+S", g.ID)
	assert.Equal(t, []string{"recycle"}, g.Tears)
	assert.Greater(t, g.Passes, 2)
	assert.LessOrEqual(t, g.Residual.Flow, recycle.DefaultRelTol)
	assert.NotEmpty(t, rep.RunID)

	out := p.vapor.Indexer().Overall()
	bot := p.bottoms.Indexer().Overall()
	for i, f := range []float64{10, 10} {
		assert.InEpsilon(t, f, out[i]+bot[i], 1e-5, "component %d", i)
	}
	assert.InDelta(t, total(p.bottoms), total(p.recycle), 1e-9, "even split")
	assert.Equal(t, 368.0, p.recycle.Condition().T)
}

// TestEngine_IndependentOfGuess reaches the same state from another tear
// guess and with each accelerator.
func TestEngine_IndependentOfGuess(t *testing.T) {
	ctx := context.Background()
	pkg := benzeneToluene(t)
	ref := newPlant(t, pkg)
	_, err := recycle.New().Run(ctx, ref.sys)
	require.NoError(t, err)
	want := ref.bottoms.Indexer().Overall()

	for _, name := range recycle.AcceleratorNames() {
		t.Run(name, func(t *testing.T) {
			p := newPlant(t, pkg)
			guess, err := flowsheet.NewFeed("guess", pkg.Components(), thermo.Liquid, 350, atm, []float64{2, 8})
			require.NoError(t, err)
			require.NoError(t, p.recycle.Receive(guess.Indexer()))

			acc, err := recycle.AcceleratorByName(name)
			require.NoError(t, err)
			rep, err := recycle.New(recycle.WithAccelerator(acc)).Run(ctx, p.sys)
			require.NoError(t, err)
			assert.True(t, rep.Converged())
			got := p.bottoms.Indexer().Overall()
			for i := range want {
				assert.InEpsilon(t, want[i], got[i], 1e-4)
			}
		})
	}
}

// TestEngine_NotConverged reports the offending stream and component.
func TestEngine_NotConverged(t *testing.T) {
	p := newPlant(t, benzeneToluene(t))
	rep, err := recycle.New(recycle.WithMaxPasses(2)).Run(context.Background(), p.sys)
	require.ErrorIs(t, err, recycle.ErrRecycleNotConverged)

	var ce *recycle.ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "M+F+S", ce.Group)
	assert.Equal(t, 2, ce.Passes)
	assert.Equal(t, "recycle", ce.Residual.FlowStream)
	assert.Contains(t, []string{"Benzene", "Toluene"}, ce.Residual.Component)
	assert.Greater(t, ce.Residual.Flow, recycle.DefaultRelTol)
	assert.False(t, rep.Converged())
	assert.Contains(t, err.Error(), "group M+F+S after 2 passes")
}

// TestEngine_Cancelled stops between passes.
func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPlant(t, benzeneToluene(t))
	_, err := recycle.New().Run(ctx, p.sys)
	assert.ErrorIs(t, err, context.Canceled)
}

// faulty fails with err on every Simulate.
type faulty struct {
	id   string
	ins  []*flowsheet.Stream
	outs []*flowsheet.Stream
	err  error
}

func (f *faulty) ID() string                   { return f.id }
func (f *faulty) Inlets() []*flowsheet.Stream  { return f.ins }
func (f *faulty) Outlets() []*flowsheet.Stream { return f.outs }
func (f *faulty) Simulate(context.Context) error {
	return f.err
}

func faultySystem(t *testing.T, err error) *flowsheet.System {
	t.Helper()
	cs := thermo.MustComponentSet("Benzene", "Toluene")
	in, e := flowsheet.NewFeed("in", cs, thermo.Liquid, 300, atm, []float64{1, 1})
	require.NoError(t, e)
	out, e := flowsheet.NewEmpty("out", cs)
	require.NoError(t, e)
	sys := flowsheet.NewSystem("broken")
	require.NoError(t, sys.AddUnit(&faulty{id: "X", ins: []*flowsheet.Stream{in}, outs: []*flowsheet.Stream{out}, err: err}))

	return sys
}

// TestEngine_UnitError names the failing unit and honours
// WithContinueOnUnitError for non-convergence only.
func TestEngine_UnitError(t *testing.T) {
	ctx := context.Background()
	stuck := fmt.Errorf("flash: %w", equilibrium.ErrDidNotConverge)

	_, err := recycle.New().Run(ctx, faultySystem(t, stuck))
	var ue *recycle.UnitError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "X", ue.Unit)
	assert.Equal(t, 1, ue.Pass)
	assert.ErrorIs(t, err, equilibrium.ErrDidNotConverge)

	lenient := recycle.New(recycle.WithContinueOnUnitError())
	rep, err := lenient.Run(ctx, faultySystem(t, stuck))
	require.NoError(t, err)
	assert.True(t, rep.Converged())

	boom := errors.New("boom")
	_, err = lenient.Run(ctx, faultySystem(t, boom))
	assert.ErrorIs(t, err, boom)
}

// TestEngine_Metrics counts runs, passes and unit errors.
func TestEngine_Metrics(t *testing.T) {
	ctx := context.Background()
	m := recycle.NewMetrics(prometheus.NewRegistry())
	eng := recycle.New(recycle.WithMetrics(m))

	p := newPlant(t, benzeneToluene(t))
	rep, err := eng.Run(ctx, p.sys)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("converged")))
	assert.Equal(t, float64(rep.Groups[0].Passes), testutil.ToFloat64(m.PassesTotal.WithLabelValues("M+F+S")))
	assert.Equal(t, rep.Groups[0].Residual.Flow, testutil.ToFloat64(m.Residual.WithLabelValues("M+F+S")))

	_, err = eng.Run(ctx, faultySystem(t, errors.New("boom")))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnitErrorsTotal.WithLabelValues("X")))
}

// TestEngine_Spans records one span per run, group and unit simulation.
func TestEngine_Spans(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))

	p := newPlant(t, benzeneToluene(t))
	rep, err := recycle.New(recycle.WithTracerProvider(tp)).Run(context.Background(), p.sys)
	require.NoError(t, err)

	count := map[string]int{}
	for _, s := range spanRecorder.Ended() {
		count[s.Name()]++
	}
	assert.Equal(t, 1, count["recycle.Run"])
	assert.Equal(t, 1, count["recycle.Group"])
	assert.Equal(t, 3*rep.Passes(), count["recycle.Unit"])
}

// TestEngine_Checkpoint warm-starts a second run from the saved tears.
func TestEngine_Checkpoint(t *testing.T) {
	ctx := context.Background()
	pkg := benzeneToluene(t)
	store := checkpoint.NewMemoryStore()
	eng := recycle.New(recycle.WithCheckpoints(store))

	first, err := eng.Run(ctx, newPlant(t, pkg).sys)
	require.NoError(t, err)
	assert.Zero(t, first.Groups[0].Restored)
	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"plant/M+F+S"}, keys)

	second, err := eng.Run(ctx, newPlant(t, pkg).sys)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Groups[0].Restored)
	assert.Less(t, second.Passes(), first.Passes())
	assert.NotEqual(t, first.RunID, second.RunID)
}

// TestEngine_Parallel runs two independent branches of a loop concurrently.
func TestEngine_Parallel(t *testing.T) {
	pkg := benzeneToluene(t)
	cs := pkg.Components()
	mk := func(id string) *flowsheet.Stream {
		s, err := flowsheet.NewEmpty(id, cs)
		require.NoError(t, err)
		return s
	}
	feed, err := flowsheet.NewFeed("feed", cs, thermo.Liquid, 300, atm, []float64{3, 1})
	require.NoError(t, err)
	rec, mixed, a, b, a2, b2, joined, product := mk("rec"), mk("mixed"), mk("a"), mk("b"), mk("a2"), mk("b2"), mk("joined"), mk("product")

	sys := flowsheet.NewSystem("branches")
	add := func(u flowsheet.Unit, err error) {
		require.NoError(t, err)
		require.NoError(t, sys.AddUnit(u))
	}
	add(units.NewMixer("M", pkg, []*flowsheet.Stream{feed, rec}, mixed))
	add(units.NewSplitter("S1", mixed, a, b, 0.3))
	add(units.NewMixer("X", pkg, []*flowsheet.Stream{a}, a2))
	add(units.NewMixer("Y", pkg, []*flowsheet.Stream{b}, b2))
	add(units.NewMixer("J", pkg, []*flowsheet.Stream{a2, b2}, joined))
	add(units.NewSplitter("S2", joined, rec, product, 0.5))

	rep, err := recycle.New(recycle.WithParallelism(4)).Run(context.Background(), sys)
	require.NoError(t, err)
	require.True(t, rep.Converged())
	assert.InDeltaSlice(t, []float64{3, 1}, product.Indexer().Overall(), 1e-5)
	assert.InDeltaSlice(t, []float64{3, 1}, rec.Indexer().Overall(), 1e-5)
}
