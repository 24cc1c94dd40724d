package flowsheet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

var cs = thermo.MustComponentSet("Water", "Ethanol")

// pipe is a unit that copies the sum of its inlets to its first outlet.
type pipe struct {
	id   string
	ins  []*flowsheet.Stream
	outs []*flowsheet.Stream
}

func (p *pipe) ID() string                   { return p.id }
func (p *pipe) Inlets() []*flowsheet.Stream  { return p.ins }
func (p *pipe) Outlets() []*flowsheet.Stream { return p.outs }
func (p *pipe) Simulate(context.Context) error {
	srcs := make([]material.Indexer, len(p.ins))
	for i, s := range p.ins {
		srcs[i] = s.Indexer()
	}

	return material.Mix(p.outs[0].Indexer(), srcs...)
}

type net struct {
	t       *testing.T
	streams map[string]*flowsheet.Stream
}

func (n *net) s(id string) *flowsheet.Stream {
	if st, ok := n.streams[id]; ok {
		return st
	}
	st, err := flowsheet.NewEmpty(id, cs)
	require.NoError(n.t, err)
	n.streams[id] = st

	return st
}

func (n *net) unit(id string, ins, outs []string) *pipe {
	p := &pipe{id: id}
	for _, s := range ins {
		p.ins = append(p.ins, n.s(s))
	}
	for _, s := range outs {
		p.outs = append(p.outs, n.s(s))
	}

	return p
}

func ids(us []flowsheet.Unit) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.ID()
	}

	return out
}

func streamIDs(ss []*flowsheet.Stream) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID()
	}

	return out
}

// recycleLoop is feed → M → F → S → product, with S's recycle back to M.
func recycleLoop(t *testing.T) *flowsheet.System {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("loop")
	require.NoError(t, sys.AddUnit(n.unit("M", []string{"feed", "recycle"}, []string{"mixed"})))
	require.NoError(t, sys.AddUnit(n.unit("F", []string{"mixed"}, []string{"vapor", "liquid"})))
	require.NoError(t, sys.AddUnit(n.unit("S", []string{"liquid"}, []string{"recycle", "bottoms"})))

	return sys
}

// TestBuild_RecycleLoop detects the loop and tears it at the recycle.
func TestBuild_RecycleLoop(t *testing.T) {
	sys := recycleLoop(t)
	groups, err := sys.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.True(t, g.Recycle())
	assert.Equal(t, []string{"M", "F", "S"}, ids(g.Units))
	assert.Equal(t, []string{"recycle"}, streamIDs(g.Tears))
	assert.Equal(t, "M+F+S", g.ID())
	assert.Len(t, g.Levels, 3)

	assert.Equal(t, []string{"feed"}, streamIDs(sys.Feeds()))
	assert.Equal(t, []string{"bottoms", "vapor"}, streamIDs(sys.Products()))
	assert.Equal(t, 3, sys.Graph().NodeCount())
	assert.Equal(t, 3, sys.Graph().EdgeCount())
}

// TestBuild_RegisteredTear moves the tear and the loop order with it.
func TestBuild_RegisteredTear(t *testing.T) {
	sys := recycleLoop(t)
	sys.SetTear("mixed")
	groups, err := sys.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"mixed"}, streamIDs(groups[0].Tears))
	assert.Equal(t, []string{"F", "S", "M"}, ids(groups[0].Units))

	sys.SetTear("feed")
	_, err = sys.Build(context.Background())
	assert.ErrorIs(t, err, flowsheet.ErrUnknownStream)
}

// TestBuild_AcyclicAroundLoop orders plain units around a loop.
func TestBuild_AcyclicAroundLoop(t *testing.T) {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("plant")
	// registered out of order on purpose
	require.NoError(t, sys.AddUnit(n.unit("P", []string{"out"}, []string{"product"})))
	require.NoError(t, sys.AddUnit(n.unit("H", []string{"raw"}, []string{"hot"})))
	require.NoError(t, sys.AddUnit(n.unit("A", []string{"hot", "back"}, []string{"a"})))
	require.NoError(t, sys.AddUnit(n.unit("B", []string{"a"}, []string{"back", "out"})))

	groups, err := sys.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "H", groups[0].ID())
	assert.False(t, groups[0].Recycle())
	assert.Equal(t, []string{"A", "B"}, ids(groups[1].Units))
	assert.Equal(t, []string{"back"}, streamIDs(groups[1].Tears))
	assert.Equal(t, "P", groups[2].ID())

	got, err := sys.Groups()
	require.NoError(t, err)
	assert.Equal(t, groups, got)
}

// TestBuild_SelfLoop treats a unit feeding itself as a loop.
func TestBuild_SelfLoop(t *testing.T) {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("self")
	require.NoError(t, sys.AddUnit(n.unit("R", []string{"feed", "loop"}, []string{"loop", "out"})))
	groups, err := sys.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Recycle())
	assert.Equal(t, []string{"loop"}, streamIDs(groups[0].Tears))
}

// TestBuild_Parallel puts independent loop members on one level.
func TestBuild_Parallel(t *testing.T) {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("fan")
	require.NoError(t, sys.AddUnit(n.unit("D", []string{"feed", "r1", "r2"}, []string{"x", "y"})))
	require.NoError(t, sys.AddUnit(n.unit("X", []string{"x"}, []string{"r1"})))
	require.NoError(t, sys.AddUnit(n.unit("Y", []string{"y"}, []string{"r2"})))
	groups, err := sys.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	g := groups[0]
	require.Len(t, g.Levels, 2)
	assert.Equal(t, []string{"D"}, ids(g.Levels[0]))
	assert.ElementsMatch(t, []string{"X", "Y"}, ids(g.Levels[1]))
	assert.ElementsMatch(t, []string{"r1", "r2"}, streamIDs(g.Tears))
}

// TestSystem_Errors covers registration and wiring mistakes.
func TestSystem_Errors(t *testing.T) {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("bad")
	require.NoError(t, sys.AddUnit(n.unit("A", []string{"in"}, []string{"out"})))
	assert.ErrorIs(t, sys.AddUnit(n.unit("A", nil, nil)), flowsheet.ErrDuplicateUnit)
	assert.ErrorIs(t, sys.AddUnit(n.unit("", nil, nil)), flowsheet.ErrEmptyID)

	_, err := sys.Groups()
	assert.ErrorIs(t, err, flowsheet.ErrNotBuilt)

	require.NoError(t, sys.AddUnit(n.unit("B", []string{"x"}, []string{"out"})))
	_, err = sys.Build(context.Background())
	assert.ErrorIs(t, err, flowsheet.ErrStreamConflict)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = recycleLoop(t).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestStream_EnablePhases keeps flows and the condition pointer.
func TestStream_EnablePhases(t *testing.T) {
	s, err := flowsheet.NewFeed("s1", cs, thermo.Vapor, 360, 101325, []float64{1, 2})
	require.NoError(t, err)
	cond := s.Condition()
	assert.False(t, s.Multi())

	m, err := s.EnablePhases()
	require.NoError(t, err)
	assert.True(t, s.Multi())
	assert.Same(t, cond, s.Condition())
	vap, err := m.Flows(thermo.Vapor)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vap)
	again, err := s.EnablePhases()
	require.NoError(t, err)
	assert.Same(t, m, again)

	require.NoError(t, s.DisablePhases(thermo.Liquid))
	assert.False(t, s.Multi())
	assert.Equal(t, []float64{1, 2}, s.Indexer().Overall())
	assert.Equal(t, []thermo.Phase{thermo.Liquid}, s.Indexer().Phases())

	other := thermo.MustComponentSet("Water")
	ix, err := material.NewSinglePhase(other, cond, thermo.Liquid, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetIndexer(ix), material.ErrComponentMismatch)
}

// TestStream_Receive switches to multi-phase only when needed.
func TestStream_Receive(t *testing.T) {
	cond, err := thermo.NewThermalCondition(350, 101325)
	require.NoError(t, err)
	src, err := material.NewMultiPhase(cs, cond)
	require.NoError(t, err)
	require.NoError(t, src.SetFlows(thermo.Vapor, []float64{1, 1}))

	dst, err := flowsheet.NewEmpty("d", cs)
	require.NoError(t, err)
	require.NoError(t, dst.Receive(src))
	assert.False(t, dst.Multi())
	assert.Equal(t, []thermo.Phase{thermo.Vapor}, dst.Indexer().Phases())
	assert.Equal(t, 350.0, dst.Condition().T)

	require.NoError(t, src.SetFlows(thermo.Liquid, []float64{2, 0}))
	require.NoError(t, dst.Receive(src))
	assert.True(t, dst.Multi())
	assert.Equal(t, []float64{3, 1}, dst.Indexer().Overall())
}

// TestSystem_Reach walks downstream, upstream and between units.
func TestSystem_Reach(t *testing.T) {
	n := &net{t: t, streams: map[string]*flowsheet.Stream{}}
	sys := flowsheet.NewSystem("reach")
	require.NoError(t, sys.AddUnit(n.unit("H", []string{"feed"}, []string{"hot"})))
	require.NoError(t, sys.AddUnit(n.unit("M", []string{"hot", "recycle"}, []string{"mixed"})))
	require.NoError(t, sys.AddUnit(n.unit("S", []string{"mixed"}, []string{"recycle", "out"})))
	require.NoError(t, sys.AddUnit(n.unit("P", []string{"out"}, []string{"product"})))

	_, err := sys.Downstream("H")
	assert.ErrorIs(t, err, flowsheet.ErrNotBuilt)
	_, err = sys.Build(context.Background())
	require.NoError(t, err)

	down, err := sys.Downstream("H")
	require.NoError(t, err)
	assert.Equal(t, []string{"M", "S", "P"}, ids(down))

	down, err = sys.Downstream("S")
	require.NoError(t, err)
	assert.Equal(t, []string{"M", "P", "S"}, ids(down), "a loop member reaches itself")

	up, err := sys.Upstream("P")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M", "H"}, ids(up))

	up, err = sys.Upstream("H")
	require.NoError(t, err)
	assert.Empty(t, up)

	path, err := sys.Path("H", "P")
	require.NoError(t, err)
	assert.Equal(t, []string{"hot", "mixed", "out"}, path)
	path, err = sys.Path("S", "M")
	require.NoError(t, err)
	assert.Equal(t, []string{"recycle"}, path)

	_, err = sys.Path("P", "H")
	assert.Error(t, err)
	_, err = sys.Upstream("X")
	assert.ErrorIs(t, err, flowsheet.ErrUnknownUnit)
}
