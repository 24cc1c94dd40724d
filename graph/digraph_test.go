package graph_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/graph"
)

// TestAddNode_Idempotent returns the same handle for a repeated key.
func TestAddNode_Idempotent(t *testing.T) {
	g := graph.New()
	a, err := g.AddNode("M1")
	require.NoError(t, err)
	b, err := g.AddNode("M1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, g.NodeCount())

	_, err = g.AddNode("")
	assert.ErrorIs(t, err, graph.ErrEmptyKey)

	_, err = g.NodeByKey("F1")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

// TestAddEdge_Policies covers loops, multi-edges and missing endpoints.
func TestAddEdge_Policies(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode("A")
	b, _ := g.AddNode("B")

	_, err := g.AddEdge(a, a, "s0")
	assert.ErrorIs(t, err, graph.ErrLoopNotAllowed)

	_, err = g.AddEdge(a, b, "s1")
	require.NoError(t, err)
	_, err = g.AddEdge(a, b, "s2")
	assert.ErrorIs(t, err, graph.ErrMultiEdgeNotAllowed)

	_, err = g.AddEdge(a, 7, "s3")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	m := graph.New(graph.WithMultiEdges(), graph.WithLoops())
	x, _ := m.AddNode("X")
	y, _ := m.AddNode("Y")
	_, err = m.AddEdge(x, x, "loop")
	require.NoError(t, err)
	_, err = m.AddEdge(x, y, "p1")
	require.NoError(t, err)
	_, err = m.AddEdge(x, y, "p2")
	require.NoError(t, err)

	out, err := m.Out(x)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	succ, err := m.Successors(x)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{x, y}, succ)

	in, _ := m.In(y)
	e, err := m.Edge(in[1])
	require.NoError(t, err)
	assert.Equal(t, "p2", e.Key)
}

// TestDigraph_ConcurrentBuild ensures concurrent AddNode/AddEdge are safe.
func TestDigraph_ConcurrentBuild(t *testing.T) {
	g := graph.New(graph.WithMultiEdges())
	hub, _ := g.AddNode("hub")
	const num = 100
	var wg sync.WaitGroup
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := g.AddNode(fmt.Sprintf("n%d", i))
			if assert.NoError(t, err) {
				_, err = g.AddEdge(hub, id, fmt.Sprintf("e%d", i))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, num+1, g.NodeCount())
	assert.Equal(t, num, g.EdgeCount())
}
