package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/checkpoint"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/thermo"
)

var cs = thermo.MustComponentSet("Water", "Ethanol")

func sample() checkpoint.Snapshot {
	return checkpoint.Snapshot{
		RunID:   "run-1",
		System:  "plant",
		Group:   "M+F+S",
		Passes:  7,
		SavedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Streams: []checkpoint.StreamState{{
			ID:         "recycle",
			T:          351.2,
			P:          101325,
			Components: []string{"Water", "Ethanol"},
			Phases:     []checkpoint.PhaseFlows{{Phase: "l", Flows: []float64{3.5, 1.25}}},
		}},
	}
}

func stores(t *testing.T) map[string]checkpoint.Store {
	t.Helper()
	bs, err := checkpoint.OpenBadger(checkpoint.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rs := checkpoint.NewRedisFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rs.Close() })

	return map[string]checkpoint.Store{
		"memory": checkpoint.NewMemoryStore(),
		"badger": bs,
		"redis":  rs,
	}
}

// TestStores_RoundTrip saves, lists, loads and deletes a snapshot.
func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := checkpoint.Key("plant", "M+F+S")
			assert.Equal(t, "plant/M+F+S", key)

			_, err := st.Load(ctx, key)
			assert.ErrorIs(t, err, checkpoint.ErrNotFound)

			require.NoError(t, st.Save(ctx, key, sample()))
			require.NoError(t, st.Save(ctx, checkpoint.Key("plant", "A"), sample()))
			got, err := st.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, sample(), got)

			keys, err := st.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"plant/A", "plant/M+F+S"}, keys)

			require.NoError(t, st.Delete(ctx, key))
			_, err = st.Load(ctx, key)
			assert.ErrorIs(t, err, checkpoint.ErrNotFound)
		})
	}
}

// TestMemoryStore_Isolated copies on the way in and out.
func TestMemoryStore_Isolated(t *testing.T) {
	ctx := context.Background()
	st := checkpoint.NewMemoryStore()
	s := sample()
	require.NoError(t, st.Save(ctx, "k", s))
	s.Streams[0].Phases[0].Flows[0] = 99

	got, err := st.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.Streams[0].Phases[0].Flows[0])
}

// TestRedisStore_TTL expires snapshots and prunes the index.
func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	st := checkpoint.NewRedisFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}),
		checkpoint.WithPrefix("test:"), checkpoint.WithTTL(time.Minute))

	require.NoError(t, st.Save(ctx, "k", sample()))
	assert.True(t, mr.Exists("test:k"))
	mr.FastForward(2 * time.Minute)
	_, err = st.Load(ctx, "k")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

// TestCaptureRestore moves a stream state through a snapshot.
func TestCaptureRestore(t *testing.T) {
	src, err := flowsheet.NewFeed("recycle", cs, thermo.Liquid, 351.2, 101325, []float64{3.5, 1.25})
	require.NoError(t, err)
	states := checkpoint.Capture([]*flowsheet.Stream{src})
	require.Len(t, states, 1)
	assert.Equal(t, sample().Streams, states)

	dst, err := flowsheet.NewEmpty("recycle", cs)
	require.NoError(t, err)
	other, err := flowsheet.NewEmpty("other", cs)
	require.NoError(t, err)
	n, err := checkpoint.Restore(states, []*flowsheet.Stream{dst, other})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []float64{3.5, 1.25}, dst.Indexer().Overall())
	assert.Equal(t, 351.2, dst.Condition().T)
	assert.Zero(t, other.Indexer().Total())

	wrong, err := flowsheet.NewEmpty("recycle", thermo.MustComponentSet("Benzene", "Toluene"))
	require.NoError(t, err)
	_, err = checkpoint.Restore(states, []*flowsheet.Stream{wrong})
	assert.ErrorIs(t, err, checkpoint.ErrIncompatible)
}
