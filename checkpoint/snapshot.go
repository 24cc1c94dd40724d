package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

// Sentinel errors.
var (
	// ErrNotFound indicates no snapshot under the requested key.
	ErrNotFound = errors.New("checkpoint: not found")

	// ErrIncompatible indicates a snapshot that cannot be applied to a stream.
	ErrIncompatible = errors.New("checkpoint: incompatible snapshot")
)

// Store persists snapshots by key.
type Store interface {
	Save(ctx context.Context, key string, s Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// Key is the store key of one recycle group of one system.
func Key(system, group string) string { return system + "/" + group }

// Snapshot is the converged state of one recycle group's tear streams.
type Snapshot struct {
	RunID   string        `json:"run_id"`
	System  string        `json:"system"`
	Group   string        `json:"group"`
	Passes  int           `json:"passes"`
	SavedAt time.Time     `json:"saved_at"`
	Streams []StreamState `json:"streams"`
}

// StreamState is one stream's condition and phase-wise flows.
type StreamState struct {
	ID         string       `json:"id"`
	T          float64      `json:"T"`
	P          float64      `json:"P"`
	Components []string     `json:"components"`
	Phases     []PhaseFlows `json:"phases"`
}

// PhaseFlows holds the flows of one phase [kmol/h].
type PhaseFlows struct {
	Phase string    `json:"phase"`
	Flows []float64 `json:"flows"`
}

// Capture records the current state of streams.
func Capture(streams []*flowsheet.Stream) []StreamState {
	out := make([]StreamState, 0, len(streams))
	for _, s := range streams {
		st := s.Indexer().State()
		ss := StreamState{
			ID:         s.ID(),
			T:          st.Condition.T,
			P:          st.Condition.P,
			Components: s.Components().IDs(),
		}
		for _, pc := range st.Phases {
			ss.Phases = append(ss.Phases, PhaseFlows{Phase: string(pc.Phase), Flows: pc.Flows})
		}
		out = append(out, ss)
	}

	return out
}

// Restore writes the states whose ID matches one of streams and reports
// how many were applied. States for unknown streams are ignored.
func Restore(states []StreamState, streams []*flowsheet.Stream) (int, error) {
	byID := make(map[string]*flowsheet.Stream, len(streams))
	for _, s := range streams {
		byID[s.ID()] = s
	}
	n := 0
	for _, st := range states {
		s, ok := byID[st.ID]
		if !ok {
			continue
		}
		ix, err := st.indexer(s.Components())
		if err != nil {
			return n, fmt.Errorf("stream %q: %w", st.ID, err)
		}
		if err = s.Receive(ix); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// indexer rebuilds a multi-phase indexer over cs.
func (st StreamState) indexer(cs *thermo.ComponentSet) (*material.MultiPhase, error) {
	if !slices.Equal(st.Components, cs.IDs()) {
		return nil, fmt.Errorf("%w: components %v, stream has %v", ErrIncompatible, st.Components, cs.IDs())
	}
	cond, err := thermo.NewThermalCondition(st.T, st.P)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatible, err)
	}
	ix, err := material.NewMultiPhase(cs, cond)
	if err != nil {
		return nil, err
	}
	for _, pf := range st.Phases {
		ph, err := thermo.ParsePhase(pf.Phase)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncompatible, err)
		}
		if err = ix.AddPhase(ph); err != nil {
			return nil, err
		}
		if err = ix.SetFlows(ph, pf.Flows); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncompatible, err)
		}
	}

	return ix, nil
}

func clone(s Snapshot) Snapshot {
	out := s
	out.Streams = make([]StreamState, len(s.Streams))
	for i, st := range s.Streams {
		cp := st
		cp.Components = slices.Clone(st.Components)
		cp.Phases = make([]PhaseFlows, len(st.Phases))
		for j, pf := range st.Phases {
			cp.Phases[j] = PhaseFlows{Phase: pf.Phase, Flows: slices.Clone(pf.Flows)}
		}
		out.Streams[i] = cp
	}

	return out
}
