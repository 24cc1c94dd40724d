package recycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvflow/checkpoint"
	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
)

// Engine runs flowsheet systems. Safe for concurrent use on distinct
// systems; a system must not be run by two goroutines at once.
type Engine struct {
	o Options
}

// Report summarizes one Run.
type Report struct {
	RunID    string
	System   string
	Groups   []GroupReport
	Duration time.Duration
}

// GroupReport is the outcome of one scheduled group.
type GroupReport struct {
	ID        string
	Units     []string
	Tears     []string
	Passes    int
	Converged bool
	Restored  int // tear streams restored from a checkpoint
	Residual  Residual
}

// Passes sums the passes of every group.
func (r Report) Passes() int {
	var n int
	for _, g := range r.Groups {
		n += g.Passes
	}

	return n
}

// Converged reports whether every group converged.
func (r Report) Converged() bool {
	for _, g := range r.Groups {
		if !g.Converged {
			return false
		}
	}

	return len(r.Groups) > 0
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{o: o}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options { return e.o }

// Run builds sys and simulates it to convergence. The returned Report
// covers every group attempted, including the one that failed.
func (e *Engine) Run(ctx context.Context, sys *flowsheet.System) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), System: sys.ID()}
	log := e.o.Logger.With("system", sys.ID(), "run_id", rep.RunID)
	ctx, span := e.o.Tracer.Start(ctx, "recycle.Run", trace.WithAttributes(
		attribute.String("system", sys.ID()),
		attribute.String("run_id", rep.RunID),
	))
	defer span.End()

	fail := func(err error) (Report, error) {
		rep.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.o.Metrics.run("failed", rep.Duration)
		log.Error("flowsheet run failed", "error", err, "duration", rep.Duration)

		return rep, err
	}

	// 1. Schedule.
	groups, err := sys.Build(ctx)
	if err != nil {
		return fail(err)
	}
	log.Info("flowsheet run started", "units", len(sys.Units()), "groups", len(groups))

	// 2. Groups in dependency order.
	for _, g := range groups {
		gr, err := e.runGroup(ctx, log, rep.RunID, sys.ID(), g)
		rep.Groups = append(rep.Groups, gr)
		if err != nil {
			return fail(err)
		}
	}

	rep.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("passes", rep.Passes()))
	e.o.Metrics.run("converged", rep.Duration)
	log.Info("flowsheet converged", "passes", rep.Passes(), "duration", rep.Duration)

	return rep, nil
}

func (e *Engine) runGroup(ctx context.Context, log *slog.Logger, runID, system string, g flowsheet.Group) (GroupReport, error) {
	gr := GroupReport{ID: g.ID()}
	for _, u := range g.Units {
		gr.Units = append(gr.Units, u.ID())
	}
	for _, s := range g.Tears {
		gr.Tears = append(gr.Tears, s.ID())
	}
	if !g.Recycle() {
		if err := e.pass(ctx, log, g, 1); err != nil {
			return gr, err
		}
		gr.Passes, gr.Converged = 1, true

		return gr, nil
	}

	ctx, span := e.o.Tracer.Start(ctx, "recycle.Group", trace.WithAttributes(
		attribute.String("group", gr.ID),
		attribute.StringSlice("tears", gr.Tears),
	))
	defer span.End()
	log = log.With("group", gr.ID)

	// 1. Warm start.
	key := checkpoint.Key(system, gr.ID)
	if e.o.Checkpoints != nil {
		snap, err := e.o.Checkpoints.Load(ctx, key)
		switch {
		case err == nil:
			if gr.Restored, err = checkpoint.Restore(snap.Streams, g.Tears); err != nil {
				log.Warn("checkpoint restore failed", "error", err)
			}
		case !errors.Is(err, checkpoint.ErrNotFound):
			log.Warn("checkpoint load failed", "error", err)
		}
	}
	log.Info("recycle group started", "tears", gr.Tears, "restored", gr.Restored)

	// 2. Passes.
	acc := e.o.Accelerator()
	for pass := 1; pass <= e.o.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return gr, err
		}
		before := captureTears(g.Tears)
		if err := e.pass(ctx, log, g, pass); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return gr, err
		}
		after := captureTears(g.Tears)
		gr.Passes = pass
		gr.Residual = e.residual(before, after)
		e.o.Metrics.pass(gr.ID, gr.Residual)
		span.AddEvent("pass", trace.WithAttributes(
			attribute.Int("pass", pass),
			attribute.Float64("flow_residual", gr.Residual.Flow),
			attribute.Float64("temperature_residual", gr.Residual.Temperature),
		))
		log.Debug("recycle pass", "pass", pass, "residual", gr.Residual.Flow,
			"stream", gr.Residual.FlowStream, "component", gr.Residual.Component,
			"temperature", gr.Residual.Temperature)

		if gr.Residual.within(e.o.RelTol, e.o.TempTol) {
			gr.Converged = true
			span.SetAttributes(attribute.Int("passes", pass))
			log.Info("recycle converged", "passes", pass, "residual", gr.Residual.Flow)
			e.save(ctx, log, key, runID, system, gr, g)

			return gr, nil
		}
		if err := applyTears(g.Tears, after, acc.Next(flatten(before), flatten(after))); err != nil {
			return gr, err
		}
	}

	err := &ConvergenceError{Group: gr.ID, Passes: gr.Passes, Residual: gr.Residual}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("recycle not converged", "passes", gr.Passes, "residual", gr.Residual.String())

	return gr, err
}

// pass simulates every unit of g once, level by level.
func (e *Engine) pass(ctx context.Context, log *slog.Logger, g flowsheet.Group, pass int) error {
	if e.o.Parallelism <= 1 {
		for _, u := range g.Units {
			if err := e.simulate(ctx, log, u, pass); err != nil {
				return err
			}
		}

		return nil
	}
	for _, level := range g.Levels {
		if len(level) == 1 {
			if err := e.simulate(ctx, log, level[0], pass); err != nil {
				return err
			}
			continue
		}
		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(e.o.Parallelism)
		for _, u := range level {
			eg.Go(func() error { return e.simulate(ectx, log, u, pass) })
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) simulate(ctx context.Context, log *slog.Logger, u flowsheet.Unit, pass int) error {
	ctx, span := e.o.Tracer.Start(ctx, "recycle.Unit", trace.WithAttributes(
		attribute.String("unit", u.ID()),
		attribute.Int("pass", pass),
	))
	defer span.End()

	start := time.Now()
	err := u.Simulate(ctx)
	e.o.Metrics.unit(u.ID(), time.Since(start), err)
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if e.o.ContinueOnUnitError && errors.Is(err, equilibrium.ErrDidNotConverge) {
		log.Warn("unit did not converge, continuing", "unit", u.ID(), "pass", pass, "error", err)
		return nil
	}

	return &UnitError{Unit: u.ID(), Pass: pass, Err: err}
}

func (e *Engine) save(ctx context.Context, log *slog.Logger, key, runID, system string, gr GroupReport, g flowsheet.Group) {
	if e.o.Checkpoints == nil {
		return
	}
	snap := checkpoint.Snapshot{
		RunID:   runID,
		System:  system,
		Group:   gr.ID,
		Passes:  gr.Passes,
		SavedAt: time.Now().UTC(),
		Streams: checkpoint.Capture(g.Tears),
	}
	if err := e.o.Checkpoints.Save(ctx, key, snap); err != nil {
		log.Warn("checkpoint save failed", "error", err)
	}
}

// tearState is the overall flow vector and temperature of one tear stream.
type tearState struct {
	id    string
	comps []string
	flows []float64
	T     float64
}

func captureTears(ss []*flowsheet.Stream) []tearState {
	out := make([]tearState, len(ss))
	for i, s := range ss {
		out[i] = tearState{
			id:    s.ID(),
			comps: s.Components().IDs(),
			flows: s.Indexer().Overall(),
			T:     s.Condition().T,
		}
	}

	return out
}

// residual compares pass input and output. Relative flow errors use
// max(|a|, |b|, floor) as the scale.
func (e *Engine) residual(before, after []tearState) Residual {
	var r Residual
	for i, b := range before {
		a := after[i]
		for j := range b.flows {
			scale := math.Max(math.Max(math.Abs(a.flows[j]), math.Abs(b.flows[j])), e.o.FlowFloor)
			if d := math.Abs(a.flows[j]-b.flows[j]) / scale; d > r.Flow || r.FlowStream == "" {
				r.Flow, r.FlowStream, r.Component = d, a.id, a.comps[j]
			}
		}
		if d := math.Abs(a.T - b.T); d > r.Temperature || r.TempStream == "" {
			r.Temperature, r.TempStream = d, a.id
		}
	}

	return r
}

// flatten lays tear states out as [flows..., T] per stream.
func flatten(ts []tearState) []float64 {
	var v []float64
	for _, t := range ts {
		v = append(v, t.flows...)
		v = append(v, t.T)
	}

	return v
}

// applyTears writes accelerated values x over the pass output. Component
// flows are clamped at zero and redistributed over phases in proportion
// to the pass output; a non-positive temperature keeps the output's.
func applyTears(ss []*flowsheet.Stream, out []tearState, x []float64) error {
	if len(x) != len(flatten(out)) {
		return fmt.Errorf("recycle: accelerator returned %d values, want %d", len(x), len(flatten(out)))
	}
	k := 0
	for i, s := range ss {
		t := out[i]
		want := x[k : k+len(t.flows)]
		k += len(t.flows)
		T := x[k]
		k++

		ix := s.Indexer()
		phases := ix.Phases()
		for j, f := range want {
			if f < 0 || math.IsNaN(f) {
				want[j] = 0
			}
		}
		for pi, ph := range phases {
			flows, err := ix.Flows(ph)
			if err != nil {
				return err
			}
			for j := range flows {
				switch {
				case t.flows[j] > 0:
					flows[j] *= want[j] / t.flows[j]
				case pi == 0:
					flows[j] = want[j]
				}
			}
			if err = ix.SetFlows(ph, flows); err != nil {
				return err
			}
		}
		if T > 0 && !math.IsInf(T, 0) {
			cond := s.Condition()
			cond.Set(T, cond.P)
		}
	}

	return nil
}
