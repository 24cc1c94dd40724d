package recycle

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lvflow/checkpoint"
	"github.com/katalvlaran/lvflow/internal/logging"
)

// Default convergence policy.
const (
	DefaultMaxPasses = 100
	DefaultRelTol    = 1e-6
	DefaultFlowFloor = 1e-8 // kmol/h
	DefaultTempTol   = 1e-4 // K
)

const tracerName = "github.com/katalvlaran/lvflow/recycle"

// Options configures an Engine.
type Options struct {
	MaxPasses   int
	RelTol      float64 // relative flow tolerance
	FlowFloor   float64 // flows below this are compared against it
	TempTol     float64 // absolute temperature tolerance [K]
	Parallelism int     // units of one level run concurrently when > 1

	// ContinueOnUnitError logs equilibrium non-convergence in a unit and
	// keeps going with the outlets the unit left behind.
	ContinueOnUnitError bool

	Accelerator func() Accelerator
	Logger      *slog.Logger
	Metrics     *Metrics
	Tracer      trace.Tracer
	Checkpoints checkpoint.Store
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns sequential direct substitution with a discarding
// logger, the global tracer and no metrics or checkpoints.
func DefaultOptions() Options {
	return Options{
		MaxPasses:   DefaultMaxPasses,
		RelTol:      DefaultRelTol,
		FlowFloor:   DefaultFlowFloor,
		TempTol:     DefaultTempTol,
		Parallelism: 1,
		Accelerator: NewDirectSubstitution,
		Logger:      logging.NewNop(),
		Tracer:      otel.Tracer(tracerName),
	}
}

// WithMaxPasses bounds the passes per recycle group.
func WithMaxPasses(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxPasses = n
		}
	}
}

// WithTolerances sets the relative flow tolerance, the flow floor and the
// temperature tolerance. Non-positive values keep the defaults.
func WithTolerances(rel, floor, temp float64) Option {
	return func(o *Options) {
		if rel > 0 {
			o.RelTol = rel
		}
		if floor > 0 {
			o.FlowFloor = floor
		}
		if temp > 0 {
			o.TempTol = temp
		}
	}
}

// WithParallelism runs up to n units of one dependency level at once.
func WithParallelism(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Parallelism = n
		}
	}
}

// WithContinueOnUnitError tolerates equilibrium non-convergence in units.
func WithContinueOnUnitError() Option {
	return func(o *Options) { o.ContinueOnUnitError = true }
}

// WithAccelerator sets the factory of the per-group update rule.
func WithAccelerator(f func() Accelerator) Option {
	return func(o *Options) {
		if f != nil {
			o.Accelerator = f
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics records Prometheus metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithTracerProvider takes the engine tracer from tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		if tp != nil {
			o.Tracer = tp.Tracer(tracerName)
		}
	}
}

// WithCheckpoints saves converged tear streams to s and warm-starts from it.
func WithCheckpoints(s checkpoint.Store) Option {
	return func(o *Options) { o.Checkpoints = s }
}
