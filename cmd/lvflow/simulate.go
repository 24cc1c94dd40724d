package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/katalvlaran/lvflow/checkpoint"
	"github.com/katalvlaran/lvflow/config"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/recycle"
)

type simulateFlags struct {
	file          string
	trace         bool
	metrics       bool
	checkpointDir string
	redisAddr     string
	redisDB       int
	ttl           time.Duration
}

func newSimulateCmd() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Converge a flowsheet file and print its streams",
		Long:  `Loads a YAML flowsheet, converges every recycle loop and prints the convergence report and the stream table.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "flowsheet file (YAML)")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "print Prometheus metrics after the run")
	cmd.Flags().StringVar(&f.checkpointDir, "checkpoint-dir", "", "warm-start tear streams from a badger database in DIR")
	cmd.Flags().StringVar(&f.redisAddr, "redis-addr", "", "warm-start tear streams from redis at ADDR")
	cmd.Flags().IntVar(&f.redisDB, "redis-db", 0, "redis database number")
	cmd.Flags().DurationVar(&f.ttl, "checkpoint-ttl", 0, "checkpoint lifetime (0 keeps them)")
	cmd.MarkFlagsMutuallyExclusive("checkpoint-dir", "redis-addr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSimulate(cmd *cobra.Command, f simulateFlags) (err error) {
	ctx := ctxOf(cmd)
	log, err := commandLogger(cmd)
	if err != nil {
		return err
	}

	// 1. Flowsheet.
	file, err := config.Load(f.file)
	if err != nil {
		return err
	}
	plant, err := file.Build(log)
	if err != nil {
		return err
	}
	opts, err := file.EngineOptions()
	if err != nil {
		return err
	}
	opts = append(opts, recycle.WithLogger(log))

	// 2. Observability.
	var reg *prometheus.Registry
	if f.metrics {
		reg = prometheus.NewRegistry()
		opts = append(opts, recycle.WithMetrics(recycle.NewMetrics(reg)))
	}
	if f.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { err = errors.Join(err, tp.Shutdown(context.Background())) }()
		opts = append(opts, recycle.WithTracerProvider(tp))
	}

	// 3. Checkpoints.
	store, err := openStore(f, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { err = errors.Join(err, store.Close()) }()
		opts = append(opts, recycle.WithCheckpoints(store))
	}

	// 4. Run.
	rep, runErr := recycle.New(opts...).Run(ctx, plant.System)
	out := cmd.OutOrStdout()
	printReport(out, rep)
	if runErr != nil {
		return runErr
	}
	printStreams(out, plant.System.Streams())
	if reg != nil {
		return dumpMetrics(out, reg)
	}

	return nil
}

func openStore(f simulateFlags, log *slog.Logger) (checkpoint.Store, error) {
	opts := []checkpoint.Option{checkpoint.WithTTL(f.ttl)}
	switch {
	case f.checkpointDir != "":
		return checkpoint.OpenBadger(checkpoint.BadgerConfig{Path: f.checkpointDir, Logger: log}, opts...)
	case f.redisAddr != "":
		return checkpoint.NewRedis(f.redisAddr, "", f.redisDB, opts...), nil
	}

	return nil, nil
}

func printReport(w io.Writer, rep recycle.Report) {
	fmt.Fprintf(w, "run %s  system %s  %s\n", rep.RunID, rep.System, rep.Duration.Round(time.Microsecond))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tTEARS\tPASSES\tCONVERGED\tRESIDUAL")
	for _, g := range rep.Groups {
		tears := "-"
		if len(g.Tears) > 0 {
			tears = strings.Join(g.Tears, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%.2e\n", g.ID, tears, g.Passes, g.Converged, g.Residual.Flow)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func printStreams(w io.Writer, ss []*flowsheet.Stream) {
	if len(ss) == 0 {
		return
	}
	ids := ss[0].Components().IDs()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "STREAM\tT [K]\tP [Pa]\tPHASES\t%s\tTOTAL\t\n", strings.Join(ids, "\t"))
	for _, s := range ss {
		ix := s.Indexer()
		var phases []string
		for _, p := range ix.Phases() {
			if fl, err := ix.Flows(p); err == nil && anyPositive(fl) {
				phases = append(phases, string(p))
			}
		}
		sort.Strings(phases)
		if len(phases) == 0 {
			phases = []string{"-"}
		}
		row := []string{s.ID(), fmt.Sprintf("%.2f", s.Condition().T), fmt.Sprintf("%.0f", s.Condition().P), strings.Join(phases, "")}
		for _, n := range ix.Overall() {
			row = append(row, fmt.Sprintf("%.4f", n))
		}
		row = append(row, fmt.Sprintf("%.4f", ix.Total()))
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	_ = tw.Flush()
}

func anyPositive(v []float64) bool {
	for _, x := range v {
		if x > 0 {
			return true
		}
	}

	return false
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err = enc.Encode(mf); err != nil {
			return err
		}
	}

	return nil
}
