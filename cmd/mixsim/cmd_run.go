package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/nomix-labs/mixsim/internal/simconfig"
	"github.com/nomix-labs/mixsim/internal/simrunner"
	"github.com/nomix-labs/mixsim/internal/simstats"
	"github.com/nomix-labs/mixsim/pkg/mixmetrics"
)

func runRun(args []string) {
	if err := doRun(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doRun(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to paramset YAML config")
	outdir := fs.String("outdir", ".", "base directory for session output")
	iterations := fs.Int("iterations", 1, "number of independent iterations to run")
	concurrency := fs.Int("concurrency", 1, "max concurrent iterations")
	paramsetID := fs.Int("paramset-id", 0, "paramset id recorded in session.csv")
	withMetrics := fs.Bool("metrics", false, "collect Prometheus metrics during the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("usage: mixsim run --config path [--outdir dir] [--iterations N] [--concurrency N]")
	}
	if *iterations < 1 {
		return fmt.Errorf("--iterations must be >= 1")
	}

	cfg, err := simconfig.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	resolved := simconfig.Resolve(cfg)

	sess, err := simrunner.NewSession(*outdir)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	sess.WithConcurrency(*concurrency)

	if err := simconfig.Archive(sess.Dir, cfg); err != nil {
		return fmt.Errorf("archive config: %w", err)
	}

	var metrics *mixmetrics.Metrics
	if *withMetrics {
		metrics = mixmetrics.NewMetrics(version, runtime.Version())
	}
	connStats := simstats.NewConnectionStats()

	slog.Info("session starting",
		"session_id", sess.ID, "num_nodes", resolved.NumNodes,
		"iterations", *iterations, "concurrency", *concurrency)

	outcomes := sess.Run(context.Background(), resolved, *iterations, newIterationFunc(resolved, metrics, connStats))

	ok := 0
	for _, o := range outcomes {
		if o.Err == nil {
			ok++
		} else {
			slog.Warn("iteration failed", "index", o.Index, "err", o.Err)
			if metrics != nil {
				metrics.IterationsTotal.WithLabelValues("failed").Inc()
			}
			continue
		}
		if metrics != nil {
			metrics.IterationsTotal.WithLabelValues("ok").Inc()
		}
	}

	sessionCSV := filepath.Join(sess.Dir, "session.csv")
	if err := simstats.InitSessionCSV(sessionCSV); err != nil {
		return fmt.Errorf("init session csv: %w", err)
	}
	row := simstats.ParamsetRow{
		NumNodes:         resolved.NumNodes,
		PeeringDegree:    resolved.PeeringDegree,
		MinQueueSize:     resolved.TemporalMix.MinQueueSize,
		TransmissionRate: resolved.TransmissionRatePerSec,
		QueueType:        cfg.Mix.TemporalMix.MixType,
		NumIterations:    *iterations,
	}
	row, err = sess.Summarize(*paramsetID, row, outcomes)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if err := simstats.AppendSessionRow(sessionCSV, row); err != nil {
		return fmt.Errorf("append session row: %w", err)
	}
	if err := connStats.WriteCSV(filepath.Join(sess.Dir, "connection_stats.csv")); err != nil {
		return fmt.Errorf("write connection stats: %w", err)
	}

	fmt.Fprintf(stdout, "session %s: %d/%d iterations ok\n", sess.ID, ok, *iterations)
	fmt.Fprintf(stdout, "output: %s\n", sess.Dir)
	return nil
}
