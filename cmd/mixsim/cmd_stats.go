package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nomix-labs/mixsim/internal/simstats"
)

// runStats recomputes descriptive statistics from an existing session
// directory's raw paramset_N.csv (or paramset_N.csv.zst) series files,
// the CLI surface spec.md §6 names as "compute statistics from an
// existing session directory".
func runStats(args []string) {
	if err := doStats(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doStats(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("usage: mixsim stats <session-dir>")
	}
	dir := remaining[0]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	found := false
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "paramset_") {
			continue
		}
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".csv.zst") {
			continue
		}
		found = true
		values, err := readSeries(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		d := simstats.Summarize(values)
		fmt.Fprintf(stdout, "%s: count=%.0f mean=%g std=%g min=%g p25=%g p50=%g p75=%g max=%g\n",
			name, d.Count, d.Mean, d.Std, d.Min, d.P25, d.P50, d.P75, d.Max)
	}

	if !found {
		return fmt.Errorf("no paramset_*.csv(.zst) files found in %s", dir)
	}
	return nil
}

func readSeries(path string) ([]float64, error) {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".zst") {
		data, err = simstats.DecompressFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	recs, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(recs))
	for _, rec := range recs {
		if len(rec) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", rec[0], err)
		}
		values = append(values, v)
	}
	return values, nil
}
