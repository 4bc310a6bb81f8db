package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
)

// runMerge concatenates multiple per-queue-type session.csv files — one
// per temporal-mix discipline a sweep ran separately — into a single CSV
// sharing one header, matching queuesim.py's cross-queue-type merge step
// that feeds the original's comparison plots (plotting itself is out of
// scope; only the merged CSV is produced here).
func runMerge(args []string) {
	if err := doMerge(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doMerge(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("out", "", "path to write the merged CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if *out == "" || len(inputs) == 0 {
		return fmt.Errorf("usage: mixsim merge --out path <session.csv>...")
	}

	outFile, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer outFile.Close()
	w := csv.NewWriter(outFile)
	defer w.Flush()

	var header []string
	rows := 0
	for _, path := range inputs {
		recs, err := readCSV(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(recs) == 0 {
			continue
		}
		if header == nil {
			header = recs[0]
			if err := w.Write(header); err != nil {
				return err
			}
		} else if !equalHeader(header, recs[0]) {
			return fmt.Errorf("%s: header %v does not match %v", path, recs[0], header)
		}
		for _, rec := range recs[1:] {
			if err := w.Write(rec); err != nil {
				return err
			}
			rows++
		}
	}

	fmt.Fprintf(stdout, "merged %d row(s) from %d file(s) into %s\n", rows, len(inputs), *out)
	return nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
