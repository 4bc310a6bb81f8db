package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD)" -o mixsim ./cmd/mixsim
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "merge":
		runMerge(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("mixsim %s (%s)\n", version, commit)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: mixsim <command> [options]")
	fmt.Println()
	fmt.Println("  run    --config path [--outdir dir] [--iterations N] [--concurrency N]")
	fmt.Println("         [--paramset-id N] [--metrics]")
	fmt.Println("         Run a paramset's iterations and write session.csv + per-paramset CSVs.")
	fmt.Println()
	fmt.Println("  merge  --out path <session.csv>...")
	fmt.Println("         Merge multiple per-queue-type session CSVs into one.")
	fmt.Println()
	fmt.Println("  stats  <session-dir>")
	fmt.Println("         Recompute descriptive statistics from an existing session directory.")
	fmt.Println()
	fmt.Println("  version")
	fmt.Println("         Show version information.")
}
