// Package simrunner orchestrates the iterations of a single parameter
// set: independent simulation runs sharing a configuration but not a
// scheduler, executed with bounded concurrency and each iteration's
// failure contained to itself, grounded on queuesim.py's
// ProcessPoolExecutor-based __submit_iterations/__run_iteration/
// __process_paramset_result pipeline (Go's cooperative scheduler makes a
// process pool unnecessary — goroutines bounded by a semaphore stand in
// for it, since every iteration still gets its own *simtime.Scheduler).
package simrunner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nomix-labs/mixsim/internal/simconfig"
	"github.com/nomix-labs/mixsim/internal/simstats"
)

// IterationFunc runs one independent simulation iteration seeded from
// root's per-iteration derived seeds and returns the dissemination times
// it observed. A panic (spec §7 "Size invariant violation... indicates
// an implementation bug") is recovered by Run and treated the same as a
// returned error: the iteration is marked failed, the session continues.
type IterationFunc func(ctx context.Context, iter int, seeds IterationSeeds) ([]float64, error)

// IterationSeeds carries the per-iteration RNG seeds queuesim.py derives
// fresh for every repeat of a paramset (temporal-mix, topology, latency,
// sender lottery), keyed off the iteration index so iteration i of two
// otherwise-identical runs draws bitwise-identical randomness (spec §8
// property 6, reproducibility).
type IterationSeeds struct {
	TemporalMix   int64
	Topology      int64
	Latency       int64
	SenderLottery int64
}

// DeriveIterationSeeds produces IterationSeeds for iter from the
// paramset's root seeds, mirroring queuesim.py's
// `iter_cfg.X.seed = random.Random(i)` — here fanned out via HKDF instead
// of reseeding a fresh stream directly from the iteration index, so
// distinct paramsets sharing an iteration index never collide.
func DeriveIterationSeeds(root simconfig.Resolved, iter int) IterationSeeds {
	return IterationSeeds{
		TemporalMix:   simconfig.DeriveSeeds(root.TemporalMix.SeedGenerator.Int63(), iter+1)[iter],
		Topology:      simconfig.DeriveSeeds(root.PathRNG.Int63(), iter+1)[iter],
		Latency:       simconfig.DeriveSeeds(root.LatencyRNG.Int63(), iter+1)[iter],
		SenderLottery: simconfig.DeriveSeeds(root.SenderLotterySeed, iter+1)[iter],
	}
}

// IterationOutcome is one iteration's result, successful or not.
type IterationOutcome struct {
	Index             int
	DisseminationTime []float64
	Err               error
}

// Session runs every iteration of one parameter set, bounded to
// maxConcurrency simultaneous iterations, and writes the per-iteration
// error files (spec §7) and, through Summarize, the paramset's series CSV.
type Session struct {
	ID             string
	Dir            string
	maxConcurrency int64
}

// NewSession creates a fresh UUID-named session directory under baseDir.
func NewSession(baseDir string) (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("simrunner: create session dir: %w", err)
	}
	return &Session{ID: id, Dir: dir, maxConcurrency: 1}, nil
}

// WithConcurrency bounds how many iterations run simultaneously.
func (s *Session) WithConcurrency(n int) *Session {
	if n < 1 {
		n = 1
	}
	s.maxConcurrency = int64(n)
	return s
}

// Run executes numIterations independent calls to fn, at most
// maxConcurrency at a time, and returns every iteration's outcome in
// index order regardless of completion order. Each iteration's seeds are
// derived from root via DeriveIterationSeeds before fn is called.
func (s *Session) Run(ctx context.Context, root simconfig.Resolved, numIterations int, fn IterationFunc) []IterationOutcome {
	sem := semaphore.NewWeighted(s.maxConcurrency)
	outcomes := make([]IterationOutcome, numIterations)
	done := make(chan int, numIterations)

	// Seeds are derived up front, sequentially: DeriveIterationSeeds draws
	// from root's shared *rand.Rand streams, which are not safe to read
	// concurrently from the iteration goroutines below.
	seeds := make([]IterationSeeds, numIterations)
	for i := range seeds {
		seeds[i] = DeriveIterationSeeds(root, i)
	}

	for i := 0; i < numIterations; i++ {
		i := i
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = IterationOutcome{Index: i, Err: err}
			done <- i
			continue
		}
		go func() {
			defer sem.Release(1)
			outcomes[i] = s.runOne(ctx, i, seeds[i], fn)
			done <- i
		}()
	}
	for i := 0; i < numIterations; i++ {
		<-done
	}
	return outcomes
}

// runOne executes a single iteration, converting a panic (an assertion
// failure inside the simulated core) into a failed-iteration outcome
// exactly like a returned error, and writes iteration_i.err on failure.
func (s *Session) runOne(ctx context.Context, i int, seeds IterationSeeds, fn IterationFunc) (outcome IterationOutcome) {
	outcome.Index = i
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("iteration %d panicked: %v", i, r)
		}
		if outcome.Err != nil {
			s.writeIterationError(i, outcome.Err)
		}
	}()

	times, err := fn(ctx, i, seeds)
	outcome.DisseminationTime = times
	outcome.Err = err
	return outcome
}

func (s *Session) writeIterationError(i int, cause error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("iteration_%d.err", i))
	_ = os.WriteFile(path, []byte(cause.Error()+"\n"), 0o644)
}

// Summarize reduces successful outcomes' dissemination times into a
// session summary row, which it returns for the caller to append to the
// session CSV, and writes the paramset's raw series CSV
// (paramset_<id>.csv). Failed iterations are excluded from the statistics;
// row.NumIterations is left as the caller set it.
func (s *Session) Summarize(paramsetID int, row simstats.ParamsetRow, outcomes []IterationOutcome) (simstats.ParamsetRow, error) {
	var all []float64
	for _, o := range outcomes {
		if o.Err == nil {
			all = append(all, o.DisseminationTime...)
		}
	}
	row.ParamsetID = paramsetID
	row.Stats = simstats.Summarize(all)

	seriesPath := filepath.Join(s.Dir, fmt.Sprintf("paramset_%d.csv", paramsetID))
	if err := simstats.WriteSeriesCSV(seriesPath, all); err != nil {
		return row, err
	}
	return row, nil
}
