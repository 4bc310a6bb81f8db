package simstats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"
)

// ParamsetRow is one row of a session's summary CSV: the parameter set's
// configuration alongside the descriptive statistics of its dissemination
// times, mirroring queuesim.py's RESULT_COLUMNS.
type ParamsetRow struct {
	ParamsetID       int
	NumNodes         int
	PeeringDegree    int
	MinQueueSize     int
	TransmissionRate int
	QueueType        string
	NumIterations    int
	Stats            Describe
}

var sessionHeader = []string{
	"paramset", "num_nodes", "peering_degree", "min_queue_size",
	"transmission_rate", "queue_type", "num_iterations",
	"dtime_count", "dtime_mean", "dtime_std", "dtime_min",
	"dtime_25%", "dtime_50%", "dtime_75%", "dtime_max",
}

func (r ParamsetRow) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(r.ParamsetID),
		strconv.Itoa(r.NumNodes),
		strconv.Itoa(r.PeeringDegree),
		strconv.Itoa(r.MinQueueSize),
		strconv.Itoa(r.TransmissionRate),
		r.QueueType,
		strconv.Itoa(r.NumIterations),
		f(r.Stats.Count), f(r.Stats.Mean), f(r.Stats.Std), f(r.Stats.Min),
		f(r.Stats.P25), f(r.Stats.P50), f(r.Stats.P75), f(r.Stats.Max),
	}
}

// InitSessionCSV creates path with just the header row, matching
// queuesim.run_session's "initialize a CSV file only with a header"
// step, run once before any paramset's iterations complete.
func InitSessionCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("init session csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	return w.Write(sessionHeader)
}

// AppendSessionRow appends one paramset's summary row to an
// already-initialized session CSV.
func AppendSessionRow(path string, row ParamsetRow) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append session row: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	return w.Write(row.record())
}

// WriteSeriesCSV writes values as a single-column, headerless CSV,
// mirroring queuesim.py's `series.to_csv(path, header=False, index=False)`
// for a paramset's raw dissemination times.
func WriteSeriesCSV(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write series csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	for _, v := range values {
		if err := w.Write([]string{strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	return nil
}

// CompressFile zstd-compresses src into dst, producing the .csv.zst form
// that `mixsim stats` accepts in place of a plain series CSV. The session
// pipeline itself writes its CSVs uncompressed.
func CompressFile(src, dst string) error {
	in, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("compress: read %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("compress: create %s: %w", dst, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("compress: new encoder: %w", err)
	}
	if _, err := enc.Write(in); err != nil {
		enc.Close()
		return fmt.Errorf("compress: write: %w", err)
	}
	return enc.Close()
}

// DecompressFile reverses CompressFile.
func DecompressFile(src string) ([]byte, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("decompress: open %s: %w", src, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress: new decoder: %w", err)
	}
	defer dec.Close()

	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := dec.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decompress: read: %w", err)
		}
	}
}
