// Package bench provides benchmarking primitives for the germancv bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-german-cv/internal/phonemizer"
)

// Batcher phonemizes a batch of notes.
type Batcher interface {
	ProcessBatch(ctx context.Context, notes []phonemizer.Note, opts phonemizer.BatchOptions) ([]phonemizer.Result, error)
}

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and output size of a single batch run.
type RunResult struct {
	Index      int
	Cold       bool // true for the first run
	Duration   time.Duration
	Notes      int
	Phonemes   int
	Throughput float64 // notes per second
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations extracts the wall time of each run.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// ---------------------------------------------------------------------------
// Throughput
// ---------------------------------------------------------------------------

// CalcThroughput returns notes per second.
// Returns 0 if elapsed is zero to avoid division by zero.
func CalcThroughput(notes int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(notes) / elapsed.Seconds()
}

// MeanThroughput averages the per-run throughput.
func MeanThroughput(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.Throughput
	}
	return total / float64(len(runs))
}

// Run phonemizes notes runs times and records each run.
func Run(ctx context.Context, b Batcher, notes []phonemizer.Note, opts phonemizer.BatchOptions, runs int) ([]RunResult, error) {
	results := make([]RunResult, 0, runs)

	for i := range runs {
		start := time.Now()
		out, err := b.ProcessBatch(ctx, notes, opts)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		phonemes := 0
		for _, r := range out {
			phonemes += len(r.Phonemes)
		}

		results = append(results, RunResult{
			Index:      i,
			Cold:       i == 0,
			Duration:   dur,
			Notes:      len(notes),
			Phonemes:   phonemes,
			Throughput: CalcThroughput(len(notes), dur),
		})
	}

	return results, nil
}

// ---------------------------------------------------------------------------
// Throughput threshold gate
// ---------------------------------------------------------------------------

// CheckThroughputThreshold returns an error if mean notes/sec falls below
// threshold. A threshold of 0 disables the gate.
func CheckThroughputThreshold(mean, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if mean < threshold {
		return fmt.Errorf("mean throughput %.1f notes/s is below threshold %.1f", mean, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %9s  %12s\n", "Run", "Cold", "MS", "Notes", "Phonemes", "Notes/s")
	fmt.Fprintln(sb, strings.Repeat("-", 58))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %8d  %9d  %12.1f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Notes,
			r.Phonemes,
			r.Throughput,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 58))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	Notes      int     `json:"notes"`
	Phonemes   int     `json:"phonemes"`
	NotesPerS  float64 `json:"notes_per_sec"`
}

type jsonStats struct {
	MinMS         float64 `json:"min_ms"`
	MeanMS        float64 `json:"mean_ms"`
	MaxMS         float64 `json:"max_ms"`
	MeanNotesPerS float64 `json:"mean_notes_per_sec"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:         ms(stats.Min),
			MeanMS:        ms(stats.Mean),
			MaxMS:         ms(stats.Max),
			MeanNotesPerS: MeanThroughput(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			Notes:      r.Notes,
			Phonemes:   r.Phonemes,
			NotesPerS:  r.Throughput,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
