package main

import (
	"fmt"
	"slices"

	"github.com/example/go-german-cv/internal/bench"
	"github.com/example/go-german-cv/internal/config"
	"github.com/example/go-german-cv/internal/phonemizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		text          string
		notesPath     string
		runs          int
		repeat        int
		format        string
		minThroughput float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark batch phonemization throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if repeat < 1 {
				return fmt.Errorf("--repeat must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			nf, err := buildNoteFile(cfg, lyricInput{
				Text:             text,
				NotesPath:        notesPath,
				LegatoOverridden: config.Overridden(cmd.Flags(), "phonemizer.legato"),
			}, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ns := slices.Repeat(nf.Notes, repeat)

			results, err := bench.Run(cmd.Context(), phonemizer.New(), ns, phonemizer.BatchOptions{
				Legato:      nf.Legato,
				Concurrency: cfg.Phonemizer.Concurrency,
			}, runs)
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				bench.FormatJSON(results, stats, out)
			default:
				bench.FormatTable(results, stats, out)
			}

			return bench.CheckThroughputThreshold(bench.MeanThroughput(results), minThroughput)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Lyric line to phonemize, one note per word or syllable")
	cmd.Flags().StringVar(&notesPath, "notes", "", "Note file (yaml|json)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of batch runs")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "Repeat the input notes this many times per run")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minThroughput, "min-throughput", 0,
		"Exit non-zero if mean notes/sec falls below this value (0 = disabled)")
	cmd.MarkFlagsMutuallyExclusive("text", "notes")

	return cmd
}
