package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/go-german-cv/internal/doctor"
	"github.com/example/go-german-cv/internal/phonemizer"
	"github.com/example/go-german-cv/internal/server"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [note-file...]",
		Short: "Check pattern tables, sample lyrics, note files and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ph := phonemizer.New()

			result := doctor.Run(doctor.Config{
				Phonemize: func(lyric string) []string {
					r := ph.Process(phonemizer.Note{Lyric: lyric, Duration: cfg.Phonemizer.DefaultDuration})
					return symbols(r)
				},
				NoteFiles: args,
				Settings:  &cfg,
			}, out)

			if _, lvlErr := server.ParseLogLevel(cfg.LogLevel); lvlErr != nil {
				result.AddFailure(fmt.Sprintf("log level: %v", lvlErr))
				_, _ = fmt.Fprintf(out, "%s log level: %v\n", doctor.FailMark, lvlErr)
			} else {
				_, _ = fmt.Fprintf(out, "%s log level: %s\n", doctor.PassMark, cfg.LogLevel)
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

func symbols(r phonemizer.Result) []string {
	out := make([]string, len(r.Phonemes))
	for i, p := range r.Phonemes {
		out[i] = p.Phoneme
	}
	return out
}
