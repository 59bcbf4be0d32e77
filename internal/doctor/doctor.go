// Package doctor provides self checks for germancv: pattern table
// consistency, known-lyric smoke tests, note files and settings.
package doctor

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/example/go-german-cv/internal/config"
	"github.com/example/go-german-cv/internal/notes"
	"github.com/example/go-german-cv/internal/phoneme"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Sample is a lyric with its expected reclist output.
type Sample struct {
	Lyric string
	Want  []string
}

// DefaultSamples cover each syllable role and the passthrough path.
var DefaultSamples = []Sample{
	{Lyric: "Schule", Want: []string{"shu", "le"}},
	{Lyric: "ich", Want: []string{"i", "ch"}},
	{Lyric: "Kinder", Want: []string{"ki", "e", "r"}},
	{Lyric: "Auge", Want: []string{"au", "ge"}},
	{Lyric: "Nacht", Want: []string{"n", "ach", "t"}},
	{Lyric: "?", Want: []string{"?"}},
}

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// TableProblems reports pattern table inconsistencies. Defaults to
	// phoneme.Validate.
	TableProblems func() []string
	// Phonemize renders a lyric to reclist symbols. Samples are skipped
	// when nil.
	Phonemize func(lyric string) []string
	// Samples are checked with Phonemize. Defaults to DefaultSamples.
	Samples []Sample
	// NoteFiles are loaded and validated.
	NoteFiles []string
	// Settings is checked for out-of-range values when non-nil.
	Settings *config.Config
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- pattern tables ---------------------------------------------------
	tableProblems := cfg.TableProblems
	if tableProblems == nil {
		tableProblems = phoneme.Validate
	}
	if problems := tableProblems(); len(problems) > 0 {
		for _, p := range problems {
			res.fail("pattern tables: " + p)
			fmt.Fprintf(w, "%s pattern tables: %s\n", FailMark, p)
		}
	} else {
		inv := phoneme.Snapshot()
		fmt.Fprintf(w, "%s pattern tables: %d vowel rules, %d consonant rules\n",
			PassMark, len(inv.VowelTable), len(inv.ConsonantTable))
	}

	// ---- known lyrics -----------------------------------------------------
	if cfg.Phonemize == nil {
		fmt.Fprintf(w, "%s sample lyrics: skipped\n", PassMark)
	} else {
		samples := cfg.Samples
		if samples == nil {
			samples = DefaultSamples
		}
		for _, s := range samples {
			got := cfg.Phonemize(s.Lyric)
			if !slices.Equal(got, s.Want) {
				res.fail(fmt.Sprintf("sample %q: got %v, want %v", s.Lyric, got, s.Want))
				fmt.Fprintf(w, "%s sample %s: got %s, want %s\n",
					FailMark, s.Lyric, strings.Join(got, " "), strings.Join(s.Want, " "))
			} else {
				fmt.Fprintf(w, "%s sample %s: %s\n", PassMark, s.Lyric, strings.Join(got, " "))
			}
		}
	}

	// ---- note files -------------------------------------------------------
	for _, path := range cfg.NoteFiles {
		nf, err := notes.Load(path)
		if err != nil {
			res.fail(fmt.Sprintf("note file %q: %v", path, err))
			fmt.Fprintf(w, "%s note file %s: %v\n", FailMark, path, err)
		} else {
			fmt.Fprintf(w, "%s note file: %s (%d notes)\n", PassMark, path, len(nf.Notes))
		}
	}

	// ---- settings ---------------------------------------------------------
	if cfg.Settings != nil {
		if problems := checkSettings(*cfg.Settings); len(problems) > 0 {
			for _, p := range problems {
				res.fail("settings: " + p)
				fmt.Fprintf(w, "%s settings: %s\n", FailMark, p)
			}
		} else {
			fmt.Fprintf(w, "%s settings: ok\n", PassMark)
		}
	}

	return res
}

// checkSettings returns one message per out-of-range value.
func checkSettings(c config.Config) []string {
	var problems []string

	positive := []struct {
		key string
		val int
	}{
		{"server.max_lyric_bytes", c.Server.MaxLyricBytes},
		{"server.max_batch_notes", c.Server.MaxBatchNotes},
		{"server.request_timeout", c.Server.RequestTimeout},
	}
	for _, p := range positive {
		if p.val <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", p.key, p.val))
		}
	}

	nonNegative := []struct {
		key string
		val int
	}{
		{"server.workers", c.Server.Workers},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"phonemizer.default_duration", c.Phonemizer.DefaultDuration},
		{"phonemizer.concurrency", c.Phonemizer.Concurrency},
	}
	for _, p := range nonNegative {
		if p.val < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative, got %d", p.key, p.val))
		}
	}

	if c.Server.ListenAddr == "" {
		problems = append(problems, "server.listen_addr is empty")
	}

	return problems
}
