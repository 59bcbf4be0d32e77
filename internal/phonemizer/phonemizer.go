// Package phonemizer is the per-note entry point used by hosts: it takes a
// note's lyric and duration and returns timed reclist phonemes.
//
// A Phonemizer holds no mutable state and is safe for concurrent use.
package phonemizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/example/go-german-cv/internal/g2p"
	"github.com/example/go-german-cv/internal/syllable"
	"github.com/example/go-german-cv/internal/text"
	"github.com/example/go-german-cv/internal/timing"
	"golang.org/x/sync/errgroup"
)

// Note is the part of a host note the phonemizer reads.
type Note struct {
	Lyric    string `json:"lyric" yaml:"lyric" msgpack:"lyric"`
	Duration int    `json:"duration" yaml:"duration" msgpack:"duration"`
	// PrevVowel is the vowel sung on the preceding note, if the host links
	// the two. Empty means the note starts a phrase.
	PrevVowel string `json:"prev_vowel,omitempty" yaml:"prev_vowel,omitempty" msgpack:"prev_vowel,omitempty"`
}

// Result is what the host merges into its timeline.
type Result struct {
	Phonemes []timing.TimedPhoneme `json:"phonemes" yaml:"phonemes" msgpack:"phonemes"`
}

// SyllableInfo describes how one syllable was rendered.
type SyllableInfo struct {
	PrevV   string        `json:"prev_v,omitempty" yaml:"prev_v,omitempty" msgpack:"prev_v,omitempty"`
	Onset   []string      `json:"onset,omitempty" yaml:"onset,omitempty" msgpack:"onset,omitempty"`
	Nucleus string        `json:"nucleus" yaml:"nucleus" msgpack:"nucleus"`
	Role    syllable.Role `json:"role" yaml:"role" msgpack:"role"`
	Output  []string      `json:"output" yaml:"output" msgpack:"output"`
}

// Analysis is a Result plus every intermediate stage.
type Analysis struct {
	Result    `yaml:",inline"`
	Lyric     string         `json:"lyric" yaml:"lyric" msgpack:"lyric"`
	Tokens    []string       `json:"tokens" yaml:"tokens" msgpack:"tokens"`
	Syllables []SyllableInfo `json:"syllables" yaml:"syllables" msgpack:"syllables"`
	Ending    []string       `json:"ending" yaml:"ending" msgpack:"ending"`
	// Passthrough is set when no phoneme could be produced and the raw
	// lyric was emitted instead.
	Passthrough bool `json:"passthrough" yaml:"passthrough" msgpack:"passthrough"`
}

// Option configures a Phonemizer.
type Option func(*Phonemizer)

// WithSegmenter replaces the default vowel-anchored segmentation.
func WithSegmenter(seg syllable.Segmenter) Option {
	return func(p *Phonemizer) { p.renderer = syllable.NewRenderer(seg) }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Phonemizer) { p.log = l }
}

// Phonemizer converts notes to timed phonemes.
type Phonemizer struct {
	renderer *syllable.Renderer
	log      *slog.Logger
}

// New returns a Phonemizer with the default segmenter.
func New(opts ...Option) *Phonemizer {
	p := &Phonemizer{
		renderer: syllable.NewRenderer(nil),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process phonemizes one note.
func (p *Phonemizer) Process(n Note) Result {
	return p.Analyze(n).Result
}

// Analyze phonemizes one note and keeps the intermediate stages.
func (p *Phonemizer) Analyze(n Note) Analysis {
	lyric := text.NormalizeLyric(n.Lyric)
	tokens := g2p.Tokenize(lyric)
	word := p.renderer.Segment(tokens, n.PrevVowel)

	a := Analysis{
		Lyric:     lyric,
		Tokens:    g2p.Symbols(tokens),
		Syllables: make([]SyllableInfo, len(word.Syllables)),
		Ending:    syllable.RenderEnding(word.Ending),
	}

	var symbols []string
	for i, s := range word.Syllables {
		out := syllable.RenderSyllable(s)
		a.Syllables[i] = SyllableInfo{
			PrevV:   s.PrevV,
			Onset:   s.Onset,
			Nucleus: s.Nucleus,
			Role:    syllable.Classify(s),
			Output:  out,
		}
		symbols = append(symbols, out...)
	}
	symbols = append(symbols, a.Ending...)

	a.Passthrough = len(symbols) == 0
	a.Phonemes = timing.Allocate(symbols, n.Duration, n.Lyric)

	p.log.Debug("phonemized note",
		slog.String("lyric", n.Lyric),
		slog.Int("duration", n.Duration),
		slog.Int("tokens", len(tokens)),
		slog.Int("phonemes", len(a.Phonemes)),
		slog.Bool("passthrough", a.Passthrough),
	)

	return a
}

// BatchOptions controls ProcessBatch.
type BatchOptions struct {
	// Legato links consecutive notes: a note without an explicit PrevVowel
	// continues from the previous note's last vowel when that note ended on
	// a vowel.
	Legato bool
	// Concurrency bounds the number of notes processed at once.
	// Zero or less means GOMAXPROCS.
	Concurrency int
}

// ProcessBatch phonemizes notes concurrently. Results are in input order.
// It only fails when ctx is done before every note was processed.
func (p *Phonemizer) ProcessBatch(ctx context.Context, notes []Note, opts BatchOptions) ([]Result, error) {
	linked := notes
	if opts.Legato {
		linked = p.Link(notes)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(notes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var stopped error
	for i := range linked {
		if stopped = gctx.Err(); stopped != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Process(linked[i])
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = stopped
	}
	if err != nil {
		return nil, fmt.Errorf("phonemize batch: %w", err)
	}

	return results, nil
}

// Link returns a copy of notes where each note without a PrevVowel takes the
// vowel the preceding note ended on. The input is not modified.
func (p *Phonemizer) Link(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)

	prevV := ""
	for i, n := range notes {
		if out[i].PrevVowel == "" {
			out[i].PrevVowel = prevV
		}
		prevV = p.tailVowel(n)
	}
	return out
}

// tailVowel returns the vowel a note ends on, or "" if it ends on a
// consonant or has no vowel at all.
func (p *Phonemizer) tailVowel(n Note) string {
	w := p.renderer.Segment(g2p.Tokenize(text.NormalizeLyric(n.Lyric)), "")
	if len(w.Syllables) == 0 || !w.Ending.IsEndingV() {
		return ""
	}
	return w.LastVowel()
}
