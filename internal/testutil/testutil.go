// Package testutil provides shared assertions and skip helpers for tests.
//
// The assertion helpers check the timeline contract every phonemizer result
// must meet; the skip helpers call t.Skip with a clear reason when an
// optional fixture is absent.
//
// Typical usage:
//
//	func TestSong(t *testing.T) {
//	    path := testutil.RequireNoteFile(t, testutil.SongPath())
//	    ...
//	    testutil.AssertTimeline(t, res.Phonemes, note.Duration)
//	}
package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/example/go-german-cv/internal/timing"
)

// AssertTimeline checks that phonemes form a valid note timeline: at least
// one entry, the first at 0, positions non-decreasing and inside
// [0, duration) when duration is positive, or all 0 otherwise.
func AssertTimeline(tb testing.TB, phonemes []timing.TimedPhoneme, duration int) {
	tb.Helper()

	if len(phonemes) == 0 {
		tb.Fatal("timeline is empty")
		return
	}

	if phonemes[0].Position != 0 {
		tb.Errorf("first phoneme %q at %d; want 0", phonemes[0].Phoneme, phonemes[0].Position)
	}

	for i, p := range phonemes {
		if p.Phoneme == "" {
			tb.Errorf("phoneme %d is empty", i)
		}

		if i > 0 && p.Position < phonemes[i-1].Position {
			tb.Errorf("phoneme %d (%q) at %d precedes phoneme %d at %d",
				i, p.Phoneme, p.Position, i-1, phonemes[i-1].Position)
		}

		switch {
		case duration <= 0 && p.Position != 0:
			tb.Errorf("phoneme %d (%q) at %d; want 0 for a zero-length note", i, p.Phoneme, p.Position)
		case duration > 0 && (p.Position < 0 || p.Position >= duration):
			tb.Errorf("phoneme %d (%q) at %d; outside [0, %d)", i, p.Phoneme, p.Position, duration)
		}
	}
}

// Symbols returns the phoneme strings of a timeline.
func Symbols(phonemes []timing.TimedPhoneme) []string {
	out := make([]string, len(phonemes))
	for i, p := range phonemes {
		out[i] = p.Phoneme
	}
	return out
}

// AssertPhonemes checks the phoneme strings of a timeline, ignoring positions.
func AssertPhonemes(tb testing.TB, got []timing.TimedPhoneme, want ...string) {
	tb.Helper()

	if s := Symbols(got); !slices.Equal(s, want) {
		tb.Errorf("phonemes = %v; want %v", s, want)
	}
}

// RequireNoteFile skips the test if path does not exist and returns path
// otherwise.
func RequireNoteFile(tb testing.TB, path string) string {
	tb.Helper()

	if _, err := os.Stat(path); err != nil {
		tb.Skipf("note file not available at %q: %v", path, err)
	}
	return path
}

// SongPath returns the path of the committed example note file relative to
// the repository root.
func SongPath() string {
	return filepath.Join("testdata", "lied.yaml")
}
