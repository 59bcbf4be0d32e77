// Package notes reads note lists for batch phonemization from YAML or JSON.
//
// Example:
//
//	legato: true
//	duration: 480
//	notes:
//	  - lyric: lie
//	  - lyric: be
//	    duration: 960
package notes

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/go-german-cv/internal/phonemizer"
	"gopkg.in/yaml.v3"
)

// ErrNoNotes is returned when a note file holds no notes.
var ErrNoNotes = errors.New("note file contains no notes")

// File is the top-level structure of a note file.
type File struct {
	// Legato links consecutive notes, see phonemizer.BatchOptions.
	Legato bool `yaml:"legato"`
	// Duration is applied to notes that do not set their own.
	Duration int               `yaml:"duration"`
	Notes    []phonemizer.Note `yaml:"notes"`
}

// Load reads and parses a note file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("notes: open %q: %w", path, err)
	}
	defer f.Close()

	nf, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("notes: parse %q: %w", path, err)
	}
	return nf, nil
}

// LoadFromReader parses a note file. JSON input is accepted as a YAML subset.
func LoadFromReader(r io.Reader) (*File, error) {
	var nf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&nf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoNotes
		}
		return nil, fmt.Errorf("decode notes yaml: %w", err)
	}

	if len(nf.Notes) == 0 {
		return nil, ErrNoNotes
	}
	if nf.Duration < 0 {
		return nil, fmt.Errorf("default duration %d is negative", nf.Duration)
	}

	for i := range nf.Notes {
		n := &nf.Notes[i]
		if n.Duration < 0 {
			return nil, fmt.Errorf("note %d (%q): duration %d is negative", i, n.Lyric, n.Duration)
		}
		if n.Duration == 0 {
			n.Duration = nf.Duration
		}
	}

	return &nf, nil
}

// FromLyrics builds a note file from per-note lyrics that share a duration.
func FromLyrics(lyrics []string, duration int, legato bool) *File {
	nf := &File{Legato: legato, Duration: duration, Notes: make([]phonemizer.Note, len(lyrics))}
	for i, l := range lyrics {
		nf.Notes[i] = phonemizer.Note{Lyric: l, Duration: duration}
	}
	return nf
}
