// Package syllable turns a word's token stream into output symbols.
//
// A Segmenter groups tokens into syllables anchored on vowel nuclei plus a
// trailing consonant Ending. Each syllable is classified into exactly one
// Role, and the role decides whether the onset is fused into the nucleus.
package syllable

import (
	"github.com/example/go-german-cv/internal/g2p"
	"github.com/example/go-german-cv/internal/phoneme"
)

// Syllable is one onset+nucleus unit.
type Syllable struct {
	Index   int      // position within the word
	PrevV   string   // nucleus before this one, "" at the start of a phrase
	Onset   []string // consonant symbols preceding the nucleus
	Nucleus string
}

// Ending is the consonant cluster after the word's last nucleus.
type Ending struct {
	PrevV   string
	Cluster []string
}

// IsEndingV reports whether the word ends directly on a vowel.
func (e Ending) IsEndingV() bool { return len(e.Cluster) == 0 }

// Word is a segmented token stream.
type Word struct {
	Syllables []Syllable
	Ending    Ending
}

// LastVowel returns the word's final nucleus, or prevV if it has none.
func (w Word) LastVowel() string {
	if n := len(w.Syllables); n > 0 {
		return w.Syllables[n-1].Nucleus
	}
	return w.Ending.PrevV
}

// Segmenter builds syllables from a token stream. prevV is the vowel sung
// just before the word, or "" when the word starts a phrase.
type Segmenter interface {
	Segment(tokens []g2p.Token, prevV string) Word
}

// VowelAnchored is the default Segmenter: every run of consonants followed
// by a vowel is one syllable's onset, and a trailing run is the ending.
type VowelAnchored struct{}

// Segment implements Segmenter.
func (VowelAnchored) Segment(tokens []g2p.Token, prevV string) Word {
	var (
		w     Word
		onset []string
	)
	for _, t := range tokens {
		if t.Kind != g2p.Vowel {
			onset = append(onset, t.Symbol)
			continue
		}
		w.Syllables = append(w.Syllables, Syllable{
			Index:   len(w.Syllables),
			PrevV:   prevV,
			Onset:   onset,
			Nucleus: t.Symbol,
		})
		prevV = t.Symbol
		onset = nil
	}
	w.Ending = Ending{PrevV: prevV, Cluster: onset}
	return w
}

// Renderer segments and renders whole words.
type Renderer struct {
	seg Segmenter
}

// NewRenderer returns a Renderer using seg, or VowelAnchored when seg is nil.
func NewRenderer(seg Segmenter) *Renderer {
	if seg == nil {
		seg = VowelAnchored{}
	}
	return &Renderer{seg: seg}
}

// Segment exposes the underlying segmenter.
func (r *Renderer) Segment(tokens []g2p.Token, prevV string) Word {
	return r.seg.Segment(tokens, prevV)
}

// Render returns the word's output symbols: every syllable in order, then
// the ending.
func (r *Renderer) Render(tokens []g2p.Token, prevV string) []string {
	return RenderWord(r.Segment(tokens, prevV))
}

// RenderWord renders an already segmented word.
func RenderWord(w Word) []string {
	var out []string
	for _, s := range w.Syllables {
		out = append(out, RenderSyllable(s)...)
	}
	return append(out, RenderEnding(w.Ending)...)
}

// RenderSyllable renders one syllable according to its role.
func RenderSyllable(s Syllable) []string {
	switch Classify(s) {
	case StartingCV, VCV:
		return []string{s.Onset[0] + s.Nucleus}
	default:
		// StartingV, VV and ClusterOnset sound the nucleus alone.
		return []string{s.Nucleus}
	}
}

// RenderEnding emits each ending consonant on its own, in order. Consonants
// the voicebank cannot close a word with are dropped.
func RenderEnding(e Ending) []string {
	if e.IsEndingV() {
		return nil
	}
	out := make([]string, 0, len(e.Cluster))
	for _, c := range e.Cluster {
		if phoneme.CanEndWord(c) {
			out = append(out, c)
		}
	}
	return out
}
