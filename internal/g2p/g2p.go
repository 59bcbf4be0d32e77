// Package g2p segments lowercased German lyric text into reclist phoneme
// tokens.
//
// Scanning is greedy and left to right. At each position the consonant table
// is tried first, then the vowel table, each in table order; the first match
// becomes one token. Characters no rule covers are skipped without output.
// Onset/nucleus fusion is left to the syllable package.
package g2p

import (
	"unicode/utf8"

	"github.com/example/go-german-cv/internal/phoneme"
)

// Kind tells vowel tokens from consonant tokens.
type Kind int

const (
	Consonant Kind = iota
	Vowel
)

func (k Kind) String() string {
	if k == Vowel {
		return "vowel"
	}
	return "consonant"
}

// Token is one reclist symbol produced by the tokenizer.
type Token struct {
	Symbol string
	Kind   Kind
}

// Step records one iteration of the scanner.
type Step struct {
	Pos     int          // byte offset the step started at
	Width   int          // bytes consumed, always > 0
	Rule    phoneme.Rule // matched rule; zero when Matched is false
	Matched bool
}

// Scan walks text and returns every scanner step in order. The widths of the
// returned steps add up to len(text).
func Scan(text string) []Step {
	steps := make([]Step, 0, len(text))

	for pos := 0; pos < len(text); {
		rest := text[pos:]

		rule, ok := phoneme.MatchConsonant(rest)
		if !ok {
			rule, ok = phoneme.MatchVowel(rest)
		}

		step := Step{Pos: pos, Rule: rule, Matched: ok}
		if ok {
			step.Width = len(rule.Grapheme)
		} else {
			_, size := utf8.DecodeRuneInString(rest)
			step.Width = size
		}

		steps = append(steps, step)
		pos += step.Width
	}

	return steps
}

// Tokenize converts text into reclist tokens. Text is expected to be
// lowercased and trimmed already.
func Tokenize(text string) []Token {
	var tokens []Token
	for _, s := range Scan(text) {
		if !s.Matched {
			continue
		}
		tokens = append(tokens, newToken(s.Rule.Phoneme))
	}
	return tokens
}

func newToken(symbol string) Token {
	kind := Consonant
	if phoneme.IsVowel(symbol) {
		kind = Vowel
	}
	return Token{Symbol: symbol, Kind: kind}
}

// Symbols flattens tokens to their symbols.
func Symbols(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Symbol
	}
	return out
}
