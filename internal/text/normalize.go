package text

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares raw lyric input read from a flag, file or stdin.
// It trims surrounding whitespace, normalizes line endings to \n,
// and rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	// Normalize line endings: CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// NormalizeLyric puts a single note's lyric into the form the tokenizer
// expects: NFC composed (so a decomposed "u" + U+0308 becomes "ü"),
// lowercased with German rules and trimmed.
func NormalizeLyric(lyric string) string {
	s := norm.NFC.String(lyric)
	// Casers carry state and must not be shared across goroutines.
	s = cases.Lower(language.German).String(s)
	return strings.TrimSpace(s)
}
