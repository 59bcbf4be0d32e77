package text

import (
	"strings"
	"unicode"
)

// SplitLyrics splits a lyric line into one lyric per note. Words are
// separated by whitespace, and a hyphen inside a word marks a syllable
// boundary ("lie-be" is sung over two notes). Empty pieces are dropped.
func SplitLyrics(line string) []string {
	var lyrics []string

	for _, word := range strings.FieldsFunc(line, unicode.IsSpace) {
		for _, syl := range strings.Split(word, "-") {
			syl = strings.TrimSpace(syl)
			if syl != "" {
				lyrics = append(lyrics, syl)
			}
		}
	}

	return lyrics
}
