// Package phoneme holds the German CV pattern tables: the ordered
// grapheme-to-phoneme rules for vowels and consonants, the set of consonants
// allowed to close a word, and the reclist inventory the voicebank records.
//
// Table order is match priority. The tables are built once at package init
// and only ever handed out as copies.
package phoneme

import (
	"fmt"
	"strings"
)

// Rule maps one grapheme cluster to one reclist symbol.
type Rule struct {
	Grapheme string `json:"grapheme" yaml:"grapheme" msgpack:"grapheme"`
	Phoneme  string `json:"phoneme" yaml:"phoneme" msgpack:"phoneme"`
}

// Table is an ordered rule list. Earlier rules win.
type Table []Rule

// Match returns the first rule whose grapheme is a prefix of s.
func (t Table) Match(s string) (Rule, bool) {
	for _, r := range t {
		if strings.HasPrefix(s, r.Grapheme) {
			return r, true
		}
	}
	return Rule{}, false
}

var vowelTable = Table{
	{"äu", "eu"}, {"ie", "i"}, {"ei", "ai"}, {"ae", "ae"},
	{"oe", "oe"}, {"ue", "ue"}, {"ä", "ae"}, {"ö", "oe"},
	{"ü", "ue"}, {"ai", "ai"}, {"au", "au"}, {"eu", "eu"},
	{"a", "a"}, {"e", "e"}, {"i", "i"}, {"o", "o"}, {"u", "u"},
}

var consonantTable = Table{
	{"tsch", "sh"}, {"sch", "sh"}, {"ach", "ach"}, {"pf", "pf"},
	{"qu", "kv"}, {"ng", "ng"}, {"tz", "ts"}, {"sp", "sp"},
	{"st", "st"}, {"ck", "k"}, {"ch", "ch"}, {"ss", "s"},
	{"b", "b"}, {"d", "d"}, {"f", "f"}, {"g", "g"}, {"h", "h"},
	{"j", "j"}, {"k", "k"}, {"l", "l"}, {"m", "m"}, {"n", "n"},
	{"p", "p"}, {"r", "r"}, {"s", "s"}, {"t", "t"}, {"v", "v"},
	{"w", "v"}, {"x", "s"}, {"y", "i"}, {"z", "ts"}, {"ß", "s"},
}

var endingConsonants = []string{
	"b", "d", "f", "g", "k", "l", "m", "n", "ng",
	"p", "r", "s", "sh", "t", "ts", "v", "ch", "ach",
}

// Reclist vowels and consonants recorded by the German CV voicebank.
var (
	reclistVowels = []string{
		"a", "e", "i", "o", "u",
		"ae", "oe", "ue",
		"ai", "au", "eu",
	}
	reclistConsonants = []string{
		"b", "d", "f", "g", "h", "j", "k", "l", "m", "n", "ng",
		"p", "r", "s", "sh", "t", "ts", "v", "ch", "ach",
		"sp", "st", "pf", "kv",
	}
)

var (
	vowelSet     = toSet(reclistVowels)
	consonantSet = toSet(reclistConsonants)
	endingSet    = toSet(endingConsonants)
)

func toSet(symbols []string) map[string]struct{} {
	m := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		m[s] = struct{}{}
	}
	return m
}

// VowelTable returns a copy of the vowel rules in priority order.
func VowelTable() Table { return append(Table(nil), vowelTable...) }

// ConsonantTable returns a copy of the consonant rules in priority order.
func ConsonantTable() Table { return append(Table(nil), consonantTable...) }

// MatchConsonant returns the highest-priority consonant rule prefixing s.
func MatchConsonant(s string) (Rule, bool) { return consonantTable.Match(s) }

// MatchVowel returns the highest-priority vowel rule prefixing s.
func MatchVowel(s string) (Rule, bool) { return vowelTable.Match(s) }

// EndingConsonants returns the symbols allowed as a word's final consonants.
func EndingConsonants() []string { return append([]string(nil), endingConsonants...) }

// Vowels returns the reclist vowel symbols.
func Vowels() []string { return append([]string(nil), reclistVowels...) }

// Consonants returns the reclist consonant symbols.
func Consonants() []string { return append([]string(nil), reclistConsonants...) }

// IsVowel reports whether symbol is a reclist vowel.
func IsVowel(symbol string) bool {
	_, ok := vowelSet[symbol]
	return ok
}

// IsConsonant reports whether symbol is a reclist consonant.
func IsConsonant(symbol string) bool {
	_, ok := consonantSet[symbol]
	return ok
}

// CanEndWord reports whether symbol may stand alone at the end of a word.
func CanEndWord(symbol string) bool {
	_, ok := endingSet[symbol]
	return ok
}

// Inventory is a snapshot of every table, as served to hosts and printed by
// the CLI.
type Inventory struct {
	VowelTable       Table    `json:"vowel_table" yaml:"vowel_table" msgpack:"vowel_table"`
	ConsonantTable   Table    `json:"consonant_table" yaml:"consonant_table" msgpack:"consonant_table"`
	EndingConsonants []string `json:"ending_consonants" yaml:"ending_consonants" msgpack:"ending_consonants"`
	Vowels           []string `json:"vowels" yaml:"vowels" msgpack:"vowels"`
	Consonants       []string `json:"consonants" yaml:"consonants" msgpack:"consonants"`
}

// Snapshot returns copies of all tables.
func Snapshot() Inventory {
	return Inventory{
		VowelTable:       VowelTable(),
		ConsonantTable:   ConsonantTable(),
		EndingConsonants: EndingConsonants(),
		Vowels:           Vowels(),
		Consonants:       Consonants(),
	}
}

// Validate checks the tables against the reclist. It returns one message per
// problem; an empty result means the tables are consistent.
func Validate() []string {
	return validate(vowelTable, consonantTable, endingConsonants)
}

func validate(vowels, consonants Table, ending []string) []string {
	var problems []string

	check := func(name string, t Table) {
		for i, r := range t {
			if r.Grapheme == "" {
				problems = append(problems, fmt.Sprintf("%s rule %d has an empty grapheme", name, i))
				continue
			}
			if !IsVowel(r.Phoneme) && !IsConsonant(r.Phoneme) {
				problems = append(problems, fmt.Sprintf("%s rule %q -> %q: symbol not in reclist", name, r.Grapheme, r.Phoneme))
			}
			for _, earlier := range t[:i] {
				if strings.HasPrefix(r.Grapheme, earlier.Grapheme) {
					problems = append(problems, fmt.Sprintf("%s rule %q is shadowed by earlier rule %q", name, r.Grapheme, earlier.Grapheme))
					break
				}
			}
		}
	}
	check("vowel", vowels)
	check("consonant", consonants)

	for _, s := range ending {
		if !IsConsonant(s) {
			problems = append(problems, fmt.Sprintf("ending symbol %q is not a reclist consonant", s))
		}
	}

	return problems
}
