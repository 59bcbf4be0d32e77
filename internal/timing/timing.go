// Package timing spreads a note's phonemes across its duration.
package timing

// TimedPhoneme is a phoneme placed at Position ticks from the note start.
type TimedPhoneme struct {
	Phoneme  string `json:"phoneme" yaml:"phoneme" msgpack:"phoneme"`
	Position int    `json:"position" yaml:"position" msgpack:"position"`
}

// Allocate places symbol i at duration*i/len(symbols), truncated. The first
// symbol always sits at 0. With no symbols it returns passthrough alone at 0
// so the synthesizer always has something to attempt.
func Allocate(symbols []string, duration int, passthrough string) []TimedPhoneme {
	if len(symbols) == 0 {
		return []TimedPhoneme{{Phoneme: passthrough}}
	}
	if duration < 0 {
		duration = 0
	}

	k := len(symbols)
	out := make([]TimedPhoneme, k)
	out[0] = TimedPhoneme{Phoneme: symbols[0]}
	for i := 1; i < k; i++ {
		out[i] = TimedPhoneme{
			Phoneme:  symbols[i],
			Position: int(int64(duration) * int64(i) / int64(k)),
		}
	}
	return out
}
