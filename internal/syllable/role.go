package syllable

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Role is the classification of a syllable. Exactly one role applies.
type Role int

const (
	// StartingV: first sound of a phrase, no onset.
	StartingV Role = iota + 1
	// VV: hiatus, a vowel directly after another vowel.
	VV
	// StartingCV: first syllable of a phrase with an onset.
	StartingCV
	// VCV: a single consonant between two vowels; it attaches forward.
	VCV
	// ClusterOnset: two or more consonants after a vowel. Only the nucleus
	// is sounded and the onset is lost.
	ClusterOnset
)

var roleNames = map[Role]string{
	StartingV:    "starting-v",
	VV:           "vv",
	StartingCV:   "starting-cv",
	VCV:          "vcv",
	ClusterOnset: "cluster-onset",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalText lets roles appear by name in JSON and YAML output.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// EncodeMsgpack writes the role name as a msgpack str. Without it the
// encoder falls back to MarshalText and emits bin.
func (r Role) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(r.String())
}

// Classify evaluates the role table in priority order.
func Classify(s Syllable) Role {
	starting := s.PrevV == ""
	switch {
	case starting && len(s.Onset) == 0:
		return StartingV
	case !starting && len(s.Onset) == 0:
		return VV
	case starting:
		return StartingCV
	case len(s.Onset) == 1:
		return VCV
	default:
		return ClusterOnset
	}
}
