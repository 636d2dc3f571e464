// Package ctc turns per-timestep class probabilities into character
// sequences using greedy blank/repeat collapsing.
package ctc

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Blank is the reserved class index meaning "no character emitted".
const Blank = 0

// Alphabet maps non-blank class indices to characters. Class i corresponds
// to the character at position i-1; index 0 is the blank.
type Alphabet struct {
	chars []rune
}

// NewAlphabet builds an alphabet from an ordered character set. The string
// is NFC-normalized so that configuration files using decomposed forms
// still yield one class per visible character.
func NewAlphabet(charset string) (*Alphabet, error) {
	chars := []rune(norm.NFC.String(charset))
	if len(chars) == 0 {
		return nil, errors.New("empty alphabet")
	}
	seen := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("duplicate character %q in alphabet", r)
		}
		seen[r] = struct{}{}
	}
	return &Alphabet{chars: chars}, nil
}

// Size returns the number of characters, excluding the blank.
func (a *Alphabet) Size() int { return len(a.chars) }

// Classes returns the number of decoder classes, including the blank.
func (a *Alphabet) Classes() int { return len(a.chars) + 1 }

// Rune returns the character for a non-blank class index.
func (a *Alphabet) Rune(class int) (rune, bool) {
	if class <= Blank || class > len(a.chars) {
		return 0, false
	}
	return a.chars[class-1], true
}

// String returns the ordered character set without the blank.
func (a *Alphabet) String() string { return string(a.chars) }
