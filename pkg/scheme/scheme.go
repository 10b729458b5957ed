// Package scheme classifies a card by application identifier or card number
// against an ordered table of schemes.
package scheme

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Scheme is a named card brand: the AID prefixes (RIDs or full AIDs) and the
// card number pattern that identify it. The zero value is Unknown.
type Scheme struct {
	Name        string
	AIDPrefixes [][]byte
	Pattern     string

	re *regexp.Regexp
}

// Unknown is returned when nothing in the table matches.
var Unknown = Scheme{}

// AnyCard matches any 16 digit card number and no AID.
var AnyCard = MustNew("ANY", "^[0-9]{16}$")

// New builds a scheme. AIDs are hex strings; spaces are allowed.
// An empty pattern never matches a card number.
func New(name, pattern string, aids ...string) (Scheme, error) {
	s := Scheme{Name: name, Pattern: pattern}

	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Scheme{}, fmt.Errorf("scheme %s: invalid pattern: %w", name, err)
		}
		s.re = re
	}

	for _, a := range aids {
		aid, err := hex.DecodeString(stripSpaces(a))
		if err != nil {
			return Scheme{}, fmt.Errorf("scheme %s: invalid AID %q: %w", name, a, err)
		}
		if len(aid) == 0 {
			return Scheme{}, fmt.Errorf("scheme %s: empty AID", name)
		}
		s.AIDPrefixes = append(s.AIDPrefixes, aid)
	}

	return s, nil
}

// MustNew is New for static tables. It panics on error.
func MustNew(name, pattern string, aids ...string) Scheme {
	s, err := New(name, pattern, aids...)
	if err != nil {
		panic(err)
	}
	return s
}

// IsUnknown reports whether s is the Unknown scheme.
func (s Scheme) IsUnknown() bool {
	return s.Name == "" && len(s.AIDPrefixes) == 0 && s.re == nil
}

func (s Scheme) String() string {
	if s.IsUnknown() {
		return "UNKNOWN"
	}
	return s.Name
}

func (s Scheme) matchesAID(aid []byte) bool {
	for _, p := range s.AIDPrefixes {
		if bytes.HasPrefix(aid, p) {
			return true
		}
	}
	return false
}

func (s Scheme) matchesPAN(pan string) bool {
	return s.re != nil && s.re.MatchString(pan)
}

// Table is an ordered list of schemes. Order matters: the first match wins.
type Table []Scheme

// DefaultTable only knows AnyCard. Issuer tables come from configuration.
func DefaultTable() Table {
	return Table{AnyCard}
}

// ByAID returns the first scheme with an AID prefix of aid.
func (t Table) ByAID(aid []byte) Scheme {
	if len(aid) == 0 {
		return Unknown
	}
	for _, s := range t {
		if s.matchesAID(aid) {
			return s
		}
	}
	return Unknown
}

// ByPAN returns the first scheme whose pattern matches pan, whitespace
// removed.
func (t Table) ByPAN(pan string) Scheme {
	pan = stripSpaces(pan)
	if pan == "" {
		return Unknown
	}
	for _, s := range t {
		if s.matchesPAN(pan) {
			return s
		}
	}
	return Unknown
}

// Classify prefers the AID and falls back to the card number.
func (t Table) Classify(aid []byte, pan string) Scheme {
	if s := t.ByAID(aid); !s.IsUnknown() {
		return s
	}
	return t.ByPAN(pan)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
