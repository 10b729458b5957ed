package emv

import (
	"strings"

	"github.com/gregLibert/paycard/pkg/bits"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// Fields are the cardholder data read from the card. Each one is optional;
// an empty string means absent.
type Fields struct {
	PAN             string
	Expiry          string // YYMM
	HolderLastName  string
	HolderFirstName string
}

// HasPAN reports whether a card number was found.
func (f Fields) HasPAN() bool {
	return f.PAN != ""
}

// Extractor accumulates Fields over the responses of one read. The first
// value seen for a field is kept; later ones are ignored. Within one
// response the dedicated tags ('5A', '5F24') come before Track 2.
type Extractor struct {
	fields   Fields
	named    bool
	extended string
}

// Scan looks for the card fields anywhere in nodes.
func (x *Extractor) Scan(nodes []tlv.Node) {
	f := &x.fields

	if f.PAN == "" {
		if n, ok := tlv.FindRecursive(nodes, TagPAN); ok {
			f.PAN = bcdDigits(n.Value)
		}
	}

	if f.Expiry == "" {
		if n, ok := tlv.FindRecursive(nodes, TagExpiry); ok {
			if d := bcdDigits(n.Value); len(d) >= 4 {
				f.Expiry = d[:4]
			}
		}
	}

	if n, ok := tlv.FindRecursive(nodes, TagTrack2); ok {
		pan, expiry := parseTrack2(n.Value)
		if f.PAN == "" {
			f.PAN = pan
		}
		if f.Expiry == "" {
			f.Expiry = expiry
		}
	}

	if !x.named {
		if n, ok := tlv.FindRecursive(nodes, TagHolderName); ok {
			f.HolderLastName, f.HolderFirstName = splitName(string(n.Value))
			x.named = f.HolderLastName != "" || f.HolderFirstName != ""
		}
	}

	if x.extended == "" {
		if n, ok := tlv.FindRecursive(nodes, TagHolderNameExtended); ok {
			x.extended = string(n.Value)
		}
	}
}

// Fields returns what was collected. The extended holder name ('9F0B') is
// only used when no '5F20' name was found.
func (x *Extractor) Fields() Fields {
	f := x.fields
	if !x.named && x.extended != "" {
		f.HolderLastName, f.HolderFirstName = splitName(x.extended)
	}
	return f
}

// bcdDigits reads packed BCD up to the first nibble that is not a digit
// (usually the 'F' padding).
func bcdDigits(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		for _, nib := range [2]byte{bits.High(c), bits.Low(c)} {
			if nib > 9 {
				return sb.String()
			}
			sb.WriteByte('0' + nib)
		}
	}
	return sb.String()
}

// parseTrack2 reads the Track 2 Equivalent Data: PAN, separator 'D', then
// YYMM, service code and discretionary data.
func parseTrack2(b []byte) (pan, expiry string) {
	var nibbles []byte
	for _, c := range b {
		nibbles = append(nibbles, bits.High(c), bits.Low(c))
	}

	sep := -1
	for i, n := range nibbles {
		if n == 0xD {
			sep = i
			break
		}
		if n > 9 {
			return "", ""
		}
	}
	if sep <= 0 {
		return "", ""
	}

	digits := func(ns []byte) string {
		out := make([]byte, len(ns))
		for i, n := range ns {
			out[i] = '0' + n
		}
		return string(out)
	}

	pan = digits(nibbles[:sep])
	rest := nibbles[sep+1:]
	if len(rest) >= 4 && rest[0] <= 9 && rest[1] <= 9 && rest[2] <= 9 && rest[3] <= 9 {
		expiry = digits(rest[:4])
	}
	return pan, expiry
}

// splitName splits "LAST/FIRST". A name without '/' is a last name.
func splitName(raw string) (last, first string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	return raw, ""
}
