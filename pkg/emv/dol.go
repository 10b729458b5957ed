package emv

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/gregLibert/paycard/pkg/tlv"
)

// DATA OBJECT LIST (EMV Book 3, 5.4):
//
// A DOL is a list of tag and length pairs without values. The terminal
// answers with the concatenated values, each exactly the requested length:
//
//   - numeric (n) data is left padded with '00' or cut from the left,
//   - any other data is right padded with '00' or cut from the right,
//   - data the terminal does not know is sent as zeros.

// DOLEntry is one requested data object.
type DOLEntry struct {
	Tag    tlv.Tag
	Length int
}

// ParseDOL splits a DOL into its entries.
func ParseDOL(dol []byte) ([]DOLEntry, error) {
	var entries []DOLEntry

	for pos := 0; pos < len(dol); {
		tag, n, err := tlv.ParseTag(dol[pos:])
		if err != nil {
			return nil, fmt.Errorf("DOL tag at offset %d: %w", pos, err)
		}
		pos += n

		if pos >= len(dol) {
			return nil, fmt.Errorf("DOL entry %s has no length: %w", tag,
				&tlv.DecodeError{Kind: tlv.Truncated, Offset: pos, Tag: tag})
		}
		entries = append(entries, DOLEntry{Tag: tag, Length: int(dol[pos])})
		pos++
	}

	return entries, nil
}

// Terminal data objects commonly requested in a PDOL.
const (
	TagTTQ                 tlv.Tag = 0x9F66
	TagAmountAuthorised    tlv.Tag = 0x9F02
	TagAmountOther         tlv.Tag = 0x9F03
	TagTerminalCountryCode tlv.Tag = 0x9F1A
	TagTransactionCurrency tlv.Tag = 0x5F2A
	TagTransactionDate     tlv.Tag = 0x9A
	TagTransactionType     tlv.Tag = 0x9C
	TagUnpredictableNumber tlv.Tag = 0x9F37
	TagTerminalType        tlv.Tag = 0x9F35
	TagTVR                 tlv.Tag = 0x95
)

var numericTags = map[tlv.Tag]bool{
	TagAmountAuthorised:    true,
	TagAmountOther:         true,
	TagTerminalCountryCode: true,
	TagTransactionCurrency: true,
	TagTransactionDate:     true,
	TagTransactionType:     true,
	TagTerminalType:        true,
}

// Terminal is the profile used to answer a PDOL. Amounts stay zero: the
// reader never pays.
type Terminal struct {
	TTQ             []byte
	CountryCode     []byte
	CurrencyCode    []byte
	TransactionType byte
	TerminalType    byte

	Now    func() time.Time
	Random io.Reader
}

// DefaultTerminal returns an attended, online capable, EMV mode profile
// set for France and euros.
func DefaultTerminal() Terminal {
	return Terminal{
		TTQ:             []byte{0x36, 0x00, 0x40, 0x00},
		CountryCode:     []byte{0x02, 0x50},
		CurrencyCode:    []byte{0x09, 0x78},
		TransactionType: 0x00,
		TerminalType:    0x22,
		Now:             time.Now,
		Random:          rand.Reader,
	}
}

// values returns the data objects the terminal can provide.
func (t Terminal) values() (map[tlv.Tag][]byte, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	random := t.Random
	if random == nil {
		random = rand.Reader
	}

	un := make([]byte, 4)
	if _, err := io.ReadFull(random, un); err != nil {
		return nil, fmt.Errorf("unpredictable number: %w", err)
	}

	d := now()
	return map[tlv.Tag][]byte{
		TagTTQ:                 t.TTQ,
		TagTerminalCountryCode: t.CountryCode,
		TagTransactionCurrency: t.CurrencyCode,
		TagTransactionDate:     {bcd(d.Year() % 100), bcd(int(d.Month())), bcd(d.Day())},
		TagTransactionType:     {t.TransactionType},
		TagTerminalType:        {t.TerminalType},
		TagUnpredictableNumber: un,
	}, nil
}

// Answer builds the concatenated values requested by dol.
func (t Terminal) Answer(dol []DOLEntry) ([]byte, error) {
	values, err := t.values()
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, e := range dol {
		out = append(out, fit(values[e.Tag], e.Length, numericTags[e.Tag])...)
	}
	return out, nil
}

// fit pads or cuts v to length bytes.
func fit(v []byte, length int, numeric bool) []byte {
	out := make([]byte, length)
	switch {
	case len(v) >= length && numeric:
		copy(out, v[len(v)-length:])
	case len(v) >= length:
		copy(out, v[:length])
	case numeric:
		copy(out[length-len(v):], v)
	default:
		copy(out, v)
	}
	return out
}

func bcd(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}
