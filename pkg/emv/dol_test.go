package emv

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/paycard/pkg/tlv"
)

func TestParseDOL(t *testing.T) {
	tests := []struct {
		name    string
		dol     []byte
		want    []DOLEntry
		wantErr bool
	}{
		{
			name: "Visa style PDOL",
			dol:  tlv.Hex("9F66 04 9F02 06 9F37 04 5F2A 02 9A 03"),
			want: []DOLEntry{
				{Tag: 0x9F66, Length: 4},
				{Tag: 0x9F02, Length: 6},
				{Tag: 0x9F37, Length: 4},
				{Tag: 0x5F2A, Length: 2},
				{Tag: 0x9A, Length: 3},
			},
		},
		{
			name: "Empty",
			dol:  nil,
			want: nil,
		},
		{
			name:    "Missing length",
			dol:     tlv.Hex("9F66 04 9F02"),
			wantErr: true,
		},
		{
			name:    "Cut tag",
			dol:     tlv.Hex("9F"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDOL(tt.dol)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDOL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, tlv.ErrMalformed) {
					t.Errorf("error %v does not wrap tlv.ErrMalformed", err)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseDOL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTerminal_Answer(t *testing.T) {
	term := DefaultTerminal()
	term.Now = func() time.Time { return time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC) }
	term.Random = bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04})

	dol, err := ParseDOL(tlv.Hex("9F66 04 9F02 06 9F37 04 5F2A 02 9A 03 9C 01 9F4E 02"))
	if err != nil {
		t.Fatalf("ParseDOL: %v", err)
	}

	got, err := term.Answer(dol)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	want := tlv.Hex(
		"36004000",     // TTQ
		"000000000000", // amount
		"01020304",     // unpredictable number
		"0978",         // EUR
		"261015",       // date
		"00",           // purchase
		"0000",         // unknown to the terminal
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Answer mismatch (-want +got):\n%s", diff)
	}
}

func TestTerminal_AnswerRandomFailure(t *testing.T) {
	term := DefaultTerminal()
	term.Random = bytes.NewReader(nil)

	if _, err := term.Answer([]DOLEntry{{Tag: TagUnpredictableNumber, Length: 4}}); err == nil {
		t.Error("expected an error when no randomness is available")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		length  int
		numeric bool
		want    []byte
	}{
		{"numeric padded left", []byte{0x09, 0x78}, 3, true, []byte{0x00, 0x09, 0x78}},
		{"numeric cut left", []byte{0x01, 0x02, 0x03}, 2, true, []byte{0x02, 0x03}},
		{"binary padded right", []byte{0x36}, 3, false, []byte{0x36, 0x00, 0x00}},
		{"binary cut right", []byte{0x36, 0x00, 0x40, 0x00}, 2, false, []byte{0x36, 0x00}},
		{"unknown value", nil, 2, false, []byte{0x00, 0x00}},
		{"zero length", []byte{0x01}, 0, false, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, fit(tt.in, tt.length, tt.numeric)); diff != "" {
				t.Errorf("fit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
