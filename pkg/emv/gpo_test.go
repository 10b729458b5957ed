package emv

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/paycard/pkg/tlv"
)

func TestGetProcessingOptions(t *testing.T) {
	tests := []struct {
		name   string
		answer []byte
		want   []byte
	}{
		{
			name:   "No PDOL",
			answer: nil,
			want:   tlv.Hex("80 A8 00 00 02 83 00 00"),
		},
		{
			name:   "With PDOL answer",
			answer: tlv.Hex("AA BB"),
			want:   tlv.Hex("80 A8 00 00 04 83 02 AA BB 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := GetProcessingOptions(tt.answer)
			if err != nil {
				t.Fatalf("GetProcessingOptions: %v", err)
			}
			got, err := cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseProcessingOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantAIP []byte
		wantAFL []AFLEntry
		wantErr error
	}{
		{
			name:    "Format 1",
			raw:     tlv.Hex("80 0A 1980 08010100 10010300"),
			wantAIP: tlv.Hex("1980"),
			wantAFL: []AFLEntry{
				{SFI: 1, First: 1, Last: 1},
				{SFI: 2, First: 1, Last: 3},
			},
		},
		{
			name:    "Format 2",
			raw:     tlv.Hex("77 0E 82 02 2000 94 08 08010100 18010201"),
			wantAIP: tlv.Hex("2000"),
			wantAFL: []AFLEntry{
				{SFI: 1, First: 1, Last: 1},
				{SFI: 3, First: 1, Last: 2, OfflineAuth: 1},
			},
		},
		{
			name:    "Format 2 without AFL",
			raw:     tlv.Hex("77 04 82 02 0000"),
			wantAIP: tlv.Hex("0000"),
			wantAFL: nil,
		},
		{
			name:    "Format 1 too short",
			raw:     tlv.Hex("80 01 19"),
			wantErr: ErrResponseFormat,
		},
		{
			name:    "Unknown template",
			raw:     tlv.Hex("70 00"),
			wantErr: ErrResponseFormat,
		},
		{
			name:    "Malformed",
			raw:     tlv.Hex("77 10 82 02"),
			wantErr: tlv.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProcessingOptions(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantAIP, got.AIP); diff != "" {
				t.Errorf("AIP mismatch (-want +got):\n%s", diff)
			}
			if len(tt.wantAFL) == 0 && len(got.AFL) == 0 {
				return
			}
			if diff := cmp.Diff(tt.wantAFL, got.AFL); diff != "" {
				t.Errorf("AFL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
