package emv

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/paycard/pkg/tlv"
)

func TestParseAFL(t *testing.T) {
	got := ParseAFL(tlv.Hex("08 01 01 00", "10 02 04 01", "F8 01 01 00", "18 00"))
	want := []AFLEntry{
		{SFI: 1, First: 1, Last: 1},
		{SFI: 2, First: 2, Last: 4, OfflineAuth: 1},
		{SFI: 31, First: 1, Last: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAFL mismatch (-want +got):\n%s", diff)
	}
}

func TestAFLEntry_Records(t *testing.T) {
	tests := []struct {
		name  string
		entry AFLEntry
		want  []byte
	}{
		{"single record", AFLEntry{SFI: 1, First: 1, Last: 1}, []byte{1}},
		{"range", AFLEntry{SFI: 2, First: 2, Last: 4}, []byte{2, 3, 4}},
		{"SFI 0", AFLEntry{SFI: 0, First: 1, Last: 1}, nil},
		{"SFI 31", AFLEntry{SFI: 31, First: 1, Last: 1}, nil},
		{"record 0", AFLEntry{SFI: 1, First: 0, Last: 2}, nil},
		{"reversed", AFLEntry{SFI: 1, First: 3, Last: 2}, nil},
		{"full range", AFLEntry{SFI: 1, First: 254, Last: 255}, []byte{254, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.entry.Records()); diff != "" {
				t.Errorf("Records mismatch (-want +got):\n%s", diff)
			}
			if got := tt.entry.Valid(); got != (tt.want != nil) {
				t.Errorf("Valid() = %v", got)
			}
		})
	}
}
