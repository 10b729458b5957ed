package emv

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/tlv"
)

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  *iso7816.CommandAPDU
		want []byte
	}{
		{
			name: "SELECT PPSE",
			cmd:  SelectPPSE(),
			want: tlv.Hex("00 A4 04 00 0E 325041592E5359532E4444463031 00"),
		},
		{
			name: "SELECT application",
			cmd:  SelectApplication(tlv.Hex("A0000000031010")),
			want: tlv.Hex("00 A4 04 00 07 A0000000031010 00"),
		},
		{
			name: "READ RECORD SFI 2 record 3",
			cmd:  ReadRecord(2, 3),
			want: tlv.Hex("00 B2 03 14 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
