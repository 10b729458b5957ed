package tlv

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/moov-io/bertlv"
)

type customType struct {
	Val string
}

func (c *customType) UnmarshalTLV(data []byte) error {
	c.Val = "custom:" + hex.EncodeToString(data)
	return nil
}

type nestedStruct struct {
	Version []byte `tlv:"82"`
}

type entry struct {
	AID []byte `tlv:"4F"`
}

type testStruct struct {
	AID     []byte       `tlv:"84"`
	Label   string       `tlv:"50"`
	Details nestedStruct `tlv:"A5"`
	Custom  customType   `tlv:"9F02"`
	Entries []entry      `tlv:"61"`
	Other   []bertlv.TLV `tlv:",unknown"`
}

func TestUnmarshal(t *testing.T) {
	raw := Hex(
		"84 02 1122",
		"50 03 414243",
		"A5 03 8201FF",
		"9F02 01 AA",
		"61 03 4F01A1",
		"61 03 4F01A2",
		"DF01 01 BB",
	)

	var got testStruct
	if err := Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if hex.EncodeToString(got.AID) != "1122" {
		t.Errorf("AID = %x", got.AID)
	}
	if got.Label != "414243" {
		t.Errorf("Label = %s", got.Label)
	}
	if hex.EncodeToString(got.Details.Version) != "ff" {
		t.Errorf("nested Version = %x", got.Details.Version)
	}
	if got.Custom.Val != "custom:aa" {
		t.Errorf("Custom = %s", got.Custom.Val)
	}
	if len(got.Entries) != 2 || got.Entries[1].AID[0] != 0xA2 {
		t.Errorf("Entries = %+v", got.Entries)
	}
	if len(got.Other) != 1 || strings.ToUpper(got.Other[0].Tag) != "DF01" {
		t.Errorf("unknown tag DF01 not captured: %+v", got.Other)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("Non-pointer target", func(t *testing.T) {
		err := Unmarshal(Hex("84 00"), testStruct{})
		if err == nil || !strings.Contains(err.Error(), "pointer") {
			t.Errorf("expected pointer error, got %v", err)
		}
	})

	t.Run("Malformed input", func(t *testing.T) {
		var got testStruct
		err := Unmarshal(Hex("84 05 11"), &got)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}
