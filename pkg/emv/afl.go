package emv

import (
	"fmt"

	"github.com/gregLibert/paycard/pkg/bits"
)

// AFLEntry is one 4-byte entry of the Application File Locator.
type AFLEntry struct {
	SFI         byte
	First       byte
	Last        byte
	OfflineAuth byte
}

// ParseAFL splits afl into entries. Trailing bytes that do not make a full
// entry are ignored.
func ParseAFL(afl []byte) []AFLEntry {
	entries := make([]AFLEntry, 0, len(afl)/4)
	for i := 0; i+4 <= len(afl); i += 4 {
		entries = append(entries, AFLEntry{
			SFI:         bits.GetRange(afl[i], 8, 4),
			First:       afl[i+1],
			Last:        afl[i+2],
			OfflineAuth: afl[i+3],
		})
	}
	return entries
}

// Valid reports whether the entry can be read: SFI 1 to 30, records
// numbered from 1 and in order.
func (e AFLEntry) Valid() bool {
	return e.SFI >= 1 && e.SFI <= 30 && e.First >= 1 && e.Last >= e.First
}

// Records returns the record numbers covered by the entry.
func (e AFLEntry) Records() []byte {
	if !e.Valid() {
		return nil
	}
	out := make([]byte, 0, int(e.Last)-int(e.First)+1)
	for r := int(e.First); r <= int(e.Last); r++ {
		out = append(out, byte(r))
	}
	return out
}

func (e AFLEntry) String() string {
	return fmt.Sprintf("SFI %d records %d-%d", e.SFI, e.First, e.Last)
}
