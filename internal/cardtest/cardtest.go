// Package cardtest simulates a contactless payment card for tests: it
// answers SELECT, GET PROCESSING OPTIONS and READ RECORD from tables and can
// be told to fail on a given exchange.
package cardtest

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gregLibert/paycard/internal/syncutil"
	"github.com/gregLibert/paycard/pkg/emv"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// Status words used by the fixtures.
var (
	SW9000 = []byte{0x90, 0x00}
	SW6A82 = []byte{0x6A, 0x82}
)

// Application identifiers used by the fixtures.
const (
	VisaAID = "A0000000031010"
	MCAID   = "A0000000041010"
	CBAID   = "A0000000421010"
)

// Data objects used by the fixtures.
var (
	Track2 = tlv.Primitive(0x57, tlv.Hex("4111111111111111D25122010000000000000F"))
	Name   = tlv.Primitive(0x5F20, []byte("DOE/JOHN"))
)

// ErrRemoved is returned by the failing exchange.
var ErrRemoved = errors.New("card removed")

// ErrClosed is returned by Transmit after Close.
var ErrClosed = errors.New("card link closed")

// Card answers by instruction: SELECT by DF name, GPO, READ RECORD by SFI
// and record. Anything it has no answer for gets '6A82'.
type Card struct {
	Selects map[string][]byte  // hex DF name -> answer
	GPO     []byte             // nil answers 6A82
	Records map[[2]byte][]byte // {SFI, record} -> answer

	// FailAt makes exchange number FailAt (0 based) fail; -1 never.
	FailAt int

	// PanicAt makes exchange number PanicAt panic; -1 never.
	PanicAt int

	mu     syncutil.Mutex
	sent   [][]byte
	closes int
}

// New returns a card that knows nothing.
func New() *Card {
	return &Card{
		Selects: map[string][]byte{},
		Records: map[[2]byte][]byte{},
		FailAt:  -1,
		PanicAt: -1,
	}
}

// Standard is a single Visa application with three records over two files:
// the name in SFI 1, Track 2 in the last record of SFI 2. A full read takes
// six exchanges.
func Standard() *Card {
	c := New()
	c.OnPPSE(PPSE(App(VisaAID, 1)))
	c.OnSelect(VisaAID, ADF(VisaAID))
	c.GPO = GPOFormat1("1980", "08010100", "10010200")
	c.OnRecord(1, 1, Record(Name))
	c.OnRecord(2, 1, Record(tlv.Primitive(0x9F08, []byte{0x00, 0x02})))
	c.OnRecord(2, 2, Record(Track2))
	return c
}

// Transmit implements iso7816.Transmitter.
func (c *Card) Transmit(cmd []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closes > 0 {
		return nil, ErrClosed
	}

	n := len(c.sent)
	c.sent = append(c.sent, append([]byte(nil), cmd...))
	if n == c.FailAt {
		return nil, ErrRemoved
	}
	if n == c.PanicAt {
		panic(fmt.Sprintf("exchange %d", n))
	}
	if len(cmd) < 4 {
		return SW6A82, nil
	}

	switch cmd[1] {
	case 0xA4:
		if len(cmd) > 5 && len(cmd) >= 5+int(cmd[4]) {
			name := cmd[5 : 5+int(cmd[4])]
			if answer, ok := c.Selects[hex.EncodeToString(name)]; ok {
				return answer, nil
			}
		}
	case 0xA8:
		if c.GPO != nil {
			return c.GPO, nil
		}
	case 0xB2:
		if answer, ok := c.Records[[2]byte{cmd[3] >> 3, cmd[2]}]; ok {
			return answer, nil
		}
	}
	return SW6A82, nil
}

// Close records the call. Transmit fails afterwards.
func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

// Closes returns how many times Close was called.
func (c *Card) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Sent returns a copy of the commands received.
func (c *Card) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// Count returns how many commands with instruction ins were received.
func (c *Card) Count(ins byte) int {
	n := 0
	for _, cmd := range c.Sent() {
		if cmd[1] == ins {
			n++
		}
	}
	return n
}

// Selected returns the DF names of the SELECT commands, in order.
func (c *Card) Selected() []string {
	var out []string
	for _, cmd := range c.Sent() {
		if cmd[1] == 0xA4 {
			out = append(out, fmt.Sprintf("%X", cmd[5:5+int(cmd[4])]))
		}
	}
	return out
}

// LastGPO returns the last GPO command received.
func (c *Card) LastGPO() []byte {
	sent := c.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i][1] == 0xA8 {
			return sent[i]
		}
	}
	return nil
}

// OnPPSE sets the answer to SELECT PPSE.
func (c *Card) OnPPSE(answer []byte) {
	c.Selects[hex.EncodeToString([]byte(emv.PPSEName))] = answer
}

// OnSelect sets the answer to SELECT aid.
func (c *Card) OnSelect(aid string, answer []byte) {
	c.Selects[hex.EncodeToString(tlv.Hex(aid))] = answer
}

// OnRecord sets the answer to READ RECORD.
func (c *Card) OnRecord(sfi, rec byte, answer []byte) {
	c.Records[[2]byte{sfi, rec}] = answer
}

// Encode encodes nodes and panics on error.
func Encode(nodes ...tlv.Node) []byte {
	b, err := tlv.EncodeNodes(nodes)
	if err != nil {
		panic(err)
	}
	return b
}

// WithSW appends a status word to data.
func WithSW(data []byte, sw []byte) []byte {
	return append(append([]byte(nil), data...), sw...)
}

// App is a PPSE directory entry.
func App(aid string, priority byte) tlv.Node {
	return tlv.Constructed(0x61,
		tlv.Primitive(0x4F, tlv.Hex(aid)),
		tlv.Primitive(0x87, []byte{priority}),
	)
}

// PPSE is a successful SELECT PPSE answer listing apps.
func PPSE(apps ...tlv.Node) []byte {
	return WithSW(Encode(tlv.Constructed(0x6F,
		tlv.Primitive(0x84, []byte(emv.PPSEName)),
		tlv.Constructed(0xA5, tlv.Constructed(0xBF0C, apps...)),
	)), SW9000)
}

// ADF is a successful SELECT AID answer; extra objects go in 'A5'.
func ADF(aid string, extra ...tlv.Node) []byte {
	prop := append([]tlv.Node{tlv.Primitive(0x50, []byte("TEST"))}, extra...)
	return WithSW(Encode(tlv.Constructed(0x6F,
		tlv.Primitive(0x84, tlv.Hex(aid)),
		tlv.Constructed(0xA5, prop...),
	)), SW9000)
}

// Record is a successful READ RECORD answer.
func Record(children ...tlv.Node) []byte {
	return WithSW(Encode(tlv.Constructed(0x70, children...)), SW9000)
}

// GPOFormat1 is a successful format 1 GPO answer.
func GPOFormat1(aip string, afl ...string) []byte {
	value := tlv.Hex(append([]string{aip}, afl...)...)
	return WithSW(Encode(tlv.Primitive(0x80, value)), SW9000)
}
