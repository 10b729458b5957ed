package iso7816

import (
	"bytes"
	"fmt"
)

// APDU ENCODING (ISO/IEC 7816-3 and 7816-4):
//
// C-APDU = CLA INS P1 P2 [Lc Data] [Le]
//
//   - Case 1: header only.
//   - Case 2: header + Le (response expected, no data).
//   - Case 3: header + Lc + data (no response expected).
//   - Case 4: header + Lc + data + Le.
//
// Short form: Lc on 1 byte (1..255), Le on 1 byte where '00' means 256.
// Extended form: triggered when Nc > 255 or Ne > 256. Lc becomes '00' + 2 bytes;
// Le becomes 2 bytes ('0000' means 65536), preceded by '00' when Lc is absent.
//
// R-APDU = [Data] SW1 SW2

// APDU size limits.
const (
	// MaxShortLc is the largest Nc encodable in a short Lc.
	MaxShortLc = 255

	// MaxShortLe is the largest Ne encodable in a short Le ('00').
	MaxShortLe = 256

	// MaxExtendedLc is the largest Nc encodable in an extended Lc.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the largest Ne encodable in an extended Le ('0000').
	MaxExtendedLe = 65536
)

// CommandAPDU is a command sent to the card. Treat it as immutable once built.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // expected response length, 0 for none
}

// NewCommandAPDU creates a command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// WithNe returns a copy of the command expecting ne bytes.
func (c *CommandAPDU) WithNe(ne int) *CommandAPDU {
	clone := *c
	clone.Ne = ne
	return &clone
}

// Bytes encodes the command, choosing short or extended lengths from Nc and Ne.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("command data too long: %d bytes", nc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("invalid expected length: %d", ne)
	}

	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{class, byte(c.Instruction.Raw), c.P1, c.P2})

	extended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if extended {
			buf.Write([]byte{0x00, byte(nc >> 8), byte(nc)})
		} else {
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !extended:
			// 256 wraps to '00'
			buf.WriteByte(byte(ne))
		default:
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			// 65536 wraps to '0000'
			buf.Write([]byte{byte(ne >> 8), byte(ne)})
		}
	}

	return buf.Bytes(), nil
}

// String summarizes the command header for logs.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU is the card's answer.
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw bytes into data and status word.
// At least SW1 SW2 must be present.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	split := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:split],
		Status: NewStatusWord(raw[split], raw[split+1]),
	}, nil
}

// String summarizes the response for logs.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
