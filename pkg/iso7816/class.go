package iso7816

import (
	"fmt"

	"github.com/gregLibert/paycard/pkg/bits"
)

// CLASS BYTE (ISO/IEC 7816-4, section 5.1.1):
//
//   - Bit 8 set: proprietary class. EMV uses '80' for GET PROCESSING OPTIONS
//     and the other payment commands; the remaining bits are opaque.
//   - '00xx xxxx' first interindustry: bits 4-3 secure messaging, bits 2-1
//     logical channel 0-3.
//   - '01xx xxxx' further interindustry: bit 6 secure messaging on/off,
//     bits 4-1 logical channel minus 4 (channels 4-19).
//   - Bit 5 in both interindustry forms: command chaining.

// SecureMessaging is the secure messaging indication of the class byte.
// Payment cards read in the clear, so only SMNone is ever sent here.
type SecureMessaging int

const (
	SMNone         SecureMessaging = 0
	SMProprietary  SecureMessaging = 1
	SMHeaderNoProc SecureMessaging = 2
	SMHeaderAuth   SecureMessaging = 3
)

// Class is a decoded CLA byte.
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // 0-19
}

// NewClass decodes a CLA byte. 'FF' is reserved for PPS and rejected.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{Raw: cla}

	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
		return c, nil
	}

	if bits.IsSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bits.GetRange(cla, 4, 1) + 4

	return c, nil
}

// Encode gives the CLA byte back. Proprietary classes are returned as
// decoded; interindustry ones are rebuilt from their fields.
func (c Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}
	if c.Channel > 19 {
		return 0, fmt.Errorf("logical channel %d out of range", c.Channel)
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}

	if c.Channel < 4 {
		return res | byte(c.SecureMessaging&0x03)<<2 | c.Channel, nil
	}

	res = bits.Set(res, 7)
	if c.SecureMessaging != SMNone {
		res = bits.Set(res, 6)
	}
	return res | (c.Channel - 4), nil
}

// String gives the raw byte and, for interindustry classes, the channel.
func (c Class) String() string {
	if c.IsProprietary {
		return fmt.Sprintf("%02X (proprietary)", c.Raw)
	}
	raw, _ := c.Encode()
	if c.IsChained {
		return fmt.Sprintf("%02X (channel %d, chained)", raw, c.Channel)
	}
	return fmt.Sprintf("%02X (channel %d)", raw, c.Channel)
}
