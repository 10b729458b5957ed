package iso7816

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures of the physical link: I/O errors, a closed
// channel, or a frame too short to carry a status word. Once it is returned
// the link must not be used again.
var ErrTransport = errors.New("iso7816: transport failure")

// MaxAutoResponses bounds how many GET RESPONSE / Le corrections Send issues
// for one logical command. A card that keeps answering 61XX past this point
// gets its last answer returned as is.
const MaxAutoResponses = 8

// Transmitter is the byte exchange with one card. One call is one round trip.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client sends commands over a Transmitter and follows 61XX and 6CXX.
// It is not safe for concurrent use: the link is half-duplex.
type Client struct {
	Card Transmitter
}

// NewClient creates a Client over card.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits cmd and resolves transport-level status words.
// Errors wrap ErrTransport, except command encoding errors.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace

	next := cmd
	for step := 0; ; step++ {
		resp, err := c.exchange(next)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: next, Response: resp})

		if step >= MaxAutoResponses {
			return trace, nil
		}

		switch resp.Status.SW1() {
		case 0x61:
			next = getResponse(cmd.Class, resp.Status.SW2())
		case 0x6C:
			next = cmd.WithNe(leFromSW2(resp.Status.SW2()))
		default:
			return trace, nil
		}
	}
}

func (c *Client) exchange(cmd *CommandAPDU) (*ResponseAPDU, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

// getResponse builds GET RESPONSE on the same logical channel as the
// original command, without the chaining bit. GET RESPONSE is an
// interindustry command, so a proprietary class falls back to '00'.
func getResponse(original Class, available byte) *CommandAPDU {
	cls := original
	cls.IsChained = false
	if cls.IsProprietary {
		cls = Class{}
	}

	ins, _ := NewInstruction(INS_GET_RESPONSE)
	return NewCommandAPDU(cls, ins, 0x00, 0x00, nil, leFromSW2(available))
}

// leFromSW2 maps SW2 to Ne, '00' meaning 256.
func leFromSW2(sw2 byte) int {
	if sw2 == 0 {
		return MaxShortLe
	}
	return int(sw2)
}
