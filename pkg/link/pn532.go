package link

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pn532 "github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/transport/i2c"
	"github.com/ZaparooProject/go-pn532/transport/spi"
	"github.com/ZaparooProject/go-pn532/transport/uart"

	"github.com/gregLibert/paycard/pkg/session"
)

// ErrNotISODEP is returned when the tag in the field does not speak
// ISO/IEC 14443-4, so it cannot be a payment card.
var ErrNotISODEP = errors.New("link: tag is not ISO 14443-4")

// sakISODEP is the SAK bit announcing ISO/IEC 14443-4 compliance.
const sakISODEP = 0x20

// PN532 is a card in the field of a PN532 board. Exchanges use Context,
// which bounds the whole session.
type PN532 struct {
	Device  *pn532.Device
	Tag     *pn532.DetectedTag
	Context context.Context
}

// WaitForTag polls device until a tag enters the field.
func WaitForTag(ctx context.Context, device *pn532.Device) (*PN532, error) {
	tag, err := device.WaitForTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for tag: %w", err)
	}
	return &PN532{Device: device, Tag: tag, Context: ctx}, nil
}

// Connect checks that the tag is a smart card and hands out its APDU link.
// Without a Tag it first looks for one in the field.
func (p *PN532) Connect() (session.Transceiver, error) {
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if p.Tag == nil {
		tag, err := p.Device.DetectTagContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect tag: %w", err)
		}
		p.Tag = tag
	}
	if p.Tag.SAK&sakISODEP == 0 {
		return nil, fmt.Errorf("%w: SAK %02X", ErrNotISODEP, p.Tag.SAK)
	}
	return &pn532Card{device: p.Device, ctx: ctx}, nil
}

type pn532Card struct {
	device *pn532.Device
	ctx    context.Context
}

func (c *pn532Card) Transmit(cmd []byte) ([]byte, error) {
	return c.device.SendDataExchangeContext(c.ctx, cmd)
}

// Close releases every selected target.
func (c *pn532Card) Close() error {
	return c.device.InReleaseContext(c.ctx, 0)
}

// OpenPN532 opens the board at path and initialises it. The transport is
// picked from the path the way the board shows up on Linux: i2c and spi
// device nodes by name, anything else is a serial port.
func OpenPN532(ctx context.Context, path string) (*pn532.Device, error) {
	transport, err := newTransport(path)
	if err != nil {
		return nil, err
	}

	device, err := pn532.New(transport)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("pn532 %s: %w", path, err)
	}
	if err := device.InitContext(ctx); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("pn532 %s: init: %w", path, err)
	}
	return device, nil
}

func newTransport(path string) (pn532.Transport, error) {
	if path == "" {
		return nil, errors.New("pn532: empty device path")
	}

	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "i2c"):
		t, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("pn532 %s: i2c: %w", path, err)
		}
		return t, nil
	case strings.Contains(lower, "spi"):
		t, err := spi.New(path)
		if err != nil {
			return nil, fmt.Errorf("pn532 %s: spi: %w", path, err)
		}
		return t, nil
	}

	t, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("pn532 %s: uart: %w", path, err)
	}
	return t, nil
}
