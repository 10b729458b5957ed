package link

import (
	"context"
	"errors"
	"testing"

	pn532 "github.com/ZaparooProject/go-pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/paycard/pkg/session"
)

const (
	cmdInDataExchange = 0x40
	cmdInRelease      = 0x52

	cmdInListPassiveTarget = 0x4A
)

func newDevice(t *testing.T) (*pn532.Device, *pn532.MockTransport) {
	t.Helper()
	transport := pn532.NewMockTransport()
	device, err := pn532.New(transport)
	require.NoError(t, err)
	return device, transport
}

func TestPN532_Exchange(t *testing.T) {
	device, transport := newDevice(t)
	transport.SetResponse(cmdInDataExchange, []byte{0x41, 0x00, 0x6F, 0x00, 0x90, 0x00})
	transport.SetResponse(cmdInRelease, []byte{0x53, 0x00})

	tag := &PN532{Device: device, Tag: &pn532.DetectedTag{SAK: 0x20}}
	card, err := tag.Connect()
	require.NoError(t, err)

	resp, err := card.Transmit([]byte{0x00, 0xA4, 0x04, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6F, 0x00, 0x90, 0x00}, resp)

	require.NoError(t, card.Close())
	assert.Equal(t, 1, transport.GetCallCount(cmdInDataExchange))
	assert.Equal(t, 1, transport.GetCallCount(cmdInRelease))
}

func TestPN532_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*pn532.MockTransport)
	}{
		{
			name:  "transport error",
			setup: func(m *pn532.MockTransport) { m.SetError(cmdInDataExchange, errors.New("i2c nack")) },
		},
		{
			name:  "error frame",
			setup: func(m *pn532.MockTransport) { m.SetResponse(cmdInDataExchange, []byte{0x7F, 0x01}) },
		},
		{
			name:  "target gone",
			setup: func(m *pn532.MockTransport) { m.SetResponse(cmdInDataExchange, []byte{0x41, 0x01}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, transport := newDevice(t)
			tt.setup(transport)

			card, err := (&PN532{Device: device, Tag: &pn532.DetectedTag{SAK: 0x20}}).Connect()
			require.NoError(t, err)

			_, err = card.Transmit([]byte{0x00, 0xB2, 0x01, 0x0C, 0x00})
			assert.Error(t, err)
		})
	}
}

func TestPN532_DetectFailure(t *testing.T) {
	device, transport := newDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&PN532{Device: device, Context: ctx}).Connect()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, transport.GetCallCount(cmdInDataExchange))
	assert.Equal(t, 0, transport.GetCallCount(cmdInListPassiveTarget))
}

func TestPN532_RejectsNonISODEP(t *testing.T) {
	device, transport := newDevice(t)

	tag := &PN532{Device: device, Tag: &pn532.DetectedTag{SAK: 0x00, Type: pn532.TagTypeNTAG}}
	_, err := tag.Connect()
	assert.ErrorIs(t, err, ErrNotISODEP)
	assert.Equal(t, 0, transport.GetCallCount(cmdInDataExchange))
}

func TestPN532_SessionClosesOnce(t *testing.T) {
	device, transport := newDevice(t)
	// Every exchange answers '6A82': the card has no payment directory.
	transport.SetResponse(cmdInDataExchange, []byte{0x41, 0x00, 0x6A, 0x82})
	transport.SetResponse(cmdInRelease, []byte{0x53, 0x00})

	tag := &PN532{Device: device, Tag: &pn532.DetectedTag{SAK: 0x20}, Context: context.Background()}
	res, err := session.NewReader(session.Config{}).Run(tag)
	require.NoError(t, err)

	assert.Equal(t, session.NoUsableData, res.Kind)
	assert.Equal(t, 1, transport.GetCallCount(cmdInDataExchange))
	assert.Equal(t, 1, transport.GetCallCount(cmdInRelease))
}

func TestPN532_CancelledContextIsTransportLoss(t *testing.T) {
	device, transport := newDevice(t)
	transport.SetResponse(cmdInRelease, []byte{0x53, 0x00})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tag := &PN532{Device: device, Tag: &pn532.DetectedTag{SAK: 0x20}, Context: ctx}
	res, err := session.NewReader(session.Config{}).Run(tag)
	require.NoError(t, err)
	assert.Equal(t, session.TransportLost, res.Kind)
}

func TestOpenPN532_EmptyPath(t *testing.T) {
	_, err := OpenPN532(context.Background(), "")
	assert.ErrorContains(t, err, "empty device path")
}
