package iso7816

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/paycard/pkg/tlv"
)

// scriptedCard answers each Transmit with the next scripted reply.
type scriptedCard struct {
	replies [][]byte
	errs    []error
	sent    [][]byte
}

func (c *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	i := len(c.sent)
	c.sent = append(c.sent, append([]byte(nil), cmd...))
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.replies) {
		return nil, errors.New("script exhausted")
	}
	return c.replies[i], nil
}

func TestClient_Send(t *testing.T) {
	cls, _ := NewClass(0x00)

	t.Run("plain 9000", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{tlv.Hex("6F00 9000")}}
		tr, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		require.NoError(t, err)
		require.Len(t, tr, 1)
		assert.Equal(t, SW_NO_ERROR, tr.Status())
		assert.Equal(t, tlv.Hex("6F00"), tr.Data())
	})

	t.Run("61XX follows with GET RESPONSE", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{
			tlv.Hex("6104"),
			tlv.Hex("70 02 5A 00 9000"),
		}}
		tr, err := NewClient(card).Send(SelectByAID(cls, []byte{0xA0, 0x00}))
		require.NoError(t, err)
		require.Len(t, tr, 2)
		assert.Equal(t, tlv.Hex("00 C0 00 00 04"), card.sent[1])
		assert.Equal(t, tlv.Hex("70 02 5A 00"), tr.Data())
	})

	t.Run("61XX pieces are joined", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{
			tlv.Hex("6106"),
			tlv.Hex("6F04 8402 6103", "6103"),
			tlv.Hex("1122 9000"),
		}}
		tr, err := NewClient(card).Send(SelectByAID(cls, []byte{0xA0, 0x00}))
		require.NoError(t, err)
		require.Len(t, tr, 3)
		assert.Equal(t, tlv.Hex("00 C0 00 00 06"), card.sent[1])
		assert.Equal(t, tlv.Hex("00 C0 00 00 03"), card.sent[2])
		assert.Equal(t, SW_NO_ERROR, tr.Status())
		assert.Equal(t, tlv.Hex("6F04 8402 6103 1122"), tr.Data())
	})

	t.Run("6CXX drops the data of the refused attempt", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{
			tlv.Hex("6C02"),
			tlv.Hex("5A00 9000"),
		}}
		tr, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		require.NoError(t, err)
		require.Len(t, tr, 2)
		assert.Equal(t, tlv.Hex("5A00"), tr.Data())
	})

	t.Run("GET RESPONSE after a proprietary command uses CLA 00", func(t *testing.T) {
		emv, _ := NewClass(0x80)
		ins, _ := NewInstruction(INS_GET_PROCESSING_OPTIONS)
		card := &scriptedCard{replies: [][]byte{
			tlv.Hex("6108"),
			tlv.Hex("80 06 1980 08010100 9000"),
		}}
		_, err := NewClient(card).Send(NewCommandAPDU(emv, ins, 0x00, 0x00, tlv.Hex("8300"), MaxShortLe))
		require.NoError(t, err)
		assert.Equal(t, tlv.Hex("00 C0 00 00 08"), card.sent[1])
	})

	t.Run("6CXX resends with corrected Le", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{
			tlv.Hex("6C10"),
			tlv.Hex("70 00 9000"),
		}}
		tr, err := NewClient(card).Send(ReadRecord(cls, 2, 3))
		require.NoError(t, err)
		require.Len(t, tr, 2)
		assert.Equal(t, tlv.Hex("00 B2 03 14 10"), card.sent[1])
		assert.True(t, tr.IsSuccess())
	})

	t.Run("error status is not a Go error", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{tlv.Hex("6A82")}}
		tr, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, SW_ERR_FILE_NOT_FOUND, tr.Status())
		assert.False(t, tr.IsSuccess())
	})

	t.Run("auto responses are bounded", func(t *testing.T) {
		replies := make([][]byte, MaxAutoResponses+5)
		for i := range replies {
			replies[i] = tlv.Hex("6110")
		}
		card := &scriptedCard{replies: replies}
		tr, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		require.NoError(t, err)
		assert.Len(t, card.sent, MaxAutoResponses+1)
		assert.Len(t, tr, MaxAutoResponses+1)
		assert.Equal(t, byte(0x61), tr.Status().SW1())
	})

	t.Run("transmit error wraps ErrTransport", func(t *testing.T) {
		cause := errors.New("card removed")
		card := &scriptedCard{errs: []error{cause}}
		_, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("short response wraps ErrTransport", func(t *testing.T) {
		card := &scriptedCard{replies: [][]byte{{0x90}}}
		_, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("failure after GET RESPONSE keeps partial trace", func(t *testing.T) {
		card := &scriptedCard{
			replies: [][]byte{tlv.Hex("6120")},
			errs:    []error{nil, errors.New("timeout")},
		}
		tr, err := NewClient(card).Send(ReadRecord(cls, 1, 1))
		assert.ErrorIs(t, err, ErrTransport)
		assert.Len(t, tr, 1)
	})
}
