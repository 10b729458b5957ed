// Package link connects the session layer to real readers: a PC/SC reader
// through github.com/ebfe/scard, or a PN532 board through go-pn532.
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebfe/scard"

	"github.com/gregLibert/paycard/pkg/session"
)

// ErrNoReader is returned when the PC/SC service lists no reader.
var ErrNoReader = errors.New("link: no reader available")

// pollInterval bounds each blocking wait so a cancelled context is noticed.
const pollInterval = 250 * time.Millisecond

// PCSC is a card sitting on a PC/SC reader. The context stays owned by the
// caller.
type PCSC struct {
	Context *scard.Context
	Reader  string
}

// Connect opens a shared T=0 or T=1 connection to the card.
func (p PCSC) Connect() (session.Transceiver, error) {
	card, err := p.Context.Connect(p.Reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", p.Reader, err)
	}
	return &pcscCard{card: card}, nil
}

type pcscCard struct {
	card *scard.Card
}

func (c *pcscCard) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

// Close leaves the card powered so the next tap does not need a reset.
func (c *pcscCard) Close() error {
	return c.card.Disconnect(scard.LeaveCard)
}

// FirstReader returns the name of the first reader, or reader itself when it
// is not empty.
func FirstReader(sc *scard.Context, reader string) (string, error) {
	if reader != "" {
		return reader, nil
	}
	readers, err := sc.ListReaders()
	if err != nil {
		return "", fmt.Errorf("list readers: %w", err)
	}
	if len(readers) == 0 {
		return "", ErrNoReader
	}
	return readers[0], nil
}

// WaitForCard blocks until a card is present on reader and returns it as a
// session tag.
func WaitForCard(ctx context.Context, sc *scard.Context, reader string) (PCSC, error) {
	return PCSC{Context: sc, Reader: reader}, waitState(ctx, sc, reader, true)
}

// WaitForRemoval blocks until reader reports no card.
func WaitForRemoval(ctx context.Context, sc *scard.Context, reader string) error {
	return waitState(ctx, sc, reader, false)
}

func waitState(ctx context.Context, sc *scard.Context, reader string, present bool) error {
	rs := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := sc.GetStatusChange(rs, pollInterval)
		if err != nil && !errors.Is(err, scard.ErrTimeout) {
			return fmt.Errorf("reader %s status: %w", reader, err)
		}
		state := rs[0].EventState
		rs[0].CurrentState = state &^ scard.StateChanged

		if (state&scard.StatePresent != 0) == present {
			return nil
		}
	}
}
