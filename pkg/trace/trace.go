// Package trace records the APDU exchanges of a session and plays them back.
// Traces are stored as CBOR so a field capture can be turned into a test.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/gregLibert/paycard/internal/syncutil"
	"github.com/gregLibert/paycard/pkg/session"
)

// Version is written at the head of every trace file.
const Version = 1

// Exchange is one command and what came back. Err is set instead of
// Response when the link failed.
type Exchange struct {
	Command  []byte    `cbor:"1,keyasint"`
	Response []byte    `cbor:"2,keyasint,omitempty"`
	Err      string    `cbor:"3,keyasint,omitempty"`
	At       time.Time `cbor:"4,keyasint"`
}

type file struct {
	Version   int        `cbor:"1,keyasint"`
	Exchanges []Exchange `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("trace: CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("trace: CBOR decoder mode: %v", err))
	}
}

// Encode writes exchanges to w.
func Encode(w io.Writer, exchanges []Exchange) error {
	return encMode.NewEncoder(w).Encode(file{Version: Version, Exchanges: exchanges})
}

// Decode reads a trace written by Encode.
func Decode(r io.Reader) ([]Exchange, error) {
	var f file
	if err := decMode.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("trace: decode: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("trace: unsupported version %d", f.Version)
	}
	return f.Exchanges, nil
}

// WriteFile encodes exchanges into path.
func WriteFile(path string, exchanges []Exchange) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, exchanges)
}

// ReadFile decodes the trace in path.
func ReadFile(path string) ([]Exchange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Recorder keeps every exchange of the tags it wraps.
type Recorder struct {
	now func() time.Time

	mu        syncutil.Mutex
	exchanges []Exchange
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Tag wraps tag so the links it opens are recorded.
func (r *Recorder) Tag(tag session.Tag) session.Tag {
	return recordedTag{tag: tag, rec: r}
}

// Exchanges returns a copy of what was recorded so far.
func (r *Recorder) Exchanges() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Exchange(nil), r.exchanges...)
}

func (r *Recorder) add(cmd, resp []byte, err error) {
	ex := Exchange{
		Command:  append([]byte(nil), cmd...),
		Response: append([]byte(nil), resp...),
		At:       r.now(),
	}
	if err != nil {
		ex.Response = nil
		ex.Err = err.Error()
	}

	r.mu.Lock()
	r.exchanges = append(r.exchanges, ex)
	r.mu.Unlock()
}

type recordedTag struct {
	tag session.Tag
	rec *Recorder
}

func (t recordedTag) Connect() (session.Transceiver, error) {
	card, err := t.tag.Connect()
	if err != nil {
		return nil, err
	}
	return recordedCard{card: card, rec: t.rec}, nil
}

type recordedCard struct {
	card session.Transceiver
	rec  *Recorder
}

func (c recordedCard) Transmit(cmd []byte) ([]byte, error) {
	resp, err := c.card.Transmit(cmd)
	c.rec.add(cmd, resp, err)
	return resp, err
}

func (c recordedCard) Close() error {
	return c.card.Close()
}

var (
	// ErrExhausted is returned when a command comes after the last
	// recorded exchange.
	ErrExhausted = errors.New("trace: no more exchanges")
	// ErrMismatch is returned when a command differs from the recording.
	ErrMismatch = errors.New("trace: command does not match recording")
	// ErrClosed is returned by Transmit after Close.
	ErrClosed = errors.New("trace: replay closed")
)

// Replayer answers commands from a recording, in order. It is both the tag
// and the link of a session.
type Replayer struct {
	mu        syncutil.Mutex
	exchanges []Exchange
	next      int
	closed    bool
}

// NewReplayer creates a Replayer over exchanges.
func NewReplayer(exchanges []Exchange) *Replayer {
	return &Replayer{exchanges: exchanges}
}

// Connect implements session.Tag.
func (p *Replayer) Connect() (session.Transceiver, error) {
	return p, nil
}

// Transmit returns the recorded answer to cmd.
func (p *Replayer) Transmit(cmd []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.next >= len(p.exchanges) {
		return nil, ErrExhausted
	}

	ex := p.exchanges[p.next]
	p.next++
	if !sameCommand(ex.Command, cmd) {
		return nil, fmt.Errorf("%w: exchange %d: got %X, recorded %X", ErrMismatch, p.next-1, cmd, ex.Command)
	}
	if ex.Err != "" {
		return nil, errors.New(ex.Err)
	}
	return append([]byte(nil), ex.Response...), nil
}

// insGPO is GET PROCESSING OPTIONS. Its data carries the terminal's
// unpredictable number and transaction date.
const insGPO = 0xA8

// sameCommand compares a replayed command with the recorded one. GPO
// commands match on header and length only.
func sameCommand(recorded, cmd []byte) bool {
	if len(recorded) >= 4 && len(cmd) >= 4 && recorded[1] == insGPO && cmd[1] == insGPO {
		return len(recorded) == len(cmd) && string(recorded[:4]) == string(cmd[:4])
	}
	return string(recorded) == string(cmd)
}

// Close implements io.Closer.
func (p *Replayer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Remaining returns how many recorded exchanges were not replayed.
func (p *Replayer) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.exchanges) - p.next
}
