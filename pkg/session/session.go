// Package session runs one card read per tap: it connects the link, drives
// the EMV read, closes the link on every path and reports exactly one
// outcome between a Started and a Finished event.
package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/gregLibert/paycard/internal/logutil"
	"github.com/gregLibert/paycard/internal/syncutil"
	"github.com/gregLibert/paycard/pkg/driver"
	"github.com/gregLibert/paycard/pkg/emv"
	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/scheme"
)

var (
	// ErrNoTag is returned by Start when no tag is given.
	ErrNoTag = errors.New("session: no tag")

	// ErrBusy is returned by Start while a previous session is not closed.
	ErrBusy = errors.New("session: a read is already running")
)

// Transceiver is an open link to one card. Close ends the link; it is called
// exactly once per session.
type Transceiver interface {
	iso7816.Transmitter
	io.Closer
}

// Tag is a detected card, not yet connected.
type Tag interface {
	Connect() (Transceiver, error)
}

// Kind is the outcome of a session.
type Kind int

const (
	Success Kind = iota + 1
	NoUsableData
	SecurityLocked
	TransportLost
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case NoUsableData:
		return "NoUsableData"
	case SecurityLocked:
		return "SecurityLocked"
	case TransportLost:
		return "TransportLost"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of one session. Fields, Scheme, Label and AID are
// only set on Success.
type Result struct {
	Kind   Kind
	Fields emv.Fields
	Scheme scheme.Scheme
	Label  string
	AID    []byte
}

// Config tunes a Reader. The zero value is usable.
type Config struct {
	LockStatusWords []iso7816.StatusWord
	Schemes         scheme.Table
	Terminal        *emv.Terminal

	LoggerFactory logging.LoggerFactory
}

func (c Config) driverConfig() driver.Config {
	return driver.Config{
		LockStatusWords: c.LockStatusWords,
		Schemes:         c.Schemes,
		Terminal:        c.Terminal,
		LoggerFactory:   c.LoggerFactory,
	}
}

// Reader runs sessions one at a time.
type Reader struct {
	config Config
	log    logging.LeveledLogger

	mu   syncutil.Mutex
	busy bool
}

// NewReader creates a Reader.
func NewReader(config Config) *Reader {
	return &Reader{
		config: config,
		log:    logutil.Logger(config.LoggerFactory, "session"),
	}
}

// Start reads the card behind tag on a new goroutine. The channel receives
// Started, one of Ready, UnknownCard, Locked or TransportLost, then Finished,
// and is closed. It is buffered: the session never waits for the consumer.
//
// A nil tag gives ErrNoTag and a session still running gives ErrBusy; no
// event is sent in either case.
func (r *Reader) Start(tag Tag) (<-chan Event, error) {
	if tag == nil {
		return nil, ErrNoTag
	}

	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.busy = true
	r.mu.Unlock()

	s := &session{
		id:     uuid.New(),
		reader: r,
		state:  Idle,
		events: make(chan Event, 3),
	}
	go s.run(tag)

	return s.events, nil
}

// Run is Start followed by waiting for the outcome.
func (r *Reader) Run(tag Tag) (Result, error) {
	events, err := r.Start(tag)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for ev := range events {
		if ev.Type.terminal() {
			res = ev.Result
		}
	}
	return res, nil
}

// Busy reports whether a session is running.
func (r *Reader) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

func (r *Reader) release() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}
