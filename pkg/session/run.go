package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gregLibert/paycard/pkg/driver"
	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// session is the working state of one read. It lives on its own goroutine
// and is dropped when the events channel is closed.
type session struct {
	id     uuid.UUID
	reader *Reader
	state  State
	events chan Event
}

func (s *session) run(tag Tag) {
	defer close(s.events)

	s.emit(Event{Type: Started})

	res := s.read(tag)

	s.move(Closed)
	s.reader.release()

	s.emit(Event{Type: eventFor(res.Kind), Result: res})
	s.emit(Event{Type: Finished})
}

// read connects and drives the card. The link is closed before it returns,
// whatever happens, and a panic becomes NoUsableData.
func (s *session) read(tag Tag) (res Result) {
	log := s.reader.log

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("session %s: panic: %v", s.id, p)
			res = Result{Kind: NoUsableData}
			s.settle(res.Kind)
		}
	}()

	s.move(Connecting)
	card, err := tag.Connect()
	if err != nil {
		log.Infof("session %s: connect failed: %v", s.id, err)
		res = Result{Kind: TransportLost}
		s.move(Lost)
		return res
	}
	defer func() {
		if err := card.Close(); err != nil {
			log.Warnf("session %s: close: %v", s.id, err)
		}
	}()

	s.move(Reading)
	out, err := driver.New(card, s.reader.config.driverConfig()).Read()
	res = outcome(out, err)

	switch {
	case errors.Is(err, iso7816.ErrTransport):
		log.Infof("session %s: link lost: %v", s.id, err)
	case errors.As(err, new(*tlv.DecodeError)):
		log.Warnf("session %s: malformed card data: %v", s.id, err)
	case err != nil:
		log.Warnf("session %s: read failed: %v", s.id, err)
	}

	s.move(stateFor(res.Kind))
	return res
}

// outcome maps the driver result to a session result.
func outcome(out driver.Outcome, err error) Result {
	switch {
	case errors.Is(err, iso7816.ErrTransport):
		return Result{Kind: TransportLost}
	case err != nil:
		return Result{Kind: NoUsableData}
	}

	switch out.Kind {
	case driver.Fields:
		return Result{
			Kind:   Success,
			Fields: out.Fields,
			Scheme: out.Scheme,
			Label:  out.Label,
			AID:    out.AID,
		}
	case driver.SecurityLocked:
		return Result{Kind: SecurityLocked}
	default:
		return Result{Kind: NoUsableData}
	}
}

// settle moves to the terminal state of k unless one is already reached.
func (s *session) settle(k Kind) {
	switch s.state {
	case Succeeded, NoData, Locked, Lost, Closed:
		return
	}
	s.state = stateFor(k)
}

func (s *session) move(to State) {
	if !canMove(s.state, to) {
		panic(fmt.Sprintf("session: illegal transition %s -> %s", s.state, to))
	}
	s.reader.log.Debugf("session %s: %s -> %s", s.id, s.state, to)
	s.state = to
}

func (s *session) emit(ev Event) {
	ev.Session = s.id
	s.events <- ev
}
