package session

import "fmt"

// State is a step of the session state machine:
//
//	Idle -> Connecting -> Reading -> Succeeded | NoData | Locked | Lost -> Closed
//	        Connecting -> Lost
//
// Closed is reached once from every outcome, after the link is closed.
type State int

const (
	Idle State = iota
	Connecting
	Reading
	Succeeded
	NoData
	Locked
	Lost
	Closed
)

var stateNames = [...]string{
	Idle:       "Idle",
	Connecting: "Connecting",
	Reading:    "Reading",
	Succeeded:  "Succeeded",
	NoData:     "NoData",
	Locked:     "Locked",
	Lost:       "Lost",
	Closed:     "Closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var transitions = map[State][]State{
	Idle:       {Connecting},
	Connecting: {Reading, Lost},
	Reading:    {Succeeded, NoData, Locked, Lost},
	Succeeded:  {Closed},
	NoData:     {Closed},
	Locked:     {Closed},
	Lost:       {Closed},
}

// canMove reports whether from -> to is an edge of the machine.
func canMove(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateFor maps an outcome to its terminal state.
func stateFor(k Kind) State {
	switch k {
	case Success:
		return Succeeded
	case SecurityLocked:
		return Locked
	case TransportLost:
		return Lost
	default:
		return NoData
	}
}
