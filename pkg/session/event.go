package session

import (
	"fmt"

	"github.com/google/uuid"
)

// EventType names a notification of the session.
type EventType int

const (
	Started EventType = iota + 1
	Ready
	UnknownCard
	LockedCard
	LinkLost
	Finished
)

var eventNames = map[EventType]string{
	Started:     "Started",
	Ready:       "Ready",
	UnknownCard: "UnknownCard",
	LockedCard:  "Locked",
	LinkLost:    "TransportLost",
	Finished:    "Finished",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

func (t EventType) terminal() bool {
	return t == Ready || t == UnknownCard || t == LockedCard || t == LinkLost
}

// Event is one notification. Result is set on the outcome event.
type Event struct {
	Type    EventType
	Session uuid.UUID
	Result  Result
}

func eventFor(k Kind) EventType {
	switch k {
	case Success:
		return Ready
	case SecurityLocked:
		return LockedCard
	case TransportLost:
		return LinkLost
	default:
		return UnknownCard
	}
}
