package sale

import "errors"

var (
	// ErrNoStatusChange is returned when a transition names the status the
	// transaction is already in.
	ErrNoStatusChange = errors.New("status unchanged")
	// ErrInvalidTransition is returned for transitions the status machine
	// does not allow.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrUnknownStatus is returned for a status value outside the machine.
	ErrUnknownStatus = errors.New("unknown status")
)

// Status is the lifecycle state of a committed transaction.
type Status string

const (
	StatusPending        Status = "pending"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCanceled       Status = "canceled"
	StatusReturned       Status = "returned"
	StatusRefunded       Status = "refunded"
)

// transitions is the forward-only edge set. Absent keys are terminal.
var transitions = map[Status][]Status{
	StatusPending:        {StatusOutForDelivery, StatusCanceled},
	StatusOutForDelivery: {StatusDelivered, StatusReturned},
	StatusDelivered:      {StatusRefunded, StatusReturned},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	switch s {
	case StatusPending, StatusOutForDelivery, StatusDelivered, StatusCanceled, StatusReturned, StatusRefunded:
		return s, nil
	}
	return "", ErrUnknownStatus
}

// Terminal reports whether no further transition leaves the status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Transition checks whether current may move to next. A same-status request
// is rejected explicitly so callers can distinguish a no-op from a bad jump.
func Transition(current, next Status) error {
	if _, err := ParseStatus(string(next)); err != nil {
		return err
	}
	if current == next {
		return ErrNoStatusChange
	}
	for _, allowed := range transitions[current] {
		if allowed == next {
			return nil
		}
	}
	return ErrInvalidTransition
}
