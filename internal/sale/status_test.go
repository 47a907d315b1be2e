package sale

import (
	"errors"
	"testing"
)

func TestTransitionSameStatus(t *testing.T) {
	if err := Transition(StatusPending, StatusPending); !errors.Is(err, ErrNoStatusChange) {
		t.Fatalf("expected ErrNoStatusChange, got %v", err)
	}
}

func TestTransitionDisallowedJump(t *testing.T) {
	if err := Transition(StatusPending, StatusDelivered); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionForwardEdges(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusOutForDelivery},
		{StatusPending, StatusCanceled},
		{StatusOutForDelivery, StatusDelivered},
		{StatusOutForDelivery, StatusReturned},
		{StatusDelivered, StatusRefunded},
		{StatusDelivered, StatusReturned},
	}
	for _, tc := range allowed {
		if err := Transition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	for _, terminal := range []Status{StatusCanceled, StatusRefunded, StatusReturned} {
		if !terminal.Terminal() {
			t.Fatalf("%s should be terminal", terminal)
		}
		if err := Transition(terminal, StatusPending); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> pending: expected ErrInvalidTransition, got %v", terminal, err)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	if _, err := ParseStatus("shipped"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
