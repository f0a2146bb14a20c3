// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package epoll

import (
	"fmt"
)

// Event pairs readiness flags with a payload. It is used both to register
// interest (see Multiplexer.Register) and to report readiness (see
// Multiplexer.Wait), and corresponds to struct epoll_event.
type Event[P Payload] struct {
	payload P
	flags   Flags
}

// NewEvent constructs an Event.
func NewEvent[P Payload](flags Flags, payload P) Event[P] {
	return Event[P]{flags: flags, payload: payload}
}

// Flags returns the registered flags, or, for events returned by Wait, the
// conditions that are ready.
func (x Event[P]) Flags() Flags { return x.flags }

// Payload returns the payload.
func (x Event[P]) Payload() P { return x.payload }

// WithFlags returns a copy of x with the flags replaced. The payload is
// shared, not duplicated, so for Owned payloads the result cannot be passed
// to Modify while x is registered (see Multiplexer.ModifyFlags).
func (x Event[P]) WithFlags(flags Flags) Event[P] {
	x.flags = flags
	return x
}

// Clone returns a copy of x that does not share ownership of the payload
// (see Owned.Clone).
func (x Event[P]) Clone() Event[P] {
	x.payload = x.payload.duplicate().(P)
	return x
}

func (x Event[P]) String() string {
	return fmt.Sprintf(`Event{%s %v}`, x.flags, x.payload)
}
