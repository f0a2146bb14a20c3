// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package epoll

import (
	"strconv"
	"strings"
)

// Flags is a set of epoll readiness and behavior conditions, as used in both
// registrations and ready events. It is the raw 32-bit events mask of
// struct epoll_event, so bits this package does not name are carried through
// unchanged.
type Flags uint32

// Bit positions are from <sys/epoll.h>, and are checked against
// golang.org/x/sys/unix by the tests.
const (
	// Readable indicates the descriptor is available for read(2).
	Readable Flags = 0x001
	// Priority indicates an exceptional condition, e.g. out-of-band data.
	Priority Flags = 0x002
	// Writable indicates the descriptor is available for write(2).
	Writable Flags = 0x004
	// Errored indicates an error condition. Always reported, regardless of
	// the registered flags.
	Errored Flags = 0x008
	// HangUp indicates a hang up. Always reported, regardless of the
	// registered flags.
	HangUp      Flags = 0x010
	ReadNormal  Flags = 0x040
	ReadBand    Flags = 0x080
	WriteNormal Flags = 0x100
	WriteBand   Flags = 0x200
	Message     Flags = 0x400
	// ReadHangUp indicates the stream peer closed, or shut down the writing
	// half of, the connection.
	ReadHangUp Flags = 0x2000
	// Exclusive sets exclusive wakeup mode, for descriptors attached to
	// multiple epoll instances. Only valid for Register.
	Exclusive Flags = 1 << 28
	// WakeUp prevents system suspend while the event is pending.
	WakeUp Flags = 1 << 29
	// OneShot disables the registration after one event is reported. It must
	// be re-armed using Multiplexer.Modify.
	OneShot Flags = 1 << 30
	// EdgeTriggered selects edge triggered delivery (the default is level
	// triggered).
	EdgeTriggered Flags = 1 << 31

	// AlwaysReported are the conditions the kernel reports whether or not
	// they were registered.
	AlwaysReported = Errored | HangUp

	knownFlags = Readable | Priority | Writable | Errored | HangUp |
		ReadNormal | ReadBand | WriteNormal | WriteBand | Message |
		ReadHangUp | Exclusive | WakeUp | OneShot | EdgeTriggered
)

var flagNames = [...]struct {
	flag Flags
	name string
}{
	{Readable, `IN`},
	{Priority, `PRI`},
	{Writable, `OUT`},
	{Errored, `ERR`},
	{HangUp, `HUP`},
	{ReadNormal, `RDNORM`},
	{ReadBand, `RDBAND`},
	{WriteNormal, `WRNORM`},
	{WriteBand, `WRBAND`},
	{Message, `MSG`},
	{ReadHangUp, `RDHUP`},
	{Exclusive, `EXCLUSIVE`},
	{WakeUp, `WAKEUP`},
	{OneShot, `ONESHOT`},
	{EdgeTriggered, `ET`},
}

// FromBits converts the raw kernel representation. It never fails, unknown
// bits are preserved.
func FromBits(raw uint32) Flags { return Flags(raw) }

// Bits returns the raw kernel representation.
func (x Flags) Bits() uint32 { return uint32(x) }

// Union returns the flags set in either x or other.
func (x Flags) Union(other Flags) Flags { return x | other }

// Intersect returns the flags set in both x and other.
func (x Flags) Intersect(other Flags) Flags { return x & other }

// Difference returns the flags set in x but not in other.
func (x Flags) Difference(other Flags) Flags { return x &^ other }

// Contains reports whether every flag in other is set in x.
func (x Flags) Contains(other Flags) bool { return x&other == other }

// Intersects reports whether any flag in other is set in x.
func (x Flags) Intersects(other Flags) bool { return x&other != 0 }

// IsEmpty reports whether no flags are set.
func (x Flags) IsEmpty() bool { return x == 0 }

// Known returns only the flags named by this package.
func (x Flags) Known() Flags { return x & knownFlags }

// Unknown returns only the flags not named by this package.
func (x Flags) Unknown() Flags { return x &^ knownFlags }

// String formats the flags like "IN|OUT|ET", with any unknown bits appended
// in hex, e.g. "IN|0x8000".
func (x Flags) String() string {
	if x == 0 {
		return `0`
	}
	var b strings.Builder
	for _, v := range flagNames {
		if x&v.flag == 0 {
			continue
		}
		if b.Len() != 0 {
			b.WriteByte('|')
		}
		b.WriteString(v.name)
	}
	if unknown := x.Unknown(); unknown != 0 {
		if b.Len() != 0 {
			b.WriteByte('|')
		}
		b.WriteString(`0x`)
		b.WriteString(strconv.FormatUint(uint64(unknown), 16))
	}
	return b.String()
}
