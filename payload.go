// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package epoll

import (
	"fmt"
)

type (
	// Payload is the user data attached to a registration. It models the
	// kernel's epoll_data union, with the member selected at compile time, by
	// the type parameter of Multiplexer and Event.
	//
	// The set of implementations is closed: *Owned[T], Descriptor, Tag32, and
	// Tag64.
	Payload interface {
		// Kind identifies which union member this payload type uses. It
		// must be safe to call on the zero value.
		Kind() Kind

		// self returns the receiver, used to reject types that satisfy this
		// interface only by embedding one of the implementations.
		self() any

		// duplicate returns a copy that does not share ownership.
		duplicate() Payload

		// valid reports whether the payload may be registered.
		valid() bool
	}

	// Kind enumerates the payload implementations.
	Kind uint8

	// Owned is a heap-allocated value of a caller-chosen type. The
	// allocation is reachable only through this handle, and ownership is
	// handed back to the caller by every path that removes or replaces a
	// registration (Multiplexer.Modify, Multiplexer.Deregister,
	// Multiplexer.Close).
	//
	// Owned values must be created using NewOwned.
	Owned[T any] struct {
		ptr *T
	}

	// Cloner may be implemented by the type parameter of Owned, to control
	// how values are duplicated (see Owned.Clone).
	Cloner[T any] interface {
		Clone() T
	}

	// Descriptor stores a file descriptor, as the fd member of epoll_data.
	Descriptor int32

	// Tag32 stores a 32-bit tag, as the u32 member of epoll_data.
	Tag32 uint32

	// Tag64 stores a 64-bit tag, as the u64 member of epoll_data.
	Tag64 uint64
)

const (
	KindOwned Kind = iota + 1
	KindDescriptor
	KindTag32
	KindTag64
)

var (
	// compile time assertions

	_ Payload = (*Owned[struct{}])(nil)
	_ Payload = Descriptor(0)
	_ Payload = Tag32(0)
	_ Payload = Tag64(0)
)

func (x Kind) String() string {
	switch x {
	case KindOwned:
		return `owned`
	case KindDescriptor:
		return `descriptor`
	case KindTag32:
		return `tag32`
	case KindTag64:
		return `tag64`
	default:
		return fmt.Sprintf(`Kind(%d)`, uint8(x))
	}
}

// NewOwned moves value onto the heap. The returned payload owns the
// allocation until IntoInner is called.
func NewOwned[T any](value T) *Owned[T] {
	return &Owned[T]{ptr: &value}
}

// Get returns a reference to the owned value. It panics if the payload was
// not created by NewOwned, or has been released by IntoInner.
func (x *Owned[T]) Get() *T {
	if x == nil || x.ptr == nil {
		panic(`epoll: owned payload released or uninitialized`)
	}
	return x.ptr
}

// IntoInner releases the payload, returning the owned value. Any further use
// of the payload (including a second IntoInner) panics.
func (x *Owned[T]) IntoInner() T {
	v := *x.Get()
	x.ptr = nil
	return v
}

// Released reports whether the payload no longer owns a value.
func (x *Owned[T]) Released() bool {
	return x == nil || x.ptr == nil
}

// Clone returns a new payload owning a copy of the value. If T (or *T)
// implements Cloner[T] it is used, otherwise the value is copied by
// assignment. Panics if the payload has been released.
func (x *Owned[T]) Clone() *Owned[T] {
	p := x.Get()
	var v T
	if c, ok := any(p).(Cloner[T]); ok {
		v = c.Clone()
	} else if c, ok := any(*p).(Cloner[T]); ok {
		v = c.Clone()
	} else {
		v = *p
	}
	return &Owned[T]{ptr: &v}
}

func (x *Owned[T]) String() string {
	if x.Released() {
		return `Owned(<released>)`
	}
	return fmt.Sprintf(`Owned(%v)`, *x.ptr)
}

func (*Owned[T]) Kind() Kind { return KindOwned }

func (x *Owned[T]) self() any { return x }

func (x *Owned[T]) duplicate() Payload {
	if x.Released() {
		return x
	}
	return x.Clone()
}

func (x *Owned[T]) valid() bool { return !x.Released() }

// NewDescriptor returns a Descriptor payload. The value is stored as the
// kernel's int, so fd must fit in 32 bits.
func NewDescriptor(fd int) Descriptor { return Descriptor(fd) }

// FD returns the stored file descriptor.
func (x Descriptor) FD() int { return int(x) }

func (Descriptor) Kind() Kind { return KindDescriptor }

func (x Descriptor) self() any { return x }

func (x Descriptor) duplicate() Payload { return x }

func (Descriptor) valid() bool { return true }

// NewTag32 returns a Tag32 payload.
func NewTag32(v uint32) Tag32 { return Tag32(v) }

// Value returns the stored tag.
func (x Tag32) Value() uint32 { return uint32(x) }

func (Tag32) Kind() Kind { return KindTag32 }

func (x Tag32) self() any { return x }

func (x Tag32) duplicate() Payload { return x }

func (Tag32) valid() bool { return true }

// NewTag64 returns a Tag64 payload.
func NewTag64(v uint64) Tag64 { return Tag64(v) }

// Value returns the stored tag.
func (x Tag64) Value() uint64 { return uint64(x) }

func (Tag64) Kind() Kind { return KindTag64 }

func (x Tag64) self() any { return x }

func (x Tag64) duplicate() Payload { return x }

func (Tag64) valid() bool { return true }

// payloadKind returns the kind of P, or an error if P is not one of the
// payload implementations (e.g. a struct embedding one).
func payloadKind[P Payload]() (kind Kind, err error) {
	var zero P
	defer func() {
		// e.g. a nil pointer to a struct embedding a value kind
		if r := recover(); r != nil {
			kind, err = 0, fmt.Errorf(`epoll: unsupported payload type %T`, zero)
		}
	}()
	if _, ok := zero.self().(P); !ok {
		return 0, fmt.Errorf(`epoll: unsupported payload type %T`, zero)
	}
	switch kind = zero.Kind(); kind {
	case KindOwned, KindDescriptor, KindTag32, KindTag64:
		return kind, nil
	default:
		return 0, fmt.Errorf(`epoll: unsupported payload kind %s`, kind)
	}
}
