// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package epoll

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The Fd and Pad fields of unix.EpollEvent together span the epoll_data
// union. These fail to compile if the layout does not match sizeof*.go.
var (
	_ [unsafe.Sizeof(unix.EpollEvent{}) - sizeOfEpollEvent]struct{}
	_ [sizeOfEpollEvent - unsafe.Sizeof(unix.EpollEvent{})]struct{}
	_ [unsafe.Offsetof(unix.EpollEvent{}.Fd) - offsetOfEpollData]struct{}
	_ [offsetOfEpollData - unsafe.Offsetof(unix.EpollEvent{}.Fd)]struct{}
	_ [sizeOfEpollEvent - offsetOfEpollData - sizeOfEpollData]struct{}
	_ [offsetOfEpollData + sizeOfEpollData - sizeOfEpollEvent]struct{}
)

// dataSlot returns the epoll_data union of ev.
func dataSlot(ev *unix.EpollEvent) *[sizeOfEpollData]byte {
	return (*[sizeOfEpollData]byte)(unsafe.Pointer(&ev.Fd))
}

// setData32 stores v as the fd / u32 member, which occupy the first four
// bytes of the union, and zeroes the rest.
func setData32(ev *unix.EpollEvent, v uint32) {
	*dataSlot(ev) = [sizeOfEpollData]byte{}
	ev.Fd = int32(v)
}

func data32(ev *unix.EpollEvent) uint32 {
	return uint32(ev.Fd)
}

// setData64 stores v as the u64 member, in native byte order.
func setData64(ev *unix.EpollEvent, v uint64) {
	binary.NativeEndian.PutUint64(dataSlot(ev)[:], v)
}

func data64(ev *unix.EpollEvent) uint64 {
	return binary.NativeEndian.Uint64(dataSlot(ev)[:])
}

// encodeEvent builds the kernel record for a registration of fd. Owned
// payloads store fd itself, and are resolved via the registration table, to
// avoid handing Go pointers to the kernel.
func encodeEvent[P Payload](fd int, event Event[P]) unix.EpollEvent {
	raw := unix.EpollEvent{Events: event.flags.Bits()}
	switch p := any(event.payload).(type) {
	case Descriptor:
		setData32(&raw, uint32(p))
	case Tag32:
		setData32(&raw, uint32(p))
	case Tag64:
		setData64(&raw, uint64(p))
	default:
		setData32(&raw, uint32(fd))
	}
	return raw
}

// decodeValue reconstructs a payload that is stored entirely in the kernel
// record. It must only be called for the value kinds.
func decodeValue[P Payload](kind Kind, raw *unix.EpollEvent) P {
	var v any
	switch kind {
	case KindDescriptor:
		v = Descriptor(int32(data32(raw)))
	case KindTag32:
		v = Tag32(data32(raw))
	case KindTag64:
		v = Tag64(data64(raw))
	default:
		panic(`epoll: decodeValue called for ` + kind.String())
	}
	return v.(P)
}
