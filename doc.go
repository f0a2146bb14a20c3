// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package epoll is a typed wrapper around the Linux epoll(7) API.
//
// A Multiplexer owns one epoll instance, and mirrors its interest list in a
// registration table, keyed by file descriptor. Each registration pairs a set
// of Flags with a payload, and the payload type is fixed for the lifetime of
// the instance, by the type parameter:
//
//   - *Owned[T] attaches an arbitrary heap value. The kernel record only
//     carries the descriptor number, and events are resolved against the
//     registration table, so no Go pointers are ever passed to the kernel.
//   - Descriptor, Tag32, and Tag64 are stored directly in the kernel's
//     epoll_data union, as the fd, u32, and u64 members respectively.
//
// Ownership of a payload moves into the Multiplexer on Register, and back to
// the caller on Modify (the previous payload), Deregister, and Close (every
// remaining payload). Payloads reported by Wait are duplicates. An Owned
// payload may be held by at most one registration, and ModifyFlags changes a
// registration's flags without moving its payload.
//
// Kernel failures are mapped to sentinel errors (e.g. ErrAlreadyRegistered),
// carried by CreateError, ControlError, and WaitError, each of which also
// unwraps to the original errno.
//
// A Multiplexer is not safe for concurrent use, and performs no retries.
// Logging is optional, see WithLogger.
//
// Only Linux is supported. The Flags, payload, and error types are portable,
// to simplify cross-platform code that references them.
package epoll
