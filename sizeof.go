// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package epoll

// These constants are verified via unit tests, and (on Linux) compile time
// assertions against unix.EpollEvent.
const (
	// sizeOfEpollData is the size of the epoll_data union.
	sizeOfEpollData = 8

	// alignOfEpollEvent is the Go alignment of unix.EpollEvent, which is
	// modeled using 32-bit fields on every architecture.
	alignOfEpollEvent = 4
)
