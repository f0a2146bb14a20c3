// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build amd64 || 386

package epoll

// struct epoll_event is packed on x86-64 (__EPOLL_PACKED), and i386 aligns
// 64-bit integers to 4 bytes, so there is no padding after events.
const (
	sizeOfEpollEvent  = 12
	offsetOfEpollData = 4
)
