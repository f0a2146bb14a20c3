// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !amd64 && !386

package epoll

// Everywhere else the data union is 8-byte aligned, following 4 bytes of
// padding.
const (
	sizeOfEpollEvent  = 16
	offsetOfEpollData = 8
)
