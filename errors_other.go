// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux

package epoll

import (
	"strconv"
	"syscall"
)

func errnoName(errno syscall.Errno) string {
	return strconv.Itoa(int(errno))
}
