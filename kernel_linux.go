// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package epoll

import (
	"golang.org/x/sys/unix"
)

// kernel is the set of system calls used by Multiplexer. Errors must be
// (or wrap) unix.Errno.
type kernel interface {
	create(flags int) (int, error)
	control(epfd int, op ControlOp, fd int, event *unix.EpollEvent) error
	wait(epfd int, events []unix.EpollEvent, msec int) (int, error)
	close(fd int) error
}

type sysKernel struct{}

func (sysKernel) create(flags int) (int, error) {
	return unix.EpollCreate1(flags)
}

func (sysKernel) control(epfd int, op ControlOp, fd int, event *unix.EpollEvent) error {
	return unix.EpollCtl(epfd, int(op), fd, event)
}

func (sysKernel) wait(epfd int, events []unix.EpollEvent, msec int) (int, error) {
	return unix.EpollWait(epfd, events, msec)
}

func (sysKernel) close(fd int) error {
	return unix.Close(fd)
}
