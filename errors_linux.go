// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package epoll

import (
	"errors"
	"strconv"

	"golang.org/x/sys/unix"
)

// Documented failure codes, per operation, from epoll_create1(2),
// epoll_ctl(2), and epoll_wait(2). Anything else maps to ErrUnexpected.
var (
	createErrnos = map[unix.Errno]error{
		unix.EINVAL: ErrInvalidArgument,
		unix.EMFILE: ErrPerInstanceLimitReached,
		unix.ENFILE: ErrSystemFileLimitReached,
		unix.ENOMEM: ErrOutOfMemory,
	}

	controlErrnos = map[unix.Errno]error{
		unix.EBADF:  ErrBadDescriptor,
		unix.EEXIST: ErrAlreadyRegistered,
		unix.EINVAL: ErrInvalidArgument,
		unix.ENOENT: ErrNotRegistered,
		unix.ENOMEM: ErrInsufficientResources,
		unix.ENOSPC: ErrWatchLimitReached,
		unix.EPERM:  ErrNotPollable,
		unix.ELOOP:  ErrWatchLoop,
	}

	waitErrnos = map[unix.Errno]error{
		unix.EBADF:  ErrBadDescriptor,
		unix.EFAULT: ErrEventsBufferNotWritable,
		unix.EINTR:  ErrInterrupted,
		unix.EINVAL: ErrInvalidArgument,
	}
)

// CreateErrorFromErrno maps an epoll_create1 failure code.
func CreateErrorFromErrno(errno unix.Errno) *CreateError {
	return &CreateError{Err: lookupErrno(createErrnos, errno), Errno: errno}
}

// ControlErrorFromErrno maps an epoll_ctl failure code.
func ControlErrorFromErrno(op ControlOp, fd int, errno unix.Errno) *ControlError {
	return &ControlError{Err: lookupErrno(controlErrnos, errno), Op: op, FD: fd, Errno: errno}
}

// WaitErrorFromErrno maps an epoll_wait failure code.
func WaitErrorFromErrno(errno unix.Errno) *WaitError {
	return &WaitError{Err: lookupErrno(waitErrnos, errno), Errno: errno}
}

func lookupErrno(m map[unix.Errno]error, errno unix.Errno) error {
	if err, ok := m[errno]; ok {
		return err
	}
	return ErrUnexpected
}

// errnoName returns the symbolic name of errno, e.g. EBADF, or its number if
// it has none.
func errnoName(errno unix.Errno) string {
	if name := unix.ErrnoName(errno); name != `` {
		return name
	}
	return strconv.Itoa(int(errno))
}

// asErrno extracts the errno from an error returned by the kernel layer.
// Errors that carry no errno give zero, which maps to ErrUnexpected.
func asErrno(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
