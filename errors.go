// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package epoll

import (
	"errors"
	"strconv"
	"syscall"
)

// Sentinel errors. Kernel failures are reported as one of CreateError,
// ControlError, or WaitError, each wrapping exactly one of these, matched
// using errors.Is.
var (
	// ErrInvalidArgument is EINVAL, from any operation.
	ErrInvalidArgument = errors.New(`epoll: invalid argument`)
	// ErrPerInstanceLimitReached is EMFILE from create: the per-user limit on
	// epoll instances, or the per-process limit on open descriptors.
	ErrPerInstanceLimitReached = errors.New(`epoll: per-process or per-user instance limit reached`)
	// ErrSystemFileLimitReached is ENFILE from create.
	ErrSystemFileLimitReached = errors.New(`epoll: system open file limit reached`)
	// ErrOutOfMemory is ENOMEM from create.
	ErrOutOfMemory = errors.New(`epoll: insufficient memory to create instance`)

	// ErrBadDescriptor is EBADF, from control or wait, or a negative fd.
	ErrBadDescriptor = errors.New(`epoll: bad file descriptor`)
	// ErrAlreadyRegistered is EEXIST from control, or a Register of a
	// descriptor that is already in the registration table.
	ErrAlreadyRegistered = errors.New(`epoll: fd already registered`)
	// ErrNotRegistered is ENOENT from control, or a Modify or Deregister of a
	// descriptor that is not in the registration table.
	ErrNotRegistered = errors.New(`epoll: fd not registered`)
	// ErrInsufficientResources is ENOMEM from control.
	ErrInsufficientResources = errors.New(`epoll: insufficient memory for control operation`)
	// ErrWatchLimitReached is ENOSPC from control, see
	// /proc/sys/fs/epoll/max_user_watches.
	ErrWatchLimitReached = errors.New(`epoll: max_user_watches limit reached`)
	// ErrNotPollable is EPERM from control: the target does not support
	// epoll (e.g. a regular file or directory).
	ErrNotPollable = errors.New(`epoll: fd does not support epoll`)
	// ErrWatchLoop is ELOOP from control: registering an epoll instance would
	// create a loop, or nest too deeply.
	ErrWatchLoop = errors.New(`epoll: nested epoll loop or depth exceeded`)
	// ErrInvalidPayload indicates a registration with a released or
	// uninitialized Owned payload, or one already held by a registration. It
	// is detected before the kernel call.
	ErrInvalidPayload = errors.New(`epoll: invalid payload`)

	// ErrEventsBufferNotWritable is EFAULT from wait.
	ErrEventsBufferNotWritable = errors.New(`epoll: events buffer not writable`)
	// ErrInterrupted is EINTR from wait. No events were consumed, and the
	// call may be retried immediately.
	ErrInterrupted = errors.New(`epoll: interrupted`)

	// ErrUnexpected wraps any kernel failure code that is not documented for
	// the operation. The errno is available from the typed error.
	ErrUnexpected = errors.New(`epoll: unexpected error`)

	// ErrInvalidCapacity indicates a non-positive wait buffer capacity.
	ErrInvalidCapacity = errors.New(`epoll: invalid capacity`)

	// ErrClosed is the panic value for use of a closed Multiplexer.
	ErrClosed = errors.New(`epoll: multiplexer closed`)
	// ErrNotOpen is the panic value for use of a Multiplexer that was not
	// created by New.
	ErrNotOpen = errors.New(`epoll: multiplexer not open`)
)

type (
	// CreateError is returned when the kernel instance cannot be created.
	CreateError struct {
		// Err is one of ErrInvalidArgument, ErrPerInstanceLimitReached,
		// ErrSystemFileLimitReached, ErrOutOfMemory, ErrUnexpected.
		Err   error
		Errno syscall.Errno
	}

	// ControlError is returned by Register, Modify, and Deregister.
	ControlError struct {
		// Err is one of ErrBadDescriptor, ErrAlreadyRegistered,
		// ErrNotRegistered, ErrInvalidArgument, ErrInsufficientResources,
		// ErrWatchLimitReached, ErrNotPollable, ErrWatchLoop,
		// ErrInvalidPayload, ErrUnexpected.
		Err error
		Op  ControlOp
		FD  int
		// Errno is zero if the failure was detected without a kernel call.
		Errno syscall.Errno
	}

	// WaitError is returned by Wait.
	WaitError struct {
		// Err is one of ErrBadDescriptor, ErrEventsBufferNotWritable,
		// ErrInterrupted, ErrInvalidArgument, ErrUnexpected.
		Err   error
		Errno syscall.Errno
	}

	// ControlOp is an epoll_ctl operation.
	ControlOp int
)

// Values match EPOLL_CTL_ADD, EPOLL_CTL_DEL, and EPOLL_CTL_MOD.
const (
	OpAdd    ControlOp = 1
	OpDelete ControlOp = 2
	OpModify ControlOp = 3
)

func (x ControlOp) String() string {
	switch x {
	case OpAdd:
		return `add`
	case OpDelete:
		return `delete`
	case OpModify:
		return `modify`
	default:
		return `ControlOp(` + strconv.Itoa(int(x)) + `)`
	}
}

func (e *CreateError) Error() string {
	return errorMessage(e.Err, e.Errno, ``)
}

func (e *CreateError) Unwrap() []error {
	return unwrapErrno(e.Err, e.Errno)
}

func (e *ControlError) Error() string {
	return errorMessage(e.Err, e.Errno, `op=`+e.Op.String()+` fd=`+strconv.Itoa(e.FD))
}

func (e *ControlError) Unwrap() []error {
	return unwrapErrno(e.Err, e.Errno)
}

func (e *WaitError) Error() string {
	return errorMessage(e.Err, e.Errno, ``)
}

func (e *WaitError) Unwrap() []error {
	return unwrapErrno(e.Err, e.Errno)
}

// Temporary reports whether the wait may be retried immediately.
func (e *WaitError) Temporary() bool {
	return e.Err == ErrInterrupted
}

// errorMessage formats the sentinel, followed by any details in parentheses,
// e.g. "epoll: bad file descriptor (errno=EBADF op=delete fd=8)". The errno
// is given by name, since its text usually repeats the sentinel.
func errorMessage(err error, errno syscall.Errno, details string) string {
	if err == nil {
		err = ErrUnexpected
	}
	if errno != 0 {
		if details != `` {
			details = ` ` + details
		}
		details = `errno=` + errnoName(errno) + details
	}
	if details == `` {
		return err.Error()
	}
	return err.Error() + ` (` + details + `)`
}

func unwrapErrno(err error, errno syscall.Errno) []error {
	if errno == 0 {
		return []error{err}
	}
	return []error{err, errno}
}
