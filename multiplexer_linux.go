// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package epoll

import (
	"math"
	"runtime"
	"time"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

type multiplexerState uint8

const (
	stateUnopened multiplexerState = iota
	stateOpen
	stateClosed
)

// Multiplexer is an epoll instance, with a mirrored registration table, and
// a reusable buffer for ready events. The payload kind of every registration
// is fixed by P, one of *Owned[T], Descriptor, Tag32, or Tag64.
//
// A Multiplexer is not safe for concurrent use. Wait is the only blocking
// operation.
//
// Instances must be created using New, and should be released using Close,
// which returns every remaining registration. If an instance becomes
// unreachable without being closed, the epoll descriptor is still closed
// (once), but any owned payloads are left to the garbage collector.
type Multiplexer[P Payload] struct { // betteralign:ignore
	kernel   kernel
	registry map[int]Event[P]
	// owned maps each registered *Owned payload to its fd, and is nil for
	// the other kinds
	owned    map[any]int
	log      instanceLogger
	raw      []unix.EpollEvent
	ready    []Event[P]
	cleanup  runtime.Cleanup
	epfd     int
	kind     Kind
	state    multiplexerState
}

// cleanupArg is everything the fallback cleanup needs, and must not
// reference the Multiplexer.
type cleanupArg struct {
	kernel kernel
	logger *logiface.Logger[logiface.Event]
	epfd   int
}

// New creates an epoll instance, see epoll_create1(2).
//
// The P type parameter selects the payload kind, e.g.
// New[epoll.Tag64]() or New[*epoll.Owned[conn]]().
func New[P Payload](opts ...Option) (*Multiplexer[P], error) {
	kind, err := payloadKind[P]()
	if err != nil {
		return nil, err
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	var flags int
	if cfg.closeOnExec {
		flags |= unix.EPOLL_CLOEXEC
	}

	epfd, err := cfg.kernel.create(flags)
	if err != nil {
		return nil, CreateErrorFromErrno(asErrno(err))
	}

	m := &Multiplexer[P]{
		kernel:   cfg.kernel,
		registry: make(map[int]Event[P]),
		log: instanceLogger{
			logger:  cfg.logger,
			limiter: cfg.logLimiter,
			epfd:    epfd,
		},
		raw:   make([]unix.EpollEvent, cfg.capacity),
		ready: make([]Event[P], 0, cfg.capacity),
		epfd:  epfd,
		kind:  kind,
		state: stateOpen,
	}
	if kind == KindOwned {
		m.owned = make(map[any]int)
	}

	m.cleanup = runtime.AddCleanup(m, closeUnreachable, cleanupArg{
		kernel: cfg.kernel,
		logger: cfg.logger,
		epfd:   epfd,
	})

	m.log.debug().
		Str(`kind`, kind.String()).
		Int(`capacity`, cfg.capacity).
		Bool(`cloexec`, cfg.closeOnExec).
		Log(`epoll instance created`)

	return m, nil
}

func closeUnreachable(arg cleanupArg) {
	err := arg.kernel.close(arg.epfd)
	b := arg.logger.Warning().Int(`epfd`, arg.epfd)
	if err != nil {
		b = b.Err(err)
	}
	b.Log(`epoll instance was not closed before becoming unreachable`)
}

// FD returns the epoll descriptor.
func (m *Multiplexer[P]) FD() int {
	m.mustBeOpen()
	return m.epfd
}

// Len returns the number of registered descriptors.
func (m *Multiplexer[P]) Len() int {
	m.mustBeOpen()
	return len(m.registry)
}

// Capacity returns the number of wait buffer slots.
func (m *Multiplexer[P]) Capacity() int {
	m.mustBeOpen()
	return len(m.raw)
}

// Lookup returns the current registration for fd. The payload is shared with
// the registration table, and must not be released by the caller.
func (m *Multiplexer[P]) Lookup(fd int) (Event[P], bool) {
	m.mustBeOpen()
	event, ok := m.registry[fd]
	return event, ok
}

// Register adds fd to the interest list, see EPOLL_CTL_ADD. The payload is
// owned by the registration until it is returned by Modify, Deregister, or
// Close. An Owned payload already held by another registration is rejected
// with ErrInvalidPayload.
func (m *Multiplexer[P]) Register(fd int, event Event[P]) error {
	m.mustBeOpen()

	if fd < 0 {
		return &ControlError{Err: ErrBadDescriptor, Op: OpAdd, FD: fd}
	}
	if !event.payload.valid() {
		return &ControlError{Err: ErrInvalidPayload, Op: OpAdd, FD: fd}
	}
	if _, ok := m.registry[fd]; ok {
		return &ControlError{Err: ErrAlreadyRegistered, Op: OpAdd, FD: fd}
	}
	if m.isHeld(event.payload) {
		return &ControlError{Err: ErrInvalidPayload, Op: OpAdd, FD: fd}
	}

	// the slot is claimed first, and rolled back on failure
	m.store(fd, event)

	raw := encodeEvent(fd, event)
	if err := m.kernel.control(m.epfd, OpAdd, fd, &raw); err != nil {
		m.remove(fd)
		return m.controlError(OpAdd, fd, err)
	}

	m.log.debug().
		Int(`fd`, fd).
		Stringer(`flags`, event.flags).
		Log(`fd registered`)

	return nil
}

// Modify replaces the registration for fd, see EPOLL_CTL_MOD, returning the
// previous registration (and ownership of its payload).
//
// An Owned payload already held by any registration, including the one being
// replaced, is rejected with ErrInvalidPayload. Use ModifyFlags to change
// only the flags.
func (m *Multiplexer[P]) Modify(fd int, event Event[P]) (Event[P], error) {
	m.mustBeOpen()

	if fd < 0 {
		return Event[P]{}, &ControlError{Err: ErrBadDescriptor, Op: OpModify, FD: fd}
	}
	if !event.payload.valid() {
		return Event[P]{}, &ControlError{Err: ErrInvalidPayload, Op: OpModify, FD: fd}
	}
	previous, ok := m.registry[fd]
	if !ok {
		return Event[P]{}, &ControlError{Err: ErrNotRegistered, Op: OpModify, FD: fd}
	}
	if m.isHeld(event.payload) {
		return Event[P]{}, &ControlError{Err: ErrInvalidPayload, Op: OpModify, FD: fd}
	}

	m.store(fd, event)

	raw := encodeEvent(fd, event)
	if err := m.kernel.control(m.epfd, OpModify, fd, &raw); err != nil {
		m.store(fd, previous)
		return Event[P]{}, m.controlError(OpModify, fd, err)
	}

	m.log.debug().
		Int(`fd`, fd).
		Stringer(`flags`, event.flags).
		Stringer(`previous`, previous.flags).
		Log(`fd modified`)

	return previous, nil
}

// ModifyFlags replaces the flags of the registration for fd, see
// EPOLL_CTL_MOD, keeping its payload. No ownership is transferred, making it
// the way to re-arm a OneShot registration.
func (m *Multiplexer[P]) ModifyFlags(fd int, flags Flags) error {
	m.mustBeOpen()

	current, ok := m.registry[fd]
	if !ok {
		return &ControlError{Err: ErrNotRegistered, Op: OpModify, FD: fd}
	}

	event := current.WithFlags(flags)
	m.registry[fd] = event

	raw := encodeEvent(fd, event)
	if err := m.kernel.control(m.epfd, OpModify, fd, &raw); err != nil {
		m.registry[fd] = current
		return m.controlError(OpModify, fd, err)
	}

	m.log.debug().
		Int(`fd`, fd).
		Stringer(`flags`, flags).
		Stringer(`previous`, current.flags).
		Log(`fd modified`)

	return nil
}

// Deregister removes fd from the interest list, see EPOLL_CTL_DEL, returning
// its last registration (and ownership of its payload).
//
// If the kernel rejects the removal with ErrBadDescriptor or
// ErrNotRegistered, typically because fd was closed before being
// deregistered, the registration is removed regardless, and is returned
// along with the error. The kernel tracks the open file rather than the
// descriptor, so if fd was duplicated (e.g. by dup(2) or fork(2)) the
// kernel registration persists until every duplicate is closed, and Wait may
// keep reporting it. Such events are returned with their last payload for
// the value kinds, and dropped for Owned payloads. Deregister before closing
// to avoid this.
func (m *Multiplexer[P]) Deregister(fd int) (Event[P], error) {
	m.mustBeOpen()

	event, ok := m.registry[fd]
	if !ok {
		return Event[P]{}, &ControlError{Err: ErrNotRegistered, Op: OpDelete, FD: fd}
	}

	// the event is ignored, but kernels before 2.6.9 reject nil
	var raw unix.EpollEvent
	if err := m.kernel.control(m.epfd, OpDelete, fd, &raw); err != nil {
		cerr := m.controlError(OpDelete, fd, err)
		if cerr.Err != ErrBadDescriptor && cerr.Err != ErrNotRegistered {
			return Event[P]{}, cerr
		}
		m.remove(fd)
		m.log.warning().
			Int(`fd`, fd).
			Err(cerr).
			Log(`fd removed from registry but not from the kernel`)
		return event, cerr
	}

	m.remove(fd)

	m.log.debug().
		Int(`fd`, fd).
		Log(`fd deregistered`)

	return event, nil
}

// Wait blocks until at least one registered descriptor is ready, or
// timeoutMs milliseconds elapse, see epoll_wait(2). A negative timeout
// blocks indefinitely, and zero returns immediately.
//
// The returned events are in the order reported by the kernel, and number
// at most Capacity. Their payloads are duplicates of the registrations at
// the time of the call (Owned payloads are cloned), so they remain valid
// after Modify or Deregister. The slice itself is reused, and is only valid
// until the next call to Wait, ResizeBuffer, or Close.
//
// No retry is performed. An interrupted call fails with ErrInterrupted,
// having consumed no events.
func (m *Multiplexer[P]) Wait(timeoutMs int) ([]Event[P], error) {
	m.mustBeOpen()

	if timeoutMs < 0 {
		timeoutMs = -1
	}

	n, err := m.kernel.wait(m.epfd, m.raw, timeoutMs)
	if err != nil {
		m.clearReady(0)
		return nil, m.waitError(err)
	}
	if n < 0 || n > len(m.raw) {
		m.clearReady(0)
		m.log.limited(logiface.LevelError, logCategoryUnexpected).
			Int(`n`, n).
			Int(`capacity`, len(m.raw)).
			Log(`epoll_wait returned an invalid count`)
		return nil, &WaitError{Err: ErrUnexpected}
	}

	ready := m.ready[:0]
	for i := range m.raw[:n] {
		raw := &m.raw[i]
		event, ok := m.decode(raw)
		if !ok {
			m.log.limited(logiface.LevelWarning, logCategoryDropped).
				Int(`fd`, int(raw.Fd)).
				Stringer(`flags`, FromBits(raw.Events)).
				Log(`dropped event for unregistered fd`)
			continue
		}
		ready = append(ready, event)
	}
	m.clearReady(len(ready))
	m.ready = ready

	return ready, nil
}

// WaitTimeout is Wait, with the timeout rounded up to the nearest
// millisecond. A negative timeout blocks indefinitely.
func (m *Multiplexer[P]) WaitTimeout(timeout time.Duration) ([]Event[P], error) {
	return m.Wait(durationToMillis(timeout))
}

// ResizeBuffer replaces the wait buffer with one of exactly capacity slots.
// The events returned by any previous Wait are invalidated.
func (m *Multiplexer[P]) ResizeBuffer(capacity int) error {
	m.mustBeOpen()

	if capacity <= 0 {
		return ErrInvalidCapacity
	}

	previous := len(m.raw)
	m.raw = make([]unix.EpollEvent, capacity)
	m.ready = make([]Event[P], 0, capacity)

	m.log.debug().
		Int(`capacity`, capacity).
		Int(`previous`, previous).
		Log(`wait buffer resized`)

	return nil
}

// Close closes the epoll instance, and returns the registration table,
// transferring ownership of every remaining payload to the caller. The
// table is returned even if closing the descriptor fails. Any further use of
// the Multiplexer panics.
func (m *Multiplexer[P]) Close() (map[int]Event[P], error) {
	m.mustBeOpen()

	m.state = stateClosed
	m.cleanup.Stop()

	registry := m.registry
	m.registry = nil
	m.owned = nil
	m.clearReady(0)
	m.raw = nil
	m.ready = nil

	err := m.kernel.close(m.epfd)

	b := m.log.debug().Int(`registered`, len(registry))
	if err != nil {
		b = b.Err(err)
	}
	b.Log(`epoll instance closed`)

	return registry, err
}

// isHeld reports whether payload is an Owned payload held by any
// registration.
func (m *Multiplexer[P]) isHeld(payload P) bool {
	if m.owned == nil {
		return false
	}
	_, ok := m.owned[any(payload)]
	return ok
}

// store sets the registration for fd, replacing any existing one.
func (m *Multiplexer[P]) store(fd int, event Event[P]) {
	if m.owned != nil {
		if previous, ok := m.registry[fd]; ok {
			delete(m.owned, any(previous.payload))
		}
		m.owned[any(event.payload)] = fd
	}
	m.registry[fd] = event
}

func (m *Multiplexer[P]) remove(fd int) {
	if m.owned != nil {
		if event, ok := m.registry[fd]; ok {
			delete(m.owned, any(event.payload))
		}
	}
	delete(m.registry, fd)
}

func (m *Multiplexer[P]) mustBeOpen() {
	switch m.state {
	case stateOpen:
	case stateClosed:
		panic(ErrClosed)
	default:
		panic(ErrNotOpen)
	}
}

func (m *Multiplexer[P]) decode(raw *unix.EpollEvent) (Event[P], bool) {
	flags := FromBits(raw.Events)
	if m.kind != KindOwned {
		return Event[P]{flags: flags, payload: decodeValue[P](m.kind, raw)}, true
	}
	registered, ok := m.registry[int(int32(data32(raw)))]
	if !ok {
		return Event[P]{}, false
	}
	return Event[P]{flags: flags, payload: registered.payload.duplicate().(P)}, true
}

// clearReady zeroes the stale tail of the ready buffer, beyond n, so
// duplicated payloads from previous calls are not retained.
func (m *Multiplexer[P]) clearReady(n int) {
	if n < len(m.ready) {
		clear(m.ready[n:])
	}
	m.ready = m.ready[:0]
}

func (m *Multiplexer[P]) controlError(op ControlOp, fd int, err error) *ControlError {
	cerr := ControlErrorFromErrno(op, fd, asErrno(err))
	if cerr.Err == ErrUnexpected {
		m.log.err().
			Int(`fd`, fd).
			Stringer(`op`, op).
			Err(err).
			Log(`unexpected epoll_ctl failure`)
	}
	return cerr
}

func (m *Multiplexer[P]) waitError(err error) *WaitError {
	werr := WaitErrorFromErrno(asErrno(err))
	switch werr.Err {
	case ErrInterrupted:
		m.log.limited(logiface.LevelDebug, logCategoryInterrupted).
			Log(`epoll_wait interrupted`)
	case ErrUnexpected:
		m.log.limited(logiface.LevelError, logCategoryUnexpected).
			Err(err).
			Log(`unexpected epoll_wait failure`)
	}
	return werr
}

func durationToMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
