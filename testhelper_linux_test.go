//go:build linux

package epoll

import (
	"os"
	"sync"
	"testing"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// testPipe returns the read and write descriptors of a new pipe, closed when
// the test ends.
func testPipe(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal("os.Pipe failed:", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

// testEvent is a minimal logiface.Event implementation, capturing fields.
type testEvent struct {
	logiface.UnimplementedEvent
	fields map[string]any
	level  logiface.Level
}

func (e *testEvent) Level() logiface.Level { return e.level }

func (e *testEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any)
	}
	e.fields[key] = val
}

// testLog records every event written by the logger.
type testLog struct {
	events []*testEvent
	mu     sync.Mutex
}

func (l *testLog) NewEvent(level logiface.Level) *testEvent {
	return &testEvent{level: level}
}

func (l *testLog) Write(event *testEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// messages returns the msg field of every event at the given level.
func (l *testLog) messages(level logiface.Level) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if e.level == level {
			msg, _ := e.fields[`msg`].(string)
			out = append(out, msg)
		}
	}
	return out
}

func (l *testLog) find(msg string) *testEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.fields[`msg`] == msg {
			return e
		}
	}
	return nil
}

func newTestLogger(level logiface.Level) (*logiface.Logger[logiface.Event], *testLog) {
	l := &testLog{}
	return logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](l),
		logiface.WithWriter[*testEvent](l),
		logiface.WithLevel[*testEvent](level),
	).Logger(), l
}

// fakeKernel wraps the real system calls, with optional overrides.
type fakeKernel struct {
	sysKernel
	createFunc  func(flags int) (int, error)
	controlFunc func(epfd int, op ControlOp, fd int, event *unix.EpollEvent) error
	waitFunc    func(epfd int, events []unix.EpollEvent, msec int) (int, error)
	closeFunc   func(fd int) error
}

func (k *fakeKernel) create(flags int) (int, error) {
	if k.createFunc != nil {
		return k.createFunc(flags)
	}
	return k.sysKernel.create(flags)
}

func (k *fakeKernel) control(epfd int, op ControlOp, fd int, event *unix.EpollEvent) error {
	if k.controlFunc != nil {
		return k.controlFunc(epfd, op, fd, event)
	}
	return k.sysKernel.control(epfd, op, fd, event)
}

func (k *fakeKernel) wait(epfd int, events []unix.EpollEvent, msec int) (int, error) {
	if k.waitFunc != nil {
		return k.waitFunc(epfd, events, msec)
	}
	return k.sysKernel.wait(epfd, events, msec)
}

func (k *fakeKernel) close(fd int) error {
	if k.closeFunc != nil {
		return k.closeFunc(fd)
	}
	return k.sysKernel.close(fd)
}

func mustClose[P Payload](t *testing.T, m *Multiplexer[P]) map[int]Event[P] {
	t.Helper()
	registry, err := m.Close()
	if err != nil {
		t.Fatal("Close failed:", err)
	}
	return registry
}
