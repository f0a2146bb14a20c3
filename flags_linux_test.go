//go:build linux

package epoll

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestFlags_matchKernelConstants(t *testing.T) {
	for _, tc := range [...]struct {
		name  string
		flags Flags
		want  uint32
	}{
		{`EPOLLIN`, Readable, unix.EPOLLIN},
		{`EPOLLPRI`, Priority, unix.EPOLLPRI},
		{`EPOLLOUT`, Writable, unix.EPOLLOUT},
		{`EPOLLERR`, Errored, unix.EPOLLERR},
		{`EPOLLHUP`, HangUp, unix.EPOLLHUP},
		{`EPOLLRDNORM`, ReadNormal, unix.EPOLLRDNORM},
		{`EPOLLRDBAND`, ReadBand, unix.EPOLLRDBAND},
		{`EPOLLWRNORM`, WriteNormal, unix.EPOLLWRNORM},
		{`EPOLLWRBAND`, WriteBand, unix.EPOLLWRBAND},
		{`EPOLLMSG`, Message, unix.EPOLLMSG},
		{`EPOLLRDHUP`, ReadHangUp, unix.EPOLLRDHUP},
		{`EPOLLEXCLUSIVE`, Exclusive, unix.EPOLLEXCLUSIVE},
		{`EPOLLWAKEUP`, WakeUp, unix.EPOLLWAKEUP},
		{`EPOLLONESHOT`, OneShot, unix.EPOLLONESHOT},
		{`EPOLLET`, EdgeTriggered, unix.EPOLLET},
	} {
		if got := tc.flags.Bits(); got != tc.want {
			t.Errorf("%s: got %#x, want %#x", tc.name, got, tc.want)
		}
	}
}

func TestControlOp_matchKernelConstants(t *testing.T) {
	if OpAdd != unix.EPOLL_CTL_ADD {
		t.Errorf("OpAdd = %d, want %d", OpAdd, unix.EPOLL_CTL_ADD)
	}
	if OpDelete != unix.EPOLL_CTL_DEL {
		t.Errorf("OpDelete = %d, want %d", OpDelete, unix.EPOLL_CTL_DEL)
	}
	if OpModify != unix.EPOLL_CTL_MOD {
		t.Errorf("OpModify = %d, want %d", OpModify, unix.EPOLL_CTL_MOD)
	}
}
