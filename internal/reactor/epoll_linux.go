//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollMultiplexer backs the loop with Linux epoll, the same primitive
// original_source/ae_epoll.c wraps.
type epollMultiplexer struct {
	epfd   int
	events []unix.EpollEvent
}

func newMultiplexer(setsize int) (multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollMultiplexer{
		epfd:   epfd,
		events: make([]unix.EpollEvent, setsize),
	}, nil
}

func toEpollEvents(mask Mask) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (m *epollMultiplexer) Add(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (m *epollMultiplexer) Update(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (m *epollMultiplexer) Remove(fd int) error {
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (m *epollMultiplexer) Poll(timeout time.Duration) ([]FiredEvent, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(m.epfd, m.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]FiredEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := m.events[i]
		var mask Mask
		if ev.Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			mask |= Readable
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			mask |= Writable
		}
		out = append(out, FiredEvent{FD: int(ev.Fd), Mask: mask})
	}
	return out, nil
}

func (m *epollMultiplexer) Close() error {
	return unix.Close(m.epfd)
}
