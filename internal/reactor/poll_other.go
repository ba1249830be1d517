//go:build !linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollMultiplexer is the portable fallback multiplexer for platforms without
// epoll, mirroring original_source's ae_kqueue.c/ae_select.c role: same
// contract, a plainer syscall underneath. Built on poll(2), present on every
// non-Linux unix golang.org/x/sys/unix targets.
type pollMultiplexer struct {
	masks map[int]Mask
}

func newMultiplexer(setsize int) (multiplexer, error) {
	return &pollMultiplexer{masks: make(map[int]Mask, setsize)}, nil
}

func (m *pollMultiplexer) Add(fd int, mask Mask) error {
	m.masks[fd] = mask
	return nil
}

func (m *pollMultiplexer) Update(fd int, mask Mask) error {
	m.masks[fd] = mask
	return nil
}

func (m *pollMultiplexer) Remove(fd int) error {
	delete(m.masks, fd)
	return nil
}

func toPollEvents(mask Mask) int16 {
	var ev int16
	if mask&Readable != 0 {
		ev |= unix.POLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

func (m *pollMultiplexer) Poll(timeout time.Duration) ([]FiredEvent, error) {
	if len(m.masks) == 0 {
		if timeout < 0 {
			timeout = 100 * time.Millisecond
		}
		time.Sleep(timeout)
		return nil, nil
	}

	fds := make([]unix.PollFd, 0, len(m.masks))
	order := make([]int, 0, len(m.masks))
	for fd, mask := range m.masks {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: toPollEvents(mask)})
		order = append(order, fd)
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]FiredEvent, 0, n)
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		var mask Mask
		if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
			mask |= Readable
		}
		if pfd.Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0 {
			mask |= Writable
		}
		out = append(out, FiredEvent{FD: order[i], Mask: mask})
	}
	return out, nil
}

func (m *pollMultiplexer) Close() error { return nil }
