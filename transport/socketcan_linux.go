//go:build linux

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

func init() {
	Register(TypeSocketCAN, func(cfg Config) (Handle, error) {
		return &socketCAN{channel: cfg.Channel, fd: -1}, nil
	})
}

// pollInterval bounds how long Receive and Send wait in the kernel before
// rechecking for cancellation or shutdown.
const pollInterval = 100 // milliseconds

// socketCAN is a Handle over a Linux raw CAN socket. The interface must be
// up and configured (bitrate set via `ip link`) before Start.
type socketCAN struct {
	channel string

	mu    sync.Mutex
	state vstate
	fd    int
	done  chan struct{}
}

func (s *socketCAN) Name() string {
	return TypeSocketCAN + ":" + s.channel
}

func (s *socketCAN) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case vStarted:
		return ErrAlreadyStarted
	case vStopped:
		return ErrClosed
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return fmt.Errorf("transport: socketcan socket: %w", err)
	}

	iface, err := net.InterfaceByName(s.channel)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: socketcan interface %q: %w", s.channel, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: socketcan bind %q: %w", s.channel, err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: socketcan nonblock: %w", err)
	}

	s.fd = fd
	s.done = make(chan struct{})
	s.state = vStarted
	return nil
}

func (s *socketCAN) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == vStopped {
		return nil
	}
	var err error
	if s.state == vStarted {
		close(s.done)
		err = unix.Close(s.fd)
		s.fd = -1
	}
	s.state = vStopped
	return err
}

func (s *socketCAN) snapshot() (int, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case vIdle:
		return -1, nil, ErrNotStarted
	case vStopped:
		return -1, nil, ErrClosed
	}
	return s.fd, s.done, nil
}

func (s *socketCAN) Send(f Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	fd, done, err := s.snapshot()
	if err != nil {
		return err
	}
	for {
		select {
		case <-done:
			return ErrClosed
		default:
		}
		n, err := unix.Write(fd, buf)
		if err == nil {
			if n != len(buf) {
				return fmt.Errorf("transport: socketcan short write: %d", n)
			}
			return nil
		}
		if err != unix.EAGAIN && err != unix.EINTR {
			return fmt.Errorf("transport: socketcan write: %w", err)
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		if _, err := unix.Poll(fds, pollInterval); err != nil && err != unix.EINTR {
			return fmt.Errorf("transport: socketcan poll: %w", err)
		}
	}
}

func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	fd, done, err := s.snapshot()
	if err != nil {
		return Frame{}, err
	}
	buf := make([]byte, frameWireSize)
	for {
		select {
		case <-done:
			return Frame{}, ErrClosed
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		default:
		}
		n, err := unix.Read(fd, buf)
		if err == nil {
			if n != len(buf) {
				return Frame{}, fmt.Errorf("transport: socketcan short read: %d", n)
			}
			var f Frame
			if err := f.UnmarshalBinary(buf); err != nil {
				return Frame{}, err
			}
			return f, nil
		}
		if err != unix.EAGAIN && err != unix.EINTR {
			select {
			case <-done:
				return Frame{}, ErrClosed
			default:
			}
			return Frame{}, fmt.Errorf("transport: socketcan read: %w", err)
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, pollInterval); err != nil && err != unix.EINTR {
			return Frame{}, fmt.Errorf("transport: socketcan poll: %w", err)
		}
	}
}
