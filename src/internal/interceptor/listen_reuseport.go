//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package interceptor

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func listenConfig(reusePort bool) *net.ListenConfig {
	if !reusePort {
		return &net.ListenConfig{}
	}
	return &net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}
}
