//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package interceptor

import (
	"net"

	"github.com/dnsprotect/dnsprotect/src/internal/log"
)

func listenConfig(reusePort bool) *net.ListenConfig {
	if reusePort {
		log.Warnf("SO_REUSEPORT is not supported on this platform, ignoring reuse_port")
	}
	return &net.ListenConfig{}
}
