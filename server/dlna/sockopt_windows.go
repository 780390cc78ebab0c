//go:build windows

package dlna

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// reuseControl enables address reuse on the SSDP multicast socket. Windows
// has no SO_REUSEPORT; SO_REUSEADDR alone covers shared 1900 binds.
func reuseControl(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}

// reuseControlV6Only is reuseControl plus IPV6_V6ONLY, so the v6 SSDP socket
// never shadows the v4 one.
func reuseControlV6Only(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
		if opErr != nil {
			return
		}
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
