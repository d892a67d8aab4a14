//go:build !unix

package listener

import (
	"errors"
	"syscall"
)

// control refuses dual-stack sockets so the fallback policy decides.
func control(_, v6only bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if network == "tcp6" && !v6only {
			return errDualStackUnsupported
		}
		return nil
	}
}

func familyUnsupported(err error) bool {
	return errors.Is(err, errDualStackUnsupported)
}

func isAddrInUse(err error) bool {
	return false
}
