//go:build unix

package platform

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

var transientErrnos = []syscall.Errno{
	unix.EAGAIN,
	unix.EINTR,
	unix.EBUSY,
	unix.ETIMEDOUT,
	unix.ESTALE,
}

// IsTransient reports whether err is an I/O error worth retrying, as seen on
// NFS and SMB mounts under load.
func IsTransient(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	for _, e := range transientErrnos {
		if errno == e {
			return true
		}
	}
	return false
}
