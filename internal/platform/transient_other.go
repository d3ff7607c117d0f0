//go:build !unix

package platform

import (
	"errors"
	"os"
	"syscall"
)

// IsTransient reports whether err is an I/O error worth retrying.
func IsTransient(err error) bool {
	return os.IsTimeout(err) || errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}
