package platform

import "errors"

var (
	// ErrWouldBlock is returned by TryLockFile when another holder owns the lock.
	ErrWouldBlock = errors.New("lock held by another process")

	// ErrLockUnsupported is returned when the filesystem cannot provide
	// advisory locks at all (ENOLCK, EOPNOTSUPP).
	ErrLockUnsupported = errors.New("advisory locking not supported")
)
