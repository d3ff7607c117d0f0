// Package platform wraps the operating-system specifics the sync engine
// depends on: advisory file locks, durable writes (fsync of files and their
// parent directories), classification of transient I/O errors as seen on
// network filesystems, bounded exponential retry, and a guard against
// writing through symlinked path components. Unix systems use flock(2) via
// golang.org/x/sys/unix; other systems fall back to exclusive lock files.
package platform
