package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestTryLockFileExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	first, err := TryLockFile(path)
	if err != nil {
		t.Fatalf("first TryLockFile: %v", err)
	}

	if _, err := TryLockFile(path); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("second TryLockFile err = %v, want ErrWouldBlock", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	again, err := TryLockFile(path)
	if err != nil {
		t.Fatalf("TryLockFile after unlock: %v", err)
	}
	if err := again.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
