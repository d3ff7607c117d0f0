package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
)

func TestChmod(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.txt")
	if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Chmod(afero.NewOsFs(), path, 0600); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want %o", perm, 0600)
		}
	}
}

func TestModeOf(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/w/run.sh", []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	mode, err := ModeOf(fsys, "/w/run.sh")
	if err != nil {
		t.Fatalf("ModeOf: %v", err)
	}
	if mode != 0755 {
		t.Errorf("mode = %o, want 755", mode)
	}

	mode, err = ModeOf(fsys, "/w/missing")
	if err != nil {
		t.Fatalf("ModeOf missing: %v", err)
	}
	if mode != DefaultFileMode {
		t.Errorf("missing mode = %o, want %o", mode, DefaultFileMode)
	}
}
