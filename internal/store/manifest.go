package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/agentx-labs/agentsync/internal/drift"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/platform"
	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/render"
)

// StateDir holds one manifest per worktree.
const StateDir = "state"

const manifestVersion = 1

// Record is the last managed write of one target.
type Record struct {
	Provider           string            `yaml:"provider"`
	Format             provider.Format   `yaml:"format"`
	Strategy           provider.Strategy `yaml:"strategy"`
	Fingerprint        string            `yaml:"fingerprint"`
	ManagedFingerprint string            `yaml:"managed_fingerprint"`
	Keys               []string          `yaml:"keys,omitempty"`
	WrittenAt          time.Time         `yaml:"written_at"`
	PassID             string            `yaml:"pass_id"`
}

// Manifest records every target managed in one worktree.
type Manifest struct {
	Version  int               `yaml:"version"`
	Worktree string            `yaml:"worktree"`
	Targets  map[string]Record `yaml:"targets"`
}

// ManifestPath returns the manifest file of a worktree.
func ManifestPath(storeRoot, worktreeID string) string {
	return filepath.Join(storeRoot, StateDir, worktreeID+".yaml")
}

// LoadManifest reads a worktree's manifest. A missing file is an empty
// manifest.
func LoadManifest(fsys afero.Fs, storeRoot, worktreeID string) (*Manifest, error) {
	m := &Manifest{Version: manifestVersion, Worktree: worktreeID, Targets: map[string]Record{}}
	data, err := afero.ReadFile(fsys, ManifestPath(storeRoot, worktreeID))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", ManifestPath(storeRoot, worktreeID), err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("manifest %s: unsupported version %d", ManifestPath(storeRoot, worktreeID), m.Version)
	}
	if m.Targets == nil {
		m.Targets = map[string]Record{}
	}
	return m, nil
}

// Save writes the manifest through a temp file and a rename. With sync set
// the file and its directory are flushed.
func (m *Manifest) Save(fsys afero.Fs, storeRoot string, sync bool) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := ManifestPath(storeRoot, m.Worktree)
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, platform.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	_, err = f.Write(data)
	if err == nil && sync {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	if sync {
		return platform.SyncDir(fsys, dir)
	}
	return nil
}

// Lookup returns the drift record for a path.
func (m *Manifest) Lookup(path string) (drift.Record, bool) {
	r, ok := m.Targets[path]
	if !ok {
		return drift.Record{}, false
	}
	return drift.Record{Fingerprint: r.Fingerprint, ManagedFingerprint: r.ManagedFingerprint, Keys: r.Keys}, true
}

// Keys returns the managed keys recorded for a path.
func (m *Manifest) Keys(path string) []string {
	return m.Targets[path].Keys
}

// Records returns the recorded targets of every provider not in skip as
// orphan candidates, sorted by path.
func (m *Manifest) Records(skip map[string]bool) []render.Record {
	var out []render.Record
	for _, path := range m.Paths() {
		r := m.Targets[path]
		if skip[r.Provider] {
			continue
		}
		out = append(out, render.Record{Path: path, Provider: r.Provider, Format: r.Format, Strategy: r.Strategy, Keys: r.Keys})
	}
	return out
}

// Paths returns every recorded path, sorted.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Targets))
	for p := range m.Targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Record stores the state e left on disk.
func (m *Manifest) Record(e *plan.Entry, passID string, at time.Time) {
	m.Targets[e.Path] = Record{
		Provider:           e.Provider,
		Format:             e.Format,
		Strategy:           e.Strategy,
		Fingerprint:        e.Fingerprint,
		ManagedFingerprint: e.ManagedFingerprint,
		Keys:               e.Keys,
		WrittenAt:          at.UTC(),
		PassID:             passID,
	}
}

// Forget drops the record for path.
func (m *Manifest) Forget(path string) { delete(m.Targets, path) }
