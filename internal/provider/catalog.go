package provider

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/agentx-labs/agentsync/internal/schema"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// SupportedVersions is the catalog format the engine understands.
const SupportedVersions = "^1.0.0"

// StoreDir is the store subdirectory holding extra descriptors.
const StoreDir = "providers"

//go:embed providers.yaml
var builtinYAML []byte

var (
	// ErrUnknownProvider is returned when a requested id is not in the catalog.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupportedCatalog is returned when the catalog version falls outside
	// SupportedVersions.
	ErrUnsupportedCatalog = errors.New("unsupported catalog version")
)

// Catalog is the read-only set of descriptors for a run.
type Catalog struct {
	Version   string
	providers map[string]Descriptor
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the embedded catalog, parsed once.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = parseCatalog(builtinYAML, "builtin")
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	return builtin.clone(), nil
}

// Load returns the built-in catalog overlaid with every providers/*.yaml
// descriptor in the store. A store descriptor with a built-in id replaces it.
func Load(fsys afero.Fs, storeRoot string) (*Catalog, error) {
	c, err := Builtin()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(storeRoot, StoreDir)
	infos, err := afero.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", StoreDir, err)
	}

	var errs []error
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		rel := StoreDir + "/" + name
		data, err := afero.ReadFile(fsys, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		d, err := parseDescriptor(data, rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.providers[d.ID] = d
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func parseCatalog(data []byte, source string) (*Catalog, error) {
	res, err := schema.Validate(schema.Catalog, data)
	if err != nil {
		return nil, fmt.Errorf("validating %s catalog: %w", source, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s catalog: %s", ErrInvalidDescriptor, source, res.Summary())
	}

	var raw struct {
		Version   string      `yaml:"version"`
		Providers []yaml.Node `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s catalog: %w", source, err)
	}
	if err := checkVersion(raw.Version); err != nil {
		return nil, err
	}

	c := &Catalog{Version: raw.Version, providers: make(map[string]Descriptor, len(raw.Providers))}
	var errs []error
	for i := range raw.Providers {
		item, err := yaml.Marshal(&raw.Providers[i])
		if err != nil {
			return nil, fmt.Errorf("re-encoding %s provider %d: %w", source, i, err)
		}
		d, err := parseDescriptor(item, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.providers[d.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s defined twice in %s", ErrInvalidDescriptor, d.ID, source))
			continue
		}
		c.providers[d.ID] = d
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDescriptor(data []byte, source string) (Descriptor, error) {
	res, err := schema.Validate(schema.Provider, data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("validating %s: %w", source, err)
	}
	if !res.Valid {
		return Descriptor{}, fmt.Errorf("%w: %s: %s", ErrInvalidDescriptor, source, res.Summary())
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parsing %s: %w", source, err)
	}
	d.Source = source
	if err := d.Check(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedCatalog, version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("parsing constraint %q: %w", SupportedVersions, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedCatalog, version, SupportedVersions)
	}
	return nil
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{Version: c.Version, providers: make(map[string]Descriptor, len(c.providers))}
	for id, d := range c.providers {
		out.providers[id] = d
	}
	return out
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.providers[id]
	return ok
}

// Get returns the descriptor for id.
func (c *Catalog) Get(id string) (Descriptor, bool) {
	d, ok := c.providers[id]
	return d, ok
}

// IDs returns every provider id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.providers))
	for id := range c.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every descriptor sorted by id.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, 0, len(c.providers))
	for _, id := range c.IDs() {
		out = append(out, c.providers[id])
	}
	return out
}

// Select returns the descriptors for ids in sorted order. Unknown ids are
// reported together.
func (c *Catalog) Select(ids []string) ([]Descriptor, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var out []Descriptor
	var unknown []string
	for _, id := range sorted {
		d, ok := c.providers[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, d)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, strings.Join(unknown, ", "))
	}
	return out, nil
}
