package block

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// settingsBlock is the id of the single managed block in TOML targets.
const settingsBlock = "settings"

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// tomlCodec renders managed values as dotted key/value lines inside one
// comment-delimited block at the top of the file, where top-level keys
// cannot be captured by a user's [table] header. The merged document must
// still parse.
type tomlCodec struct {
	markers markers
}

func (c tomlCodec) Compose(existing []byte, p Payload) ([]byte, error) {
	var blocks []Block
	if len(p.Values) > 0 {
		body, err := renderTOML(p.Values)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, Block{ID: settingsBlock, Content: body})
	}
	out, err := c.markers.Compose(existing, Payload{Blocks: blocks})
	if err != nil {
		return nil, err
	}
	var probe map[string]any
	if err := toml.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

func (c tomlCodec) Managed(doc []byte, keys []string) ([]byte, error) {
	return c.markers.Managed(doc, keys)
}

func (c tomlCodec) Strip(doc []byte, keys []string) ([]byte, error) {
	return c.markers.Strip(doc, keys)
}

// renderTOML flattens nested maps into dotted keys, sorted.
func renderTOML(values map[string]any) (string, error) {
	var lines []string
	var walk func(prefix []string, m map[string]any) error
	walk = func(prefix []string, m map[string]any) error {
		for _, k := range sortedKeys(m) {
			path := append(append([]string(nil), prefix...), k)
			if sub, ok := asMap(m[k]); ok {
				if err := walk(path, sub); err != nil {
					return err
				}
				continue
			}
			val, err := tomlValue(m[k])
			if err != nil {
				return fmt.Errorf("encoding %s: %w", strings.Join(path, "."), err)
			}
			lines = append(lines, tomlKey(path)+" = "+val)
		}
		return nil
	}
	if err := walk(nil, values); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func tomlKey(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		if bareKey.MatchString(p) {
			parts[i] = p
		} else {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, ".")
}

// tomlValue encodes a scalar or array through go-toml.
func tomlValue(v any) (string, error) {
	out, err := toml.Marshal(map[string]any{"v": v})
	if err != nil {
		return "", err
	}
	s := strings.TrimRight(string(out), "\n")
	if !strings.HasPrefix(s, "v = ") || strings.Contains(s, "\n[") {
		return "", fmt.Errorf("unsupported value %v", v)
	}
	return strings.TrimPrefix(s, "v = "), nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
