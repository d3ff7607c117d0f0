package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/tidwall/jsonc"
)

// jsonCodec owns top-level keys of a JSON object. Input may be JSONC;
// comments and trailing commas are dropped on output. Key order of the
// existing document is kept and new keys are appended in sorted order.
type jsonCodec struct{}

type member struct {
	key string
	raw json.RawMessage
}

func (jsonCodec) Compose(existing []byte, p Payload) ([]byte, error) {
	members, err := parseObject(existing)
	if err != nil {
		return nil, err
	}

	drop := make(map[string]bool, len(p.Remove))
	for _, k := range p.Remove {
		if _, still := p.Values[k]; !still {
			drop[k] = true
		}
	}
	kept := members[:0]
	for _, m := range members {
		if !drop[m.key] {
			kept = append(kept, m)
		}
	}
	members = kept

	for _, k := range sortedKeys(p.Values) {
		raw, err := encodeJSON(p.Values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		found := false
		for i := range members {
			if members[i].key == k {
				members[i].raw = raw
				found = true
			}
		}
		if !found {
			members = append(members, member{key: k, raw: raw})
		}
	}
	return emitObject(members)
}

func (jsonCodec) Managed(doc []byte, keys []string) ([]byte, error) {
	members, err := parseObject(doc)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	managed := make(map[string]json.RawMessage)
	for _, m := range members {
		if !want[m.key] {
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, m.raw); err != nil {
			return nil, err
		}
		managed[m.key] = compact.Bytes()
	}
	// encoding/json sorts map keys.
	return json.Marshal(managed)
}

func (jsonCodec) Strip(doc []byte, keys []string) ([]byte, error) {
	members, err := parseObject(doc)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	var kept []member
	for _, m := range members {
		if !drop[m.key] {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return emitObject(kept)
}

// parseObject decodes the top-level members of a JSON or JSONC object in
// document order. A repeated key keeps its first position and last value.
func parseObject(data []byte) ([]member, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var members []member
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidDocument, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrInvalidDocument, key, err)
		}
		if i, dup := index[key]; dup {
			members[i].raw = raw
			continue
		}
		index[key] = len(members)
		members = append(members, member{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidDocument)
	}
	return members, nil
}

func emitObject(members []member) ([]byte, error) {
	if len(members) == 0 {
		return []byte("{}\n"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, m := range members {
		key, err := encodeJSON(m.key)
		if err != nil {
			return nil, err
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, m.raw); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrInvalidDocument, m.key, err)
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, compact.Bytes(), "  ", "  "); err != nil {
			return nil, err
		}
		if i < len(members)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// encodeJSON marshals without HTML escaping so instructions keep their
// angle brackets.
func encodeJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
