package block

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// yamlCodec owns top-level keys of a YAML mapping, editing the node tree so
// comments and the order of unmanaged keys survive.
type yamlCodec struct{}

func (yamlCodec) Compose(existing []byte, p Payload) ([]byte, error) {
	doc, err := parseMapping(existing)
	if err != nil {
		return nil, err
	}
	root := doc.Content[0]

	for _, k := range p.Remove {
		if _, still := p.Values[k]; !still {
			removeKey(root, k)
		}
	}
	for _, k := range sortedKeys(p.Values) {
		val := &yaml.Node{}
		if err := val.Encode(p.Values[k]); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		setKey(root, k, val)
	}
	return emitYAML(doc)
}

func (yamlCodec) Managed(doc []byte, keys []string) ([]byte, error) {
	d, err := parseMapping(doc)
	if err != nil {
		return nil, err
	}
	root := d.Content[0]
	managed := make(map[string]any)
	for _, k := range keys {
		node := lookupKey(root, k)
		if node == nil {
			continue
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrInvalidDocument, k, err)
		}
		managed[k] = v
	}
	return json.Marshal(managed)
}

func (yamlCodec) Strip(doc []byte, keys []string) ([]byte, error) {
	d, err := parseMapping(doc)
	if err != nil {
		return nil, err
	}
	root := d.Content[0]
	for _, k := range keys {
		removeKey(root, k)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	return emitYAML(d)
}

func parseMapping(data []byte) (*yaml.Node, error) {
	empty := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	if len(bytes.TrimSpace(data)) == 0 {
		return empty, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return empty, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotObject
	}
	return &doc, nil
}

func lookupKey(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setKey(m *yaml.Node, key string, val *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			old := m.Content[i+1]
			val.LineComment = old.LineComment
			val.FootComment = old.FootComment
			m.Content[i+1] = val
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
}

func removeKey(m *yaml.Node, key string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return
		}
	}
}

func emitYAML(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}
