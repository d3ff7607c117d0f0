package block

import (
	"errors"

	"github.com/agentx-labs/agentsync/internal/provider"
)

var (
	// ErrNotObject is returned when a structured target's top level is not
	// an object or mapping.
	ErrNotObject = errors.New("top level is not an object")

	// ErrInvalidDocument is returned when a merged document no longer parses.
	ErrInvalidDocument = errors.New("merged document is invalid")

	// ErrMarkerInContent is returned when block content contains its own
	// end marker.
	ErrMarkerInContent = errors.New("block content contains its end marker")
)

// Block is one delimited managed region.
type Block struct {
	ID      string
	Content string
}

// Payload is the engine-owned content for one target.
type Payload struct {
	// Blocks for delimited formats, in render order.
	Blocks []Block
	// Values are managed top-level keys for structured formats.
	Values map[string]any
	// Remove lists keys managed by an earlier pass that are gone now.
	Remove []string
	// Body is the whole file for overwrite targets.
	Body []byte
}

// Empty reports whether the payload owns nothing.
func (p Payload) Empty() bool {
	return len(p.Blocks) == 0 && len(p.Values) == 0 && len(p.Body) == 0
}

// Codec places a payload into a document and extracts the managed region.
type Codec interface {
	// Compose returns the document with the payload applied. existing is
	// nil when the file does not exist.
	Compose(existing []byte, p Payload) ([]byte, error)
	// Managed returns a canonical encoding of the engine-owned region.
	// keys lists managed keys for structured formats.
	Managed(doc []byte, keys []string) ([]byte, error)
	// Strip removes the engine-owned region. An empty result means the
	// file holds nothing else.
	Strip(doc []byte, keys []string) ([]byte, error)
}

// For returns the codec for a target format and strategy.
func For(format provider.Format, strategy provider.Strategy) Codec {
	if strategy == provider.StrategyOverwrite {
		return owned{}
	}
	switch format {
	case provider.FormatJSON:
		return jsonCodec{}
	case provider.FormatYAML:
		return yamlCodec{}
	case provider.FormatTOML:
		return tomlCodec{markers: markers{syntax: hashSyntax(), prepend: true}}
	case provider.FormatMarkdown, provider.FormatText:
		return markers{syntax: htmlSyntax()}
	default:
		return owned{}
	}
}

// owned is the codec for fully engine-owned files.
type owned struct{}

func (owned) Compose(_ []byte, p Payload) ([]byte, error) { return p.Body, nil }

func (owned) Managed(doc []byte, _ []string) ([]byte, error) { return doc, nil }

func (owned) Strip(_ []byte, _ []string) ([]byte, error) { return nil, nil }
