package block

import (
	"testing"

	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonC() Codec { return For(provider.FormatJSON, provider.StrategyMerge) }

func TestJSONComposeJSONC(t *testing.T) {
	existing := `{
  // editor font
  "editor.fontSize": 14,
  "files.exclude": {"**/.git": true},
}
`
	out, err := jsonC().Compose([]byte(existing), Payload{Values: map[string]any{"editor.tabSize": 4}})
	require.NoError(t, err)

	want := `{
  "editor.fontSize": 14,
  "files.exclude": {
    "**/.git": true
  },
  "editor.tabSize": 4
}
`
	assert.Equal(t, want, string(out))

	again, err := jsonC().Compose(out, Payload{Values: map[string]any{"editor.tabSize": 4}})
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestJSONReplaceKeepsPosition(t *testing.T) {
	existing := `{"a": 1, "managed": "old", "z": true}`
	out, err := jsonC().Compose([]byte(existing), Payload{Values: map[string]any{"managed": "<new & improved>"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"managed\": \"<new & improved>\",\n  \"z\": true\n}\n", string(out))
}

func TestJSONRemoveStaleKeys(t *testing.T) {
	existing := `{"keep": 1, "stale": 2, "still": 3}`
	out, err := jsonC().Compose([]byte(existing), Payload{
		Values: map[string]any{"still": 4},
		Remove: []string{"stale", "still"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"keep\": 1,\n  \"still\": 4\n}\n", string(out))
}

func TestJSONNotObject(t *testing.T) {
	_, err := jsonC().Compose([]byte(`[1, 2]`), Payload{Values: map[string]any{"a": 1}})
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = jsonC().Compose([]byte(`{"a": `), Payload{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestJSONManagedIsCanonical(t *testing.T) {
	a := []byte(`{"user": 1, "x": {"b": 2, "a": 1}}`)
	b := []byte("{\n  \"x\": {\n    \"b\": 2,\n    \"a\": 1\n  },\n  \"user\": 99\n}\n")

	ma, err := jsonC().Managed(a, []string{"x"})
	require.NoError(t, err)
	mb, err := jsonC().Managed(b, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, string(ma), string(mb))
	assert.Equal(t, `{"x":{"b":2,"a":1}}`, string(ma))
}

func TestJSONStrip(t *testing.T) {
	out, err := jsonC().Strip([]byte(`{"a": 1, "b": 2}`), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 2\n}\n", string(out))

	out, err = jsonC().Strip([]byte(`{"a": 1}`), []string{"a"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestJSONEmptyPayloadOnMissingFile(t *testing.T) {
	out, err := jsonC().Compose(nil, Payload{})
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}
