package block

import (
	"strings"
	"testing"

	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tomlC() Codec { return For(provider.FormatTOML, provider.StrategyMerge) }

func TestTOMLBlockGoesFirst(t *testing.T) {
	existing := "model = \"o3\"\n\n[mcp_servers.docs]\ncommand = \"docs-server\"\n"
	p := Payload{Values: map[string]any{
		"approval_policy": "on-request",
		"sandbox":         map[string]any{"mode": "workspace-write"},
	}}

	out, err := tomlC().Compose([]byte(existing), p)
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "# agentsync:begin settings\n"), s)
	assert.True(t, strings.HasSuffix(s, existing), "user content kept verbatim after the block")

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(out, &decoded))
	assert.Equal(t, "on-request", decoded["approval_policy"])
	assert.Equal(t, "o3", decoded["model"])
	sandbox, ok := decoded["sandbox"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "workspace-write", sandbox["mode"])
	_, nested := decoded["mcp_servers"].(map[string]any)["docs"].(map[string]any)["approval_policy"]
	assert.False(t, nested, "managed keys must not land inside a user table")

	again, err := tomlC().Compose(out, p)
	require.NoError(t, err)
	assert.Equal(t, s, string(again))

	stripped, err := tomlC().Strip(out, nil)
	require.NoError(t, err)
	assert.Equal(t, existing, string(stripped))
}

func TestTOMLCollisionIsInvalid(t *testing.T) {
	_, err := tomlC().Compose([]byte("model = \"o3\"\n"), Payload{Values: map[string]any{"model": "o4"}})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestTOMLKeys(t *testing.T) {
	assert.Equal(t, "a.b_c", tomlKey([]string{"a", "b_c"}))
	assert.Equal(t, `editor."font.size"`, tomlKey([]string{"editor", "font.size"}))
}
