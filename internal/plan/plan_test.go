package plan

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello\n"))
	b := Fingerprint([]byte("hello\n"))
	c := Fingerprint([]byte("hello"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "blake3:"))
	assert.Len(t, a, len("blake3:")+64)
	assert.Len(t, Short(a), 12)
	assert.Equal(t, a[len("blake3:"):len("blake3:")+12], Short(a))
}

func TestPlanAddRejectsDuplicatePaths(t *testing.T) {
	p := New()
	require.NoError(t, p.Add(&Entry{Path: "AGENTS.md", Provider: "codex"}))

	err := p.Add(&Entry{Path: "AGENTS.md", Provider: "other"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTarget))
	assert.Contains(t, err.Error(), "codex")
	assert.Contains(t, err.Error(), "other")
}

func TestPlanEntriesSorted(t *testing.T) {
	p := New()
	for _, path := range []string{"z.md", "a/b.md", "CLAUDE.md", ".cursor/rules/r1.mdc"} {
		require.NoError(t, p.Add(&Entry{Path: path}))
	}

	assert.Equal(t, []string{".cursor/rules/r1.mdc", "CLAUDE.md", "a/b.md", "z.md"}, p.Paths())
	assert.Equal(t, 4, p.Len())

	other := New()
	require.NoError(t, other.Add(&Entry{Path: "CLAUDE.md", Provider: "x"}))
	require.NoError(t, other.Add(&Entry{Path: "new.md"}))
	err := p.Merge(other)
	assert.ErrorIs(t, err, ErrDuplicateTarget)
	_, ok := p.Get("new.md")
	assert.True(t, ok, "non-conflicting entries are still merged")
}
