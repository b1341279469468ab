package artwork

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLookup_LastWriteWins(t *testing.T) {
	var buf bytes.Buffer
	r := BuildLookup([]Config{
		{ReferenceImage: "starry-night", Template: "owl"},
		{ReferenceImage: "mona-lisa", Template: "cat"},
		{ReferenceImage: "starry-night", Template: "fox"},
	}, zerolog.New(&buf))

	got, ok := r.Lookup("starry-night")
	require.True(t, ok)
	assert.Equal(t, "fox", got.Template)
	assert.Equal(t, 2, r.Len())
	assert.Contains(t, buf.String(), "duplicate reference image")
}

func TestBuildLookup_SkipsUnnamed(t *testing.T) {
	var buf bytes.Buffer
	r := BuildLookup([]Config{
		{Template: "owl"},
		{ReferenceImage: "mona-lisa", Template: "cat"},
	}, zerolog.New(&buf))

	assert.Equal(t, []string{"mona-lisa"}, r.Names())
	assert.Contains(t, buf.String(), "skipping artwork")
}

func TestRegistry_LookupMissing(t *testing.T) {
	r := BuildLookup(nil, zerolog.Nop())

	_, ok := r.Lookup("unknown")
	assert.False(t, ok)

	var nilRegistry *Registry
	_, ok = nilRegistry.Lookup("unknown")
	assert.False(t, ok)
	assert.Zero(t, nilRegistry.Len())
}

func TestBuildLookup_CopiesDialogue(t *testing.T) {
	lines := []string{"hello"}
	r := BuildLookup([]Config{{ReferenceImage: "a", Dialogue: lines}}, zerolog.Nop())
	lines[0] = "changed"

	got, _ := r.Lookup("a")
	assert.Equal(t, []string{"hello"}, got.Dialogue)
}

func TestValidateUnique(t *testing.T) {
	assert.NoError(t, ValidateUnique([]Config{{ReferenceImage: "a"}, {ReferenceImage: "b"}, {}}))
	assert.Error(t, ValidateUnique([]Config{{ReferenceImage: "a"}, {ReferenceImage: "a"}}))
}
