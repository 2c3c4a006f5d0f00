package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/resources"
)

const (
	vertSrc = "#version 330\nvoid main() { gl_Position = vec4(0); }"
	fragSrc = "#version 330\nout vec4 c; void main() { c = vec4(1); }"
)

func newShaderSystem(t *testing.T) *ShaderSystem {
	t.Helper()
	ss, err := NewShaderSystem(ShaderSystemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Shutdown() })
	return ss
}

func TestShaderFromSourcesDeduplicatesByHash(t *testing.T) {
	ss := newShaderSystem(t)

	h1 := ss.FromSources(vertSrc, fragSrc, "", "basic", "", "")
	require.True(t, h1.IsValid())
	h2 := ss.FromSources(vertSrc, fragSrc, "", "basic-duplicate", "", "")
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, ss.Count())

	h3 := ss.FromSources(vertSrc, fragSrc+" ", "", "different", "", "")
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, 2, ss.Count())
}

func TestShaderFromSourcesRequiresStages(t *testing.T) {
	ss := newShaderSystem(t)
	assert.False(t, ss.FromSources("", fragSrc, "", "x", "", "").IsValid())
	assert.False(t, ss.FromSources(vertSrc, "", "", "x", "", "").IsValid())
}

func TestShaderFromSourcesWithUUIDUpdatesInPlace(t *testing.T) {
	ss := newShaderSystem(t)

	h := ss.FromSources(vertSrc, fragSrc, "", "named", "", "shader-fixed")
	require.True(t, h.IsValid())
	v1 := ss.Get(h).Version

	// Same uuid, new sources: the existing resource mutates.
	h2 := ss.FromSources(vertSrc, fragSrc+"// v2", "", "named", "", "shader-fixed")
	assert.Equal(t, h, h2)
	assert.Equal(t, 1, ss.Count())
	assert.Greater(t, ss.Get(h).Version, v1)
}

func TestShaderFindByHash(t *testing.T) {
	ss := newShaderSystem(t)

	h := ss.FromSources(vertSrc, fragSrc, "", "basic", "", "")
	hash := ss.Get(h).SourceHash
	require.NotEmpty(t, hash)

	assert.Equal(t, h, ss.FindByHash(hash))
	assert.False(t, ss.FindByHash("0000000000000000").IsValid())

	// Changing sources reindexes the hash.
	require.True(t, ss.SetSources(h, vertSrc, fragSrc+"!", "", "", ""))
	assert.False(t, ss.FindByHash(hash).IsValid())
	assert.Equal(t, h, ss.FindByHash(ss.Get(h).SourceHash))
}

func TestShaderSetSourcesNoChangeIsNoop(t *testing.T) {
	ss := newShaderSystem(t)
	h := ss.FromSources(vertSrc, fragSrc, "", "basic", "", "")
	v := ss.Get(h).Version

	assert.False(t, ss.SetSources(h, vertSrc, fragSrc, "", "basic", ""))
	assert.Equal(t, v, ss.Get(h).Version)
}

func TestShaderReleaseDestroysAtZero(t *testing.T) {
	ss := newShaderSystem(t)
	h := ss.FromSources(vertSrc, fragSrc, "", "basic", "", "")
	hash := ss.Get(h).SourceHash
	uuid := ss.Get(h).UUID

	ss.AddRef(h)
	assert.True(t, ss.Release(h))
	assert.False(t, ss.IsValid(h))
	assert.False(t, ss.Contains(uuid))
	assert.False(t, ss.FindByHash(hash).IsValid())

	// Release at zero refs only warns.
	h2 := ss.Create("s2")
	assert.False(t, ss.Release(h2))
	assert.True(t, ss.IsValid(h2))
}

func TestShaderVariantStaleness(t *testing.T) {
	ss := newShaderSystem(t)

	orig := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	variant := ss.FromSources(vertSrc+"\n#define SKINNING", fragSrc, "", "lit_skinned", "", "")
	require.True(t, orig.IsValid())
	require.True(t, variant.IsValid())

	ss.SetVariantInfo(variant, orig, resources.VariantSkinning)
	v := ss.Get(variant)
	assert.True(t, v.IsVariant)
	assert.Equal(t, resources.VariantSkinning, v.VariantOp)
	assert.False(t, ss.VariantIsStale(variant))

	// Editing the original makes the variant stale.
	require.True(t, ss.SetSources(orig, vertSrc+"\n// edited", fragSrc, "", "", ""))
	assert.True(t, ss.VariantIsStale(variant))

	// Re-deriving refreshes the snapshot.
	ss.SetVariantInfo(variant, orig, resources.VariantSkinning)
	assert.False(t, ss.VariantIsStale(variant))
}

func TestShaderVariantStaleWhenOriginalDestroyed(t *testing.T) {
	ss := newShaderSystem(t)

	orig := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	variant := ss.FromSources(vertSrc+"x", fragSrc, "", "lit_variant", "", "")
	ss.SetVariantInfo(variant, orig, resources.VariantInstancing)

	require.True(t, ss.Destroy(orig))
	assert.True(t, ss.VariantIsStale(variant))

	// Non-variants are never stale.
	plain := ss.FromSources(vertSrc+"y", fragSrc, "", "plain", "", "")
	assert.False(t, ss.VariantIsStale(plain))
	assert.False(t, ss.VariantIsStale(containers.InvalidHandle()))
}

func TestShaderVariantInfoRejectsDeadOriginal(t *testing.T) {
	ss := newShaderSystem(t)
	variant := ss.FromSources(vertSrc, fragSrc, "", "v", "", "")

	ss.SetVariantInfo(variant, containers.InvalidHandle(), resources.VariantMorphing)
	assert.False(t, ss.Get(variant).IsVariant)
}
