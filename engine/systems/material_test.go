package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/resources"
)

func newMaterialFixture(t *testing.T) (*MaterialSystem, *ShaderSystem) {
	t.Helper()
	ss := newShaderSystem(t)
	mts, err := NewMaterialSystem(MaterialSystemConfig{}, ss)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mts.Shutdown() })
	return mts, ss
}

func TestMaterialCreateRequiresName(t *testing.T) {
	mts, _ := newMaterialFixture(t)
	assert.False(t, mts.Create("", "").IsValid())

	h := mts.Create("", "stone")
	require.True(t, h.IsValid())
	assert.Equal(t, "stone", mts.Get(h).Name)
	assert.NotEmpty(t, mts.Get(h).UUID)
}

func TestMaterialPhaseHoldsShaderReference(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	mat := mts.Create("", "stone")

	phase := mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())
	require.NotNil(t, phase)
	assert.Equal(t, uint32(1), ss.Get(shader).RefCount)

	// Destroying the material releases the reference, and with it the
	// otherwise unowned shader.
	require.True(t, mts.Destroy(mat))
	assert.False(t, ss.IsValid(shader))
}

func TestMaterialRemovePhaseReleasesShader(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	ss.AddRef(shader) // caller keeps one reference
	mat := mts.Create("", "stone")
	mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())
	assert.Equal(t, uint32(2), ss.Get(shader).RefCount)

	require.True(t, mts.RemovePhase(mat, 0))
	assert.Empty(t, mts.Get(mat).Phases)
	assert.Equal(t, uint32(1), ss.Get(shader).RefCount)
	assert.True(t, ss.IsValid(shader))
}

func TestMaterialPhaseUniformsAndTextures(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	mat := mts.Create("", "stone")
	m := mts.Get(mat)
	m.ActivePhaseMark = "opaque"

	mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())
	mts.SetUniform(mat, "opaque", resources.UniformValue{
		Name: "roughness", Type: resources.UniformFloat, F: 0.4,
	})

	phase := m.FindPhase("opaque")
	require.NotNil(t, phase)
	u := phase.FindUniform("roughness")
	require.NotNil(t, u)
	assert.Equal(t, float32(0.4), u.F)

	phase.SetColor(1, 0, 0, 1)
	col, ok := phase.Color()
	require.True(t, ok)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, col)

	// Overwrite keeps one entry.
	phase.SetFloat("roughness", 0.9)
	assert.Len(t, phase.Uniforms, 2)
	assert.Equal(t, float32(0.9), phase.FindUniform("roughness").F)
}

func TestMaterialActivePhasesOrderedByPriority(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	mat := mts.Create("", "layered")
	m := mts.Get(mat)
	m.ActivePhaseMark = "opaque"

	p1 := mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())
	p1.Priority = 5
	p2 := mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())
	p2.Priority = 1
	mts.AddPhase(mat, "shadow", shader, resources.RenderStateOpaque())

	phases := m.ActivePhases(nil)
	require.Len(t, phases, 2)
	assert.Equal(t, 1, phases[0].Priority)
	assert.Equal(t, 5, phases[1].Priority)
}

func TestMaterialCopySharesShadersByReference(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	src := mts.Create("", "stone")
	m := mts.Get(src)
	m.ShaderName = "lit"
	m.ActivePhaseMark = "opaque"
	mts.AddPhase(src, "opaque", shader, resources.RenderStateOpaque())

	dst := mts.Copy(src, "")
	require.True(t, dst.IsValid())
	copyMat := mts.Get(dst)
	assert.Equal(t, "stone_copy", copyMat.Name)
	assert.Equal(t, "lit", copyMat.ShaderName)
	assert.Equal(t, "opaque", copyMat.ActivePhaseMark)
	require.Len(t, copyMat.Phases, 1)
	assert.Equal(t, uint32(2), ss.Get(shader).RefCount)

	// Uniforms are deep-copied, not aliased.
	copyMat.Phases[0].SetFloat("roughness", 1)
	assert.Nil(t, mts.Get(src).Phases[0].FindUniform("roughness"))

	// The shader survives until the last material goes.
	mts.Destroy(src)
	assert.True(t, ss.IsValid(shader))
	mts.Destroy(dst)
	assert.False(t, ss.IsValid(shader))
}

func TestMaterialReleaseCascades(t *testing.T) {
	mts, ss := newMaterialFixture(t)

	shader := ss.FromSources(vertSrc, fragSrc, "", "lit", "", "")
	mat := mts.Create("mat-a", "stone")
	mts.AddPhase(mat, "opaque", shader, resources.RenderStateOpaque())

	mts.AddRef(mat)
	mts.AddRef(mat)
	assert.False(t, mts.Release(mat))
	assert.True(t, mts.Release(mat))
	assert.False(t, mts.IsValid(mat))
	assert.False(t, mts.Contains("mat-a"))
	assert.False(t, ss.IsValid(shader))
}

func TestTextureSystemDedupAndTransforms(t *testing.T) {
	ts, err := NewTextureSystem(TextureSystemConfig{})
	require.NoError(t, err)
	defer func() { _ = ts.Shutdown() }()

	pixels := make([]byte, 2*2*4)
	h1, err := ts.CreateFromPixels(pixels, 2, 2, 4, "blank", "")
	require.NoError(t, err)
	h2, err := ts.CreateFromPixels(pixels, 2, 2, 4, "blank-again", "")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, ts.Count())

	tex := ts.Get(h1)
	assert.True(t, tex.FlipY)
	v := tex.Version
	ts.SetTransforms(h1, true, false, true)
	assert.True(t, tex.FlipX)
	assert.False(t, tex.FlipY)
	assert.True(t, tex.Transpose)
	assert.Equal(t, v+1, tex.Version)
}

func TestTextureLazyLoad(t *testing.T) {
	ts, err := NewTextureSystem(TextureSystemConfig{})
	require.NoError(t, err)
	defer func() { _ = ts.Shutdown() }()

	h := ts.Declare("tex-lazy", "deferred")
	assert.False(t, ts.IsLoaded(h))

	ts.SetLoadCallback(h, func(res interface{}, userData interface{}) bool {
		return ts.SetData(h, make([]byte, 4*4*4), 4, 4, 4, "deferred", "albedo.png")
	}, nil)
	assert.True(t, ts.EnsureLoaded(h))
	assert.True(t, ts.IsLoaded(h))
	assert.Equal(t, uint32(4), ts.Get(h).Width)
	assert.Equal(t, "albedo.png", ts.Get(h).SourcePath)
}
