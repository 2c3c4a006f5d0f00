package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/resources"
)

// recordingOps is a fake backend that hands out sequential ids and
// counts every call, so tests can assert on the exact GPU traffic.
type recordingOps struct {
	nextID uint32

	textureUploads  int
	depthUploads    int
	textureBinds    int
	depthBinds      int
	textureDeletes  int
	shaderCompiles  int
	shaderUses      int
	shaderDeletes   int
	uniformSets     int
	meshUploads     int
	meshDraws       int
	meshDeletes     int
	vaoCreates      int
	bufferDeletes   int
	deletedBuffers  []uint32
	deletedTextures []uint32

	failTexture bool
	failShader  bool
	failMesh    bool
	failVAO     bool
}

func newRecordingOps() *recordingOps {
	return &recordingOps{nextID: 100}
}

func (r *recordingOps) id() uint32 {
	r.nextID++
	return r.nextID
}

func (r *recordingOps) TextureUpload(data []byte, w, h, channels int, mipmap, clamp bool) uint32 {
	if r.failTexture {
		return 0
	}
	r.textureUploads++
	return r.id()
}

func (r *recordingOps) DepthTextureUpload(data []float32, w, h int, compareMode bool) uint32 {
	if r.failTexture {
		return 0
	}
	r.depthUploads++
	return r.id()
}

func (r *recordingOps) TextureBind(gpuID uint32, unit int)      { r.textureBinds++ }
func (r *recordingOps) DepthTextureBind(gpuID uint32, unit int) { r.depthBinds++ }

func (r *recordingOps) TextureDelete(gpuID uint32) {
	r.textureDeletes++
	r.deletedTextures = append(r.deletedTextures, gpuID)
}

func (r *recordingOps) ShaderCompile(v, f, g string) uint32 {
	if r.failShader {
		return 0
	}
	r.shaderCompiles++
	return r.id()
}

func (r *recordingOps) ShaderUse(gpuID uint32)    { r.shaderUses++ }
func (r *recordingOps) ShaderDelete(gpuID uint32) { r.shaderDeletes++ }

func (r *recordingOps) ShaderSetInt(gpuID uint32, name string, value int32)        { r.uniformSets++ }
func (r *recordingOps) ShaderSetFloat(gpuID uint32, name string, value float32)    { r.uniformSets++ }
func (r *recordingOps) ShaderSetVec2(gpuID uint32, name string, x, y float32)      { r.uniformSets++ }
func (r *recordingOps) ShaderSetVec3(gpuID uint32, name string, x, y, z float32)   { r.uniformSets++ }
func (r *recordingOps) ShaderSetVec4(gpuID uint32, name string, x, y, z, w float32) {
	r.uniformSets++
}
func (r *recordingOps) ShaderSetMat4(gpuID uint32, name string, data *[16]float32, transpose bool) {
	r.uniformSets++
}
func (r *recordingOps) ShaderSetMat4Array(gpuID uint32, name string, data []float32, transpose bool) {
	r.uniformSets++
}
func (r *recordingOps) ShaderSetBlockBinding(gpuID uint32, blockName string, bindingPoint int) {
	r.uniformSets++
}

func (r *recordingOps) MeshUpload(vertices []byte, vertexCount int, indices []uint32, layout *resources.VertexLayout) (uint32, uint32, uint32) {
	if r.failMesh {
		return 0, 0, 0
	}
	r.meshUploads++
	return r.id(), r.id(), r.id()
}

func (r *recordingOps) MeshCreateVAO(layout *resources.VertexLayout, vbo, ebo uint32) uint32 {
	if r.failVAO {
		return 0
	}
	r.vaoCreates++
	return r.id()
}

func (r *recordingOps) MeshDraw(vao uint32, indexCount int, mode resources.DrawMode) { r.meshDraws++ }
func (r *recordingOps) MeshDelete(vao uint32)                                        { r.meshDeletes++ }

func (r *recordingOps) BufferDelete(bufferID uint32) {
	r.bufferDeletes++
	r.deletedBuffers = append(r.deletedBuffers, bufferID)
}

var testKeyCounter int

func testKey() string {
	testKeyCounter++
	return fmt.Sprintf("test-ctx-%d", testKeyCounter)
}

func setupContext(t *testing.T) (*recordingOps, *Context) {
	t.Helper()
	ops := newRecordingOps()
	SetOps(ops)
	t.Cleanup(func() { SetOps(nil) })

	ctx, err := NewContext(testKey(), nil)
	require.NoError(t, err)
	t.Cleanup(ctx.Destroy)
	return ops, ctx
}

func testTexture(index uint32) *resources.Texture {
	t := &resources.Texture{
		Pixels:   make([]byte, 2*2*4),
		Width:    2,
		Height:   2,
		Channels: 4,
	}
	t.UUID = fmt.Sprintf("tex-%d", index)
	t.Version = 1
	t.PoolIndex = index
	return t
}

func testShader(index uint32) *resources.Shader {
	s := &resources.Shader{
		VertexSource:   "void main() {}",
		FragmentSource: "void main() {}",
	}
	s.UUID = fmt.Sprintf("shader-%d", index)
	s.Version = 1
	s.PoolIndex = index
	return s
}

func testMesh(index uint32) *resources.Mesh {
	layout := resources.LayoutPos()
	m := &resources.Mesh{
		Vertices:    make([]byte, 3*int(layout.Stride)),
		VertexCount: 3,
		Indices:     []uint32{0, 1, 2},
		Layout:      layout,
	}
	m.UUID = fmt.Sprintf("mesh-%d", index)
	m.Version = 1
	m.PoolIndex = index
	return m
}

func TestTextureUploadCachesByVersion(t *testing.T) {
	ops, ctx := setupContext(t)
	tex := testTexture(0)

	assert.True(t, ctx.TextureNeedsUpload(tex))
	require.True(t, ctx.UploadTexture(tex))
	assert.Equal(t, 1, ops.textureUploads)
	assert.False(t, ctx.TextureNeedsUpload(tex))

	// Same version: cached, no traffic.
	require.True(t, ctx.UploadTexture(tex))
	assert.Equal(t, 1, ops.textureUploads)
	assert.Equal(t, 0, ops.textureDeletes)

	// New version: exactly one delete and one upload.
	tex.BumpVersion()
	assert.True(t, ctx.TextureNeedsUpload(tex))
	require.True(t, ctx.UploadTexture(tex))
	assert.Equal(t, 2, ops.textureUploads)
	assert.Equal(t, 1, ops.textureDeletes)
}

func TestTextureUploadFailureIsNotCached(t *testing.T) {
	ops, ctx := setupContext(t)
	tex := testTexture(0)

	ops.failTexture = true
	assert.False(t, ctx.UploadTexture(tex))
	assert.True(t, ctx.TextureNeedsUpload(tex))
	assert.Equal(t, uint32(0), ctx.TextureSlot(tex.PoolIndex).ID)

	// Recovery on the next attempt.
	ops.failTexture = false
	assert.True(t, ctx.UploadTexture(tex))
	assert.False(t, ctx.TextureNeedsUpload(tex))
}

func TestDepthTextureUsesDepthPath(t *testing.T) {
	ops, ctx := setupContext(t)
	tex := testTexture(0)
	tex.Format = resources.TextureDepth24
	tex.Pixels = make([]byte, 2*2*4)
	tex.CompareMode = true

	require.True(t, ctx.BindTexture(tex, 3))
	assert.Equal(t, 1, ops.depthUploads)
	assert.Equal(t, 0, ops.textureUploads)
	assert.Equal(t, 1, ops.depthBinds)
	assert.Equal(t, 0, ops.textureBinds)
}

func TestBindTextureUploadsLazily(t *testing.T) {
	ops, ctx := setupContext(t)
	tex := testTexture(0)

	require.True(t, ctx.BindTexture(tex, 0))
	require.True(t, ctx.BindTexture(tex, 1))
	assert.Equal(t, 1, ops.textureUploads)
	assert.Equal(t, 2, ops.textureBinds)
}

func TestDeleteTextureResetsSlot(t *testing.T) {
	ops, ctx := setupContext(t)
	tex := testTexture(0)

	require.True(t, ctx.UploadTexture(tex))
	ctx.DeleteTextureGPU(tex)
	assert.Equal(t, 1, ops.textureDeletes)

	slot := ctx.TextureSlot(tex.PoolIndex)
	assert.Equal(t, uint32(0), slot.ID)
	assert.Equal(t, int32(-1), slot.Version)
	assert.True(t, ctx.TextureNeedsUpload(tex))
}

func TestShaderCompileCachesByVersion(t *testing.T) {
	ops, ctx := setupContext(t)
	s := testShader(0)

	program := ctx.CompileShader(s)
	require.NotZero(t, program)
	assert.Equal(t, program, ctx.CompileShader(s))
	assert.Equal(t, 1, ops.shaderCompiles)

	s.BumpVersion()
	recompiled := ctx.CompileShader(s)
	require.NotZero(t, recompiled)
	assert.NotEqual(t, program, recompiled)
	assert.Equal(t, 2, ops.shaderCompiles)
	assert.Equal(t, 1, ops.shaderDeletes)
}

func TestUseShaderCompilesOnDemand(t *testing.T) {
	ops, ctx := setupContext(t)
	s := testShader(0)

	ctx.UseShader(s)
	assert.Equal(t, 1, ops.shaderCompiles)
	assert.Equal(t, 1, ops.shaderUses)

	ctx.UseShader(s)
	assert.Equal(t, 1, ops.shaderCompiles)
	assert.Equal(t, 2, ops.shaderUses)
}

func TestShaderCompileFailureIsNotCached(t *testing.T) {
	ops, ctx := setupContext(t)
	s := testShader(0)

	ops.failShader = true
	assert.Zero(t, ctx.CompileShader(s))
	assert.Equal(t, uint32(0), ctx.ShaderSlot(s.PoolIndex).ID)

	ops.failShader = false
	assert.NotZero(t, ctx.CompileShader(s))
}

func TestShaderMissingSourcesFails(t *testing.T) {
	_, ctx := setupContext(t)
	s := testShader(0)
	s.FragmentSource = ""
	assert.Zero(t, ctx.CompileShader(s))
}

func TestUniformSettersRequireCompiledProgram(t *testing.T) {
	ops, ctx := setupContext(t)
	s := testShader(0)

	// No program yet: silently dropped.
	ctx.SetFloat(s, "x", 1)
	assert.Equal(t, 0, ops.uniformSets)

	require.NotZero(t, ctx.CompileShader(s))
	ctx.SetFloat(s, "x", 1)
	ctx.SetInt(s, "n", 2)
	ctx.SetVec3(s, "v", 1, 2, 3)
	var m [16]float32
	ctx.SetMat4(s, "m", &m, false)
	ctx.SetBlockBinding(s, "Lights", 1)
	assert.Equal(t, 5, ops.uniformSets)
}

func TestShaderPreprocessorRunsOnInclude(t *testing.T) {
	ops, ctx := setupContext(t)

	calls := 0
	SetShaderPreprocess(func(source, name string) string {
		calls++
		return "// resolved\n" + source
	})
	defer SetShaderPreprocess(nil)

	s := testShader(0)
	s.VertexSource = `#include "common.glsl"` + "\nvoid main() {}"
	require.NotZero(t, ctx.CompileShader(s))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ops.shaderCompiles)

	// No includes: preprocessor is skipped.
	s2 := testShader(1)
	require.NotZero(t, ctx.CompileShader(s2))
	assert.Equal(t, 1, calls)
}

func TestMeshUploadCachesByVersion(t *testing.T) {
	ops, ctx := setupContext(t)
	m := testMesh(0)

	vao := ctx.UploadMesh(m)
	require.NotZero(t, vao)
	assert.Equal(t, 1, ops.meshUploads)

	assert.Equal(t, vao, ctx.UploadMesh(m))
	assert.Equal(t, 1, ops.meshUploads)

	shared := ctx.MeshDataSlot(m.PoolIndex)
	assert.NotZero(t, shared.VBO)
	assert.NotZero(t, shared.EBO)
	assert.Equal(t, int32(1), shared.Version)
}

func TestMeshVersionBumpReplacesBuffersAndVAO(t *testing.T) {
	ops, ctx := setupContext(t)
	m := testMesh(0)

	require.NotZero(t, ctx.UploadMesh(m))
	shared := ctx.MeshDataSlot(m.PoolIndex)
	oldVBO, oldEBO := shared.VBO, shared.EBO

	m.BumpVersion()
	require.NotZero(t, ctx.UploadMesh(m))
	assert.Equal(t, 2, ops.meshUploads)
	assert.Equal(t, 1, ops.meshDeletes)
	assert.Equal(t, 2, ops.bufferDeletes)
	assert.Contains(t, ops.deletedBuffers, oldVBO)
	assert.Contains(t, ops.deletedBuffers, oldEBO)

	shared = ctx.MeshDataSlot(m.PoolIndex)
	assert.NotEqual(t, oldVBO, shared.VBO)
	assert.Equal(t, int32(2), shared.Version)
}

func TestMeshUploadFailureIsNotCached(t *testing.T) {
	ops, ctx := setupContext(t)
	m := testMesh(0)

	ops.failMesh = true
	assert.Zero(t, ctx.UploadMesh(m))
	assert.Equal(t, uint32(0), ctx.MeshDataSlot(m.PoolIndex).VBO)
	assert.Equal(t, uint32(0), ctx.VAOSlot(m.PoolIndex).VAO)

	ops.failMesh = false
	assert.NotZero(t, ctx.UploadMesh(m))
}

func TestSecondContextSharesBuffersButNotVAO(t *testing.T) {
	ops, ctx1 := setupContext(t)

	ctx2, err := NewContext(testKey(), ctx1.Group())
	require.NoError(t, err)
	t.Cleanup(ctx2.Destroy)

	m := testMesh(0)
	vao1 := ctx1.UploadMesh(m)
	require.NotZero(t, vao1)

	// Second context reuses the shared buffers: a vertex array build,
	// not a second data upload.
	vao2 := ctx2.UploadMesh(m)
	require.NotZero(t, vao2)
	assert.NotEqual(t, vao1, vao2)
	assert.Equal(t, 1, ops.meshUploads)
	assert.Equal(t, 1, ops.vaoCreates)

	shared := ctx1.MeshDataSlot(m.PoolIndex)
	assert.Equal(t, shared.VBO, ctx1.VAOSlot(m.PoolIndex).BoundVBO)
	assert.Equal(t, shared.VBO, ctx2.VAOSlot(m.PoolIndex).BoundVBO)
}

func TestStaleVAODetectedAcrossContexts(t *testing.T) {
	ops, ctx1 := setupContext(t)

	ctx2, err := NewContext(testKey(), ctx1.Group())
	require.NoError(t, err)
	t.Cleanup(ctx2.Destroy)

	m := testMesh(0)
	require.NotZero(t, ctx1.UploadMesh(m))
	require.NotZero(t, ctx2.UploadMesh(m))

	// ctx1 re-uploads after an edit; ctx2's vertex array now points at
	// deleted buffers.
	m.BumpVersion()
	require.NotZero(t, ctx1.UploadMesh(m))
	assert.Equal(t, 2, ops.meshUploads)

	vaoBefore := ctx2.VAOSlot(m.PoolIndex).VAO
	ctx2.DrawMesh(m)
	assert.Equal(t, 2, ops.meshUploads, "data already current, no re-upload")
	assert.Equal(t, 2, ops.vaoCreates, "stale vertex array rebuilt")
	assert.NotEqual(t, vaoBefore, ctx2.VAOSlot(m.PoolIndex).VAO)
	assert.Equal(t, 1, ops.meshDraws)

	shared := ctx1.MeshDataSlot(m.PoolIndex)
	assert.Equal(t, shared.VBO, ctx2.VAOSlot(m.PoolIndex).BoundVBO)
	assert.Equal(t, shared.EBO, ctx2.VAOSlot(m.PoolIndex).BoundEBO)
}

func TestDrawMeshUploadsOnDemand(t *testing.T) {
	ops, ctx := setupContext(t)
	m := testMesh(0)

	ctx.DrawMesh(m)
	assert.Equal(t, 1, ops.meshUploads)
	assert.Equal(t, 1, ops.meshDraws)

	ctx.DrawMesh(m)
	assert.Equal(t, 1, ops.meshUploads)
	assert.Equal(t, 2, ops.meshDraws)
}

func TestDeleteMeshResetsSharedAndLocalState(t *testing.T) {
	ops, ctx := setupContext(t)
	m := testMesh(0)

	require.NotZero(t, ctx.UploadMesh(m))
	ctx.DeleteMeshGPU(m)
	assert.Equal(t, 1, ops.meshDeletes)
	assert.Equal(t, 2, ops.bufferDeletes)

	shared := ctx.MeshDataSlot(m.PoolIndex)
	assert.Equal(t, uint32(0), shared.VBO)
	assert.Equal(t, int32(-1), shared.Version)
	assert.Equal(t, uint32(0), ctx.VAOSlot(m.PoolIndex).VAO)
}

func TestShareGroupUnrefDeletesEverything(t *testing.T) {
	ops := newRecordingOps()
	SetOps(ops)
	defer SetOps(nil)

	ctx, err := NewContext(testKey(), nil)
	require.NoError(t, err)
	groups := ShareGroupCount()

	require.True(t, ctx.UploadTexture(testTexture(0)))
	require.NotZero(t, ctx.CompileShader(testShader(0)))
	require.NotZero(t, ctx.UploadMesh(testMesh(0)))

	ctx.Destroy()
	assert.Equal(t, groups-1, ShareGroupCount())
	assert.Equal(t, 1, ops.textureDeletes)
	assert.Equal(t, 1, ops.shaderDeletes)
	assert.Equal(t, 1, ops.meshDeletes)
	assert.Equal(t, 2, ops.bufferDeletes)
}

func TestShareGroupSurvivesFirstContext(t *testing.T) {
	ops := newRecordingOps()
	SetOps(ops)
	defer SetOps(nil)

	ctx1, err := NewContext(testKey(), nil)
	require.NoError(t, err)
	ctx2, err := NewContext(testKey(), ctx1.Group())
	require.NoError(t, err)

	m := testMesh(0)
	require.NotZero(t, ctx1.UploadMesh(m))
	require.NotZero(t, ctx2.UploadMesh(m))

	// First context goes: only its vertex array dies, the shared
	// buffers stay for ctx2.
	ctx1.Destroy()
	assert.Equal(t, 1, ops.meshDeletes)
	assert.Equal(t, 0, ops.bufferDeletes)

	ctx2.Destroy()
	assert.Equal(t, 2, ops.meshDeletes)
	assert.Equal(t, 2, ops.bufferDeletes)
}

func TestSharedKeyJoinsExistingGroup(t *testing.T) {
	key := testKey()

	g1, err := GetOrCreateShareGroup(key)
	require.NoError(t, err)
	g2, err := GetOrCreateShareGroup(key)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, 2, g1.RefCount())

	g2.Unref()
	g1.Unref()
}

func TestCurrentContextConvenience(t *testing.T) {
	_, ctx := setupContext(t)

	MakeCurrent(ctx)
	assert.Same(t, ctx, Current())

	// Destroy clears the current pointer so nothing dangles.
	ctx2, err := NewContext(testKey(), nil)
	require.NoError(t, err)
	MakeCurrent(ctx2)
	ctx2.Destroy()
	assert.Nil(t, Current())
}
