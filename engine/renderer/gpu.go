package renderer

import (
	"encoding/binary"
	stdmath "math"
	"strings"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/resources"
)

func float32FromBlob(b []byte) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func resourceLabel(h *resources.Header) string {
	if h.Name != "" {
		return h.Name
	}
	return h.UUID
}

// depthPixels reinterprets a depth texture blob as float32 samples.
func depthPixels(t *resources.Texture) []float32 {
	out := make([]float32, int(t.Width)*int(t.Height))
	for i := range out {
		if (i+1)*4 <= len(t.Pixels) {
			out[i] = float32FromBlob(t.Pixels[i*4:])
		}
	}
	return out
}

// ============================================================================
// Texture operations
// ============================================================================

// TextureNeedsUpload reports whether the texture has no GPU object in
// this context's share group or the cached one was built from an older
// version.
func (c *Context) TextureNeedsUpload(t *resources.Texture) bool {
	if t == nil {
		return false
	}
	slot := c.TextureSlot(t.PoolIndex)
	return slot.ID == 0 || slot.Version != int32(t.Version)
}

// UploadTexture makes the shared GPU texture current with the resource
// data. A current slot is a no-op; a stale one is deleted and rebuilt. A
// failed backend upload leaves the slot untouched so the next call
// retries.
func (c *Context) UploadTexture(t *resources.Texture) bool {
	if t == nil || len(t.Pixels) == 0 {
		return false
	}
	ops := GetOps()
	if ops == nil {
		core.LogError("texture upload: no backend installed")
		return false
	}

	slot := c.TextureSlot(t.PoolIndex)
	if slot.ID != 0 && slot.Version == int32(t.Version) {
		return true
	}
	if slot.ID != 0 {
		ops.TextureDelete(slot.ID)
	}

	var gpuID uint32
	if t.Format == resources.TextureDepth24 {
		gpuID = ops.DepthTextureUpload(depthPixels(t), int(t.Width), int(t.Height), t.CompareMode)
	} else {
		gpuID = ops.TextureUpload(t.Pixels, int(t.Width), int(t.Height), int(t.Channels), t.Mipmap, t.Clamp)
	}
	if gpuID == 0 {
		core.LogError("texture upload failed for '%s'", resourceLabel(&t.Header))
		return false
	}

	slot.ID = gpuID
	slot.Version = int32(t.Version)
	return true
}

// BindTexture binds the texture to a unit, uploading first when needed.
func (c *Context) BindTexture(t *resources.Texture, unit int) bool {
	if t == nil {
		return false
	}
	ops := GetOps()
	if ops == nil {
		core.LogError("texture bind: no backend installed")
		return false
	}
	if c.TextureNeedsUpload(t) {
		if !c.UploadTexture(t) {
			return false
		}
	}
	gpuID := c.TextureSlot(t.PoolIndex).ID
	if gpuID == 0 {
		return false
	}
	if t.Format == resources.TextureDepth24 {
		ops.DepthTextureBind(gpuID, unit)
	} else {
		ops.TextureBind(gpuID, unit)
	}
	return true
}

// DeleteTextureGPU destroys the shared GPU texture and resets the slot to
// the never-uploaded state.
func (c *Context) DeleteTextureGPU(t *resources.Texture) {
	if t == nil {
		return
	}
	ops := GetOps()
	slot := c.TextureSlot(t.PoolIndex)
	if slot.ID != 0 && ops != nil {
		ops.TextureDelete(slot.ID)
	}
	slot.ID = 0
	slot.Version = -1
}

// ============================================================================
// Shader operations
// ============================================================================

// CompileShader makes the shared program current with the shader sources
// and returns its id. An up-to-date slot returns the cached id; a stale
// program is deleted and recompiled. Sources containing include
// directives pass through the installed preprocessor first. Returns 0 on
// failure without caching anything.
func (c *Context) CompileShader(s *resources.Shader) uint32 {
	if s == nil {
		return 0
	}
	ops := GetOps()
	if ops == nil {
		core.LogError("shader compile: no backend installed")
		return 0
	}

	slot := c.ShaderSlot(s.PoolIndex)
	if slot.ID != 0 && slot.Version == int32(s.Version) {
		return slot.ID
	}
	if s.VertexSource == "" || s.FragmentSource == "" {
		core.LogError("shader compile: missing sources for '%s'", resourceLabel(&s.Header))
		return 0
	}
	if slot.ID != 0 {
		ops.ShaderDelete(slot.ID)
	}

	vertexSrc := s.VertexSource
	fragmentSrc := s.FragmentSource
	geometrySrc := s.GeometrySource
	if pre := shaderPreprocess(); pre != nil {
		label := resourceLabel(&s.Header)
		if strings.Contains(vertexSrc, "#include") {
			if out := pre(vertexSrc, label); out != "" {
				vertexSrc = out
			}
		}
		if strings.Contains(fragmentSrc, "#include") {
			if out := pre(fragmentSrc, label); out != "" {
				fragmentSrc = out
			}
		}
		if geometrySrc != "" && strings.Contains(geometrySrc, "#include") {
			if out := pre(geometrySrc, label); out != "" {
				geometrySrc = out
			}
		}
	}

	program := ops.ShaderCompile(vertexSrc, fragmentSrc, geometrySrc)
	if program == 0 {
		core.LogError("shader compile failed for '%s'", resourceLabel(&s.Header))
		return 0
	}

	slot.ID = program
	slot.Version = int32(s.Version)
	return program
}

// UseShader activates the shader's program, compiling first when the
// cached program is missing or stale.
func (c *Context) UseShader(s *resources.Shader) {
	if s == nil {
		return
	}
	ops := GetOps()
	if ops == nil {
		return
	}
	slot := c.ShaderSlot(s.PoolIndex)
	program := slot.ID
	if program == 0 || slot.Version != int32(s.Version) {
		program = c.CompileShader(s)
		if program == 0 {
			return
		}
	}
	ops.ShaderUse(program)
}

// DeleteShaderGPU destroys the shared program and resets the slot to the
// never-compiled state.
func (c *Context) DeleteShaderGPU(s *resources.Shader) {
	if s == nil {
		return
	}
	ops := GetOps()
	slot := c.ShaderSlot(s.PoolIndex)
	if slot.ID != 0 && ops != nil {
		ops.ShaderDelete(slot.ID)
	}
	slot.ID = 0
	slot.Version = -1
}

func (c *Context) shaderProgram(s *resources.Shader) uint32 {
	if s == nil {
		return 0
	}
	return c.ShaderSlot(s.PoolIndex).ID
}

// SetInt sets an int uniform on the shader's current program. A shader
// with no compiled program is a no-op.
func (c *Context) SetInt(s *resources.Shader, name string, value int32) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetInt(program, name, value)
	}
}

// SetFloat sets a float uniform.
func (c *Context) SetFloat(s *resources.Shader, name string, value float32) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetFloat(program, name, value)
	}
}

// SetVec2 sets a vec2 uniform.
func (c *Context) SetVec2(s *resources.Shader, name string, x, y float32) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetVec2(program, name, x, y)
	}
}

// SetVec3 sets a vec3 uniform.
func (c *Context) SetVec3(s *resources.Shader, name string, x, y, z float32) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetVec3(program, name, x, y, z)
	}
}

// SetVec4 sets a vec4 uniform.
func (c *Context) SetVec4(s *resources.Shader, name string, x, y, z, w float32) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetVec4(program, name, x, y, z, w)
	}
}

// SetMat4 sets a mat4 uniform.
func (c *Context) SetMat4(s *resources.Shader, name string, data *[16]float32, transpose bool) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetMat4(program, name, data, transpose)
	}
}

// SetMat4Array sets a mat4 array uniform, 16 floats per element.
func (c *Context) SetMat4Array(s *resources.Shader, name string, data []float32, transpose bool) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetMat4Array(program, name, data, transpose)
	}
}

// SetBlockBinding binds a uniform block to a binding point.
func (c *Context) SetBlockBinding(s *resources.Shader, blockName string, bindingPoint int) {
	program := c.shaderProgram(s)
	if program == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.ShaderSetBlockBinding(program, blockName, bindingPoint)
	}
}

// ============================================================================
// Mesh operations
// ============================================================================

// UploadMesh makes the mesh drawable in this context and returns the
// vertex array id, or 0 on failure. The shared buffers and the
// per-context vertex array are reconciled independently:
//
// Shared buffers current, vertex array bound over them: cached id.
// Shared buffers current, vertex array missing or built over older
// buffers: the stale vertex array is deleted and a new one is created
// over the existing shared buffers, without re-sending mesh data.
// Shared buffers missing or stale: the vertex array and the old buffers
// are deleted and the mesh data is uploaded in full; the new buffer ids
// and version land in the shared slot, the vertex array in this context.
func (c *Context) UploadMesh(m *resources.Mesh) uint32 {
	if m == nil || len(m.Vertices) == 0 {
		return 0
	}
	ops := GetOps()
	if ops == nil {
		core.LogError("mesh upload: no backend installed")
		return 0
	}

	shared := c.MeshDataSlot(m.PoolIndex)
	vaoSlot := c.VAOSlot(m.PoolIndex)

	dataCurrent := shared.VBO != 0 && shared.Version == int32(m.Version)
	if dataCurrent {
		if vaoSlot.VAO != 0 && vaoSlot.BoundVBO == shared.VBO && vaoSlot.BoundEBO == shared.EBO {
			return vaoSlot.VAO
		}
		if vaoSlot.VAO != 0 {
			ops.MeshDelete(vaoSlot.VAO)
		}
		vao := ops.MeshCreateVAO(&m.Layout, shared.VBO, shared.EBO)
		if vao == 0 {
			core.LogError("mesh vertex array creation failed for '%s'", resourceLabel(&m.Header))
			return 0
		}
		vaoSlot.VAO = vao
		vaoSlot.BoundVBO = shared.VBO
		vaoSlot.BoundEBO = shared.EBO
		return vao
	}

	// First upload or version change. Tear down the per-context vertex
	// array and the old shared buffers before re-uploading.
	if vaoSlot.VAO != 0 {
		ops.MeshDelete(vaoSlot.VAO)
		vaoSlot.VAO = 0
		vaoSlot.BoundVBO = 0
		vaoSlot.BoundEBO = 0
	}
	if shared.VBO != 0 {
		ops.BufferDelete(shared.VBO)
	}
	if shared.EBO != 0 {
		ops.BufferDelete(shared.EBO)
	}
	shared.VBO = 0
	shared.EBO = 0

	vao, vbo, ebo := ops.MeshUpload(m.Vertices, m.VertexCount, m.Indices, &m.Layout)
	if vao == 0 {
		core.LogError("mesh upload failed for '%s'", resourceLabel(&m.Header))
		return 0
	}

	shared.VBO = vbo
	shared.EBO = ebo
	shared.Version = int32(m.Version)

	vaoSlot.VAO = vao
	vaoSlot.BoundVBO = vbo
	vaoSlot.BoundEBO = ebo
	return vao
}

// DrawMesh draws the mesh, reconciling shared buffers and the
// per-context vertex array first when either is stale.
func (c *Context) DrawMesh(m *resources.Mesh) {
	if m == nil {
		return
	}

	shared := c.MeshDataSlot(m.PoolIndex)
	vaoSlot := c.VAOSlot(m.PoolIndex)

	dataStale := shared.VBO == 0 || shared.Version != int32(m.Version)
	if dataStale || vaoSlot.VAO == 0 ||
		vaoSlot.BoundVBO != shared.VBO || vaoSlot.BoundEBO != shared.EBO {
		if c.UploadMesh(m) == 0 {
			return
		}
	}

	vao := vaoSlot.VAO
	if vao == 0 {
		return
	}
	if ops := GetOps(); ops != nil {
		ops.MeshDraw(vao, len(m.Indices), m.DrawMode)
	}
}

// DeleteMeshGPU destroys this context's vertex array and the shared
// buffers for the mesh, resetting both slots. Vertex arrays held by other
// contexts in the group become stale and are cleaned up when those
// contexts next touch the mesh or are destroyed.
func (c *Context) DeleteMeshGPU(m *resources.Mesh) {
	if m == nil {
		return
	}
	ops := GetOps()

	vaoSlot := c.VAOSlot(m.PoolIndex)
	if vaoSlot.VAO != 0 && ops != nil {
		ops.MeshDelete(vaoSlot.VAO)
	}
	vaoSlot.VAO = 0
	vaoSlot.BoundVBO = 0
	vaoSlot.BoundEBO = 0

	shared := c.MeshDataSlot(m.PoolIndex)
	if ops != nil {
		if shared.VBO != 0 {
			ops.BufferDelete(shared.VBO)
		}
		if shared.EBO != 0 {
			ops.BufferDelete(shared.EBO)
		}
	}
	shared.VBO = 0
	shared.EBO = 0
	shared.Version = -1
}
