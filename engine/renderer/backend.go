package renderer

import (
	"sync"

	"github.com/spaghettifunk/prisma/engine/resources"
)

/**
 * @brief Ops is the boundary between the resource layer and a concrete
 * graphics backend. GPU object ids are opaque uint32 values; 0 always
 * means failure or "no object". Implementations must be called from the
 * thread that owns the underlying graphics context.
 */
type Ops interface {
	// TextureUpload creates a GPU texture from pixel data, returning its id
	// or 0 on failure.
	TextureUpload(data []byte, width, height, channels int, mipmap, clamp bool) uint32
	// DepthTextureUpload creates a depth texture for shadow maps. When
	// compareMode is set the sampler uses depth comparison.
	DepthTextureUpload(data []float32, width, height int, compareMode bool) uint32
	// TextureBind binds the texture to a texture unit.
	TextureBind(gpuID uint32, unit int)
	// DepthTextureBind binds a depth texture to a texture unit.
	DepthTextureBind(gpuID uint32, unit int)
	// TextureDelete destroys a GPU texture.
	TextureDelete(gpuID uint32)

	// ShaderCompile links a program from stage sources (geometry may be
	// empty), returning its id or 0 on failure.
	ShaderCompile(vertexSource, fragmentSource, geometrySource string) uint32
	// ShaderUse makes the program active.
	ShaderUse(gpuID uint32)
	// ShaderDelete destroys a program.
	ShaderDelete(gpuID uint32)

	// Uniform setters. gpuID must be the active program.
	ShaderSetInt(gpuID uint32, name string, value int32)
	ShaderSetFloat(gpuID uint32, name string, value float32)
	ShaderSetVec2(gpuID uint32, name string, x, y float32)
	ShaderSetVec3(gpuID uint32, name string, x, y, z float32)
	ShaderSetVec4(gpuID uint32, name string, x, y, z, w float32)
	ShaderSetMat4(gpuID uint32, name string, data *[16]float32, transpose bool)
	ShaderSetMat4Array(gpuID uint32, name string, data []float32, transpose bool)
	ShaderSetBlockBinding(gpuID uint32, blockName string, bindingPoint int)

	// MeshUpload creates vertex and index buffers plus a vertex array for
	// the current context, returning all three ids. A zero vao signals
	// failure.
	MeshUpload(vertices []byte, vertexCount int, indices []uint32, layout *resources.VertexLayout) (vao, vbo, ebo uint32)
	// MeshCreateVAO builds a vertex array over buffers that already exist,
	// for contexts sharing buffer storage. Returns 0 on failure.
	MeshCreateVAO(layout *resources.VertexLayout, vbo, ebo uint32) uint32
	// MeshDraw binds the vertex array and issues the draw call.
	MeshDraw(vao uint32, indexCount int, mode resources.DrawMode)
	// MeshDelete destroys a vertex array.
	MeshDelete(vao uint32)
	// BufferDelete destroys a buffer object (vertex, index or uniform).
	BufferDelete(bufferID uint32)
}

// PreprocessFunc rewrites shader source before compilation, typically to
// resolve include directives. sourceName identifies the shader in
// diagnostics. Returning "" keeps the original source.
type PreprocessFunc func(source, sourceName string) string

var (
	opsMu         sync.RWMutex
	activeOps     Ops
	preprocessFn  PreprocessFunc
)

// SetOps installs the backend vtable. Called by the rendering backend
// during initialization; pass nil to detach.
func SetOps(ops Ops) {
	opsMu.Lock()
	activeOps = ops
	opsMu.Unlock()
}

// GetOps returns the installed backend, or nil.
func GetOps() Ops {
	opsMu.RLock()
	defer opsMu.RUnlock()
	return activeOps
}

// Available reports whether a backend is installed.
func Available() bool {
	return GetOps() != nil
}

// SetShaderPreprocess installs the shader source preprocessor.
func SetShaderPreprocess(fn PreprocessFunc) {
	opsMu.Lock()
	preprocessFn = fn
	opsMu.Unlock()
}

func shaderPreprocess() PreprocessFunc {
	opsMu.RLock()
	defer opsMu.RUnlock()
	return preprocessFn
}
