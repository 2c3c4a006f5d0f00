package resources

import (
	"github.com/spaghettifunk/prisma/engine/containers"
)

// LoadFunc populates a declared-but-unloaded resource. The resource
// argument is the concrete struct (*Mesh, *Texture, ...); userData is the
// opaque value stored alongside the callback. Returns true on success.
type LoadFunc func(resource interface{}, userData interface{}) bool

/**
 * @brief Common header shared by every resource kind. Placed as the first
 * (embedded) field so mesh, shader, texture and material follow one
 * lifecycle: created with Version=1 and RefCount=0, Version bumped on any
 * content mutation, destroyed when a release drops RefCount to zero.
 */
type Header struct {
	/** @brief Unique identifier (UUID or content hash, hex encoded). */
	UUID string
	/** @brief Human-readable name (interned; not required to be unique). */
	Name string
	/** @brief Incremented on every data change, compared against cached GPU slot versions. */
	Version uint32
	/** @brief Reference count for ownership. */
	RefCount uint32
	/** @brief Index in the owning resource pool, keys GPU slot tables. */
	PoolIndex uint32
	/** @brief True once the resource data is present. */
	Loaded bool
	/** @brief Callback used for lazy loading; nil when not declared lazy. */
	LoadCallback LoadFunc
	/** @brief Opaque value handed to LoadCallback. */
	LoadUserData interface{}
}

// BumpVersion marks the resource content as changed.
func (h *Header) BumpVersion() {
	h.Version++
}

// SetLoadCallback attaches the lazy-load callback and its context value.
func (h *Header) SetLoadCallback(fn LoadFunc, userData interface{}) {
	h.LoadCallback = fn
	h.LoadUserData = userData
}

// EnsureLoaded invokes the load callback once when the resource is not yet
// loaded. Returns true when the resource is loaded afterwards; a failed
// load leaves the resource unloaded and re-invocable.
func (h *Header) EnsureLoaded(resource interface{}) bool {
	if h.Loaded {
		return true
	}
	if h.LoadCallback == nil {
		return false
	}
	if h.LoadCallback(resource, h.LoadUserData) {
		h.Loaded = true
	}
	return h.Loaded
}

/** @brief Mesh draw primitive. */
type DrawMode uint8

const (
	DrawTriangles DrawMode = iota
	DrawLines
)

/**
 * @brief A mesh resource: raw vertex bytes described by a VertexLayout
 * plus a 32-bit index list.
 */
type Mesh struct {
	Header
	/** @brief Raw vertex data blob, VertexCount * Layout.Stride bytes. */
	Vertices []byte
	/** @brief Number of vertices in the blob. */
	VertexCount int
	/** @brief Indices, 3 per triangle or 2 per line. */
	Indices []uint32
	/** @brief Attribute layout of the vertex blob. */
	Layout VertexLayout
	/** @brief Draw primitive used when rendering. */
	DrawMode DrawMode
}

// VerticesSize returns the vertex blob size in bytes.
func (m *Mesh) VerticesSize() int {
	return m.VertexCount * int(m.Layout.Stride)
}

// IndicesSize returns the index data size in bytes.
func (m *Mesh) IndicesSize() int {
	return len(m.Indices) * 4
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

/** @brief Texture pixel format. */
type TextureFormat uint8

const (
	TextureRGBA8 TextureFormat = iota
	TextureRGB8
	TextureRG8
	TextureR8
	TextureRGBA16F
	TextureRGB16F
	TextureDepth24
)

// BytesPerPixel returns the pixel stride for the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureRGBA8:
		return 4
	case TextureRGB8:
		return 3
	case TextureRG8:
		return 2
	case TextureR8:
		return 1
	case TextureRGBA16F:
		return 8
	case TextureRGB16F:
		return 6
	default:
		return 4
	}
}

// Channels returns the channel count for the format.
func (f TextureFormat) Channels() uint8 {
	switch f {
	case TextureRGBA8, TextureRGBA16F:
		return 4
	case TextureRGB8, TextureRGB16F:
		return 3
	case TextureRG8:
		return 2
	case TextureR8:
		return 1
	default:
		return 4
	}
}

/**
 * @brief A texture resource: a pixel blob with dimensions, format and
 * upload/transform flags.
 */
type Texture struct {
	Header
	/** @brief Raw pixel data blob. */
	Pixels []byte
	Width  uint32
	Height uint32
	/** @brief 1, 2, 3 or 4. */
	Channels uint8
	Format   TextureFormat
	/** @brief Transform flags applied on upload. FlipY defaults true for OpenGL-style backends. */
	FlipX     bool
	FlipY     bool
	Transpose bool
	/** @brief Generate mipmaps on upload. */
	Mipmap bool
	/** @brief Clamp wrapping instead of repeat. */
	Clamp bool
	/** @brief Depth comparison mode for shadow samplers. */
	CompareMode bool
	/** @brief Optional source file path (interned). */
	SourcePath string
}

// DataSize returns the pixel blob size in bytes.
func (t *Texture) DataSize() int {
	return int(t.Width) * int(t.Height) * int(t.Channels)
}

/** @brief Operation a shader variant was derived with. */
type VariantOp uint8

const (
	VariantNone VariantOp = iota
	VariantSkinning
	VariantInstancing
	VariantMorphing
)

/** @brief Shader feature bitflags. */
type ShaderFeature uint32

const (
	ShaderFeatureNone        ShaderFeature = 0
	ShaderFeatureLightingUBO ShaderFeature = 1 << 0
)

/**
 * @brief A shader resource: vertex/fragment (and optional geometry)
 * sources plus a content hash used for deduplication, and optional
 * variant metadata linking back to the shader it was derived from.
 */
type Shader struct {
	Header
	VertexSource   string
	FragmentSource string
	/** @brief May be empty. */
	GeometrySource string
	/** @brief 16 hex chars over the concatenated sources. */
	SourceHash string
	/** @brief Optional source file path (interned). */
	SourcePath string
	/** @brief True when derived from another shader. */
	IsVariant bool
	VariantOp VariantOp
	/** @brief Handle of the original shader, invalid unless IsVariant. */
	OriginalHandle containers.Handle
	/** @brief Version of the original at variant creation, for staleness checks. */
	OriginalVersion uint32
	Features        ShaderFeature
}

// SourceSize returns the total source text size in bytes.
func (s *Shader) SourceSize() int {
	return len(s.VertexSource) + len(s.FragmentSource) + len(s.GeometrySource)
}

// HasGeometry reports whether a geometry stage is present.
func (s *Shader) HasGeometry() bool {
	return s.GeometrySource != ""
}

// HasFeature reports whether the feature bit is set.
func (s *Shader) HasFeature(f ShaderFeature) bool {
	return s.Features&f != 0
}

// SetFeature sets the feature bit.
func (s *Shader) SetFeature(f ShaderFeature) {
	s.Features |= f
}

// ClearFeature clears the feature bit.
func (s *Shader) ClearFeature(f ShaderFeature) {
	s.Features &^= f
}
