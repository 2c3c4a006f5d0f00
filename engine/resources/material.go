package resources

import (
	"github.com/spaghettifunk/prisma/engine/containers"
)

/** @brief Polygon rasterization mode. */
type PolygonMode uint8

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

/** @brief Face culling mode. */
type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

/** @brief Blend factor. */
type BlendFactor uint8

const (
	BlendOne BlendFactor = iota
	BlendZero
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

/** @brief Depth comparison function. */
type DepthFunc uint8

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthEqual
	DepthAlways
)

/** @brief Fixed-function pipeline state for a material phase. */
type RenderState struct {
	Polygon    PolygonMode
	Cull       CullMode
	DepthTest  bool
	DepthWrite bool
	Depth      DepthFunc
	Blend      bool
	BlendSrc   BlendFactor
	BlendDst   BlendFactor
}

// RenderStateOpaque returns the default opaque state: fill, back-face
// culling, depth test and write, no blending.
func RenderStateOpaque() RenderState {
	return RenderState{
		Polygon:    PolygonFill,
		Cull:       CullBack,
		DepthTest:  true,
		DepthWrite: true,
		Depth:      DepthLess,
	}
}

// RenderStateTransparent returns the alpha-blended state: depth test
// without depth write, standard src-alpha blending.
func RenderStateTransparent() RenderState {
	return RenderState{
		Polygon:    PolygonFill,
		Cull:       CullBack,
		DepthTest:  true,
		DepthWrite: false,
		Depth:      DepthLess,
		Blend:      true,
		BlendSrc:   BlendSrcAlpha,
		BlendDst:   BlendOneMinusSrcAlpha,
	}
}

// RenderStateWireframe returns the line-polygon debug state with culling
// disabled.
func RenderStateWireframe() RenderState {
	return RenderState{
		Polygon:    PolygonLine,
		Cull:       CullNone,
		DepthTest:  true,
		DepthWrite: true,
		Depth:      DepthLess,
	}
}

/** @brief Type tag of a uniform value. */
type UniformType uint8

const (
	UniformBool UniformType = iota
	UniformInt
	UniformFloat
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat4
	UniformFloatArray
)

/**
 * @brief A named uniform value. The field matching Type holds the value;
 * the others are ignored.
 */
type UniformValue struct {
	Name string
	Type UniformType
	I    int32
	F    float32
	V2   [2]float32
	V3   [3]float32
	V4   [4]float32
	M4   [16]float32
	/** @brief Backing storage for UniformFloatArray. */
	Array []float32
}

/** @brief A named texture slot referencing a texture by handle. */
type TextureBinding struct {
	Name    string
	Texture containers.Handle
}

const (
	/** @brief Maximum phases per material. */
	MaxMaterialPhases = 8
	/** @brief Maximum uniforms per phase. */
	MaxPhaseUniforms = 32
	/** @brief Maximum texture bindings per phase. */
	MaxPhaseTextures = 16
)

/**
 * @brief One render pass of a material: a shader, a pipeline state and the
 * uniform and texture bindings fed to that shader. Phases are selected by
 * mark and ordered by priority.
 */
type MaterialPhase struct {
	/** @brief Shader handle; the material holds a reference on it. */
	Shader containers.Handle
	/** @brief Selection tag, e.g. "opaque", "shadow". */
	Mark string
	/** @brief Lower priority draws first within a mark. */
	Priority int
	State    RenderState
	Uniforms []UniformValue
	Textures []TextureBinding
}

// FindUniform returns the uniform with the given name, or nil.
func (p *MaterialPhase) FindUniform(name string) *UniformValue {
	for i := range p.Uniforms {
		if p.Uniforms[i].Name == name {
			return &p.Uniforms[i]
		}
	}
	return nil
}

// SetUniform stores the value, replacing any existing uniform with the
// same name. Returns false when the phase uniform table is full.
func (p *MaterialPhase) SetUniform(v UniformValue) bool {
	if existing := p.FindUniform(v.Name); existing != nil {
		*existing = v
		return true
	}
	if len(p.Uniforms) >= MaxPhaseUniforms {
		return false
	}
	p.Uniforms = append(p.Uniforms, v)
	return true
}

// SetFloat stores a float uniform.
func (p *MaterialPhase) SetFloat(name string, f float32) bool {
	return p.SetUniform(UniformValue{Name: name, Type: UniformFloat, F: f})
}

// SetVec4 stores a vec4 uniform.
func (p *MaterialPhase) SetVec4(name string, v [4]float32) bool {
	return p.SetUniform(UniformValue{Name: name, Type: UniformVec4, V4: v})
}

// Color returns the "color" vec4 uniform, or ok=false when unset.
func (p *MaterialPhase) Color() (v [4]float32, ok bool) {
	u := p.FindUniform("color")
	if u == nil || u.Type != UniformVec4 {
		return v, false
	}
	return u.V4, true
}

// SetColor stores the "color" vec4 uniform.
func (p *MaterialPhase) SetColor(r, g, b, a float32) {
	p.SetVec4("color", [4]float32{r, g, b, a})
}

// MakeTransparent switches the phase to the alpha-blended pipeline state.
func (p *MaterialPhase) MakeTransparent() {
	p.State = RenderStateTransparent()
}

// FindTexture returns the texture binding with the given name, or nil.
func (p *MaterialPhase) FindTexture(name string) *TextureBinding {
	for i := range p.Textures {
		if p.Textures[i].Name == name {
			return &p.Textures[i]
		}
	}
	return nil
}

// SetTexture binds a texture handle under the given slot name. Returns
// false when the phase texture table is full.
func (p *MaterialPhase) SetTexture(name string, h containers.Handle) bool {
	if existing := p.FindTexture(name); existing != nil {
		existing.Texture = h
		return true
	}
	if len(p.Textures) >= MaxPhaseTextures {
		return false
	}
	p.Textures = append(p.Textures, TextureBinding{Name: name, Texture: h})
	return true
}

/**
 * @brief A material resource: an ordered set of phases plus the name of
 * the shader family it was built for. The active phase mark selects which
 * phases render.
 */
type Material struct {
	Header
	Phases []MaterialPhase
	/** @brief Name of the shader family the material targets. */
	ShaderName string
	/** @brief Mark of the phases currently selected for rendering. */
	ActivePhaseMark string
}

// FindPhase returns the first phase with the given mark, or nil.
func (m *Material) FindPhase(mark string) *MaterialPhase {
	for i := range m.Phases {
		if m.Phases[i].Mark == mark {
			return &m.Phases[i]
		}
	}
	return nil
}

// AddPhase appends a phase. Returns nil when the material phase table is
// full.
func (m *Material) AddPhase(mark string, shader containers.Handle, state RenderState) *MaterialPhase {
	if len(m.Phases) >= MaxMaterialPhases {
		return nil
	}
	// Full capacity up front keeps returned phase pointers stable.
	if m.Phases == nil {
		m.Phases = make([]MaterialPhase, 0, MaxMaterialPhases)
	}
	m.Phases = append(m.Phases, MaterialPhase{
		Shader: shader,
		Mark:   mark,
		State:  state,
	})
	return &m.Phases[len(m.Phases)-1]
}

// PhasesForMark appends the phases with the given mark to dst, ordered by
// ascending priority, and returns the extended slice.
func (m *Material) PhasesForMark(mark string, dst []*MaterialPhase) []*MaterialPhase {
	start := len(dst)
	for i := range m.Phases {
		if m.Phases[i].Mark == mark {
			dst = append(dst, &m.Phases[i])
		}
	}
	added := dst[start:]
	for i := 1; i < len(added); i++ {
		for j := i; j > 0 && added[j].Priority < added[j-1].Priority; j-- {
			added[j], added[j-1] = added[j-1], added[j]
		}
	}
	return dst
}

// ActivePhases appends the phases matching the active mark to dst, ordered
// by ascending priority.
func (m *Material) ActivePhases(dst []*MaterialPhase) []*MaterialPhase {
	return m.PhasesForMark(m.ActivePhaseMark, dst)
}
