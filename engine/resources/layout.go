package resources

/** @brief Scalar type of a vertex attribute component. */
type AttribType uint8

const (
	AttribFloat32 AttribType = iota
	AttribInt32
	AttribUint32
	AttribInt16
	AttribUint16
	AttribInt8
	AttribUint8
)

// Size returns the byte size of one component.
func (t AttribType) Size() int {
	switch t {
	case AttribFloat32, AttribInt32, AttribUint32:
		return 4
	case AttribInt16, AttribUint16:
		return 2
	default:
		return 1
	}
}

/** @brief Maximum attributes in a vertex layout. */
const MaxVertexAttribs = 16

/** @brief One attribute of an interleaved vertex layout. */
type VertexAttrib struct {
	Name string
	/** @brief Component count, 1 to 4. */
	Size uint8
	Type AttribType
	/** @brief Shader attribute location. */
	Location uint8
	/** @brief Byte offset within a vertex. */
	Offset uint16
}

/**
 * @brief Describes an interleaved vertex blob: tightly packed attributes
 * in declaration order, Stride bytes per vertex.
 */
type VertexLayout struct {
	Attribs []VertexAttrib
	Stride  uint16
}

// Add appends an attribute at the current stride offset. Returns false
// when the layout is full.
func (l *VertexLayout) Add(name string, size uint8, t AttribType, location uint8) bool {
	if len(l.Attribs) >= MaxVertexAttribs {
		return false
	}
	l.Attribs = append(l.Attribs, VertexAttrib{
		Name:     name,
		Size:     size,
		Type:     t,
		Location: location,
		Offset:   l.Stride,
	})
	l.Stride += uint16(int(size) * t.Size())
	return true
}

// Find returns the attribute with the given name, or nil.
func (l *VertexLayout) Find(name string) *VertexAttrib {
	for i := range l.Attribs {
		if l.Attribs[i].Name == name {
			return &l.Attribs[i]
		}
	}
	return nil
}

// LayoutPos returns the position-only layout (12 byte stride).
func LayoutPos() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	return l
}

// LayoutPosNormal returns position + normal (24 byte stride).
func LayoutPosNormal() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	l.Add("normal", 3, AttribFloat32, 1)
	return l
}

// LayoutPosNormalUV returns position + normal + uv (32 byte stride).
func LayoutPosNormalUV() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	l.Add("normal", 3, AttribFloat32, 1)
	l.Add("uv", 2, AttribFloat32, 2)
	return l
}

// LayoutPosNormalUVTangent returns the standard lit layout with a vec4
// tangent (48 byte stride).
func LayoutPosNormalUVTangent() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	l.Add("normal", 3, AttribFloat32, 1)
	l.Add("uv", 2, AttribFloat32, 2)
	l.Add("tangent", 4, AttribFloat32, 3)
	return l
}

// LayoutPosNormalUVColor returns position + normal + uv + rgba color
// (48 byte stride).
func LayoutPosNormalUVColor() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	l.Add("normal", 3, AttribFloat32, 1)
	l.Add("uv", 2, AttribFloat32, 2)
	l.Add("color", 4, AttribFloat32, 3)
	return l
}

// LayoutSkinned returns the skinned layout: position, normal, uv, tangent,
// 4 bone indices and 4 bone weights (80 byte stride).
func LayoutSkinned() VertexLayout {
	var l VertexLayout
	l.Add("position", 3, AttribFloat32, 0)
	l.Add("normal", 3, AttribFloat32, 1)
	l.Add("uv", 2, AttribFloat32, 2)
	l.Add("tangent", 4, AttribFloat32, 3)
	l.Add("bone_indices", 4, AttribInt32, 4)
	l.Add("bone_weights", 4, AttribFloat32, 5)
	return l
}
