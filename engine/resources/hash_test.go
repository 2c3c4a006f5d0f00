package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShaderHashDeterministic(t *testing.T) {
	h1 := ShaderHash("void main() {}", "void main() {}", "")
	h2 := ShaderHash("void main() {}", "void main() {}", "")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestShaderHashStageSeparation(t *testing.T) {
	// Moving text across the stage boundary must change the hash.
	a := ShaderHash("ab", "c", "")
	b := ShaderHash("a", "bc", "")
	assert.NotEqual(t, a, b)

	withGeom := ShaderHash("v", "f", "g")
	without := ShaderHash("v", "f", "")
	assert.NotEqual(t, withGeom, without)
}

func TestMeshUUIDDeterministic(t *testing.T) {
	verts := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	indices := []uint32{0, 1, 2}

	assert.Equal(t, MeshUUID(verts, indices), MeshUUID(verts, indices))
	assert.Len(t, MeshUUID(verts, indices), 16)
	assert.NotEqual(t, MeshUUID(verts, indices), MeshUUID(verts, []uint32{0, 2, 1}))
	assert.NotEqual(t, MeshUUID(verts, indices), MeshUUID([]byte{9, 9}, indices))
}

func TestTextureUUIDDimensionsMatter(t *testing.T) {
	pixels := make([]byte, 16)

	a := TextureUUID(pixels, 4, 1, 4)
	b := TextureUUID(pixels, 1, 4, 4)
	c := TextureUUID(pixels, 2, 2, 4)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, TextureUUID(pixels, 4, 1, 4))
}

func TestVertexLayoutOffsets(t *testing.T) {
	l := LayoutPosNormalUVTangent()
	assert.Equal(t, uint16(48), l.Stride)

	pos := l.Find("position")
	assert.Equal(t, uint16(0), pos.Offset)
	nrm := l.Find("normal")
	assert.Equal(t, uint16(12), nrm.Offset)
	uv := l.Find("uv")
	assert.Equal(t, uint16(24), uv.Offset)
	tan := l.Find("tangent")
	assert.Equal(t, uint16(32), tan.Offset)
	assert.Nil(t, l.Find("color"))
}

func TestSkinnedLayoutStride(t *testing.T) {
	assert.Equal(t, uint16(80), LayoutSkinned().Stride)
	assert.Equal(t, uint16(12), LayoutPos().Stride)
	assert.Equal(t, uint16(32), LayoutPosNormalUV().Stride)
}
