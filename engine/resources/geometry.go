package resources

import (
	"encoding/binary"
	stdmath "math"

	"github.com/chewxy/math32"
)

func readVec3(blob []byte, offset int) [3]float32 {
	return [3]float32{
		float32FromBytes(blob[offset:]),
		float32FromBytes(blob[offset+4:]),
		float32FromBytes(blob[offset+8:]),
	}
}

func writeVec3(blob []byte, offset int, v [3]float32) {
	float32ToBytes(blob[offset:], v[0])
	float32ToBytes(blob[offset+4:], v[1])
	float32ToBytes(blob[offset+8:], v[2])
}

func readVec2(blob []byte, offset int) [2]float32 {
	return [2]float32{
		float32FromBytes(blob[offset:]),
		float32FromBytes(blob[offset+4:]),
	}
}

func float32FromBytes(b []byte) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func float32ToBytes(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, stdmath.Float32bits(f))
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize3(v [3]float32) [3]float32 {
	l := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l < 1e-8 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// GenerateNormals computes smooth per-vertex normals from triangle faces,
// accumulating area-weighted face normals and normalizing. The mesh layout
// must contain "position" and "normal" vec3 attributes. Returns false when
// the layout lacks them or the mesh is not triangle data.
func GenerateNormals(m *Mesh) bool {
	if m.DrawMode != DrawTriangles || len(m.Indices) < 3 {
		return false
	}
	pos := m.Layout.Find("position")
	nrm := m.Layout.Find("normal")
	if pos == nil || nrm == nil {
		return false
	}
	stride := int(m.Layout.Stride)
	accum := make([][3]float32, m.VertexCount)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0 := readVec3(m.Vertices, int(i0)*stride+int(pos.Offset))
		p1 := readVec3(m.Vertices, int(i1)*stride+int(pos.Offset))
		p2 := readVec3(m.Vertices, int(i2)*stride+int(pos.Offset))
		face := cross3(sub3(p1, p0), sub3(p2, p0))
		for _, vi := range []uint32{i0, i1, i2} {
			accum[vi][0] += face[0]
			accum[vi][1] += face[1]
			accum[vi][2] += face[2]
		}
	}
	for v := 0; v < m.VertexCount; v++ {
		writeVec3(m.Vertices, v*stride+int(nrm.Offset), normalize3(accum[v]))
	}
	m.BumpVersion()
	return true
}

// GenerateTangents computes per-vertex tangents from triangle UVs and
// stores them in the "tangent" attribute; the w component receives the
// bitangent handedness sign. The layout must contain "position", "uv" and
// a 4-component "tangent". Returns false when any are missing.
func GenerateTangents(m *Mesh) bool {
	if m.DrawMode != DrawTriangles || len(m.Indices) < 3 {
		return false
	}
	pos := m.Layout.Find("position")
	uv := m.Layout.Find("uv")
	tan := m.Layout.Find("tangent")
	nrm := m.Layout.Find("normal")
	if pos == nil || uv == nil || tan == nil || tan.Size < 4 {
		return false
	}
	stride := int(m.Layout.Stride)
	tangents := make([][3]float32, m.VertexCount)
	bitangents := make([][3]float32, m.VertexCount)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0 := readVec3(m.Vertices, int(i0)*stride+int(pos.Offset))
		p1 := readVec3(m.Vertices, int(i1)*stride+int(pos.Offset))
		p2 := readVec3(m.Vertices, int(i2)*stride+int(pos.Offset))
		t0 := readVec2(m.Vertices, int(i0)*stride+int(uv.Offset))
		t1 := readVec2(m.Vertices, int(i1)*stride+int(uv.Offset))
		t2 := readVec2(m.Vertices, int(i2)*stride+int(uv.Offset))

		e1, e2 := sub3(p1, p0), sub3(p2, p0)
		du1, dv1 := t1[0]-t0[0], t1[1]-t0[1]
		du2, dv2 := t2[0]-t0[0], t2[1]-t0[1]
		det := du1*dv2 - du2*dv1
		if math32.Abs(det) < 1e-8 {
			continue
		}
		r := 1.0 / det
		tangent := [3]float32{
			r * (dv2*e1[0] - dv1*e2[0]),
			r * (dv2*e1[1] - dv1*e2[1]),
			r * (dv2*e1[2] - dv1*e2[2]),
		}
		bitangent := [3]float32{
			r * (du1*e2[0] - du2*e1[0]),
			r * (du1*e2[1] - du2*e1[1]),
			r * (du1*e2[2] - du2*e1[2]),
		}
		for _, vi := range []uint32{i0, i1, i2} {
			for c := 0; c < 3; c++ {
				tangents[vi][c] += tangent[c]
				bitangents[vi][c] += bitangent[c]
			}
		}
	}
	for v := 0; v < m.VertexCount; v++ {
		t := normalize3(tangents[v])
		w := float32(1)
		if nrm != nil {
			n := readVec3(m.Vertices, v*stride+int(nrm.Offset))
			// Gram-Schmidt orthogonalize against the normal.
			d := n[0]*t[0] + n[1]*t[1] + n[2]*t[2]
			t = normalize3([3]float32{t[0] - n[0]*d, t[1] - n[1]*d, t[2] - n[2]*d})
			c := cross3(n, t)
			b := bitangents[v]
			if c[0]*b[0]+c[1]*b[1]+c[2]*b[2] < 0 {
				w = -1
			}
		}
		off := v*stride + int(tan.Offset)
		writeVec3(m.Vertices, off, t)
		float32ToBytes(m.Vertices[off+12:], w)
	}
	m.BumpVersion()
	return true
}
