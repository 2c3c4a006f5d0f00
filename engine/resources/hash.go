package resources

import (
	"encoding/binary"
	"fmt"
)

// FNV-1a 64-bit constants.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func fnv1a(h uint64, data []byte) uint64 {
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

func fnv1aString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// MeshUUID derives a content identifier from mesh data: the vertex blob
// and the index list are hashed independently and combined so that
// identical geometry always maps to the same id.
func MeshUUID(vertices []byte, indices []uint32) string {
	h1 := fnv1a(fnvOffset, vertices)
	h2 := fnvOffset
	var buf [4]byte
	for _, idx := range indices {
		binary.LittleEndian.PutUint32(buf[:], idx)
		h2 = fnv1a(h2, buf[:])
	}
	return fmt.Sprintf("%016x", h1^(h2*fnvPrime))
}

// TextureUUID derives a content identifier from texture data: the
// dimensions are mixed in before the pixels so same-sized blobs with
// different shapes do not collide.
func TextureUUID(pixels []byte, width, height uint32, channels uint8) string {
	dims := [3]uint32{width, height, uint32(channels)}
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], dims[0])
	binary.LittleEndian.PutUint32(buf[4:], dims[1])
	binary.LittleEndian.PutUint32(buf[8:], dims[2])
	h := fnv1a(fnvOffset, buf[:])
	h = fnv1a(h, pixels)
	return fmt.Sprintf("%016x", h)
}

// ShaderHash derives a content hash from the shader stage sources. The
// stages are separated so moving text between stages changes the hash.
func ShaderHash(vertex, fragment, geometry string) string {
	h := fnv1aString(fnvOffset, vertex)
	h = fnv1aString(h, "::")
	h = fnv1aString(h, fragment)
	h = fnv1aString(h, "::")
	h = fnv1aString(h, geometry)
	return fmt.Sprintf("%016x", h)
}
