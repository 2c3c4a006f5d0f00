package renderer

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

/**
 * @brief GPUSlot caches the GPU object id for one pool index together
 * with the resource version it was built from. Version -1 means the slot
 * never held an object.
 */
type GPUSlot struct {
	ID      uint32
	Version int32
}

/**
 * @brief MeshDataSlot caches the shared vertex and index buffer ids for
 * one mesh pool index. Version -1 means no upload has happened.
 */
type MeshDataSlot struct {
	VBO     uint32
	EBO     uint32
	Version int32
}

/** @brief Maximum number of share groups alive in a process. */
const MaxShareGroups = 16

/** @brief Initial slot table capacity, doubled as pool indices grow. */
const initialSlotCapacity = 64

/**
 * @brief ShareGroup holds GPU object caches for a set of graphics
 * contexts that share object storage. Textures, shader programs and mesh
 * buffers live here; vertex arrays stay per context. Slot tables are
 * indexed by resource pool index and grow lazily.
 */
type ShareGroup struct {
	key      string
	refCount int

	textures []GPUSlot
	shaders  []GPUSlot
	meshData []MeshDataSlot

	// Scratch buffers owned by the rendering backend, torn down with the
	// group so leak checkers stay quiet.
	BackendUIVBO        uint32
	BackendImmediateVBO uint32
}

var (
	registryMu sync.Mutex
	registry   []*ShareGroup
)

// GetOrCreateShareGroup returns the share group registered under key,
// creating it when absent. Each call takes a reference; pair with Unref.
// Returns an error when the registry is full.
func GetOrCreateShareGroup(key string) (*ShareGroup, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, g := range registry {
		if g.key == key {
			g.refCount++
			return g, nil
		}
	}

	if len(registry) >= MaxShareGroups {
		return nil, fmt.Errorf("share group registry full (%d groups)", MaxShareGroups)
	}

	g := &ShareGroup{key: key, refCount: 1}
	registry = append(registry, g)
	return g, nil
}

// Key returns the registry key of the group.
func (g *ShareGroup) Key() string {
	return g.key
}

// RefCount returns the current reference count.
func (g *ShareGroup) RefCount() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return g.refCount
}

// Ref takes an additional reference and returns the group.
func (g *ShareGroup) Ref() *ShareGroup {
	if g == nil {
		return nil
	}
	registryMu.Lock()
	g.refCount++
	registryMu.Unlock()
	return g
}

// Unref drops a reference. When the last reference goes, every GPU object
// cached in the group is deleted through the installed backend and the
// group is removed from the registry.
func (g *ShareGroup) Unref() {
	if g == nil {
		return
	}

	registryMu.Lock()
	g.refCount--
	if g.refCount > 0 {
		registryMu.Unlock()
		return
	}
	for i, reg := range registry {
		if reg == g {
			registry[i] = registry[len(registry)-1]
			registry = registry[:len(registry)-1]
			break
		}
	}
	registryMu.Unlock()

	ops := GetOps()
	if ops == nil {
		if g.liveObjectCount() > 0 {
			core.LogWarn("share group '%s' released without a backend, GPU objects leak", g.key)
		}
		return
	}
	for i := range g.textures {
		if g.textures[i].ID != 0 {
			ops.TextureDelete(g.textures[i].ID)
		}
	}
	for i := range g.shaders {
		if g.shaders[i].ID != 0 {
			ops.ShaderDelete(g.shaders[i].ID)
		}
	}
	for i := range g.meshData {
		if g.meshData[i].VBO != 0 {
			ops.BufferDelete(g.meshData[i].VBO)
		}
		if g.meshData[i].EBO != 0 {
			ops.BufferDelete(g.meshData[i].EBO)
		}
	}
	if g.BackendUIVBO != 0 {
		ops.BufferDelete(g.BackendUIVBO)
	}
	if g.BackendImmediateVBO != 0 {
		ops.BufferDelete(g.BackendImmediateVBO)
	}
}

func (g *ShareGroup) liveObjectCount() int {
	n := 0
	for i := range g.textures {
		if g.textures[i].ID != 0 {
			n++
		}
	}
	for i := range g.shaders {
		if g.shaders[i].ID != 0 {
			n++
		}
	}
	for i := range g.meshData {
		if g.meshData[i].VBO != 0 || g.meshData[i].EBO != 0 {
			n++
		}
	}
	return n
}

func slotCapacityFor(current uint32, index uint32) uint32 {
	c := math.Max(current, initialSlotCapacity)
	for c <= index {
		c *= 2
	}
	return c
}

func growGPUSlots(slots []GPUSlot, index uint32) []GPUSlot {
	if index < uint32(len(slots)) {
		return slots
	}
	newCap := slotCapacityFor(uint32(len(slots)), index)
	grown := make([]GPUSlot, newCap)
	copy(grown, slots)
	for i := len(slots); i < int(newCap); i++ {
		grown[i].Version = -1
	}
	return grown
}

// TextureSlot returns the shared texture slot for a pool index, growing
// the table when needed.
func (g *ShareGroup) TextureSlot(index uint32) *GPUSlot {
	g.textures = growGPUSlots(g.textures, index)
	return &g.textures[index]
}

// ShaderSlot returns the shared shader slot for a pool index, growing the
// table when needed.
func (g *ShareGroup) ShaderSlot(index uint32) *GPUSlot {
	g.shaders = growGPUSlots(g.shaders, index)
	return &g.shaders[index]
}

// MeshDataSlot returns the shared mesh buffer slot for a pool index,
// growing the table when needed.
func (g *ShareGroup) MeshDataSlot(index uint32) *MeshDataSlot {
	if index >= uint32(len(g.meshData)) {
		newCap := slotCapacityFor(uint32(len(g.meshData)), index)
		grown := make([]MeshDataSlot, newCap)
		copy(grown, g.meshData)
		for i := len(g.meshData); i < int(newCap); i++ {
			grown[i].Version = -1
		}
		g.meshData = grown
	}
	return &g.meshData[index]
}

// ShareGroupCount returns the number of registered share groups.
func ShareGroupCount() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return len(registry)
}
