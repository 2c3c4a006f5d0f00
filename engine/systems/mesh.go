package systems

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/resources"
)

/** @brief Configuration for the mesh system. */
type MeshSystemConfig struct {
	/** @brief Initial pool capacity, grown on demand. */
	InitialCapacity uint32 `toml:"initial_capacity"`
}

/** @brief Summary of one registered mesh, for tooling and debug views. */
type MeshInfo struct {
	Handle      containers.Handle
	UUID        string
	Name        string
	RefCount    uint32
	Version     uint32
	VertexCount int
	IndexCount  int
	Stride      uint16
	MemoryBytes int
	Loaded      bool
	HasLoader   bool
}

/**
 * @brief MeshSystem owns every mesh resource: a generation-checked pool
 * for storage plus a uuid index for lookup. Content-identical meshes
 * deduplicate through their hash-derived uuid.
 */
type MeshSystem struct {
	pool      *containers.Pool[resources.Mesh]
	uuidIndex *containers.ResourceMap
	nextUUID  uint64
}

// NewMeshSystem creates the mesh system.
func NewMeshSystem(config MeshSystemConfig) (*MeshSystem, error) {
	capacity := config.InitialCapacity
	if capacity == 0 {
		capacity = 64
	}
	return &MeshSystem{
		pool:      containers.NewPool[resources.Mesh](capacity),
		uuidIndex: containers.NewResourceMap(),
	}, nil
}

// Shutdown drops every mesh regardless of reference counts.
func (ms *MeshSystem) Shutdown() error {
	ms.pool.Clear()
	ms.uuidIndex.Clear()
	return nil
}

// Create registers an empty mesh under the given uuid, or under a
// generated one when uuid is empty. Created meshes start loaded at
// version 1 with no data. Fails on a duplicate uuid.
func (ms *MeshSystem) Create(uuid string) containers.Handle {
	finalUUID := uuid
	if finalUUID == "" {
		finalUUID = core.PrefixedUUID("mesh", &ms.nextUUID)
	} else if ms.Contains(finalUUID) {
		core.LogWarn("mesh create: uuid '%s' already exists", finalUUID)
		return containers.InvalidHandle()
	}

	h := ms.pool.Alloc()
	m := ms.pool.Get(h)
	m.UUID = finalUUID
	m.Version = 1
	m.PoolIndex = h.Index
	m.Loaded = true

	if !ms.uuidIndex.Add(finalUUID, h.Index) {
		core.LogError("mesh create: failed to index uuid '%s'", finalUUID)
		ms.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// Find returns the handle for a uuid, or the invalid handle.
func (ms *MeshSystem) Find(uuid string) containers.Handle {
	index, ok := ms.uuidIndex.Get(uuid)
	if !ok {
		return containers.InvalidHandle()
	}
	return ms.pool.HandleAt(index)
}

// FindByName returns the first mesh whose name matches, scanning the
// pool. Names are not unique; uuid lookup is the fast path.
func (ms *MeshSystem) FindByName(name string) containers.Handle {
	result := containers.InvalidHandle()
	ms.pool.ForEach(func(index uint32, m *resources.Mesh) bool {
		if m.Name == name {
			result = ms.pool.HandleAt(index)
			return false
		}
		return true
	})
	return result
}

// GetOrCreate returns the existing mesh for uuid or creates one. An
// empty uuid is an error since nothing could ever be found again.
func (ms *MeshSystem) GetOrCreate(uuid string) containers.Handle {
	if uuid == "" {
		core.LogWarn("mesh get-or-create: empty uuid")
		return containers.InvalidHandle()
	}
	if h := ms.Find(uuid); h.IsValid() && ms.pool.IsValid(h) {
		return h
	}
	return ms.Create(uuid)
}

// CreateFromData registers mesh data under its content-derived uuid,
// returning the existing mesh when identical data was registered before.
func (ms *MeshSystem) CreateFromData(vertices []byte, vertexCount int, layout resources.VertexLayout, indices []uint32, name string) (containers.Handle, error) {
	uuid := resources.MeshUUID(vertices, indices)
	if h := ms.Find(uuid); h.IsValid() && ms.pool.IsValid(h) {
		return h, nil
	}
	h := ms.Create(uuid)
	if !h.IsValid() {
		return h, fmt.Errorf("mesh '%s': create failed", name)
	}
	m := ms.pool.Get(h)
	if !ms.SetData(m, vertices, vertexCount, layout, indices, name) {
		ms.Destroy(h)
		return containers.InvalidHandle(), fmt.Errorf("mesh '%s': set data failed", name)
	}
	return h, nil
}

// Declare registers a mesh that will be loaded later: version 0, not
// loaded, optionally named. Returns the existing handle when the uuid is
// already registered.
func (ms *MeshSystem) Declare(uuid, name string) containers.Handle {
	if existing := ms.Find(uuid); existing.IsValid() && ms.pool.IsValid(existing) {
		return existing
	}

	h := ms.pool.Alloc()
	m := ms.pool.Get(h)
	m.UUID = uuid
	m.PoolIndex = h.Index
	if name != "" {
		m.Name = containers.InternString(name)
	}

	if !ms.uuidIndex.Add(uuid, h.Index) {
		core.LogError("mesh declare: failed to index uuid '%s'", uuid)
		ms.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// SetLoadCallback attaches the lazy loader to a declared mesh.
func (ms *MeshSystem) SetLoadCallback(h containers.Handle, fn resources.LoadFunc, userData interface{}) {
	if m := ms.Get(h); m != nil {
		m.SetLoadCallback(fn, userData)
	}
}

// IsLoaded reports whether the mesh data is present.
func (ms *MeshSystem) IsLoaded(h containers.Handle) bool {
	m := ms.Get(h)
	return m != nil && m.Loaded
}

// EnsureLoaded triggers the lazy loader when the mesh is declared but
// not yet loaded. Returns true when the mesh is loaded afterwards.
func (ms *MeshSystem) EnsureLoaded(h containers.Handle) bool {
	m := ms.Get(h)
	if m == nil {
		return false
	}
	if m.Loaded {
		return true
	}
	if m.LoadCallback == nil {
		core.LogWarn("mesh '%s' has no load callback", m.UUID)
		return false
	}
	if !m.EnsureLoaded(m) {
		core.LogError("mesh load callback failed for '%s'", m.UUID)
		return false
	}
	return true
}

// Get returns the mesh for a handle, or nil when the handle is stale.
func (ms *MeshSystem) Get(h containers.Handle) *resources.Mesh {
	return ms.pool.Get(h)
}

// IsValid reports whether the handle still refers to a live mesh.
func (ms *MeshSystem) IsValid(h containers.Handle) bool {
	return ms.pool.IsValid(h)
}

// Destroy removes the mesh, bumping its slot generation so outstanding
// handles go stale.
func (ms *MeshSystem) Destroy(h containers.Handle) bool {
	m := ms.Get(h)
	if m == nil {
		return false
	}
	core.LogInfo("destroying mesh uuid=%s name=%s refcount=%d", m.UUID, m.Name, m.RefCount)
	ms.uuidIndex.Remove(m.UUID)
	m.Vertices = nil
	m.Indices = nil
	return ms.pool.Free(h)
}

// Contains reports whether a uuid is registered.
func (ms *MeshSystem) Contains(uuid string) bool {
	return ms.uuidIndex.Contains(uuid)
}

// Count returns the number of live meshes.
func (ms *MeshSystem) Count() int {
	return ms.pool.Count()
}

// AddRef takes a reference on the mesh.
func (ms *MeshSystem) AddRef(h containers.Handle) {
	if m := ms.Get(h); m != nil {
		m.RefCount++
	}
}

// Release drops a reference; the mesh is destroyed when the count
// reaches zero. Releasing an unreferenced mesh logs a warning and is
// otherwise a no-op. Returns true when the mesh was destroyed.
func (ms *MeshSystem) Release(h containers.Handle) bool {
	m := ms.Get(h)
	if m == nil {
		return false
	}
	if m.RefCount == 0 {
		core.LogWarn("mesh release: uuid=%s name=%s refcount already zero", m.UUID, m.Name)
		return false
	}
	m.RefCount--
	if m.RefCount == 0 {
		return ms.Destroy(h)
	}
	return false
}

// SetVertices replaces the vertex blob and layout, bumping the version.
func (ms *MeshSystem) SetVertices(m *resources.Mesh, data []byte, vertexCount int, layout resources.VertexLayout) bool {
	if m == nil {
		return false
	}
	size := vertexCount * int(layout.Stride)
	blob := make([]byte, size)
	copy(blob, data)
	m.Vertices = blob
	m.VertexCount = vertexCount
	m.Layout = layout
	m.BumpVersion()
	return true
}

// SetIndices replaces the index list, bumping the version.
func (ms *MeshSystem) SetIndices(m *resources.Mesh, indices []uint32) bool {
	if m == nil {
		return false
	}
	m.Indices = append([]uint32(nil), indices...)
	m.BumpVersion()
	return true
}

// SetData replaces vertices and indices in one step and marks the mesh
// loaded. One version bump covers both.
func (ms *MeshSystem) SetData(m *resources.Mesh, vertices []byte, vertexCount int, layout resources.VertexLayout, indices []uint32, name string) bool {
	if m == nil {
		return false
	}
	if name != "" {
		m.Name = containers.InternString(name)
	}
	size := vertexCount * int(layout.Stride)
	blob := make([]byte, size)
	copy(blob, vertices)
	m.Vertices = blob
	m.VertexCount = vertexCount
	m.Layout = layout
	m.Indices = append([]uint32(nil), indices...)
	m.BumpVersion()
	m.Loaded = true
	return true
}

// ForEach visits every live mesh; returning false stops the walk.
func (ms *MeshSystem) ForEach(fn func(h containers.Handle, m *resources.Mesh) bool) {
	ms.pool.ForEach(func(index uint32, m *resources.Mesh) bool {
		return fn(ms.pool.HandleAt(index), m)
	})
}

// Infos collects a summary of every live mesh.
func (ms *MeshSystem) Infos() []MeshInfo {
	infos := make([]MeshInfo, 0, ms.pool.Count())
	ms.ForEach(func(h containers.Handle, m *resources.Mesh) bool {
		infos = append(infos, MeshInfo{
			Handle:      h,
			UUID:        m.UUID,
			Name:        m.Name,
			RefCount:    m.RefCount,
			Version:     m.Version,
			VertexCount: m.VertexCount,
			IndexCount:  len(m.Indices),
			Stride:      m.Layout.Stride,
			MemoryBytes: m.VerticesSize() + m.IndicesSize(),
			Loaded:      m.Loaded,
			HasLoader:   m.LoadCallback != nil,
		})
		return true
	})
	return infos
}
