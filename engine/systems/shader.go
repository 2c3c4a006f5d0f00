package systems

import (
	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/resources"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	InitialCapacity uint32 `toml:"initial_capacity"`
}

/** @brief Summary of one registered shader. */
type ShaderInfo struct {
	Handle     containers.Handle
	UUID       string
	Name       string
	SourceHash string
	RefCount   uint32
	Version    uint32
	SourceSize int
	IsVariant  bool
	VariantOp  resources.VariantOp
	Loaded     bool
}

/**
 * @brief ShaderSystem owns every shader resource. Besides the uuid index
 * it keeps a source-hash index so textually identical shaders fold into
 * one resource, and tracks variant relationships for staleness checks.
 */
type ShaderSystem struct {
	pool      *containers.Pool[resources.Shader]
	uuidIndex *containers.ResourceMap
	hashIndex *containers.ResourceMap
	nextUUID  uint64
}

// NewShaderSystem creates the shader system.
func NewShaderSystem(config ShaderSystemConfig) (*ShaderSystem, error) {
	capacity := config.InitialCapacity
	if capacity == 0 {
		capacity = 64
	}
	return &ShaderSystem{
		pool:      containers.NewPool[resources.Shader](capacity),
		uuidIndex: containers.NewResourceMap(),
		hashIndex: containers.NewResourceMap(),
	}, nil
}

// Shutdown drops every shader regardless of reference counts.
func (ss *ShaderSystem) Shutdown() error {
	ss.pool.Clear()
	ss.uuidIndex.Clear()
	ss.hashIndex.Clear()
	return nil
}

// Create registers an empty shader under the given uuid, or under a
// generated one when uuid is empty. Fails on a duplicate uuid.
func (ss *ShaderSystem) Create(uuid string) containers.Handle {
	finalUUID := uuid
	if finalUUID == "" {
		finalUUID = core.PrefixedUUID("shader", &ss.nextUUID)
	} else if ss.Contains(finalUUID) {
		core.LogWarn("shader create: uuid '%s' already exists", finalUUID)
		return containers.InvalidHandle()
	}

	h := ss.pool.Alloc()
	s := ss.pool.Get(h)
	s.UUID = finalUUID
	s.Version = 1
	s.PoolIndex = h.Index
	s.Loaded = true
	s.OriginalHandle = containers.InvalidHandle()

	if !ss.uuidIndex.Add(finalUUID, h.Index) {
		core.LogError("shader create: failed to index uuid '%s'", finalUUID)
		ss.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// Find returns the handle for a uuid, or the invalid handle.
func (ss *ShaderSystem) Find(uuid string) containers.Handle {
	index, ok := ss.uuidIndex.Get(uuid)
	if !ok {
		return containers.InvalidHandle()
	}
	return ss.pool.HandleAt(index)
}

// FindByHash returns the shader whose sources hash to sourceHash, or the
// invalid handle. This is the deduplication lookup.
func (ss *ShaderSystem) FindByHash(sourceHash string) containers.Handle {
	index, ok := ss.hashIndex.Get(sourceHash)
	if !ok {
		return containers.InvalidHandle()
	}
	return ss.pool.HandleAt(index)
}

// FindByName returns the first shader whose name matches.
func (ss *ShaderSystem) FindByName(name string) containers.Handle {
	result := containers.InvalidHandle()
	ss.pool.ForEach(func(index uint32, s *resources.Shader) bool {
		if s.Name == name {
			result = ss.pool.HandleAt(index)
			return false
		}
		return true
	})
	return result
}

// GetOrCreate returns the existing shader for uuid or creates one.
func (ss *ShaderSystem) GetOrCreate(uuid string) containers.Handle {
	if uuid == "" {
		core.LogWarn("shader get-or-create: empty uuid")
		return containers.InvalidHandle()
	}
	if h := ss.Find(uuid); h.IsValid() && ss.pool.IsValid(h) {
		return h
	}
	return ss.Create(uuid)
}

// Get returns the shader for a handle, or nil when the handle is stale.
func (ss *ShaderSystem) Get(h containers.Handle) *resources.Shader {
	return ss.pool.Get(h)
}

// IsValid reports whether the handle still refers to a live shader.
func (ss *ShaderSystem) IsValid(h containers.Handle) bool {
	return ss.pool.IsValid(h)
}

// Destroy removes the shader and both of its index entries.
func (ss *ShaderSystem) Destroy(h containers.Handle) bool {
	s := ss.Get(h)
	if s == nil {
		return false
	}
	ss.uuidIndex.Remove(s.UUID)
	if s.SourceHash != "" {
		ss.hashIndex.Remove(s.SourceHash)
	}
	s.VertexSource = ""
	s.FragmentSource = ""
	s.GeometrySource = ""
	return ss.pool.Free(h)
}

// Contains reports whether a uuid is registered.
func (ss *ShaderSystem) Contains(uuid string) bool {
	return ss.uuidIndex.Contains(uuid)
}

// Count returns the number of live shaders.
func (ss *ShaderSystem) Count() int {
	return ss.pool.Count()
}

// SetSources replaces the shader stage sources, rehashing and reindexing.
// Returns false when the new sources hash identically to the current
// ones, which leaves the shader untouched.
func (ss *ShaderSystem) SetSources(h containers.Handle, vertex, fragment, geometry, name, sourcePath string) bool {
	s := ss.Get(h)
	if s == nil {
		return false
	}

	newHash := resources.ShaderHash(vertex, fragment, geometry)
	if s.SourceHash != "" && s.SourceHash == newHash {
		return false
	}

	if s.SourceHash != "" {
		ss.hashIndex.Remove(s.SourceHash)
	}

	s.VertexSource = vertex
	s.FragmentSource = fragment
	s.GeometrySource = geometry
	s.SourceHash = newHash
	ss.hashIndex.Add(newHash, h.Index)

	if name != "" {
		s.Name = containers.InternString(name)
	}
	if sourcePath != "" {
		s.SourcePath = containers.InternString(sourcePath)
	}

	s.BumpVersion()
	return true
}

// FromSources registers a shader from stage sources. With a uuid, an
// existing shader under that uuid gets its sources updated in place;
// without one the sources deduplicate by hash, returning the existing
// shader when identical sources were registered before.
func (ss *ShaderSystem) FromSources(vertex, fragment, geometry, name, sourcePath, uuid string) containers.Handle {
	if vertex == "" || fragment == "" {
		core.LogError("shader from sources: vertex and fragment sources required")
		return containers.InvalidHandle()
	}

	if uuid != "" {
		if existing := ss.Find(uuid); existing.IsValid() && ss.pool.IsValid(existing) {
			ss.SetSources(existing, vertex, fragment, geometry, name, sourcePath)
			return existing
		}
		h := ss.Create(uuid)
		if !h.IsValid() {
			return h
		}
		if !ss.SetSources(h, vertex, fragment, geometry, name, sourcePath) {
			ss.Destroy(h)
			return containers.InvalidHandle()
		}
		return h
	}

	hash := resources.ShaderHash(vertex, fragment, geometry)
	if existing := ss.FindByHash(hash); existing.IsValid() && ss.pool.IsValid(existing) {
		return existing
	}

	h := ss.Create("")
	if !h.IsValid() {
		return h
	}
	if !ss.SetSources(h, vertex, fragment, geometry, name, sourcePath) {
		ss.Destroy(h)
		return containers.InvalidHandle()
	}
	return h
}

// AddRef takes a reference on the shader.
func (ss *ShaderSystem) AddRef(h containers.Handle) {
	if s := ss.Get(h); s != nil {
		s.RefCount++
	}
}

// Release drops a reference; the shader is destroyed at zero. Releasing
// an unreferenced shader logs a warning and returns false.
func (ss *ShaderSystem) Release(h containers.Handle) bool {
	s := ss.Get(h)
	if s == nil {
		core.LogWarn("shader release: stale handle")
		return false
	}
	if s.RefCount == 0 {
		core.LogWarn("shader release: '%s' [%s] already at refcount zero", s.Name, s.UUID)
		return false
	}
	s.RefCount--
	if s.RefCount == 0 {
		return ss.Destroy(h)
	}
	return false
}

// SetVariantInfo marks the shader as a variant of original, snapshotting
// the original's version for later staleness checks. An invalid original
// handle logs a warning and leaves the shader unmarked.
func (ss *ShaderSystem) SetVariantInfo(variant, original containers.Handle, op resources.VariantOp) {
	v := ss.Get(variant)
	if v == nil {
		return
	}
	orig := ss.Get(original)
	if orig == nil {
		core.LogWarn("shader variant info: invalid original handle")
		return
	}
	v.IsVariant = true
	v.VariantOp = op
	v.OriginalHandle = original
	v.OriginalVersion = orig.Version
}

// VariantIsStale reports whether a variant's original was destroyed or
// changed since the variant was derived. Non-variants are never stale.
func (ss *ShaderSystem) VariantIsStale(variant containers.Handle) bool {
	v := ss.Get(variant)
	if v == nil || !v.IsVariant {
		return false
	}
	orig := ss.Get(v.OriginalHandle)
	if orig == nil {
		return true
	}
	return orig.Version != v.OriginalVersion
}

// ForEach visits every live shader; returning false stops the walk.
func (ss *ShaderSystem) ForEach(fn func(h containers.Handle, s *resources.Shader) bool) {
	ss.pool.ForEach(func(index uint32, s *resources.Shader) bool {
		return fn(ss.pool.HandleAt(index), s)
	})
}

// Infos collects a summary of every live shader.
func (ss *ShaderSystem) Infos() []ShaderInfo {
	infos := make([]ShaderInfo, 0, ss.pool.Count())
	ss.ForEach(func(h containers.Handle, s *resources.Shader) bool {
		infos = append(infos, ShaderInfo{
			Handle:     h,
			UUID:       s.UUID,
			Name:       s.Name,
			SourceHash: s.SourceHash,
			RefCount:   s.RefCount,
			Version:    s.Version,
			SourceSize: s.SourceSize(),
			IsVariant:  s.IsVariant,
			VariantOp:  s.VariantOp,
			Loaded:     s.Loaded,
		})
		return true
	})
	return infos
}
