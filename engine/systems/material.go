package systems

import (
	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/resources"
)

/** @brief Configuration for the material system. */
type MaterialSystemConfig struct {
	InitialCapacity uint32 `toml:"initial_capacity"`
}

/** @brief Summary of one registered material. */
type MaterialInfo struct {
	Handle     containers.Handle
	UUID       string
	Name       string
	RefCount   uint32
	Version    uint32
	PhaseCount int
	ShaderName string
	ActiveMark string
}

/**
 * @brief MaterialSystem owns every material resource. Materials hold
 * references on the shaders of their phases; destroying a material
 * releases them, which can cascade into shader destruction.
 */
type MaterialSystem struct {
	pool      *containers.Pool[resources.Material]
	uuidIndex *containers.ResourceMap
	nextUUID  uint64

	shaders *ShaderSystem
}

// NewMaterialSystem creates the material system. The shader system is
// required for phase reference management.
func NewMaterialSystem(config MaterialSystemConfig, shaders *ShaderSystem) (*MaterialSystem, error) {
	capacity := config.InitialCapacity
	if capacity == 0 {
		capacity = 64
	}
	return &MaterialSystem{
		pool:      containers.NewPool[resources.Material](capacity),
		uuidIndex: containers.NewResourceMap(),
		shaders:   shaders,
	}, nil
}

// Shutdown destroys every remaining material, releasing held shader
// references, then drops the pool.
func (mts *MaterialSystem) Shutdown() error {
	var handles []containers.Handle
	mts.ForEach(func(h containers.Handle, _ *resources.Material) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		mts.Destroy(h)
	}
	mts.pool.Clear()
	mts.uuidIndex.Clear()
	return nil
}

// Create registers a material. A name is required; the uuid may be empty
// to generate one. Fails on a duplicate uuid.
func (mts *MaterialSystem) Create(uuid, name string) containers.Handle {
	if name == "" {
		core.LogError("material create: name is required")
		return containers.InvalidHandle()
	}

	finalUUID := uuid
	if finalUUID == "" {
		finalUUID = core.PrefixedUUID("mat", &mts.nextUUID)
	} else if mts.Contains(finalUUID) {
		core.LogWarn("material create: uuid '%s' already exists", finalUUID)
		return containers.InvalidHandle()
	}

	h := mts.pool.Alloc()
	m := mts.pool.Get(h)
	m.UUID = finalUUID
	m.Name = containers.InternString(name)
	m.Version = 1
	m.PoolIndex = h.Index
	m.Loaded = true

	if !mts.uuidIndex.Add(finalUUID, h.Index) {
		core.LogError("material create: failed to index uuid '%s'", finalUUID)
		mts.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// Find returns the handle for a uuid, or the invalid handle.
func (mts *MaterialSystem) Find(uuid string) containers.Handle {
	index, ok := mts.uuidIndex.Get(uuid)
	if !ok {
		return containers.InvalidHandle()
	}
	return mts.pool.HandleAt(index)
}

// FindByName returns the first material whose name matches.
func (mts *MaterialSystem) FindByName(name string) containers.Handle {
	result := containers.InvalidHandle()
	mts.pool.ForEach(func(index uint32, m *resources.Material) bool {
		if m.Name == name {
			result = mts.pool.HandleAt(index)
			return false
		}
		return true
	})
	return result
}

// GetOrCreate returns the existing material for uuid or creates one
// under the given name.
func (mts *MaterialSystem) GetOrCreate(uuid, name string) containers.Handle {
	if uuid == "" {
		core.LogWarn("material get-or-create: empty uuid")
		return containers.InvalidHandle()
	}
	if h := mts.Find(uuid); h.IsValid() && mts.pool.IsValid(h) {
		return h
	}
	return mts.Create(uuid, name)
}

// Get returns the material for a handle, or nil when the handle is
// stale.
func (mts *MaterialSystem) Get(h containers.Handle) *resources.Material {
	return mts.pool.Get(h)
}

// IsValid reports whether the handle still refers to a live material.
func (mts *MaterialSystem) IsValid(h containers.Handle) bool {
	return mts.pool.IsValid(h)
}

func (mts *MaterialSystem) releasePhaseShaders(m *resources.Material) {
	for i := range m.Phases {
		sh := m.Phases[i].Shader
		if sh.IsValid() && mts.shaders.IsValid(sh) {
			mts.shaders.Release(sh)
		}
	}
}

// Destroy removes the material, first releasing the shader references of
// its phases.
func (mts *MaterialSystem) Destroy(h containers.Handle) bool {
	m := mts.Get(h)
	if m == nil {
		return false
	}
	mts.releasePhaseShaders(m)
	mts.uuidIndex.Remove(m.UUID)
	m.Phases = nil
	return mts.pool.Free(h)
}

// Contains reports whether a uuid is registered.
func (mts *MaterialSystem) Contains(uuid string) bool {
	return mts.uuidIndex.Contains(uuid)
}

// Count returns the number of live materials.
func (mts *MaterialSystem) Count() int {
	return mts.pool.Count()
}

// AddRef takes a reference on the material.
func (mts *MaterialSystem) AddRef(h containers.Handle) {
	if m := mts.Get(h); m != nil {
		m.RefCount++
	}
}

// Release drops a reference; the material is destroyed at zero.
func (mts *MaterialSystem) Release(h containers.Handle) bool {
	m := mts.Get(h)
	if m == nil || m.RefCount == 0 {
		return false
	}
	m.RefCount--
	if m.RefCount == 0 {
		return mts.Destroy(h)
	}
	return false
}

// AddPhase appends a phase using the given shader, taking a reference on
// it. Returns nil when the material is stale, the shader handle is dead
// or the phase table is full.
func (mts *MaterialSystem) AddPhase(h containers.Handle, mark string, shader containers.Handle, state resources.RenderState) *resources.MaterialPhase {
	m := mts.Get(h)
	if m == nil {
		return nil
	}
	if !mts.shaders.IsValid(shader) {
		core.LogWarn("material add phase: invalid shader handle for '%s'", m.Name)
		return nil
	}
	phase := m.AddPhase(mark, shader, state)
	if phase == nil {
		core.LogWarn("material '%s': phase table full", m.Name)
		return nil
	}
	mts.shaders.AddRef(shader)
	m.BumpVersion()
	return phase
}

// RemovePhase deletes the phase at index, releasing its shader
// reference.
func (mts *MaterialSystem) RemovePhase(h containers.Handle, index int) bool {
	m := mts.Get(h)
	if m == nil || index < 0 || index >= len(m.Phases) {
		return false
	}
	sh := m.Phases[index].Shader
	if sh.IsValid() && mts.shaders.IsValid(sh) {
		mts.shaders.Release(sh)
	}
	m.Phases = append(m.Phases[:index], m.Phases[index+1:]...)
	m.BumpVersion()
	return true
}

// SetUniform stores a uniform on every phase with the given mark.
func (mts *MaterialSystem) SetUniform(h containers.Handle, mark string, v resources.UniformValue) {
	m := mts.Get(h)
	if m == nil {
		return
	}
	for i := range m.Phases {
		if m.Phases[i].Mark == mark {
			m.Phases[i].SetUniform(v)
		}
	}
}

// SetTexture binds a texture on every phase with the given mark.
func (mts *MaterialSystem) SetTexture(h containers.Handle, mark, slotName string, texture containers.Handle) {
	m := mts.Get(h)
	if m == nil {
		return
	}
	for i := range m.Phases {
		if m.Phases[i].Mark == mark {
			m.Phases[i].SetTexture(slotName, texture)
		}
	}
}

// Copy clones a material under a new uuid, naming it "<name>_copy" and
// taking a shader reference for every copied phase.
func (mts *MaterialSystem) Copy(src containers.Handle, newUUID string) containers.Handle {
	srcMat := mts.Get(src)
	if srcMat == nil {
		return containers.InvalidHandle()
	}
	if srcMat.Name == "" {
		core.LogError("material copy: source '%s' has no name", srcMat.UUID)
		return containers.InvalidHandle()
	}

	dst := mts.Create(newUUID, srcMat.Name+"_copy")
	dstMat := mts.Get(dst)
	if dstMat == nil {
		return containers.InvalidHandle()
	}

	dstMat.Phases = make([]resources.MaterialPhase, len(srcMat.Phases))
	for i := range srcMat.Phases {
		p := srcMat.Phases[i]
		p.Uniforms = append([]resources.UniformValue(nil), p.Uniforms...)
		p.Textures = append([]resources.TextureBinding(nil), p.Textures...)
		dstMat.Phases[i] = p
		if mts.shaders.IsValid(p.Shader) {
			mts.shaders.AddRef(p.Shader)
		}
	}
	dstMat.ShaderName = srcMat.ShaderName
	dstMat.ActivePhaseMark = srcMat.ActivePhaseMark
	return dst
}

// ForEach visits every live material; returning false stops the walk.
func (mts *MaterialSystem) ForEach(fn func(h containers.Handle, m *resources.Material) bool) {
	mts.pool.ForEach(func(index uint32, m *resources.Material) bool {
		return fn(mts.pool.HandleAt(index), m)
	})
}

// Infos collects a summary of every live material.
func (mts *MaterialSystem) Infos() []MaterialInfo {
	infos := make([]MaterialInfo, 0, mts.pool.Count())
	mts.ForEach(func(h containers.Handle, m *resources.Material) bool {
		infos = append(infos, MaterialInfo{
			Handle:     h,
			UUID:       m.UUID,
			Name:       m.Name,
			RefCount:   m.RefCount,
			Version:    m.Version,
			PhaseCount: len(m.Phases),
			ShaderName: m.ShaderName,
			ActiveMark: m.ActivePhaseMark,
		})
		return true
	})
	return infos
}
