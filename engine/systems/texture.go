package systems

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/resources"
)

/** @brief Configuration for the texture system. */
type TextureSystemConfig struct {
	InitialCapacity uint32 `toml:"initial_capacity"`
}

/** @brief Summary of one registered texture. */
type TextureInfo struct {
	Handle      containers.Handle
	UUID        string
	Name        string
	RefCount    uint32
	Version     uint32
	Width       uint32
	Height      uint32
	Channels    uint8
	MemoryBytes int
	Loaded      bool
	HasLoader   bool
}

/**
 * @brief TextureSystem owns every texture resource. Pixel-identical
 * textures deduplicate through their content-derived uuid.
 */
type TextureSystem struct {
	pool      *containers.Pool[resources.Texture]
	uuidIndex *containers.ResourceMap
	nextUUID  uint64
}

// NewTextureSystem creates the texture system.
func NewTextureSystem(config TextureSystemConfig) (*TextureSystem, error) {
	capacity := config.InitialCapacity
	if capacity == 0 {
		capacity = 64
	}
	return &TextureSystem{
		pool:      containers.NewPool[resources.Texture](capacity),
		uuidIndex: containers.NewResourceMap(),
	}, nil
}

// Shutdown drops every texture regardless of reference counts.
func (ts *TextureSystem) Shutdown() error {
	ts.pool.Clear()
	ts.uuidIndex.Clear()
	return nil
}

// Create registers an empty texture under the given uuid, or under a
// generated one when uuid is empty. New textures default to a vertical
// flip on upload, matching image files whose first row is the top.
func (ts *TextureSystem) Create(uuid string) containers.Handle {
	finalUUID := uuid
	if finalUUID == "" {
		finalUUID = core.PrefixedUUID("tex", &ts.nextUUID)
	} else if ts.Contains(finalUUID) {
		core.LogWarn("texture create: uuid '%s' already exists", finalUUID)
		return containers.InvalidHandle()
	}

	h := ts.pool.Alloc()
	t := ts.pool.Get(h)
	t.UUID = finalUUID
	t.Version = 1
	t.PoolIndex = h.Index
	t.Loaded = true
	t.FlipY = true

	if !ts.uuidIndex.Add(finalUUID, h.Index) {
		core.LogError("texture create: failed to index uuid '%s'", finalUUID)
		ts.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// Find returns the handle for a uuid, or the invalid handle.
func (ts *TextureSystem) Find(uuid string) containers.Handle {
	index, ok := ts.uuidIndex.Get(uuid)
	if !ok {
		return containers.InvalidHandle()
	}
	return ts.pool.HandleAt(index)
}

// FindByName returns the first texture whose name matches.
func (ts *TextureSystem) FindByName(name string) containers.Handle {
	result := containers.InvalidHandle()
	ts.pool.ForEach(func(index uint32, t *resources.Texture) bool {
		if t.Name == name {
			result = ts.pool.HandleAt(index)
			return false
		}
		return true
	})
	return result
}

// GetOrCreate returns the existing texture for uuid or creates one.
func (ts *TextureSystem) GetOrCreate(uuid string) containers.Handle {
	if uuid == "" {
		core.LogWarn("texture get-or-create: empty uuid")
		return containers.InvalidHandle()
	}
	if h := ts.Find(uuid); h.IsValid() && ts.pool.IsValid(h) {
		return h
	}
	return ts.Create(uuid)
}

// CreateFromPixels registers pixel data under its content-derived uuid,
// returning the existing texture when identical pixels were registered
// before.
func (ts *TextureSystem) CreateFromPixels(pixels []byte, width, height uint32, channels uint8, name, sourcePath string) (containers.Handle, error) {
	uuid := resources.TextureUUID(pixels, width, height, channels)
	if h := ts.Find(uuid); h.IsValid() && ts.pool.IsValid(h) {
		return h, nil
	}
	h := ts.Create(uuid)
	if !h.IsValid() {
		return h, fmt.Errorf("texture '%s': create failed", name)
	}
	if !ts.SetData(h, pixels, width, height, channels, name, sourcePath) {
		ts.Destroy(h)
		return containers.InvalidHandle(), fmt.Errorf("texture '%s': set data failed", name)
	}
	return h, nil
}

// Declare registers a texture to be loaded later: version 0, not loaded.
// Returns the existing handle when the uuid is already registered.
func (ts *TextureSystem) Declare(uuid, name string) containers.Handle {
	if existing := ts.Find(uuid); existing.IsValid() && ts.pool.IsValid(existing) {
		return existing
	}

	h := ts.pool.Alloc()
	t := ts.pool.Get(h)
	t.UUID = uuid
	t.PoolIndex = h.Index
	t.FlipY = true
	if name != "" {
		t.Name = containers.InternString(name)
	}

	if !ts.uuidIndex.Add(uuid, h.Index) {
		core.LogError("texture declare: failed to index uuid '%s'", uuid)
		ts.pool.Free(h)
		return containers.InvalidHandle()
	}
	return h
}

// SetLoadCallback attaches the lazy loader to a declared texture.
func (ts *TextureSystem) SetLoadCallback(h containers.Handle, fn resources.LoadFunc, userData interface{}) {
	if t := ts.Get(h); t != nil {
		t.SetLoadCallback(fn, userData)
	}
}

// IsLoaded reports whether the texture data is present.
func (ts *TextureSystem) IsLoaded(h containers.Handle) bool {
	t := ts.Get(h)
	return t != nil && t.Loaded
}

// EnsureLoaded triggers the lazy loader when the texture is declared but
// not yet loaded.
func (ts *TextureSystem) EnsureLoaded(h containers.Handle) bool {
	t := ts.Get(h)
	if t == nil {
		return false
	}
	if t.Loaded {
		return true
	}
	if t.LoadCallback == nil {
		core.LogWarn("texture '%s' has no load callback", t.UUID)
		return false
	}
	if !t.EnsureLoaded(t) {
		core.LogError("texture load callback failed for '%s'", t.UUID)
		return false
	}
	return true
}

// Get returns the texture for a handle, or nil when the handle is stale.
func (ts *TextureSystem) Get(h containers.Handle) *resources.Texture {
	return ts.pool.Get(h)
}

// IsValid reports whether the handle still refers to a live texture.
func (ts *TextureSystem) IsValid(h containers.Handle) bool {
	return ts.pool.IsValid(h)
}

// Destroy removes the texture and its index entry.
func (ts *TextureSystem) Destroy(h containers.Handle) bool {
	t := ts.Get(h)
	if t == nil {
		return false
	}
	ts.uuidIndex.Remove(t.UUID)
	t.Pixels = nil
	return ts.pool.Free(h)
}

// Contains reports whether a uuid is registered.
func (ts *TextureSystem) Contains(uuid string) bool {
	return ts.uuidIndex.Contains(uuid)
}

// Count returns the number of live textures.
func (ts *TextureSystem) Count() int {
	return ts.pool.Count()
}

// AddRef takes a reference on the texture.
func (ts *TextureSystem) AddRef(h containers.Handle) {
	if t := ts.Get(h); t != nil {
		t.RefCount++
	}
}

// Release drops a reference; the texture is destroyed at zero. Releasing
// an unreferenced texture logs a warning and returns false.
func (ts *TextureSystem) Release(h containers.Handle) bool {
	t := ts.Get(h)
	if t == nil {
		return false
	}
	if t.RefCount == 0 {
		core.LogWarn("texture release: uuid=%s name=%s refcount already zero", t.UUID, t.Name)
		return false
	}
	t.RefCount--
	if t.RefCount == 0 {
		return ts.Destroy(h)
	}
	return false
}

// SetData replaces the pixel blob, bumping the version and marking the
// texture loaded.
func (ts *TextureSystem) SetData(h containers.Handle, pixels []byte, width, height uint32, channels uint8, name, sourcePath string) bool {
	t := ts.Get(h)
	if t == nil {
		return false
	}
	size := int(width) * int(height) * int(channels)
	blob := make([]byte, size)
	copy(blob, pixels)
	t.Pixels = blob
	t.Width = width
	t.Height = height
	t.Channels = channels
	t.Format = resources.TextureRGBA8
	t.BumpVersion()
	t.Loaded = true
	if name != "" {
		t.Name = containers.InternString(name)
	}
	if sourcePath != "" {
		t.SourcePath = containers.InternString(sourcePath)
	}
	return true
}

// SetTransforms sets the upload-time orientation flags, bumping the
// version so cached GPU copies re-upload.
func (ts *TextureSystem) SetTransforms(h containers.Handle, flipX, flipY, transpose bool) {
	t := ts.Get(h)
	if t == nil {
		return
	}
	t.FlipX = flipX
	t.FlipY = flipY
	t.Transpose = transpose
	t.BumpVersion()
}

// ForEach visits every live texture; returning false stops the walk.
func (ts *TextureSystem) ForEach(fn func(h containers.Handle, t *resources.Texture) bool) {
	ts.pool.ForEach(func(index uint32, t *resources.Texture) bool {
		return fn(ts.pool.HandleAt(index), t)
	})
}

// Infos collects a summary of every live texture.
func (ts *TextureSystem) Infos() []TextureInfo {
	infos := make([]TextureInfo, 0, ts.pool.Count())
	ts.ForEach(func(h containers.Handle, t *resources.Texture) bool {
		infos = append(infos, TextureInfo{
			Handle:      h,
			UUID:        t.UUID,
			Name:        t.Name,
			RefCount:    t.RefCount,
			Version:     t.Version,
			Width:       t.Width,
			Height:      t.Height,
			Channels:    t.Channels,
			MemoryBytes: t.DataSize(),
			Loaded:      t.Loaded,
			HasLoader:   t.LoadCallback != nil,
		})
		return true
	})
	return infos
}
