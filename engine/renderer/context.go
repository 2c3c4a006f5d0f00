package renderer

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

/**
 * @brief VAOSlot caches the per-context vertex array for one mesh pool
 * index, together with the buffer ids it was built over. When the shared
 * buffers move the cached vertex array is stale and gets rebuilt.
 */
type VAOSlot struct {
	VAO      uint32
	BoundVBO uint32
	BoundEBO uint32
}

/**
 * @brief Context is the per-graphics-context resource state. Contexts in
 * the same ShareGroup see the same textures, programs and mesh buffers
 * but each keeps its own vertex arrays, which graphics APIs do not share.
 */
type Context struct {
	key   string
	group *ShareGroup
	vaos  []VAOSlot

	// Scratch vertex arrays owned by the rendering backend.
	BackendUIVAO        uint32
	BackendImmediateVAO uint32
}

// NewContext creates a context joined to the given share group, taking a
// reference on it. Pass a nil group for a standalone context; one is then
// created (or joined) under the context key.
func NewContext(key string, group *ShareGroup) (*Context, error) {
	ctx := &Context{key: key}
	if group != nil {
		ctx.group = group.Ref()
	} else {
		g, err := GetOrCreateShareGroup(key)
		if err != nil {
			return nil, fmt.Errorf("context '%s': %w", key, err)
		}
		ctx.group = g
	}
	return ctx, nil
}

// Key returns the context key.
func (c *Context) Key() string {
	return c.key
}

// Group returns the share group this context belongs to.
func (c *Context) Group() *ShareGroup {
	return c.group
}

// Destroy deletes every per-context vertex array through the backend and
// drops the context's share group reference, which tears down shared GPU
// objects when this was the last context in the group.
func (c *Context) Destroy() {
	if c == nil {
		return
	}

	ops := GetOps()
	if ops != nil {
		for i := range c.vaos {
			if c.vaos[i].VAO != 0 {
				ops.MeshDelete(c.vaos[i].VAO)
			}
		}
		if c.BackendUIVAO != 0 {
			ops.MeshDelete(c.BackendUIVAO)
		}
		if c.BackendImmediateVAO != 0 {
			ops.MeshDelete(c.BackendImmediateVAO)
		}
	}

	c.group.Unref()
	c.group = nil
	c.vaos = nil

	currentMu.Lock()
	if currentContext == c {
		currentContext = nil
	}
	currentMu.Unlock()
}

// VAOSlot returns the per-context vertex array slot for a mesh pool
// index, growing the table when needed.
func (c *Context) VAOSlot(index uint32) *VAOSlot {
	if index >= uint32(len(c.vaos)) {
		newCap := math.Max(uint32(len(c.vaos)), initialSlotCapacity)
		for newCap <= index {
			newCap *= 2
		}
		grown := make([]VAOSlot, newCap)
		copy(grown, c.vaos)
		c.vaos = grown
	}
	return &c.vaos[index]
}

// TextureSlot returns the shared texture slot for a pool index.
func (c *Context) TextureSlot(index uint32) *GPUSlot {
	return c.group.TextureSlot(index)
}

// ShaderSlot returns the shared shader slot for a pool index.
func (c *Context) ShaderSlot(index uint32) *GPUSlot {
	return c.group.ShaderSlot(index)
}

// MeshDataSlot returns the shared mesh buffer slot for a pool index.
func (c *Context) MeshDataSlot(index uint32) *MeshDataSlot {
	return c.group.MeshDataSlot(index)
}

var (
	currentMu      sync.Mutex
	currentContext *Context
	defaultContext *Context
)

// MakeCurrent installs ctx as the process-wide current context used by
// the package-level Current accessor. Single render thread convenience;
// multi-context applications should hold their own *Context instead.
func MakeCurrent(ctx *Context) {
	currentMu.Lock()
	currentContext = ctx
	currentMu.Unlock()
}

// Current returns the context installed with MakeCurrent, or nil.
func Current() *Context {
	currentMu.Lock()
	defer currentMu.Unlock()
	return currentContext
}

// EnsureDefaultContext installs a process default context when none is
// current, for standalone tools that never create one explicitly.
func EnsureDefaultContext() *Context {
	currentMu.Lock()
	defer currentMu.Unlock()
	if currentContext != nil {
		return currentContext
	}
	if defaultContext == nil {
		ctx, err := NewContext("default", nil)
		if err != nil {
			core.LogError("failed to create default GPU context: %v", err)
			return nil
		}
		defaultContext = ctx
	}
	currentContext = defaultContext
	return currentContext
}
