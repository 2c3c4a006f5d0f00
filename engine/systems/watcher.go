package systems

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
)

type watchedShader struct {
	handle       containers.Handle
	name         string
	vertexPath   string
	fragmentPath string
	geometryPath string
}

/**
 * @brief ShaderWatcher hot-reloads shaders from disk: when a watched
 * stage file changes, the sources are re-read and pushed into the shader
 * system. The version bump from SetSources invalidates every cached GPU
 * program, so contexts recompile on next use.
 */
type ShaderWatcher struct {
	shaders *ShaderSystem
	watcher *fsnotify.Watcher
	done    chan bool

	mu       sync.Mutex
	byPath   map[string]*watchedShader
	isClosed bool
}

// NewShaderWatcher creates the watcher and starts its event loop.
func NewShaderWatcher(shaders *ShaderSystem) (*ShaderWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	sw := &ShaderWatcher{
		shaders: shaders,
		watcher: fsw,
		done:    make(chan bool),
		byPath:  make(map[string]*watchedShader),
	}
	go sw.run()
	return sw, nil
}

// Watch registers the stage files of a shader for hot reload. The
// geometry path may be empty.
func (sw *ShaderWatcher) Watch(h containers.Handle, name, vertexPath, fragmentPath, geometryPath string) error {
	entry := &watchedShader{
		handle:       h,
		name:         name,
		vertexPath:   vertexPath,
		fragmentPath: fragmentPath,
		geometryPath: geometryPath,
	}

	paths := []string{vertexPath, fragmentPath}
	if geometryPath != "" {
		paths = append(paths, geometryPath)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	for _, p := range paths {
		if err := sw.watcher.Add(p); err != nil {
			return fmt.Errorf("watch '%s': %w", p, err)
		}
		sw.byPath[p] = entry
	}
	return nil
}

func (sw *ShaderWatcher) run() {
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			sw.mu.Lock()
			entry := sw.byPath[event.Name]
			sw.mu.Unlock()
			if entry != nil {
				sw.reload(entry)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %v", err)
		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) reload(entry *watchedShader) {
	vertex, err := os.ReadFile(entry.vertexPath)
	if err != nil {
		core.LogError("shader reload '%s': %v", entry.name, err)
		return
	}
	fragment, err := os.ReadFile(entry.fragmentPath)
	if err != nil {
		core.LogError("shader reload '%s': %v", entry.name, err)
		return
	}
	geometry := ""
	if entry.geometryPath != "" {
		data, err := os.ReadFile(entry.geometryPath)
		if err != nil {
			core.LogError("shader reload '%s': %v", entry.name, err)
			return
		}
		geometry = string(data)
	}

	if !sw.shaders.IsValid(entry.handle) {
		core.LogWarn("shader reload '%s': shader no longer exists", entry.name)
		return
	}
	if sw.shaders.SetSources(entry.handle, string(vertex), string(fragment), geometry, entry.name, entry.vertexPath) {
		core.LogInfo("reloaded shader '%s'", entry.name)
	}
}

// Close stops the event loop and releases the underlying watcher.
func (sw *ShaderWatcher) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.isClosed {
		return nil
	}
	sw.isClosed = true
	close(sw.done)
	return sw.watcher.Close()
}
