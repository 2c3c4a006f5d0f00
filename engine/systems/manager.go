package systems

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
)

/** @brief Top-level configuration for every resource system. */
type Config struct {
	Meshes    MeshSystemConfig     `toml:"meshes"`
	Textures  TextureSystemConfig  `toml:"textures"`
	Shaders   ShaderSystemConfig   `toml:"shaders"`
	Materials MaterialSystemConfig `toml:"materials"`
	/** @brief Enable the shader hot-reload watcher. */
	ShaderHotReload bool `toml:"shader_hot_reload"`
}

// LoadConfig reads a TOML configuration file. A missing file yields the
// zero config, so every capacity falls back to its default.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config '%s': %w", path, err)
	}
	return cfg, nil
}

/**
 * @brief SystemManager wires the resource systems together and owns
 * their lifecycle. Construction order matters only for dependencies
 * (materials need shaders); shutdown runs in reverse so materials
 * release their shader references into a still-live shader system.
 */
type SystemManager struct {
	Meshes    *MeshSystem
	Textures  *TextureSystem
	Shaders   *ShaderSystem
	Materials *MaterialSystem
	Watcher   *ShaderWatcher
}

// NewSystemManager builds every resource system from the configuration.
func NewSystemManager(cfg Config) (*SystemManager, error) {
	meshes, err := NewMeshSystem(cfg.Meshes)
	if err != nil {
		return nil, fmt.Errorf("mesh system: %w", err)
	}
	textures, err := NewTextureSystem(cfg.Textures)
	if err != nil {
		return nil, fmt.Errorf("texture system: %w", err)
	}
	shaders, err := NewShaderSystem(cfg.Shaders)
	if err != nil {
		return nil, fmt.Errorf("shader system: %w", err)
	}
	materials, err := NewMaterialSystem(cfg.Materials, shaders)
	if err != nil {
		return nil, fmt.Errorf("material system: %w", err)
	}

	sm := &SystemManager{
		Meshes:    meshes,
		Textures:  textures,
		Shaders:   shaders,
		Materials: materials,
	}

	if cfg.ShaderHotReload {
		watcher, err := NewShaderWatcher(shaders)
		if err != nil {
			core.LogWarn("shader hot reload unavailable: %v", err)
		} else {
			sm.Watcher = watcher
		}
	}

	return sm, nil
}

// Shutdown tears the systems down in reverse dependency order.
func (sm *SystemManager) Shutdown() error {
	if sm.Watcher != nil {
		if err := sm.Watcher.Close(); err != nil {
			core.LogWarn("shader watcher close: %v", err)
		}
	}
	if err := sm.Materials.Shutdown(); err != nil {
		return err
	}
	if err := sm.Shaders.Shutdown(); err != nil {
		return err
	}
	if err := sm.Textures.Shutdown(); err != nil {
		return err
	}
	if err := sm.Meshes.Shutdown(); err != nil {
		return err
	}
	containers.InternCleanup()
	return nil
}
