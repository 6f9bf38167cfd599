package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hubastard/grove3d/engine/colors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendGL     = "gl"
	BackendVulkan = "vulkan"
)

// Config for the engine run.
type Config struct {
	Title      string       `toml:"title" yaml:"title"`
	Width      int          `toml:"width" yaml:"width"`
	Height     int          `toml:"height" yaml:"height"`
	VSync      bool         `toml:"vsync" yaml:"vsync"`
	ClearColor colors.Color `toml:"clear_color" yaml:"clear_color"`

	// Backend selects the GPU API at runtime: "gl" or "vulkan".
	Backend  string `toml:"backend" yaml:"backend"`
	AssetDir string `toml:"asset_dir" yaml:"asset_dir"`
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// Debug enables validation layers (Vulkan) and debug output (GL).
	Debug bool `toml:"debug" yaml:"debug"`

	// MaxTextureUnits caps the per-pass texture unit allocator. Zero means
	// use the backend limit.
	MaxTextureUnits int `toml:"max_texture_units" yaml:"max_texture_units"`
	ShadowMapSize   int `toml:"shadow_map_size" yaml:"shadow_map_size"`
	OffscreenSize   int `toml:"offscreen_size" yaml:"offscreen_size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Title:         "grove3d",
		Width:         1280,
		Height:        720,
		VSync:         true,
		ClearColor:    colors.DarkGray,
		Backend:       BackendGL,
		AssetDir:      "assets",
		LogLevel:      "info",
		ShadowMapSize: 2048,
		OffscreenSize: 1024,
	}
}

var errUnknownConfigFormat = errors.New("unknown config format")

// LoadConfig reads a TOML or YAML file over the defaults. The format is picked
// from the extension.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config %q: %w", path, errUnknownConfigFormat)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects sizes and backends the engine cannot start with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.ShadowMapSize <= 0 || c.OffscreenSize <= 0 {
		return fmt.Errorf("config: shadow map (%d) and offscreen (%d) sizes must be positive", c.ShadowMapSize, c.OffscreenSize)
	}
	if c.MaxTextureUnits < 0 {
		return fmt.Errorf("config: max_texture_units %d is negative", c.MaxTextureUnits)
	}
	switch c.Backend {
	case BackendGL, BackendVulkan:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}
