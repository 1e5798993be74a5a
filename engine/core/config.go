package core

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	EnvLogLevel       = "ANIMA_LOG_LEVEL"
	EnvShaderPlatform = "ANIMA_SHADER_PLATFORM"
)

// MaxBulkDataAlignment is the largest per-slice alignment cooked data may use.
const MaxBulkDataAlignment = 1 << 16

type LogConfig struct {
	Level string `toml:"level"`
}

type TextureSystemConfig struct {
	// The maximum number of texture arrays that can be registered at once.
	MaxTextureCount uint32 `toml:"max_texture_count"`
}

type RenderConfig struct {
	// Capacity of the render command queue. Enqueue blocks when it is full.
	CommandBufferSize int `toml:"command_buffer_size"`
	// Number of command timings kept for reporting.
	HistorySize int `toml:"history_size"`
}

type PlatformConfig struct {
	ShaderPlatform         string `toml:"shader_platform"`
	SupportsTexture2DArray bool   `toml:"supports_texture_2d_array"`
	MaxArrayLayers         uint32 `toml:"max_array_layers"`
	// Per-slice alignment applied by the cooker to every mip's bulk data.
	BulkDataAlignment uint64 `toml:"bulk_data_alignment"`
}

type TextureGroupConfig struct {
	// One of "nearest", "linear", "aniso".
	Filter  string `toml:"filter"`
	LODBias int32  `toml:"lod_bias"`
}

// Config is the engine configuration as read from anima.toml.
type Config struct {
	Log           LogConfig                     `toml:"log"`
	TextureSystem TextureSystemConfig           `toml:"texture_system"`
	Render        RenderConfig                  `toml:"render"`
	Platform      PlatformConfig                `toml:"platform"`
	TextureGroups map[string]TextureGroupConfig `toml:"texture_groups"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		TextureSystem: TextureSystemConfig{
			MaxTextureCount: 1024,
		},
		Render: RenderConfig{
			CommandBufferSize: 64,
			HistorySize:       32,
		},
		Platform: PlatformConfig{
			ShaderPlatform:         "SP_VULKAN_SM5",
			SupportsTexture2DArray: true,
			MaxArrayLayers:         2048,
			BulkDataAlignment:      1,
		},
		TextureGroups: map[string]TextureGroupConfig{
			"World": {Filter: "aniso"},
			"UI":    {Filter: "linear"},
			"Pixels2D": {
				Filter: "nearest",
			},
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error. Variables from envFile (if present) and the process
// environment override the log level and shader platform.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(raw, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing config %q", path)
			}
		case os.IsNotExist(err):
			LogDebug("config file '%s' not found, using defaults", path)
		default:
			return nil, errors.Wrapf(err, "reading config %q", path)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "loading env file %q", envFile)
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvShaderPlatform); v != "" {
		cfg.Platform.ShaderPlatform = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TextureSystem.MaxTextureCount == 0 {
		return errors.New("texture_system.max_texture_count must be > 0")
	}
	if c.Render.CommandBufferSize < 0 {
		return errors.New("render.command_buffer_size must be >= 0")
	}
	if c.Platform.BulkDataAlignment == 0 {
		c.Platform.BulkDataAlignment = 1
	}
	if c.Platform.BulkDataAlignment&(c.Platform.BulkDataAlignment-1) != 0 {
		return errors.Newf("platform.bulk_data_alignment must be a power of two, got %d", c.Platform.BulkDataAlignment)
	}
	if c.Platform.BulkDataAlignment > MaxBulkDataAlignment {
		return errors.Newf("platform.bulk_data_alignment must be at most %d, got %d", MaxBulkDataAlignment, c.Platform.BulkDataAlignment)
	}
	return nil
}

// TextureGroup returns the settings for the named LOD group, or linear
// filtering with no bias when the group is not configured.
func (c *Config) TextureGroup(name string) TextureGroupConfig {
	if g, ok := c.TextureGroups[name]; ok {
		return g
	}
	return TextureGroupConfig{Filter: "linear"}
}
