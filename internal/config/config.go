// Package config handles detailgen configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

// Config holds all detailgen settings.
type Config struct {
	Detail    detail.Settings `yaml:"detail"`
	Blocks    BlocksConfig    `yaml:"blocks"`
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BlocksConfig describes the grid of mesh blocks to process.
type BlocksConfig struct {
	// Origin of the first block, in LOD0 voxels.
	Origin [3]int `yaml:"origin"`
	// Number of blocks along each axis.
	Count [3]int `yaml:"count"`
	// Block side in cells. Each cell spans 2^LOD voxels.
	Size int `yaml:"size"`
	LOD  int `yaml:"lod"`
}

// GeneratorConfig selects the volumetric field.
type GeneratorConfig struct {
	Type        string  `yaml:"type"` // plane, sphere or noise
	Seed        int64   `yaml:"seed"`
	Height      float64 `yaml:"height"` // plane height or noise base height
	Radius      float64 `yaml:"radius"` // sphere radius, centered in the grid
	Frequency   float64 `yaml:"frequency"`
	Amplitude   float64 `yaml:"amplitude"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	// Spherical holes dug into an edited snapshot of the field.
	Edits []EditConfig `yaml:"edits"`
}

// EditConfig is a spherical hole carved into the terrain.
type EditConfig struct {
	Center [3]float64 `yaml:"center"`
	Radius float64    `yaml:"radius"`
}

// PipelineConfig holds block processing settings.
type PipelineConfig struct {
	Workers int `yaml:"workers"` // 0 uses GOMAXPROCS
	// Only generate tiles for cells touching edited voxels.
	EditedOnly bool `yaml:"edited_only"`
	// Create GPU textures in a hidden OpenGL context.
	GPU bool `yaml:"gpu"`
}

// OutputConfig holds debug image output settings.
type OutputConfig struct {
	Dir    string `yaml:"dir"` // empty disables image output
	Format string `yaml:"format"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	s := detail.DefaultSettings()
	s.Enabled = true
	return &Config{
		Detail: s,
		Blocks: BlocksConfig{
			Count: [3]int{2, 1, 2},
			Size:  16,
			LOD:   2,
		},
		Generator: GeneratorConfig{
			Type:        "noise",
			Seed:        1,
			Height:      24,
			Radius:      48,
			Frequency:   1.0 / 32.0,
			Amplitude:   12,
			Octaves:     4,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		Pipeline: PipelineConfig{
			Workers: 0,
		},
		Output: OutputConfig{
			Dir:    "",
			Format: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be run.
func (c *Config) Validate() error {
	if c.Blocks.Size <= 0 || c.Blocks.Size > 256 {
		return fmt.Errorf("blocks.size must be in [1, 256], got %d", c.Blocks.Size)
	}
	if c.Blocks.LOD < 0 || c.Blocks.LOD > 16 {
		return fmt.Errorf("blocks.lod must be in [0, 16], got %d", c.Blocks.LOD)
	}
	for i, n := range c.Blocks.Count {
		if n < 0 {
			return fmt.Errorf("blocks.count[%d] is negative", i)
		}
	}
	switch c.Generator.Type {
	case "plane", "sphere", "noise":
	default:
		return fmt.Errorf("unknown generator type %q", c.Generator.Type)
	}
	switch c.Output.Format {
	case "png", "bmp":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers is negative")
	}
	return nil
}
