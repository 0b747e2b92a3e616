package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Detail.Enabled {
		t.Error("expected detail maps to be enabled by default")
	}
	if cfg.Detail.BeginLODIndex != 2 {
		t.Errorf("expected begin LOD 2, got %d", cfg.Detail.BeginLODIndex)
	}
	if cfg.Detail.MaxDeviationDegrees != 60 {
		t.Errorf("expected max deviation 60, got %d", cfg.Detail.MaxDeviationDegrees)
	}
	if cfg.Blocks.Size != 16 {
		t.Errorf("expected block size 16, got %d", cfg.Blocks.Size)
	}
	if cfg.Generator.Type != "noise" {
		t.Errorf("expected generator 'noise', got %s", cfg.Generator.Type)
	}
	if cfg.Output.Format != "png" {
		t.Errorf("expected format 'png', got %s", cfg.Output.Format)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
detail:
  enabled: true
  begin_lod_index: 1
  tile_resolution_min: 8
  tile_resolution_max: 32
  max_deviation_degrees: 45
  octahedral_encoding_enabled: true

blocks:
  origin: [0, -16, 0]
  count: [4, 1, 4]
  size: 32
  lod: 3

generator:
  type: sphere
  radius: 20
  edits:
    - center: [8, 0, 8]
      radius: 3

pipeline:
  workers: 6
  edited_only: true

output:
  dir: out
  format: bmp

logging:
  level: debug
  log_file: detail.log
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Detail.BeginLODIndex != 1 {
		t.Errorf("expected begin LOD 1, got %d", cfg.Detail.BeginLODIndex)
	}
	if cfg.Detail.TileResolutionMax != 32 {
		t.Errorf("expected max resolution 32, got %d", cfg.Detail.TileResolutionMax)
	}
	if !cfg.Detail.OctahedralEncodingEnabled {
		t.Error("expected octahedral encoding to be enabled")
	}
	if cfg.Blocks.Origin != [3]int{0, -16, 0} {
		t.Errorf("expected origin [0 -16 0], got %v", cfg.Blocks.Origin)
	}
	if cfg.Blocks.Count != [3]int{4, 1, 4} {
		t.Errorf("expected count [4 1 4], got %v", cfg.Blocks.Count)
	}
	if cfg.Blocks.LOD != 3 {
		t.Errorf("expected LOD 3, got %d", cfg.Blocks.LOD)
	}
	if cfg.Generator.Type != "sphere" {
		t.Errorf("expected sphere generator, got %s", cfg.Generator.Type)
	}
	if len(cfg.Generator.Edits) != 1 || cfg.Generator.Edits[0].Radius != 3 {
		t.Errorf("expected one edit of radius 3, got %+v", cfg.Generator.Edits)
	}
	// Fields not in the file keep their defaults
	if cfg.Generator.Octaves != 4 {
		t.Errorf("expected default octaves 4, got %d", cfg.Generator.Octaves)
	}
	if cfg.Pipeline.Workers != 6 || !cfg.Pipeline.EditedOnly {
		t.Errorf("unexpected pipeline config %+v", cfg.Pipeline)
	}
	if cfg.Output.Format != "bmp" {
		t.Errorf("expected format bmp, got %s", cfg.Output.Format)
	}
	if cfg.Logging.LogFile != "detail.log" {
		t.Errorf("expected log file 'detail.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
blocks:
  size: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"zero block size", func(c *Config) { c.Blocks.Size = 0 }, "blocks.size"},
		{"huge block size", func(c *Config) { c.Blocks.Size = 512 }, "blocks.size"},
		{"negative lod", func(c *Config) { c.Blocks.LOD = -1 }, "blocks.lod"},
		{"negative count", func(c *Config) { c.Blocks.Count[1] = -2 }, "blocks.count"},
		{"unknown generator", func(c *Config) { c.Generator.Type = "cave" }, "generator"},
		{"unknown format", func(c *Config) { c.Output.Format = "tga" }, "format"},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("expected error mentioning %q, got %v", tt.errSub, err)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()
	savePath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := Default()
	cfg.Blocks.Size = 24
	cfg.Detail.OctahedralEncodingEnabled = true
	cfg.Output.Format = "bmp"

	if err := cfg.SaveTo(savePath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, savePath); err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}

	if loaded.Blocks.Size != 24 {
		t.Errorf("expected block size 24, got %d", loaded.Blocks.Size)
	}
	if !loaded.Detail.OctahedralEncodingEnabled {
		t.Error("expected octahedral encoding to survive a save")
	}
	if loaded.Output.Format != "bmp" {
		t.Errorf("expected format bmp, got %s", loaded.Output.Format)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
	if !strings.Contains(strings.ToLower(dir), "voxel") {
		t.Errorf("expected application name in %s", dir)
	}
}

func TestSaveToConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Blocks.LOD = 5
	path, err := cfg.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Dir(path) != ConfigDir() {
		t.Errorf("expected config in %s, got %s", ConfigDir(), path)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config failed: %v", err)
	}
	if loaded.Blocks.LOD != 5 {
		t.Errorf("expected LOD 5, got %d", loaded.Blocks.LOD)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("blocks:\n  size: 8\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "lod flag",
			setup: func() { *flagLOD = 0 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Blocks.LOD != 0 {
					t.Errorf("expected LOD 0, got %d", cfg.Blocks.LOD)
				}
			},
			teardown: func() { *flagLOD = -1 },
		},
		{
			name:  "octahedral flag",
			setup: func() { *flagOctahedral = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Detail.OctahedralEncodingEnabled {
					t.Error("expected octahedral encoding with octahedral flag")
				}
			},
			teardown: func() { *flagOctahedral = false },
		},
		{
			name: "output flags",
			setup: func() {
				*flagOut = "dump"
				*flagFormat = "bmp"
				*flagWorkers = 3
				*flagGPU = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Dir != "dump" {
					t.Errorf("expected out dir 'dump', got %s", cfg.Output.Dir)
				}
				if cfg.Output.Format != "bmp" {
					t.Errorf("expected format bmp, got %s", cfg.Output.Format)
				}
				if cfg.Pipeline.Workers != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Pipeline.Workers)
				}
				if !cfg.Pipeline.GPU {
					t.Error("expected gpu to be enabled")
				}
			},
			teardown: func() {
				*flagOut = ""
				*flagFormat = ""
				*flagWorkers = 0
				*flagGPU = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
blocks:
  size: 8
  lod: 4
detail:
  max_deviation_degrees: 250
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagLOD = 1
	defer func() {
		*flagConfig = ""
		*flagLOD = -1
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// LOD from flag, size from file
	if cfg.Blocks.LOD != 1 {
		t.Errorf("expected LOD 1 from flag, got %d", cfg.Blocks.LOD)
	}
	if cfg.Blocks.Size != 8 {
		t.Errorf("expected size 8 from file, got %d", cfg.Blocks.Size)
	}
	// Out-of-range settings are clamped
	if cfg.Detail.MaxDeviationDegrees != 179 {
		t.Errorf("expected deviation clamped to 179, got %d", cfg.Detail.MaxDeviationDegrees)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  format: gif\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for unsupported format")
	}
}
