// Package detail generates detail normal maps for voxel terrain meshes.
//
// A mesh block is split into cells. Each cell gets a small square tile of
// normals sampled from the volumetric field along the axis that best fits
// the cell's triangles. Tiles are packed into an atlas, and a lookup image
// maps every cell of the block to its tile so a shader can add surface
// detail that the simplified far-LOD mesh no longer carries.
package detail

import "math"

const (
	// MinDeviationDegrees and MaxDeviationDegrees bound Settings.MaxDeviationDegrees.
	MinDeviationDegrees = 1
	MaxDeviationDegrees = 179

	// MaxTileResolution bounds the tile resolution settings.
	MaxTileResolution = 128
)

// Settings controls detail normal map generation.
type Settings struct {
	// If enabled, an atlas of normalmaps is generated for each mesh block
	// from BeginLODIndex onwards.
	Enabled bool `yaml:"enabled"`
	// LOD index from which normalmaps start being generated.
	BeginLODIndex uint8 `yaml:"begin_lod_index"`
	// Tile resolution used at BeginLODIndex. It doubles at each following
	// LOD index, up to TileResolutionMax.
	TileResolutionMin uint8 `yaml:"tile_resolution_min"`
	TileResolutionMax uint8 `yaml:"tile_resolution_max"`
	// Sampled normals deviating more than this from the mesh normal get
	// their direction clamped.
	MaxDeviationDegrees uint8 `yaml:"max_deviation_degrees"`
	// Octahedral encoding uses 2 bytes per pixel instead of 3, at a small
	// cost in precision.
	OctahedralEncodingEnabled bool `yaml:"octahedral_encoding_enabled"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             false,
		BeginLODIndex:       2,
		TileResolutionMin:   4,
		TileResolutionMax:   8,
		MaxDeviationDegrees: 60,
	}
}

// Sanitized returns a copy with every field brought back into range.
func (s Settings) Sanitized() Settings {
	s.MaxDeviationDegrees = clampU8(s.MaxDeviationDegrees, MinDeviationDegrees, MaxDeviationDegrees)
	s.TileResolutionMin = clampU8(s.TileResolutionMin, 1, MaxTileResolution)
	s.TileResolutionMax = clampU8(s.TileResolutionMax, 1, MaxTileResolution)
	if s.TileResolutionMin > s.TileResolutionMax {
		s.TileResolutionMin, s.TileResolutionMax = s.TileResolutionMax, s.TileResolutionMin
	}
	return s
}

// AppliesToLOD tells whether blocks at lod get detail maps.
func (s Settings) AppliesToLOD(lod int) bool {
	return s.Enabled && lod >= int(s.BeginLODIndex)
}

// MaxDeviationRadians returns the clamping angle.
func (s Settings) MaxDeviationRadians() float32 {
	return float32(float64(s.MaxDeviationDegrees) * math.Pi / 180)
}

// BytesPerPixel returns the size of one encoded normal.
func (s Settings) BytesPerPixel() int {
	return BytesPerPixel(s.OctahedralEncodingEnabled)
}

// BytesPerPixel returns 2 for octahedral encoding and 3 otherwise.
func BytesPerPixel(octahedral bool) int {
	if octahedral {
		return 2
	}
	return 3
}

// TileResolutionForLOD returns the tile resolution to use for lod. It is
// non-decreasing with lod and never leaves [min, max].
func TileResolutionForLOD(s Settings, lod int) int {
	lo := int(s.TileResolutionMin)
	hi := int(s.TileResolutionMax)
	rel := lod - int(s.BeginLODIndex)
	if rel <= 0 {
		return lo
	}
	// Past this shift any resolution is above the bound anyway
	if rel >= 8 {
		return max(lo, hi)
	}
	return min(max(lo<<rel, lo), max(hi, lo))
}

func clampU8(v, lo, hi uint8) uint8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
