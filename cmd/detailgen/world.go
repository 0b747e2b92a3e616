package main

import (
	"fmt"

	"github.com/Faultbox/voxel-detail/internal/config"
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/internal/pipeline"
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// buildBlocks lays out the configured grid of blocks, x fastest.
func buildBlocks(cfg config.BlocksConfig) []pipeline.Block {
	step := cfg.Size << cfg.LOD
	origin := math.Vec3i{X: cfg.Origin[0], Y: cfg.Origin[1], Z: cfg.Origin[2]}

	var blocks []pipeline.Block
	for z := range cfg.Count[2] {
		for y := range cfg.Count[1] {
			for x := range cfg.Count[0] {
				offset := math.Vec3i{X: x, Y: y, Z: z}.Mul(step)
				blocks = append(blocks, pipeline.Block{
					Origin: origin.Add(offset),
					Size:   cfg.Size,
					LOD:    cfg.LOD,
				})
			}
		}
	}
	return blocks
}

// gridBounds returns the voxel box covered by the block grid.
func gridBounds(cfg config.BlocksConfig) (origin, size math.Vec3i) {
	step := cfg.Size << cfg.LOD
	origin = math.Vec3i{X: cfg.Origin[0], Y: cfg.Origin[1], Z: cfg.Origin[2]}
	size = math.Vec3i{X: cfg.Count[0] * step, Y: cfg.Count[1] * step, Z: cfg.Count[2] * step}
	return origin, size
}

// buildGenerator creates the configured field generator. Spheres are
// centered in the block grid.
func buildGenerator(cfg config.GeneratorConfig, blocks config.BlocksConfig) (voxel.Generator, error) {
	switch cfg.Type {
	case "plane":
		return voxel.Plane{Height: float32(cfg.Height)}, nil
	case "sphere":
		origin, size := gridBounds(blocks)
		center := origin.ToVec3().Add(size.ToVec3().Scale(0.5))
		return voxel.Sphere{Center: center, Radius: float32(cfg.Radius)}, nil
	case "noise":
		n := voxel.NewNoise(cfg.Seed)
		n.BaseHeight = cfg.Height
		if cfg.Frequency > 0 {
			n.Frequency = cfg.Frequency
		}
		if cfg.Amplitude > 0 {
			n.Amplitude = cfg.Amplitude
		}
		if cfg.Octaves > 0 {
			n.Octaves = cfg.Octaves
		}
		if cfg.Persistence > 0 {
			n.Persistence = cfg.Persistence
		}
		if cfg.Lacunarity > 0 {
			n.Lacunarity = cfg.Lacunarity
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

// buildSnapshot samples the generator over the whole grid, one voxel past
// its far faces so cells on the border can be interpolated.
func buildSnapshot(gen voxel.Generator, blocks config.BlocksConfig) *voxel.Data {
	origin, size := gridBounds(blocks)
	d := voxel.NewData(origin, size.Add(math.Vec3i{X: 1, Y: 1, Z: 1}))
	d.Fill(gen)
	return d
}

// applyEdits carves the configured holes and returns the voxels changed.
func applyEdits(d *voxel.Data, edits []config.EditConfig) int {
	n := 0
	for _, e := range edits {
		center := math.Vec3{X: float32(e.Center[0]), Y: float32(e.Center[1]), Z: float32(e.Center[2])}
		n += d.CarveSphere(center, float32(e.Radius))
	}
	return n
}
