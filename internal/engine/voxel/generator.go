// Package voxel provides the volumetric signed distance fields that terrain
// meshes and detail normal maps are sampled from.
package voxel

import (
	gomath "math"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

// Generator evaluates a signed distance field. Values are negative inside
// matter and positive in air. Positions are in LOD0 voxel units; lod tells
// the generator how coarse the caller samples, so it may skip detail.
//
// Implementations must be safe for concurrent use.
type Generator interface {
	SDF(pos math.Vec3, lod int) float32
}

// GradientGenerator is implemented by generators that can return the field
// gradient directly instead of relying on finite differences.
type GradientGenerator interface {
	Generator
	Gradient(pos math.Vec3, lod int) math.Vec3
}

// Plane is a flat ground at a fixed height.
type Plane struct {
	Height float32
}

// SDF implements Generator.
func (p Plane) SDF(pos math.Vec3, _ int) float32 {
	return pos.Y - p.Height
}

// Gradient implements GradientGenerator.
func (p Plane) Gradient(math.Vec3, int) math.Vec3 {
	return math.Vec3{Y: 1}
}

// Sphere is a solid ball.
type Sphere struct {
	Center math.Vec3
	Radius float32
}

// SDF implements Generator.
func (s Sphere) SDF(pos math.Vec3, _ int) float32 {
	return pos.Distance(s.Center) - s.Radius
}

// Gradient implements GradientGenerator.
func (s Sphere) Gradient(pos math.Vec3, _ int) math.Vec3 {
	d := pos.Sub(s.Center)
	if d.LengthSquared() == 0 {
		return math.Vec3{Y: 1}
	}
	return d.Normalize()
}

// Noise is a ground surface displaced by fractal 3D value noise. The noise
// term is scaled by Amplitude and added to BaseHeight, so the surface may
// overhang where the noise varies quickly along Y.
type Noise struct {
	Seed        int64
	Frequency   float64 // noise frequency (default: 1/32)
	Amplitude   float64 // height of the displacement in voxels
	Octaves     int
	Persistence float64
	Lacunarity  float64
	BaseHeight  float64
}

// NewNoise returns a noise generator with the defaults used by the CLI.
func NewNoise(seed int64) *Noise {
	return &Noise{
		Seed:        seed,
		Frequency:   1.0 / 32.0,
		Amplitude:   12,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
		BaseHeight:  8,
	}
}

// SDF implements Generator.
func (n *Noise) SDF(pos math.Vec3, lod int) float32 {
	// Octaves finer than the sampling step cannot show up at this LOD.
	octaves := n.Octaves
	if lod > 0 {
		octaves -= lod / 2
	}
	if octaves < 1 {
		octaves = 1
	}
	v := octaveNoise3D(
		float64(pos.X)*n.Frequency,
		float64(pos.Y)*n.Frequency,
		float64(pos.Z)*n.Frequency,
		n.Seed, octaves, n.Persistence, n.Lacunarity)
	// Noise is in [0,1]; recenter to [-1,1]
	v = v*2 - 1
	return float32(float64(pos.Y) - n.BaseHeight - v*n.Amplitude)
}

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hash3 is a SplitMix64 style integer hash, stable across runs.
func hash3(x, y, z, seed int64) uint64 {
	v := uint64(x)*0x8DA6B343 + uint64(y)*0xD8163841 + uint64(z)*0xCB1AB31F + uint64(seed)*0x9E3779B97F4A7C15
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, y, z, seed int64) float64 {
	h := hash3(x, y, z, seed)
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise3D(x, y, z float64, seed int64) float64 {
	x0 := gomath.Floor(x)
	y0 := gomath.Floor(y)
	z0 := gomath.Floor(z)
	fx := fade(x - x0)
	fy := fade(y - y0)
	fz := fade(z - z0)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)

	c000 := latticeValue(ix, iy, iz, seed)
	c100 := latticeValue(ix+1, iy, iz, seed)
	c010 := latticeValue(ix, iy+1, iz, seed)
	c110 := latticeValue(ix+1, iy+1, iz, seed)
	c001 := latticeValue(ix, iy, iz+1, seed)
	c101 := latticeValue(ix+1, iy, iz+1, seed)
	c011 := latticeValue(ix, iy+1, iz+1, seed)
	c111 := latticeValue(ix+1, iy+1, iz+1, seed)

	x00 := lerp(c000, c100, fx)
	x10 := lerp(c010, c110, fx)
	x01 := lerp(c001, c101, fx)
	x11 := lerp(c011, c111, fx)
	return lerp(lerp(x00, x10, fy), lerp(x01, x11, fy), fz)
}

// octaveNoise3D sums octaves of value noise, normalized back to [0,1].
func octaveNoise3D(x, y, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	var sum, norm float64
	amp := 1.0
	freq := 1.0
	for i := 0; i < octaves; i++ {
		sum += valueNoise3D(x*freq, y*freq, z*freq, seed+int64(i)*1013) * amp
		norm += amp
		amp *= persistence
		freq *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
