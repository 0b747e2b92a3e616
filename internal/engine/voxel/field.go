package voxel

import (
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// Field combines a generator with an optional snapshot of voxel data.
// Where the snapshot covers a position its values take precedence, so
// edits show up in sampled normals.
type Field struct {
	Generator Generator
	Data      *Data
}

// SDF returns the field value at pos.
func (f Field) SDF(pos math.Vec3, lod int) float32 {
	if f.Data != nil {
		if v, ok := f.Data.Sample(pos); ok {
			return v
		}
	}
	return f.Generator.SDF(pos, lod)
}

// Normal returns the unit gradient of the field at pos, by central
// differences with a step of half a voxel at lod. The snapshot is only used
// when it covers every sample of the stencil, so its values are never mixed
// with the generator's. Elsewhere the generator's analytic gradient is used
// when it has one.
func (f Field) Normal(pos math.Vec3, lod int) math.Vec3 {
	h := 0.5 * float32(int(1)<<lod)
	step := math.Vec3{X: h, Y: h, Z: h}
	covered := f.Data != nil && f.Data.Contains(pos.Sub(step)) && f.Data.Contains(pos.Add(step))

	var sdf func(math.Vec3, int) float32
	if covered {
		sdf = func(p math.Vec3, _ int) float32 {
			v, _ := f.Data.Sample(p)
			return v
		}
	} else {
		if g, ok := f.Generator.(GradientGenerator); ok {
			return g.Gradient(pos, lod).Normalize()
		}
		sdf = f.Generator.SDF
	}

	dx := math.Vec3{X: h}
	dy := math.Vec3{Y: h}
	dz := math.Vec3{Z: h}
	grad := math.Vec3{
		X: sdf(pos.Add(dx), lod) - sdf(pos.Sub(dx), lod),
		Y: sdf(pos.Add(dy), lod) - sdf(pos.Sub(dy), lod),
		Z: sdf(pos.Add(dz), lod) - sdf(pos.Sub(dz), lod),
	}
	return grad.Normalize()
}

// HasEditedIn reports whether the snapshot holds edits in the box.
// A field without a snapshot has no edits.
func (f Field) HasEditedIn(from, size math.Vec3i) bool {
	if f.Data == nil {
		return false
	}
	return f.Data.HasEditedIn(from, size)
}
