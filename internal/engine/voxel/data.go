package voxel

import (
	gomath "math"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

// Data is a snapshot of SDF values on the LOD0 voxel lattice over a box,
// together with a mask of voxels that were edited after generation.
//
// A Data is written by one goroutine and may then be read concurrently.
type Data struct {
	Origin math.Vec3i
	Size   math.Vec3i
	sdf    []float32
	edited []bool
}

// NewData allocates a snapshot covering [origin, origin+size).
func NewData(origin, size math.Vec3i) *Data {
	n := size.Volume()
	if n < 0 {
		n = 0
	}
	return &Data{
		Origin: origin,
		Size:   size,
		sdf:    make([]float32, n),
		edited: make([]bool, n),
	}
}

// Fill evaluates gen at every voxel of the snapshot.
func (d *Data) Fill(gen Generator) {
	for z := 0; z < d.Size.Z; z++ {
		for y := 0; y < d.Size.Y; y++ {
			for x := 0; x < d.Size.X; x++ {
				p := d.Origin.Add(math.Vec3i{X: x, Y: y, Z: z})
				d.sdf[d.index(x, y, z)] = gen.SDF(p.ToVec3(), 0)
			}
		}
	}
}

func (d *Data) index(x, y, z int) int {
	return x + d.Size.X*(y+d.Size.Y*z)
}

func (d *Data) local(pos math.Vec3i) (int, int, int, bool) {
	l := pos.Sub(d.Origin)
	if l.X < 0 || l.Y < 0 || l.Z < 0 || l.X >= d.Size.X || l.Y >= d.Size.Y || l.Z >= d.Size.Z {
		return 0, 0, 0, false
	}
	return l.X, l.Y, l.Z, true
}

// Edit stores a value and marks the voxel as edited.
func (d *Data) Edit(pos math.Vec3i, v float32) bool {
	x, y, z, ok := d.local(pos)
	if !ok {
		return false
	}
	i := d.index(x, y, z)
	d.sdf[i] = v
	d.edited[i] = true
	return true
}

// SDFAt returns the stored value at a lattice position.
func (d *Data) SDFAt(pos math.Vec3i) (float32, bool) {
	x, y, z, ok := d.local(pos)
	if !ok {
		return 0, false
	}
	return d.sdf[d.index(x, y, z)], true
}

// Contains reports whether pos can be trilinearly sampled, which needs all
// eight surrounding lattice points inside the snapshot.
func (d *Data) Contains(pos math.Vec3) bool {
	l := pos.Sub(d.Origin.ToVec3())
	return l.X >= 0 && l.Y >= 0 && l.Z >= 0 &&
		l.X <= float32(d.Size.X-1) && l.Y <= float32(d.Size.Y-1) && l.Z <= float32(d.Size.Z-1)
}

// Sample interpolates the SDF at pos. ok is false outside the snapshot.
func (d *Data) Sample(pos math.Vec3) (v float32, ok bool) {
	if !d.Contains(pos) {
		return 0, false
	}
	l := pos.Sub(d.Origin.ToVec3())
	x0 := int(gomath.Floor(float64(l.X)))
	y0 := int(gomath.Floor(float64(l.Y)))
	z0 := int(gomath.Floor(float64(l.Z)))
	// Points on the upper faces interpolate inside the last cell
	if x0 == d.Size.X-1 && x0 > 0 {
		x0--
	}
	if y0 == d.Size.Y-1 && y0 > 0 {
		y0--
	}
	if z0 == d.Size.Z-1 && z0 > 0 {
		z0--
	}
	x1, y1, z1 := min(x0+1, d.Size.X-1), min(y0+1, d.Size.Y-1), min(z0+1, d.Size.Z-1)
	fx, fy, fz := l.X-float32(x0), l.Y-float32(y0), l.Z-float32(z0)

	c000 := d.sdf[d.index(x0, y0, z0)]
	c100 := d.sdf[d.index(x1, y0, z0)]
	c010 := d.sdf[d.index(x0, y1, z0)]
	c110 := d.sdf[d.index(x1, y1, z0)]
	c001 := d.sdf[d.index(x0, y0, z1)]
	c101 := d.sdf[d.index(x1, y0, z1)]
	c011 := d.sdf[d.index(x0, y1, z1)]
	c111 := d.sdf[d.index(x1, y1, z1)]

	x00 := lerpf(c000, c100, fx)
	x10 := lerpf(c010, c110, fx)
	x01 := lerpf(c001, c101, fx)
	x11 := lerpf(c011, c111, fx)
	return lerpf(lerpf(x00, x10, fy), lerpf(x01, x11, fy), fz), true
}

// HasEditedIn reports whether any edited voxel lies in [from, from+size).
func (d *Data) HasEditedIn(from, size math.Vec3i) bool {
	lo := from.Sub(d.Origin)
	hi := lo.Add(size)
	lo = math.Vec3i{X: max(lo.X, 0), Y: max(lo.Y, 0), Z: max(lo.Z, 0)}
	hi = math.Vec3i{X: min(hi.X, d.Size.X), Y: min(hi.Y, d.Size.Y), Z: min(hi.Z, d.Size.Z)}
	for z := lo.Z; z < hi.Z; z++ {
		for y := lo.Y; y < hi.Y; y++ {
			for x := lo.X; x < hi.X; x++ {
				if d.edited[d.index(x, y, z)] {
					return true
				}
			}
		}
	}
	return false
}

// CarveSphere digs a spherical hole of air into the snapshot and returns
// how many voxels changed. Carved voxels are marked as edited.
func (d *Data) CarveSphere(center math.Vec3, radius float32) int {
	lo := center.Sub(math.Vec3{X: radius, Y: radius, Z: radius}).Floor()
	hi := center.Add(math.Vec3{X: radius, Y: radius, Z: radius}).Floor()
	n := 0
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p := math.Vec3i{X: x, Y: y, Z: z}
				cur, ok := d.SDFAt(p)
				if !ok {
					continue
				}
				// Union of air: the larger distance wins
				hole := radius - p.ToVec3().Distance(center)
				if hole > cur {
					d.Edit(p, hole)
					n++
				}
			}
		}
	}
	return n
}

// EditedCount returns how many voxels are marked as edited.
func (d *Data) EditedCount() int {
	n := 0
	for _, e := range d.edited {
		if e {
			n++
		}
	}
	return n
}

func lerpf(a, b, t float32) float32 {
	return a + t*(b-a)
}
