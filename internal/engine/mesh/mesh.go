// Package mesh builds simple terrain meshes from volumetric fields, split
// into cells the way detail normal maps expect.
package mesh

import (
	"github.com/Faultbox/voxel-detail/internal/engine/detail"
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// bisectSteps gives sub-millivoxel precision over blocks up to 4096 voxels tall.
const bisectSteps = 22

// Mesh is a block mesh in block-local space, in LOD0 voxel units.
// Triangles are written consecutively per cell, in the order of Cells.
type Mesh struct {
	Vertices []math.Vec3
	Normals  []math.Vec3
	Indices  []int32
	Cells    []detail.CellInfo
	Bounds   Bounds
}

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// CellIterator returns an iterator over the mesh's cells.
func (m *Mesh) CellIterator() *detail.PackedCellIterator {
	return detail.NewPackedCellIterator(m.Cells)
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return len(m.Indices) == 0
}

// BuildHeightfield meshes the surface of field inside a cubic block of
// blockSize cells at lod, each cell spanning 2^lod voxels.
//
// Every grid column is searched for the height where the field turns from
// matter to air. Columns that stay solid or empty over the block's height
// produce no surface, and cells touching them are skipped. Each remaining
// cell gets one quad of two triangles, assigned to the cell row its average
// height falls in. Overhangs are not represented.
func BuildHeightfield(field voxel.Field, origin math.Vec3i, blockSize, lod int) *Mesh {
	cs := 1 << lod
	span := float32(blockSize * cs)
	side := blockSize + 1
	originF := origin.ToVec3()

	heights := make([]float32, side*side)
	found := make([]bool, side*side)
	for z := range side {
		for x := range side {
			wx := originF.X + float32(x*cs)
			wz := originF.Z + float32(z*cs)
			h, ok := surfaceHeight(field, wx, wz, originF.Y, originF.Y+span, lod)
			heights[x+z*side] = h - originF.Y
			found[x+z*side] = ok
		}
	}

	m := &Mesh{
		Bounds: Bounds{
			Min: math.Vec3{X: 1e10, Y: 1e10, Z: 1e10},
			Max: math.Vec3{X: -1e10, Y: -1e10, Z: -1e10},
		},
	}

	// Vertex index per grid corner, created on first use
	vertexIndex := make([]int32, side*side)
	for i := range vertexIndex {
		vertexIndex[i] = -1
	}
	vertex := func(x, z int) int32 {
		i := x + z*side
		if vertexIndex[i] >= 0 {
			return vertexIndex[i]
		}
		p := math.Vec3{X: float32(x * cs), Y: heights[i], Z: float32(z * cs)}
		n := field.Normal(originF.Add(p), lod)
		if n == (math.Vec3{}) {
			n = math.Vec3{Y: 1}
		}
		idx := int32(len(m.Vertices))
		m.Vertices = append(m.Vertices, p)
		m.Normals = append(m.Normals, n)
		updateBounds(&m.Bounds, p)
		vertexIndex[i] = idx
		return idx
	}

	for z := range blockSize {
		for x := range blockSize {
			c00, c10 := x+z*side, x+1+z*side
			c01, c11 := x+(z+1)*side, x+1+(z+1)*side
			if !found[c00] || !found[c10] || !found[c01] || !found[c11] {
				continue
			}

			avg := (heights[c00] + heights[c10] + heights[c01] + heights[c11]) / 4
			cy := min(max(int(avg)/cs, 0), blockSize-1)

			i00, i10 := vertex(x, z), vertex(x+1, z)
			i01, i11 := vertex(x, z+1), vertex(x+1, z+1)

			// Counter-clockwise seen from +Y
			m.Indices = append(m.Indices,
				i00, i01, i10,
				i10, i01, i11,
			)
			m.Cells = append(m.Cells, detail.CellInfo{
				Position:      math.Vec3i{X: x, Y: cy, Z: z},
				TriangleCount: 2,
			})
		}
	}

	if m.Empty() {
		m.Bounds = Bounds{}
	}
	return m
}

// surfaceHeight bisects the column at (x, z) between lo and hi for the
// matter to air transition.
func surfaceHeight(field voxel.Field, x, z, lo, hi float32, lod int) (float32, bool) {
	sdf := func(y float32) float32 {
		return field.SDF(math.Vec3{X: x, Y: y, Z: z}, lod)
	}
	if sdf(lo) >= 0 || sdf(hi) < 0 {
		return 0, false
	}
	for range bisectSteps {
		mid := (lo + hi) / 2
		if sdf(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}

func updateBounds(b *Bounds, p math.Vec3) {
	b.Min = math.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
	b.Max = math.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
}
