package detail

import (
	"github.com/Faultbox/voxel-detail/internal/engine/voxel"
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// ComputeParams are the inputs of ComputeTextureData. Mesh buffers are
// read-only and may be shared between concurrent computations.
type ComputeParams struct {
	// Mesh in block-local space, in LOD0 voxel units.
	Vertices []math.Vec3
	Normals  []math.Vec3
	Indices  []int32

	// Pixels per tile side.
	TileResolution int

	// Field the mesh was extracted from, with an optional snapshot of
	// edited voxels.
	Field voxel.Field
	// Block position and size in LOD0 voxels. A zero size skips the
	// bounds check on cell positions.
	Origin math.Vec3i
	Size   math.Vec3i
	// Cells span 2^LODIndex voxels.
	LODIndex int

	OctahedralEncoding  bool
	MaxDeviationRadians float32
	// Only process cells whose samples can reach edited voxels, recording
	// their ordinals in TileIndices.
	EditedTilesOnly bool
	// DirtyTiles marks cell ordinals processed by an edited-tiles-only pass
	// even without edits nearby, such as cells whose geometry changed.
	DirtyTiles []bool
}

// cellTriangle is a triangle of the current cell with its vertex normals.
type cellTriangle struct {
	a, b, c    math.Vec3
	na, nb, nc math.Vec3
}

// ComputeTextureData appends one tile of encoded normals to out for each
// cell it processes. For each cell an axis-aligned projection is chosen
// from the average of its triangle normals. Every pixel of the tile is
// projected onto the cell's triangles along that axis and the field normal
// is sampled there. Normals deviating from the mesh normal by more than
// MaxDeviationRadians are clamped.
//
// Tiles are appended in iteration order. The iterator is rewound first.
func ComputeTextureData(p ComputeParams, it CellIterator, out *TextureData) {
	res := p.TileResolution
	bpp := BytesPerPixel(p.OctahedralEncoding)
	if debugChecks {
		assertf(res > 0, "tile resolution must be positive, got %d", res)
		assertf(len(p.Normals) == 0 || len(p.Normals) == len(p.Vertices),
			"%d normals for %d vertices", len(p.Normals), len(p.Vertices))
		assertf(len(p.Indices)%3 == 0, "index count %d is not a multiple of 3", len(p.Indices))
		assertf(p.LODIndex >= 0 && p.LODIndex < 24, "invalid LOD index %d", p.LODIndex)
		assertf(out.CheckSize(res, bpp), "output already holds mismatched data")
	}

	cellSizeI := 1 << p.LODIndex
	cellSize := float32(cellSizeI)
	origin := p.Origin.ToVec3()
	pixelsPerTile := res * res

	if !p.EditedTilesOnly {
		count := it.Count()
		out.Normals = growBytes(out.Normals, count*pixelsPerTile*bpp)
		out.Tiles = growTiles(out.Tiles, count)
	}

	var info CurrentCellInfo
	var tris [MaxCellTriangles]cellTriangle

	it.Rewind()
	for ordinal := 0; it.Next(&info); ordinal++ {
		cellMin := info.Position.Mul(cellSizeI)
		if debugChecks && p.Size != (math.Vec3i{}) {
			assertf(cellMin.X < p.Size.X && cellMin.Y < p.Size.Y && cellMin.Z < p.Size.Z,
				"cell %v lies outside the %v block", info.Position, p.Size)
		}

		n := int(info.TriangleCount)
		for t := 0; t < n; t++ {
			tris[t] = p.triangle(info.TriangleBeginIndices[t])
		}

		if p.EditedTilesOnly {
			dirty := ordinal < len(p.DirtyTiles) && p.DirtyTiles[ordinal]
			if !dirty {
				from, size := sampleFootprint(cellMin, cellSizeI, tris[:n], p.LODIndex)
				if !p.Field.HasEditedIn(p.Origin.Add(from), size) {
					continue
				}
			}
			out.TileIndices = append(out.TileIndices, uint32(ordinal))
		}

		var normalSum, vertexNormalSum, centroidSum math.Vec3
		for t := 0; t < n; t++ {
			tri := tris[t]
			normalSum = normalSum.Add(tri.b.Sub(tri.a).Cross(tri.c.Sub(tri.a)))
			vertexNormalSum = vertexNormalSum.Add(tri.na).Add(tri.nb).Add(tri.nc)
			centroidSum = centroidSum.Add(tri.a).Add(tri.b).Add(tri.c)
		}

		cellNormal := normalSum.Normalize()
		if cellNormal == (math.Vec3{}) {
			cellNormal = vertexNormalSum.Normalize()
		}
		if cellNormal == (math.Vec3{}) {
			cellNormal = math.Vec3{Y: 1}
		}
		axis := normalSum.LongestAxis()
		if normalSum == (math.Vec3{}) {
			axis = cellNormal.LongestAxis()
		}
		uAxis, vAxis := planeAxes(axis)

		depth := cellMin.ToVec3().Get(axis) + cellSize/2
		if n > 0 {
			depth = centroidSum.Scale(1 / float32(3*n)).Get(axis)
		}

		cellMinF := cellMin.ToVec3()
		for py := 0; py < res; py++ {
			v := cellMinF.Get(vAxis) + (float32(py)+0.5)/float32(res)*cellSize
			for px := 0; px < res; px++ {
				u := cellMinF.Get(uAxis) + (float32(px)+0.5)/float32(res)*cellSize

				samplePos := math.Vec3{}.With(uAxis, u).With(vAxis, v).With(axis, depth)
				ref := cellNormal
				if hitPos, hitNormal, ok := projectOnTriangles(tris[:n], u, v, axis, uAxis, vAxis); ok {
					samplePos = hitPos
					ref = hitNormal
				}

				normal := p.Field.Normal(origin.Add(samplePos), p.LODIndex)
				if normal == (math.Vec3{}) {
					normal = ref
				}
				normal = ClampNormalDeviation(normal, ref, p.MaxDeviationRadians)

				if p.OctahedralEncoding {
					e := EncodeNormalOctahedral(normal)
					out.Normals = append(out.Normals, e[0], e[1])
				} else {
					e := EncodeNormalRaw(normal)
					out.Normals = append(out.Normals, e[0], e[1], e[2])
				}
			}
		}

		if debugChecks {
			assertf(info.Position.X >= 0 && info.Position.X < 256 &&
				info.Position.Y >= 0 && info.Position.Y < 256 &&
				info.Position.Z >= 0 && info.Position.Z < 256,
				"cell position %v does not fit a tile", info.Position)
		}
		out.Tiles = append(out.Tiles, Tile{
			X:    uint8(info.Position.X),
			Y:    uint8(info.Position.Y),
			Z:    uint8(info.Position.Z),
			Axis: uint8(axis),
		})
	}
}

func (p *ComputeParams) triangle(begin uint32) cellTriangle {
	i0, i1, i2 := p.Indices[begin], p.Indices[begin+1], p.Indices[begin+2]
	t := cellTriangle{a: p.Vertices[i0], b: p.Vertices[i1], c: p.Vertices[i2]}
	if len(p.Normals) > 0 {
		t.na, t.nb, t.nc = p.Normals[i0].Normalize(), p.Normals[i1].Normalize(), p.Normals[i2].Normalize()
	} else {
		fn := t.b.Sub(t.a).Cross(t.c.Sub(t.a)).Normalize()
		t.na, t.nb, t.nc = fn, fn, fn
	}
	return t
}

// sampleFootprint returns the block-local lattice box holding every voxel a
// cell's tile reads: the cell and its triangles, widened by the gradient
// step at lod and by the neighbours of trilinear interpolation.
func sampleFootprint(cellMin math.Vec3i, cellSize int, tris []cellTriangle, lod int) (from, size math.Vec3i) {
	lo := cellMin.ToVec3()
	hi := cellMin.Add(math.Vec3i{X: cellSize, Y: cellSize, Z: cellSize}).ToVec3()
	for i := range tris {
		for _, v := range [3]math.Vec3{tris[i].a, tris[i].b, tris[i].c} {
			lo = math.Vec3{X: min(lo.X, v.X), Y: min(lo.Y, v.Y), Z: min(lo.Z, v.Z)}
			hi = math.Vec3{X: max(hi.X, v.X), Y: max(hi.Y, v.Y), Z: max(hi.Z, v.Z)}
		}
	}
	h := 0.5 * float32(int(1)<<lod)
	step := math.Vec3{X: h, Y: h, Z: h}
	one := math.Vec3i{X: 1, Y: 1, Z: 1}
	// Samples on a snapshot's upper faces interpolate from the lattice
	// point below, hence one voxel of margin on both sides
	from = lo.Sub(step).Floor().Sub(one)
	to := hi.Add(step).Floor().Add(one).Add(one)
	return from, to.Sub(from)
}

// planeAxes returns the axes mapped to the tile's horizontal and vertical
// pixel coordinates when projecting along axis. Shaders reading the atlas
// must use the same mapping.
func planeAxes(axis int) (u, v int) {
	switch axis {
	case int(AxisX):
		return 2, 1
	case int(AxisY):
		return 0, 2
	default:
		return 0, 1
	}
}

// projectOnTriangles casts a line along axis through (u, v) and returns the
// point and interpolated vertex normal on the first triangle it crosses.
func projectOnTriangles(tris []cellTriangle, u, v float32, axis, uAxis, vAxis int) (math.Vec3, math.Vec3, bool) {
	const eps = 1e-5
	for i := range tris {
		t := &tris[i]
		au, av := t.a.Get(uAxis), t.a.Get(vAxis)
		bu, bv := t.b.Get(uAxis), t.b.Get(vAxis)
		cu, cv := t.c.Get(uAxis), t.c.Get(vAxis)

		det := (bv-cv)*(au-cu) + (cu-bu)*(av-cv)
		if absf(det) < 1e-9 {
			// Triangle is edge-on to the projection
			continue
		}
		w0 := ((bv-cv)*(u-cu) + (cu-bu)*(v-cv)) / det
		w1 := ((cv-av)*(u-cu) + (au-cu)*(v-cv)) / det
		w2 := 1 - w0 - w1
		if w0 < -eps || w1 < -eps || w2 < -eps {
			continue
		}
		d := t.a.Get(axis)*w0 + t.b.Get(axis)*w1 + t.c.Get(axis)*w2
		pos := math.Vec3{}.With(uAxis, u).With(vAxis, v).With(axis, d)
		n := t.na.Scale(w0).Add(t.nb.Scale(w1)).Add(t.nc.Scale(w2)).Normalize()
		if n == (math.Vec3{}) {
			n = t.b.Sub(t.a).Cross(t.c.Sub(t.a)).Normalize()
		}
		return pos, n, true
	}
	return math.Vec3{}, math.Vec3{}, false
}

func growBytes(s []byte, n int) []byte {
	if cap(s)-len(s) >= n {
		return s
	}
	grown := make([]byte, len(s), len(s)+n)
	copy(grown, s)
	return grown
}

func growTiles(s []Tile, n int) []Tile {
	if cap(s)-len(s) >= n {
		return s
	}
	grown := make([]Tile, len(s), len(s)+n)
	copy(grown, s)
	return grown
}
