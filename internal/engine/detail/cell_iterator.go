package detail

import (
	"sort"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

// MaxCellTriangles is the most triangles a cell can contribute.
const MaxCellTriangles = 5

// CurrentCellInfo describes the cell an iterator is positioned on. It is
// overwritten by every call to Next.
type CurrentCellInfo struct {
	// Offsets into the index buffer of the first index of each triangle.
	TriangleBeginIndices [MaxCellTriangles]uint32
	TriangleCount        uint32
	// Position of the cell in the block's cell grid.
	Position math.Vec3i
}

// CellIterator enumerates the non-empty cells of a mesh. Implementations
// depend on how the mesher splits its output into cells.
type CellIterator interface {
	// Count returns the number of cells a full pass yields.
	Count() int
	// Next moves to the next cell and fills info. It returns false once
	// the cells are exhausted; call Rewind before iterating again.
	Next(info *CurrentCellInfo) bool
	// Rewind goes back to the first cell.
	Rewind()
}

// CellInfo is what cell-based meshers record per non-empty cell: its
// position and how many triangles it emitted.
type CellInfo struct {
	Position      math.Vec3i
	TriangleCount uint32
}

// PackedCellIterator walks cells whose triangles were written to the index
// buffer consecutively, in cell order.
type PackedCellIterator struct {
	cells         []CellInfo
	current       int
	triangleBegin uint32
}

// NewPackedCellIterator returns an iterator over cells.
func NewPackedCellIterator(cells []CellInfo) *PackedCellIterator {
	return &PackedCellIterator{cells: cells}
}

// Count implements CellIterator.
func (it *PackedCellIterator) Count() int {
	return len(it.cells)
}

// Next implements CellIterator.
func (it *PackedCellIterator) Next(info *CurrentCellInfo) bool {
	if it.current >= len(it.cells) {
		return false
	}
	c := it.cells[it.current]
	if debugChecks {
		assertf(c.TriangleCount <= MaxCellTriangles, "cell %v has %d triangles", c.Position, c.TriangleCount)
	}
	info.Position = c.Position
	info.TriangleCount = min(c.TriangleCount, MaxCellTriangles)
	for i := uint32(0); i < c.TriangleCount; i++ {
		if i < MaxCellTriangles {
			info.TriangleBeginIndices[i] = it.triangleBegin
		}
		it.triangleBegin += 3
	}
	it.current++
	return true
}

// Rewind implements CellIterator.
func (it *PackedCellIterator) Rewind() {
	it.current = 0
	it.triangleBegin = 0
}

type binnedCell struct {
	position  math.Vec3i
	count     uint32
	triangles [MaxCellTriangles]uint32
}

// BinnedCellIterator groups the triangles of any indexed mesh by the cell
// containing their centroid. Cells are visited in (z, y, x) order. A cell
// keeps at most MaxCellTriangles triangles; extra ones are ignored.
type BinnedCellIterator struct {
	cells   []binnedCell
	current int
}

// NewBinnedCellIterator bins triangles into cubic cells of cellSize.
func NewBinnedCellIterator(vertices []math.Vec3, indices []int32, cellSize float32) *BinnedCellIterator {
	if debugChecks {
		assertf(cellSize > 0, "cell size must be positive, got %v", cellSize)
		assertf(len(indices)%3 == 0, "index count %d is not a multiple of 3", len(indices))
	}
	lookup := make(map[math.Vec3i]int)
	var cells []binnedCell
	inv := 1 / cellSize
	for i := 0; i+2 < len(indices); i += 3 {
		a := vertices[indices[i]]
		b := vertices[indices[i+1]]
		c := vertices[indices[i+2]]
		centroid := a.Add(b).Add(c).Scale(inv / 3)
		pos := centroid.Floor()

		ci, ok := lookup[pos]
		if !ok {
			ci = len(cells)
			lookup[pos] = ci
			cells = append(cells, binnedCell{position: pos})
		}
		cell := &cells[ci]
		if cell.count < MaxCellTriangles {
			cell.triangles[cell.count] = uint32(i)
			cell.count++
		}
	}
	sort.SliceStable(cells, func(i, j int) bool {
		pi, pj := cells[i].position, cells[j].position
		if pi.Z != pj.Z {
			return pi.Z < pj.Z
		}
		if pi.Y != pj.Y {
			return pi.Y < pj.Y
		}
		return pi.X < pj.X
	})
	return &BinnedCellIterator{cells: cells}
}

// Count implements CellIterator.
func (it *BinnedCellIterator) Count() int {
	return len(it.cells)
}

// Next implements CellIterator.
func (it *BinnedCellIterator) Next(info *CurrentCellInfo) bool {
	if it.current >= len(it.cells) {
		return false
	}
	c := &it.cells[it.current]
	info.Position = c.position
	info.TriangleCount = c.count
	info.TriangleBeginIndices = c.triangles
	it.current++
	return true
}

// Rewind implements CellIterator.
func (it *BinnedCellIterator) Rewind() {
	it.current = 0
}
