package detail

import (
	gomath "math"
	"unsafe"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

// MaxLookupSlots is the number of tiles a lookup image can address.
const MaxLookupSlots = 1<<14 - 1

// SquareGridSize returns the side of the smallest square grid holding n
// items: ceil(sqrt(n)), or 0 for 0.
func SquareGridSize(n int) int {
	if n <= 0 {
		return 0
	}
	side := int(gomath.Ceil(gomath.Sqrt(float64(n))))
	// Float rounding can be off by one for large n
	for side*side < n {
		side++
	}
	for side > 1 && (side-1)*(side-1) >= n {
		side--
	}
	return side
}

// CopyRegionPackedToAtlased copies a tightly packed block of srcSize pixels
// into dst, a row-major image of dstSize pixels, with the block's top-left
// corner at dstPos.
func CopyRegionPackedToAtlased(dst []byte, dstSize math.Vec2i, src []byte, srcSize math.Vec2i,
	dstPos math.Vec2i, itemSize int) {
	if debugChecks {
		assertf(srcSize.X >= 0 && srcSize.Y >= 0, "negative source size %v", srcSize)
		assertf(dstSize.X >= 0 && dstSize.Y >= 0, "negative destination size %v", dstSize)
		assertf(dstPos.X >= 0 && dstPos.Y >= 0 &&
			dstPos.X+srcSize.X <= dstSize.X && dstPos.Y+srcSize.Y <= dstSize.Y,
			"region %v+%v does not fit in %v", dstPos, srcSize, dstSize)
		assertf(len(src) == srcSize.Area()*itemSize, "source is %d bytes, expected %d", len(src), srcSize.Area()*itemSize)
		assertf(len(dst) == dstSize.Area()*itemSize, "destination is %d bytes, expected %d", len(dst), dstSize.Area()*itemSize)
		assertf(!overlaps(dst, src), "source and destination overlap")
	}
	srcRow := srcSize.X * itemSize
	dstRow := dstSize.X * itemSize
	d := (dstPos.X + dstPos.Y*dstSize.X) * itemSize
	s := 0
	for y := 0; y < srcSize.Y; y++ {
		copy(dst[d:d+srcRow], src[s:s+srcRow])
		d += dstRow
		s += srcRow
	}
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	a0 := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	b0 := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return a0 < b0+uintptr(len(b)) && b0 < a0+uintptr(len(a))
}

// StoreLookupToImage builds the image a shader uses to find the tile of a
// cell. blockSize is the block size in cells. Cell (x, y, z) maps to texel
// x + y*bx + z*bx*by of a square RG8 image. A zero texel means the cell
// has no tile. Otherwise the 16-bit little-endian value holds slot+1 in
// its low 14 bits and the projection axis in its top 2 bits.
func StoreLookupToImage(tiles []Tile, blockSize math.Vec3i) Image {
	cellCount := blockSize.Volume()
	side := SquareGridSize(cellCount)
	img := NewImage(side, side, FormatRG8)
	if debugChecks {
		assertf(len(tiles) <= MaxLookupSlots, "%d tiles exceed the lookup capacity", len(tiles))
	}
	deck := blockSize.X * blockSize.Y
	for i, t := range tiles {
		if debugChecks {
			assertf(int(t.X) < blockSize.X && int(t.Y) < blockSize.Y && int(t.Z) < blockSize.Z,
				"tile %d at (%d,%d,%d) is outside block %v", i, t.X, t.Y, t.Z, blockSize)
		}
		ti := int(t.X) + int(t.Y)*blockSize.X + int(t.Z)*deck
		r, g := EncodeLookupTexel(i, t.Axis)
		img.Pix[ti*2] = r
		img.Pix[ti*2+1] = g
	}
	return img
}

// EncodeLookupTexel packs an atlas slot and a projection axis.
func EncodeLookupTexel(slot int, axis uint8) (r, g byte) {
	v := uint16(slot+1)&0x3fff | uint16(axis&0x3)<<14
	return byte(v), byte(v >> 8)
}

// DecodeLookupTexel unpacks a lookup texel. ok is false for empty cells.
func DecodeLookupTexel(r, g byte) (slot int, axis uint8, ok bool) {
	v := uint16(r) | uint16(g)<<8
	idx := int(v & 0x3fff)
	if idx == 0 {
		return 0, 0, false
	}
	return idx - 1, uint8(v >> 14), true
}
