//go:build !detail_texture_array

package detail

import (
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// TextureArrayAtlas tells which atlas variant was compiled in.
const TextureArrayAtlas = false

// Images holds a packed atlas of tiles and the lookup image addressing it.
//
// Tiles live in a single square 2D image. Texture arrays were not used by
// default because their layer limit is often too low for large blocks.
type Images struct {
	Atlas  Image
	Lookup Image
	// TileResolution is the side of a tile in pixels.
	TileResolution int
}

// StoreNormalmapDataToImages packs every tile of data into a square atlas
// of SquareGridSize(tiles) tiles per side, tile i at column i%side and row
// i/side, and builds the matching lookup image. blockSize is in cells.
func StoreNormalmapDataToImages(data *TextureData, tileResolution int, blockSize math.Vec3i, octahedral bool) Images {
	format := normalsFormat(octahedral)
	bpp := format.BytesPerPixel()
	if debugChecks {
		assertf(tileResolution > 0, "tile resolution must be positive, got %d", tileResolution)
		assertf(data.CheckSize(tileResolution, bpp), "%d bytes of normals for %d tiles at %dpx",
			len(data.Normals), len(data.Tiles), tileResolution)
	}

	gridSide := SquareGridSize(len(data.Tiles))
	atlasSide := gridSide * tileResolution
	atlas := NewImage(atlasSide, atlasSide, format)

	dstSize := math.Vec2i{X: atlasSide, Y: atlasSide}
	tileSize := math.Vec2i{X: tileResolution, Y: tileResolution}
	for i := range data.Tiles {
		pos := math.Vec2i{
			X: (i % gridSide) * tileResolution,
			Y: (i / gridSide) * tileResolution,
		}
		CopyRegionPackedToAtlased(atlas.Pix, dstSize, data.TileNormals(i, tileResolution, bpp), tileSize, pos, bpp)
	}

	return Images{
		Atlas:          atlas,
		Lookup:         StoreLookupToImage(data.Tiles, blockSize),
		TileResolution: tileResolution,
	}
}

// AtlasTilePosition returns the pixel position of tile slot in an atlas
// holding count tiles.
func AtlasTilePosition(slot, count, tileResolution int) math.Vec2i {
	side := SquareGridSize(count)
	if side == 0 {
		return math.Vec2i{}
	}
	return math.Vec2i{X: (slot % side) * tileResolution, Y: (slot / side) * tileResolution}
}
