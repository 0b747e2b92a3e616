//go:build detail_texture_array

package detail

import (
	"github.com/Faultbox/voxel-detail/pkg/math"
)

// TextureArrayAtlas tells which atlas variant was compiled in.
const TextureArrayAtlas = true

// Images holds one atlas layer per tile and the lookup image addressing
// them. The slot stored in the lookup is the layer index.
type Images struct {
	Atlas  []Image
	Lookup Image
	// TileResolution is the side of a tile in pixels.
	TileResolution int
}

// StoreNormalmapDataToImages copies every tile of data into its own layer
// and builds the matching lookup image. blockSize is in cells.
func StoreNormalmapDataToImages(data *TextureData, tileResolution int, blockSize math.Vec3i, octahedral bool) Images {
	format := normalsFormat(octahedral)
	bpp := format.BytesPerPixel()
	if debugChecks {
		assertf(tileResolution > 0, "tile resolution must be positive, got %d", tileResolution)
		assertf(data.CheckSize(tileResolution, bpp), "%d bytes of normals for %d tiles at %dpx",
			len(data.Normals), len(data.Tiles), tileResolution)
	}

	layers := make([]Image, len(data.Tiles))
	for i := range data.Tiles {
		layer := NewImage(tileResolution, tileResolution, format)
		copy(layer.Pix, data.TileNormals(i, tileResolution, bpp))
		layers[i] = layer
	}

	return Images{
		Atlas:          layers,
		Lookup:         StoreLookupToImage(data.Tiles, blockSize),
		TileResolution: tileResolution,
	}
}
