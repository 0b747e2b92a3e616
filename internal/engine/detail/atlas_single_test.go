//go:build !detail_texture_array

package detail

import (
	"testing"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

func TestStoreNormalmapDataToImages(t *testing.T) {
	const res = 4
	const bpp = 3

	// Five tiles, each filled with its own index
	data := TextureData{}
	for i := 0; i < 5; i++ {
		data.Tiles = append(data.Tiles, Tile{X: uint8(i), Axis: AxisY})
		for p := 0; p < res*res*bpp; p++ {
			data.Normals = append(data.Normals, byte(10+i))
		}
	}

	imgs := StoreNormalmapDataToImages(&data, res, math.Vec3i{X: 8, Y: 8, Z: 8}, false)

	if imgs.Atlas.Width != 12 || imgs.Atlas.Height != 12 {
		t.Fatalf("expected 12x12 atlas, got %dx%d", imgs.Atlas.Width, imgs.Atlas.Height)
	}
	if imgs.Atlas.Format != FormatRGB8 {
		t.Errorf("expected RGB8 atlas, got %v", imgs.Atlas.Format)
	}
	if imgs.TileResolution != res {
		t.Errorf("expected tile resolution %d, got %d", res, imgs.TileResolution)
	}

	// Tile 4 lands at column 1, row 1
	pos := AtlasTilePosition(4, 5, res)
	if pos != (math.Vec2i{X: 4, Y: 4}) {
		t.Errorf("expected tile 4 at (4,4), got %v", pos)
	}
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			off := imgs.Atlas.PixOffset(pos.X+x, pos.Y+y)
			if imgs.Atlas.Pix[off] != 14 {
				t.Fatalf("pixel (%d,%d): expected tile 4 data, got %d", pos.X+x, pos.Y+y, imgs.Atlas.Pix[off])
			}
		}
	}

	// Unused slots stay empty
	if imgs.Atlas.Pix[imgs.Atlas.PixOffset(11, 11)] != 0 {
		t.Error("expected unused atlas slot to be zero")
	}

	// Lookup covers 512 cells
	if imgs.Lookup.Width != 23 {
		t.Errorf("expected 23x23 lookup, got %dx%d", imgs.Lookup.Width, imgs.Lookup.Height)
	}
	slot, _, ok := DecodeLookupTexel(imgs.Lookup.Pix[4*2], imgs.Lookup.Pix[4*2+1])
	if !ok || slot != 4 {
		t.Errorf("expected cell (4,0,0) to map to slot 4, got %d %v", slot, ok)
	}
}

func TestStoreNormalmapDataOctahedral(t *testing.T) {
	data := TextureData{
		Tiles:   []Tile{{}, {X: 1}},
		Normals: make([]byte, 2*2*2*2),
	}
	imgs := StoreNormalmapDataToImages(&data, 2, math.Vec3i{X: 2, Y: 1, Z: 1}, true)
	if imgs.Atlas.Format != FormatRG8 {
		t.Errorf("expected RG8 atlas, got %v", imgs.Atlas.Format)
	}
	if imgs.Atlas.Width != 4 || len(imgs.Atlas.Pix) != 4*4*2 {
		t.Errorf("expected 4x4 RG8 atlas, got %dx%d with %d bytes", imgs.Atlas.Width, imgs.Atlas.Height, len(imgs.Atlas.Pix))
	}
}

func TestStoreNormalmapDataEmpty(t *testing.T) {
	imgs := StoreNormalmapDataToImages(&TextureData{}, 4, math.Vec3i{X: 2, Y: 2, Z: 2}, false)
	if !imgs.Atlas.Empty() {
		t.Errorf("expected empty atlas, got %dx%d", imgs.Atlas.Width, imgs.Atlas.Height)
	}
	if imgs.Lookup.Width != 3 {
		t.Errorf("expected 3x3 lookup, got %d", imgs.Lookup.Width)
	}
}
