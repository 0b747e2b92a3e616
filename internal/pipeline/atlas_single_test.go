//go:build !detail_texture_array

package pipeline

import (
	"testing"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

func atlasPix(images *detail.Images) []byte {
	return images.Atlas.Pix
}

// checkAtlasLayout expects tiles packed on the smallest square grid.
func checkAtlasLayout(t *testing.T, images *detail.Images, tiles int) {
	t.Helper()
	side := detail.SquareGridSize(tiles) * images.TileResolution
	if images.Atlas.Width != side || images.Atlas.Height != side {
		t.Errorf("expected %dpx atlas, got %dx%d", side, images.Atlas.Width, images.Atlas.Height)
	}
}
