//go:build detail_texture_array

package pipeline

import (
	"testing"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

func atlasPix(images *detail.Images) []byte {
	var pix []byte
	for _, layer := range images.Atlas {
		pix = append(pix, layer.Pix...)
	}
	return pix
}

// checkAtlasLayout expects one layer per tile.
func checkAtlasLayout(t *testing.T, images *detail.Images, tiles int) {
	t.Helper()
	if len(images.Atlas) != tiles {
		t.Fatalf("expected %d layers, got %d", tiles, len(images.Atlas))
	}
	for i, layer := range images.Atlas {
		if layer.Width != images.TileResolution || layer.Height != images.TileResolution {
			t.Errorf("layer %d: expected %dpx, got %dx%d", i, images.TileResolution, layer.Width, layer.Height)
		}
	}
}
