//go:build !detail_texture_array

package texture

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

// uploadAtlas creates the 2D atlas texture, or nil when there are no tiles.
func uploadAtlas(images *detail.Images) (*Texture, error) {
	if images.Atlas.Empty() {
		return nil, nil
	}
	return upload2D(&images.Atlas, gl.LINEAR)
}
