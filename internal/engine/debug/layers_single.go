//go:build !detail_texture_array

package debug

import "github.com/Faultbox/voxel-detail/internal/engine/detail"

func atlasLayers(images *detail.Images) []detail.Image {
	return []detail.Image{images.Atlas}
}
