//go:build detail_texture_array

package texture

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

// uploadAtlas creates a texture array with one layer per tile, or nil when
// there are no tiles.
func uploadAtlas(images *detail.Images) (*Texture, error) {
	if len(images.Atlas) == 0 {
		return nil, nil
	}
	if err := checkLayers(images.Atlas); err != nil {
		return nil, err
	}
	first := &images.Atlas[0]
	internal, format := glFormat(first.Format)
	tex := &Texture{target: gl.TEXTURE_2D_ARRAY, width: first.Width, height: first.Height, format: first.Format}

	gl.GenTextures(1, &tex.id)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex.id)
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, internal, int32(first.Width), int32(first.Height),
		int32(len(images.Atlas)), 0, format, gl.UNSIGNED_BYTE, nil)
	for i := range images.Atlas {
		layer := &images.Atlas[i]
		gl.TexSubImage3D(gl.TEXTURE_2D_ARRAY, 0, 0, 0, int32(i), int32(layer.Width), int32(layer.Height), 1,
			format, gl.UNSIGNED_BYTE, gl.Ptr(layer.Pix))
	}
	setSampling(gl.TEXTURE_2D_ARRAY, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)

	if err := checkError(); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

// checkLayers verifies that all layers match the first one, which sets the
// array's size and format.
func checkLayers(layers []detail.Image) error {
	first := &layers[0]
	if first.Empty() {
		return fmt.Errorf("layer 0 is empty")
	}
	for i := 1; i < len(layers); i++ {
		l := &layers[i]
		if l.Width != first.Width || l.Height != first.Height || l.Format != first.Format {
			return fmt.Errorf("layer %d is %dx%d %v, expected %dx%d %v",
				i, l.Width, l.Height, l.Format, first.Width, first.Height, first.Format)
		}
	}
	return nil
}
