// Package texture uploads detail normal map images to OpenGL textures.
//
// Every function here issues GL calls and must run on the thread owning the
// GL context (see internal/engine/mainthread).
package texture

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

// Texture is an OpenGL texture object.
type Texture struct {
	id     uint32
	target uint32
	width  int
	height int
	format detail.ImageFormat
}

// Handle implements detail.Texture.
func (t *Texture) Handle() uint32 {
	return t.id
}

// Target returns the binding target (TEXTURE_2D or TEXTURE_2D_ARRAY).
func (t *Texture) Target() uint32 {
	return t.target
}

// Release implements detail.Texture.
func (t *Texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// GLMaterializer creates textures with the current GL context.
type GLMaterializer struct{}

// RequiresMainThread implements detail.Materializer. OpenGL contexts are
// bound to one thread, so textures can only be created there.
func (GLMaterializer) RequiresMainThread() bool {
	return true
}

// Materialize implements detail.Materializer.
func (GLMaterializer) Materialize(images *detail.Images) (*detail.Textures, error) {
	// Rows of RGB8 and RG8 images are not 4-byte aligned
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	lookup, err := upload2D(&images.Lookup, gl.NEAREST)
	if err != nil {
		return nil, fmt.Errorf("uploading lookup: %w", err)
	}

	atlas, err := uploadAtlas(images)
	if err != nil {
		lookup.Release()
		return nil, fmt.Errorf("uploading atlas: %w", err)
	}

	out := &detail.Textures{Lookup: lookup}
	// A block without tiles has no atlas
	if atlas != nil {
		out.Atlas = atlas
	}
	return out, nil
}

// upload2D creates a 2D texture from img.
func upload2D(img *detail.Image, filter int32) (*Texture, error) {
	internal, format := glFormat(img.Format)
	tex := &Texture{target: gl.TEXTURE_2D, width: img.Width, height: img.Height, format: img.Format}

	gl.GenTextures(1, &tex.id)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)

	var pix unsafe.Pointer
	if len(img.Pix) > 0 {
		pix = gl.Ptr(img.Pix)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(img.Width), int32(img.Height), 0,
		format, gl.UNSIGNED_BYTE, pix)
	setSampling(gl.TEXTURE_2D, filter)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := checkError(); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

// ReadPixels reads a 2D texture back into an image, for checking uploads.
func (t *Texture) ReadPixels() (detail.Image, error) {
	if t.target != gl.TEXTURE_2D {
		return detail.Image{}, fmt.Errorf("cannot read back texture target 0x%x", t.target)
	}
	img := detail.NewImage(t.width, t.height, t.format)
	if img.Empty() {
		return img, nil
	}
	_, format := glFormat(t.format)

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.GetTexImage(gl.TEXTURE_2D, 0, format, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := checkError(); err != nil {
		return detail.Image{}, err
	}
	return img, nil
}

func setSampling(target uint32, filter int32) {
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

// glFormat returns the internal and client formats for an image format.
func glFormat(f detail.ImageFormat) (int32, uint32) {
	if f == detail.FormatRG8 {
		return gl.RG8, gl.RG
	}
	return gl.RGB8, gl.RGB
}

func checkError() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("GL error 0x%x", code)
	}
	return nil
}
