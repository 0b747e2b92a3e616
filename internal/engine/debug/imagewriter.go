// Package debug writes detail normal map images to disk for inspection.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/voxel-detail/internal/engine/detail"
)

// Format is an output file format.
type Format string

// Supported output formats.
const (
	FormatPNG Format = "png"
	FormatBMP Format = "bmp"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatBMP:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// ImageWriter writes atlas and lookup images as viewable color images.
type ImageWriter struct {
	outputDir string
	prefix    string
	format    Format
}

// NewImageWriter creates a writer saving files named prefix_<name> to outputDir.
func NewImageWriter(outputDir, prefix string, format Format) *ImageWriter {
	if format == "" {
		format = FormatPNG
	}
	return &ImageWriter{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
	}
}

// WriteImages saves the atlas and lookup of one block and returns the
// paths written. Empty images are skipped.
func (w *ImageWriter) WriteImages(name string, images *detail.Images) ([]string, error) {
	var paths []string
	for i, layer := range atlasLayers(images) {
		if layer.Empty() {
			continue
		}
		suffix := "atlas"
		if detail.TextureArrayAtlas {
			suffix = fmt.Sprintf("atlas%03d", i)
		}
		path, err := w.Write(name+"_"+suffix, AtlasToRGBA(layer))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if !images.Lookup.Empty() {
		path, err := w.Write(name+"_lookup", LookupToRGBA(images.Lookup))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Write saves img to the output directory and returns its path.
func (w *ImageWriter) Write(name string, img image.Image) (string, error) {
	if w.outputDir != "" {
		if err := os.MkdirAll(w.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := fmt.Sprintf("%s_%s.%s", w.prefix, name, w.format)
	if w.outputDir != "" {
		filename = filepath.Join(w.outputDir, filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := w.encode(file, img); err != nil {
		return "", fmt.Errorf("encoding %s: %w", w.format, err)
	}
	return filename, nil
}

func (w *ImageWriter) encode(out io.Writer, img image.Image) error {
	if w.format == FormatBMP {
		return bmp.Encode(out, img)
	}
	return png.Encode(out, img)
}

// AtlasToRGBA converts an atlas of encoded normals to an image where each
// normal is shown as its raw color mapping. Octahedral pixels are decoded
// first, so both encodings look the same.
func AtlasToRGBA(img detail.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.PixOffset(x, y)
			var rgb [3]byte
			if img.Format == detail.FormatRG8 {
				n := detail.DecodeNormalOctahedral([2]byte{img.Pix[o], img.Pix[o+1]})
				rgb = detail.EncodeNormalRaw(n)
			} else {
				rgb = [3]byte{img.Pix[o], img.Pix[o+1], img.Pix[o+2]}
			}
			out.SetRGBA(x, y, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}
	return out
}

// axisTint gives each projection axis its own color channel.
var axisTint = [3]color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
}

// LookupToRGBA colors a lookup image by the axis of each cell's tile, with
// brightness cycling over slots so neighboring tiles stand apart. Cells
// without a tile are black.
func LookupToRGBA(img detail.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.PixOffset(x, y)
			slot, axis, ok := detail.DecodeLookupTexel(img.Pix[o], img.Pix[o+1])
			if !ok || int(axis) >= len(axisTint) {
				out.SetRGBA(x, y, color.RGBA{A: 255})
				continue
			}
			scale := uint32(128 + (slot*37)%128)
			t := axisTint[axis]
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(uint32(t.R) * scale / 255),
				G: uint8(uint32(t.G) * scale / 255),
				B: uint8(uint32(t.B) * scale / 255),
				A: 255,
			})
		}
	}
	return out
}
