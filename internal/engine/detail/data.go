package detail

// Projection axes of a tile.
const (
	AxisX uint8 = iota
	AxisY
	AxisZ
)

// Tile identifies the cell a tile of normals belongs to and the axis the
// cell was projected along.
type Tile struct {
	X, Y, Z uint8
	Axis    uint8
}

// TextureData holds encoded tiles of normals, one per processed cell.
type TextureData struct {
	// Encoded normals, tile after tile, each tile in row-major pixel order.
	Normals []byte
	Tiles   []Tile
	// Filled only by edited-tiles-only passes: the cell ordinal each tile
	// came from. Empty means tiles are sequential.
	TileIndices []uint32
}

// Clear empties the data while keeping its storage for reuse.
func (d *TextureData) Clear() {
	d.Normals = d.Normals[:0]
	d.Tiles = d.Tiles[:0]
	d.TileIndices = d.TileIndices[:0]
}

// TileCount returns the number of tiles.
func (d *TextureData) TileCount() int {
	return len(d.Tiles)
}

// TileNormals returns the encoded pixels of tile i.
func (d *TextureData) TileNormals(i, tileResolution, bytesPerPixel int) []byte {
	n := tileResolution * tileResolution * bytesPerPixel
	return d.Normals[i*n : (i+1)*n]
}

// CheckSize reports whether the normals buffer holds exactly one tile of
// pixels per tile record.
func (d *TextureData) CheckSize(tileResolution, bytesPerPixel int) bool {
	return len(d.Normals) == len(d.Tiles)*tileResolution*tileResolution*bytesPerPixel
}

// IsPartial tells whether the data came from an edited-tiles-only pass.
func (d *TextureData) IsPartial() bool {
	return len(d.TileIndices) > 0
}

// ApplyPartial merges the tiles of an edited-tiles-only pass into d, which
// must hold a full pass over the same cells. Tile TileIndices[j] of d is
// replaced by tile j of partial.
func (d *TextureData) ApplyPartial(partial *TextureData, tileResolution, bytesPerPixel int) {
	if debugChecks {
		assertf(!d.IsPartial(), "cannot merge into partial data")
		assertf(len(partial.TileIndices) == len(partial.Tiles), "partial data has %d indices for %d tiles",
			len(partial.TileIndices), len(partial.Tiles))
		assertf(d.CheckSize(tileResolution, bytesPerPixel), "destination size mismatch")
		assertf(partial.CheckSize(tileResolution, bytesPerPixel), "partial size mismatch")
	}
	for j, ti := range partial.TileIndices {
		if int(ti) >= len(d.Tiles) {
			continue
		}
		d.Tiles[ti] = partial.Tiles[j]
		copy(d.TileNormals(int(ti), tileResolution, bytesPerPixel),
			partial.TileNormals(j, tileResolution, bytesPerPixel))
	}
}

// ImageFormat is the pixel layout of an Image.
type ImageFormat int

// Supported image formats.
const (
	FormatRG8 ImageFormat = iota
	FormatRGB8
)

// BytesPerPixel returns the pixel size of the format.
func (f ImageFormat) BytesPerPixel() int {
	if f == FormatRG8 {
		return 2
	}
	return 3
}

func (f ImageFormat) String() string {
	if f == FormatRG8 {
		return "RG8"
	}
	return "RGB8"
}

// Image is a tightly packed, row-major pixel buffer.
type Image struct {
	Width  int
	Height int
	Format ImageFormat
	Pix    []byte
}

// NewImage allocates a zeroed image.
func NewImage(width, height int, format ImageFormat) Image {
	return Image{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

// PixOffset returns the index in Pix of the first byte of pixel (x, y).
func (img *Image) PixOffset(x, y int) int {
	return (y*img.Width + x) * img.Format.BytesPerPixel()
}

// Empty tells whether the image holds no pixels.
func (img *Image) Empty() bool {
	return img.Width == 0 || img.Height == 0
}

func normalsFormat(octahedral bool) ImageFormat {
	if octahedral {
		return FormatRG8
	}
	return FormatRGB8
}
