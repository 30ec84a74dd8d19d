// Package dib reads and writes device-independent bitmap structures: the
// BITMAPINFOHEADER, RGBQUAD palettes and BMP files. A Bitmap is also the raw
// frame descriptor handed to the video encoder.
package dib

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/user/camencoder/pkg/media"
)

// InfoHeaderSize is the size of a BITMAPINFOHEADER.
const InfoHeaderSize = 40

const fileHeaderSize = 14

// Compression values.
const (
	CompressionRGB       = 0
	CompressionBitfields = 3
)

var (
	// ErrInvalidBitmap is returned for malformed or unsupported bitmaps.
	ErrInvalidBitmap = errors.New("dib: invalid bitmap")
)

// InfoHeader is a BITMAPINFOHEADER. A negative Height marks a top-down image.
type InfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// ReadInfoHeader reads a little-endian BITMAPINFOHEADER.
func ReadInfoHeader(r io.Reader) (InfoHeader, error) {
	var h InfoHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read bitmap info header: %w", err)
	}
	return h, nil
}

// Write writes the header little-endian.
func (h InfoHeader) Write(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// RGBQuad is one palette entry.
type RGBQuad struct {
	Blue     uint8
	Green    uint8
	Red      uint8
	Reserved uint8
}

// ReadPalette reads n palette entries.
func ReadPalette(r io.Reader, n int) ([]RGBQuad, error) {
	pal := make([]RGBQuad, n)
	if err := binary.Read(r, binary.LittleEndian, pal); err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}
	return pal, nil
}

// WritePalette writes the palette entries.
func WritePalette(w io.Writer, pal []RGBQuad) error {
	return binary.Write(w, binary.LittleEndian, pal)
}

// RowSize returns the 4-byte aligned size of one row.
func RowSize(width, bitCount int) int {
	return ((width*bitCount + 31) / 32) * 4
}

// DefaultColors returns the palette size implied by a bit depth.
func DefaultColors(bitCount int) int {
	if bitCount <= 8 {
		return 1 << bitCount
	}
	return 0
}

// Bitmap is a packed DIB: header, optional palette and pixel rows.
type Bitmap struct {
	Header  InfoHeader
	Palette []RGBQuad
	Pixels  []byte
}

// Width returns the image width in pixels.
func (b *Bitmap) Width() int {
	return int(b.Header.Width)
}

// Height returns the absolute image height in pixels.
func (b *Bitmap) Height() int {
	if b.Header.Height < 0 {
		return int(-b.Header.Height)
	}
	return int(b.Header.Height)
}

// TopDown reports whether the first stored row is the top of the picture.
func (b *Bitmap) TopDown() bool {
	return b.Header.Height < 0
}

// Stride returns the size of one stored row.
func (b *Bitmap) Stride() int {
	return RowSize(b.Width(), int(b.Header.BitCount))
}

// PixelFormat maps the bit depth to a packed pixel format.
func (b *Bitmap) PixelFormat() media.PixelFormat {
	switch b.Header.BitCount {
	case 24:
		return media.PixFmtBGR24
	case 32:
		return media.PixFmtBGRA
	case 8:
		return media.PixFmtPAL8
	default:
		return media.PixFmtNone
	}
}

// Plane returns the pixel rows in top-down order. Bottom-up bitmaps get a
// negative stride starting at the last stored row.
func (b *Bitmap) Plane() media.Plane {
	stride := b.Stride()
	if b.TopDown() {
		return media.Plane{Data: b.Pixels, Stride: stride}
	}
	return media.Plane{Data: b.Pixels, Offset: (b.Height() - 1) * stride, Stride: -stride}
}

// Validate checks that the pixel buffer covers every row.
func (b *Bitmap) Validate() error {
	if b.Width() <= 0 || b.Height() <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBitmap, b.Width(), b.Height())
	}
	if need := b.Stride() * b.Height(); len(b.Pixels) < need {
		return fmt.Errorf("%w: %d pixel bytes, need %d", ErrInvalidBitmap, len(b.Pixels), need)
	}
	return nil
}

// FromImage converts an image into a bottom-up 24-bit bitmap.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	stride := RowSize(w, 24)
	pix := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := pix[(h-1-y)*stride:]
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			row[x*3] = uint8(b >> 8)
			row[x*3+1] = uint8(g >> 8)
			row[x*3+2] = uint8(r >> 8)
		}
	}
	return &Bitmap{
		Header: InfoHeader{
			Size:      InfoHeaderSize,
			Width:     int32(w),
			Height:    int32(h),
			Planes:    1,
			BitCount:  24,
			SizeImage: uint32(len(pix)),
		},
		Pixels: pix,
	}
}

// ReadBMP parses a BMP file. Uncompressed 1-32 bit images are supported;
// 32-bit images with bitfield compression are assumed to be BGRA.
func ReadBMP(r io.Reader) (*Bitmap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bmp: %w", err)
	}
	if len(data) < fileHeaderSize+InfoHeaderSize || data[0] != 'B' || data[1] != 'M' {
		return nil, fmt.Errorf("%w: missing BM signature", ErrInvalidBitmap)
	}
	pixelOffset := int(binary.LittleEndian.Uint32(data[10:14]))

	hdr, err := ReadInfoHeader(bytes.NewReader(data[fileHeaderSize:]))
	if err != nil {
		return nil, err
	}
	if hdr.Size < InfoHeaderSize {
		return nil, fmt.Errorf("%w: header size %d", ErrInvalidBitmap, hdr.Size)
	}
	switch {
	case hdr.Compression == CompressionRGB:
	case hdr.Compression == CompressionBitfields && hdr.BitCount == 32:
	default:
		return nil, fmt.Errorf("%w: compression %d at %d bpp", ErrInvalidBitmap, hdr.Compression, hdr.BitCount)
	}

	palOffset := fileHeaderSize + int(hdr.Size)
	if hdr.Compression == CompressionBitfields && hdr.Size == InfoHeaderSize {
		palOffset += 12
	}

	bmp := &Bitmap{Header: hdr}
	if hdr.BitCount <= 8 {
		n := int(hdr.ClrUsed)
		if n == 0 {
			n = DefaultColors(int(hdr.BitCount))
		}
		if palOffset+n*4 > len(data) {
			return nil, fmt.Errorf("%w: truncated palette", ErrInvalidBitmap)
		}
		bmp.Palette, err = ReadPalette(bytes.NewReader(data[palOffset:]), n)
		if err != nil {
			return nil, err
		}
	}

	size := bmp.Stride() * bmp.Height()
	if pixelOffset+size > len(data) {
		return nil, fmt.Errorf("%w: truncated pixel data", ErrInvalidBitmap)
	}
	bmp.Pixels = data[pixelOffset : pixelOffset+size]
	bmp.Header.SizeImage = uint32(size)
	bmp.Header.Size = InfoHeaderSize
	bmp.Header.Compression = CompressionRGB
	return bmp, bmp.Validate()
}

// WriteBMP writes the bitmap as a BMP file with a BITMAPINFOHEADER.
func WriteBMP(w io.Writer, b *Bitmap) error {
	if err := b.Validate(); err != nil {
		return err
	}
	hdr := b.Header
	hdr.Size = InfoHeaderSize
	hdr.Compression = CompressionRGB
	hdr.ClrUsed = uint32(len(b.Palette))
	size := b.Stride() * b.Height()
	hdr.SizeImage = uint32(size)

	offset := fileHeaderSize + InfoHeaderSize + len(b.Palette)*4
	var fh [fileHeaderSize]byte
	fh[0], fh[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(fh[2:], uint32(offset+size))
	binary.LittleEndian.PutUint32(fh[10:], uint32(offset))
	if _, err := w.Write(fh[:]); err != nil {
		return err
	}
	if err := hdr.Write(w); err != nil {
		return err
	}
	if err := WritePalette(w, b.Palette); err != nil {
		return err
	}
	_, err := w.Write(b.Pixels[:size])
	return err
}
