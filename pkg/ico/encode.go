package ico

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/user/camencoder/pkg/dib"
)

// MaxDIBSize is the largest width or height a DIB sub-image can declare.
const MaxDIBSize = 255

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// EmbedPNG stores images larger than MaxDIBSize as PNG streams. When
	// false such images fail with ErrTooLarge.
	EmbedPNG bool
}

// DefaultEncodeOptions returns the options used for a nil *EncodeOptions.
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{EmbedPNG: true}
}

// Encode writes images as a multi-resolution icon. The header and every
// directory entry come first, followed by the image bodies in order.
func Encode(w io.Writer, images []*Image, opts *EncodeOptions) error {
	if w == nil {
		return ErrNilWriter
	}
	if len(images) == 0 {
		return ErrNoImages
	}
	if opts == nil {
		opts = DefaultEncodeOptions()
	}
	for i, m := range images {
		if err := validate(m); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}

	entries := make([]DirEntry, len(images))
	bodies := make([][]byte, len(images))
	offset := uint32(headerSize + dirEntrySize*len(images))
	for i, m := range images {
		e, body, err := encodeImage(m, opts)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		e.ImageOffset = offset
		offset += e.BytesInRes
		entries[i], bodies[i] = e, body
	}

	h := Header{Type: TypeIcon, Count: uint16(len(images))}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return fmt.Errorf("write directory: %w", err)
	}
	for i, body := range bodies {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("write image %d: %w", i, err)
		}
	}
	return nil
}

func validate(m *Image) error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrEmptyImage)
	}
	if m.Width <= 0 || m.Height <= 0 || len(m.Pixels) < m.Stride()*m.Height {
		return ErrEmptyImage
	}
	switch m.BitCount {
	case 1, 4, 8, 24:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitCount, m.BitCount)
	}
	if m.Paletted() && len(m.Palette) == 0 {
		return ErrNoPalette
	}
	if m.HasAlpha() && len(m.Alpha) < m.Width*m.Height {
		return fmt.Errorf("%w: short alpha plane", ErrEmptyImage)
	}
	return nil
}

func encodeImage(m *Image, opts *EncodeOptions) (DirEntry, []byte, error) {
	var pal []dib.RGBQuad
	if m.Paletted() {
		pal = make([]dib.RGBQuad, dib.DefaultColors(m.BitCount))
		copy(pal, m.Palette)
	}

	bitCount := m.BitCount
	imageSize := m.Stride() * m.Height
	if m.HasAlpha() && !m.Paletted() {
		bitCount = 32
		imageSize = 4 * m.Width * m.Height
	}
	mstride := maskStride(m.Width)
	maskSize := mstride * m.Height

	e := DirEntry{
		Width:      uint8(m.Width),
		Height:     uint8(m.Height),
		ColorCount: uint8(len(pal)),
		BitCount:   uint16(bitCount),
		BytesInRes: uint32(dib.InfoHeaderSize + 4*len(pal) + imageSize + maskSize),
	}

	if m.Width > MaxDIBSize || m.Height > MaxDIBSize {
		if !opts.EmbedPNG {
			return e, nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, m.Width, m.Height)
		}
		var src image.Image = toNRGBA(m)
		if m.Paletted() {
			src = m.paletted()
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return e, nil, fmt.Errorf("encode png: %w", err)
		}
		e.Width, e.Height = 0, 0
		e.BytesInRes = uint32(buf.Len())
		return e, buf.Bytes(), nil
	}

	var buf bytes.Buffer
	buf.Grow(int(e.BytesInRes))
	bih := dib.InfoHeader{
		Size:      dib.InfoHeaderSize,
		Width:     int32(m.Width),
		Height:    int32(2 * m.Height),
		Planes:    1,
		BitCount:  uint16(bitCount),
		SizeImage: uint32(imageSize),
	}
	if err := bih.Write(&buf); err != nil {
		return e, nil, err
	}

	transColor, transparent := m.TransparentColor()
	if pal != nil {
		if transparent && m.TransIndex < len(pal) {
			pal[m.TransIndex] = dib.RGBQuad{}
		}
		if err := dib.WritePalette(&buf, pal); err != nil {
			return e, nil, err
		}
	}

	if bitCount == 32 {
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				c := m.PixelColor(x, y)
				buf.Write([]byte{c.Blue, c.Green, c.Red, m.AlphaAt(x, y)})
			}
		}
	} else {
		buf.Write(m.Pixels[:imageSize])
	}

	mask := make([]byte, maskSize)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			masked := m.HasAlpha() && m.AlphaAt(x, y) == 0
			if transparent && rgbEqual(m.PixelColor(x, y), transColor) {
				masked = true
			}
			if masked {
				mask[y*mstride+(x>>3)] |= 1 << (7 - uint(x&7))
			}
		}
	}
	buf.Write(mask)
	return e, buf.Bytes(), nil
}

// toNRGBA flattens any image for PNG encoding.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
