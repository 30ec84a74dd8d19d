package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/camencoder/pkg/dib"
)

func truecolor(t *testing.T, w, h int) *Image {
	t.Helper()
	m, err := NewImage(w, h, 24)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetPixelColor(x, y, dib.RGBQuad{Red: uint8(10 * x), Green: uint8(20 * y), Blue: uint8(x + y + 1)})
		}
	}
	return m
}

func paletted(t *testing.T, w, h, bits int) *Image {
	t.Helper()
	m, err := NewImage(w, h, bits)
	require.NoError(t, err)
	for i := range m.Palette {
		m.Palette[i] = dib.RGBQuad{Red: uint8(i * 3), Green: uint8(i * 5), Blue: uint8(255 - i)}
	}
	return m
}

func encode(t *testing.T, images ...*Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, images, nil))
	return buf.Bytes()
}

func assertSameImage(t *testing.T, want, got *Image) {
	t.Helper()
	assert.Equal(t, want.Width, got.Width)
	assert.Equal(t, want.Height, got.Height)
	assert.Equal(t, want.BitCount, got.BitCount)
	assert.Equal(t, want.Pixels, got.Pixels)
	assert.Equal(t, want.Alpha, got.Alpha)
	assert.Equal(t, want.Palette, got.Palette)
	assert.Equal(t, want.TransIndex, got.TransIndex)
}

func TestRoundTrip_MultiFrame(t *testing.T) {
	rgb := truecolor(t, 3, 2)

	rgba := truecolor(t, 5, 4)
	rgba.createAlpha()
	rgba.setAlpha(0, 0, 0)
	rgba.setAlpha(4, 3, 128)

	mono := paletted(t, 8, 8, 1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			mono.SetPixelIndex(x, y, (x+y)&1)
		}
	}

	pal8 := paletted(t, 16, 16, 8)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			pal8.SetPixelIndex(x, y, (x*y)%7)
		}
	}

	data := encode(t, rgb, rgba, mono, pal8)
	got, err := DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 4)

	assertSameImage(t, rgb, got[0])
	assertSameImage(t, rgba, got[1])
	assertSameImage(t, mono, got[2])
	assertSameImage(t, pal8, got[3])
}

func TestEncode_Layout(t *testing.T) {
	a := truecolor(t, 3, 2)
	b := paletted(t, 4, 4, 4)
	data := encode(t, a, b)

	assert.Equal(t, []byte{0, 0, 1, 0, 2, 0}, data[:6])

	h, entries, err := ReadDirectory(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Header{Type: TypeIcon, Count: 2}, h)
	require.Len(t, entries, 2)

	// 3x2 at 24 bits: header, 2 rows of 12 bytes, 2 mask rows of 4 bytes.
	assert.Equal(t, DirEntry{Width: 3, Height: 2, BitCount: 24, BytesInRes: 40 + 24 + 8, ImageOffset: 38}, entries[0])
	// 4x4 at 4 bits: header, 16 palette entries, 4 rows of 4 bytes, 4 mask rows.
	assert.Equal(t, DirEntry{Width: 4, Height: 4, ColorCount: 16, BitCount: 4, BytesInRes: 40 + 64 + 16 + 16, ImageOffset: 38 + 72}, entries[1])
	assert.Len(t, data, 38+72+136)

	bih, err := dib.ReadInfoHeader(bytes.NewReader(data[38:]))
	require.NoError(t, err)
	assert.Equal(t, int32(4), bih.Height, "height covers XOR and AND masks")
	assert.Equal(t, uint16(1), bih.Planes)
	assert.Equal(t, uint32(24), bih.SizeImage)
}

func TestEncode_AlphaWritesBGRA(t *testing.T) {
	m := truecolor(t, 2, 1)
	m.createAlpha()
	m.setAlpha(1, 0, 0)
	data := encode(t, m)

	_, entries, err := ReadDirectory(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint16(32), entries[0].BitCount)

	body := data[entries[0].ImageOffset:]
	px := body[dib.InfoHeaderSize:]
	assert.Equal(t, []byte{1, 0, 0, 255, 2, 0, 10, 0}, px[:8])
	assert.Equal(t, []byte{0x40, 0, 0, 0}, px[8:12], "second pixel masked")
}

func TestDecode_ReservedRejectedWithoutReadingFurther(t *testing.T) {
	r := &limitedReader{data: []byte{1, 0, 1, 0, 1, 0, 0xAA, 0xBB}, limit: 6}
	_, err := DecodeFrame(r, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.ErrorIs(t, err, ErrFormat)
	assert.LessOrEqual(t, r.pos, 6)

	_, err = Decode(bytes.NewReader([]byte{0, 0, 3, 0, 1, 0}))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

type limitedReader struct {
	data  []byte
	pos   int
	limit int
}

func (r *limitedReader) Read(p []byte) (int, error) {
	if r.pos >= r.limit {
		return 0, errors.New("read past header")
	}
	n := copy(p, r.data[r.pos:r.limit])
	r.pos += n
	return n, nil
}

func TestDecode_CursorAccepted(t *testing.T) {
	data := encode(t, truecolor(t, 2, 2))
	data[2] = TypeCursor
	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Width)
}

func TestDecode_FrameIndex(t *testing.T) {
	data := encode(t, truecolor(t, 2, 2))
	_, err := DecodeFrame(bytes.NewReader(data), 1)
	assert.ErrorIs(t, err, ErrFrameIndex)
	_, err = DecodeFrame(bytes.NewReader(data), -1)
	assert.ErrorIs(t, err, ErrFrameIndex)
}

// icon32 builds a 1x1 32-bit icon by hand.
func icon32(bgra [4]byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, Header{Type: TypeIcon, Count: 1})
	binary.Write(&buf, binary.LittleEndian, DirEntry{
		Width: 1, Height: 1, Planes: 1, BitCount: 32,
		BytesInRes: 40 + 4 + 4, ImageOffset: 22,
	})
	dib.InfoHeader{Size: 40, Width: 1, Height: 2, Planes: 1, BitCount: 32}.Write(&buf)
	buf.Write(bgra[:])
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

func TestDecode_32BitSplitsAlpha(t *testing.T) {
	m, err := DecodeFrame(bytes.NewReader(icon32([4]byte{10, 20, 30, 255})), 0)
	require.NoError(t, err)
	assert.Equal(t, 24, m.BitCount)
	assert.Equal(t, dib.RGBQuad{Red: 30, Green: 20, Blue: 10}, m.PixelColor(0, 0))
	assert.Equal(t, byte(255), m.AlphaAt(0, 0))
	assert.True(t, m.HasAlpha())
	assert.Equal(t, color.NRGBA{R: 30, G: 20, B: 10, A: 255}, m.At(0, 0))
}

func TestDecode_UnsupportedBitCount(t *testing.T) {
	data := icon32([4]byte{})
	binary.LittleEndian.PutUint16(data[22+14:], 16)
	_, err := DecodeFrame(bytes.NewReader(data), 0)
	assert.ErrorIs(t, err, ErrUnsupportedBitCount)
}

// fillMask sets every mask byte of the only frame in data to v.
func fillMask(t *testing.T, data []byte, v byte) {
	t.Helper()
	_, entries, err := ReadDirectory(bytes.NewReader(data))
	require.NoError(t, err)
	e := entries[0]
	maskSize := maskStride(int(e.Width)) * int(e.Height)
	end := int(e.ImageOffset + e.BytesInRes)
	for i := end - maskSize; i < end; i++ {
		data[i] = v
	}
}

func TestDecode_NegativeFallback(t *testing.T) {
	t.Run("truecolor inverts pixel bytes", func(t *testing.T) {
		src := truecolor(t, 2, 2)
		data := encode(t, src)
		fillMask(t, data, 0xFF)

		m, err := DecodeFrame(bytes.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, 0, m.TransIndex)
		require.Len(t, m.Pixels, len(src.Pixels))
		for i := range src.Pixels {
			assert.Equal(t, ^src.Pixels[i], m.Pixels[i], "byte %d", i)
		}
		assert.False(t, m.HasAlpha())
	})

	t.Run("palette is inverted", func(t *testing.T) {
		src := paletted(t, 8, 2, 8)
		src.SetPixelIndex(3, 1, 9)
		data := encode(t, src)
		fillMask(t, data, 0xFF)

		m, err := DecodeFrame(bytes.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, 0, m.TransIndex)
		assert.Equal(t, src.Pixels, m.Pixels)
		assert.Equal(t, dib.RGBQuad{Red: ^uint8(27), Green: ^uint8(45), Blue: ^uint8(246)}, m.Palette[9])
	})

	t.Run("grey palette inverts indices", func(t *testing.T) {
		src, err := NewImage(4, 1, 8)
		require.NoError(t, err)
		for i := range src.Palette {
			src.Palette[i] = dib.RGBQuad{Red: uint8(i), Green: uint8(i), Blue: uint8(i)}
		}
		src.SetPixelIndex(1, 0, 200)
		data := encode(t, src)
		fillMask(t, data, 0xFF)

		m, err := DecodeFrame(bytes.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, 255, m.PixelIndex(0, 0))
		assert.Equal(t, 55, m.PixelIndex(1, 0))
		assert.Equal(t, src.Palette, m.Palette)
	})
}

func TestDecode_TransparentIndexMovesToHighestUnused(t *testing.T) {
	src := paletted(t, 4, 2, 4)
	for x := 0; x < 4; x++ {
		src.SetPixelIndex(x, 0, x%3)
		src.SetPixelIndex(x, 1, 2)
	}
	src.TransIndex = 1
	data := encode(t, src)

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 15, m.TransIndex)
	assert.Equal(t, 15, m.PixelIndex(1, 0), "masked pixel repainted")
	assert.Equal(t, 0, m.PixelIndex(0, 0))
	assert.Equal(t, 2, m.PixelIndex(2, 0))
	assert.Equal(t, dib.RGBQuad{}, m.Palette[1], "transparent entry written as zero")
	assert.False(t, m.HasAlpha())
	assert.Equal(t, uint32(0), func() uint32 { _, _, _, a := m.At(1, 1).RGBA(); return a }())
}

func TestDecode_UniqueTransparentColourWithoutFreeIndex(t *testing.T) {
	src := paletted(t, 8, 1, 1)
	for x := 0; x < 8; x++ {
		src.SetPixelIndex(x, 0, x&1)
	}
	src.TransIndex = 0
	data := encode(t, src)

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, m.TransIndex)
	assert.Equal(t, src.Pixels, m.Pixels)
	assert.False(t, m.HasAlpha())
}

func TestDecode_TruecolorMaskBecomesAlpha(t *testing.T) {
	src := truecolor(t, 3, 1)
	src.TransIndex = 0
	src.TransColor = src.PixelColor(1, 0)
	data := encode(t, src)

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	require.True(t, m.HasAlpha())
	assert.Equal(t, []byte{255, 0, 255}, m.Alpha)
	assert.Equal(t, -1, m.TransIndex)
}

func TestDecode_ShortMaskSkipped(t *testing.T) {
	src := truecolor(t, 2, 2)
	data := encode(t, src)
	data = data[:len(data)-3]

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, src.Pixels, m.Pixels)
	assert.False(t, m.HasAlpha())
	assert.Equal(t, -1, m.TransIndex)
}

func TestDecode_TruncatedPixels(t *testing.T) {
	data := encode(t, truecolor(t, 4, 4))
	_, err := DecodeFrame(bytes.NewReader(data[:70]), 0)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEmbeddedPNG(t *testing.T) {
	src := truecolor(t, 300, 2)
	src.createAlpha()
	src.setAlpha(0, 0, 0)
	src.SetPixelColor(0, 0, dib.RGBQuad{})
	data := encode(t, src)

	_, entries, err := ReadDirectory(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, entries[0].IsPNG())
	assert.Equal(t, []byte("\x89PNG"), data[entries[0].ImageOffset:entries[0].ImageOffset+4])

	cfg, err := DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 2, cfg.Height)

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assertSameImage(t, src, m)

	var buf bytes.Buffer
	err = Encode(&buf, []*Image{src}, &EncodeOptions{EmbedPNG: false})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestEmbeddedPNG_Paletted(t *testing.T) {
	src := paletted(t, 256, 300, 8)
	src.SetPixelIndex(7, 7, 3)
	src.TransIndex = 0
	data := encode(t, src)

	m, err := DecodeFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, m.BitCount)
	assert.Equal(t, 0, m.TransIndex)
	assert.Equal(t, src.Pixels, m.Pixels)
	assert.Equal(t, src.Palette[3], m.Palette[3])
}

func TestEncode_Errors(t *testing.T) {
	good := truecolor(t, 2, 2)

	assert.ErrorIs(t, Encode(nil, []*Image{good}, nil), ErrNilWriter)

	var buf bytes.Buffer
	assert.ErrorIs(t, Encode(&buf, nil, nil), ErrNoImages)
	assert.ErrorIs(t, Encode(&buf, []*Image{good, nil}, nil), ErrEmptyImage)
	assert.ErrorIs(t, Encode(&buf, []*Image{{Width: 0, Height: 2, BitCount: 24}}, nil), ErrEmptyImage)

	noPal := paletted(t, 2, 2, 8)
	noPal.Palette = nil
	assert.ErrorIs(t, Encode(&buf, []*Image{noPal}, nil), ErrNoPalette)
	assert.Zero(t, buf.Len(), "nothing written on validation failure")

	err := Encode(&buf, []*Image{good}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, errors.Unwrap(ErrNoPalette), ErrFormat)
}

func TestImageDecodeRegistration(t *testing.T) {
	data := encode(t, truecolor(t, 3, 2))
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "ico", format)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	// Storage row 1 is the top row.
	r, g, b, a := img.At(2, 0).RGBA()
	assert.Equal(t, []uint32{20 * 0x101, 20 * 0x101, 4 * 0x101, 0xFFFF}, []uint32{r, g, b, a})

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "ico", format)
	assert.Equal(t, 3, cfg.Width)
}

func TestFromImage(t *testing.T) {
	pal := color.Palette{color.NRGBA{A: 0}, color.NRGBA{R: 255, A: 255}}
	p := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	p.SetColorIndex(1, 0, 1)

	m, err := FromImage(p)
	require.NoError(t, err)
	assert.Equal(t, 8, m.BitCount)
	assert.Equal(t, 0, m.TransIndex)
	assert.Equal(t, 1, m.PixelIndex(1, 1), "top row is the last stored row")
	assert.False(t, m.HasAlpha())

	rgba := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	rgba.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	rgba.SetNRGBA(1, 0, color.NRGBA{R: 4, G: 5, B: 6, A: 255})
	m, err = FromImage(rgba)
	require.NoError(t, err)
	assert.Equal(t, 24, m.BitCount)
	assert.False(t, m.HasAlpha())
	assert.Equal(t, dib.RGBQuad{Red: 4, Green: 5, Blue: 6}, m.PixelColor(1, 0))

	_, err = FromImage(image.NewRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestBitmap(t *testing.T) {
	src := paletted(t, 3, 3, 4)
	src.SetPixelIndex(2, 2, 5)
	b := src.Bitmap()
	require.NoError(t, b.Validate())
	assert.Equal(t, 3, b.Width())
	assert.False(t, b.TopDown())
	assert.Len(t, b.Palette, 16)
	b.Pixels[0] = 0xEE
	assert.NotEqual(t, byte(0xEE), src.Pixels[0], "bitmap owns its pixels")
}
