package ico

import (
	"fmt"
	"image"
	"image/color"

	"github.com/user/camencoder/pkg/dib"
)

// Image is one icon frame in DIB layout.
//
// Pixels holds bottom-up rows of Stride bytes; row 0 is the bottom of the
// picture, the order used by the AND mask as well. Alpha, when present, is
// one byte per pixel in the same row order. Paletted images (BitCount 1, 4
// or 8) may mark TransIndex as transparent; truecolor images use TransColor
// when TransIndex is not negative.
type Image struct {
	Width      int
	Height     int
	BitCount   int
	Palette    []dib.RGBQuad
	Pixels     []byte
	Alpha      []byte
	TransIndex int
	TransColor dib.RGBQuad
}

// NewImage allocates a zeroed image. BitCount must be 1, 4, 8 or 24;
// paletted images get a zeroed palette of full size.
func NewImage(width, height, bitCount int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	switch bitCount {
	case 1, 4, 8, 24:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitCount, bitCount)
	}
	m := &Image{Width: width, Height: height, BitCount: bitCount, TransIndex: -1}
	m.Pixels = make([]byte, m.Stride()*height)
	if n := dib.DefaultColors(bitCount); n > 0 {
		m.Palette = make([]dib.RGBQuad, n)
	}
	return m, nil
}

// Stride returns the size of one pixel row.
func (m *Image) Stride() int {
	return dib.RowSize(m.Width, m.BitCount)
}

// Paletted reports whether pixels are palette indices.
func (m *Image) Paletted() bool {
	return m.BitCount <= 8
}

// HasAlpha reports whether the image carries an alpha plane.
func (m *Image) HasAlpha() bool {
	return len(m.Alpha) > 0
}

func (m *Image) createAlpha() {
	m.Alpha = make([]byte, m.Width*m.Height)
	for i := range m.Alpha {
		m.Alpha[i] = 0xFF
	}
}

func (m *Image) setAlpha(x, y int, a byte) {
	m.Alpha[y*m.Width+x] = a
}

// AlphaAt returns the alpha of the pixel at storage row y.
func (m *Image) AlphaAt(x, y int) byte {
	if !m.HasAlpha() {
		return 0xFF
	}
	return m.Alpha[y*m.Width+x]
}

// PixelIndex returns the palette index at storage row y. Truecolor images
// return 0.
func (m *Image) PixelIndex(x, y int) int {
	row := m.Pixels[y*m.Stride():]
	switch m.BitCount {
	case 8:
		return int(row[x])
	case 4:
		return int(row[x>>1]>>(4*(1-uint(x&1)))) & 0x0F
	case 1:
		return int(row[x>>3]>>(7-uint(x&7))) & 0x01
	default:
		return 0
	}
}

// SetPixelIndex stores a palette index. It is a no-op on truecolor images.
func (m *Image) SetPixelIndex(x, y, idx int) {
	row := m.Pixels[y*m.Stride():]
	switch m.BitCount {
	case 8:
		row[x] = byte(idx)
	case 4:
		shift := 4 * (1 - uint(x&1))
		row[x>>1] = row[x>>1]&^(0x0F<<shift) | byte(idx&0x0F)<<shift
	case 1:
		shift := 7 - uint(x&7)
		row[x>>3] = row[x>>3]&^(1<<shift) | byte(idx&1)<<shift
	}
}

// PixelColor returns the colour at storage row y without alpha.
func (m *Image) PixelColor(x, y int) dib.RGBQuad {
	if m.Paletted() {
		idx := m.PixelIndex(x, y)
		if idx < len(m.Palette) {
			return m.Palette[idx]
		}
		return dib.RGBQuad{}
	}
	p := m.Pixels[y*m.Stride()+3*x:]
	return dib.RGBQuad{Blue: p[0], Green: p[1], Red: p[2]}
}

// SetPixelColor stores a BGR colour on a truecolor image.
func (m *Image) SetPixelColor(x, y int, c dib.RGBQuad) {
	if m.Paletted() {
		return
	}
	p := m.Pixels[y*m.Stride()+3*x:]
	p[0], p[1], p[2] = c.Blue, c.Green, c.Red
}

// TransparentColor returns the colour treated as transparent and whether
// one is set.
func (m *Image) TransparentColor() (dib.RGBQuad, bool) {
	if m.TransIndex < 0 {
		return dib.RGBQuad{}, false
	}
	if m.Paletted() {
		if m.TransIndex < len(m.Palette) {
			return m.Palette[m.TransIndex], true
		}
		return dib.RGBQuad{}, false
	}
	return m.TransColor, true
}

func (m *Image) greyPalette() bool {
	if len(m.Palette) == 0 {
		return false
	}
	for i, c := range m.Palette {
		if int(c.Red) != i || int(c.Green) != i || int(c.Blue) != i {
			return false
		}
	}
	return true
}

// Negative inverts the picture. Paletted images invert their palette,
// except identity grey palettes whose indices are inverted instead.
// Truecolor images invert every pixel byte. Alpha is left alone.
func (m *Image) Negative() {
	if m.Paletted() && !m.greyPalette() {
		for i := range m.Palette {
			c := &m.Palette[i]
			c.Red, c.Green, c.Blue = ^c.Red, ^c.Green, ^c.Blue
		}
		return
	}
	for i := range m.Pixels {
		m.Pixels[i] = ^m.Pixels[i]
	}
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

// At implements image.Image with y growing downwards.
func (m *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(m.Bounds())) {
		return color.NRGBA{}
	}
	sy := m.Height - 1 - y
	c := m.PixelColor(x, sy)
	a := m.AlphaAt(x, sy)
	if m.TransIndex >= 0 && !m.HasAlpha() {
		if m.Paletted() {
			if m.PixelIndex(x, sy) == m.TransIndex {
				a = 0
			}
		} else if rgbEqual(c, m.TransColor) {
			a = 0
		}
	}
	return color.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: a}
}

func rgbEqual(a, b dib.RGBQuad) bool {
	return a.Red == b.Red && a.Green == b.Green && a.Blue == b.Blue
}

// FromImage converts img into an icon frame. Paletted sources with at most
// 256 colours stay paletted, with the first fully transparent entry as the
// transparent index. Everything else becomes 24-bit, with an alpha plane if
// any pixel is not opaque.
func FromImage(img image.Image) (*Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	if p, ok := img.(*image.Paletted); ok && len(p.Palette) > 0 && len(p.Palette) <= 256 {
		return fromPaletted(p)
	}

	src := toNRGBA(img)
	m, err := NewImage(b.Dx(), b.Dy(), 24)
	if err != nil {
		return nil, err
	}
	opaque := true
	for y := 0; y < m.Height; y++ {
		sy := m.Height - 1 - y
		for x := 0; x < m.Width; x++ {
			c := src.NRGBAAt(x, y)
			m.SetPixelColor(x, sy, dib.RGBQuad{Red: c.R, Green: c.G, Blue: c.B})
			if c.A != 0xFF {
				opaque = false
			}
		}
	}
	if !opaque {
		m.createAlpha()
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.setAlpha(x, m.Height-1-y, src.NRGBAAt(x, y).A)
			}
		}
	}
	return m, nil
}

func fromPaletted(p *image.Paletted) (*Image, error) {
	b := p.Bounds()
	m, err := NewImage(b.Dx(), b.Dy(), 8)
	if err != nil {
		return nil, err
	}
	partial := false
	for i, c := range p.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		m.Palette[i] = dib.RGBQuad{Red: n.R, Green: n.G, Blue: n.B}
		switch {
		case n.A == 0 && m.TransIndex < 0:
			m.TransIndex = i
		case n.A != 0xFF:
			partial = true
		}
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.SetPixelIndex(x, m.Height-1-y, int(p.ColorIndexAt(b.Min.X+x, b.Min.Y+y)))
		}
	}
	if partial {
		m.createAlpha()
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				_, _, _, a := p.At(b.Min.X+x, b.Min.Y+y).RGBA()
				m.setAlpha(x, m.Height-1-y, byte(a>>8))
			}
		}
		m.TransIndex = -1
	}
	return m, nil
}

// paletted returns the image as an *image.Paletted for PNG encoding. The
// transparent index gets a zero alpha.
func (m *Image) paletted() *image.Paletted {
	pal := make(color.Palette, len(m.Palette))
	for i, c := range m.Palette {
		a := uint8(0xFF)
		if i == m.TransIndex {
			a = 0
		}
		pal[i] = color.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: a}
	}
	p := image.NewPaletted(m.Bounds(), pal)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			p.SetColorIndex(x, y, uint8(m.PixelIndex(x, m.Height-1-y)))
		}
	}
	return p
}

// Bitmap returns the frame as a bottom-up DIB without alpha, suitable for
// dib.WriteBMP.
func (m *Image) Bitmap() *dib.Bitmap {
	pix := make([]byte, len(m.Pixels))
	copy(pix, m.Pixels)
	var pal []dib.RGBQuad
	if m.Paletted() {
		pal = make([]dib.RGBQuad, len(m.Palette))
		copy(pal, m.Palette)
	}
	return &dib.Bitmap{
		Header: dib.InfoHeader{
			Size:      dib.InfoHeaderSize,
			Width:     int32(m.Width),
			Height:    int32(m.Height),
			Planes:    1,
			BitCount:  uint16(m.BitCount),
			SizeImage: uint32(len(pix)),
			ClrUsed:   uint32(len(pal)),
		},
		Palette: pal,
		Pixels:  pix,
	}
}
