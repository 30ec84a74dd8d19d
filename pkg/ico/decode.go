package ico

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/user/camencoder/pkg/dib"
)

// file is a fully read icon container.
type file struct {
	header  Header
	entries []DirEntry
	data    []byte // whole stream, offsets are relative to its start
}

func readFile(r io.Reader) (*file, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrTruncated, err)
	}
	h, err := readHeader(bytes.NewReader(hdr[:]))
	if err != nil {
		return nil, err
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read icon: %w", err)
	}
	data := append(hdr[:], rest...)

	entries := make([]DirEntry, h.Count)
	if err := binary.Read(bytes.NewReader(data[headerSize:]), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: directory: %w", ErrTruncated, err)
	}
	return &file{header: h, entries: entries, data: data}, nil
}

func (f *file) body(e DirEntry) ([]byte, error) {
	off := int(e.ImageOffset)
	if off < headerSize || off > len(f.data) {
		return nil, fmt.Errorf("%w: image offset %d", ErrTruncated, off)
	}
	return f.data[off:], nil
}

// Decode decodes the first frame of an icon.
func Decode(r io.Reader) (image.Image, error) {
	return DecodeFrame(r, 0)
}

// DecodeConfig returns the dimensions of the first frame.
func DecodeConfig(r io.Reader) (image.Config, error) {
	f, err := readFile(r)
	if err != nil {
		return image.Config{}, err
	}
	if len(f.entries) == 0 {
		return image.Config{}, ErrFrameIndex
	}
	e := f.entries[0]
	if !e.IsPNG() {
		return image.Config{ColorModel: color.NRGBAModel, Width: int(e.Width), Height: int(e.Height)}, nil
	}
	body, err := f.body(e)
	if err != nil {
		return image.Config{}, err
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: embedded png: %w", ErrFormat, err)
	}
	cfg.ColorModel = color.NRGBAModel
	return cfg, nil
}

// DecodeFrame decodes frame index of an icon.
func DecodeFrame(r io.Reader, index int) (*Image, error) {
	f, err := readFile(r)
	if err != nil {
		return nil, err
	}
	return f.frame(index)
}

// DecodeAll decodes every frame.
func DecodeAll(r io.Reader) ([]*Image, error) {
	f, err := readFile(r)
	if err != nil {
		return nil, err
	}
	out := make([]*Image, len(f.entries))
	for i := range f.entries {
		if out[i], err = f.frame(i); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return out, nil
}

func (f *file) frame(index int) (*Image, error) {
	if index < 0 || index >= len(f.entries) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, index, len(f.entries))
	}
	e := f.entries[index]
	body, err := f.body(e)
	if err != nil {
		return nil, err
	}
	if e.IsPNG() {
		return decodePNG(body)
	}
	return decodeDIB(e, body)
}

func decodePNG(body []byte) (*Image, error) {
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: embedded png: %w", ErrFormat, err)
	}
	return FromImage(img)
}

// entrySize maps a directory dimension to pixels; 0 stands for 256.
func entrySize(v uint8) int {
	if v == 0 {
		return 256
	}
	return int(v)
}

func decodeDIB(e DirEntry, body []byte) (*Image, error) {
	r := bytes.NewReader(body)
	bih, err := dib.ReadInfoHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	bitCount := int(bih.BitCount)
	width, height := entrySize(e.Width), entrySize(e.Height)
	var m *Image
	switch bitCount {
	case 1, 4, 8, 24:
		m, err = NewImage(width, height, bitCount)
	case 32:
		m, err = NewImage(width, height, 24)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitCount, bitCount)
	}
	if err != nil {
		return nil, err
	}

	// A palette is read for any depth when ClrUsed says so, but only kept
	// for paletted images.
	n := int(bih.ClrUsed)
	if n == 0 {
		n = len(m.Palette)
	}
	if n > 0 {
		pal, err := dib.ReadPalette(r, n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		copy(m.Palette, pal)
	}

	if bitCount <= 24 {
		if _, err := io.ReadFull(r, m.Pixels); err != nil {
			return nil, fmt.Errorf("%w: pixels: %w", ErrTruncated, err)
		}
	} else {
		buf := make([]byte, 4*width*height)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: pixels: %w", ErrTruncated, err)
		}
		m.createAlpha()
		src := buf
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				m.SetPixelColor(x, y, dib.RGBQuad{Blue: src[0], Green: src[1], Red: src[2]})
				m.setAlpha(x, y, src[3])
				src = src[4:]
			}
		}
	}

	mask := make([]byte, maskStride(width)*height)
	if _, err := io.ReadFull(r, mask); err != nil {
		return m, nil
	}
	applyMask(m, mask, bitCount)
	return m, nil
}

func maskStride(width int) int {
	return ((width + 31) / 32) * 4
}

func maskBit(mask []byte, stride, x, y int) bool {
	return (mask[y*stride+(x>>3)]>>(7-uint(x&7)))&0x01 != 0
}

// applyMask turns the AND mask into alpha or a transparent palette index.
func applyMask(m *Image, mask []byte, bitCount int) {
	stride := maskStride(m.Width)

	good := false
	for _, b := range mask {
		if b != 0xFF {
			good = true
			break
		}
	}
	if !good {
		// A mask with every bit set is read as a negative image with index 0
		// transparent. Legacy readers do this; it is kept for compatibility.
		m.TransIndex = 0
		m.Negative()
		return
	}

	needAlpha := m.HasAlpha()
	if !needAlpha {
		m.createAlpha()
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if maskBit(mask, stride, x, y) {
				m.setAlpha(x, y, 0)
				needAlpha = true
			}
		}
	}
	if !needAlpha {
		m.Alpha = nil
	}

	var transColor dib.RGBQuad
	transIndex, transColors := 0, 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !maskBit(mask, stride, x, y) {
				continue
			}
			c := m.PixelColor(x, y)
			if transColors == 0 {
				transIndex = m.PixelIndex(x, y)
				transColor = c
				transColors++
			} else if c != transColor {
				transColors++
			}
		}
	}
	if transColors == 1 && bitCount <= 8 {
		m.TransColor = transColor
		m.TransIndex = transIndex
		m.Alpha = nil
	}

	if bitCount > 8 {
		return
	}
	var used [256]bool
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			used[m.PixelIndex(x, y)] = true
		}
	}
	free := -1
	for i := len(m.Palette) - 1; i >= 0; i-- {
		if !used[i] {
			free = i
			break
		}
	}
	if free < 0 {
		return
	}
	repainted := false
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if maskBit(mask, stride, x, y) {
				m.SetPixelIndex(x, y, free)
				repainted = true
			}
		}
	}
	if repainted {
		m.TransIndex = free
	}
	m.Alpha = nil
}
