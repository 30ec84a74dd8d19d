// Package ico reads and writes Windows icon and cursor containers.
//
// An icon file holds a directory of sub-images. Each sub-image is either a
// DIB (BITMAPINFOHEADER, palette, XOR pixels and a 1-bit AND mask) or, for
// images wider or taller than 255 pixels, an embedded PNG stream. All
// multi-byte fields are little-endian.
package ico

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
)

// Container types.
const (
	TypeIcon   = 1
	TypeCursor = 2
)

const (
	headerSize   = 6
	dirEntrySize = 16
)

var (
	// ErrFormat is the category of every icon format error.
	ErrFormat = errors.New("ico: format error")

	ErrInvalidHeader       = fmt.Errorf("%w: invalid header", ErrFormat)
	ErrFrameIndex          = fmt.Errorf("%w: frame index out of range", ErrFormat)
	ErrUnsupportedBitCount = fmt.Errorf("%w: unsupported bit count", ErrFormat)
	ErrTruncated           = fmt.Errorf("%w: truncated data", ErrFormat)
	ErrNilWriter           = fmt.Errorf("%w: nil writer", ErrFormat)
	ErrNoImages            = fmt.Errorf("%w: no images", ErrFormat)
	ErrEmptyImage          = fmt.Errorf("%w: empty image", ErrFormat)
	ErrNoPalette           = fmt.Errorf("%w: paletted image without palette", ErrFormat)
	ErrTooLarge            = fmt.Errorf("%w: image larger than 255 pixels", ErrFormat)
)

// Header is the ICONDIR header.
type Header struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// DirEntry is one ICONDIRENTRY. Width and Height of zero mark an embedded
// PNG image.
type DirEntry struct {
	Width       uint8
	Height      uint8
	ColorCount  uint8
	Reserved    uint8
	Planes      uint16
	BitCount    uint16
	BytesInRes  uint32
	ImageOffset uint32
}

// IsPNG reports whether the entry points at an embedded PNG stream.
func (e DirEntry) IsPNG() bool {
	return e.Width == 0 && e.Height == 0
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: header: %w", ErrTruncated, err)
	}
	if h.Reserved != 0 || (h.Type != TypeIcon && h.Type != TypeCursor) {
		return h, fmt.Errorf("%w: reserved %d, type %d", ErrInvalidHeader, h.Reserved, h.Type)
	}
	return h, nil
}

// ReadDirectory reads the header and the directory entries.
func ReadDirectory(r io.Reader) (Header, []DirEntry, error) {
	h, err := readHeader(r)
	if err != nil {
		return h, nil, err
	}
	entries := make([]DirEntry, h.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return h, nil, fmt.Errorf("%w: directory: %w", ErrTruncated, err)
	}
	return h, entries, nil
}

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", Decode, DecodeConfig)
	image.RegisterFormat("cur", "\x00\x00\x02\x00", Decode, DecodeConfig)
}
