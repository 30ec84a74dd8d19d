// Package pixconv converts packed RGB frames into the planar YUV layout the
// encoders consume, rescaling when source and destination sizes differ.
package pixconv

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/camencoder/pkg/media"
)

var (
	// ErrInvalidConversion is returned by New for unsupported formats or
	// dimensions.
	ErrInvalidConversion = errors.New("pixconv: invalid conversion")

	// ErrShortSource is returned when the source plane does not cover the
	// declared geometry.
	ErrShortSource = errors.New("pixconv: source buffer too small")

	// ErrFrameMismatch is returned when the destination frame does not match
	// the converter's output.
	ErrFrameMismatch = errors.New("pixconv: destination frame mismatch")
)

// Converter is a configured conversion from one geometry and format to
// another. It keeps scratch images between calls and is not safe for
// concurrent use.
type Converter struct {
	srcFormat media.PixelFormat
	dstFormat media.PixelFormat
	srcW      int
	srcH      int
	dstW      int
	dstH      int

	unpacked *image.RGBA
	scaled   *image.RGBA
}

// New creates a converter. Sources may be BGR24, BGRA or RGB24; destinations
// YUV420P or YUV444P.
func New(src media.PixelFormat, srcW, srcH int, dst media.PixelFormat, dstW, dstH int) (*Converter, error) {
	switch src {
	case media.PixFmtBGR24, media.PixFmtBGRA, media.PixFmtRGB24:
	default:
		return nil, fmt.Errorf("%w: source format %s", ErrInvalidConversion, src)
	}
	if !dst.Planar() {
		return nil, fmt.Errorf("%w: destination format %s", ErrInvalidConversion, dst)
	}
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d -> %dx%d", ErrInvalidConversion, srcW, srcH, dstW, dstH)
	}
	c := &Converter{
		srcFormat: src,
		dstFormat: dst,
		srcW:      srcW,
		srcH:      srcH,
		dstW:      dstW,
		dstH:      dstH,
		unpacked:  image.NewRGBA(image.Rect(0, 0, srcW, srcH)),
	}
	if srcW != dstW || srcH != dstH {
		c.scaled = image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	}
	return c, nil
}

// Matches reports whether the converter was built for this geometry.
func (c *Converter) Matches(src media.PixelFormat, srcW, srcH int) bool {
	return c.srcFormat == src && c.srcW == srcW && c.srcH == srcH
}

// Convert fills dst from src. A negative src.Stride reads a bottom-up image.
func (c *Converter) Convert(src media.Plane, dst *media.Frame) error {
	if dst == nil || dst.Format != c.dstFormat || dst.Width != c.dstW || dst.Height != c.dstH {
		return ErrFrameMismatch
	}
	if err := c.checkSource(src); err != nil {
		return err
	}
	c.unpack(src)

	img := c.unpacked
	if c.scaled != nil {
		draw.CatmullRom.Scale(c.scaled, c.scaled.Bounds(), c.unpacked, c.unpacked.Bounds(), draw.Src, nil)
		img = c.scaled
	}

	if c.dstFormat == media.PixFmtYUV444P {
		writeYUV444(img, dst)
	} else {
		writeYUV420(img, dst)
	}
	return nil
}

func (c *Converter) checkSource(src media.Plane) error {
	rowBytes := c.srcW * c.srcFormat.BytesPerPixel()
	stride := src.Stride
	if stride < 0 {
		stride = -stride
	}
	if stride < rowBytes {
		return fmt.Errorf("%w: stride %d for %d byte rows", ErrShortSource, src.Stride, rowBytes)
	}
	first := src.Offset
	last := src.Offset + (c.srcH-1)*src.Stride
	lo, hi := first, last
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 || hi+rowBytes > len(src.Data) {
		return fmt.Errorf("%w: %d bytes", ErrShortSource, len(src.Data))
	}
	return nil
}

func (c *Converter) unpack(src media.Plane) {
	bpp := c.srcFormat.BytesPerPixel()
	for y := 0; y < c.srcH; y++ {
		row := src.Row(y, c.srcW*bpp)
		out := c.unpacked.Pix[y*c.unpacked.Stride:]
		for x := 0; x < c.srcW; x++ {
			p := row[x*bpp:]
			o := out[x*4:]
			switch c.srcFormat {
			case media.PixFmtRGB24:
				o[0], o[1], o[2] = p[0], p[1], p[2]
			default:
				o[0], o[1], o[2] = p[2], p[1], p[0]
			}
			o[3] = 0xFF
		}
	}
}

func writeYUV444(img *image.RGBA, dst *media.Frame) {
	w, h := dst.Width, dst.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.Pix[y*img.Stride+x*4:]
			yy, cb, cr := color.RGBToYCbCr(p[0], p[1], p[2])
			i := y*dst.Strides[0] + x
			dst.Planes[0][i] = yy
			dst.Planes[1][y*dst.Strides[1]+x] = cb
			dst.Planes[2][y*dst.Strides[2]+x] = cr
		}
	}
}

func writeYUV420(img *image.RGBA, dst *media.Frame) {
	w, h := dst.Width, dst.Height
	cw, ch := dst.PlaneSize(1)
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sumCb, sumCr, n int
			for dy := 0; dy < 2; dy++ {
				y := cy*2 + dy
				if y >= h {
					break
				}
				for dx := 0; dx < 2; dx++ {
					x := cx*2 + dx
					if x >= w {
						break
					}
					p := img.Pix[y*img.Stride+x*4:]
					yy, cb, cr := color.RGBToYCbCr(p[0], p[1], p[2])
					dst.Planes[0][y*dst.Strides[0]+x] = yy
					sumCb += int(cb)
					sumCr += int(cr)
					n++
				}
			}
			dst.Planes[1][cy*dst.Strides[1]+cx] = uint8((sumCb + n/2) / n)
			dst.Planes[2][cy*dst.Strides[2]+cx] = uint8((sumCr + n/2) / n)
		}
	}
}
