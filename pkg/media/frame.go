package media

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// ErrInvalidFrame is returned when a frame cannot be allocated for the
// requested format and dimensions.
var ErrInvalidFrame = errors.New("media: invalid frame parameters")

// Plane describes packed source pixels. Row y starts at
// Data[Offset+y*Stride]; a negative Stride walks a bottom-up image from its
// last stored row.
type Plane struct {
	Data   []byte
	Offset int
	Stride int
}

// Row returns row y of the plane, n bytes long.
func (p Plane) Row(y, n int) []byte {
	start := p.Offset + y*p.Stride
	return p.Data[start : start+n]
}

// frameBuffer is the storage shared between a Frame and the views handed to
// codec backends.
type frameBuffer struct {
	data []byte
	refs atomic.Int32
}

// Frame is a planar picture in encoder time-base units.
//
// The pixel storage is reference counted. A backend that keeps a submitted
// frame past SendFrame takes a Ref and releases it with Unref; the owner calls
// MakeWritable before overwriting the planes so a retained picture is never
// modified underneath the backend.
type Frame struct {
	Format  PixelFormat
	Width   int
	Height  int
	Planes  [3][]byte
	Strides [3]int
	PTS     int64

	buf *frameBuffer
}

// NewFrame allocates a frame for a planar YUV format.
func NewFrame(format PixelFormat, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 || !format.Planar() {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrInvalidFrame, format, width, height)
	}
	f := &Frame{Format: format, Width: width, Height: height}
	f.attach(newFrameBuffer(f.bufferSize()))
	return f, nil
}

func newFrameBuffer(size int) *frameBuffer {
	b := &frameBuffer{data: make([]byte, size)}
	b.refs.Store(1)
	return b
}

// PlaneSize returns the width and row count of plane i.
func (f *Frame) PlaneSize(i int) (w, h int) {
	if i == 0 {
		return f.Width, f.Height
	}
	if f.Format == PixFmtYUV420P {
		return (f.Width + 1) / 2, (f.Height + 1) / 2
	}
	return f.Width, f.Height
}

func (f *Frame) bufferSize() int {
	size := 0
	for i := 0; i < 3; i++ {
		w, h := f.PlaneSize(i)
		size += w * h
	}
	return size
}

func (f *Frame) attach(b *frameBuffer) {
	f.buf = b
	off := 0
	for i := 0; i < 3; i++ {
		w, h := f.PlaneSize(i)
		f.Planes[i] = b.data[off : off+w*h]
		f.Strides[i] = w
		off += w * h
	}
}

// Writable reports whether this frame is the only holder of its storage.
func (f *Frame) Writable() bool {
	return f.buf != nil && f.buf.refs.Load() == 1
}

// MakeWritable ensures the planes can be overwritten. When another holder
// still references the storage, the frame switches to a private copy.
func (f *Frame) MakeWritable() error {
	if f.buf == nil {
		return fmt.Errorf("%w: frame has no buffer", ErrInvalidFrame)
	}
	if f.Writable() {
		return nil
	}
	old := f.buf
	nb := newFrameBuffer(len(old.data))
	copy(nb.data, old.data)
	old.refs.Add(-1)
	f.attach(nb)
	return nil
}

// Ref returns a new frame sharing this frame's storage.
func (f *Frame) Ref() *Frame {
	f.buf.refs.Add(1)
	r := *f
	return &r
}

// Unref releases this frame's hold on the storage.
func (f *Frame) Unref() {
	if f.buf == nil {
		return
	}
	f.buf.refs.Add(-1)
	f.buf = nil
	f.Planes = [3][]byte{}
}

// WriteRaw writes the planes back to back, the layout ffmpeg's rawvideo
// demuxer expects.
func (f *Frame) WriteRaw(w io.Writer) error {
	for i := 0; i < 3; i++ {
		if _, err := w.Write(f.Planes[i]); err != nil {
			return err
		}
	}
	return nil
}
