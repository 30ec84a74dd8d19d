// Package mjpegcodec is an in-process Motion-JPEG encoder backend.
package mjpegcodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strconv"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// DefaultQuality is the JPEG quality used in bitrate mode.
const DefaultQuality = 85

var (
	// ErrUnsupportedFormat is returned by Open for packed pixel formats.
	ErrUnsupportedFormat = errors.New("mjpegcodec: unsupported pixel format")
)

// Codec implements ports.Codec for Motion-JPEG.
type Codec struct{}

// New creates the codec.
func New() *Codec {
	return &Codec{}
}

func (c *Codec) Name() string                          { return "mjpeg" }
func (c *Codec) Kind() media.CodecKind                 { return media.CodecMJPEG }
func (c *Codec) SupportedFramerates() []media.Rational { return nil }

// Open starts a session. The "quality" option (1-100) sets the JPEG quality
// directly; otherwise quality mode maps the quantizer q to 100-2q.
func (c *Codec) Open(params media.CodecParameters, opts media.Options) (ports.CodecSession, media.Options, error) {
	var ratio image.YCbCrSubsampleRatio
	switch params.PixelFormat {
	case media.PixFmtYUV420P:
		ratio = image.YCbCrSubsampleRatio420
	case media.PixFmtYUV444P:
		ratio = image.YCbCrSubsampleRatio444
	default:
		return nil, opts, fmt.Errorf("%w: %s", ErrUnsupportedFormat, params.PixelFormat)
	}

	quality := DefaultQuality
	if params.Flags&media.FlagQScale != 0 {
		quality = 100 - 2*params.GlobalQuality
	}
	rest := opts.Clone()
	if v, ok := rest["quality"]; ok {
		q, err := strconv.Atoi(v)
		if err != nil {
			return nil, opts, fmt.Errorf("mjpegcodec: quality %q: %w", v, err)
		}
		quality = q
		delete(rest, "quality")
	}
	quality = max(1, min(100, quality))

	return &session{quality: quality, ratio: ratio}, rest, nil
}

// session holds at most one frame. The frame is retained by reference and
// compressed when the packet is requested.
type session struct {
	quality  int
	ratio    image.YCbCrSubsampleRatio
	pending  *media.Frame
	flushing bool
	buf      bytes.Buffer
}

func (s *session) SendFrame(frame *media.Frame) error {
	if s.flushing {
		return media.ErrEOF
	}
	if frame == nil {
		s.flushing = true
		return nil
	}
	if s.pending != nil {
		return media.ErrAgain
	}
	s.pending = frame.Ref()
	return nil
}

func (s *session) ReceivePacket(pkt *media.Packet) error {
	if s.pending == nil {
		if s.flushing {
			return media.ErrEOF
		}
		return media.ErrAgain
	}
	f := s.pending
	s.pending = nil
	defer f.Unref()

	img := &image.YCbCr{
		Y:              f.Planes[0],
		Cb:             f.Planes[1],
		Cr:             f.Planes[2],
		YStride:        f.Strides[0],
		CStride:        f.Strides[1],
		SubsampleRatio: s.ratio,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("mjpegcodec: encode: %w", err)
	}
	*pkt = media.Packet{
		Data:     bytes.Clone(s.buf.Bytes()),
		PTS:      f.PTS,
		DTS:      f.PTS,
		Duration: 1,
		Keyframe: true,
	}
	return nil
}

func (s *session) Extradata() []byte { return nil }

func (s *session) Close() error {
	if s.pending != nil {
		s.pending.Unref()
		s.pending = nil
	}
	return nil
}

var _ ports.Codec = (*Codec)(nil)
