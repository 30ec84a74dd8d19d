// Package media defines the value types shared by the encoder, the codec
// backends and the muxers.
package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrAgain is returned by codec backends when no output is available yet
	// or when input cannot be accepted until output has been drained.
	ErrAgain = errors.New("media: resource temporarily unavailable")

	// ErrEOF is returned by codec backends once a flushed stream is exhausted.
	ErrEOF = errors.New("media: end of stream")
)

// Rational is a fraction used for frame rates and time bases.
type Rational struct {
	Num int
	Den int
}

// R is shorthand for Rational{num, den}.
func R(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

// Float returns the value of the rational as a float64.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// Equal compares the rationals by value, so 60/2 equals 30/1.
func (r Rational) Equal(o Rational) bool {
	return int64(r.Num)*int64(o.Den) == int64(o.Num)*int64(r.Den)
}

// String formats the rational as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational accepts "num/den", an integer or a decimal such as "29.97".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(den))
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		return Rational{Num: n, Den: d}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Rational{Num: n, Den: 1}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	return Rational{Num: int(f*1000 + 0.5), Den: 1000}, nil
}

// CodecKind identifies a video codec.
type CodecKind int

const (
	CodecNone CodecKind = iota
	CodecH264
	CodecMPEG4
	CodecMPEG2
	CodecMJPEG
	// CodecCamStudio is known but has no encoder; only decoders exist for it.
	CodecCamStudio
)

var codecNames = map[CodecKind]string{
	CodecNone:      "none",
	CodecH264:      "h264",
	CodecMPEG4:     "mpeg4",
	CodecMPEG2:     "mpeg2video",
	CodecMJPEG:     "mjpeg",
	CodecCamStudio: "cscd",
}

// String returns the codec name.
func (c CodecKind) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCodecKind parses a codec name. Unknown names map to CodecNone.
func ParseCodecKind(s string) CodecKind {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "h264", "avc", "x264", "libx264":
		return CodecH264
	case "mpeg4", "mp4v", "xvid":
		return CodecMPEG4
	case "mpeg2", "mpeg2video":
		return CodecMPEG2
	case "mjpeg", "jpeg":
		return CodecMJPEG
	case "cscd", "camstudio":
		return CodecCamStudio
	default:
		return CodecNone
	}
}

// PixelFormat identifies a pixel layout.
type PixelFormat int

const (
	PixFmtNone PixelFormat = iota
	// PixFmtBGR24 is packed 24-bit, blue first (DIB order).
	PixFmtBGR24
	// PixFmtBGRA is packed 32-bit, blue first.
	PixFmtBGRA
	// PixFmtRGB24 is packed 24-bit, red first.
	PixFmtRGB24
	// PixFmtPAL8 is 8-bit palette indices.
	PixFmtPAL8
	// PixFmtYUV420P is planar Y, U, V with 2x2 chroma subsampling.
	PixFmtYUV420P
	// PixFmtYUV444P is planar Y, U, V without subsampling.
	PixFmtYUV444P
)

// String returns the ffmpeg name of the pixel format.
func (p PixelFormat) String() string {
	switch p {
	case PixFmtBGR24:
		return "bgr24"
	case PixFmtBGRA:
		return "bgra"
	case PixFmtRGB24:
		return "rgb24"
	case PixFmtPAL8:
		return "pal8"
	case PixFmtYUV420P:
		return "yuv420p"
	case PixFmtYUV444P:
		return "yuv444p"
	default:
		return "none"
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for planar formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixFmtBGR24, PixFmtRGB24:
		return 3
	case PixFmtBGRA:
		return 4
	case PixFmtPAL8:
		return 1
	default:
		return 0
	}
}

// Planar reports whether the format stores its components in separate planes.
func (p PixelFormat) Planar() bool {
	return p == PixFmtYUV420P || p == PixFmtYUV444P
}

// TrackKind is the type of an elementary stream.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// String returns "video" or "audio".
func (k TrackKind) String() string {
	if k == TrackAudio {
		return "audio"
	}
	return "video"
}

// ContainerKind selects the container format written by a muxer.
type ContainerKind int

const (
	// ContainerMP4 is fragmented MP4.
	ContainerMP4 ContainerKind = iota
	// ContainerMKV is Matroska.
	ContainerMKV
)

// String returns the usual file extension of the container.
func (c ContainerKind) String() string {
	if c == ContainerMKV {
		return "mkv"
	}
	return "mp4"
}

// ParseContainerKind parses "mp4" or "mkv".
func ParseContainerKind(s string) (ContainerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mp4", "fmp4":
		return ContainerMP4, nil
	case "mkv", "matroska":
		return ContainerMKV, nil
	default:
		return ContainerMP4, fmt.Errorf("unknown container %q", s)
	}
}
