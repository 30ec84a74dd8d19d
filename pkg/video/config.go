// Package video configures codec backends and drives them through the
// push/pull encoding cycle.
package video

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Config describes the stream to encode. Exactly one of BitrateKbps and
// Quality must be set.
type Config struct {
	Codec       media.CodecKind
	Width       int
	Height      int
	FPS         media.Rational
	BitrateKbps *int
	Quality     *int
	Preset      *Preset
	Tune        *Tune
	Profile     *Profile

	// PixelFormat is the planar layout fed to the codec. Zero means YUV420P.
	PixelFormat  media.PixelFormat
	// SourceFormat is the packed layout of pushed bitmaps. Zero means BGR24.
	SourceFormat media.PixelFormat
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS.Den <= 0 || c.FPS.Num <= 0 {
		return fmt.Errorf("%w: frame rate %s", ErrInvalidConfig, c.FPS)
	}
	if (c.BitrateKbps == nil) == (c.Quality == nil) {
		return ErrRateControl
	}
	if c.BitrateKbps != nil && *c.BitrateKbps <= 0 {
		return fmt.Errorf("%w: bitrate %d kbps", ErrInvalidConfig, *c.BitrateKbps)
	}
	if c.Quality != nil && *c.Quality < 0 {
		return fmt.Errorf("%w: quality %d", ErrInvalidConfig, *c.Quality)
	}
	if c.SourceFormat != media.PixFmtNone && c.SourceFormat.Planar() {
		return fmt.Errorf("%w: source format %s", ErrInvalidConfig, c.SourceFormat)
	}
	if c.PixelFormat != media.PixFmtNone && !c.PixelFormat.Planar() {
		return fmt.Errorf("%w: pixel format %s", ErrInvalidConfig, c.PixelFormat)
	}
	return nil
}

// TruncateFPS halves numerator and denominator until both magnitudes fit in
// 16 bits. Signs are kept. MPEG-4 part 2 stores the time base in 16-bit fields.
func TruncateFPS(fps media.Rational) media.Rational {
	num, den := abs(fps.Num), abs(fps.Den)
	for num&^0xFFFF != 0 || den&^0xFFFF != 0 {
		num >>= 1
		den >>= 1
	}
	if fps.Num < 0 {
		num = -num
	}
	if fps.Den < 0 {
		den = -den
	}
	return media.Rational{Num: num, Den: den}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// GOPSize returns the keyframe interval, roughly ten seconds' worth of whole
// frames. The integer part of the rate is taken first, so 30000/1001 gives 295.
// A zero denominator returns ErrInvalidConfig.
func GOPSize(fps media.Rational) (int, error) {
	if fps.Den == 0 {
		return 0, fmt.Errorf("%w: frame rate %s", ErrInvalidConfig, fps)
	}
	return int((float64(fps.Num/fps.Den) + 0.5) * 10.0), nil
}

// NearestFramerate returns the index of the supported rate closest to fps.
// Ties go to the earlier entry. It returns -1 for an empty list.
func NearestFramerate(fps media.Rational, supported []media.Rational) int {
	best := -1
	var bestDist *big.Rat
	target := big.NewRat(int64(fps.Num), int64(fps.Den))
	for i, s := range supported {
		if s.Den == 0 {
			continue
		}
		d := new(big.Rat).Sub(target, big.NewRat(int64(s.Num), int64(s.Den)))
		d.Abs(d)
		if best < 0 || d.Cmp(bestDist) < 0 {
			best, bestDist = i, d
		}
	}
	return best
}

// Resolve computes the codec parameters and the option dictionary for codec.
// A frame rate the codec cannot represent is replaced by the nearest
// supported one and reported through log.
func (c Config) Resolve(codec ports.Codec, log ports.Logger) (media.CodecParameters, media.Options, error) {
	if err := c.Validate(); err != nil {
		return media.CodecParameters{}, nil, err
	}

	fps := c.FPS
	if supported := codec.SupportedFramerates(); len(supported) > 0 {
		if idx := NearestFramerate(fps, supported); idx >= 0 && !supported[idx].Equal(fps) {
			log.Warn("Framerate %s is not supported, using %s", fps, supported[idx])
			fps = supported[idx]
		}
	}
	if codec.Kind() == media.CodecMPEG4 {
		fps = TruncateFPS(fps)
	}

	gop, err := GOPSize(c.FPS)
	if err != nil {
		return media.CodecParameters{}, nil, err
	}

	pixFmt := c.PixelFormat
	if pixFmt == media.PixFmtNone {
		pixFmt = media.PixFmtYUV420P
	}

	params := media.CodecParameters{
		Codec:       codec.Kind(),
		Width:       c.Width,
		Height:      c.Height,
		PixelFormat: pixFmt,
		TimeBase:    media.Rational{Num: fps.Den, Den: fps.Num},
		Framerate:   fps,
		GOPSize:     gop,
		Flags:       media.FlagGlobalHeader,
	}

	opts := media.Options{}
	preset := PresetMedium
	if c.Preset != nil {
		preset = *c.Preset
	}
	opts["preset"] = preset.String()
	if c.Tune != nil {
		opts["tune"] = c.Tune.String()
	}
	if c.Profile != nil {
		opts["profile"] = c.Profile.String()
	}

	if c.BitrateKbps != nil {
		params.BitRate = 1000 * int64(*c.BitrateKbps)
	} else {
		params.Flags |= media.FlagQScale
		params.GlobalQuality = *c.Quality
		opts["crf"] = strconv.Itoa(*c.Quality)
	}
	return params, opts, nil
}
