package ffmpegcodec

import (
	"fmt"
	"strconv"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// mpeg2Framerates are the frame rates an MPEG-2 sequence header can signal.
var mpeg2Framerates = []media.Rational{
	{Num: 24000, Den: 1001},
	{Num: 24, Den: 1},
	{Num: 25, Den: 1},
	{Num: 30000, Den: 1001},
	{Num: 30, Den: 1},
	{Num: 50, Den: 1},
	{Num: 60000, Den: 1001},
	{Num: 60, Den: 1},
}

type codecInfo struct {
	encoder string
	format  string
	// options lists the dictionary keys the encoder understands.
	options []string
}

var codecTable = map[media.CodecKind]codecInfo{
	media.CodecH264:  {encoder: "libx264", format: "h264", options: []string{"preset", "tune", "profile", "crf", "threads"}},
	media.CodecMPEG4: {encoder: "mpeg4", format: "m4v", options: []string{"threads"}},
	media.CodecMPEG2: {encoder: "mpeg2video", format: "mpeg2video", options: []string{"threads"}},
}

// Codec is a ports.Codec backed by ffmpeg.
type Codec struct {
	kind       media.CodecKind
	info       codecInfo
	ffmpegPath string
	log        ports.Logger
}

// New creates a codec for kind. An empty ffmpegPath searches the usual
// locations when a session is opened.
func New(kind media.CodecKind, ffmpegPath string, log ports.Logger) (*Codec, error) {
	info, ok := codecTable[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, kind)
	}
	return &Codec{
		kind:       kind,
		info:       info,
		ffmpegPath: ffmpegPath,
		log:        log.WithComponent("ffmpeg"),
	}, nil
}

func (c *Codec) Name() string          { return c.info.encoder }
func (c *Codec) Kind() media.CodecKind { return c.kind }

// SupportedFramerates returns the MPEG-2 rate table; other codecs accept any
// rate.
func (c *Codec) SupportedFramerates() []media.Rational {
	if c.kind == media.CodecMPEG2 {
		return mpeg2Framerates
	}
	return nil
}

// Open starts ffmpeg for one stream.
func (c *Codec) Open(params media.CodecParameters, opts media.Options) (ports.CodecSession, media.Options, error) {
	path, err := FindFFmpeg(c.ffmpegPath)
	if err != nil {
		return nil, opts, err
	}
	args, rest, err := c.buildArgs(params, opts)
	if err != nil {
		return nil, opts, err
	}
	c.log.Debug("Starting %s %v", path, args)

	s, err := startSession(c.kind, path, args, c.log)
	if err != nil {
		return nil, opts, err
	}
	return s, rest, nil
}

// buildArgs translates parameters and options into an ffmpeg command line.
// Raw frames arrive on stdin; the elementary stream leaves on stdout.
func (c *Codec) buildArgs(params media.CodecParameters, opts media.Options) ([]string, media.Options, error) {
	if !params.PixelFormat.Planar() {
		return nil, opts, fmt.Errorf("%w: pixel format %s", ErrUnsupportedCodec, params.PixelFormat)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", params.PixelFormat.String(),
		"-s", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", params.Framerate.String(),
		"-i", "pipe:0",
		"-c:v", c.info.encoder,
		"-g", strconv.Itoa(params.GOPSize),
		// Without B-frames packets leave in presentation order.
		"-bf", "0",
	}

	rest := opts.Clone()
	for _, key := range c.info.options {
		v, ok := rest[key]
		if !ok {
			continue
		}
		delete(rest, key)
		switch key {
		case "profile":
			args = append(args, "-profile:v", v)
		default:
			args = append(args, "-"+key, v)
		}
	}

	switch {
	case params.BitRate > 0:
		args = append(args, "-b:v", strconv.FormatInt(params.BitRate, 10))
	case params.Flags&media.FlagQScale != 0 && c.kind != media.CodecH264:
		q := max(1, min(31, params.GlobalQuality))
		args = append(args, "-qscale:v", strconv.Itoa(q))
	}

	outFmt := params.PixelFormat
	if c.kind == media.CodecH264 {
		args = append(args, "-x264-params", "aud=1")
	} else {
		outFmt = media.PixFmtYUV420P
	}
	args = append(args, "-pix_fmt", outFmt.String(), "-f", c.info.format, "pipe:1")
	return args, rest, nil
}

var _ ports.Codec = (*Codec)(nil)
