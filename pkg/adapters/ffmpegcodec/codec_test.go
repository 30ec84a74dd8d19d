package ffmpegcodec

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/camencoder/pkg/adapters/logger"
	"github.com/user/camencoder/pkg/media"
)

func newCodec(t *testing.T, kind media.CodecKind) *Codec {
	t.Helper()
	c, err := New(kind, "", logger.NewNoop())
	require.NoError(t, err)
	return c
}

func testParams(kind media.CodecKind) media.CodecParameters {
	return media.CodecParameters{
		Codec:       kind,
		Width:       64,
		Height:      48,
		PixelFormat: media.PixFmtYUV420P,
		TimeBase:    media.R(1, 25),
		Framerate:   media.R(25, 1),
		GOPSize:     255,
	}
}

func argValue(args []string, flag string) (string, bool) {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestNew_RejectsMJPEG(t *testing.T) {
	_, err := New(media.CodecMJPEG, "", logger.NewNoop())
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestSupportedFramerates(t *testing.T) {
	assert.Nil(t, newCodec(t, media.CodecH264).SupportedFramerates())
	assert.Nil(t, newCodec(t, media.CodecMPEG4).SupportedFramerates())
	rates := newCodec(t, media.CodecMPEG2).SupportedFramerates()
	assert.Len(t, rates, 8)
	assert.Equal(t, media.R(30000, 1001), rates[3])
}

func TestBuildArgs_H264Quality(t *testing.T) {
	c := newCodec(t, media.CodecH264)
	params := testParams(media.CodecH264)
	params.Flags = media.FlagQScale | media.FlagGlobalHeader
	params.GlobalQuality = 20

	args, rest, err := c.buildArgs(params, media.Options{
		"preset":  "veryfast",
		"tune":    "stillimage",
		"profile": "high",
		"crf":     "20",
		"bogus":   "1",
	})
	require.NoError(t, err)

	assert.Equal(t, media.Options{"bogus": "1"}, rest)
	checks := map[string]string{
		"-c:v":         "libx264",
		"-s":           "64x48",
		"-framerate":   "25/1",
		"-g":           "255",
		"-bf":          "0",
		"-preset":      "veryfast",
		"-tune":        "stillimage",
		"-profile:v":   "high",
		"-crf":         "20",
		"-x264-params": "aud=1",
		"-f":           "rawvideo",
	}
	for flag, want := range checks {
		got, ok := argValue(args, flag)
		assert.True(t, ok, "missing %s", flag)
		assert.Equal(t, want, got, flag)
	}
	_, hasQScale := argValue(args, "-qscale:v")
	assert.False(t, hasQScale)
	assert.Equal(t, []string{"-f", "h264", "pipe:1"}, args[len(args)-3:])
}

func TestBuildArgs_MPEG2Bitrate(t *testing.T) {
	c := newCodec(t, media.CodecMPEG2)
	params := testParams(media.CodecMPEG2)
	params.BitRate = 1500000

	args, rest, err := c.buildArgs(params, media.Options{"preset": "medium"})
	require.NoError(t, err)
	assert.Equal(t, media.Options{"preset": "medium"}, rest, "mpeg2video has no presets")

	v, _ := argValue(args, "-b:v")
	assert.Equal(t, "1500000", v)
	assert.NotContains(t, strings.Join(args, " "), "x264")
	assert.Equal(t, []string{"-f", "mpeg2video", "pipe:1"}, args[len(args)-3:])
}

func TestBuildArgs_MPEG4QScale(t *testing.T) {
	c := newCodec(t, media.CodecMPEG4)
	params := testParams(media.CodecMPEG4)
	params.PixelFormat = media.PixFmtYUV444P
	params.Flags = media.FlagQScale
	params.GlobalQuality = 40

	args, rest, err := c.buildArgs(params, media.Options{"crf": "40"})
	require.NoError(t, err)
	assert.Equal(t, media.Options{"crf": "40"}, rest)

	q, _ := argValue(args, "-qscale:v")
	assert.Equal(t, "31", q)
	in, _ := argValue(args, "-pix_fmt")
	assert.Equal(t, "yuv444p", in)
	assert.Equal(t, []string{"-pix_fmt", "yuv420p", "-f", "m4v", "pipe:1"}, args[len(args)-5:])
}

func TestFindFFmpeg_CustomPathMissing(t *testing.T) {
	_, err := FindFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	assert.ErrorIs(t, err, ErrFFmpegNotFound)
}
