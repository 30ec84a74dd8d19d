package video

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/camencoder/pkg/adapters/mjpegcodec"
	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/mocks"
	"github.com/user/camencoder/pkg/ports"
)

func solidBitmap(w, h int, c color.Color) *dib.Bitmap {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return dib.FromImage(img)
}

func mjpegConfig() Config {
	return Config{
		Codec:   media.CodecMJPEG,
		Width:   32,
		Height:  16,
		FPS:     media.R(10, 1),
		Quality: intPtr(5),
	}
}

func TestNewEncoder_ConfigurationErrors(t *testing.T) {
	reg := mocks.Registry{media.CodecH264: &mocks.Codec{CodecKind: media.CodecH264}}
	log := mocks.NewLogger()

	cfg := baseConfig()
	cfg.Codec = media.CodecCamStudio
	_, err := NewEncoder(reg, cfg, log)
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = baseConfig()
	cfg.Codec = media.CodecMPEG2
	_, err = NewEncoder(reg, cfg, log)
	assert.ErrorIs(t, err, ErrEncoderNotFound)

	cfg = baseConfig()
	cfg.Quality = intPtr(20)
	_, err = NewEncoder(reg, cfg, log)
	assert.ErrorIs(t, err, ErrRateControl)
}

func TestEncoder_OpenReportsUnknownOptions(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264, Known: []string{"preset"}, Extradata: []byte{1, 2, 3}}
	log := mocks.NewLogger()
	cfg := baseConfig()
	profile := ProfileMain
	cfg.Profile = &profile

	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, cfg, log)
	require.NoError(t, err)
	defer enc.Close()

	params, err := enc.Open()
	require.NoError(t, err)
	assert.Equal(t, StateOpened, enc.State())
	assert.Equal(t, []byte{1, 2, 3}, params.Extradata)
	assert.Equal(t, media.Options{"profile": "main"}, enc.UnrecognizedOptions())
	assert.True(t, log.Contains(ports.LevelWarn, "Unknown codec option: profile"))
	assert.True(t, log.Contains(ports.LevelDebug, "codec id: h264"))

	require.Len(t, codec.OpenCalls, 1)
	assert.Equal(t, int64(2000000), codec.OpenCalls[0].BitRate)

	_, err = enc.Open()
	assert.ErrorIs(t, err, ErrState)
}

func TestEncoder_OpenFailure(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264, OpenErr: errors.New("no such preset")}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Open()
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, ErrEncode)
	assert.Equal(t, StateUnopened, enc.State())
}

func TestEncoder_PushBeforeOpen(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()

	assert.ErrorIs(t, enc.Push(0, solidBitmap(64, 48, color.White)), ErrState)
	var pkt media.Packet
	assert.ErrorIs(t, enc.Pull(&pkt), ErrState)
}

func TestEncoder_BackpressureSurfacesAgain(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264, Depth: 1}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()
	_, err = enc.Open()
	require.NoError(t, err)

	bmp := solidBitmap(64, 48, color.Black)
	require.NoError(t, enc.Push(0, bmp))
	err = enc.Push(1, bmp)
	assert.ErrorIs(t, err, media.ErrAgain)
	assert.NotErrorIs(t, err, ErrEncode)

	var pkt media.Packet
	require.NoError(t, enc.Pull(&pkt))
	assert.True(t, pkt.Valid)
	assert.Equal(t, int64(0), pkt.PTS)
	require.NoError(t, enc.Push(1, bmp))
}

func TestEncoder_BackendFailureIsEncodeError(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()
	_, err = enc.Open()
	require.NoError(t, err)

	codec.Sessions[0].ReceiveErr = errors.New("broken pipe")
	var pkt media.Packet
	err = enc.Pull(&pkt)
	assert.ErrorIs(t, err, ErrEncode)
	assert.False(t, pkt.Valid)
}

func TestEncoder_PushPullFlushMJPEG(t *testing.T) {
	reg := mocks.Registry{media.CodecMJPEG: mjpegcodec.New()}
	log := mocks.NewLogger()
	enc, err := NewEncoder(reg, mjpegConfig(), log)
	require.NoError(t, err)
	defer enc.Close()

	params, err := enc.Open()
	require.NoError(t, err)
	assert.Equal(t, media.R(1, 10), params.TimeBase)
	assert.Equal(t, media.CodecMJPEG, enc.Codec())

	var got []int64
	pull := func() {
		for {
			var pkt media.Packet
			require.NoError(t, enc.Pull(&pkt))
			if !pkt.Valid {
				return
			}
			got = append(got, pkt.PTS)
		}
	}

	// Source frames are larger than the output and get rescaled.
	colors := []color.Color{color.White, color.Black, color.RGBA{200, 30, 40, 255}}
	for i, c := range colors {
		require.NoError(t, enc.Push(int64(i), solidBitmap(64, 32, c)))
		pull()
	}
	require.NoError(t, enc.Push(0, nil))
	assert.Equal(t, StateFlushing, enc.State())
	assert.True(t, log.Contains(ports.LevelDebug, "Flush encoder"))

	for enc.State() != StateClosed {
		pull()
	}
	assert.Equal(t, []int64{0, 1, 2}, got)

	var pkt media.Packet
	assert.ErrorIs(t, enc.Pull(&pkt), ErrState)
	assert.ErrorIs(t, enc.Push(3, solidBitmap(64, 32, color.White)), ErrState)

	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())
}

func TestEncoder_FlushWithoutFrames(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	_, err = enc.Open()
	require.NoError(t, err)

	require.NoError(t, enc.Flush())
	require.NoError(t, enc.Flush(), "a repeated flush is ignored")

	var pkt media.Packet
	require.NoError(t, enc.Pull(&pkt))
	assert.False(t, pkt.Valid)
	assert.Equal(t, StateClosed, enc.State())
	assert.True(t, codec.Sessions[0].Closed)
	assert.Equal(t, 2, codec.Sessions[0].FlushCalls)
}

func TestEncoder_RejectsPaletteFrames(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, baseConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()
	_, err = enc.Open()
	require.NoError(t, err)

	bmp := &dib.Bitmap{
		Header:  dib.InfoHeader{Size: dib.InfoHeaderSize, Width: 4, Height: 4, Planes: 1, BitCount: 8},
		Palette: make([]dib.RGBQuad, 256),
		Pixels:  make([]byte, 16),
	}
	err = enc.Push(0, bmp)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEncoder_UnsupportedSourceFormatFailsAtOpen(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	cfg := baseConfig()
	cfg.SourceFormat = media.PixFmtPAL8
	enc, err := NewEncoder(mocks.Registry{media.CodecH264: codec}, cfg, mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Open()
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, StateUnopened, enc.State())
	assert.Empty(t, codec.OpenCalls, "the backend is not started")

	cfg.SourceFormat = media.PixFmtYUV420P
	_, err = NewEncoder(mocks.Registry{media.CodecH264: codec}, cfg, mocks.NewLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEncoder_RetainedFrameKeepsPixels(t *testing.T) {
	enc, err := NewEncoder(mocks.Registry{media.CodecMJPEG: mjpegcodec.New()}, mjpegConfig(), mocks.NewLogger())
	require.NoError(t, err)
	defer enc.Close()
	_, err = enc.Open()
	require.NoError(t, err)

	decodeCenter := func(pkt media.Packet) (r, g, b uint32) {
		img, err := jpeg.Decode(bytes.NewReader(pkt.Data))
		require.NoError(t, err)
		r, g, b, _ = img.At(16, 8).RGBA()
		return r >> 8, g >> 8, b >> 8
	}

	// The backend holds the white frame until it is pulled, so the black
	// frame is written into a fresh buffer and then rejected.
	require.NoError(t, enc.Push(0, solidBitmap(32, 16, color.White)))
	assert.ErrorIs(t, enc.Push(1, solidBitmap(32, 16, color.Black)), media.ErrAgain)

	var pkt media.Packet
	require.NoError(t, enc.Pull(&pkt))
	require.True(t, pkt.Valid)
	assert.Equal(t, int64(0), pkt.PTS)
	r, g, b := decodeCenter(pkt)
	assert.InDelta(t, 255, r, 3)
	assert.InDelta(t, 255, g, 3)
	assert.InDelta(t, 255, b, 3)

	require.NoError(t, enc.Push(1, solidBitmap(32, 16, color.Black)))
	require.NoError(t, enc.Pull(&pkt))
	require.True(t, pkt.Valid)
	assert.Equal(t, int64(1), pkt.PTS)
	r, g, b = decodeCenter(pkt)
	assert.InDelta(t, 0, r, 3)
	assert.InDelta(t, 0, g, 3)
	assert.InDelta(t, 0, b, 3)
}
