package ffmpegcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/camencoder/pkg/bitstream"
	"github.com/user/camencoder/pkg/media"
)

func encodeFrames(t *testing.T, kind media.CodecKind, n int) []media.Packet {
	t.Helper()
	if !IsAvailable("") {
		t.Skip("ffmpeg not available")
	}
	c := newCodec(t, kind)
	params := testParams(kind)
	params.GOPSize = 5
	params.BitRate = 500000

	sess, _, err := c.Open(params, media.Options{"preset": "ultrafast"})
	require.NoError(t, err)
	defer sess.Close()

	frame, err := media.NewFrame(media.PixFmtYUV420P, params.Width, params.Height)
	require.NoError(t, err)

	var packets []media.Packet
	drain := func() error {
		for {
			var pkt media.Packet
			err := sess.ReceivePacket(&pkt)
			if err != nil {
				return err
			}
			packets = append(packets, pkt)
		}
	}

	for i := 0; i < n; i++ {
		for j := range frame.Planes[0] {
			frame.Planes[0][j] = byte(i*20 + j)
		}
		frame.PTS = int64(i)
		require.NoError(t, sess.SendFrame(frame))
		assert.ErrorIs(t, drain(), media.ErrAgain)
	}
	require.NoError(t, sess.SendFrame(nil))
	assert.ErrorIs(t, sess.SendFrame(nil), media.ErrEOF)
	assert.ErrorIs(t, drain(), media.ErrEOF)
	return packets
}

func TestSession_H264(t *testing.T) {
	packets := encodeFrames(t, media.CodecH264, 12)
	require.Len(t, packets, 12)

	require.True(t, packets[0].Keyframe)
	lastKey := 0
	for i, p := range packets {
		assert.Equal(t, int64(i), p.PTS)
		if p.Keyframe {
			assert.LessOrEqual(t, i-lastKey, 5, "keyframe gap before packet %d", i)
			lastKey = i
		}
	}
	assert.GreaterOrEqual(t, lastKey, 5)
	_, _, err := bitstream.ParameterSets(packets[0].Data)
	assert.NoError(t, err)
}

func TestSession_MPEG2(t *testing.T) {
	packets := encodeFrames(t, media.CodecMPEG2, 6)
	require.Len(t, packets, 6)
	assert.True(t, packets[0].Keyframe)
	assert.True(t, packets[5].Keyframe)
	assert.False(t, packets[1].Keyframe)
}
