package encode

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/user/camencoder/pkg/adapters/logger"
	"github.com/user/camencoder/pkg/adapters/mjpegcodec"
	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/mocks"
	"github.com/user/camencoder/pkg/pipeline"
	"github.com/user/camencoder/pkg/ports"
	"github.com/user/camencoder/pkg/video"
)

func frames(n int) []*dib.Bitmap {
	out := make([]*dib.Bitmap, n)
	for i := range out {
		out[i] = dib.FromImage(image.NewRGBA(image.Rect(0, 0, 16, 8)))
	}
	return out
}

func newInput(n int) pipeline.EncodeInput {
	q := 23
	return pipeline.EncodeInput{
		Source: &mocks.FrameSource{Frames: frames(n)},
		Video: video.Config{
			Codec:   media.CodecH264,
			Width:   16,
			Height:  8,
			FPS:     media.R(25, 1),
			Quality: &q,
		},
		OutputPath: "/out/clip.mp4",
	}
}

func newStage(codec *mocks.Codec, mux *mocks.Muxer) (*Stage, *[]string) {
	var opened []string
	open := func(path string, kind media.ContainerKind, optimize bool) (ports.Muxer, error) {
		opened = append(opened, path)
		return mux, nil
	}
	reg := mocks.Registry{codec.CodecKind: codec}
	return NewStage(reg, open, logger.NewNoop()), &opened
}

func TestStage_Execute(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264, Depth: 3, Known: []string{"preset", "crf"}}
	mux := &mocks.Muxer{}
	stage, opened := newStage(codec, mux)

	result, err := stage.Execute(context.Background(), newInput(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*opened) != 1 || (*opened)[0] != "/out/clip.mp4" {
		t.Errorf("expected muxer opened on output path, got %v", *opened)
	}
	if result.Frames != 7 {
		t.Errorf("expected 7 frames, got %d", result.Frames)
	}
	if result.Packets != 7 || len(mux.Packets) != 7 {
		t.Errorf("expected 7 packets, got %d (muxer saw %d)", result.Packets, len(mux.Packets))
	}
	for i, pkt := range mux.Packets {
		if pkt.PTS != int64(i) {
			t.Errorf("packet %d: expected pts %d, got %d", i, i, pkt.PTS)
		}
	}
	if result.Bytes != 14 {
		t.Errorf("expected 14 payload bytes, got %d", result.Bytes)
	}
	if result.Track.Duration != 7 {
		t.Errorf("expected track duration 7, got %d", result.Track.Duration)
	}
	if got := result.DurationMs(); got != 280 {
		t.Errorf("expected 280 ms, got %d", got)
	}
	if !mux.CloseCalled {
		t.Error("expected muxer to be closed")
	}

	session := codec.Sessions[0]
	if session.FlushCalls != 1 {
		t.Errorf("expected one flush, got %d", session.FlushCalls)
	}
	if !session.Closed {
		t.Error("expected codec session to be closed")
	}
	if len(result.Unrecognized) != 0 {
		t.Errorf("expected no unrecognized options, got %v", result.Unrecognized)
	}
}

func TestStage_Execute_MaxFrames(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	mux := &mocks.Muxer{}
	stage, _ := newStage(codec, mux)

	input := newInput(10)
	input.MaxFrames = 4
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Frames != 4 || result.Packets != 4 {
		t.Errorf("expected 4 frames and packets, got %d and %d", result.Frames, result.Packets)
	}
}

func TestStage_Execute_ReportsUnrecognizedOptions(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	stage, _ := newStage(codec, &mocks.Muxer{})

	result, err := stage.Execute(context.Background(), newInput(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"crf", "preset"}
	if len(result.Unrecognized) != 2 || result.Unrecognized[0] != want[0] || result.Unrecognized[1] != want[1] {
		t.Errorf("expected %v, got %v", want, result.Unrecognized)
	}
}

func TestStage_Execute_EncoderNotFound(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecMJPEG}
	stage, opened := newStage(codec, &mocks.Muxer{})

	_, err := stage.Execute(context.Background(), newInput(1))
	if !errors.Is(err, video.ErrEncoderNotFound) {
		t.Fatalf("expected ErrEncoderNotFound, got %v", err)
	}
	if !errors.Is(err, video.ErrConfiguration) {
		t.Error("expected a configuration error")
	}
	if len(*opened) != 0 {
		t.Error("muxer must not be opened when the encoder fails")
	}
}

func TestStage_Execute_SourceError(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	mux := &mocks.Muxer{}
	stage, _ := newStage(codec, mux)

	input := newInput(2)
	input.Source = &mocks.FrameSource{Frames: frames(2), Err: errors.New("disk gone")}
	_, err := stage.Execute(context.Background(), input)
	if err == nil {
		t.Fatal("expected error from source")
	}
	if !mux.CloseCalled {
		t.Error("expected muxer to be closed on error")
	}
	if !codec.Sessions[0].Closed {
		t.Error("expected session to be closed on error")
	}
}

func TestStage_Execute_WritePacketError(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	mux := &mocks.Muxer{WritePacketErr: errors.New("disk full")}
	stage, _ := newStage(codec, mux)

	if _, err := stage.Execute(context.Background(), newInput(3)); err == nil {
		t.Fatal("expected error from muxer")
	}
}

func TestStage_Execute_ContextCancelled(t *testing.T) {
	codec := &mocks.Codec{CodecKind: media.CodecH264}
	stage, _ := newStage(codec, &mocks.Muxer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := stage.Execute(ctx, newInput(2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStage_Execute_MJPEG(t *testing.T) {
	mux := &mocks.Muxer{}
	open := func(path string, kind media.ContainerKind, optimize bool) (ports.Muxer, error) {
		return mux, nil
	}
	reg := mocks.Registry{media.CodecMJPEG: mjpegcodec.New()}
	stage := NewStage(reg, open, logger.NewNoop())

	input := newInput(3)
	input.Video.Codec = media.CodecMJPEG
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Packets != 3 || result.Keyframes != 3 {
		t.Errorf("expected 3 key packets, got %d packets, %d keyframes", result.Packets, result.Keyframes)
	}
	for i, pkt := range mux.Packets {
		if len(pkt.Data) < 2 || pkt.Data[0] != 0xFF || pkt.Data[1] != 0xD8 {
			t.Errorf("packet %d is not a JPEG image", i)
		}
	}
	if len(result.Unrecognized) != 2 {
		t.Errorf("expected crf and preset to be ignored, got %v", result.Unrecognized)
	}
}
