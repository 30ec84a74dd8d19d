// Package encode implements the encoding stage: frames from a source are
// pushed through a video.Encoder and the packets written to a muxer.
package encode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ideamans/go-l10n"

	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/pipeline"
	"github.com/user/camencoder/pkg/ports"
	"github.com/user/camencoder/pkg/video"
)

// MuxerFactory opens the output container.
type MuxerFactory func(path string, kind media.ContainerKind, optimize bool) (ports.Muxer, error)

// Stage encodes a frame source into a container file.
type Stage struct {
	registry ports.CodecRegistry
	open     MuxerFactory
	logger   ports.Logger
}

var _ pipeline.EncodeStage = (*Stage)(nil)

// NewStage creates a new encode stage.
func NewStage(registry ports.CodecRegistry, open MuxerFactory, logger ports.Logger) *Stage {
	return &Stage{
		registry: registry,
		open:     open,
		logger:   logger.WithComponent("encode"),
	}
}

// run holds the state of one Execute call.
type run struct {
	enc    *video.Encoder
	mux    ports.Muxer
	track  ports.TrackHandle
	result pipeline.EncodeResult
	pkt    media.Packet
}

// Execute encodes all frames of input.Source.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	enc, err := video.NewEncoder(s.registry, input.Video, s.logger)
	if err != nil {
		return pipeline.EncodeResult{}, fmt.Errorf("create encoder: %w", err)
	}
	defer enc.Close()

	params, err := enc.Open()
	if err != nil {
		return pipeline.EncodeResult{}, fmt.Errorf("open encoder: %w", err)
	}

	mux, err := s.open(input.OutputPath, input.Container, input.Optimize)
	if err != nil {
		return pipeline.EncodeResult{}, fmt.Errorf("open muxer: %w", err)
	}
	defer mux.Close()

	track, err := mux.AddTrack(media.TrackVideo, params)
	if err != nil {
		return pipeline.EncodeResult{}, fmt.Errorf("add track: %w", err)
	}

	r := &run{enc: enc, mux: mux, track: track}
	r.result.Params = params
	r.result.Unrecognized = enc.UnrecognizedOptions().Keys()

	s.logger.Info(l10n.F("Encoding %s %dx%d at %s", params.Codec, params.Width, params.Height, params.Framerate))

	for input.MaxFrames <= 0 || r.result.Frames < input.MaxFrames {
		select {
		case <-ctx.Done():
			return r.result, ctx.Err()
		default:
		}

		bmp, err := input.Source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.result, fmt.Errorf("read frame %d: %w", r.result.Frames, err)
		}
		if err := r.push(int64(r.result.Frames), bmp); err != nil {
			return r.result, fmt.Errorf("encode frame %d: %w", r.result.Frames, err)
		}
		r.result.Frames++
	}

	s.logger.Debug("Flushing after %d frames", r.result.Frames)
	if err := enc.Flush(); err != nil {
		return r.result, fmt.Errorf("flush: %w", err)
	}
	for enc.State() != video.StateClosed {
		select {
		case <-ctx.Done():
			return r.result, ctx.Err()
		default:
		}
		if err := r.drain(); err != nil {
			return r.result, err
		}
	}

	if err := mux.Close(); err != nil {
		return r.result, fmt.Errorf("close muxer: %w", err)
	}
	if tracks := mux.Tracks(); int(track) < len(tracks) {
		r.result.Track = tracks[track]
	}

	s.logger.Info(l10n.F("Encoded %d frames into %d packets", r.result.Frames, r.result.Packets))
	return r.result, nil
}

// push submits one frame, draining packets whenever the backend is full.
func (r *run) push(pts int64, bmp *dib.Bitmap) error {
	for {
		err := r.enc.Push(pts, bmp)
		if err == nil {
			return r.drain()
		}
		if !errors.Is(err, media.ErrAgain) {
			return err
		}
		before := r.result.Packets
		if err := r.drain(); err != nil {
			return err
		}
		if r.result.Packets == before {
			return fmt.Errorf("encoder neither accepts input nor produces output: %w", err)
		}
	}
}

// drain pulls packets until the encoder has none ready.
func (r *run) drain() error {
	for {
		if err := r.enc.Pull(&r.pkt); err != nil {
			return err
		}
		if !r.pkt.Valid {
			return nil
		}
		r.result.Packets++
		r.result.Bytes += int64(r.pkt.Size())
		if r.pkt.Keyframe {
			r.result.Keyframes++
		}
		if err := r.mux.WritePacket(r.track, &r.pkt); err != nil {
			return fmt.Errorf("write packet: %w", err)
		}
	}
}
