package ports

import (
	"errors"

	"github.com/user/camencoder/pkg/media"
)

// Errors shared by Muxer implementations.
var (
	ErrUnsupportedTrack = errors.New("muxer: unsupported track type")
	ErrUnsupportedCodec = errors.New("muxer: codec not supported by container")
	ErrUnknownTrack     = errors.New("muxer: unknown track")
	ErrTrackAfterStart  = errors.New("muxer: tracks must be added before the first packet")
	ErrMuxerClosed      = errors.New("muxer: closed")
)

// TrackHandle identifies a track added to a Muxer.
type TrackHandle int

// Muxer writes encoded packets into a container.
type Muxer interface {
	// AddTrack registers an elementary stream. Params.TimeBase is the unit of
	// every packet timestamp written to the track.
	AddTrack(kind media.TrackKind, params media.CodecParameters) (TrackHandle, error)

	// WritePacket appends a packet to the track and takes ownership of it.
	WritePacket(track TrackHandle, pkt *media.Packet) error

	// Tracks returns a snapshot of the tracks and their running durations.
	Tracks() []media.StreamTrack

	// Close finalizes the container.
	Close() error
}
