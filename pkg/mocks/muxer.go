package mocks

import (
	"fmt"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Muxer records the tracks and packets it receives.
type Muxer struct {
	tracks []media.StreamTrack

	AddTrackErr    error
	WritePacketErr error

	// Recorded calls for verification
	Packets     []media.Packet
	CloseCalled bool
}

func (m *Muxer) AddTrack(kind media.TrackKind, params media.CodecParameters) (ports.TrackHandle, error) {
	if m.AddTrackErr != nil {
		return 0, m.AddTrackErr
	}
	m.tracks = append(m.tracks, media.StreamTrack{Kind: kind, TimeBase: params.TimeBase, Params: params})
	return ports.TrackHandle(len(m.tracks) - 1), nil
}

func (m *Muxer) WritePacket(track ports.TrackHandle, pkt *media.Packet) error {
	if m.WritePacketErr != nil {
		return m.WritePacketErr
	}
	if int(track) < 0 || int(track) >= len(m.tracks) {
		return fmt.Errorf("unknown track %d", track)
	}
	dur := pkt.Duration
	if dur == 0 {
		dur = 1
	}
	m.tracks[track].Duration += dur
	m.Packets = append(m.Packets, *pkt)
	return nil
}

func (m *Muxer) Tracks() []media.StreamTrack {
	return append([]media.StreamTrack(nil), m.tracks...)
}

func (m *Muxer) Close() error {
	m.CloseCalled = true
	return nil
}

var _ ports.Muxer = (*Muxer)(nil)
