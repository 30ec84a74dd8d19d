// Package mp4muxer writes fragmented MP4 files.
package mp4muxer

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/camencoder/pkg/bitstream"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

type track struct {
	st      media.StreamTrack
	id      uint32
	pending []mp4.FullSample
	// decodeEnd is where the next sample starts when packets carry no DTS
	// progression of their own.
	decodeEnd uint64
}

// Muxer implements ports.Muxer for fragmented MP4.
//
// The init segment is written with the first packet so H.264 parameter sets
// can be taken from the first keyframe. Without optimize a fragment is
// emitted at every keyframe; with optimize every track is written as a
// single fragment on Close.
type Muxer struct {
	w        io.Writer
	closer   io.Closer
	optimize bool
	log      ports.Logger

	tracks  []*track
	started bool
	seq     uint32
	closed  bool
}

// New creates a muxer writing to w. Close closes w if it is an io.Closer.
func New(w io.Writer, optimize bool, log ports.Logger) *Muxer {
	m := &Muxer{w: w, optimize: optimize, log: log.WithComponent("mp4muxer"), seq: 1}
	if c, ok := w.(io.Closer); ok {
		m.closer = c
	}
	return m
}

// AddTrack registers a video track. H.264 and MJPEG are supported.
func (m *Muxer) AddTrack(kind media.TrackKind, params media.CodecParameters) (ports.TrackHandle, error) {
	if m.closed {
		return 0, ports.ErrMuxerClosed
	}
	if kind != media.TrackVideo {
		return 0, fmt.Errorf("%w: %s", ports.ErrUnsupportedTrack, kind)
	}
	switch params.Codec {
	case media.CodecH264, media.CodecMJPEG:
	default:
		return 0, fmt.Errorf("%w: %s in mp4", ports.ErrUnsupportedCodec, params.Codec)
	}
	if m.started {
		return 0, ports.ErrTrackAfterStart
	}
	if params.TimeBase.Num <= 0 || params.TimeBase.Den <= 0 {
		return 0, fmt.Errorf("mp4muxer: invalid time base %s", params.TimeBase)
	}

	t := &track{
		st: media.StreamTrack{Kind: kind, TimeBase: params.TimeBase, Params: params},
		id: uint32(len(m.tracks) + 1),
	}
	m.tracks = append(m.tracks, t)
	m.log.Debug("Added %s track %d, timescale %d", params.Codec, t.id, params.TimeBase.Den)
	return ports.TrackHandle(len(m.tracks) - 1), nil
}

// WritePacket appends pkt to the track.
func (m *Muxer) WritePacket(h ports.TrackHandle, pkt *media.Packet) error {
	if m.closed {
		return ports.ErrMuxerClosed
	}
	if int(h) < 0 || int(h) >= len(m.tracks) {
		return fmt.Errorf("%w: %d", ports.ErrUnknownTrack, h)
	}
	t := m.tracks[h]

	if !m.started {
		if err := m.writeInit(t, pkt); err != nil {
			return err
		}
		m.started = true
	}

	if !m.optimize && pkt.Keyframe && len(t.pending) > 0 {
		if err := m.flushTrack(t); err != nil {
			return err
		}
	}

	ticks := pkt.Duration
	if ticks <= 0 {
		ticks = 1
	}
	tbNum := uint64(t.st.TimeBase.Num)
	dur := uint32(uint64(ticks) * tbNum)

	decodeTime := uint64(pkt.DTS) * tbNum
	if pkt.DTS < 0 || decodeTime < t.decodeEnd {
		decodeTime = t.decodeEnd
	}
	t.decodeEnd = decodeTime + uint64(dur)

	data := pkt.Data
	if t.st.Params.Codec == media.CodecH264 {
		data = bitstream.ToAVCC(data)
	}
	flags := mp4.NonSyncSampleFlags
	if pkt.Keyframe {
		flags = mp4.SyncSampleFlags
	}
	t.pending = append(t.pending, mp4.FullSample{
		Sample: mp4.Sample{
			Flags: flags,
			Size:  uint32(len(data)),
			Dur:   dur,
		},
		DecodeTime: decodeTime,
		Data:       data,
	})
	t.st.Duration += ticks
	return nil
}

// writeInit writes ftyp and moov. first is the packet that triggered it.
func (m *Muxer) writeInit(first *track, pkt *media.Packet) error {
	init := mp4.CreateEmptyInit()
	brands := []string{"isom", "iso2", "mp41"}

	for i, t := range m.tracks {
		init.AddEmptyTrack(uint32(t.st.TimeBase.Den), "video", "und")
		trak := init.Moov.Traks[i]
		p := t.st.Params
		width, height := uint16(p.Width), uint16(p.Height)

		var entry mp4.Box
		switch p.Codec {
		case media.CodecH264:
			src := p.Extradata
			if t == first {
				if _, _, err := bitstream.ParameterSets(pkt.Data); err == nil {
					src = pkt.Data
				}
			}
			sps, pps, err := bitstream.ParameterSets(src)
			if err != nil {
				return fmt.Errorf("mp4muxer: track %d: %w", t.id, err)
			}
			avcC, err := bitstream.AVCConfig(sps, pps)
			if err != nil {
				return fmt.Errorf("mp4muxer: track %d: %w", t.id, err)
			}
			entry = mp4.CreateVisualSampleEntryBox("avc1", width, height, avcC)
			brands = append(brands, "avc1")
		case media.CodecMJPEG:
			jpeg := mp4.NewVisualSampleEntryBox("jpeg")
			jpeg.Width, jpeg.Height = width, height
			entry = jpeg
		}
		trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
		trak.Tkhd.Width = mp4.Fixed32(p.Width << 16)
		trak.Tkhd.Height = mp4.Fixed32(p.Height << 16)
	}

	ftyp := mp4.NewFtyp("isom", 0x200, brands)
	if err := ftyp.Encode(m.w); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(m.w); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	m.log.Debug("Wrote init segment with %d tracks", len(m.tracks))
	return nil
}

// flushTrack writes the pending samples of t as one moof+mdat.
func (m *Muxer) flushTrack(t *track) error {
	if len(t.pending) == 0 {
		return nil
	}
	frag, err := mp4.CreateFragment(m.seq, t.id)
	if err != nil {
		return fmt.Errorf("create fragment: %w", err)
	}
	for _, s := range t.pending {
		frag.AddFullSample(s)
	}
	if err := frag.Encode(m.w); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	m.log.Debug("Wrote fragment %d with %d samples", m.seq, len(t.pending))
	m.seq++
	t.pending = nil
	return nil
}

// Tracks returns a snapshot of the tracks.
func (m *Muxer) Tracks() []media.StreamTrack {
	out := make([]media.StreamTrack, len(m.tracks))
	for i, t := range m.tracks {
		out[i] = t.st
	}
	return out
}

// Close writes the remaining samples and closes the output.
func (m *Muxer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	for _, t := range m.tracks {
		if ferr := m.flushTrack(t); ferr != nil && err == nil {
			err = ferr
		}
	}
	if m.closer != nil {
		if cerr := m.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var _ ports.Muxer = (*Muxer)(nil)
