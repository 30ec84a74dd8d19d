// Package mkvmuxer writes Matroska files.
package mkvmuxer

import (
	"fmt"
	"io"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"

	"github.com/user/camencoder/pkg/bitstream"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Matroska codec IDs.
const (
	CodecIDAVC   = "V_MPEG4/ISO/AVC"
	CodecIDMPEG4 = "V_MPEG4/ISO/ASP"
	CodecIDMPEG2 = "V_MPEG2"
	CodecIDMJPEG = "V_MJPEG"
)

// timecodeScale makes block timestamps milliseconds.
const timecodeScale = 1000000

type track struct {
	st    media.StreamTrack
	entry webm.TrackEntry
	bw    webm.BlockWriteCloser
}

// Muxer implements ports.Muxer for Matroska. The header is written with the
// first packet so H.264 tracks can carry the parameter sets of the first
// keyframe in CodecPrivate.
type Muxer struct {
	w   io.WriteCloser
	log ports.Logger

	tracks  []*track
	started bool
	closed  bool
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// New creates a muxer writing to w. Matroska has no fragmented layout, so
// optimize has no effect. Close closes w if it is an io.Closer.
func New(w io.Writer, optimize bool, log ports.Logger) *Muxer {
	log = log.WithComponent("mkvmuxer")
	if optimize {
		log.Debug("Optimize has no effect for matroska")
	}
	wc, ok := w.(io.WriteCloser)
	if !ok {
		wc = nopCloser{w}
	}
	return &Muxer{w: wc, log: log}
}

// CodecID returns the Matroska codec ID for kind.
func CodecID(kind media.CodecKind) (string, bool) {
	switch kind {
	case media.CodecH264:
		return CodecIDAVC, true
	case media.CodecMPEG4:
		return CodecIDMPEG4, true
	case media.CodecMPEG2:
		return CodecIDMPEG2, true
	case media.CodecMJPEG:
		return CodecIDMJPEG, true
	default:
		return "", false
	}
}

// AddTrack registers a video track.
func (m *Muxer) AddTrack(kind media.TrackKind, params media.CodecParameters) (ports.TrackHandle, error) {
	if m.closed {
		return 0, ports.ErrMuxerClosed
	}
	if kind != media.TrackVideo {
		return 0, fmt.Errorf("%w: %s", ports.ErrUnsupportedTrack, kind)
	}
	codecID, ok := CodecID(params.Codec)
	if !ok {
		return 0, fmt.Errorf("%w: %s in matroska", ports.ErrUnsupportedCodec, params.Codec)
	}
	if m.started {
		return 0, ports.ErrTrackAfterStart
	}
	if params.TimeBase.Num <= 0 || params.TimeBase.Den <= 0 {
		return 0, fmt.Errorf("mkvmuxer: invalid time base %s", params.TimeBase)
	}

	n := uint64(len(m.tracks) + 1)
	entry := webm.TrackEntry{
		Name:        fmt.Sprintf("Video %d", n),
		TrackNumber: n,
		TrackUID:    n,
		CodecID:     codecID,
		TrackType:   1,
		Video: &webm.Video{
			PixelWidth:  uint64(params.Width),
			PixelHeight: uint64(params.Height),
		},
	}
	if fr := params.Framerate; fr.Num > 0 && fr.Den > 0 {
		entry.DefaultDuration = uint64(1e9 * int64(fr.Den) / int64(fr.Num))
	}
	m.tracks = append(m.tracks, &track{
		st:    media.StreamTrack{Kind: kind, TimeBase: params.TimeBase, Params: params},
		entry: entry,
	})
	m.log.Debug("Added %s track %d", codecID, n)
	return ports.TrackHandle(n - 1), nil
}

// WritePacket writes pkt as a SimpleBlock of the track.
func (m *Muxer) WritePacket(h ports.TrackHandle, pkt *media.Packet) error {
	if m.closed {
		return ports.ErrMuxerClosed
	}
	if int(h) < 0 || int(h) >= len(m.tracks) {
		return fmt.Errorf("%w: %d", ports.ErrUnknownTrack, h)
	}
	t := m.tracks[h]

	if !m.started {
		if err := m.writeHeader(t, pkt); err != nil {
			return err
		}
		m.started = true
	}

	data := pkt.Data
	if t.st.Params.Codec == media.CodecH264 {
		data = bitstream.ToAVCC(data)
	}
	if _, err := t.bw.Write(pkt.Keyframe, Millis(pkt.PTS, t.st.TimeBase), data); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	ticks := pkt.Duration
	if ticks <= 0 {
		ticks = 1
	}
	t.st.Duration += ticks
	return nil
}

// Millis converts pts in time-base units to milliseconds.
func Millis(pts int64, tb media.Rational) int64 {
	return pts * int64(tb.Num) * 1000 / int64(tb.Den)
}

func (m *Muxer) writeHeader(first *track, pkt *media.Packet) error {
	entries := make([]webm.TrackEntry, len(m.tracks))
	for i, t := range m.tracks {
		if t.st.Params.Codec == media.CodecH264 {
			src := t.st.Params.Extradata
			if t == first {
				if _, _, err := bitstream.ParameterSets(pkt.Data); err == nil {
					src = pkt.Data
				}
			}
			sps, pps, err := bitstream.ParameterSets(src)
			if err != nil {
				return fmt.Errorf("mkvmuxer: track %d: %w", t.entry.TrackNumber, err)
			}
			record, err := bitstream.AVCDecoderConfigRecord(sps, pps)
			if err != nil {
				return fmt.Errorf("mkvmuxer: track %d: %w", t.entry.TrackNumber, err)
			}
			t.entry.CodecPrivate = record
		}
		entries[i] = t.entry
	}

	header := *webm.DefaultEBMLHeader
	header.DocType = "matroska"
	header.DocTypeVersion = 4
	header.DocTypeReadVersion = 2

	writers, err := webm.NewSimpleBlockWriter(m.w, entries,
		mkvcore.WithEBMLHeader(&header),
		mkvcore.WithSegmentInfo(&webm.Info{
			TimecodeScale: timecodeScale,
			MuxingApp:     "camencoder",
			WritingApp:    "camencoder",
		}),
	)
	if err != nil {
		return fmt.Errorf("mkvmuxer: write header: %w", err)
	}
	for i, t := range m.tracks {
		t.bw = writers[i]
	}
	m.log.Debug("Wrote matroska header with %d tracks", len(m.tracks))
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

// Close finishes the file. A muxer that never received a packet writes
// nothing.
func (m *Muxer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	if !m.started {
		return m.w.Close()
	}
	var err error
	for _, t := range m.tracks {
		if cerr := t.bw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var _ ports.Muxer = (*Muxer)(nil)
