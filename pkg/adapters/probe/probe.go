// Package probe reports the track layout of MP4 files.
package probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// sampleIsNonSync is the sample_is_non_sync_sample bit of trun sample flags.
const sampleIsNonSync = 0x00010000

var (
	// ErrNoVideoTrack is returned when a file has no video track.
	ErrNoVideoTrack = errors.New("probe: no video track found")
)

// Track describes one track of a file.
type Track struct {
	ID        uint32
	Handler   string
	Codec     media.CodecKind
	Entry     string // sample entry type, e.g. "avc1"
	Width     int
	Height    int
	Timescale uint32
	Samples   int
	Keyframes int
	Duration  uint64 // in timescale units
	SPS       [][]byte
	PPS       [][]byte
}

// Seconds returns the track duration in seconds.
func (t Track) Seconds() float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(t.Duration) / float64(t.Timescale)
}

// Info is the result of probing a file.
type Info struct {
	Fragmented bool
	Fragments  int
	Tracks     []Track
}

// Video returns the first video track.
func (i *Info) Video() (Track, error) {
	for _, t := range i.Tracks {
		if t.Handler == "vide" {
			return t, nil
		}
	}
	return Track{}, ErrNoVideoTrack
}

// File probes path through fs.
func File(fs ports.FileSystem, path string) (*Info, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Bytes(data)
}

// Bytes probes MP4 data.
func Bytes(data []byte) (*Info, error) {
	return Reader(bytes.NewReader(data))
}

// Reader probes an MP4 stream.
func Reader(r io.ReadSeeker) (*Info, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	info := &Info{Fragmented: f.IsFragmented()}
	moov := f.Moov
	if info.Fragmented && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return nil, ErrNoVideoTrack
	}

	byID := make(map[uint32]int)
	for _, trak := range moov.Traks {
		t := describeTrack(trak)
		byID[t.ID] = len(info.Tracks)
		info.Tracks = append(info.Tracks, t)
	}

	if info.Fragmented {
		if err := countFragments(f, moov, info, byID); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func describeTrack(trak *mp4.TrakBox) Track {
	t := Track{ID: trak.Tkhd.TrackID}
	if trak.Mdia == nil {
		return t
	}
	if trak.Mdia.Hdlr != nil {
		t.Handler = trak.Mdia.Hdlr.HandlerType
	}
	if trak.Mdia.Mdhd != nil {
		t.Timescale = trak.Mdia.Mdhd.Timescale
		t.Duration = trak.Mdia.Mdhd.Duration
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return t
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		t.Entry = child.Type()
		switch t.Entry {
		case "avc1", "avc3":
			t.Codec = media.CodecH264
		case "jpeg", "mjpa", "mjpg":
			t.Codec = media.CodecMJPEG
		case "mp4v":
			t.Codec = media.CodecMPEG4
		}
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			t.Width = int(vse.Width)
			t.Height = int(vse.Height)
			if vse.AvcC != nil {
				t.SPS = vse.AvcC.SPSnalus
				t.PPS = vse.AvcC.PPSnalus
			}
		}
		break
	}
	return t
}

func countFragments(f *mp4.File, moov *mp4.MoovBox, info *Info, byID map[uint32]int) error {
	trexs := make(map[uint32]*mp4.TrexBox)
	if moov.Mvex != nil {
		for _, trex := range moov.Mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	var duration = make(map[uint32]uint64)
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			info.Fragments++
			id := frag.Moof.Trafs[0].Tfhd.TrackID
			idx, ok := byID[id]
			if !ok {
				continue
			}
			samples, err := frag.GetFullSamples(trexs[id])
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			t := &info.Tracks[idx]
			for _, s := range samples {
				t.Samples++
				if s.Flags&sampleIsNonSync == 0 {
					t.Keyframes++
				}
				if end := s.DecodeTime + uint64(s.Dur); end > duration[id] {
					duration[id] = end
				}
			}
		}
	}
	for id, d := range duration {
		info.Tracks[byID[id]].Duration = d
	}
	return nil
}
