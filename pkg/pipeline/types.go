package pipeline

import (
	"github.com/user/camencoder/pkg/adapters/probe"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
	"github.com/user/camencoder/pkg/video"
)

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for encoding one clip.
type EncodeInput struct {
	Source     ports.FrameSource
	Video      video.Config
	Container  media.ContainerKind
	OutputPath string
	Optimize   bool
	// MaxFrames stops after this many frames; 0 reads the whole source.
	MaxFrames int
}

// EncodeResult describes the written file.
type EncodeResult struct {
	Frames    int
	Packets   int
	Keyframes int
	Bytes     int64 // compressed payload, excluding container overhead
	Params    media.CodecParameters
	Track     media.StreamTrack
	// Unrecognized lists codec options the backend ignored.
	Unrecognized []string
}

// DurationMs returns the muxed duration in milliseconds.
func (r EncodeResult) DurationMs() int64 {
	tb := r.Track.TimeBase
	if tb.Den == 0 {
		return 0
	}
	return r.Track.Duration * int64(tb.Num) * 1000 / int64(tb.Den)
}

// =============================================================================
// Probe Stage Types
// =============================================================================

// ProbeInput names the file to inspect.
type ProbeInput struct {
	Path      string
	Container media.ContainerKind
}

// ProbeResult contains the probed layout. Info is nil for containers the
// prober cannot read.
type ProbeResult struct {
	Info     *probe.Info
	FileSize int64
}
