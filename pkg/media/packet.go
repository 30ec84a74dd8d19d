package media

import (
	"fmt"
	"sort"
	"strings"
)

// Packet is one compressed access unit.
type Packet struct {
	Data     []byte
	PTS      int64
	DTS      int64
	Duration int64 // in time-base ticks, 0 means one tick
	Keyframe bool
	Valid    bool
}

// Size returns the payload size in bytes.
func (p *Packet) Size() int {
	return len(p.Data)
}

// Reset empties the packet so it can be filled again.
func (p *Packet) Reset() {
	*p = Packet{}
}

// Codec flags.
const (
	// FlagQScale selects constant-quantizer rate control.
	FlagQScale = 1 << iota
	// FlagGlobalHeader asks the codec to expose parameter sets as extradata
	// instead of repeating them in the stream.
	FlagGlobalHeader
)

// CodecParameters are the resolved settings of an encoder. They are
// published to the muxer when the encoder opens.
type CodecParameters struct {
	Codec         CodecKind
	Width         int
	Height        int
	PixelFormat   PixelFormat
	TimeBase      Rational
	Framerate     Rational
	GOPSize       int
	BitRate       int64 // bits per second, 0 in quality mode
	GlobalQuality int   // quantizer for FlagQScale codecs
	Flags         int
	Extradata     []byte
}

// String renders the parameters in the layout of a codec dump.
func (p CodecParameters) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "codec id: %s, ", p.Codec)
	fmt.Fprintf(&b, "format: %s, ", p.PixelFormat)
	fmt.Fprintf(&b, "bit rate: %d, ", p.BitRate)
	fmt.Fprintf(&b, "dimensions: %dx%d, ", p.Width, p.Height)
	fmt.Fprintf(&b, "time base: %s, gop: %d", p.TimeBase, p.GOPSize)
	return b.String()
}

// Options is a codec option dictionary. Backends remove the keys they
// understand; whatever is left was not recognized.
type Options map[string]string

// Clone returns a copy of the dictionary.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Keys returns the keys in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StreamTrack is a muxer-owned elementary stream.
type StreamTrack struct {
	Kind     TrackKind
	TimeBase Rational
	Duration int64 // running duration in time-base ticks
	Params   CodecParameters
}
