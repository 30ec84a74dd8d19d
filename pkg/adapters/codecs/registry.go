// Package codecs assembles the encoder backends available on this machine.
package codecs

import (
	"sort"

	"github.com/user/camencoder/pkg/adapters/ffmpegcodec"
	"github.com/user/camencoder/pkg/adapters/mjpegcodec"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Registry implements ports.CodecRegistry.
type Registry struct {
	codecs map[media.CodecKind]ports.Codec
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{codecs: make(map[media.CodecKind]ports.Codec)}
}

// Default registers the in-process MJPEG encoder and, when ffmpeg can be
// found, the H.264, MPEG-4 and MPEG-2 encoders.
func Default(ffmpegPath string, log ports.Logger) *Registry {
	r := New()
	r.Register(mjpegcodec.New())

	if !ffmpegcodec.IsAvailable(ffmpegPath) {
		log.Debug("ffmpeg not found, only mjpeg is available")
		return r
	}
	for _, kind := range []media.CodecKind{media.CodecH264, media.CodecMPEG4, media.CodecMPEG2} {
		c, err := ffmpegcodec.New(kind, ffmpegPath, log)
		if err != nil {
			log.Warn("Skipping %s encoder: %v", kind, err)
			continue
		}
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any codec of the same kind.
func (r *Registry) Register(c ports.Codec) {
	r.codecs[c.Kind()] = c
}

// FindEncoder returns the codec registered for kind.
func (r *Registry) FindEncoder(kind media.CodecKind) (ports.Codec, bool) {
	c, ok := r.codecs[kind]
	return c, ok
}

// Kinds lists the registered codecs.
func (r *Registry) Kinds() []media.CodecKind {
	kinds := make([]media.CodecKind, 0, len(r.codecs))
	for k := range r.codecs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

var _ ports.CodecRegistry = (*Registry)(nil)
