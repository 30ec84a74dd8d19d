package ports

import "github.com/user/camencoder/pkg/media"

// Codec is an encoder backend that can be opened for one stream.
type Codec interface {
	// Name returns the backend name, e.g. "libx264".
	Name() string

	// Kind returns the codec the backend produces.
	Kind() media.CodecKind

	// SupportedFramerates returns the discrete frame rates the codec accepts,
	// or nil when any rate is allowed.
	SupportedFramerates() []media.Rational

	// Open starts an encoding session. Keys in opts the backend understands
	// are consumed; the returned Options hold the keys it did not recognize.
	Open(params media.CodecParameters, opts media.Options) (CodecSession, media.Options, error)
}

// CodecSession is an open encoder using the send/receive model.
type CodecSession interface {
	// SendFrame submits a frame. A nil frame starts the flush. ErrAgain means
	// output must be drained first; ErrEOF means the session is already
	// flushing. A backend that keeps the frame must take its own Ref.
	SendFrame(frame *media.Frame) error

	// ReceivePacket fills pkt with the next packet. ErrAgain means more input
	// is needed; ErrEOF means a flushed session has no packets left.
	ReceivePacket(pkt *media.Packet) error

	// Extradata returns out-of-band codec configuration, if any.
	Extradata() []byte

	// Close releases the session.
	Close() error
}

// CodecRegistry finds encoder backends by codec.
type CodecRegistry interface {
	// FindEncoder returns the backend for kind, or false if none is installed.
	FindEncoder(kind media.CodecKind) (Codec, bool)
}
