package video

import (
	"errors"
	"fmt"

	"github.com/user/camencoder/pkg/adapters/pixconv"
	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// State is the lifecycle position of an Encoder.
type State int

const (
	StateUnopened State = iota
	StateOpened
	StateFlushing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpened:
		return "opened"
	case StateFlushing:
		return "flushing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Encoder feeds raw bitmaps to a codec backend and drains its packets.
//
// After Open, call Push for every frame and Pull until it reports no packet.
// Push(0, nil) (or Flush) starts end of stream; keep pulling until the
// encoder reaches StateClosed. An Encoder is owned by a single goroutine.
type Encoder struct {
	codec     ports.Codec
	params    media.CodecParameters
	opts      media.Options
	srcFormat media.PixelFormat
	log       ports.Logger

	session      ports.CodecSession
	frame        *media.Frame
	conv         *pixconv.Converter
	state        State
	unrecognized media.Options
}

// NewEncoder validates cfg, finds a backend for cfg.Codec and allocates the
// frame buffer. All failures wrap ErrConfiguration.
func NewEncoder(reg ports.CodecRegistry, cfg Config, log ports.Logger) (*Encoder, error) {
	switch cfg.Codec {
	case media.CodecH264, media.CodecMPEG4, media.CodecMPEG2, media.CodecMJPEG:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, cfg.Codec)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, ok := reg.FindEncoder(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEncoderNotFound, cfg.Codec)
	}
	log = log.WithComponent("video")
	log.Debug("Using %s encoder", codec.Name())

	params, opts, err := cfg.Resolve(codec, log)
	if err != nil {
		return nil, err
	}

	frame, err := media.NewFrame(params.PixelFormat, params.Width, params.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	srcFormat := cfg.SourceFormat
	if srcFormat == media.PixFmtNone {
		srcFormat = media.PixFmtBGR24
	}

	return &Encoder{
		codec:     codec,
		params:    params,
		opts:      opts,
		srcFormat: srcFormat,
		log:       log,
		frame:     frame,
	}, nil
}

// Open sets up the conversion from the configured source format, starts the
// backend and returns the parameters to hand to the muxer. Options the backend
// did not recognize are logged and kept in UnrecognizedOptions.
func (e *Encoder) Open() (media.CodecParameters, error) {
	if e.state != StateUnopened {
		return media.CodecParameters{}, fmt.Errorf("%w: open in state %s", ErrState, e.state)
	}

	conv, err := pixconv.New(e.srcFormat, e.params.Width, e.params.Height, e.params.PixelFormat, e.params.Width, e.params.Height)
	if err != nil {
		return media.CodecParameters{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	e.conv = conv

	session, rest, err := e.codec.Open(e.params, e.opts.Clone())
	if err != nil {
		return media.CodecParameters{}, fmt.Errorf("%w: %s: %w", ErrOpen, e.codec.Name(), err)
	}
	e.session = session
	e.unrecognized = rest
	for _, k := range rest.Keys() {
		e.log.Warn("Unknown codec option: %s", k)
	}

	if extra := session.Extradata(); len(extra) > 0 {
		e.params.Extradata = extra
	}
	e.state = StateOpened
	e.log.Debug("Codec opened: %s", e.params)
	return e.params, nil
}

// Push converts bmp into the frame buffer and submits it with pts in
// time-base units. A nil bmp flushes the encoder. Bitmaps whose format or
// size differs from the converter built at Open get a new converter.
//
// An error wrapping media.ErrAgain means the backend is full: Pull packets
// and push the same frame again.
func (e *Encoder) Push(pts int64, bmp *dib.Bitmap) error {
	if bmp == nil {
		return e.Flush()
	}
	if e.state != StateOpened {
		return fmt.Errorf("%w: push in state %s", ErrState, e.state)
	}
	if err := bmp.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	srcFmt := bmp.PixelFormat()
	if e.conv == nil || !e.conv.Matches(srcFmt, bmp.Width(), bmp.Height()) {
		conv, err := pixconv.New(srcFmt, bmp.Width(), bmp.Height(), e.params.PixelFormat, e.params.Width, e.params.Height)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		e.conv = conv
	}

	// The backend may still hold the previous frame.
	if err := e.frame.MakeWritable(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := e.conv.Convert(bmp.Plane(), e.frame); err != nil {
		return fmt.Errorf("%w: convert frame: %w", ErrEncode, err)
	}
	e.frame.PTS = pts

	return e.send(e.frame)
}

// Flush signals end of stream. Further pushes fail; Pull drains the rest.
func (e *Encoder) Flush() error {
	if e.state != StateOpened && e.state != StateFlushing {
		return fmt.Errorf("%w: flush in state %s", ErrState, e.state)
	}
	e.log.Debug("Flush encoder")
	e.state = StateFlushing
	return e.send(nil)
}

func (e *Encoder) send(frame *media.Frame) error {
	err := e.session.SendFrame(frame)
	switch {
	case err == nil, errors.Is(err, media.ErrEOF):
		return nil
	case errors.Is(err, media.ErrAgain):
		return fmt.Errorf("send frame: %w", err)
	default:
		return fmt.Errorf("%w: send frame: %w", ErrEncode, err)
	}
}

// Pull fills pkt with the next packet and sets pkt.Valid. A nil error with
// pkt.Valid false means no packet is ready; while flushing it means the
// stream is exhausted and the encoder has moved to StateClosed.
func (e *Encoder) Pull(pkt *media.Packet) error {
	if e.state != StateOpened && e.state != StateFlushing {
		return fmt.Errorf("%w: pull in state %s", ErrState, e.state)
	}
	pkt.Reset()
	err := e.session.ReceivePacket(pkt)
	switch {
	case err == nil:
		pkt.Valid = true
		return nil
	case errors.Is(err, media.ErrAgain):
		return nil
	case errors.Is(err, media.ErrEOF):
		if e.state == StateFlushing {
			e.release()
			e.state = StateClosed
			e.log.Debug("Encoder drained")
		}
		return nil
	default:
		pkt.Reset()
		return fmt.Errorf("%w: receive packet: %w", ErrEncode, err)
	}
}

// Close releases the backend and the frame. It is safe to call more than once.
func (e *Encoder) Close() error {
	err := e.release()
	e.state = StateClosed
	return err
}

func (e *Encoder) release() error {
	var err error
	if e.session != nil {
		err = e.session.Close()
		e.session = nil
	}
	if e.frame != nil {
		e.frame.Unref()
		e.frame = nil
	}
	e.conv = nil
	return err
}

// State returns the lifecycle state.
func (e *Encoder) State() State { return e.state }

// Params returns the resolved codec parameters.
func (e *Encoder) Params() media.CodecParameters { return e.params }

// TimeBase returns the unit of packet timestamps.
func (e *Encoder) TimeBase() media.Rational { return e.params.TimeBase }

// Codec returns the codec being produced.
func (e *Encoder) Codec() media.CodecKind { return e.params.Codec }

// Options returns a copy of the option dictionary passed to the backend.
func (e *Encoder) Options() media.Options { return e.opts.Clone() }

// UnrecognizedOptions returns the options the backend rejected at Open.
func (e *Encoder) UnrecognizedOptions() media.Options { return e.unrecognized.Clone() }
