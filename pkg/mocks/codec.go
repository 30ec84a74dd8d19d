package mocks

import (
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Codec is a scripted ports.Codec. Its sessions buffer up to Depth frames and
// emit one packet per frame, first in first out.
type Codec struct {
	CodecKind  media.CodecKind
	Framerates []media.Rational
	Depth      int
	// Known lists the option keys the codec consumes.
	Known     []string
	Extradata []byte
	OpenErr   error

	// Recorded calls for verification
	OpenCalls []media.CodecParameters
	Sessions  []*Session
}

func (c *Codec) Name() string                          { return "mock-" + c.CodecKind.String() }
func (c *Codec) Kind() media.CodecKind                 { return c.CodecKind }
func (c *Codec) SupportedFramerates() []media.Rational { return c.Framerates }

func (c *Codec) Open(params media.CodecParameters, opts media.Options) (ports.CodecSession, media.Options, error) {
	c.OpenCalls = append(c.OpenCalls, params)
	if c.OpenErr != nil {
		return nil, opts, c.OpenErr
	}
	rest := opts.Clone()
	for _, k := range c.Known {
		delete(rest, k)
	}
	depth := c.Depth
	if depth <= 0 {
		depth = 1
	}
	s := &Session{depth: depth, gop: params.GOPSize, extradata: c.Extradata}
	c.Sessions = append(c.Sessions, s)
	return s, rest, nil
}

// Session is the session created by Codec.
type Session struct {
	depth     int
	gop       int
	extradata []byte
	pending   []int64
	flushing  bool

	SendErr    error
	ReceiveErr error

	// Recorded calls for verification
	SentPTS    []int64
	FlushCalls int
	Closed     bool
}

func (s *Session) SendFrame(frame *media.Frame) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	if frame == nil {
		s.FlushCalls++
		if s.flushing {
			return media.ErrEOF
		}
		s.flushing = true
		return nil
	}
	if s.flushing {
		return media.ErrEOF
	}
	if len(s.pending) >= s.depth {
		return media.ErrAgain
	}
	s.SentPTS = append(s.SentPTS, frame.PTS)
	s.pending = append(s.pending, frame.PTS)
	return nil
}

func (s *Session) ReceivePacket(pkt *media.Packet) error {
	if s.ReceiveErr != nil {
		return s.ReceiveErr
	}
	if !s.flushing && len(s.pending) < s.depth {
		return media.ErrAgain
	}
	if len(s.pending) == 0 {
		return media.ErrEOF
	}
	pts := s.pending[0]
	s.pending = s.pending[1:]
	*pkt = media.Packet{
		Data:     []byte{byte(pts), 0xAA},
		PTS:      pts,
		DTS:      pts,
		Duration: 1,
		Keyframe: s.gop <= 1 || pts%int64(s.gop) == 0,
	}
	return nil
}

func (s *Session) Extradata() []byte { return s.extradata }

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Registry maps codec kinds to backends.
type Registry map[media.CodecKind]ports.Codec

func (r Registry) FindEncoder(kind media.CodecKind) (ports.Codec, bool) {
	c, ok := r[kind]
	return c, ok
}

var (
	_ ports.Codec         = (*Codec)(nil)
	_ ports.CodecSession  = (*Session)(nil)
	_ ports.CodecRegistry = Registry(nil)
)
