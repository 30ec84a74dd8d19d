package mocks

import (
	"io"

	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/ports"
)

// FrameSource yields a fixed list of bitmaps.
type FrameSource struct {
	Frames []*dib.Bitmap
	Err    error // returned instead of io.EOF when set

	next        int
	CloseCalled bool
}

func (s *FrameSource) Next() (*dib.Bitmap, error) {
	if s.next >= len(s.Frames) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	b := s.Frames[s.next]
	s.next++
	return b, nil
}

func (s *FrameSource) Close() error {
	s.CloseCalled = true
	return nil
}

var _ ports.FrameSource = (*FrameSource)(nil)
