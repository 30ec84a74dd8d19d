package ffmpegcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/user/camencoder/pkg/bitstream"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

const readChunkSize = 64 * 1024

// session drives one ffmpeg process. Frames are written to stdin on the
// caller's goroutine; a reader goroutine splits stdout into packets so a
// full pipe in either direction can never stall the other.
type session struct {
	kind media.CodecKind
	log  ports.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	group  errgroup.Group

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []media.Packet
	pts      []int64
	lastPTS  int64
	done     bool
	err      error
	flushing bool
	closed   bool
}

func startSession(kind media.CodecKind, path string, args []string, log ports.Logger) (*session, error) {
	s := &session{
		kind:    kind,
		log:     log,
		stderr:  &bytes.Buffer{},
		lastPTS: -1,
	}
	s.cond = sync.NewCond(&s.mu)

	s.cmd = exec.Command(path, args...)
	s.cmd.Stderr = s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start: %w", ErrProcess, err)
	}

	s.group.Go(func() error {
		readErr := s.readLoop(stdout)
		waitErr := s.cmd.Wait()
		err := errors.Join(readErr, waitErr)
		if err != nil {
			err = fmt.Errorf("%w: %w: %s", ErrProcess, err, strings.TrimSpace(s.stderr.String()))
		}

		s.mu.Lock()
		s.done = true
		s.err = err
		s.cond.Broadcast()
		s.mu.Unlock()
		return err
	})
	return s, nil
}

func (s *session) readLoop(stdout io.Reader) error {
	splitter := bitstream.NewSplitter(s.kind)
	buf := make([]byte, readChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			s.enqueue(splitter.Write(buf[:n]))
		}
		if err == io.EOF {
			s.enqueue(splitter.Flush())
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stdout: %w", err)
		}
	}
}

// enqueue turns access units into packets, stamping them with the timestamps
// of the frames in the order they were sent.
func (s *session) enqueue(aus []bitstream.AccessUnit) {
	if len(aus) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, au := range aus {
		pts := s.lastPTS + 1
		if len(s.pts) > 0 {
			pts = s.pts[0]
			s.pts = s.pts[1:]
		}
		s.lastPTS = pts
		s.queue = append(s.queue, media.Packet{
			Data:     au.Data,
			PTS:      pts,
			DTS:      pts,
			Duration: 1,
			Keyframe: au.Keyframe,
		})
	}
	s.cond.Broadcast()
}

// SendFrame writes the frame to ffmpeg. The planes are copied into the pipe
// before returning, so no reference is kept.
func (s *session) SendFrame(frame *media.Frame) error {
	s.mu.Lock()
	if s.flushing || s.closed {
		s.mu.Unlock()
		return media.ErrEOF
	}
	if frame == nil {
		s.flushing = true
		s.mu.Unlock()
		s.log.Debug("Closing ffmpeg input")
		return s.stdin.Close()
	}
	if s.done {
		err := s.err
		s.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("%w: exited before end of input", ErrProcess)
		}
		return err
	}
	s.pts = append(s.pts, frame.PTS)
	s.mu.Unlock()

	if err := frame.WriteRaw(s.stdin); err != nil {
		return fmt.Errorf("%w: write frame: %w", ErrProcess, err)
	}
	return nil
}

// ReceivePacket returns a queued packet. While flushing it waits for ffmpeg
// to produce more output or exit.
func (s *session) ReceivePacket(pkt *media.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if len(s.queue) > 0 {
			*pkt = s.queue[0]
			s.queue[0] = media.Packet{}
			s.queue = s.queue[1:]
			return nil
		}
		if s.done {
			if s.err != nil {
				return s.err
			}
			if s.flushing {
				return media.ErrEOF
			}
			return fmt.Errorf("%w: exited before end of input", ErrProcess)
		}
		if !s.flushing {
			return media.ErrAgain
		}
		s.cond.Wait()
	}
}

func (s *session) Extradata() []byte { return nil }

// Close stops ffmpeg. An unflushed process is killed.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	flushing, done := s.flushing, s.done
	s.mu.Unlock()

	if !flushing {
		s.stdin.Close()
		if !done && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.group.Wait()
		return nil
	}
	return s.group.Wait()
}

var _ ports.CodecSession = (*session)(nil)
