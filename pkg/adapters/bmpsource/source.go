// Package bmpsource reads numbered still images from a directory as frames.
package bmpsource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"

	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/ports"
)

// ErrNoFrames is returned when the directory holds no usable images.
var ErrNoFrames = errors.New("bmpsource: no frames found")

var extensions = map[string]bool{
	".bmp":  true,
	".dib":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Source implements ports.FrameSource over image files sorted by name.
// BMP files are passed through as stored; other formats are converted to
// 24-bit bitmaps.
type Source struct {
	fs    ports.FileSystem
	dir   string
	files []string
	next  int
	log   ports.Logger
}

// New lists dir and returns a source over its image files.
func New(fs ports.FileSystem, dir string, log ports.Logger) (*Source, error) {
	names, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, name := range names {
		if extensions[strings.ToLower(path.Ext(name))] {
			files = append(files, path.Join(dir, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	log = log.WithComponent("bmpsource")
	log.Debug("Found %d frames in %s", len(files), dir)
	return &Source{fs: fs, dir: dir, files: files, log: log}, nil
}

// Len returns the number of frames.
func (s *Source) Len() int {
	return len(s.files)
}

// Next returns the next frame or io.EOF.
func (s *Source) Next() (*dib.Bitmap, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	name := s.files[s.next]
	s.next++

	f, err := s.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	bmp, err := decode(f, name)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return bmp, nil
}

func decode(r io.Reader, name string) (*dib.Bitmap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(path.Ext(name)); ext == ".bmp" || ext == ".dib" {
		// Truecolor bitmaps are handed over untouched. Paletted and
		// compressed ones are expanded by the generic decoder.
		if bmp, err := dib.ReadBMP(bytes.NewReader(data)); err == nil && bmp.Header.BitCount >= 24 {
			return bmp, nil
		}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return dib.FromImage(img), nil
}

// Close releases the source.
func (s *Source) Close() error {
	s.next = len(s.files)
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
