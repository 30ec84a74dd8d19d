// Package patternsource renders synthetic test frames with gg.
package patternsource

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/ports"
)

// Bars are the colour bars drawn across the top of every frame.
var Bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// Options configures the generated clip.
type Options struct {
	Width      int
	Height     int
	Frames     int
	Background color.Color
	Foreground color.Color
	// Label draws the frame number when set.
	Label bool
}

// DefaultOptions returns a 320x240 clip of 90 frames.
func DefaultOptions() Options {
	return Options{
		Width:      320,
		Height:     240,
		Frames:     90,
		Background: color.RGBA{R: 16, G: 16, B: 16, A: 255},
		Foreground: color.White,
		Label:      true,
	}
}

// Source implements ports.FrameSource. Each frame shows colour bars and a
// box sweeping from left to right.
type Source struct {
	opts Options
	n    int
}

// New validates opts and returns a source.
func New(opts Options, log ports.Logger) (*Source, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Frames <= 0 {
		return nil, fmt.Errorf("patternsource: invalid size %dx%d, %d frames", opts.Width, opts.Height, opts.Frames)
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	if opts.Foreground == nil {
		opts.Foreground = color.White
	}
	log.WithComponent("patternsource").Debug("Generating %d frames at %dx%d", opts.Frames, opts.Width, opts.Height)
	return &Source{opts: opts}, nil
}

// Next renders the next frame or returns io.EOF.
func (s *Source) Next() (*dib.Bitmap, error) {
	if s.n >= s.opts.Frames {
		return nil, io.EOF
	}
	dc := Render(s.opts, s.n)
	s.n++
	return dib.FromImage(dc.Image()), nil
}

// Render draws frame n.
func Render(opts Options, n int) *gg.Context {
	w, h := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(opts.Background)
	dc.Clear()

	barW := w / float64(len(Bars))
	barH := h / 3
	for i, c := range Bars {
		dc.SetColor(c)
		dc.DrawRectangle(float64(i)*barW, 0, barW+1, barH)
		dc.Fill()
	}

	box := h / 4
	travel := w - box
	x := 0.0
	if opts.Frames > 1 {
		x = travel * float64(n) / float64(opts.Frames-1)
	}
	dc.SetColor(opts.Foreground)
	dc.DrawRectangle(x, h-box, box, box)
	dc.Fill()

	if opts.Label {
		dc.DrawStringAnchored(fmt.Sprintf("%d", n), w/2, h/2, 0.5, 0.5)
	}
	return dc
}

// Close stops the source.
func (s *Source) Close() error {
	s.n = s.opts.Frames
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
