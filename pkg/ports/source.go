package ports

import "github.com/user/camencoder/pkg/dib"

// FrameSource produces raw bitmap frames in presentation order.
type FrameSource interface {
	// Next returns the next frame, or io.EOF when the source is exhausted.
	Next() (*dib.Bitmap, error)

	// Close releases the source.
	Close() error
}
