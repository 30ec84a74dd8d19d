package video

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps one of them.
var (
	// ErrConfiguration covers invalid settings and missing backends. It is
	// reported before any frame is encoded.
	ErrConfiguration = errors.New("video: configuration error")

	// ErrEncode covers failures of an opened encoder.
	ErrEncode = errors.New("video: encode error")
)

var (
	ErrInvalidConfig    = fmt.Errorf("%w: invalid encoder config", ErrConfiguration)
	ErrRateControl      = fmt.Errorf("%w: exactly one of bitrate or quality must be set", ErrConfiguration)
	ErrUnsupportedCodec = fmt.Errorf("%w: unsupported codec", ErrConfiguration)
	ErrEncoderNotFound  = fmt.Errorf("%w: encoder not found", ErrConfiguration)

	ErrOpen  = fmt.Errorf("%w: unable to open encoder", ErrEncode)
	ErrState = fmt.Errorf("%w: invalid encoder state", ErrEncode)
)
