package summarizer

import "time"

// Summary contains all data collected during an encoding run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Where the frames came from
	Source SourceInfo

	// Encoder configuration
	Settings Settings

	// Written file details
	Output OutputInfo
}

// SourceInfo describes the frame source.
type SourceInfo struct {
	Kind   string // "directory" or "pattern"
	Path   string
	Frames int
}

// Settings contains the encoder configuration.
type Settings struct {
	Codec     string
	Width     int
	Height    int
	FPS       string
	Bitrate   int // kbps, 0 in quality mode
	Quality   int
	Preset    string
	Tune      string
	Profile   string
	Container string
	Optimize  bool
}

// OutputInfo contains information about the written file.
type OutputInfo struct {
	Path         string
	FileSize     int64
	PayloadBytes int64
	Packets      int
	Keyframes    int
	Fragments    int
	DurationMs   int64
	GOPSize      int
	TimeBase     string
	// IgnoredOptions lists codec options the backend did not recognize.
	IgnoredOptions []string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets frame source information.
func (b *Builder) WithSource(kind, path string, frames int) *Builder {
	b.summary.Source = SourceInfo{
		Kind:   kind,
		Path:   path,
		Frames: frames,
	}
	return b
}

// WithSettings sets encoder settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithOutput sets output file information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
