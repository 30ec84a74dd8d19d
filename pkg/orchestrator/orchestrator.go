// Package orchestrator coordinates the pipeline stages of an encoding run.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/ideamans/go-l10n"

	"github.com/user/camencoder/pkg/adapters/bmpsource"
	"github.com/user/camencoder/pkg/adapters/patternsource"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/pipeline"
	"github.com/user/camencoder/pkg/ports"
	"github.com/user/camencoder/pkg/video"
)

// Source kinds reported in RunResult.
const (
	SourceDirectory = "directory"
	SourcePattern   = "pattern"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input. An empty SourceDir selects the generated test pattern.
	SourceDir string
	Pattern   patternsource.Options
	MaxFrames int

	// Output
	OutputPath string
	Container  media.ContainerKind
	Optimize   bool

	// Encoding
	Video video.Config
}

// DefaultConfig returns a Config encoding the test pattern as H.264.
func DefaultConfig() Config {
	q := 23
	pattern := patternsource.DefaultOptions()
	return Config{
		Pattern:    pattern,
		OutputPath: "out.mp4",
		Container:  media.ContainerMP4,
		Video: video.Config{
			Codec:   media.CodecH264,
			Width:   pattern.Width,
			Height:  pattern.Height,
			FPS:     media.R(30, 1),
			Quality: &q,
		},
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	encodeStage pipeline.EncodeStage
	probeStage  pipeline.ProbeStage
	fs          ports.FileSystem
	logger      ports.Logger
}

// New creates a new Orchestrator.
func New(
	encodeStage pipeline.EncodeStage,
	probeStage pipeline.ProbeStage,
	fs ports.FileSystem,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		encodeStage: encodeStage,
		probeStage:  probeStage,
		fs:          fs,
		logger:      logger,
	}
}

// Run executes the complete pipeline.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info(l10n.T("Starting pipeline"))

	// 1. Open frame source
	source, kind, err := o.openSource(config)
	if err != nil {
		o.logger.Error(l10n.F("Failed to open frame source: %s", err))
		return RunResult{}, fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	// 2. Encode
	encoded, err := o.encodeStage.Execute(ctx, o.buildEncodeInput(config, source))
	if err != nil {
		o.logger.Error(l10n.F("Failed to encode video: %s", err))
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}

	// 3. Probe the written file
	probed, err := o.probeStage.Execute(ctx, pipeline.ProbeInput{
		Path:      config.OutputPath,
		Container: config.Container,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to probe output: %s", err))
		return RunResult{}, fmt.Errorf("probe stage: %w", err)
	}
	o.logger.Info(l10n.F("Video encoded: %d bytes", probed.FileSize))

	o.logger.Info(l10n.T("Pipeline completed successfully"))

	result := RunResult{
		SourceKind:     kind,
		SourcePath:     config.SourceDir,
		FrameCount:     encoded.Frames,
		PacketCount:    encoded.Packets,
		Keyframes:      encoded.Keyframes,
		PayloadBytes:   encoded.Bytes,
		VideoDuration:  encoded.DurationMs(),
		VideoFileSize:  probed.FileSize,
		Params:         encoded.Params,
		IgnoredOptions: encoded.Unrecognized,
	}
	if probed.Info != nil {
		result.Fragments = probed.Info.Fragments
	}
	return result, nil
}

func (o *Orchestrator) openSource(config Config) (ports.FrameSource, string, error) {
	if config.SourceDir != "" {
		o.logger.Info(l10n.F("Reading frames from %s", config.SourceDir))
		src, err := bmpsource.New(o.fs, config.SourceDir, o.logger)
		return src, SourceDirectory, err
	}

	opts := config.Pattern
	if opts.Width == 0 {
		opts.Width = config.Video.Width
	}
	if opts.Height == 0 {
		opts.Height = config.Video.Height
	}
	o.logger.Info(l10n.F("Generating %d test pattern frames", opts.Frames))
	src, err := patternsource.New(opts, o.logger)
	return src, SourcePattern, err
}

func (o *Orchestrator) buildEncodeInput(config Config, source ports.FrameSource) pipeline.EncodeInput {
	return pipeline.EncodeInput{
		Source:     source,
		Video:      config.Video,
		Container:  config.Container,
		OutputPath: config.OutputPath,
		Optimize:   config.Optimize,
		MaxFrames:  config.MaxFrames,
	}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	// Source information
	SourceKind string
	SourcePath string

	// Stream information
	FrameCount   int
	PacketCount  int
	Keyframes    int
	PayloadBytes int64

	// File information
	VideoDuration int64 // in ms
	VideoFileSize int64
	Fragments     int

	// Codec information
	Params         media.CodecParameters
	IgnoredOptions []string
}
