package orchestrator

import (
	"github.com/user/camencoder/pkg/summarizer"
)

// BuildSummary turns a finished run into a report.
func BuildSummary(config Config, result RunResult) *summarizer.Summary {
	v := config.Video
	settings := summarizer.Settings{
		Codec:     v.Codec.String(),
		Width:     v.Width,
		Height:    v.Height,
		FPS:       v.FPS.String(),
		Container: config.Container.String(),
		Optimize:  config.Optimize,
	}
	if v.BitrateKbps != nil {
		settings.Bitrate = *v.BitrateKbps
	}
	if v.Quality != nil {
		settings.Quality = *v.Quality
	}
	if v.Preset != nil {
		settings.Preset = v.Preset.String()
	}
	if v.Tune != nil {
		settings.Tune = v.Tune.String()
	}
	if v.Profile != nil {
		settings.Profile = v.Profile.String()
	}

	return summarizer.NewBuilder().
		WithSource(result.SourceKind, result.SourcePath, result.FrameCount).
		WithSettings(settings).
		WithOutput(summarizer.OutputInfo{
			Path:           config.OutputPath,
			FileSize:       result.VideoFileSize,
			PayloadBytes:   result.PayloadBytes,
			Packets:        result.PacketCount,
			Keyframes:      result.Keyframes,
			Fragments:      result.Fragments,
			DurationMs:     result.VideoDuration,
			GOPSize:        result.Params.GOPSize,
			TimeBase:       result.Params.TimeBase.String(),
			IgnoredOptions: result.IgnoredOptions,
		}).
		Build()
}
