// Package probe implements the probe stage: it reports the layout of a
// written container file.
package probe

import (
	"context"
	"fmt"

	"github.com/user/camencoder/pkg/adapters/probe"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/pipeline"
	"github.com/user/camencoder/pkg/ports"
)

// Stage inspects encoded files.
type Stage struct {
	fs     ports.FileSystem
	logger ports.Logger
}

var _ pipeline.ProbeStage = (*Stage)(nil)

// NewStage creates a new probe stage.
func NewStage(fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		fs:     fs,
		logger: logger.WithComponent("probe"),
	}
}

// Execute reads input.Path. Only MP4 files are parsed; for other containers
// the result carries the file size alone.
func (s *Stage) Execute(ctx context.Context, input pipeline.ProbeInput) (pipeline.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.ProbeResult{}, err
	}

	data, err := s.fs.ReadFile(input.Path)
	if err != nil {
		return pipeline.ProbeResult{}, fmt.Errorf("read %s: %w", input.Path, err)
	}
	result := pipeline.ProbeResult{FileSize: int64(len(data))}

	if input.Container != media.ContainerMP4 {
		s.logger.Debug("Skipping probe of %s container", input.Container)
		return result, nil
	}

	info, err := probe.Bytes(data)
	if err != nil {
		return result, fmt.Errorf("probe %s: %w", input.Path, err)
	}
	result.Info = info

	if v, err := info.Video(); err == nil {
		s.logger.Debug("Probed %s: %d samples, %d keyframes, %d fragments", v.Entry, v.Samples, v.Keyframes, info.Fragments)
	}
	return result, nil
}
