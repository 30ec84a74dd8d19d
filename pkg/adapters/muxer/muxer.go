// Package muxer opens a container writer by kind.
package muxer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/camencoder/pkg/adapters/mkvmuxer"
	"github.com/user/camencoder/pkg/adapters/mp4muxer"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/ports"
)

// Open creates filename through fs and returns a muxer of the given kind
// writing to it. The muxer closes the file.
func Open(fs ports.FileSystem, filename string, kind media.ContainerKind, optimize bool, log ports.Logger) (ports.Muxer, error) {
	switch kind {
	case media.ContainerMP4, media.ContainerMKV:
	default:
		return nil, fmt.Errorf("muxer: unknown container kind %d", kind)
	}

	w, err := fs.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	log.Debug("Opened %s muxer on %s", kind, filename)

	if kind == media.ContainerMKV {
		return mkvmuxer.New(w, optimize, log), nil
	}
	return mp4muxer.New(w, optimize, log), nil
}

// KindForPath guesses the container from a file extension, defaulting to MP4.
func KindForPath(filename string) media.ContainerKind {
	if k, err := media.ParseContainerKind(strings.TrimPrefix(filepath.Ext(filename), ".")); err == nil {
		return k
	}
	return media.ContainerMP4
}
