package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/camencoder/pkg/adapters/muxer"
	"github.com/user/camencoder/pkg/adapters/osfilesystem"
	"github.com/user/camencoder/pkg/pipeline"
	probestage "github.com/user/camencoder/pkg/stages/probe"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the track layout of an encoded file"),
		ArgsUsage: "FILE",
		Action:    runProbe,
	}
}

func runProbe(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("a file argument is required"))
	}
	path := c.Args().First()

	stage := probestage.NewStage(osfilesystem.New(), newLogger(c))
	result, err := stage.Execute(context.Background(), pipeline.ProbeInput{
		Path:      path,
		Container: muxer.KindForPath(path),
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s: %d bytes\n", path, result.FileSize)
	if result.Info == nil {
		return nil
	}
	if result.Info.Fragmented {
		fmt.Fprintf(w, "fragmented, %d fragments\n", result.Info.Fragments)
	}
	for _, t := range result.Info.Tracks {
		fmt.Fprintf(w, "track %d: %s %s %dx%d, %d samples, %d keyframes, %.3fs\n",
			t.ID, t.Handler, t.Entry, t.Width, t.Height, t.Samples, t.Keyframes, t.Seconds())
	}
	return nil
}
