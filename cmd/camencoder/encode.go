package main

import (
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/camencoder/pkg/adapters/codecs"
	"github.com/user/camencoder/pkg/adapters/muxer"
	"github.com/user/camencoder/pkg/adapters/osfilesystem"
	"github.com/user/camencoder/pkg/config"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/orchestrator"
	"github.com/user/camencoder/pkg/ports"
	"github.com/user/camencoder/pkg/stages/encode"
	probestage "github.com/user/camencoder/pkg/stages/probe"
	"github.com/user/camencoder/pkg/summarizer"
)

func encodeCommand() *cli.Command {
	input := l10n.T("Input and Output")
	videoCat := l10n.T("Video and Quality")
	pattern := l10n.T("Test Pattern")

	return &cli.Command{
		Name:  "encode",
		Usage: l10n.T("Encode a frame directory or a test pattern into MP4 or MKV"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: input},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output video file path"), Category: input},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: l10n.T("Directory of BMP, PNG or JPEG frames (default: test pattern)"), Category: input},
			&cli.StringFlag{Name: "container", Usage: l10n.T("Container format (mp4, mkv; default: from output extension)"), Category: input},
			&cli.BoolFlag{Name: "optimize", Usage: l10n.T("Write the whole stream as a single fragment"), Category: input},
			&cli.IntFlag{Name: "max-frames", Usage: l10n.T("Stop after this many frames (0 = all)"), Category: input},
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: input},

			&cli.StringFlag{Name: "codec", Usage: l10n.T("Video codec (h264, mpeg4, mpeg2, mjpeg)"), Category: videoCat},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Output video width"), Category: videoCat},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Output video height"), Category: videoCat},
			&cli.StringFlag{Name: "fps", Usage: l10n.T("Frame rate (e.g. 30, 29.97, 30000/1001)"), Category: videoCat},
			&cli.IntFlag{Name: "bitrate", Aliases: []string{"b"}, Usage: l10n.T("Target bitrate in kbps (overrides quality)"), Category: videoCat},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: l10n.T("Constant quality value (lower is better)"), Category: videoCat},
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: l10n.T("Encoder speed preset"), Category: videoCat},
			&cli.StringFlag{Name: "tune", Usage: l10n.T("Encoder tuning"), Category: videoCat},
			&cli.StringFlag{Name: "profile", Usage: l10n.T("H.264 profile"), Category: videoCat},
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to ffmpeg executable"), Category: videoCat},

			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Number of test pattern frames"), Category: pattern},
		},
		Action: runEncode,
	}
}

func runEncode(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	orchConfig, err := cfg.ToOrchestratorConfig()
	if err != nil {
		return err
	}

	log := newLogger(c)
	ctx, cancel := signalContext(log)
	defer cancel()

	// Create adapters
	fs := osfilesystem.New()
	registry := codecs.Default(cfg.FFmpegPath, log)
	openMuxer := func(path string, kind media.ContainerKind, optimize bool) (ports.Muxer, error) {
		return muxer.Open(fs, path, kind, optimize, log)
	}

	// Create stages
	encodeStage := encode.NewStage(registry, openMuxer, log)
	probeStage := probestage.NewStage(fs, log)

	orch := orchestrator.New(encodeStage, probeStage, fs, log)

	result, err := orch.Run(ctx, orchConfig)
	if err != nil {
		return err
	}
	log.Info(l10n.F("Output saved to %s", orchConfig.OutputPath))

	if cfg.Summary != "" {
		formatter := summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		)
		writer := summarizer.NewWriter(formatter, fs)
		if err := writer.Write(cfg.Summary, orchestrator.BuildSummary(orchConfig, result)); err != nil {
			log.Error(l10n.F("Failed to write summary: %s", err))
		} else {
			log.Info(l10n.F("Summary saved to %s", cfg.Summary))
		}
	}
	return nil
}

// buildConfig loads the config file, if any, and applies flag overrides.
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}

	if c.IsSet("output") {
		cfg.Output = c.String("output")
		if !c.IsSet("container") {
			cfg.Container = muxer.KindForPath(cfg.Output).String()
		}
	}
	if c.IsSet("source") {
		cfg.Source = c.String("source")
	}
	if c.IsSet("container") {
		cfg.Container = c.String("container")
	}
	if c.IsSet("optimize") {
		cfg.Optimize = c.Bool("optimize")
	}
	if c.IsSet("max-frames") {
		cfg.MaxFrames = c.Int("max-frames")
	}
	if c.IsSet("summary") {
		cfg.Summary = c.String("summary")
	}
	if c.IsSet("codec") {
		cfg.Codec = c.String("codec")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("fps") {
		fps, err := media.ParseRational(c.String("fps"))
		if err != nil {
			return cfg, err
		}
		cfg.FPS = config.FrameRate(fps)
	}
	if c.IsSet("bitrate") {
		cfg.Bitrate = c.Int("bitrate")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
		if !c.IsSet("bitrate") {
			cfg.Bitrate = 0
		}
	}
	if c.IsSet("preset") {
		cfg.Preset = c.String("preset")
	}
	if c.IsSet("tune") {
		cfg.Tune = c.String("tune")
	}
	if c.IsSet("profile") {
		cfg.Profile = c.String("profile")
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("frames") {
		cfg.Pattern.Frames = c.Int("frames")
	}
	return cfg, nil
}
