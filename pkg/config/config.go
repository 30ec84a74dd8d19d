// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/camencoder/pkg/adapters/patternsource"
	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/orchestrator"
	"github.com/user/camencoder/pkg/video"
)

// Config represents the full configuration for camencoder.
type Config struct {
	// Input/Output
	Source    string `yaml:"source"` // frame directory; empty uses the test pattern
	Output    string `yaml:"output"`
	Container string `yaml:"container"`
	Optimize  bool   `yaml:"optimize"`
	MaxFrames int    `yaml:"max_frames"`
	Summary   string `yaml:"summary"`

	// Test pattern
	Pattern PatternConfig `yaml:"pattern"`

	// Encoding
	Codec   string    `yaml:"codec"`
	Width   int       `yaml:"width"`
	Height  int       `yaml:"height"`
	FPS     FrameRate `yaml:"fps"`
	Bitrate int       `yaml:"bitrate"` // kbps; selects bitrate mode when > 0
	Quality int       `yaml:"quality"`
	Preset  string    `yaml:"preset"`
	Tune    string    `yaml:"tune"`
	Profile string    `yaml:"profile"`

	// Backend
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// PatternConfig configures the generated test pattern.
type PatternConfig struct {
	Frames          int    `yaml:"frames"`
	BackgroundColor string `yaml:"background_color"`
	ForegroundColor string `yaml:"foreground_color"`
	Label           bool   `yaml:"label"`
}

// FrameRate is a frame rate given as "30000/1001", "25" or 29.97.
type FrameRate media.Rational

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FrameRate) UnmarshalYAML(value *yaml.Node) error {
	r, err := media.ParseRational(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*f = FrameRate(r)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f FrameRate) MarshalYAML() (interface{}, error) {
	return media.Rational(f).String(), nil
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Output:    "out.mp4",
		Container: "mp4",

		Pattern: PatternConfig{
			Frames:          90,
			BackgroundColor: "#101010",
			ForegroundColor: "#ffffff",
			Label:           true,
		},

		Codec:   "h264",
		Width:   320,
		Height:  240,
		FPS:     FrameRate{Num: 30, Den: 1},
		Quality: 23,
		Preset:  "medium",

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}
	return color.RGBA{
		R: hexValue(hex[0])<<4 | hexValue(hex[1]),
		G: hexValue(hex[2])<<4 | hexValue(hex[3]),
		B: hexValue(hex[4])<<4 | hexValue(hex[5]),
		A: 255,
	}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// VideoConfig builds the encoder settings.
func (c Config) VideoConfig() (video.Config, error) {
	codec := media.ParseCodecKind(c.Codec)
	if codec == media.CodecNone {
		return video.Config{}, fmt.Errorf("unknown codec %q", c.Codec)
	}
	v := video.Config{
		Codec:  codec,
		Width:  c.Width,
		Height: c.Height,
		FPS:    media.Rational(c.FPS),
	}

	if c.Bitrate > 0 {
		bitrate := c.Bitrate
		v.BitrateKbps = &bitrate
	} else {
		quality := c.Quality
		v.Quality = &quality
	}

	if c.Preset != "" {
		p, err := video.ParsePreset(c.Preset)
		if err != nil {
			return video.Config{}, err
		}
		v.Preset = &p
	}
	if c.Tune != "" {
		t, err := video.ParseTune(c.Tune)
		if err != nil {
			return video.Config{}, err
		}
		v.Tune = &t
	}
	if c.Profile != "" {
		p, err := video.ParseProfile(c.Profile)
		if err != nil {
			return video.Config{}, err
		}
		v.Profile = &p
	}
	return v, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	v, err := c.VideoConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	container, err := media.ParseContainerKind(c.Container)
	if err != nil {
		return orchestrator.Config{}, err
	}

	return orchestrator.Config{
		SourceDir: c.Source,
		Pattern: patternsource.Options{
			Width:      c.Width,
			Height:     c.Height,
			Frames:     c.Pattern.Frames,
			Background: ParseColor(c.Pattern.BackgroundColor),
			Foreground: ParseColor(c.Pattern.ForegroundColor),
			Label:      c.Pattern.Label,
		},
		MaxFrames: c.MaxFrames,

		OutputPath: c.Output,
		Container:  container,
		Optimize:   c.Optimize,

		Video: v,
	}, nil
}
