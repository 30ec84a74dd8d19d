package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/user/camencoder/pkg/media"
	"github.com/user/camencoder/pkg/video"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camencoder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
source: ./frames
output: capture.mkv
container: mkv
codec: mpeg4
width: 640
height: 480
fps: "30000/1001"
bitrate: 1500
tune: film
pattern:
  frames: 12
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "./frames", cfg.Source)
	assert.Equal(t, "capture.mkv", cfg.Output)
	assert.Equal(t, "mpeg4", cfg.Codec)
	assert.Equal(t, FrameRate{Num: 30000, Den: 1001}, cfg.FPS)
	assert.Equal(t, 1500, cfg.Bitrate)
	assert.Equal(t, 12, cfg.Pattern.Frames)
	// Untouched keys keep their defaults.
	assert.Equal(t, "medium", cfg.Preset)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile_NumericFPS(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "fps: 29.97\n"))
	require.NoError(t, err)
	assert.Equal(t, FrameRate{Num: 29970, Den: 1000}, cfg.FPS)

	cfg, err = LoadFromFile(writeConfig(t, "fps: 25\n"))
	require.NoError(t, err)
	assert.Equal(t, FrameRate{Num: 25, Den: 1}, cfg.FPS)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "fps: fast\n"))
	assert.Error(t, err)
}

func TestFrameRate_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		FPS FrameRate `yaml:"fps"`
	}{FrameRate{Num: 60000, Den: 1001}})
	require.NoError(t, err)
	assert.Equal(t, "fps: 60000/1001\n", string(out))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#dcdcdc", color.RGBA{R: 0xdc, G: 0xdc, B: 0xdc, A: 255}},
		{"FF8000", color.RGBA{R: 255, G: 128, B: 0, A: 255}},
		{"#abc", color.Black},
		{"", color.Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColor(tt.in))
		})
	}
}

func TestVideoConfig_QualityMode(t *testing.T) {
	v, err := Defaults().VideoConfig()
	require.NoError(t, err)

	assert.Equal(t, media.CodecH264, v.Codec)
	assert.Equal(t, media.R(30, 1), v.FPS)
	require.NotNil(t, v.Quality)
	assert.Equal(t, 23, *v.Quality)
	assert.Nil(t, v.BitrateKbps)
	require.NotNil(t, v.Preset)
	assert.Equal(t, video.PresetMedium, *v.Preset)
	assert.Nil(t, v.Tune)
	assert.NoError(t, v.Validate())
}

func TestVideoConfig_BitrateMode(t *testing.T) {
	cfg := Defaults()
	cfg.Bitrate = 800
	cfg.Profile = "high"

	v, err := cfg.VideoConfig()
	require.NoError(t, err)
	require.NotNil(t, v.BitrateKbps)
	assert.Equal(t, 800, *v.BitrateKbps)
	assert.Nil(t, v.Quality)
	require.NotNil(t, v.Profile)
	assert.Equal(t, video.ProfileHigh, *v.Profile)
}

func TestVideoConfig_Errors(t *testing.T) {
	cfg := Defaults()
	cfg.Codec = "vp9"
	_, err := cfg.VideoConfig()
	assert.Error(t, err)

	cfg = Defaults()
	cfg.Preset = "warp"
	_, err = cfg.VideoConfig()
	assert.Error(t, err)

	cfg = Defaults()
	cfg.Tune = "loud"
	_, err = cfg.VideoConfig()
	assert.Error(t, err)
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Source = "/frames"
	cfg.Container = "mkv"
	cfg.Optimize = true
	cfg.MaxFrames = 10

	oc, err := cfg.ToOrchestratorConfig()
	require.NoError(t, err)

	assert.Equal(t, "/frames", oc.SourceDir)
	assert.Equal(t, media.ContainerMKV, oc.Container)
	assert.True(t, oc.Optimize)
	assert.Equal(t, 10, oc.MaxFrames)
	assert.Equal(t, "out.mp4", oc.OutputPath)
	assert.Equal(t, 320, oc.Pattern.Width)
	assert.Equal(t, 90, oc.Pattern.Frames)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 255}, oc.Pattern.Background)
	assert.Equal(t, 320, oc.Video.Width)

	cfg.Container = "avi"
	_, err = cfg.ToOrchestratorConfig()
	assert.Error(t, err)
}
