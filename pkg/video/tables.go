package video

import (
	"fmt"
	"strings"
)

// Preset is an x264 speed preset.
type Preset int

const (
	PresetUltrafast Preset = iota
	PresetSuperfast
	PresetVeryfast
	PresetFaster
	PresetFast
	PresetMedium
	PresetSlow
	PresetSlower
	PresetVeryslow
	PresetPlacebo
)

var presetNames = [...]string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow", "placebo",
}

// Tune is an x264 tuning.
type Tune int

const (
	TuneFilm Tune = iota
	TuneAnimation
	TuneGrain
	TuneStillImage
	TunePSNR
	TuneSSIM
	TuneFastDecode
	TuneZeroLatency
)

var tuneNames = [...]string{
	"film", "animation", "grain", "stillimage",
	"psnr", "ssim", "fastdecode", "zerolatency",
}

// Profile is an H.264 profile.
type Profile int

const (
	ProfileBaseline Profile = iota
	ProfileMain
	ProfileHigh
	ProfileHigh10
	ProfileHigh422
	ProfileHigh444
)

var profileNames = [...]string{
	"baseline", "main", "high", "high10", "high422", "high444",
}

func (p Preset) String() string  { return tableName(presetNames[:], int(p)) }
func (t Tune) String() string    { return tableName(tuneNames[:], int(t)) }
func (p Profile) String() string { return tableName(profileNames[:], int(p)) }

// ParsePreset looks up a preset by name.
func ParsePreset(s string) (Preset, error) {
	i, err := tableIndex(presetNames[:], "preset", s)
	return Preset(i), err
}

// ParseTune looks up a tuning by name.
func ParseTune(s string) (Tune, error) {
	i, err := tableIndex(tuneNames[:], "tune", s)
	return Tune(i), err
}

// ParseProfile looks up a profile by name.
func ParseProfile(s string) (Profile, error) {
	i, err := tableIndex(profileNames[:], "profile", s)
	return Profile(i), err
}

func tableName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

func tableIndex(names []string, kind, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, kind, s)
}
