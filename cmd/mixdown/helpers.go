package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/jobs"
)

// outputFlags collect per-command overrides of the configured output
// settings. Unset flags fall back to the [output] config section.
type outputFlags struct {
	format     string
	codec      string
	bitrate    string
	sampleRate int
	channels   int
	name       string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "", "Output container format (e.g. mp3, wav)")
	flags.StringVar(&f.codec, "codec", "", "Audio codec passed to ffmpeg -c:a")
	flags.StringVar(&f.bitrate, "bitrate", "", "Audio bitrate passed to ffmpeg -b:a")
	flags.IntVar(&f.sampleRate, "sample-rate", 0, "Output sample rate in Hz")
	flags.IntVar(&f.channels, "channels", 0, "Output channel count")
	flags.StringVarP(&f.name, "output", "o", "", "Output file name (defaults to the source name)")
}

func (f *outputFlags) params() jobs.OutputParams {
	return jobs.OutputParams{
		Format:     strings.TrimSpace(f.format),
		Codec:      strings.TrimSpace(f.codec),
		Bitrate:    strings.TrimSpace(f.bitrate),
		SampleRate: f.sampleRate,
		Channels:   f.channels,
		Name:       strings.TrimSpace(f.name),
	}
}

// mixFlags collect envelope overrides for mix jobs. Only flags the user
// actually set are forwarded so config defaults survive.
type mixFlags struct {
	fadeIn    float64
	intro     float64
	fadeDown  float64
	fadeOut   float64
	bgmVolume float64
	loudnorm  bool
}

func (f *mixFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64Var(&f.fadeIn, "fade-in", 0, "BGM fade-in duration in seconds")
	flags.Float64Var(&f.intro, "intro", 0, "Full-volume BGM intro duration in seconds")
	flags.Float64Var(&f.fadeDown, "fade-down", 0, "BGM duck-down duration in seconds")
	flags.Float64Var(&f.fadeOut, "fade-out", 0, "BGM fade-out duration in seconds")
	flags.Float64Var(&f.bgmVolume, "bgm-volume", 0, "BGM volume under narration (0..1)")
	flags.BoolVar(&f.loudnorm, "loudnorm", false, "Apply a loudness normalization pass")
}

func (f *mixFlags) apply(cmd *cobra.Command, params *jobs.MixParams) {
	flags := cmd.Flags()
	if flags.Changed("fade-in") {
		params.FadeIn = &f.fadeIn
	}
	if flags.Changed("intro") {
		params.Intro = &f.intro
	}
	if flags.Changed("fade-down") {
		params.FadeDown = &f.fadeDown
	}
	if flags.Changed("fade-out") {
		params.FadeOut = &f.fadeOut
	}
	if flags.Changed("bgm-volume") {
		params.BGMVolume = &f.bgmVolume
	}
	if flags.Changed("loudnorm") {
		params.Loudnorm = &f.loudnorm
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	return fmt.Sprintf("%.1fs", seconds)
}

func formatPercent(percent float64) string {
	return fmt.Sprintf("%.0f%%", percent)
}
