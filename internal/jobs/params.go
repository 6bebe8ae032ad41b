package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"mixdown/internal/config"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/mix"
)

// OutputParams carry per-job overrides of the configured output settings. An
// empty field falls back to the [output] section of the config.
type OutputParams struct {
	Format     string `json:"format,omitempty"`
	Codec      string `json:"codec,omitempty"`
	Bitrate    string `json:"bitrate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Settings merges the overrides onto the configured defaults.
func (p OutputParams) Settings(defaults config.Output) ffmpeg.OutputSettings {
	out := ffmpeg.OutputSettings{
		Format:     defaults.Format,
		Codec:      defaults.AudioCodec,
		Bitrate:    defaults.AudioBitrate,
		SampleRate: defaults.SampleRate,
		Channels:   defaults.Channels,
	}
	if v := strings.TrimSpace(p.Format); v != "" {
		out.Format = v
	}
	if v := strings.TrimSpace(p.Codec); v != "" {
		out.Codec = v
	}
	if v := strings.TrimSpace(p.Bitrate); v != "" {
		out.Bitrate = v
	}
	if p.SampleRate > 0 {
		out.SampleRate = p.SampleRate
	}
	if p.Channels > 0 {
		out.Channels = p.Channels
	}
	return out
}

// ConvertParams configure a transcode job.
type ConvertParams struct {
	Output OutputParams `json:"output"`
}

// ExtractParams configure an audio extraction job.
type ExtractParams struct {
	Output OutputParams `json:"output"`
}

// MixParams configure a narration/BGM mixdown. Nil envelope fields fall back
// to the [mix] section of the config.
type MixParams struct {
	Output    OutputParams `json:"output"`
	FadeIn    *float64     `json:"fade_in,omitempty"`
	Intro     *float64     `json:"intro,omitempty"`
	FadeDown  *float64     `json:"fade_down,omitempty"`
	FadeOut   *float64     `json:"fade_out,omitempty"`
	BGMVolume *float64     `json:"bgm_volume,omitempty"`
	Loudnorm  *bool        `json:"loudnorm,omitempty"`
}

// Settings merges the mix overrides onto the configured defaults.
func (p MixParams) Settings(defaults config.Mix) mix.Settings {
	s := mix.Settings{
		FadeIn:    defaults.FadeIn,
		Intro:     defaults.Intro,
		FadeDown:  defaults.FadeDown,
		FadeOut:   defaults.FadeOut,
		BGMVolume: defaults.BGMVolume,
		Loudnorm:  defaults.Loudnorm,
	}
	if p.FadeIn != nil {
		s.FadeIn = *p.FadeIn
	}
	if p.Intro != nil {
		s.Intro = *p.Intro
	}
	if p.FadeDown != nil {
		s.FadeDown = *p.FadeDown
	}
	if p.FadeOut != nil {
		s.FadeOut = *p.FadeOut
	}
	if p.BGMVolume != nil {
		s.BGMVolume = *p.BGMVolume
	}
	if p.Loudnorm != nil {
		s.Loudnorm = *p.Loudnorm
	}
	return s
}

// EncodeParams serializes job parameters for queue storage.
func EncodeParams(params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	return string(data), nil
}

func decodeParams(raw string, target any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// ProbeResult summarizes an inspection for queue storage and CLI display.
type ProbeResult struct {
	FormatName      string  `json:"format_name,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	BitRate         int64   `json:"bit_rate,omitempty"`
	SampleRate      int     `json:"sample_rate,omitempty"`
	AudioStreams    int     `json:"audio_streams"`
	VideoStreams    int     `json:"video_streams"`
}

// RenderResult summarizes a produced audio artifact.
type RenderResult struct {
	OutputPath      string  `json:"output_path"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
}

// MixResult extends RenderResult with the computed timeline.
type MixResult struct {
	RenderResult
	NarrationDuration float64 `json:"narration_duration"`
	NarrationDelay    float64 `json:"narration_delay"`
	TotalDuration     float64 `json:"total_duration"`
	Loudnorm          bool    `json:"loudnorm"`
}
