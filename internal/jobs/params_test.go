package jobs

import (
	"testing"

	"mixdown/internal/config"
)

func TestOutputParamsSettingsMerge(t *testing.T) {
	defaults := config.Output{
		Format:       "mp3",
		AudioCodec:   "libmp3lame",
		AudioBitrate: "192k",
		SampleRate:   44100,
		Channels:     2,
	}

	merged := OutputParams{Bitrate: "320k", Channels: 1}.Settings(defaults)
	if merged.Format != "mp3" || merged.Codec != "libmp3lame" {
		t.Fatalf("defaults lost: %+v", merged)
	}
	if merged.Bitrate != "320k" || merged.Channels != 1 {
		t.Fatalf("overrides not applied: %+v", merged)
	}
	if merged.SampleRate != 44100 {
		t.Fatalf("sample rate changed: %+v", merged)
	}
}

func TestMixParamsSettingsMerge(t *testing.T) {
	defaults := config.Mix{
		FadeIn:    2,
		Intro:     3,
		FadeDown:  2,
		FadeOut:   3,
		BGMVolume: 0.2,
		Loudnorm:  true,
	}

	fadeIn := 5.0
	loudnorm := false
	merged := MixParams{FadeIn: &fadeIn, Loudnorm: &loudnorm}.Settings(defaults)
	if merged.FadeIn != 5 {
		t.Fatalf("fade in override lost: %+v", merged)
	}
	if merged.Intro != 3 || merged.FadeDown != 2 || merged.FadeOut != 3 || merged.BGMVolume != 0.2 {
		t.Fatalf("defaults lost: %+v", merged)
	}
	if merged.Loudnorm {
		t.Fatal("loudnorm override lost")
	}
}

func TestDecodeParamsEmpty(t *testing.T) {
	var params MixParams
	if err := decodeParams("", &params); err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if params.FadeIn != nil {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestDecodeParamsRejectsGarbage(t *testing.T) {
	var params ConvertParams
	if err := decodeParams("{not json", &params); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOutputName(t *testing.T) {
	cases := []struct {
		source   string
		override string
		format   string
		want     string
	}{
		{"/in/narration.wav", "", "mp3", "narration.mp3"},
		{"/in/narration.wav", "final.mp3", "mp3", "final.mp3"},
		{"/in/narration.wav", "", "", "narration.wav"},
		{"/in/clip", "", "mp3", "clip.mp3"},
	}
	for _, tc := range cases {
		if got := outputName(tc.source, tc.override, tc.format); got != tc.want {
			t.Fatalf("outputName(%q, %q, %q) = %q, want %q", tc.source, tc.override, tc.format, got, tc.want)
		}
	}
}
