package mix

import (
	"errors"
	"fmt"
)

// Settings holds the user-declared envelope durations and target volume for a
// narration/BGM mixdown. All durations are seconds.
type Settings struct {
	FadeIn    float64
	Intro     float64
	FadeDown  float64
	FadeOut   float64
	BGMVolume float64
	Loudnorm  bool
}

// Validate rejects settings the timeline arithmetic cannot accept.
func (s Settings) Validate() error {
	durations := []struct {
		name  string
		value float64
	}{
		{"fade_in", s.FadeIn},
		{"intro", s.Intro},
		{"fade_down", s.FadeDown},
		{"fade_out", s.FadeOut},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", d.name, d.value)
		}
	}
	if s.BGMVolume < 0 || s.BGMVolume > 1 {
		return fmt.Errorf("bgm volume must be between 0 and 1, got %v", s.BGMVolume)
	}
	return nil
}

// Timeline places the narration on the BGM track. The background fades in,
// holds full volume through the intro, fades down to the target volume, holds
// it under the narration, and fades out after the narration ends.
type Timeline struct {
	FadeInEnd      float64
	IntroEnd       float64
	FadeDownEnd    float64
	NarrationDelay float64
	NarrationEnd   float64
	TotalDuration  float64
	Volume         float64
}

// NewTimeline computes segment boundaries for a narration of the given
// duration, in seconds.
func NewTimeline(narrationDuration float64, s Settings) (Timeline, error) {
	if err := s.Validate(); err != nil {
		return Timeline{}, err
	}
	if narrationDuration <= 0 {
		return Timeline{}, errors.New("narration duration must be positive")
	}

	tl := Timeline{Volume: s.BGMVolume}
	tl.FadeInEnd = s.FadeIn
	tl.IntroEnd = tl.FadeInEnd + s.Intro
	tl.FadeDownEnd = tl.IntroEnd + s.FadeDown
	tl.NarrationDelay = tl.FadeDownEnd
	tl.NarrationEnd = tl.NarrationDelay + narrationDuration
	tl.TotalDuration = tl.NarrationEnd + s.FadeOut
	return tl, nil
}

// NarrationDelayMilliseconds returns the narration offset for ffmpeg's adelay
// filter, which takes integral milliseconds.
func (tl Timeline) NarrationDelayMilliseconds() int64 {
	return int64(tl.NarrationDelay*1000 + 0.5)
}
