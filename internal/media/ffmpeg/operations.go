package ffmpeg

import (
	"strconv"
	"strings"

	"mixdown/internal/mix"
)

// OutputSettings describe the encoded artifact an operation produces. Empty
// fields are omitted from the argument list, deferring to ffmpeg defaults.
type OutputSettings struct {
	Format     string
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
}

func (s OutputSettings) encodeArgs() []string {
	var args []string
	if codec := strings.TrimSpace(s.Codec); codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrate := strings.TrimSpace(s.Bitrate); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	if s.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(s.SampleRate))
	}
	if s.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(s.Channels))
	}
	if format := strings.TrimSpace(s.Format); format != "" {
		args = append(args, "-f", format)
	}
	return args
}

// ConvertArgs builds the argument list for a plain audio transcode.
func ConvertArgs(input, output string, out OutputSettings) []string {
	args := []string{"-i", input}
	args = append(args, out.encodeArgs()...)
	return append(args, output)
}

// ExtractAudioArgs builds the argument list that drops every video stream
// and transcodes the remaining audio.
func ExtractAudioArgs(input, output string, out OutputSettings) []string {
	args := []string{"-i", input, "-vn"}
	args = append(args, out.encodeArgs()...)
	return append(args, output)
}

// MixArgs builds the argument list for the narration/BGM mixdown. The
// background input is looped indefinitely; the filter graph trims it to the
// timeline's total duration, so a too-short track repeats and a too-long one
// is cut.
func MixArgs(narration, background, output string, tl mix.Timeline, out OutputSettings) []string {
	args := []string{
		"-i", narration,
		"-stream_loop", "-1", "-i", background,
		"-filter_complex", tl.FilterGraph(),
		"-map", "[" + mix.MixedOutputLabel + "]",
	}
	args = append(args, out.encodeArgs()...)
	return append(args, output)
}

// loudnormFilter is the single-pass EBU R128 normalization applied to mixed
// output.
const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// LoudnormArgs builds the argument list for the loudness-normalization pass.
func LoudnormArgs(input, output string, out OutputSettings) []string {
	args := []string{"-i", input, "-af", loudnormFilter}
	args = append(args, out.encodeArgs()...)
	return append(args, output)
}
