package mix

import (
	"strconv"
	"strings"
)

// Segment is one piece of the piecewise-linear gain envelope. Gain ramps
// linearly from FromGain at Start to ToGain at End.
type Segment struct {
	Start    float64
	End      float64
	FromGain float64
	ToGain   float64
}

func (s Segment) constant() bool {
	return s.FromGain == s.ToGain
}

// Envelope is the BGM gain as a function of playback time.
type Envelope struct {
	Segments []Segment
	Total    float64
}

// Envelope renders the timeline as its five-segment gain envelope. Segments
// with zero duration collapse: the envelope transitions immediately with no
// ramp.
func (tl Timeline) Envelope() Envelope {
	v := tl.Volume
	candidates := []Segment{
		{Start: 0, End: tl.FadeInEnd, FromGain: 0, ToGain: 1},
		{Start: tl.FadeInEnd, End: tl.IntroEnd, FromGain: 1, ToGain: 1},
		{Start: tl.IntroEnd, End: tl.FadeDownEnd, FromGain: 1, ToGain: v},
		{Start: tl.FadeDownEnd, End: tl.NarrationEnd, FromGain: v, ToGain: v},
		{Start: tl.NarrationEnd, End: tl.TotalDuration, FromGain: v, ToGain: 0},
	}

	segments := make([]Segment, 0, len(candidates))
	for _, segment := range candidates {
		if segment.End <= segment.Start {
			continue
		}
		segments = append(segments, segment)
	}
	return Envelope{Segments: segments, Total: tl.TotalDuration}
}

// Evaluate returns the gain at playback time t. Times outside the envelope
// evaluate to 0.
func (e Envelope) Evaluate(t float64) float64 {
	if t < 0 {
		return 0
	}
	for _, segment := range e.Segments {
		if t >= segment.End {
			continue
		}
		if segment.constant() {
			return segment.FromGain
		}
		progress := (t - segment.Start) / (segment.End - segment.Start)
		return segment.FromGain + (segment.ToGain-segment.FromGain)*progress
	}
	return 0
}

// Expression renders the envelope as an ffmpeg volume filter expression in t.
// Evaluated per frame, it reproduces the piecewise-linear gain curve.
func (e Envelope) Expression() string {
	if len(e.Segments) == 0 {
		return "0"
	}

	// Build from the last segment backwards so each earlier segment wraps
	// the remainder in if(lt(t,end),...).
	expr := "0"
	for i := len(e.Segments) - 1; i >= 0; i-- {
		segment := e.Segments[i]
		var value string
		if segment.constant() {
			value = formatFloat(segment.FromGain)
		} else {
			// from + (to-from)*(t-start)/(end-start)
			var b strings.Builder
			b.WriteString(formatFloat(segment.FromGain))
			delta := segment.ToGain - segment.FromGain
			if delta < 0 {
				b.WriteString("-")
				delta = -delta
			} else {
				b.WriteString("+")
			}
			b.WriteString(formatFloat(delta))
			b.WriteString("*(t-")
			b.WriteString(formatFloat(segment.Start))
			b.WriteString(")/")
			b.WriteString(formatFloat(segment.End - segment.Start))
			value = b.String()
		}
		expr = "if(lt(t," + formatFloat(segment.End) + ")," + value + "," + expr + ")"
	}
	return expr
}

func formatFloat(value float64) string {
	formatted := strconv.FormatFloat(value, 'f', -1, 64)
	// Cap fractions at six decimals; finer than audio frame resolution.
	if dot := strings.IndexByte(formatted, '.'); dot >= 0 && len(formatted)-dot-1 > 6 {
		formatted = strconv.FormatFloat(value, 'f', 6, 64)
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}
	return formatted
}
