package mix

import (
	"math"
	"strings"
	"testing"
)

func mustTimeline(t *testing.T, duration float64, s Settings) Timeline {
	t.Helper()
	tl, err := NewTimeline(duration, s)
	if err != nil {
		t.Fatalf("new timeline: %v", err)
	}
	return tl
}

func TestEnvelopeHasFiveSegments(t *testing.T) {
	tl := mustTimeline(t, 60, defaultSettings())
	envelope := tl.Envelope()
	if len(envelope.Segments) != 5 {
		t.Fatalf("segments = %d, want 5", len(envelope.Segments))
	}
	if envelope.Total != tl.TotalDuration {
		t.Fatalf("total = %v, want %v", envelope.Total, tl.TotalDuration)
	}
}

func TestEnvelopeCollapsesZeroSegments(t *testing.T) {
	tl := mustTimeline(t, 10, Settings{FadeIn: 0, Intro: 5, FadeDown: 0, FadeOut: 2, BGMVolume: 0.3})
	envelope := tl.Envelope()
	// fade-in and fade-down collapse, leaving intro, narration hold, fade-out.
	if len(envelope.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(envelope.Segments))
	}
	if gain := envelope.Evaluate(0); gain != 1 {
		t.Fatalf("gain at 0 = %v, want immediate full volume", gain)
	}
	if gain := envelope.Evaluate(5.0); gain != 0.3 {
		t.Fatalf("gain at fade-down boundary = %v, want immediate %v", gain, 0.3)
	}
}

func TestEnvelopeEvaluateSegments(t *testing.T) {
	settings := Settings{FadeIn: 2, Intro: 3, FadeDown: 2, FadeOut: 3, BGMVolume: 0.2}
	tl := mustTimeline(t, 60, settings)
	envelope := tl.Envelope()

	cases := []struct {
		name string
		t    float64
		want float64
	}{
		{"fade-in midpoint", 1, 0.5},
		{"intro plateau", 3.5, 1},
		{"fade-down midpoint", 6, 0.6},
		{"narration hold", 30, 0.2},
		{"fade-out midpoint", 68.5, 0.1},
		{"past end", 71, 0},
		{"before start", -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := envelope.Evaluate(tc.t); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Evaluate(%v) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestEnvelopeContinuityAtBoundaries(t *testing.T) {
	tl := mustTimeline(t, 45, Settings{FadeIn: 1.5, Intro: 2.5, FadeDown: 1, FadeOut: 4, BGMVolume: 0.25})
	envelope := tl.Envelope()

	const eps = 1e-6
	boundaries := []float64{tl.FadeInEnd, tl.IntroEnd, tl.FadeDownEnd, tl.NarrationEnd}
	for _, boundary := range boundaries {
		before := envelope.Evaluate(boundary - eps)
		after := envelope.Evaluate(boundary + eps)
		if math.Abs(before-after) > 1e-3 {
			t.Fatalf("discontinuity at %v: %v vs %v", boundary, before, after)
		}
	}
	if gain := envelope.Evaluate(tl.TotalDuration - eps); math.Abs(gain) > 1e-3 {
		t.Fatalf("terminal gain = %v, want ~0", gain)
	}
}

func TestExpressionShape(t *testing.T) {
	tl := mustTimeline(t, 60, defaultSettings())
	expr := tl.Envelope().Expression()

	if strings.Count(expr, "if(lt(t,") != 5 {
		t.Fatalf("expected 5 guards in %q", expr)
	}
	for _, want := range []string{"if(lt(t,2),", "if(lt(t,5),1,", "if(lt(t,7),", "if(lt(t,67),0.2,", "if(lt(t,70),"} {
		if !strings.Contains(expr, want) {
			t.Fatalf("missing %q in %q", want, expr)
		}
	}
	if !strings.HasSuffix(expr, ")") {
		t.Fatalf("unterminated expression %q", expr)
	}
	// Downward ramps render with a subtraction, not a unary minus.
	if !strings.Contains(expr, "1-0.8*(t-5)/2") {
		t.Fatalf("fade-down ramp = %q", expr)
	}
	if strings.Contains(expr, "+-") {
		t.Fatalf("negative delta rendered as +- in %q", expr)
	}
}

func TestExpressionCollapsedEnvelope(t *testing.T) {
	tl := mustTimeline(t, 10, Settings{BGMVolume: 0.4})
	expr := tl.Envelope().Expression()
	// Only the narration hold survives: constant 0.4 until the end.
	if expr != "if(lt(t,10),0.4,0)" {
		t.Fatalf("expression = %q", expr)
	}
}

func TestFormatFloatCapsPrecision(t *testing.T) {
	if got := formatFloat(1.0 / 3.0); got != "0.333333" {
		t.Fatalf("formatFloat = %q", got)
	}
	if got := formatFloat(2); got != "2" {
		t.Fatalf("formatFloat = %q", got)
	}
	if got := formatFloat(0.25); got != "0.25" {
		t.Fatalf("formatFloat = %q", got)
	}
}
