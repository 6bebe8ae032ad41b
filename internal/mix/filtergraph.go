package mix

import (
	"fmt"
	"strings"
)

// MixedOutputLabel names the filter graph's final pad. Callers map it with
// -map "[mixed]".
const MixedOutputLabel = "mixed"

// FilterGraph builds the -filter_complex expression mixing a delayed
// narration (input 0) into the enveloped background track (input 1). The
// background is trimmed to the total duration; callers loop a short BGM with
// -stream_loop on its input. The narration is summed with the background,
// never overwritten, so amix normalization is disabled.
func (tl Timeline) FilterGraph() string {
	envelope := tl.Envelope()

	var b strings.Builder
	fmt.Fprintf(&b, "[1:a]atrim=0:%s,asetpts=PTS-STARTPTS,volume='%s':eval=frame[bgm];",
		formatFloat(tl.TotalDuration), envelope.Expression())
	fmt.Fprintf(&b, "[0:a]adelay=%d:all=1[nar];", tl.NarrationDelayMilliseconds())
	fmt.Fprintf(&b, "[bgm][nar]amix=inputs=2:duration=first:normalize=0[%s]", MixedOutputLabel)
	return b.String()
}
