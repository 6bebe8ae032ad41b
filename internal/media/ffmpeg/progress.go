package ffmpeg

import (
	"strconv"
	"strings"
)

// Progress captures one ffmpeg progress report.
type Progress struct {
	Seconds float64
	Speed   float64
	Done    bool
}

// progressAccumulator folds the key=value lines emitted by
// "-progress pipe:1" into Progress updates. ffmpeg terminates each report
// block with a "progress=continue" or "progress=end" line.
type progressAccumulator struct {
	callback func(Progress)
	current  Progress
}

func newProgressAccumulator(callback func(Progress)) *progressAccumulator {
	return &progressAccumulator{callback: callback}
}

func (a *progressAccumulator) feed(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds; out_time_ms is a historical
		// misnomer in ffmpeg.
		if micros, err := strconv.ParseInt(value, 10, 64); err == nil && micros >= 0 {
			a.current.Seconds = float64(micros) / 1e6
		}
	case "speed":
		a.current.Speed = parseSpeed(value)
	case "progress":
		a.current.Done = value == "end"
		if a.callback != nil {
			a.callback(a.current)
		}
		done := a.current.Done
		a.current = Progress{Done: done}
	}
}

func parseSpeed(value string) float64 {
	value = strings.TrimSuffix(strings.TrimSpace(value), "x")
	if value == "" || value == "N/A" {
		return 0
	}
	speed, err := strconv.ParseFloat(value, 64)
	if err != nil || speed < 0 {
		return 0
	}
	return speed
}

// PercentOf converts a progress position into a percentage of the expected
// total duration, clamped to [0,100]. Returns 0 when the total is unknown.
func (p Progress) PercentOf(totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	percent := p.Seconds / totalSeconds * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
