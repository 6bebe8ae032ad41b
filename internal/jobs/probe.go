package jobs

import (
	"context"
	"encoding/json"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// ProbeHandler inspects a media file and records its metadata.
type ProbeHandler struct {
	env *Environment
}

func NewProbeHandler(env *Environment) *ProbeHandler {
	return &ProbeHandler{env: env}
}

func (h *ProbeHandler) Kind() queue.Kind {
	return queue.KindProbe
}

func (h *ProbeHandler) Execute(ctx context.Context, item *queue.Item, report ProgressFunc) error {
	report = ensureProgress(report)
	if err := requireFile(item.Kind, "source", item.SourcePath); err != nil {
		return err
	}

	report("probe", 10, "inspecting media")
	result, err := h.env.Inspect(ctx, item.SourcePath)
	if err != nil {
		return inspectFailure(item.Kind, "inspect source", err)
	}

	summary := ProbeResult{
		FormatName:      result.Format.FormatName,
		DurationSeconds: result.DurationSeconds(),
		SizeBytes:       result.SizeBytes(),
		BitRate:         result.BitRate(),
		SampleRate:      result.SampleRateHz(),
		AudioStreams:    result.AudioStreamCount(),
		VideoStreams:    result.VideoStreamCount(),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(item.Kind), "encode result", "", err)
	}
	item.ResultJSON = string(payload)

	h.env.Logger.Info("probe complete",
		logging.String("source", item.SourcePath),
		logging.Float64("duration_seconds", summary.DurationSeconds),
		logging.Int("audio_streams", summary.AudioStreams))
	report("probe", 100, "inspection complete")
	return nil
}
