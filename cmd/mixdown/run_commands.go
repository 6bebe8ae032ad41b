package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/jobs"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

// runDirect executes a job handler inline, without the daemon or the
// queue. The returned item carries OutputPath and ResultJSON the same
// way a queued job would.
func runDirect(ctx *commandContext, cmd *cobra.Command, kind queue.Kind, source, background string, params any) (*queue.Item, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}

	source, err = resolvePath(source)
	if err != nil {
		return nil, err
	}
	if background != "" {
		background, err = resolvePath(background)
		if err != nil {
			return nil, err
		}
	}

	var paramsJSON string
	if params != nil {
		paramsJSON, err = jobs.EncodeParams(params)
		if err != nil {
			return nil, err
		}
	}

	env, err := jobs.NewEnvironment(cfg, logging.NewNop())
	if err != nil {
		return nil, err
	}
	handler, ok := jobs.NewRegistry(env)[kind]
	if !ok {
		return nil, fmt.Errorf("no handler for job kind %q", kind)
	}

	item := &queue.Item{
		Kind:           kind,
		Status:         queue.StatusRunning,
		SourcePath:     source,
		BackgroundPath: background,
		ParamsJSON:     paramsJSON,
	}

	progress := jobs.ProgressFunc(nil)
	if !ctx.jsonOutput() {
		progress = newConsoleProgress(cmd)
	}

	if err := handler.Execute(cmd.Context(), item, progress); err != nil {
		return nil, err
	}
	return item, nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("input path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}

// newConsoleProgress reports stage transitions on stderr so stdout
// stays parseable.
func newConsoleProgress(cmd *cobra.Command) jobs.ProgressFunc {
	var lastStage string
	return func(stage string, percent float64, message string) {
		if stage == lastStage {
			return
		}
		lastStage = stage
		if message != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", stage, message)
			return
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", stage)
	}
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := runDirect(ctx, cmd, queue.KindProbe, args[0], "", nil)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, json.RawMessage(item.ResultJSON))
			}

			var result jobs.ProbeResult
			if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
				return fmt.Errorf("decode probe result: %w", err)
			}

			rows := [][]string{
				{"Format", result.FormatName},
				{"Duration", formatSeconds(result.DurationSeconds)},
				{"Size", formatBytes(result.SizeBytes)},
				{"Audio streams", fmt.Sprintf("%d", result.AudioStreams)},
				{"Video streams", fmt.Sprintf("%d", result.VideoStreams)},
			}
			if result.BitRate > 0 {
				rows = append(rows, []string{"Bit rate", fmt.Sprintf("%d b/s", result.BitRate)})
			}
			if result.SampleRate > 0 {
				rows = append(rows, []string{"Sample rate", fmt.Sprintf("%d Hz", result.SampleRate)})
			}
			table := renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var output outputFlags

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Transcode an audio file to the configured output format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := jobs.ConvertParams{Output: output.params()}
			item, err := runDirect(ctx, cmd, queue.KindConvert, args[0], "", params)
			if err != nil {
				return err
			}
			return printRenderOutcome(ctx, cmd, item)
		},
	}

	output.register(cmd)
	return cmd
}

func newExtractAudioCommand(ctx *commandContext) *cobra.Command {
	var output outputFlags

	cmd := &cobra.Command{
		Use:   "extract-audio <file>",
		Short: "Extract the audio track from a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := jobs.ExtractParams{Output: output.params()}
			item, err := runDirect(ctx, cmd, queue.KindExtractAudio, args[0], "", params)
			if err != nil {
				return err
			}
			return printRenderOutcome(ctx, cmd, item)
		},
	}

	output.register(cmd)
	return cmd
}

func newMixCommand(ctx *commandContext) *cobra.Command {
	var output outputFlags
	var envelope mixFlags

	cmd := &cobra.Command{
		Use:   "mix <narration> <background>",
		Short: "Mix narration over looped background music",
		Long: "Mix lays a narration track over background music. The music fades in,\n" +
			"plays an intro at full volume, ducks under the narration, and fades out\n" +
			"after the narration ends. Durations and volume come from the [mix]\n" +
			"config section unless overridden by flags.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := jobs.MixParams{Output: output.params()}
			envelope.apply(cmd, &params)

			item, err := runDirect(ctx, cmd, queue.KindMix, args[0], args[1], params)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, json.RawMessage(item.ResultJSON))
			}

			var result jobs.MixResult
			if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
				return fmt.Errorf("decode mix result: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", result.OutputPath)
			fmt.Fprintf(out, "Narration: %s starting at %s\n",
				formatSeconds(result.NarrationDuration), formatSeconds(result.NarrationDelay))
			fmt.Fprintf(out, "Total: %s (loudnorm: %s)\n",
				formatSeconds(result.TotalDuration), yesNo(result.Loudnorm))
			return nil
		},
	}

	output.register(cmd)
	envelope.register(cmd)
	return cmd
}

func printRenderOutcome(ctx *commandContext, cmd *cobra.Command, item *queue.Item) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, json.RawMessage(item.ResultJSON))
	}
	var result jobs.RenderResult
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %s)\n",
		result.OutputPath, formatSeconds(result.DurationSeconds), formatBytes(result.SizeBytes))
	return nil
}
