package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/ipc"
	"mixdown/internal/jobs"
	"mixdown/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var output outputFlags
	var envelope mixFlags

	cmd := &cobra.Command{
		Use:   "add <kind> <source> [background]",
		Short: "Enqueue a job for the daemon",
		Long: "Add enqueues a probe, convert, extract-audio, or mix job. Mix jobs\n" +
			"take a second positional argument naming the background music file.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := queue.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown job kind %q", args[0])
			}

			background := ""
			if len(args) == 3 {
				background = args[2]
			}
			if kind == queue.KindMix && background == "" {
				return errors.New("mix jobs require a background music argument")
			}

			paramsJSON, err := encodeQueueParams(cmd, kind, output, envelope)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueAdd(ipc.QueueAddRequest{
					Kind:           string(kind),
					SourcePath:     args[1],
					BackgroundPath: background,
					ParamsJSON:     paramsJSON,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Item)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %d for %s\n",
					resp.Item.Kind, resp.Item.ID, resp.Item.SourcePath)
				return nil
			})
		},
	}

	output.register(cmd)
	envelope.register(cmd)
	return cmd
}

func encodeQueueParams(cmd *cobra.Command, kind queue.Kind, output outputFlags, envelope mixFlags) (string, error) {
	switch kind {
	case queue.KindProbe:
		return "", nil
	case queue.KindConvert:
		return jobs.EncodeParams(jobs.ConvertParams{Output: output.params()})
	case queue.KindExtractAudio:
		return jobs.EncodeParams(jobs.ExtractParams{Output: output.params()})
	case queue.KindMix:
		params := jobs.MixParams{Output: output.params()}
		envelope.apply(cmd, &params)
		return jobs.EncodeParams(params)
	default:
		return "", fmt.Errorf("unknown job kind %q", kind)
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(listStatuses)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Kind", "Status", "Progress", "Source", "Created"},
					buildQueueListRows(resp.Items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func buildQueueListRows(items []ipc.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Kind,
			item.Status,
			formatPercent(item.Progress.Percent),
			item.SourcePath,
			item.CreatedAt,
		})
	}
	return rows
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show a single queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueDescribe(id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Item)
				}
				printQueueItem(cmd, resp.Item)
				return nil
			})
		},
	}
}

func printQueueItem(cmd *cobra.Command, item ipc.QueueItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d (%s)\n", item.ID, item.Kind)
	fmt.Fprintf(out, "  Status:     %s\n", item.Status)
	fmt.Fprintf(out, "  Source:     %s\n", item.SourcePath)
	if item.BackgroundPath != "" {
		fmt.Fprintf(out, "  Background: %s\n", item.BackgroundPath)
	}
	if item.OutputPath != "" {
		fmt.Fprintf(out, "  Output:     %s\n", item.OutputPath)
	}
	if item.Progress.Stage != "" {
		fmt.Fprintf(out, "  Progress:   %s %s\n", item.Progress.Stage, formatPercent(item.Progress.Percent))
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:      %s\n", item.ErrorMessage)
	}
	if item.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:    %s\n", item.CreatedAt)
	}
	if len(item.Result) > 0 {
		fmt.Fprintf(out, "  Result:     %s\n", strings.TrimSpace(string(item.Result)))
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if clearCompleted {
					resp, err := client.QueueClearCompleted()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", resp.Removed)
					return nil
				}
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d queue items\n", resp.Removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRetry(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d items\n", resp.Updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.QueueHealth()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nRunning: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Running,
					health.Failed,
					health.Review,
					health.Completed,
				)
				return nil
			})
		},
	}
}
