package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mixdown/internal/api"
	"mixdown/internal/deps"
	"mixdown/internal/ipc"
	"mixdown/internal/queue"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Resume the daemon's job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				switch {
				case resp.Started:
					fmt.Fprintln(stdout, "Worker started")
				case resp.Message != "":
					fmt.Fprintln(stdout, resp.Message)
				default:
					fmt.Fprintln(stdout, "Worker already running")
				}
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Pause the daemon's job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Worker stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Worker was not running")
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCommand(ctx, cmd)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func runStatusCommand(ctx *commandContext, cmd *cobra.Command) error {
	client, dialErr := ctx.dialClient()
	if dialErr == nil {
		defer client.Close()
		resp, err := client.Status()
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, resp)
		}
		renderDaemonStatus(cmd, resp)
		return nil
	}

	// Daemon unreachable. Build a local snapshot instead.
	snapshot, err := buildOfflineStatus(ctx, cmd)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, snapshot)
	}
	renderOfflineStatus(cmd, snapshot)
	return nil
}

func renderDaemonStatus(cmd *cobra.Command, resp *ipc.StatusResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusOK
	runningMsg := fmt.Sprintf("pid %d", resp.PID)
	if !resp.Running {
		runningKind = statusWarn
		runningMsg = "worker paused"
	}
	fmt.Fprintln(stdout, renderStatusLine("Worker", runningKind, runningMsg, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Queue database", statusInfo, resp.QueueDBPath, colorize))
	if resp.LastError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, resp.LastError, colorize))
	}
	if resp.LastItem != nil {
		detail := fmt.Sprintf("job %d (%s) %s", resp.LastItem.ID, resp.LastItem.Kind, resp.LastItem.Status)
		fmt.Fprintln(stdout, renderStatusLine("Last job", statusInfo, detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, dep := range resp.Dependencies {
		fmt.Fprintln(stdout, dependencyLine(dep.Name, dep.Available, dep.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	printQueueStats(cmd, resp.QueueStats, colorize)
}

func dependencyLine(name string, available bool, detail string, colorize bool) string {
	if available {
		message := "Ready"
		if detail != "" {
			message = fmt.Sprintf("Ready (%s)", detail)
		}
		return renderStatusLine(name, statusOK, message, colorize)
	}
	if detail == "" {
		detail = "not available"
	}
	return renderStatusLine(name, statusError, detail, colorize)
}

func printQueueStats(cmd *cobra.Command, stats map[string]int, colorize bool) {
	stdout := cmd.OutOrStdout()
	for _, line := range renderSectionHeader("Queue", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if len(stats) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return
	}
	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(stdout, table)
}

// offlineStatus mirrors ipc.StatusResponse for the path where no daemon
// is listening and the CLI inspects local state directly.
type offlineStatus struct {
	Running      bool                  `json:"running"`
	QueueStats   map[string]int        `json:"queue_stats"`
	QueueDBPath  string                `json:"queue_db_path"`
	Dependencies []ipc.DependencyStatus `json:"dependencies"`
}

func buildOfflineStatus(ctx *commandContext, cmd *cobra.Command) (*offlineStatus, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}

	statuses := deps.CheckBinaries(cmd.Context(), deps.ForConfig(cfg))
	converted := api.FromDependencyStatuses(statuses)

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return nil, err
	}

	return &offlineStatus{
		Running:      false,
		QueueStats:   stats,
		QueueDBPath:  store.Path(),
		Dependencies: converted,
	}, nil
}

func renderOfflineStatus(cmd *cobra.Command, snapshot *offlineStatus) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Worker", statusWarn, "daemon not running", colorize))
	fmt.Fprintln(stdout, renderStatusLine("Queue database", statusInfo, snapshot.QueueDBPath, colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, dep := range snapshot.Dependencies {
		fmt.Fprintln(stdout, dependencyLine(dep.Name, dep.Available, dep.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	printQueueStats(cmd, snapshot.QueueStats, colorize)
}
