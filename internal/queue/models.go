package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
)

// DaemonStopReason is the error message set when running jobs are failed due
// to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus validates a user-supplied status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Terminal reports whether the status ends the job lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReview
}

// Kind identifies the ffmpeg operation a job performs.
type Kind string

const (
	KindProbe        Kind = "probe"
	KindConvert      Kind = "convert"
	KindExtractAudio Kind = "extract-audio"
	KindMix          Kind = "mix"
)

var allKinds = []Kind{KindProbe, KindConvert, KindExtractAudio, KindMix}

// ParseKind validates a user-supplied job kind string.
func ParseKind(value string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allKinds {
		if kind == known {
			return kind, true
		}
	}
	return "", false
}

// Item is a single queued job.
type Item struct {
	ID              int64
	Kind            Kind
	Status          Status
	SourcePath      string
	BackgroundPath  string
	OutputPath      string
	ParamsJSON      string
	ResultJSON      string
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HealthSummary aggregates queue counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Review    int
}
