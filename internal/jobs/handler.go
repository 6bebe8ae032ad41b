package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// ProgressFunc receives handler progress updates. Implementations must be
// safe to call from the goroutine running the handler.
type ProgressFunc func(stage string, percent float64, message string)

// Handler executes one job kind. On success the handler fills in the item's
// OutputPath and ResultJSON; the caller persists them.
type Handler interface {
	Kind() queue.Kind
	Execute(ctx context.Context, item *queue.Item, report ProgressFunc) error
}

// NewRegistry builds the handler for every queue kind.
func NewRegistry(env *Environment) map[queue.Kind]Handler {
	return map[queue.Kind]Handler{
		queue.KindProbe:        NewProbeHandler(env),
		queue.KindConvert:      NewConvertHandler(env),
		queue.KindExtractAudio: NewExtractHandler(env),
		queue.KindMix:          NewMixHandler(env),
	}
}

func nopProgress(string, float64, string) {}

func ensureProgress(report ProgressFunc) ProgressFunc {
	if report == nil {
		return nopProgress
	}
	return report
}

// requireFile verifies the input exists and is a regular file.
func requireFile(kind queue.Kind, role, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrValidation, string(kind), role, "path required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrNotFound, string(kind), role, fmt.Sprintf("%s does not exist", path), nil)
		}
		return services.Wrap(services.ErrTransient, string(kind), role, "stat input", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, string(kind), role, fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}

// outputName picks the published file name: the explicit override when set,
// otherwise the source base renamed to the output format's extension.
func outputName(sourcePath, override, format string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "output"
	}
	if format = strings.TrimSpace(format); format != "" {
		return stem + "." + format
	}
	if ext != "" {
		return stem + ext
	}
	return stem
}
