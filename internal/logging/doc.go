// Package logging assembles structured slog loggers shared across mixdown.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes typed attribute helpers so components emit log lines with the
// same shape. Prefer these constructors over hand-rolled slog setup.
package logging
