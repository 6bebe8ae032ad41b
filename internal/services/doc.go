// Package services defines the error classification shared by job handlers.
//
// Handlers wrap failures with one of the exported sentinel errors so the
// workflow manager can decide whether a failed job is retryable or needs
// operator review without inspecting error strings.
package services
