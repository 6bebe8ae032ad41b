// Package api defines the transport-friendly representations of queue items
// and daemon status shared by the IPC protocol and the CLI's JSON output.
package api
