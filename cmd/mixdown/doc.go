// Package main hosts the mixdown CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into direct
// ffmpeg job runs, IPC calls against the daemon, queue maintenance, log
// tailing, and configuration scaffolding. It centralizes configuration
// resolution and socket discovery so subcommands can focus on output.
package main
