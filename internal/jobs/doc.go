// Package jobs implements the handlers behind each queue kind: probing media,
// transcoding audio, stripping video tracks, and the narration/BGM mixdown.
// The same handlers back both the daemon's queue worker and the CLI's direct
// commands.
package jobs
