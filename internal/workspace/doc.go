// Package workspace manages per-job staging directories and the verified
// handoff of finished artifacts into the output directory.
package workspace
