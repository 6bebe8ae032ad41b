// Package daemon wires the queue store and workflow manager into a
// single-instance background service guarded by a file lock.
package daemon
