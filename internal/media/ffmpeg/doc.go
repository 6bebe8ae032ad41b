// Package ffmpeg wraps ffmpeg subprocess invocation.
//
// Runner owns the execution contract: a per-invocation timeout, progress
// parsing from "-progress pipe:1", and failure errors that carry the last
// meaningful stderr line. The Args builders construct the argument lists for
// each operation (convert, extract-audio, mix, loudnorm); they are pure
// string building so tests can assert exact command lines without running
// anything.
package ffmpeg
