// Package mix computes the narration/BGM mixdown timeline.
//
// Given a probed narration duration and four user-supplied envelope
// durations, it places the narration on the background track and renders the
// five-segment piecewise-linear gain envelope as an ffmpeg volume expression
// plus the filter graph that performs the mix. The package is pure
// arithmetic and string building; subprocess execution lives in
// internal/media/ffmpeg.
package mix
