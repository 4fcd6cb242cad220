package fetch

import "errors"

// ErrNoOutput indicates the download tool exited cleanly but left no usable file.
var ErrNoOutput = errors.New("no output file produced")

// ErrNoVideoID indicates the target URL carries no recognizable video id.
var ErrNoVideoID = errors.New("no video id in url")

// ErrNoAudioFormat indicates the media API listed no audio stream.
var ErrNoAudioFormat = errors.New("no audio format available")

// ErrEmptyMedia indicates a download returned zero bytes.
var ErrEmptyMedia = errors.New("empty media")

// ErrMediaTooLarge indicates a download exceeded the size cap.
var ErrMediaTooLarge = errors.New("media too large")
