package audio

import "errors"

// ErrFormatMismatch indicates buffers with different sample layouts were combined.
var ErrFormatMismatch = errors.New("audio format mismatch")

// ErrDecodeFailed indicates ffmpeg could not decode the input into PCM.
var ErrDecodeFailed = errors.New("audio decode failed")

// ErrEncodeFailed indicates ffmpeg could not encode PCM to the output codec.
var ErrEncodeFailed = errors.New("audio encode failed")

// ErrEmptyInput indicates the input held no audio.
var ErrEmptyInput = errors.New("empty audio input")
