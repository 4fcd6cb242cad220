package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Encoder settings for the exported workout track.
const (
	OutputCodec   = "libmp3lame"
	OutputBitrate = "192k"
	OutputFormat  = "mp3"
)

// Codec converts between compressed media and Buffers by piping through ffmpeg.
type Codec struct {
	ffmpegPath string
	format     Format
	runner     pipeRunner
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithPipeRunner sets a custom command runner (for testing).
func WithPipeRunner(r pipeRunner) CodecOption {
	return func(c *Codec) { c.runner = r }
}

// WithFormat sets the PCM layout used for decoding and encoding.
func WithFormat(f Format) CodecOption {
	return func(c *Codec) {
		if f.SampleRate > 0 && f.Channels > 0 {
			c.format = f
		}
	}
}

// NewCodec creates a Codec that runs the ffmpeg binary at ffmpegPath.
func NewCodec(ffmpegPath string, opts ...CodecOption) *Codec {
	c := &Codec{
		ffmpegPath: ffmpegPath,
		format:     Default,
		runner:     osPipeRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode converts compressed media bytes (mp3, m4a, webm, ...) into a Buffer
// in the codec's format.
func (c *Codec) Decode(ctx context.Context, media []byte) (Buffer, error) {
	if len(media) == 0 {
		return Buffer{}, fmt.Errorf("decode: %w", ErrEmptyInput)
	}

	var out bytes.Buffer
	if err := c.runner.Pipe(ctx, c.ffmpegPath, c.decodeArgs("pipe:0"), bytes.NewReader(media), &out); err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if out.Len() == 0 {
		return Buffer{}, fmt.Errorf("%w: ffmpeg produced no samples", ErrDecodeFailed)
	}

	return wrap(c.format, BytesToSamples(out.Bytes(), c.format.Channels)), nil
}

// DecodeFile converts the media file at path into a Buffer.
func (c *Codec) DecodeFile(ctx context.Context, path string) (Buffer, error) {
	var out bytes.Buffer
	if err := c.runner.Pipe(ctx, c.ffmpegPath, c.decodeArgs(path), nil, &out); err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	if out.Len() == 0 {
		return Buffer{}, fmt.Errorf("%w: %s: no samples", ErrDecodeFailed, path)
	}
	return wrap(c.format, BytesToSamples(out.Bytes(), c.format.Channels)), nil
}

// Encode writes buf to w as MP3 at OutputBitrate.
func (c *Codec) Encode(ctx context.Context, buf Buffer, w io.Writer) error {
	if buf.IsEmpty() {
		return fmt.Errorf("encode: %w", ErrEmptyInput)
	}
	f := buf.Format()
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
		"-i", "pipe:0",
		"-codec:a", OutputCodec,
		"-b:a", OutputBitrate,
		"-f", OutputFormat,
		"pipe:1",
	}
	if err := c.runner.Pipe(ctx, c.ffmpegPath, args, bytes.NewReader(SamplesToBytes(buf.samples)), w); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return nil
}

// decodeArgs builds ffmpeg arguments that emit raw s16le PCM on stdout.
func (c *Codec) decodeArgs(input string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(c.format.SampleRate),
		"-ac", strconv.Itoa(c.format.Channels),
		"pipe:1",
	}
}

// BytesToSamples converts little-endian s16 bytes to samples, dropping any
// trailing partial sample or frame.
func BytesToSamples(data []byte, channels int) []int16 {
	if channels <= 0 {
		channels = 1
	}
	n := len(data) / SampleWidth
	n -= n % channels
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// SamplesToBytes converts samples to little-endian s16 bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*SampleWidth)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
