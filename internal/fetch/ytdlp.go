package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// tempPrefix names every artifact the download tool writes.
const tempPrefix = "go-workout-"

// maxToolOutput caps the tool output quoted in errors.
const maxToolOutput = 512

// userAgents are rotated across download calls.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// browserHeaders are sent by the browser variant.
var browserHeaders = []string{
	"Accept:text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language:en-US,en;q=0.5",
	"DNT:1",
	"Connection:keep-alive",
	"Upgrade-Insecure-Requests:1",
	"Sec-Fetch-Dest:document",
	"Sec-Fetch-Mode:navigate",
	"Sec-Fetch-Site:none",
	"Sec-Fetch-User:?1",
	"Cache-Control:max-age=0",
}

// randomUserAgent picks one of userAgents.
func randomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// YtDlp downloads audio with the yt-dlp command line tool. Each call writes
// to a fresh temp path and removes everything it wrote before returning.
type YtDlp struct {
	path      string
	browser   bool
	tempDir   string
	runner    commandRunner
	fs        fileSystem
	userAgent func() string
}

// YtDlpOption configures a YtDlp.
type YtDlpOption func(*YtDlp)

// WithBrowserHeaders makes yt-dlp mimic a browser session: referer and
// Accept/Sec-Fetch headers, geo bypass, best audio via the android client.
func WithBrowserHeaders() YtDlpOption {
	return func(y *YtDlp) { y.browser = true }
}

// WithTempDir sets the directory for download artifacts.
func WithTempDir(dir string) YtDlpOption {
	return func(y *YtDlp) {
		if dir != "" {
			y.tempDir = dir
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(r commandRunner) YtDlpOption {
	return func(y *YtDlp) { y.runner = r }
}

// WithFileSystem sets a custom file system (for testing).
func WithFileSystem(f fileSystem) YtDlpOption {
	return func(y *YtDlp) { y.fs = f }
}

// WithUserAgent sets a custom user agent picker (for testing).
func WithUserAgent(fn func() string) YtDlpOption {
	return func(y *YtDlp) { y.userAgent = fn }
}

// NewYtDlp creates a YtDlp running the binary at path.
func NewYtDlp(path string, opts ...YtDlpOption) *YtDlp {
	y := &YtDlp{
		path:      path,
		tempDir:   os.TempDir(),
		runner:    osCommandRunner{},
		fs:        osFileSystem{},
		userAgent: randomUserAgent,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Download runs yt-dlp once and returns the extracted MP3 bytes.
func (y *YtDlp) Download(ctx context.Context, target Target) ([]byte, error) {
	base := filepath.Join(y.tempDir, tempPrefix+uuid.NewString())
	defer y.cleanup(base)

	out, err := y.runner.Run(ctx, y.path, y.args(target, base+".%(ext)s"))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp: %w", ctxErr)
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, truncate(out))
	}

	data, err := y.fs.ReadFile(base + ".mp3")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("yt-dlp: %w", ErrNoOutput)
	}
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: read output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("yt-dlp: %w", ErrNoOutput)
	}
	return data, nil
}

// args builds the yt-dlp command line for one call.
func (y *YtDlp) args(target Target, output string) []string {
	quality := "128K"
	args := []string{"--user-agent", y.userAgent()}

	if y.browser {
		quality = "192K"
		args = append(args, "--referer", "https://www.youtube.com/")
		for _, h := range browserHeaders {
			args = append(args, "--add-header", h)
		}
		args = append(args,
			"--geo-bypass",
			"--format", "bestaudio",
			"--extractor-args", "youtube:player_client=android",
		)
	} else {
		args = append(args, "--force-ipv4", "--retries", "3")
	}

	return append(args,
		"--no-playlist",
		"--socket-timeout", "30",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", quality,
		"--quiet",
		"--output", output,
		target.String(),
	)
}

// cleanup removes every artifact written under base, whatever its extension.
func (y *YtDlp) cleanup(base string) {
	matches, _ := y.fs.Glob(base + ".*")
	for _, m := range matches {
		_ = y.fs.Remove(m)
	}
}

// truncate shortens tool output for error messages.
func truncate(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxToolOutput {
		return s[:maxToolOutput] + "..."
	}
	return s
}
