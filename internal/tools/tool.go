// Package tools locates the external programs the generator shells out to:
// ffmpeg for decoding and encoding, yt-dlp for media acquisition and espeak
// for offline speech. Only ffmpeg is downloaded automatically when missing.
package tools

import (
	"fmt"
	"strings"
)

// Tool describes an external binary and how to find it.
type Tool struct {
	// Name is the executable base name looked up in PATH.
	Name string

	// EnvVar overrides resolution with an explicit path when set.
	EnvVar string

	// Version is written next to a downloaded binary to detect upgrades.
	// Empty when the tool is never downloaded.
	Version string

	// platforms maps "goos-goarch" to a pinned download. Nil disables auto-download.
	platforms map[string]binaryInfo

	// install maps goos to manual installation commands.
	install map[string]string
}

// binaryInfo contains download metadata for a tool.
type binaryInfo struct {
	URL    string // Download URL (gzipped binary)
	SHA256 string // Expected checksum of the gzipped file
}

// Downloadable reports whether the tool can be installed automatically.
func (t Tool) Downloadable() bool {
	return len(t.platforms) > 0
}

// platformInfo returns the pinned download for a platform.
func (t Tool) platformInfo(goos, goarch string) (binaryInfo, bool) {
	info, ok := t.platforms[goos+"-"+goarch]
	return info, ok
}

// supportedPlatforms lists platforms with a pinned download, for error messages.
func (t Tool) supportedPlatforms() string {
	names := make([]string, 0, len(t.platforms))
	for _, p := range []string{"darwin-arm64", "darwin-amd64", "linux-amd64", "windows-amd64"} {
		if _, ok := t.platforms[p]; ok {
			names = append(names, p)
		}
	}
	return strings.Join(names, ", ")
}

// manualInstallInstructions returns platform-specific instructions.
func (t Tool) manualInstallInstructions(goos string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To install %s manually:\n", t.Name)
	if cmds, ok := t.install[goos]; ok {
		b.WriteString(cmds)
	} else {
		b.WriteString(t.install["default"])
	}
	exe := t.Name
	if goos == "windows" {
		exe += binaryExtWindows
	}
	fmt.Fprintf(&b, "\n\nOr set %s environment variable to your %s binary.", t.EnvVar, exe)
	return b.String()
}

// ffmpegDownloadBaseURL is the base URL for eugeneware/ffmpeg-static releases.
const ffmpegDownloadBaseURL = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.1.1"

// FFmpeg decodes source media and encodes the final MP3.
// Binaries from github.com/eugeneware/ffmpeg-static release b6.1.1.
var FFmpeg = Tool{
	Name:    "ffmpeg",
	EnvVar:  "FFMPEG_PATH",
	Version: "6.1.1",
	platforms: map[string]binaryInfo{
		"darwin-arm64": {
			URL:    ffmpegDownloadBaseURL + "/ffmpeg-darwin-arm64.gz",
			SHA256: "8923876afa8db5585022d7860ec7e589af192f441c56793971276d450ed3bbfa",
		},
		"darwin-amd64": {
			URL:    ffmpegDownloadBaseURL + "/ffmpeg-darwin-x64.gz",
			SHA256: "5d8fb6f280c428d0e82cd5ee68215f0734d64f88e37dcc9e082f818c9e5025f0",
		},
		"linux-amd64": {
			URL:    ffmpegDownloadBaseURL + "/ffmpeg-linux-x64.gz",
			SHA256: "bfe8a8fc511530457b528c48d77b5737527b504a3797a9bc4866aeca69c2dffa",
		},
		"windows-amd64": {
			URL:    ffmpegDownloadBaseURL + "/ffmpeg-win32-x64.gz",
			SHA256: "8883a3dffbd0a16cf4ef95206ea05283f78908dbfb118f73c83f4951dcc06d77",
		},
	},
	install: map[string]string{
		"darwin":  "  brew install ffmpeg",
		"linux":   "  Ubuntu/Debian: sudo apt install ffmpeg\n  Fedora:        sudo dnf install ffmpeg\n  Arch:          sudo pacman -S ffmpeg",
		"windows": "  winget install ffmpeg",
		"default": "  download from https://ffmpeg.org/download.html",
	},
}

// YtDlp downloads audio from media page URLs.
var YtDlp = Tool{
	Name:   "yt-dlp",
	EnvVar: "YTDLP_PATH",
	install: map[string]string{
		"darwin":  "  brew install yt-dlp",
		"linux":   "  python3 -m pip install -U yt-dlp",
		"windows": "  winget install yt-dlp",
		"default": "  download from https://github.com/yt-dlp/yt-dlp/releases",
	},
}

// Espeak synthesizes speech offline when no speech API key is configured.
var Espeak = Tool{
	Name:   "espeak",
	EnvVar: "ESPEAK_PATH",
	install: map[string]string{
		"darwin":  "  brew install espeak",
		"linux":   "  Ubuntu/Debian: sudo apt install espeak\n  Fedora:        sudo dnf install espeak",
		"windows": "  download from https://github.com/espeak-ng/espeak-ng/releases",
		"default": "  download from https://github.com/espeak-ng/espeak-ng",
	},
}
