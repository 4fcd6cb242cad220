package tools

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

const (
	// binaryExtWindows is the file extension for Windows executables.
	binaryExtWindows = ".exe"

	// downloadTimeout is the maximum time allowed for downloading a binary.
	// The ffmpeg build is ~20-30MB compressed.
	downloadTimeout = 10 * time.Minute

	// installDirPerm is the permission mode for the install directory.
	installDirPerm = 0750
)

// defaultHTTPClient is a dedicated HTTP client for downloads with explicit timeouts.
var defaultHTTPClient = &http.Client{
	Timeout: downloadTimeout,
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// Resolver finds external tools and downloads the ones that allow it.
type Resolver struct {
	reader       fileReader
	writer       fileWriter
	http         httpDoer
	env          envProvider
	stderr       io.Writer
	goos         string
	goarch       string
	platformInfo *binaryInfo // Override for testing; nil uses the tool's table
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileReader sets the file reader implementation.
func WithFileReader(r fileReader) ResolverOption {
	return func(res *Resolver) { res.reader = r }
}

// WithFileWriter sets the file writer implementation.
func WithFileWriter(w fileWriter) ResolverOption {
	return func(res *Resolver) { res.writer = w }
}

// WithHTTPClient sets the HTTP client implementation.
func WithHTTPClient(c httpDoer) ResolverOption {
	return func(res *Resolver) { res.http = c }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(res *Resolver) { res.env = e }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) ResolverOption {
	return func(res *Resolver) { res.stderr = w }
}

// WithPlatform sets the target platform (for testing cross-platform behavior).
func WithPlatform(goos, goarch string) ResolverOption {
	return func(res *Resolver) {
		res.goos = goos
		res.goarch = goarch
	}
}

// WithPlatformInfo overrides the download info of downloadable tools (for testing).
func WithPlatformInfo(info binaryInfo) ResolverOption {
	return func(res *Resolver) {
		res.platformInfo = &info
	}
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reader: osFileReader{},
		writer: osFileWriter{},
		http:   defaultHTTPClient,
		env:    osEnvProvider{},
		stderr: os.Stderr,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds tool using the following precedence:
//  1. The tool's environment variable (error if set but invalid)
//  2. ~/.go-workout/bin/<name> (installed by us, version must match)
//  3. System PATH
//  4. Auto-download, for downloadable tools only
func (r *Resolver) Resolve(ctx context.Context, tool Tool) (string, error) {
	if envPath := r.env.Getenv(tool.EnvVar); envPath != "" {
		if _, err := r.reader.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, tool.EnvVar, envPath)
		}
		return envPath, nil
	}

	installed, err := r.isInstalled(tool)
	if err != nil {
		return "", err
	}
	if installed {
		path, _ := r.installedPath(tool)
		return path, nil
	}

	if path, err := r.env.LookPath(tool.Name); err == nil {
		return path, nil
	}

	if !tool.Downloadable() && r.platformInfo == nil {
		return "", fmt.Errorf("%w: %s\n\n%s", ErrNotFound, tool.Name, tool.manualInstallInstructions(r.goos))
	}

	fmt.Fprintf(r.stderr, "%s not found, downloading...\n", tool.Name)
	if err := r.downloadAndInstall(ctx, tool); err != nil {
		return "", fmt.Errorf("%w: %s auto-download failed: %v\n\n%s",
			ErrNotFound, tool.Name, err, tool.manualInstallInstructions(r.goos))
	}

	path, _ := r.installedPath(tool)
	return path, nil
}

// installDir returns the directory where downloaded tools live.
func (r *Resolver) installDir() (string, error) {
	home, err := r.env.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".go-workout", "bin"), nil
}

// installedPath returns the path where tool would be installed.
func (r *Resolver) installedPath(tool Tool) (string, error) {
	dir, err := r.installDir()
	if err != nil {
		return "", err
	}
	name := tool.Name
	if r.goos == "windows" {
		name += binaryExtWindows
	}
	return filepath.Join(dir, name), nil
}

// versionPath returns the marker recording the installed version of tool.
func (r *Resolver) versionPath(tool Tool) (string, error) {
	dir, err := r.installDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "."+tool.Name+".version"), nil
}

// isInstalled checks if tool is installed at the expected location with the
// expected version. A stale or missing marker means reinstall.
func (r *Resolver) isInstalled(tool Tool) (bool, error) {
	path, err := r.installedPath(tool)
	if err != nil {
		return false, err
	}
	if _, err := r.reader.Stat(path); err != nil {
		return false, nil
	}
	if tool.Version == "" {
		return true, nil
	}

	marker, err := r.versionPath(tool)
	if err != nil {
		return false, err
	}
	data, err := r.reader.ReadFile(marker)
	if err != nil {
		return false, nil
	}
	return string(data) == tool.Version, nil
}

// downloadAndInstall downloads and installs tool.
func (r *Resolver) downloadAndInstall(ctx context.Context, tool Tool) error {
	var info binaryInfo
	if r.platformInfo != nil {
		info = *r.platformInfo
	} else {
		var ok bool
		info, ok = tool.platformInfo(r.goos, r.goarch)
		if !ok {
			return fmt.Errorf("%w: %s-%s (supported: %s)",
				ErrUnsupportedPlatform, r.goos, r.goarch, tool.supportedPlatforms())
		}
	}

	dir, err := r.installDir()
	if err != nil {
		return err
	}
	if err := r.writer.MkdirAll(dir, installDirPerm); err != nil {
		return fmt.Errorf("cannot create install directory %s: %w", dir, err)
	}

	destPath, err := r.installedPath(tool)
	if err != nil {
		return err
	}
	if err := r.downloadBinary(ctx, info, destPath); err != nil {
		_ = r.writer.Remove(destPath)
		return fmt.Errorf("download %s: %w", tool.Name, err)
	}

	marker, err := r.versionPath(tool)
	if err != nil {
		return err
	}
	if err := r.writer.WriteFile(marker, []byte(tool.Version), 0644); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}
	return nil
}

// downloadBinary downloads, verifies, and extracts a gzipped binary.
func (r *Resolver) downloadBinary(ctx context.Context, info binaryInfo, destPath string) error {
	tempFile, err := r.writer.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	tempFileClosed := false

	defer func() {
		if !tempFileClosed {
			_ = tempFile.Close()
		}
		_ = r.writer.Remove(tempPath)
	}()

	if err := r.downloadToFile(ctx, info.URL, tempFile); err != nil {
		return err
	}

	// Close to flush writes before checksum
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tempFileClosed = true

	if err := verifyChecksum(tempPath, info.SHA256); err != nil {
		return err
	}
	if err := decompressGzip(tempPath, destPath); err != nil {
		return err
	}

	if r.goos != "windows" {
		if err := r.writer.Chmod(destPath, 0755); err != nil {
			return fmt.Errorf("make binary executable: %w", err)
		}
	}
	return nil
}

// downloadToFile downloads a URL to an open file.
func (r *Resolver) downloadToFile(ctx context.Context, url string, dest *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrDownloadFailed, err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", ErrDownloadFailed, resp.StatusCode, url)
	}
	if _, err = io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Package-level facade
// ---------------------------------------------------------------------------

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

func getDefaultResolver() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver
}

// Resolve finds tool using the default resolver.
func Resolve(ctx context.Context, tool Tool) (string, error) {
	return getDefaultResolver().Resolve(ctx, tool)
}

// ---------------------------------------------------------------------------
// Pure helper functions
// These operate on internal temp files only and are tested directly with
// t.TempDir.
// ---------------------------------------------------------------------------

// verifyChecksum computes the SHA256 of a file and compares to expected.
func verifyChecksum(filePath, expectedSHA256 string) error {
	f, err := os.Open(filePath) // #nosec G304 -- filePath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open file for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expectedSHA256 {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expectedSHA256, actual)
	}
	return nil
}

// maxDecompressedSize bounds extraction against decompression bombs.
// The ffmpeg binary is ~80MB uncompressed.
const maxDecompressedSize = 200 * 1024 * 1024

// decompressGzip decompresses a gzip file to destPath through a temp file
// and an atomic rename.
func decompressGzip(gzPath, destPath string) error {
	gzFile, err := os.Open(gzPath) // #nosec G304 -- gzPath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open gzip file: %w", err)
	}
	defer func() { _ = gzFile.Close() }()

	gzReader, err := gzip.NewReader(gzFile)
	if err != nil {
		return fmt.Errorf("invalid gzip file: %w", err)
	}
	defer func() { _ = gzReader.Close() }()

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), ".extract-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		_ = tempFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(tempFile, io.LimitReader(gzReader, maxDecompressedSize))
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}
	if written >= maxDecompressedSize {
		return fmt.Errorf("decompression failed: file exceeds %d bytes limit", maxDecompressedSize)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}

	success = true
	return nil
}
