package tools

import "errors"

// ErrNotFound indicates a required tool is not installed and could not be downloaded.
var ErrNotFound = errors.New("tool not found")

// ErrUnsupportedPlatform indicates the OS/architecture has no pinned download.
var ErrUnsupportedPlatform = errors.New("unsupported platform for auto-download")

// ErrChecksumMismatch indicates a downloaded file's checksum verification failed.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrDownloadFailed indicates a file download could not be completed.
var ErrDownloadFailed = errors.New("download failed")
