// Package plan reads workout plans from JSON, YAML and plain text files.
//
// Structured files hold an object:
//
//	{"instructions": ["Warm up", {"text": "Sprint", "duration_seconds": 30}],
//	 "language": "en",
//	 "background_urls": "https://youtu.be/..."}
//
// Text files hold one instruction per line as "text | seconds", with
// "# language: xx" and "# background: url" directives. Instructions without
// a duration last DefaultDurationSeconds.
package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-workout/internal/lang"
	"github.com/alnah/go-workout/internal/workout"
)

// DefaultDurationSeconds applies to instructions written without a duration.
const DefaultDurationSeconds = 30

// Format identifies a plan file syntax.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "txt"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%q (use .json, .yaml, .yml or .txt): %w", filepath.Ext(path), ErrUnsupportedFormat)
	}
}

type options struct {
	language string
}

// Option configures Read and Parse.
type Option func(*options)

// WithDefaultLanguage sets the language used when the plan names none.
// Empty keeps lang.Default.
func WithDefaultLanguage(code string) Option {
	return func(o *options) {
		if code != "" {
			o.language = code
		}
	}
}

// Read loads the plan at path, choosing the reader by extension.
func Read(path string, opts ...Option) (workout.Plan, error) {
	format, err := FormatFor(path)
	if err != nil {
		return workout.Plan{}, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified plan file
	if err != nil {
		return workout.Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data, format, opts...)
}

// Parse decodes data in format. The language defaults to lang.Default.
func Parse(data []byte, format Format, opts ...Option) (workout.Plan, error) {
	o := options{language: lang.Default}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		p   workout.Plan
		err error
	)
	switch format {
	case FormatJSON:
		p, err = parseJSON(data)
	case FormatYAML:
		p, err = parseYAML(data)
	case FormatText:
		p, err = parseText(string(data))
	default:
		return workout.Plan{}, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return workout.Plan{}, err
	}
	if p.Language == "" {
		p.Language = o.language
	}
	return p, nil
}
