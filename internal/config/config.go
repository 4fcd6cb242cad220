// Package config reads and writes the user configuration file
// (~/.config/go-workout/config, key=value lines) with WORKOUT_* environment
// variables as fallbacks.
package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alnah/go-workout/internal/lang"
)

// Config keys.
const (
	KeyOutputDir  = "output-dir"
	KeyLanguage   = "language"
	KeyCacheURL   = "cache-url"
	KeyS3Bucket   = "s3-bucket"
	KeyS3Endpoint = "s3-endpoint"
	KeyS3Region   = "s3-region"
)

// Environment variable fallbacks.
const (
	EnvOutputDir  = "WORKOUT_OUTPUT_DIR"
	EnvLanguage   = "WORKOUT_LANGUAGE"
	EnvCacheURL   = "WORKOUT_CACHE_URL"
	EnvS3Bucket   = "WORKOUT_S3_BUCKET"
	EnvS3Endpoint = "WORKOUT_S3_ENDPOINT"
	EnvS3Region   = "WORKOUT_S3_REGION"
)

// Key describes one setting.
type Key struct {
	Name string
	Env  string
	Help string
}

// Keys lists every supported setting in display order.
var Keys = []Key{
	{KeyOutputDir, EnvOutputDir, "default directory for generated MP3 files"},
	{KeyLanguage, EnvLanguage, "default instruction language (ISO 639-1)"},
	{KeyCacheURL, EnvCacheURL, "redis URL caching downloaded background tracks"},
	{KeyS3Bucket, EnvS3Bucket, "bucket receiving --upload output"},
	{KeyS3Endpoint, EnvS3Endpoint, "S3-compatible endpoint URL (MinIO, SeaweedFS)"},
	{KeyS3Region, EnvS3Region, "S3 region"},
}

// Config holds the resolved settings.
type Config struct {
	OutputDir  string
	Language   string
	CacheURL   string
	S3Bucket   string
	S3Endpoint string
	S3Region   string
}

// LookupKey returns the Key named name.
func LookupKey(name string) (Key, bool) {
	i := slices.IndexFunc(Keys, func(k Key) bool { return k.Name == name })
	if i < 0 {
		return Key{}, false
	}
	return Keys[i], true
}

// KeyNames returns the supported key names, comma-separated.
func KeyNames() string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-workout.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-workout"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-workout"), nil
}

func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file, then fills unset keys from the
// environment. A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	values, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		values = map[string]string{}
	}

	get := func(key, env string) string {
		if v := values[key]; v != "" {
			return v
		}
		return os.Getenv(env)
	}
	cfg.OutputDir = get(KeyOutputDir, EnvOutputDir)
	cfg.Language = get(KeyLanguage, EnvLanguage)
	cfg.CacheURL = get(KeyCacheURL, EnvCacheURL)
	cfg.S3Bucket = get(KeyS3Bucket, EnvS3Bucket)
	cfg.S3Endpoint = get(KeyS3Endpoint, EnvS3Endpoint)
	cfg.S3Region = get(KeyS3Region, EnvS3Region)

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return data, nil
}

// Save writes a single key=value to the config file, creating it if needed.
// Existing pairs are kept; comments are not.
func Save(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes pairs sorted by key so the file diffs cleanly.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	w := bufio.NewWriter(f)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s\n", k, data[k])
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all values stored in the config file.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	return data, nil
}

// ValidateValue checks value for key before it is saved.
func ValidateValue(key, value string) error {
	switch key {
	case KeyOutputDir:
		return EnsureOutputDir(value)
	case KeyLanguage:
		if value == "" {
			return fmt.Errorf("language cannot be empty")
		}
		return lang.Validate(value)
	case KeyCacheURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") || u.Host == "" {
			return fmt.Errorf("cache-url must look like redis://host:6379/0, got %q", value)
		}
	case KeyS3Endpoint:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("s3-endpoint must be an http(s) URL, got %q", value)
		}
	case KeyS3Bucket, KeyS3Region:
		if value == "" {
			return fmt.Errorf("%s cannot be empty", key)
		}
	default:
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, KeyNames())
	}
	return nil
}

// ResolveOutputPath resolves the final output path:
//  1. an absolute output is used as-is
//  2. a relative output is joined to outputDir when set
//  3. an empty output becomes defaultName in outputDir (or cwd)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	if output == "" {
		output = defaultName
	}
	if outputDir != "" {
		return filepath.Clean(filepath.Join(ExpandPath(outputDir), output))
	}
	return filepath.Clean(output)
}

// EnsureOutputDir checks that d is a writable directory, creating it if missing.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	probe, err := os.CreateTemp(d, ".go-workout-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
