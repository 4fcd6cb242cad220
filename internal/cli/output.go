package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultOutputName derives the MP3 name from the plan file.
// Example: "legs/monday.yaml" -> "monday.mp3"
func defaultOutputName(planPath string) string {
	base := filepath.Base(planPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		name = "workout_guide"
	}
	return name + ".mp3"
}

// ensureMP3Extension appends .mp3 when path has no extension.
func ensureMP3Extension(path string) string {
	if filepath.Ext(path) == "" {
		return path + ".mp3"
	}
	return path
}

// writeFileAtomic writes data to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path string, data []byte) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
