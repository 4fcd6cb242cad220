package fetch

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/alnah/go-workout/internal/audio"
)

// commandRunner runs an external command and returns its combined output.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// fileSystem abstracts the temp-file operations of the download tool strategies.
type fileSystem interface {
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	Glob(pattern string) ([]string, error)
}

// httpDoer executes HTTP requests.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// decoder turns compressed media into PCM. Satisfied by *audio.Codec.
type decoder interface {
	Decode(ctx context.Context, media []byte) (audio.Buffer, error)
}

// prober reports whether a binary runs. Satisfied by *tools.Executor.
type prober interface {
	Available(ctx context.Context, path string, args ...string) bool
}

// --- Default implementations using real OS functions ---

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the resolved yt-dlp path, args are built by YtDlp
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// osFileSystem implements fileSystem using the os package.
type osFileSystem struct{}

func (osFileSystem) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }
func (osFileSystem) Remove(name string) error              { return os.Remove(name) }
func (osFileSystem) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }

// Compile-time interface checks.
var (
	_ commandRunner = osCommandRunner{}
	_ fileSystem    = osFileSystem{}
	_ httpDoer      = (*http.Client)(nil)
	_ decoder       = (*audio.Codec)(nil)
)
