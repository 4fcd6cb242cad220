package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alnah/go-workout/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	tools     *mockToolResolver
	config    *mockConfigLoader
	pipeline  *mockPipelineFactory
	uploader  *mockUploaderFactory
	player    *mockPlayerFactory
	interrupt *fakeInterrupt
	stdout    *syncBuffer
	stderr    *syncBuffer
}

func newTestMocks() *testMocks {
	return &testMocks{
		tools:     &mockToolResolver{},
		config:    &mockConfigLoader{},
		pipeline:  newMockPipelineFactory(),
		uploader:  &mockUploaderFactory{},
		player:    &mockPlayerFactory{},
		interrupt: &fakeInterrupt{},
		stdout:    &syncBuffer{},
		stderr:    &syncBuffer{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

type testEnvOptions struct {
	getenv func(string) string
	mocks  *testMocks
}

type testEnvOption func(*testEnvOptions)

func withGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withMocks(m *testMocks) testEnvOption {
	return func(o *testEnvOptions) { o.mocks = m }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		getenv: defaultTestEnv,
		mocks:  newTestMocks(),
	}
	for _, opt := range opts {
		opt(options)
	}
	m := options.mocks

	env := &Env{
		Stderr:           m.stderr,
		Stdout:           m.stdout,
		Getenv:           options.getenv,
		Now:              fixedTime(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)),
		Version:          "test",
		ToolResolver:     m.tools,
		ConfigLoader:     m.config,
		PipelineFactory:  m.pipeline,
		UploaderFactory:  m.uploader,
		PlayerFactory:    m.player,
		InterruptFactory: m.interrupt.factory(),
		Serve: func(context.Context, *fiber.App, string) error {
			return nil
		},
	}
	return env, m
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv provides an OpenAI key so no espeak lookup happens.
func defaultTestEnv(key string) string {
	if key == EnvOpenAIAPIKey {
		return "sk-test"
	}
	return ""
}

// writePlan writes content to a plan file in a fresh temp dir.
func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}
	return path
}

// configWithOutputDir returns a ConfigLoader that returns a config with the given output directory.
func configWithOutputDir(outputDir string) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{OutputDir: outputDir}, nil
		},
	}
}

// fastPlan is a two-step YAML plan with one background track.
const fastPlan = `instructions:
  - text: Jumping jacks
    duration_seconds: 10
  - text: Rest
    duration_seconds: 10
language: en
background_urls: https://www.youtube.com/watch?v=dQw4w9WgXcQ
`
