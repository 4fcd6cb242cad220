package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/fetch"
)

// Notes:
// - Black-box testing via package fetch_test; export_test.go exposes args and pacing.
// - No test runs yt-dlp or reaches the network: runners, file systems and
//   decoders are mocks, Invidious is an httptest.Server.
// - Policies use 1ms delays so retries stay fast while still sleeping.

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockRunner implements commandRunner.
type mockRunner struct {
	mu      sync.Mutex
	calls   [][]string
	RunFunc func(ctx context.Context, name string, args []string) ([]byte, error)
}

func (m *mockRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args)
	}
	return nil, nil
}

func (m *mockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockFS implements fileSystem over an in-memory map.
type mockFS struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
}

func newMockFS() *mockFS { return &mockFS{files: make(map[string][]byte)} }

func (m *mockFS) Write(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *mockFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	m.removed = append(m.removed, name)
	return nil
}

func (m *mockFS) Glob(pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.files {
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func (m *mockFS) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// mockDecoder implements decoder.
type mockDecoder struct {
	DecodeFunc func(ctx context.Context, media []byte) (audio.Buffer, error)
}

func (m mockDecoder) Decode(ctx context.Context, media []byte) (audio.Buffer, error) {
	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, media)
	}
	return audio.Silence(audio.Default, int64(len(media))), nil
}

// mockDownloader implements fetch.Downloader.
type mockDownloader struct {
	calls        atomic.Int32
	DownloadFunc func(ctx context.Context, target fetch.Target) ([]byte, error)
}

func (m *mockDownloader) Download(ctx context.Context, target fetch.Target) ([]byte, error) {
	m.calls.Add(1)
	return m.DownloadFunc(ctx, target)
}

// mockStrategy implements fetch.Strategy.
type mockStrategy struct {
	name        string
	calls       atomic.Int32
	AttemptFunc func(ctx context.Context, target fetch.Target) fetch.Result
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Attempt(ctx context.Context, target fetch.Target) fetch.Result {
	m.calls.Add(1)
	return m.AttemptFunc(ctx, target)
}

func failing(name string) *mockStrategy {
	return &mockStrategy{name: name, AttemptFunc: func(context.Context, fetch.Target) fetch.Result {
		return fetch.Result{Err: errors.New(name + " failed")}
	}}
}

func succeeding(name string, ms int64) *mockStrategy {
	return &mockStrategy{name: name, AttemptFunc: func(context.Context, fetch.Target) fetch.Result {
		return fetch.Result{Buffer: audio.Silence(audio.Default, ms), Media: []byte(name)}
	}}
}

// mockCache implements fetch.Cache.
type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = data
	return nil
}

// mockProber implements prober.
type mockProber struct{ available bool }

func (m mockProber) Available(_ context.Context, path string, _ ...string) bool {
	return path != "" && m.available
}

func fastPolicy(attempts int) fetch.Policy {
	return fetch.Policy{Attempts: attempts, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

// ---------------------------------------------------------------------------
// Target
// ---------------------------------------------------------------------------

func TestTarget_VideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  fetch.Target
		want    string
		wantErr bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch url extra params", "https://youtube.com/watch?list=x&v=abc123&t=10", "abc123", false},
		{"music subdomain", "https://music.youtube.com/watch?v=m1", "m1", false},
		{"short link", "https://youtu.be/xyz789", "xyz789", false},
		{"short link with query", "https://youtu.be/xyz789?t=42", "xyz789", false},
		{"watch url without v", "https://www.youtube.com/watch", "", true},
		{"other host", "https://example.com/watch?v=abc", "", true},
		{"not a url", "::", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.target.VideoID()
			if tt.wantErr {
				if !errors.Is(err, fetch.ErrNoVideoID) {
					t.Errorf("VideoID() error = %v, want ErrNoVideoID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VideoID() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("VideoID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTargets_SkipsBlank(t *testing.T) {
	t.Parallel()

	got := fetch.Targets([]string{" https://youtu.be/a ", "", "  ", "https://youtu.be/b"})
	want := []fetch.Target{"https://youtu.be/a", "https://youtu.be/b"}
	if !slices.Equal(got, want) {
		t.Errorf("Targets() = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// YtDlp
// ---------------------------------------------------------------------------

// outputPath returns the mp3 path yt-dlp would write for an --output template.
func outputPath(args []string) string {
	i := slices.Index(args, "--output")
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return strings.Replace(args[i+1], ".%(ext)s", ".mp3", 1)
}

func TestYtDlp_Download_Success(t *testing.T) {
	t.Parallel()

	files := newMockFS()
	runner := &mockRunner{RunFunc: func(_ context.Context, _ string, args []string) ([]byte, error) {
		out := outputPath(args)
		files.Write(out, []byte("mp3-bytes"))
		files.Write(strings.TrimSuffix(out, ".mp3")+".webm.part", []byte("partial"))
		return nil, nil
	}}

	y := fetch.NewYtDlp("/usr/bin/yt-dlp",
		fetch.WithCommandRunner(runner),
		fetch.WithFileSystem(files),
		fetch.WithTempDir("/tmp/work"),
	)

	got, err := y.Download(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if string(got) != "mp3-bytes" {
		t.Errorf("Download() = %q, want %q", got, "mp3-bytes")
	}
	if files.Len() != 0 {
		t.Errorf("Download() left %d artifacts behind", files.Len())
	}
}

func TestYtDlp_Download_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		run     func(files *mockFS) func(context.Context, string, []string) ([]byte, error)
		wantErr error
		wantMsg string
	}{
		{
			name: "command fails",
			run: func(*mockFS) func(context.Context, string, []string) ([]byte, error) {
				return func(context.Context, string, []string) ([]byte, error) {
					return []byte("ERROR: Video unavailable"), errors.New("exit status 1")
				}
			},
			wantMsg: "Video unavailable",
		},
		{
			name: "no output file",
			run: func(*mockFS) func(context.Context, string, []string) ([]byte, error) {
				return func(context.Context, string, []string) ([]byte, error) { return nil, nil }
			},
			wantErr: fetch.ErrNoOutput,
		},
		{
			name: "empty output file",
			run: func(files *mockFS) func(context.Context, string, []string) ([]byte, error) {
				return func(_ context.Context, _ string, args []string) ([]byte, error) {
					files.Write(outputPath(args), nil)
					return nil, nil
				}
			},
			wantErr: fetch.ErrNoOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			files := newMockFS()
			y := fetch.NewYtDlp("yt-dlp",
				fetch.WithCommandRunner(&mockRunner{RunFunc: tt.run(files)}),
				fetch.WithFileSystem(files),
			)

			_, err := y.Download(context.Background(), "https://youtu.be/abc")
			if err == nil {
				t.Fatal("Download() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Download() error = %q, want containing %q", err, tt.wantMsg)
			}
			if files.Len() != 0 {
				t.Errorf("Download() left %d artifacts behind", files.Len())
			}
		})
	}
}

func TestYtDlp_Download_UniqueTempPaths(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	y := fetch.NewYtDlp("yt-dlp", fetch.WithCommandRunner(runner), fetch.WithFileSystem(newMockFS()))

	for range 3 {
		_, _ = y.Download(context.Background(), "https://youtu.be/abc")
	}

	seen := make(map[string]bool)
	for _, args := range runner.calls {
		out := outputPath(args)
		if !strings.Contains(filepath.Base(out), "go-workout-") {
			t.Errorf("temp path %q lacks the go-workout- prefix", out)
		}
		if seen[out] {
			t.Errorf("temp path %q reused across calls", out)
		}
		seen[out] = true
	}
}

func TestYtDlp_Args(t *testing.T) {
	t.Parallel()

	ua := func() string { return "test-agent" }

	t.Run("standard", func(t *testing.T) {
		t.Parallel()

		args := fetch.NewYtDlp("yt-dlp", fetch.WithUserAgent(ua)).Args("https://youtu.be/abc", "/tmp/x.%(ext)s")
		for _, want := range []string{"--no-playlist", "--extract-audio", "--force-ipv4", "--quiet", "128K", "test-agent"} {
			if !slices.Contains(args, want) {
				t.Errorf("Args() missing %q in %v", want, args)
			}
		}
		if slices.Contains(args, "--geo-bypass") {
			t.Error("standard Args() must not mimic a browser")
		}
		if args[len(args)-1] != "https://youtu.be/abc" {
			t.Errorf("Args() last = %q, want the target URL", args[len(args)-1])
		}
	})

	t.Run("browser", func(t *testing.T) {
		t.Parallel()

		args := fetch.NewYtDlp("yt-dlp", fetch.WithUserAgent(ua), fetch.WithBrowserHeaders()).
			Args("https://youtu.be/abc", "/tmp/x.%(ext)s")
		for _, want := range []string{"--geo-bypass", "bestaudio", "youtube:player_client=android", "192K", "DNT:1", "https://www.youtube.com/"} {
			if !slices.Contains(args, want) {
				t.Errorf("Args() missing %q in %v", want, args)
			}
		}
	})
}

func TestYtDlp_Download_RealFileSystem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &mockRunner{RunFunc: func(_ context.Context, _ string, args []string) ([]byte, error) {
		out := outputPath(args)
		if err := os.WriteFile(out, []byte("audio"), 0o600); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(strings.TrimSuffix(out, ".mp3")+".m4a", []byte("source"), 0o600)
	}}

	y := fetch.NewYtDlp("yt-dlp", fetch.WithCommandRunner(runner), fetch.WithTempDir(dir))
	if _, err := y.Download(context.Background(), "https://youtu.be/abc"); err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir holds %d files after Download(), want 0", len(entries))
	}
}

// ---------------------------------------------------------------------------
// Invidious
// ---------------------------------------------------------------------------

func newInvidiousServer(t *testing.T, info string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/videos/abc":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, strings.ReplaceAll(info, "{{host}}", srv.URL))
		case "/audio/low":
			_, _ = w.Write([]byte("low-bitrate-audio"))
		case "/audio/high":
			_, _ = w.Write([]byte("high-bitrate-audio"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInvidious_Download_LowestBitrateAudio(t *testing.T) {
	t.Parallel()

	srv := newInvidiousServer(t, `{"adaptiveFormats":[
		{"type":"video/mp4","bitrate":"1000","url":"{{host}}/video"},
		{"type":"audio/webm; codecs=\"opus\"","bitrate":"160000","url":"{{host}}/audio/high"},
		{"type":"audio/mp4","bitrate":48000,"url":"{{host}}/audio/low"}
	]}`)

	v := fetch.NewInvidious(fetch.WithInstances(srv.URL), fetch.WithHTTPClient(srv.Client()))
	got, err := v.Download(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if string(got) != "low-bitrate-audio" {
		t.Errorf("Download() = %q, want the lowest bitrate stream", got)
	}
}

func TestInvidious_Download_FallsThroughInstances(t *testing.T) {
	t.Parallel()

	var brokenHits atomic.Int32
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		brokenHits.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	good := newInvidiousServer(t, `{"adaptiveFormats":[{"type":"audio/mp4","bitrate":"1","url":"{{host}}/audio/low"}]}`)

	v := fetch.NewInvidious(fetch.WithInstances(broken.URL, good.URL))
	got, err := v.Download(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if string(got) != "low-bitrate-audio" {
		t.Errorf("Download() = %q", got)
	}
	if brokenHits.Load() != 1 {
		t.Errorf("broken instance hits = %d, want 1", brokenHits.Load())
	}
}

func TestInvidious_Download_Errors(t *testing.T) {
	t.Parallel()

	noAudio := newInvidiousServer(t, `{"adaptiveFormats":[{"type":"video/mp4","bitrate":"1","url":"{{host}}/video"}]}`)

	tests := []struct {
		name    string
		target  fetch.Target
		wantErr error
	}{
		{"no audio format", "https://youtu.be/abc", fetch.ErrNoAudioFormat},
		{"no video id", "https://example.com/song", fetch.ErrNoVideoID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := fetch.NewInvidious(fetch.WithInstances(noAudio.URL))
			_, err := v.Download(context.Background(), tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvidious_Download_SizeCap(t *testing.T) {
	t.Parallel()

	srv := newInvidiousServer(t, `{"adaptiveFormats":[{"type":"audio/mp4","bitrate":"1","url":"{{host}}/audio/low"}]}`)
	size := int64(len("low-bitrate-audio"))

	tests := []struct {
		name    string
		max     int64
		wantErr error
	}{
		{"stream at the cap", size, nil},
		{"stream over the cap", size - 1, fetch.ErrMediaTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := fetch.NewInvidious(fetch.WithInstances(srv.URL), fetch.WithMaxMediaBytes(tt.max))
			got, err := v.Download(context.Background(), "https://youtu.be/abc")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Download() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && string(got) != "low-bitrate-audio" {
				t.Errorf("Download() = %q, want the full stream", got)
			}
			if tt.wantErr != nil && got != nil {
				t.Errorf("Download() = %q, want no truncated bytes", got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Strategy (retry + decode)
// ---------------------------------------------------------------------------

func TestStrategy_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	d := &mockDownloader{}
	d.DownloadFunc = func(context.Context, fetch.Target) ([]byte, error) {
		if d.calls.Load() < 3 {
			return nil, errors.New("transient")
		}
		return []byte("media"), nil
	}

	s := fetch.NewStrategy("test", fastPolicy(3), d, mockDecoder{}, nil)
	r := s.Attempt(context.Background(), "https://youtu.be/abc")
	if !r.OK() {
		t.Fatalf("Attempt() error = %v, want success", r.Err)
	}
	if d.calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", d.calls.Load())
	}
	if string(r.Media) != "media" {
		t.Errorf("Media = %q, want %q", r.Media, "media")
	}
	if r.Buffer.IsEmpty() {
		t.Error("Buffer is empty, want decoded audio")
	}
}

func TestStrategy_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		download  func(context.Context, fetch.Target) ([]byte, error)
		decode    func(context.Context, []byte) (audio.Buffer, error)
		wantCalls int32
	}{
		{
			name:      "attempts exhausted",
			download:  func(context.Context, fetch.Target) ([]byte, error) { return nil, errors.New("down") },
			wantCalls: 2,
		},
		{
			name:      "empty media is a failure",
			download:  func(context.Context, fetch.Target) ([]byte, error) { return nil, nil },
			wantCalls: 2,
		},
		{
			name:      "bad url is not retried",
			download:  func(context.Context, fetch.Target) ([]byte, error) { return nil, fetch.ErrNoVideoID },
			wantCalls: 1,
		},
		{
			name: "oversized media is not retried",
			download: func(context.Context, fetch.Target) ([]byte, error) {
				return nil, fmt.Errorf("%w: over 8 bytes", fetch.ErrMediaTooLarge)
			},
			wantCalls: 1,
		},
		{
			name:     "decode failure fails the strategy",
			download: func(context.Context, fetch.Target) ([]byte, error) { return []byte("junk"), nil },
			decode: func(context.Context, []byte) (audio.Buffer, error) {
				return audio.Buffer{}, audio.ErrDecodeFailed
			},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &mockDownloader{DownloadFunc: tt.download}
			s := fetch.NewStrategy("test", fastPolicy(2), d, mockDecoder{DecodeFunc: tt.decode}, nil)

			r := s.Attempt(context.Background(), "https://youtu.be/abc")
			if r.OK() {
				t.Fatal("Attempt() succeeded, want failure")
			}
			if !strings.HasPrefix(r.Err.Error(), "test: ") {
				t.Errorf("Attempt() error = %q, want strategy name prefix", r.Err)
			}
			if got := d.calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestStrategy_TimeoutBoundsEachCall(t *testing.T) {
	t.Parallel()

	d := &mockDownloader{DownloadFunc: func(ctx context.Context, _ fetch.Target) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	policy := fastPolicy(2)
	policy.Timeout = 5 * time.Millisecond

	r := fetch.NewStrategy("slow", policy, d, mockDecoder{}, nil).Attempt(context.Background(), "https://youtu.be/abc")
	if !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("Attempt() error = %v, want DeadlineExceeded", r.Err)
	}
	if d.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", d.calls.Load())
	}
}

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

func TestProbe(t *testing.T) {
	t.Parallel()

	caps := fetch.Probe(context.Background(), mockProber{available: true}, "/usr/bin/yt-dlp")
	if !caps.YtDlp || caps.YtDlpPath != "/usr/bin/yt-dlp" || !caps.HTTP {
		t.Errorf("Probe() = %+v", caps)
	}

	caps = fetch.Probe(context.Background(), mockProber{available: true}, "")
	if caps.YtDlp {
		t.Error("Probe() with empty path reports yt-dlp available")
	}
}

func TestNewStrategies_Order(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		caps fetch.Capabilities
		want []string
	}{
		{"everything", fetch.Capabilities{YtDlp: true, YtDlpPath: "yt-dlp", HTTP: true},
			[]string{fetch.StrategyYtDlp, fetch.StrategyYtDlpBrowser, fetch.StrategyInvidious}},
		{"http only", fetch.Capabilities{HTTP: true}, []string{fetch.StrategyInvidious}},
		{"yt-dlp only", fetch.Capabilities{YtDlp: true, YtDlpPath: "yt-dlp"},
			[]string{fetch.StrategyYtDlp, fetch.StrategyYtDlpBrowser}},
		{"nothing", fetch.Capabilities{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := fetch.NewEngine(fetch.NewStrategies(tt.caps, mockDecoder{}))
			if got := engine.Strategies(); !slices.Equal(got, tt.want) {
				t.Errorf("Strategies() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Engine.FetchAll
// ---------------------------------------------------------------------------

func TestEngine_FetchAll_AllStrategiesFail(t *testing.T) {
	t.Parallel()

	a, b := failing("a"), failing("b")
	engine := fetch.NewEngine([]fetch.Strategy{a, b}, fetch.WithPacing(0, 0))

	got := engine.FetchAll(context.Background(), fetch.Targets([]string{"https://youtu.be/1", "https://youtu.be/2"}))
	if len(got) != 0 {
		t.Errorf("FetchAll() returned %d tracks, want 0", len(got))
	}
	if a.calls.Load() != 2 || b.calls.Load() != 2 {
		t.Errorf("strategy calls = %d/%d, want 2/2", a.calls.Load(), b.calls.Load())
	}
}

func TestEngine_FetchAll_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	first, second, third := failing("first"), succeeding("second", 50), succeeding("third", 70)
	engine := fetch.NewEngine([]fetch.Strategy{first, second, third}, fetch.WithPacing(0, 0))

	got := engine.FetchAll(context.Background(), []fetch.Target{"https://youtu.be/1"})
	if len(got) != 1 {
		t.Fatalf("FetchAll() returned %d tracks, want 1", len(got))
	}
	if got[0].Len() != 50 {
		t.Errorf("track length = %d ms, want 50 (second strategy)", got[0].Len())
	}
	if third.calls.Load() != 0 {
		t.Error("strategy after the first success was called")
	}
}

func TestEngine_FetchAll_PartialSuccess(t *testing.T) {
	t.Parallel()

	s := &mockStrategy{name: "s", AttemptFunc: func(_ context.Context, target fetch.Target) fetch.Result {
		if strings.HasSuffix(target.String(), "bad") {
			return fetch.Result{Err: errors.New("gone")}
		}
		return fetch.Result{Buffer: audio.Silence(audio.Default, 10)}
	}}
	engine := fetch.NewEngine([]fetch.Strategy{s}, fetch.WithPacing(0, 0))

	got := engine.FetchAll(context.Background(),
		fetch.Targets([]string{"https://youtu.be/1", "https://youtu.be/bad", "https://youtu.be/3"}))
	if len(got) != 2 {
		t.Errorf("FetchAll() returned %d tracks, want 2", len(got))
	}
}

func TestEngine_FetchAll_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	s := &mockStrategy{name: "s", AttemptFunc: func(context.Context, fetch.Target) fetch.Result {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return fetch.Result{Buffer: audio.Silence(audio.Default, 1)}
	}}

	targets := make([]fetch.Target, 8)
	for i := range targets {
		targets[i] = fetch.Target(fmt.Sprintf("https://youtu.be/%d", i))
	}

	engine := fetch.NewEngine([]fetch.Strategy{s}, fetch.WithPacing(0, 0), fetch.WithWorkers(2))
	got := engine.FetchAll(context.Background(), targets)

	if len(got) != len(targets) {
		t.Errorf("FetchAll() returned %d tracks, want %d", len(got), len(targets))
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestEngine_FetchAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := succeeding("s", 10)
	engine := fetch.NewEngine([]fetch.Strategy{s}, fetch.WithPacing(time.Hour, time.Hour))

	got := engine.FetchAll(ctx, fetch.Targets([]string{"https://youtu.be/1", "https://youtu.be/2"}))
	if len(got) != 0 {
		t.Errorf("FetchAll() returned %d tracks after cancel, want 0", len(got))
	}
}

func TestEngine_FetchAll_RecoversPanics(t *testing.T) {
	t.Parallel()

	s := &mockStrategy{name: "boom", AttemptFunc: func(context.Context, fetch.Target) fetch.Result {
		panic("strategy bug")
	}}
	engine := fetch.NewEngine([]fetch.Strategy{s}, fetch.WithPacing(0, 0))

	if got := engine.FetchAll(context.Background(), []fetch.Target{"https://youtu.be/1"}); len(got) != 0 {
		t.Errorf("FetchAll() returned %d tracks, want 0", len(got))
	}
}

func TestEngine_FetchAll_Empty(t *testing.T) {
	t.Parallel()

	if got := fetch.NewEngine(nil).FetchAll(context.Background(), nil); len(got) != 0 {
		t.Errorf("FetchAll(nil) = %d tracks, want 0", len(got))
	}
}

// ---------------------------------------------------------------------------
// Engine cache
// ---------------------------------------------------------------------------

func TestEngine_Cache(t *testing.T) {
	t.Parallel()

	t.Run("hit skips strategies", func(t *testing.T) {
		t.Parallel()

		cache := newMockCache()
		cache.data["https://youtu.be/1"] = make([]byte, 25)
		s := succeeding("s", 10)
		engine := fetch.NewEngine([]fetch.Strategy{s}, fetch.WithPacing(0, 0), fetch.WithCache(cache, mockDecoder{}))

		got := engine.FetchAll(context.Background(), []fetch.Target{"https://youtu.be/1"})
		if len(got) != 1 || got[0].Len() != 25 {
			t.Fatalf("FetchAll() = %v, want the cached 25 ms track", got)
		}
		if s.calls.Load() != 0 {
			t.Error("strategy called despite cache hit")
		}
	})

	t.Run("success is stored", func(t *testing.T) {
		t.Parallel()

		cache := newMockCache()
		engine := fetch.NewEngine([]fetch.Strategy{succeeding("s", 10)}, fetch.WithPacing(0, 0), fetch.WithCache(cache, mockDecoder{}))

		engine.FetchAll(context.Background(), []fetch.Target{"https://youtu.be/1"})
		if string(cache.data["https://youtu.be/1"]) != "s" {
			t.Errorf("cached media = %q, want %q", cache.data["https://youtu.be/1"], "s")
		}
	})

	t.Run("cache errors are ignored", func(t *testing.T) {
		t.Parallel()

		cache := newMockCache()
		cache.getErr = errors.New("connection refused")
		cache.setErr = errors.New("connection refused")
		engine := fetch.NewEngine([]fetch.Strategy{succeeding("s", 10)}, fetch.WithPacing(0, 0), fetch.WithCache(cache, mockDecoder{}))

		if got := engine.FetchAll(context.Background(), []fetch.Target{"https://youtu.be/1"}); len(got) != 1 {
			t.Errorf("FetchAll() returned %d tracks, want 1", len(got))
		}
	})
}

// ---------------------------------------------------------------------------
// Pacing
// ---------------------------------------------------------------------------

func TestEngine_StartDelay(t *testing.T) {
	t.Parallel()

	engine := fetch.NewEngine(nil,
		fetch.WithPacing(time.Second, 3*time.Second),
		fetch.WithJitter(func() float64 { return 0.5 }),
	)

	tests := []struct {
		index int
		want  time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{3, 6 * time.Second},
	}
	for _, tt := range tests {
		if got := engine.StartDelay(tt.index); got != tt.want {
			t.Errorf("StartDelay(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}

	if got := fetch.NewEngine(nil, fetch.WithPacing(0, 0)).StartDelay(5); got != 0 {
		t.Errorf("StartDelay() with pacing disabled = %v, want 0", got)
	}
}
