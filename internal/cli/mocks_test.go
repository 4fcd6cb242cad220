package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/config"
	"github.com/alnah/go-workout/internal/interrupt"
	"github.com/alnah/go-workout/internal/storage"
	"github.com/alnah/go-workout/internal/tools"
	"github.com/alnah/go-workout/internal/workout"
)

// ---------------------------------------------------------------------------
// Mock ToolResolver
// ---------------------------------------------------------------------------

type mockToolResolver struct {
	ResolveFunc      func(ctx context.Context, tool tools.Tool) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string)

	mu       sync.Mutex
	resolved []string
}

func (m *mockToolResolver) Resolve(ctx context.Context, tool tools.Tool) (string, error) {
	m.mu.Lock()
	m.resolved = append(m.resolved, tool.Name)
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, tool)
	}
	return "/usr/bin/" + tool.Name, nil
}

func (m *mockToolResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	if m.CheckVersionFunc != nil {
		m.CheckVersionFunc(ctx, ffmpegPath)
	}
}

func (m *mockToolResolver) Resolved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock Generator
// ---------------------------------------------------------------------------

type buildGuideCall struct {
	Instructions []workout.Instruction
	Language     string
}

type mockGenerator struct {
	GenerateFunc      func(ctx context.Context, plan workout.Plan) audio.Buffer
	BuildGuideFunc    func(ctx context.Context, instructions []workout.Instruction, language string) audio.Buffer
	AddBackgroundFunc func(ctx context.Context, guide audio.Buffer, urls []string) audio.Buffer

	mu                 sync.Mutex
	buildGuideCalls    []buildGuideCall
	addBackgroundCalls [][]string
}

func (m *mockGenerator) Generate(ctx context.Context, plan workout.Plan) audio.Buffer {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, plan)
	}
	return m.AddBackground(ctx, m.BuildGuide(ctx, plan.Instructions, plan.Language), plan.Background)
}

func (m *mockGenerator) BuildGuide(ctx context.Context, instructions []workout.Instruction, language string) audio.Buffer {
	m.mu.Lock()
	m.buildGuideCalls = append(m.buildGuideCalls, buildGuideCall{instructions, language})
	m.mu.Unlock()

	if m.BuildGuideFunc != nil {
		return m.BuildGuideFunc(ctx, instructions, language)
	}
	total := 0
	for _, in := range instructions {
		total += in.DurationSeconds
	}
	return audio.Silence(audio.Default, int64(total)*1000)
}

func (m *mockGenerator) AddBackground(ctx context.Context, guide audio.Buffer, urls []string) audio.Buffer {
	m.mu.Lock()
	m.addBackgroundCalls = append(m.addBackgroundCalls, urls)
	m.mu.Unlock()

	if m.AddBackgroundFunc != nil {
		return m.AddBackgroundFunc(ctx, guide, urls)
	}
	return guide
}

func (m *mockGenerator) BuildGuideCalls() []buildGuideCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]buildGuideCall(nil), m.buildGuideCalls...)
}

func (m *mockGenerator) AddBackgroundCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.addBackgroundCalls...)
}

// ---------------------------------------------------------------------------
// Mock Codec
// ---------------------------------------------------------------------------

type mockCodec struct {
	EncodeFunc     func(ctx context.Context, buf audio.Buffer, w io.Writer) error
	DecodeFileFunc func(ctx context.Context, path string) (audio.Buffer, error)

	mu      sync.Mutex
	encoded []audio.Buffer
	decoded []string
}

func (m *mockCodec) Encode(ctx context.Context, buf audio.Buffer, w io.Writer) error {
	m.mu.Lock()
	m.encoded = append(m.encoded, buf)
	m.mu.Unlock()

	if m.EncodeFunc != nil {
		return m.EncodeFunc(ctx, buf, w)
	}
	_, err := w.Write([]byte("ID3fake-mp3"))
	return err
}

func (m *mockCodec) DecodeFile(ctx context.Context, path string) (audio.Buffer, error) {
	m.mu.Lock()
	m.decoded = append(m.decoded, path)
	m.mu.Unlock()

	if m.DecodeFileFunc != nil {
		return m.DecodeFileFunc(ctx, path)
	}
	return audio.Silence(audio.Default, 3000), nil
}

func (m *mockCodec) Encoded() []audio.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Buffer(nil), m.encoded...)
}

func (m *mockCodec) Decoded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.decoded...)
}

// ---------------------------------------------------------------------------
// Mock PipelineFactory
// ---------------------------------------------------------------------------

type mockPipelineFactory struct {
	NewPipelineFunc func(ctx context.Context, opts PipelineOptions) (*Pipeline, error)

	generator *mockGenerator
	codec     *mockCodec

	mu          sync.Mutex
	optionCalls []PipelineOptions
	codecCalls  []string
}

func newMockPipelineFactory() *mockPipelineFactory {
	return &mockPipelineFactory{
		generator: &mockGenerator{},
		codec:     &mockCodec{},
	}
}

func (m *mockPipelineFactory) NewPipeline(ctx context.Context, opts PipelineOptions) (*Pipeline, error) {
	m.mu.Lock()
	m.optionCalls = append(m.optionCalls, opts)
	m.mu.Unlock()

	if m.NewPipelineFunc != nil {
		return m.NewPipelineFunc(ctx, opts)
	}
	return &Pipeline{
		Generator:  m.generator,
		Codec:      m.codec,
		Strategies: []string{"ytdlp", "invidious"},
	}, nil
}

func (m *mockPipelineFactory) NewCodec(ffmpegPath string) Codec {
	m.mu.Lock()
	m.codecCalls = append(m.codecCalls, ffmpegPath)
	m.mu.Unlock()
	return m.codec
}

func (m *mockPipelineFactory) OptionCalls() []PipelineOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PipelineOptions(nil), m.optionCalls...)
}

// ---------------------------------------------------------------------------
// Mock UploaderFactory + Uploader
// ---------------------------------------------------------------------------

type uploadCall struct {
	Key  string
	Data []byte
}

type mockUploader struct {
	EnsureBucketFunc func(ctx context.Context) error
	UploadFunc       func(ctx context.Context, key string, data []byte) (string, error)

	mu      sync.Mutex
	uploads []uploadCall
}

func (m *mockUploader) EnsureBucket(ctx context.Context) error {
	if m.EnsureBucketFunc != nil {
		return m.EnsureBucketFunc(ctx)
	}
	return nil
}

func (m *mockUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	m.uploads = append(m.uploads, uploadCall{key, data})
	m.mu.Unlock()

	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, data)
	}
	return "s3://workouts/" + key, nil
}

func (m *mockUploader) Uploads() []uploadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uploadCall(nil), m.uploads...)
}

type mockUploaderFactory struct {
	NewUploaderFunc func(ctx context.Context, cfg storage.S3Config) (Uploader, error)

	uploader *mockUploader

	mu      sync.Mutex
	configs []storage.S3Config
}

func (m *mockUploaderFactory) NewUploader(ctx context.Context, cfg storage.S3Config) (Uploader, error) {
	m.mu.Lock()
	m.configs = append(m.configs, cfg)
	m.mu.Unlock()

	if m.NewUploaderFunc != nil {
		return m.NewUploaderFunc(ctx, cfg)
	}
	if m.uploader == nil {
		m.uploader = &mockUploader{}
	}
	return m.uploader, nil
}

func (m *mockUploaderFactory) Configs() []storage.S3Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.S3Config(nil), m.configs...)
}

// ---------------------------------------------------------------------------
// Mock PlayerFactory + Player
// ---------------------------------------------------------------------------

type mockPlayer struct {
	PlayFunc func(ctx context.Context, buf audio.Buffer) error

	progress func(played, total time.Duration)

	mu     sync.Mutex
	played []audio.Buffer
}

func (m *mockPlayer) Play(ctx context.Context, buf audio.Buffer) error {
	m.mu.Lock()
	m.played = append(m.played, buf)
	m.mu.Unlock()

	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, buf)
	}
	if m.progress != nil {
		m.progress(buf.Duration(), buf.Duration())
	}
	return nil
}

func (m *mockPlayer) Played() []audio.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Buffer(nil), m.played...)
}

type mockPlayerFactory struct {
	player *mockPlayer
}

func (m *mockPlayerFactory) NewPlayer(progress func(played, total time.Duration)) Player {
	if m.player == nil {
		m.player = &mockPlayer{}
	}
	m.player.progress = progress
	return m.player
}

// ---------------------------------------------------------------------------
// Fake InterruptHandler
// ---------------------------------------------------------------------------

type fakeInterrupt struct {
	interrupted bool
	decision    interrupt.Decision

	mu        sync.Mutex
	stopCalls int
}

func (f *fakeInterrupt) Interrupted() bool          { return f.interrupted }
func (f *fakeInterrupt) Decide() interrupt.Decision { return f.decision }

func (f *fakeInterrupt) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeInterrupt) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

// factory returns an InterruptFactory handing out f. A pre-interrupted
// fake also cancels the background context, like the real handler.
func (f *fakeInterrupt) factory() InterruptFactory {
	return func(ctx context.Context) (InterruptHandler, context.Context) {
		if !f.interrupted {
			return f, ctx
		}
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		return f, ctx
	}
}

// Compile-time interface verification.
var (
	_ ToolResolver     = (*mockToolResolver)(nil)
	_ ConfigLoader     = (*mockConfigLoader)(nil)
	_ Generator        = (*mockGenerator)(nil)
	_ Codec            = (*mockCodec)(nil)
	_ PipelineFactory  = (*mockPipelineFactory)(nil)
	_ UploaderFactory  = (*mockUploaderFactory)(nil)
	_ Uploader         = (*mockUploader)(nil)
	_ PlayerFactory    = (*mockPlayerFactory)(nil)
	_ Player           = (*mockPlayer)(nil)
	_ InterruptHandler = (*fakeInterrupt)(nil)
)
