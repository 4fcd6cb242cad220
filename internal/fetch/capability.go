package fetch

import (
	"context"

	"go.uber.org/zap"
)

// Strategy names, in priority order.
const (
	StrategyYtDlp        = "ytdlp"
	StrategyYtDlpBrowser = "ytdlp-browser"
	StrategyInvidious    = "invidious"
)

// Capabilities records which acquisition methods this host supports.
// Computed once at startup and never mutated.
type Capabilities struct {
	// YtDlp is true when the yt-dlp binary at YtDlpPath runs.
	YtDlp     bool
	YtDlpPath string

	// HTTP enables the Invidious API strategy.
	HTTP bool
}

// Probe checks the yt-dlp binary at ytdlpPath. An empty path disables it.
func Probe(ctx context.Context, p prober, ytdlpPath string) Capabilities {
	return Capabilities{
		YtDlp:     p.Available(ctx, ytdlpPath, "--version"),
		YtDlpPath: ytdlpPath,
		HTTP:      true,
	}
}

// buildConfig collects the options of NewStrategies.
type buildConfig struct {
	ytdlpPolicy     Policy
	invidiousPolicy Policy
	ytdlpOpts       []YtDlpOption
	invidiousOpts   []InvidiousOption
	logger          *zap.Logger
}

// BuildOption configures NewStrategies.
type BuildOption func(*buildConfig)

// WithPolicies overrides the yt-dlp and Invidious retry policies.
func WithPolicies(ytdlp, invidious Policy) BuildOption {
	return func(c *buildConfig) {
		c.ytdlpPolicy = ytdlp
		c.invidiousPolicy = invidious
	}
}

// WithYtDlpOptions passes options to both yt-dlp strategies.
func WithYtDlpOptions(opts ...YtDlpOption) BuildOption {
	return func(c *buildConfig) { c.ytdlpOpts = append(c.ytdlpOpts, opts...) }
}

// WithInvidiousOptions passes options to the Invidious strategy.
func WithInvidiousOptions(opts ...InvidiousOption) BuildOption {
	return func(c *buildConfig) { c.invidiousOpts = append(c.invidiousOpts, opts...) }
}

// WithStrategyLogger sets the logger for attempt diagnostics.
func WithStrategyLogger(l *zap.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewStrategies returns the strategies caps supports, in priority order:
// yt-dlp, yt-dlp with browser headers, then Invidious.
func NewStrategies(caps Capabilities, dec decoder, opts ...BuildOption) []Strategy {
	cfg := buildConfig{
		ytdlpPolicy:     DefaultYtDlpPolicy,
		invidiousPolicy: DefaultInvidiousPolicy,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var strategies []Strategy
	if caps.YtDlp {
		standard := NewYtDlp(caps.YtDlpPath, cfg.ytdlpOpts...)
		browser := NewYtDlp(caps.YtDlpPath, append([]YtDlpOption{WithBrowserHeaders()}, cfg.ytdlpOpts...)...)
		strategies = append(strategies,
			NewStrategy(StrategyYtDlp, cfg.ytdlpPolicy, standard, dec, cfg.logger),
			NewStrategy(StrategyYtDlpBrowser, cfg.ytdlpPolicy, browser, dec, cfg.logger),
		)
	}
	if caps.HTTP {
		strategies = append(strategies,
			NewStrategy(StrategyInvidious, cfg.invidiousPolicy, NewInvidious(cfg.invidiousOpts...), dec, cfg.logger))
	}
	return strategies
}
