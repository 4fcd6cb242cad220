package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-workout/internal/apierr"
)

// DefaultInstances are public Invidious API hosts, tried in order.
var DefaultInstances = []string{
	"https://invidious.protokolla.fi",
	"https://invidious.slipfox.xyz",
	"https://invidio.xamh.de",
}

// Invidious request limits.
const (
	invidiousAPITimeout      = 10 * time.Second
	invidiousDownloadTimeout = 30 * time.Second

	// maxMediaBytes caps a single audio stream download.
	maxMediaBytes = 256 << 20
)

// Invidious downloads the lowest-bitrate audio stream listed by an
// Invidious instance for a video.
type Invidious struct {
	instances       []string
	client          httpDoer
	apiTimeout      time.Duration
	downloadTimeout time.Duration
	maxBytes        int64
	userAgent       func() string
}

// InvidiousOption configures an Invidious downloader.
type InvidiousOption func(*Invidious)

// WithInstances replaces the instance list.
func WithInstances(instances ...string) InvidiousOption {
	return func(v *Invidious) {
		if len(instances) > 0 {
			v.instances = instances
		}
	}
}

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(c httpDoer) InvidiousOption {
	return func(v *Invidious) { v.client = c }
}

// WithTimeouts overrides the API and download timeouts.
func WithTimeouts(api, download time.Duration) InvidiousOption {
	return func(v *Invidious) {
		if api > 0 {
			v.apiTimeout = api
		}
		if download > 0 {
			v.downloadTimeout = download
		}
	}
}

// WithMaxMediaBytes caps the size of one downloaded stream.
func WithMaxMediaBytes(n int64) InvidiousOption {
	return func(v *Invidious) {
		if n > 0 {
			v.maxBytes = n
		}
	}
}

// NewInvidious creates an Invidious downloader over DefaultInstances.
func NewInvidious(opts ...InvidiousOption) *Invidious {
	v := &Invidious{
		instances:       DefaultInstances,
		client:          http.DefaultClient,
		apiTimeout:      invidiousAPITimeout,
		downloadTimeout: invidiousDownloadTimeout,
		maxBytes:        maxMediaBytes,
		userAgent:       randomUserAgent,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// adaptiveFormat is the subset of an Invidious adaptive format we read.
// Instances disagree on whether bitrate is a string or a number.
type adaptiveFormat struct {
	Type    string          `json:"type"`
	URL     string          `json:"url"`
	Bitrate json.RawMessage `json:"bitrate"`
}

func (f adaptiveFormat) bitrate() int64 {
	raw := strings.Trim(string(f.Bitrate), `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type videoResponse struct {
	AdaptiveFormats []adaptiveFormat `json:"adaptiveFormats"`
}

// Download tries each instance in order and returns the first audio stream.
func (v *Invidious) Download(ctx context.Context, target Target) ([]byte, error) {
	id, err := target.VideoID()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, instance := range v.instances {
		data, err := v.fromInstance(ctx, instance, id)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", instance, err))
	}
	return nil, errors.Join(errs...)
}

// fromInstance resolves the audio URL on one instance and downloads it.
func (v *Invidious) fromInstance(ctx context.Context, instance, id string) ([]byte, error) {
	endpoint := strings.TrimRight(instance, "/") + "/api/v1/videos/" + id
	body, err := v.get(ctx, endpoint, "application/json", v.apiTimeout)
	if err != nil {
		return nil, err
	}

	var video videoResponse
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, fmt.Errorf("parse video info: %w", err)
	}

	format, ok := lowestBitrateAudio(video.AdaptiveFormats)
	if !ok {
		return nil, ErrNoAudioFormat
	}
	return v.get(ctx, format.URL, "*/*", v.downloadTimeout)
}

// lowestBitrateAudio picks the cheapest audio/* format that has a URL.
func lowestBitrateAudio(formats []adaptiveFormat) (adaptiveFormat, bool) {
	var best adaptiveFormat
	found := false
	for _, f := range formats {
		if !strings.HasPrefix(f.Type, "audio/") || f.URL == "" {
			continue
		}
		if !found || f.bitrate() < best.bitrate() {
			best, found = f, true
		}
	}
	return best, found
}

// get performs a bounded GET and returns the body of a 2xx response.
func (v *Invidious) get(ctx context.Context, rawURL, accept string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", v.userAgent())
	req.Header.Set("Accept", accept)
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", rawURL, apierr.ErrTimeout)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := apierr.ClassifyStatus(resp.StatusCode, ""); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, v.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if n > v.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrMediaTooLarge, v.maxBytes)
	}
	return buf.Bytes(), nil
}
