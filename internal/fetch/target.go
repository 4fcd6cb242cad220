package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is a media page URL to acquire background audio from.
type Target string

// String returns the URL.
func (t Target) String() string { return string(t) }

// VideoID extracts the video id from a watch URL (the "v" query parameter)
// or a short link (the first path segment on youtu.be).
func (t Target) VideoID() (string, error) {
	u, err := url.Parse(strings.TrimSpace(string(t)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideoID, err)
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		id = u.Query().Get("v")
	}

	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoVideoID, t)
	}
	return id, nil
}

// Targets converts URLs to targets, skipping blank entries.
func Targets(urls []string) []Target {
	targets := make([]Target, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			targets = append(targets, Target(u))
		}
	}
	return targets
}
