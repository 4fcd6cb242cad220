package fetch

import "time"

// Exports for testing.

// Args exposes the yt-dlp command line built for one call.
func (y *YtDlp) Args(target Target, output string) []string {
	return y.args(target, output)
}

// StartDelay exposes the pacing delay for target index i.
func (e *Engine) StartDelay(i int) time.Duration {
	return e.startDelay(i)
}
