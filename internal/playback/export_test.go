package playback

// Device exposes the output stream interface to external tests.
type Device = device
