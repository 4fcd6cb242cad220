package speech

import "errors"

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrEmptyText indicates there is nothing to speak.
var ErrEmptyText = errors.New("empty text")

// ErrEmptySpeech indicates an engine returned no audio.
var ErrEmptySpeech = errors.New("engine returned no audio")

// ErrNoEngine indicates the Synthesizer has no engine to try.
var ErrNoEngine = errors.New("no speech engine configured")
