package lang

import "errors"

// ErrInvalid indicates a language the speech engines cannot speak.
var ErrInvalid = errors.New("invalid language code")
