package plan

import "errors"

// ErrUnsupportedFormat indicates a plan file extension with no reader.
var ErrUnsupportedFormat = errors.New("unsupported plan format")

// ErrMalformed indicates a plan file that does not match its format.
var ErrMalformed = errors.New("malformed plan")
