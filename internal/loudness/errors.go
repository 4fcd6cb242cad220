package loudness

import "errors"

// ErrTooShort indicates the signal is shorter than one gating block.
var ErrTooShort = errors.New("signal shorter than one measurement block")

// ErrNoSignal indicates every block was removed by the loudness gates.
var ErrNoSignal = errors.New("no block above the loudness gate")
