// Package interrupt turns Ctrl+C during generation into a two-step choice.
// The first press cancels the background stage so the run finishes with
// the spoken guide alone; a second press inside the window aborts.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Decision is what the user chose after the first Ctrl+C.
type Decision int

const (
	// KeepGuide finishes the run without background music.
	KeepGuide Decision = iota
	// Abort discards the run.
	Abort
)

// String returns the string representation of the Decision.
func (d Decision) String() string {
	switch d {
	case KeepGuide:
		return "KeepGuide"
	case Abort:
		return "Abort"
	default:
		return fmt.Sprintf("Decision(%d)", d)
	}
}

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// Window is how long a second Ctrl+C counts as an abort.
const Window = 2 * time.Second

const pollInterval = 100 * time.Millisecond

const (
	skipMessage  = "\nSkipping background music. Press Ctrl+C again to abort."
	abortMessage = "\nAborted."
)

// Handler watches SIGINT/SIGTERM for one generation.
type Handler struct {
	mu          sync.Mutex
	first       time.Time
	interrupted bool
	aborted     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}

	exit   func(int)
	now    func() time.Time
	stderr io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	Signals <-chan os.Signal
	Exit    func(int)
	Now     func() time.Time
	// Stderr must tolerate concurrent writes.
	Stderr io.Writer
}

// NewHandler listens for SIGINT/SIGTERM. The returned context governs the
// background stage and is cancelled on the first interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return NewHandlerWithOptions(parent, Options{Signals: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancel: cancel,
		done:   make(chan struct{}),
		exit:   opts.Exit,
		now:    opts.Now,
		stderr: opts.Stderr,
	}
	if h.exit == nil {
		h.exit = os.Exit
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}

	if opts.Signals != nil {
		go h.listen(opts.Signals)
	}
	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handle() {
				return
			}
		}
	}
}

// handle processes one signal and reports whether listening should end.
func (h *Handler) handle() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return true
	}
	now := h.now()

	if !h.interrupted {
		h.interrupted = true
		h.first = now
		h.cancel()
		h.mu.Unlock()
		fmt.Fprintln(h.stderr, skipMessage)
		return false
	}

	if now.Sub(h.first) > Window {
		h.mu.Unlock()
		return false
	}
	h.aborted = true
	h.mu.Unlock()

	fmt.Fprintln(h.stderr, abortMessage)
	h.exit(ExitInterrupt)
	return true
}

// Interrupted reports whether Ctrl+C was pressed at least once.
func (h *Handler) Interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Decide returns KeepGuide immediately when no interrupt happened.
// Otherwise it waits out the rest of the window and returns Abort if a
// second Ctrl+C arrived in it.
func (h *Handler) Decide() Decision {
	h.mu.Lock()
	interrupted, aborted, first := h.interrupted, h.aborted, h.first
	h.mu.Unlock()

	switch {
	case !interrupted:
		return KeepGuide
	case aborted:
		return Abort
	}

	remaining := Window - h.now().Sub(first)
	if remaining <= 0 {
		return KeepGuide
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(remaining)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			return KeepGuide
		case <-ticker.C:
			h.mu.Lock()
			aborted := h.aborted
			h.mu.Unlock()
			if aborted {
				return Abort
			}
		}
	}
}

// Stop releases the signal subscription. Safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	h.cancel()
	close(h.done)
}
