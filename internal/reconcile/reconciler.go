// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/jeranaias/inkwell/internal/document"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTerminalParse is returned by Finish when the final buffer could not
	// be parsed. The owned range holds the failure marker.
	ErrTerminalParse = errors.New("reconcile: final markup could not be parsed")

	// ErrReplaceFailed is returned when the surface rejected a replacement.
	// The reconciler has already aborted.
	ErrReplaceFailed = errors.New("reconcile: document replace failed")
)

// =============================================================================
// SURFACE
// =============================================================================

// Surface is the document the reconciler writes into.
// *document.Document satisfies it.
type Surface interface {
	Size() int
	Selection() document.Range
	Parse(markup string) (document.Slice, error)
	ReplaceRange(from, to int, s document.Slice) (int, error)
}

// Checkpoint describes one replacement issued by the reconciler.
type Checkpoint struct {
	// Seq numbers checkpoints from 1 within a request.
	Seq int
	// Replaced is the range that was overwritten.
	Replaced document.Range
	// End is the position right after the inserted content.
	End int
	// Bytes is the buffer length the content was parsed from.
	Bytes int
	// Final is set for the checkpoint forced by Finish.
	Final bool
}

// Config holds reconciler settings.
type Config struct {
	// Mode is the mid-stream checkpoint predicate.
	Mode CheckpointMode
	// Locale selects the failure marker language.
	Locale string
	// OnCheckpoint runs after every successful replacement.
	OnCheckpoint func(Checkpoint)
	// Logger receives CHECKPOINT and ABORT events. Nil uses log.Default().
	Logger *log.Logger
}

// DefaultConfig returns strict checkpoints and the English marker.
func DefaultConfig() Config {
	return Config{Mode: CheckpointStrict, Locale: "en"}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler turns a stream of markup fragments into whole-range
// replacements on a Surface. It owns one request at a time and resets
// after Finish or Abort, so it can be reused.
//
// A Reconciler is not safe for concurrent use; callers feed it from one
// goroutine. At most one reconciler may own a region of a document at a
// time, which Coordinator enforces.
type Reconciler struct {
	surface Surface
	cfg     Config
	log     *log.Logger

	buf    strings.Builder
	active bool
	whole  bool
	start  int
	end    int
	seq    int
}

// New creates a reconciler with DefaultConfig.
func New(surface Surface) *Reconciler {
	return NewWithConfig(surface, DefaultConfig())
}

// NewWithConfig creates a reconciler with the given settings.
func NewWithConfig(surface Surface, cfg Config) *Reconciler {
	if cfg.Mode == "" {
		cfg.Mode = CheckpointStrict
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{surface: surface, cfg: cfg, log: logger}
}

// Active reports whether a request is in progress.
func (r *Reconciler) Active() bool { return r.active }

// Buffer returns everything received for the current request.
func (r *Reconciler) Buffer() string { return r.buf.String() }

// Owned returns the range the next replacement would overwrite.
func (r *Reconciler) Owned() document.Range {
	if !r.active {
		return document.Range{}
	}
	from, to := r.target()
	return document.Range{From: from, To: to}
}

// WholeDocument reports whether the request owns the entire document.
func (r *Reconciler) WholeDocument() bool { return r.active && r.whole }

// begin records ownership from the selection on first use.
func (r *Reconciler) begin() {
	if r.active {
		return
	}
	sel := r.surface.Selection()
	r.active = true
	r.whole = sel.Empty()
	r.start, r.end = sel.From, sel.To
	r.seq = 0
}

func (r *Reconciler) reset() {
	r.buf.Reset()
	r.active = false
	r.whole = false
	r.start, r.end, r.seq = 0, 0, 0
}

// target computes the replace range against the live document size.
func (r *Reconciler) target() (int, int) {
	size := r.surface.Size()
	if r.whole {
		return 0, size
	}
	from := min(r.start, size)
	to := min(max(r.end, from), size)
	return from, to
}

// Ingest appends delta and renders the buffer if it is safe to. At most
// one replacement happens per call. A buffer that is not yet well-formed
// is not an error. A rejected replacement aborts the request and returns
// an error wrapping ErrReplaceFailed.
func (r *Reconciler) Ingest(delta string) error {
	r.begin()
	r.buf.WriteString(delta)

	buf := r.buf.String()
	if !IsCheckpoint(buf, r.cfg.Mode) {
		return nil
	}
	slice, err := r.surface.Parse(Clean(buf))
	if err != nil {
		r.log.Printf("CHECKPOINT_SKIPPED | bytes=%d error=%v", len(buf), err)
		return nil
	}
	if err := r.replace(slice, false); err != nil {
		abortErr := r.Abort(err)
		return errors.Join(fmt.Errorf("%w: %w", ErrReplaceFailed, err), abortErr)
	}
	return nil
}

// Finish renders the full buffer regardless of its shape and ends the
// request. A non-empty buffer always yields exactly one replacement: its
// content, or the failure marker when it cannot be parsed. An empty buffer
// changes nothing.
func (r *Reconciler) Finish() error {
	if !r.active || r.buf.Len() == 0 {
		r.reset()
		return nil
	}
	buf := r.buf.String()
	slice, err := r.surface.Parse(Clean(buf))
	if err != nil {
		abortErr := r.Abort(err)
		return errors.Join(fmt.Errorf("%w: %w", ErrTerminalParse, err), abortErr)
	}
	if err := r.replace(slice, true); err != nil {
		abortErr := r.Abort(err)
		return errors.Join(fmt.Errorf("%w: %w", ErrReplaceFailed, err), abortErr)
	}
	r.reset()
	return nil
}

// Abort overwrites the owned range with the failure marker without
// parsing the buffer, then ends the request.
func (r *Reconciler) Abort(reason error) error {
	r.begin()
	defer r.reset()

	r.log.Printf("ABORT | bytes=%d checkpoints=%d reason=%v", r.buf.Len(), r.seq, reason)
	marker := FailureMarker(r.cfg.Locale)
	slice, err := r.surface.Parse("<p>" + html.EscapeString(marker) + "</p>")
	if err != nil {
		return fmt.Errorf("reconcile: parse failure marker: %w", err)
	}
	from, to := r.target()
	if _, err := r.surface.ReplaceRange(from, to, slice); err != nil {
		return fmt.Errorf("%w: failure marker: %w", ErrReplaceFailed, err)
	}
	return nil
}

func (r *Reconciler) replace(slice document.Slice, final bool) error {
	from, to := r.target()
	end, err := r.surface.ReplaceRange(from, to, slice)
	if err != nil {
		return err
	}
	if !r.whole {
		r.end = end
	}
	r.seq++
	cp := Checkpoint{
		Seq:      r.seq,
		Replaced: document.Range{From: from, To: to},
		End:      end,
		Bytes:    r.buf.Len(),
		Final:    final,
	}
	r.log.Printf("CHECKPOINT | seq=%d from=%d to=%d end=%d bytes=%d final=%t", cp.Seq, from, to, end, cp.Bytes, final)
	if r.cfg.OnCheckpoint != nil {
		r.cfg.OnCheckpoint(cp)
	}
	return nil
}
