// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

// ErrNoDocument is returned when a request has no target document.
var ErrNoDocument = errors.New("generate: no document")

// =============================================================================
// SERVICE
// =============================================================================

// Options configures a Service.
type Options struct {
	// Provider streams the generated markup. Required.
	Provider provider.Provider
	// Journal records finished generations. Nil disables recording.
	Journal *storage.Journal
	// Config supplies the system prompt, stream settings and journal
	// limits. Nil uses config.Global().
	Config *config.Config
	// Logger receives service events. Nil uses log.Default().
	Logger *log.Logger
}

// Service runs generation requests against documents. Requests for the
// same document are serialized: a new request cancels the one in flight
// and waits for it to settle before writing.
type Service struct {
	provider provider.Provider
	journal  *storage.Journal
	cfg      *config.Config
	log      *log.Logger

	mu     sync.Mutex
	coords map[*document.Document]*reconcile.Coordinator
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Provider == nil {
		return nil, errors.New("generate: provider is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Global()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		provider: opts.Provider,
		journal:  opts.Journal,
		cfg:      cfg,
		log:      logger,
		coords:   make(map[*document.Document]*reconcile.Coordinator),
	}, nil
}

// Provider returns the provider requests are sent to.
func (s *Service) Provider() provider.Provider { return s.provider }

func (s *Service) coordinator(doc *document.Document) *reconcile.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coords[doc]
	if !ok {
		c = reconcile.NewCoordinator(doc)
		s.coords[doc] = c
	}
	return c
}

// =============================================================================
// REQUESTS
// =============================================================================

// Request is one generation against a document.
type Request struct {
	// Document is written in place. Its selection decides what is
	// replaced: the whole document when empty, otherwise the selection.
	Document *document.Document
	// Name labels the document in the journal, usually its path.
	Name string
	// Prompt is the user's instruction.
	Prompt string
	// Callbacks observe the reconcile session.
	Callbacks reconcile.Callbacks
}

// Generate streams a response for req into its document and blocks until
// the session settles. The error covers requests that never started;
// outcomes of started requests, failures included, are in the Result.
func (s *Service) Generate(ctx context.Context, req Request) (reconcile.Result, error) {
	if req.Document == nil {
		return reconcile.Result{}, ErrNoDocument
	}
	if err := (provider.Request{Prompt: req.Prompt}).Validate(); err != nil {
		return reconcile.Result{}, err
	}

	coord := s.coordinator(req.Document)
	lease, err := coord.Begin(ctx)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("generate: waiting for previous request: %w", err)
	}
	defer lease.Release()

	selection, err := selectionText(req.Document)
	if err != nil {
		return reconcile.Result{}, err
	}
	mode := storage.ModeSelection
	if req.Document.Selection().Empty() {
		mode = storage.ModeWhole
	}

	s.log.Printf("GENERATE_START | doc=%s provider=%s model=%s gen=%d mode=%s prompt_len=%d",
		req.Name, s.provider.Name(), s.provider.Model(), lease.Generation(), mode, len(req.Prompt))

	started := time.Now()
	deltas := s.provider.Stream(lease.Context(), provider.Request{
		System:    s.cfg.Prompt.System,
		Selection: selection,
		Prompt:    req.Prompt,
	})

	session := reconcile.NewSession(lease.Surface(), s.sessionConfig(req.Callbacks))
	res := session.Run(lease.Context(), deltas)

	s.record(ctx, req, mode, res, started)
	return res, nil
}

// Cancel cancels the request in flight for doc, if any.
func (s *Service) Cancel(doc *document.Document) {
	s.mu.Lock()
	c := s.coords[doc]
	s.mu.Unlock()
	if c != nil {
		c.Cancel()
	}
}

// CancelAll cancels every request in flight.
func (s *Service) CancelAll() {
	s.mu.Lock()
	coords := make([]*reconcile.Coordinator, 0, len(s.coords))
	for _, c := range s.coords {
		coords = append(coords, c)
	}
	s.mu.Unlock()
	for _, c := range coords {
		c.Cancel()
	}
}

// Busy reports whether a request is in flight for doc.
func (s *Service) Busy(doc *document.Document) bool {
	s.mu.Lock()
	c := s.coords[doc]
	s.mu.Unlock()
	return c != nil && c.Busy()
}

func (s *Service) sessionConfig(cb reconcile.Callbacks) reconcile.SessionConfig {
	return reconcile.SessionConfig{
		Reconciler: reconcile.Config{
			Mode:   reconcile.ParseCheckpointMode(s.cfg.Stream.Checkpoint),
			Locale: s.cfg.Stream.Locale,
			Logger: s.log,
		},
		RenderDelay: time.Duration(s.cfg.Stream.RenderDelayMs) * time.Millisecond,
		Callbacks:   cb,
		Logger:      s.log,
	}
}

// selectionText is the text the prompt refers to: the selection, or the
// whole document when nothing is selected.
func selectionText(doc *document.Document) (string, error) {
	sel := doc.Selection()
	if sel.Empty() {
		return doc.Text(), nil
	}
	text, err := doc.TextBetween(sel.From, sel.To, "\n")
	if err != nil {
		return "", fmt.Errorf("generate: reading selection %s: %w", sel, err)
	}
	return text, nil
}

// =============================================================================
// JOURNAL
// =============================================================================

func (s *Service) record(ctx context.Context, req Request, mode storage.Mode, res reconcile.Result, started time.Time) {
	if s.journal == nil {
		return
	}
	// Canceled generations are recorded too.
	ctx = context.WithoutCancel(ctx)

	entry := storage.Entry{
		ID:          res.ID,
		Document:    req.Name,
		Provider:    s.provider.Name(),
		Model:       s.provider.Model(),
		Prompt:      req.Prompt,
		Mode:        mode,
		Start:       res.Start,
		End:         res.End,
		Status:      res.Status.String(),
		Checkpoints: res.Checkpoints,
		Deltas:      res.Deltas,
		Bytes:       res.Bytes,
		FinalHTML:   req.Document.HTML(),
		StartedAt:   started,
		FinishedAt:  started.Add(res.Duration),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if _, err := s.journal.Record(ctx, entry); err != nil {
		s.log.Printf("JOURNAL_ERROR | session=%s error=%v", res.ID, err)
		return
	}
	if keep := s.cfg.Storage.MaxEntries; keep > 0 {
		if n, err := s.journal.Prune(ctx, keep); err != nil {
			s.log.Printf("JOURNAL_ERROR | prune error=%v", err)
		} else if n > 0 {
			s.log.Printf("JOURNAL_PRUNE | removed=%d keep=%d", n, keep)
		}
	}
}
