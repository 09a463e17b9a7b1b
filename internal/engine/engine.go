// Package engine owns edit sessions and exposes them over RPC. Each session
// binds one slide's shadow model to one executor for the duration of an edit
// batch sequence; sessions are independent and may run concurrently.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SnowriterMYX/PPTAgent/internal/assets"
	"github.com/SnowriterMYX/PPTAgent/internal/diag"
	"github.com/SnowriterMYX/PPTAgent/internal/diff"
	"github.com/SnowriterMYX/PPTAgent/internal/document"
	"github.com/SnowriterMYX/PPTAgent/internal/executor"
	"github.com/SnowriterMYX/PPTAgent/internal/logging"
	"github.com/SnowriterMYX/PPTAgent/internal/settings"
	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

const (
	EngineVersion = "0.1.0"
	APIVersion    = "1"
)

type Notifier func(method string, params any)

type Engine struct {
	logger   *slog.Logger
	settings *settings.Settings
	diag     *diag.Store
	notifier Notifier

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session is one slide's edit session: the unit of ownership and of
// rollback. Discarding a session before save abandons every applied shadow
// mutation and queued closure at once.
type Session struct {
	ID    string
	Slide *slide.SlidePage
	Doc   *document.Document
	Exec  *executor.Executor

	before string
	saved  bool

	// corrections already persisted to the diagnostics store, keyed by
	// (requested, max_available)
	recorded map[[2]int]int
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithSettings(s *settings.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithDiagnostics attaches the sqlite diagnostics store. Without it, batch
// outcomes are only kept in the per-session history.
func WithDiagnostics(store *diag.Store) Option {
	return func(e *Engine) { e.diag = store }
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   logging.Nop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.settings == nil {
		e.settings = settings.Default()
	}
	return e, nil
}

func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

func (e *Engine) notify(method string, params any) {
	if e.notifier != nil {
		e.notifier(method, params)
	}
}

func (e *Engine) newExecutor() *executor.Executor {
	return executor.New(
		executor.WithLogger(e.logger),
		executor.WithAssets(assets.NewStore(e.settings.AssetRoot)),
		executor.WithRetryTimes(e.settings.RetryTimes),
		executor.WithMaxBatchLines(e.settings.MaxBatchLines),
	)
}

// OpenSession builds a session around an already-parsed slide.
func (e *Engine) OpenSession(sl *slide.SlidePage, doc *document.Document) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Slide:  sl,
		Doc:    doc,
		Exec:   e.newExecutor(),
		before: sl.PlainText(),
	}
	e.mu.Lock()
	e.sessions[s.ID] = s
	e.mu.Unlock()
	e.logger.Debug("engine.session_opened", "session", s.ID, "slide", sl.SlideIdx)
	return s
}

func (e *Engine) session(id string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

// ExecuteResult is the outcome of one batch: either ok with a review of the
// shadow-state change, or the annotated failure for the retry round.
type ExecuteResult struct {
	OK      bool              `json:"ok"`
	Failure *executor.Failure `json:"failure,omitempty"`
	Review  *diff.Review      `json:"review,omitempty"`
	Report  executor.Report   `json:"report"`
}

// Execute runs one batch inside the session and records the outcome in the
// diagnostics store.
func (e *Engine) Execute(ctx context.Context, s *Session, actions string, foundCode bool) (*ExecuteResult, error) {
	if s.saved {
		return nil, fmt.Errorf("session %s already saved", s.ID)
	}
	failure := s.Exec.ExecuteActions(actions, s.Slide, s.Doc, foundCode)
	report := s.Exec.Report()

	if e.diag != nil {
		batchID := lastBatchID(s.Exec)
		if err := e.diag.RecordBatch(ctx, batchID, s.ID, s.Slide.SlideIdx, failure); err != nil {
			e.logger.Warn("engine.diag_record_failed", "session", s.ID, "error", err.Error())
		} else if err := e.diag.RecordCorrections(ctx, batchID, newMismatches(s, report)); err != nil {
			e.logger.Warn("engine.diag_record_failed", "session", s.ID, "error", err.Error())
		}
	}

	res := &ExecuteResult{OK: failure == nil, Failure: failure, Report: report}
	if failure == nil {
		review := diff.SlideReview(s.before, s.Slide.PlainText())
		res.Review = &review
	}
	return res, nil
}

// lastBatchID reads the id the executor assigned to the most recent batch.
func lastBatchID(exec *executor.Executor) string {
	batches := exec.History().Batches
	if len(batches) == 0 {
		return uuid.NewString()
	}
	return batches[len(batches)-1].BatchID
}

// newMismatches returns the correction patterns not yet persisted for the
// session.
func newMismatches(s *Session, report executor.Report) []executor.Mismatch {
	if s.recorded == nil {
		s.recorded = map[[2]int]int{}
	}
	var out []executor.Mismatch
	for _, m := range report.Mismatches {
		key := [2]int{m.Requested, m.MaxAvailable}
		if delta := m.Count - s.recorded[key]; delta > 0 {
			out = append(out, executor.Mismatch{Requested: m.Requested, MaxAvailable: m.MaxAvailable, Count: delta})
			s.recorded[key] = m.Count
		}
	}
	return out
}

// Save drains every queued closure into an ordered operation plan for the
// external save boundary and closes the session to further edits.
func (e *Engine) Save(s *Session) ([]slide.PlannedOp, error) {
	if s.saved {
		return nil, fmt.Errorf("session %s already saved", s.ID)
	}
	plan := s.Slide.TakeDrainPlan()
	s.saved = true
	e.logger.Debug("engine.session_saved", "session", s.ID, "ops", len(plan))
	e.notify("SessionSaved", map[string]any{"session_id": s.ID, "ops": len(plan)})
	return plan, nil
}

// Discard drops the session: shadow mutations and queued closures are
// abandoned as a unit.
func (e *Engine) Discard(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[id]; !ok {
		return false
	}
	delete(e.sessions, id)
	return true
}

// SlideBatch pairs one slide with the actions to run against it.
type SlideBatch struct {
	Slide     *slide.SlidePage
	Doc       *document.Document
	Actions   string
	FoundCode bool
}

// EditResult is the per-slide outcome of EditAll.
type EditResult struct {
	SlideIdx int
	Failure  *executor.Failure
	Review   diff.Review
	Plan     []slide.PlannedOp
}

// EditAll edits independent slides concurrently, one session per slide,
// bounded by the configured parallelism. A failed slide yields its failure
// and no plan; other slides are unaffected.
func (e *Engine) EditAll(ctx context.Context, batches []SlideBatch) ([]EditResult, error) {
	results := make([]EditResult, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	limit := e.settings.MaxParallelSlides
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := e.OpenSession(batch.Slide, batch.Doc)
			defer e.Discard(s.ID)
			res, err := e.Execute(ctx, s, batch.Actions, batch.FoundCode)
			if err != nil {
				return err
			}
			out := EditResult{SlideIdx: batch.Slide.SlideIdx, Failure: res.Failure}
			if res.Failure == nil {
				out.Review = *res.Review
				plan, err := e.Save(s)
				if err != nil {
					return err
				}
				out.Plan = plan
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
