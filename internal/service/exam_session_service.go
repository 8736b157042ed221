package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/engine"
	"github.com/stemsi/qiyas-mock/internal/model"
)

var (
	ErrNoActiveSession = errors.New("no active exam session")
	ErrResultsNotReady = errors.New("attempt has not finished yet")
	ErrAttemptNotFound = errors.New("attempt not found")
)

const persistTimeout = 10 * time.Second

// AttemptQueue hands finished attempts to the archive worker.
type AttemptQueue interface {
	Enqueue(ctx context.Context, rec model.AttemptRecord) error
}

// ReviewItem is one question of a finished attempt with the learner's choice.
type ReviewItem struct {
	model.QuestionSnapshot
	Selected *int `json:"selected,omitempty"`
	Correct  bool `json:"correct"`
}

// SessionResults is the results screen of a finished attempt.
type SessionResults struct {
	AttemptID        string           `json:"attempt_id"`
	TemplateID       string           `json:"template_id"`
	TemplateName     string           `json:"template_name"`
	Aggregate        engine.Aggregate `json:"aggregate"`
	TimeTakenSeconds int              `json:"time_taken_seconds"`
	PrayerBreakUsed  bool             `json:"prayer_break_used"`
	ReviewHidden     bool             `json:"review_hidden"`
	Review           []ReviewItem     `json:"review,omitempty"`
	PersistError     string           `json:"persist_error,omitempty"`
}

// AttemptDetail is a past attempt as returned from history.
type AttemptDetail struct {
	model.AttemptSummary
	Aggregate       engine.Aggregate `json:"aggregate"`
	PrayerBreakUsed bool             `json:"prayer_break_used"`
	ReviewHidden    bool             `json:"review_hidden"`
	Review          []ReviewItem     `json:"review,omitempty"`
}

// liveSession is the in-memory attempt of one user.
type liveSession struct {
	runner *engine.Runner

	mu         sync.Mutex
	persistErr error
}

func (ls *liveSession) setPersistErr(err error) {
	ls.mu.Lock()
	ls.persistErr = err
	ls.mu.Unlock()
}

func (ls *liveSession) persistError() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.persistErr
}

// ExamSessionService owns the live exam sessions, one per user.
type ExamSessionService struct {
	cfg       *config.Config
	catalog   *CatalogService
	gate      EntitlementChecker
	supplier  engine.QuestionSupplier
	recorder  *engine.Recorder
	archive   AttemptQueue
	newTicker engine.TickerFunc
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[int]*liveSession
}

// NewExamSessionService creates a new ExamSessionService. newTicker may be nil.
func NewExamSessionService(
	cfg *config.Config,
	catalog *CatalogService,
	gate EntitlementChecker,
	supplier engine.QuestionSupplier,
	recorder *engine.Recorder,
	archive AttemptQueue,
	newTicker engine.TickerFunc,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		cfg:       cfg,
		catalog:   catalog,
		gate:      gate,
		supplier:  supplier,
		recorder:  recorder,
		archive:   archive,
		newTicker: newTicker,
		log:       log.With().Str("component", "exam_session_service").Logger(),
		sessions:  make(map[int]*liveSession),
	}
}

func (s *ExamSessionService) session(userID int) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return ls, nil
}

func (s *ExamSessionService) newSession(userID int) *liveSession {
	m := engine.NewMachine(engine.MachineConfig{
		UserID:      userID,
		PrayerBreak: s.cfg.PrayerBreak,
		Log:         s.log.With().Int("user_id", userID).Logger(),
	})
	ls := &liveSession{runner: engine.NewRunner(m, s.newTicker, s.log)}
	ls.runner.OnResults(func(res *engine.Result) { s.record(userID, ls, res) })
	return ls
}

// record runs on the session loop once the attempt reached results.
func (s *ExamSessionService) record(userID int, ls *liveSession, res *engine.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.recorder.Persist(ctx, userID, res.Record); err != nil {
		ls.setPersistErr(err)
		s.log.Warn().Err(err).Int("user_id", userID).Str("attempt_id", res.Record.ID).Msg("Attempt not saved to history")
		return
	}
	if s.archive == nil {
		return
	}
	if err := s.archive.Enqueue(ctx, res.Record); err != nil {
		s.log.Error().Err(err).Str("attempt_id", res.Record.ID).Msg("Failed to enqueue attempt for archive")
	}
}

// Select picks a template for the user's session, creating the session when
// needed. A finished attempt is replaced by the new one.
func (s *ExamSessionService) Select(ctx context.Context, userID int, templateID string) (engine.Snapshot, error) {
	tpl, err := s.catalog.Get(templateID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	entitled := true
	if tpl.RequiresEntitlement {
		if entitled, err = s.gate.Entitled(ctx, userID); err != nil {
			return engine.Snapshot{}, fmt.Errorf("check entitlement: %w", err)
		}
	}

	ls, err := s.session(userID)
	if err == nil && s.finished(ctx, ls) {
		s.drop(userID, ls)
	}

	s.mu.Lock()
	ls, ok := s.sessions[userID]
	if !ok {
		ls = s.newSession(userID)
		s.sessions[userID] = ls
	}
	s.mu.Unlock()

	if err := ls.runner.Do(ctx, engine.SelectExam{Template: tpl, Entitled: entitled}); err != nil {
		return engine.Snapshot{}, err
	}
	return ls.runner.Snapshot(ctx)
}

func (s *ExamSessionService) finished(ctx context.Context, ls *liveSession) bool {
	var state engine.State
	if err := ls.runner.View(ctx, func(m *engine.Machine) { state = m.State() }); err != nil {
		return true
	}
	return state == engine.StateResults
}

// Begin assembles the selected template and starts the first section. An
// assembly failure returns the session to selection.
func (s *ExamSessionService) Begin(ctx context.Context, userID int) (engine.Snapshot, error) {
	ls, err := s.session(userID)
	if err != nil {
		return engine.Snapshot{}, err
	}

	var (
		state engine.State
		tpl   model.ExamTemplate
	)
	if err := ls.runner.View(ctx, func(m *engine.Machine) {
		state, tpl = m.State(), m.Template()
	}); err != nil {
		return engine.Snapshot{}, err
	}
	if state != engine.StateInstructions {
		return engine.Snapshot{}, fmt.Errorf("%w: cannot begin in %s", engine.ErrInvalidTransition, state)
	}

	policy := engine.DefaultAssemblyPolicy()
	policy.MixedVerbalRatio = s.cfg.MixedVerbalRatio
	policy.Oversample = s.cfg.SupplyOversample

	rng := engine.NewRand(s.cfg.EngineSeed)
	asm, err := engine.NewAssembler(s.supplier, policy, rng, s.log).Assemble(ctx, tpl)
	if err != nil {
		if derr := ls.runner.Do(ctx, engine.AssemblyFailed{Err: err}); derr != nil {
			s.log.Warn().Err(derr).Int("user_id", userID).Msg("Failed to reset session after assembly error")
		}
		return engine.Snapshot{}, err
	}

	for _, d := range asm.Sections {
		ev := s.log.Info()
		if d.Degraded() {
			ev = s.log.Warn()
		}
		ev.Int("user_id", userID).
			Str("template_id", tpl.ID).
			Int("section", d.Config.Number).
			Int("questions", len(d.Questions)).
			Int("padded", d.Padded).
			Int("synthesized", d.Synthesized).
			Msg("Section assembled")
	}

	sections := engine.Process(asm, rng)
	if err := ls.runner.Do(ctx, engine.BeginExam{Sections: sections}); err != nil {
		return engine.Snapshot{}, err
	}
	return ls.runner.Snapshot(ctx)
}

// Dispatch applies a learner event to the user's session.
func (s *ExamSessionService) Dispatch(ctx context.Context, userID int, ev engine.Event) (engine.Snapshot, error) {
	ls, err := s.session(userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if err := ls.runner.Do(ctx, ev); err != nil {
		return engine.Snapshot{}, err
	}
	return ls.runner.Snapshot(ctx)
}

// Snapshot returns the current view of the user's session.
func (s *ExamSessionService) Snapshot(ctx context.Context, userID int) (engine.Snapshot, error) {
	ls, err := s.session(userID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return ls.runner.Snapshot(ctx)
}

// Subscribe streams snapshots of the user's current session until it closes.
func (s *ExamSessionService) Subscribe(userID int) (<-chan engine.Snapshot, func(), error) {
	ls, err := s.session(userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ls.runner.Subscribe()
	return ch, cancel, nil
}

// Results returns the results screen of a finished attempt.
func (s *ExamSessionService) Results(ctx context.Context, userID int) (*SessionResults, error) {
	ls, err := s.session(userID)
	if err != nil {
		return nil, err
	}

	var res *engine.Result
	if err := ls.runner.View(ctx, func(m *engine.Machine) {
		res, _ = m.Results()
	}); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResultsNotReady
	}

	rec := res.Record
	out := &SessionResults{
		AttemptID:        rec.ID,
		TemplateID:       rec.TemplateID,
		TemplateName:     rec.TemplateName,
		Aggregate:        res.Aggregate,
		TimeTakenSeconds: rec.TimeTakenSeconds,
		PrayerBreakUsed:  rec.PrayerBreakUsed,
		ReviewHidden:     rec.HideReview,
	}
	if !rec.HideReview {
		out.Review = reviewItems(rec)
	}
	if perr := ls.persistError(); perr != nil {
		out.PersistError = perr.Error()
	}
	return out, nil
}

// Abandon discards the user's session. Leaving a finished attempt just closes it.
func (s *ExamSessionService) Abandon(ctx context.Context, userID int) error {
	ls, err := s.session(userID)
	if err != nil {
		return err
	}
	if !s.finished(ctx, ls) {
		if err := ls.runner.Do(ctx, engine.Abandon{}); err != nil {
			return err
		}
	}

	s.drop(userID, ls)
	return nil
}

func (s *ExamSessionService) drop(userID int, ls *liveSession) {
	s.mu.Lock()
	if s.sessions[userID] == ls {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()
	ls.runner.Close()
}

// History lists the user's recorded attempts, newest first.
func (s *ExamSessionService) History(ctx context.Context, userID int) ([]model.AttemptSummary, error) {
	records, err := s.recorder.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.AttemptSummary, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i].Summary())
	}
	return out, nil
}

// Attempt returns one recorded attempt. Templates that hide the review after
// completion return scores only.
func (s *ExamSessionService) Attempt(ctx context.Context, userID int, attemptID string) (*AttemptDetail, error) {
	rec, ok, err := s.recorder.Attempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAttemptNotFound
	}

	detail := &AttemptDetail{
		AttemptSummary:  rec.Summary(),
		Aggregate:       engine.Recompute(rec),
		PrayerBreakUsed: rec.PrayerBreakUsed,
		ReviewHidden:    rec.HideReview,
	}
	if !rec.HideReview {
		detail.Review = reviewItems(rec)
	}
	return detail, nil
}

func reviewItems(rec model.AttemptRecord) []ReviewItem {
	items := make([]ReviewItem, 0, len(rec.Questions))
	for _, q := range rec.Questions {
		item := ReviewItem{QuestionSnapshot: q}
		if opt, ok := rec.Answers[q.ID]; ok {
			item.Selected = &opt
			item.Correct = opt == q.CorrectOption
		}
		items = append(items, item)
	}
	return items
}

// SweepIdle closes sessions untouched for longer than the configured TTL.
func (s *ExamSessionService) SweepIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for userID, ls := range s.sessions {
		if now.Sub(ls.runner.LastActivity()) < s.cfg.SessionIdleTTL {
			continue
		}
		ls.runner.Close()
		delete(s.sessions, userID)
		swept++
	}
	return swept
}

// StartSweeper runs SweepIdle every interval until ctx is cancelled.
func (s *ExamSessionService) StartSweeper(ctx context.Context, interval time.Duration) {
	s.log.Info().Dur("idle_ttl", s.cfg.SessionIdleTTL).Msg("Session sweeper started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Session sweeper shutting down")
			return
		case now := <-ticker.C:
			if n := s.SweepIdle(now); n > 0 {
				s.log.Info().Int("swept", n).Msg("Closed idle exam sessions")
			}
		}
	}
}

// LiveSessions returns the number of sessions held in memory.
func (s *ExamSessionService) LiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every live session.
func (s *ExamSessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, ls := range s.sessions {
		ls.runner.Close()
		delete(s.sessions, userID)
	}
}
