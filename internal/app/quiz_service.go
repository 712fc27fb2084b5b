package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sulla-quiz-service/internal/domain"
)

// SessionRepository abstracts where live session engines are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(engine *Engine)
	Get(sessionID string) (*Engine, bool)
	Delete(sessionID string)
	List() []*Engine
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ProgressReporter persists a finished session with the progress-tracking service.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, report domain.CompletionReport) error
}

// MetricsRefresher recomputes aggregate user metrics after a successful report.
type MetricsRefresher interface {
	RefreshMetrics(ctx context.Context, userID string) error
}

// Defaults apply when a quiz does not carry its own settings.
type Defaults struct {
	PassThreshold    int
	AutoAdvanceDelay time.Duration
	ReportTimeout    time.Duration
}

// DefaultSettings mirrors the most common quiz configuration.
func DefaultSettings() Defaults {
	return Defaults{
		PassThreshold:    70,
		AutoAdvanceDelay: 3 * time.Second,
		ReportTimeout:    10 * time.Second,
	}
}

// StartRequest identifies who is starting which quiz, and from where.
type StartRequest struct {
	QuizID      string
	UserID      string
	DisplayName string
	PageURL     string
}

// Option configures a QuizService.
type Option func(*QuizService)

func WithMetricsRefresher(m MetricsRefresher) Option { return func(s *QuizService) { s.metrics = m } }
func WithLogger(l logrus.FieldLogger) Option          { return func(s *QuizService) { s.log = l } }
func WithScheduler(sc Scheduler) Option               { return func(s *QuizService) { s.scheduler = sc } }
func WithClock(now func() time.Time) Option           { return func(s *QuizService) { s.now = now } }
func WithDefaults(d Defaults) Option                  { return func(s *QuizService) { s.defaults = d } }

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	reporter  ProgressReporter
	metrics   MetricsRefresher
	log       logrus.FieldLogger
	scheduler Scheduler
	now       func() time.Time
	defaults  Defaults
	inflight  sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, reporter ProgressReporter, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  store,
		quizzes:   quizzes,
		reporter:  reporter,
		log:       logrus.StandardLogger(),
		scheduler: RealScheduler(),
		now:       time.Now,
		defaults:  DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the quiz and opens a fresh session on its first question.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (domain.RenderState, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.RenderState{}, err
	}

	sessionID := uuid.NewString()
	engine, err := NewEngine(quiz, EngineConfig{
		SessionID:        sessionID,
		UserID:           req.UserID,
		PassThreshold:    s.passThreshold(quiz),
		AutoAdvanceDelay: s.autoAdvanceDelay(quiz),
		Context: domain.ReportContext{
			ModuleID:    quiz.ModuleID,
			SectionID:   quiz.SectionID,
			SectionName: quiz.SectionName,
			NextURL:     quiz.NextURL,
			PageURL:     req.PageURL,
			DisplayName: req.DisplayName,
		},
		Scheduler: s.scheduler,
		Now:       s.now,
		OnComplete: func(report domain.CompletionReport) {
			s.dispatch(sessionID, report)
		},
	})
	if err != nil {
		return domain.RenderState{}, err
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		engine.Close()
		return domain.RenderState{}, domain.ErrSessionClosed
	}
	s.sessions.Put(engine)
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"session_id": sessionID, "quiz_id": quiz.ID, "user_id": req.UserID}).Info("quiz session started")
	return engine.RenderState(), nil
}

// SelectAnswer records an answer for the session's current question.
func (s *QuizService) SelectAnswer(_ context.Context, sessionID string, index int) (domain.RenderState, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RenderState{}, domain.ErrSessionNotFound
	}
	if err := engine.SelectAnswer(index); err != nil {
		return domain.RenderState{}, err
	}
	return engine.RenderState(), nil
}

// Advance moves past the explanation without waiting for the timer.
func (s *QuizService) Advance(_ context.Context, sessionID string) (domain.RenderState, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RenderState{}, domain.ErrSessionNotFound
	}
	if err := engine.Advance(); err != nil {
		return domain.RenderState{}, err
	}
	return engine.RenderState(), nil
}

// Restart begins a new attempt within the same session.
func (s *QuizService) Restart(_ context.Context, sessionID string) (domain.RenderState, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RenderState{}, domain.ErrSessionNotFound
	}
	if err := engine.Restart(); err != nil {
		return domain.RenderState{}, err
	}
	return engine.RenderState(), nil
}

// State returns the current render state.
func (s *QuizService) State(_ context.Context, sessionID string) (domain.RenderState, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RenderState{}, domain.ErrSessionNotFound
	}
	return engine.RenderState(), nil
}

// Subscribe returns a channel that receives state changes and notices for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionEvent, func(), error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return engine.Subscribe()
}

// End tears a session down and forgets it.
func (s *QuizService) End(_ context.Context, sessionID string) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	engine.Close()
	s.sessions.Delete(sessionID)
	s.log.WithField("session_id", sessionID).Debug("quiz session ended")
}

// ReapIdle ends sessions with no user activity since the cutoff and returns how many were reaped.
func (s *QuizService) ReapIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	reaped := 0
	for _, engine := range s.sessions.List() {
		if engine.LastActivity().Before(cutoff) {
			s.End(ctx, engine.ID())
			reaped++
		}
	}
	if reaped > 0 {
		s.log.WithField("count", reaped).Info("reaped idle quiz sessions")
	}
	return reaped
}

// Shutdown ends every live session, so no timer can complete one later, and then
// waits for the progress reports already under way. New sessions are refused.
func (s *QuizService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	engines := s.sessions.List()
	for _, engine := range engines {
		engine.Close()
		s.sessions.Delete(engine.ID())
	}
	s.log.WithField("count", len(engines)).Info("quiz sessions closed for shutdown")
	return s.Drain(ctx)
}

// Drain waits for in-flight progress reports, or for ctx to end.
func (s *QuizService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch hands the report to the progress service without blocking the engine.
func (s *QuizService) dispatch(sessionID string, report domain.CompletionReport) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(sessionID, report)
	}()
}

func (s *QuizService) deliver(sessionID string, report domain.CompletionReport) {
	log := s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"quiz_id":    report.QuizID,
		"score":      report.Percentage,
		"passed":     report.Passed,
	})

	timeout := s.defaults.ReportTimeout
	if timeout <= 0 {
		timeout = DefaultSettings().ReportTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.reporter == nil {
		log.Info("quiz completed; no progress reporter configured")
		return
	}
	if err := s.reporter.ReportProgress(ctx, report); err != nil {
		log.WithError(err).Warn("progress report failed")
		if engine, ok := s.sessions.Get(sessionID); ok {
			engine.Notify(domain.Notification{
				Level:   "error",
				Message: "Your score is shown, but we couldn't save your progress. Please try again later.",
			})
		}
		return
	}
	log.Info("quiz progress reported")

	if s.metrics == nil || report.UserID == "" {
		return
	}
	if err := s.metrics.RefreshMetrics(ctx, report.UserID); err != nil {
		log.WithError(err).Error("metrics refresh failed")
	}
}

func (s *QuizService) passThreshold(quiz domain.Quiz) int {
	if quiz.PassThreshold != nil {
		return *quiz.PassThreshold
	}
	return s.defaults.PassThreshold
}

func (s *QuizService) autoAdvanceDelay(quiz domain.Quiz) time.Duration {
	switch {
	case quiz.ManualAdvance:
		return 0
	case quiz.AutoAdvanceMs > 0:
		return time.Duration(quiz.AutoAdvanceMs) * time.Millisecond
	}
	return s.defaults.AutoAdvanceDelay
}
