package app

import (
	"sync"
	"time"

	"sulla-quiz-service/internal/domain"
)

// EngineConfig parametrizes a single quiz session engine.
type EngineConfig struct {
	SessionID     string
	UserID        string
	PassThreshold int
	// AutoAdvanceDelay is how long the explanation stays up; zero means manual advance only.
	AutoAdvanceDelay time.Duration
	Context          domain.ReportContext

	Scheduler Scheduler
	Now       func() time.Time
	// OnComplete receives the completion report exactly once per attempt, outside the engine lock.
	OnComplete func(domain.CompletionReport)
}

// sessionState is the state of one attempt. Restart replaces it, it is never reset in place.
type sessionState struct {
	attempt      int
	currentIndex int
	selected     int // -1 until answered
	score        int
	phase        domain.Phase
	deadline     time.Time
	startedAt    time.Time
	report       *domain.CompletionReport
}

// Engine drives one linear pass over a fixed question list.
// Timer callbacks run on their own goroutine, so all state is guarded by mu.
type Engine struct {
	quiz domain.Quiz
	cfg  EngineConfig

	mu           sync.Mutex
	state        *sessionState
	pending      Timer
	closed       bool
	lastActivity time.Time
	subscribers  map[chan domain.SessionEvent]struct{}
	// notice is the last notification; it stays in the snapshot until the next attempt.
	notice *domain.Notification
	// completing counts OnComplete calls in flight; Close waits for them.
	completing sync.WaitGroup
}

// NewEngine validates the quiz and returns an engine positioned on the first question.
func NewEngine(quiz domain.Quiz, cfg EngineConfig) (*Engine, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		quiz:        cloneQuiz(quiz),
		cfg:         cfg,
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
	e.state = e.newState(1)
	e.lastActivity = e.state.startedAt
	return e, nil
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.cfg.SessionID }

// QuizID returns the quiz this engine runs.
func (e *Engine) QuizID() string { return e.quiz.ID }

func (e *Engine) newState(attempt int) *sessionState {
	return &sessionState{
		attempt:   attempt,
		selected:  -1,
		phase:     domain.PhaseAnswering,
		startedAt: e.cfg.Now(),
	}
}

// SelectAnswer records the first answer for the current question.
// Calls outside the answering phase are ignored.
func (e *Engine) SelectAnswer(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrSessionClosed
	}
	st := e.state
	if st.phase != domain.PhaseAnswering {
		return nil
	}
	question := e.quiz.Questions[st.currentIndex]
	if index < 0 || index >= len(question.Options) {
		return &domain.InvalidInputError{QuestionID: question.ID, Index: index, Options: len(question.Options)}
	}

	st.selected = index
	if index == question.CorrectIndex {
		st.score++
	}
	st.phase = domain.PhaseShowingExplanation
	e.lastActivity = e.cfg.Now()
	e.armLocked(st)
	e.broadcastLocked()
	return nil
}

// Advance leaves the explanation early, cancelling any pending auto-advance.
func (e *Engine) Advance() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrSessionClosed
	}
	var report *domain.CompletionReport
	if e.state.phase == domain.PhaseShowingExplanation {
		e.lastActivity = e.cfg.Now()
		report = e.advanceLocked(e.state)
	}
	e.mu.Unlock()

	e.complete(report)
	return nil
}

// Restart discards the current attempt and starts a fresh one over the same questions.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrSessionClosed
	}
	e.cancelLocked()
	e.state = e.newState(e.state.attempt + 1)
	e.lastActivity = e.state.startedAt
	e.notice = nil
	e.broadcastLocked()
	return nil
}

// Close tears the engine down: the pending timer is cancelled and subscribers are released.
// It returns once a completion already under way has been handed to OnComplete, so
// Close must not be called from inside OnComplete.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.closed {
		e.cancelLocked()
		e.closed = true
		for ch := range e.subscribers {
			close(ch)
		}
		e.subscribers = nil
	}
	e.mu.Unlock()

	e.completing.Wait()
}

// RenderState returns a snapshot for presentation layers.
func (e *Engine) RenderState() domain.RenderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderLocked()
}

// LastActivity reports when the user last acted on this session.
func (e *Engine) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity
}

// Notify pushes a notification to subscribers and keeps it in RenderState
// until the session restarts, for clients that poll instead of subscribing.
func (e *Engine) Notify(n domain.Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.notice = &n
	e.publishLocked(domain.SessionEvent{Type: domain.EventNotice, Notice: &n})
}

// Subscribe returns a channel of session events, starting with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.SessionEvent, func(), error) {
	ch := make(chan domain.SessionEvent, 8)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, nil, domain.ErrSessionClosed
	}
	initial := e.renderLocked()
	// fresh buffer, never blocks
	ch <- domain.SessionEvent{Type: domain.EventState, State: &initial}
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel, nil
}

// autoAdvance is the timer callback. It re-reads the live state and does nothing
// if the attempt, question or phase it was armed for is gone.
func (e *Engine) autoAdvance(attempt, index int) {
	e.mu.Lock()
	st := e.state
	if e.closed || st.attempt != attempt || st.currentIndex != index || st.phase != domain.PhaseShowingExplanation {
		e.mu.Unlock()
		return
	}
	e.pending = nil
	report := e.advanceLocked(st)
	e.mu.Unlock()

	e.complete(report)
}

// advanceLocked moves past the explanation. It returns the completion report when the
// last question was just left, nil otherwise.
func (e *Engine) advanceLocked(st *sessionState) *domain.CompletionReport {
	e.cancelLocked()

	if st.currentIndex < len(e.quiz.Questions)-1 {
		st.currentIndex++
		st.selected = -1
		st.phase = domain.PhaseAnswering
		e.broadcastLocked()
		return nil
	}

	now := e.cfg.Now()
	report := domain.NewCompletionReport(st.score, len(e.quiz.Questions), e.cfg.PassThreshold)
	report.SessionID = e.cfg.SessionID
	report.QuizID = e.quiz.ID
	report.UserID = e.cfg.UserID
	report.TimeSpent = now.Sub(st.startedAt)
	report.CompletedAt = now
	report.Context = e.cfg.Context

	st.phase = domain.PhaseCompleted
	st.report = &report
	e.completing.Add(1)
	e.broadcastLocked()
	return &report
}

// complete runs OnComplete for a report returned by advanceLocked.
func (e *Engine) complete(report *domain.CompletionReport) {
	if report == nil {
		return
	}
	defer e.completing.Done()
	if e.cfg.OnComplete != nil {
		e.cfg.OnComplete(*report)
	}
}

func (e *Engine) armLocked(st *sessionState) {
	e.cancelLocked()
	delay := e.cfg.AutoAdvanceDelay
	if delay <= 0 {
		return
	}
	attempt, index := st.attempt, st.currentIndex
	st.deadline = e.cfg.Now().Add(delay)
	e.pending = e.cfg.Scheduler.AfterFunc(delay, func() { e.autoAdvance(attempt, index) })
}

func (e *Engine) cancelLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.state.deadline = time.Time{}
}

func (e *Engine) renderLocked() domain.RenderState {
	st := e.state
	question := e.quiz.Questions[st.currentIndex]
	answered := st.phase != domain.PhaseAnswering

	view := domain.QuestionView{
		ID:      question.ID,
		Prompt:  question.Prompt,
		Options: make([]domain.OptionView, len(question.Options)),
	}
	for i, text := range question.Options {
		highlight := domain.HighlightNeutral
		if answered {
			switch i {
			case question.CorrectIndex:
				highlight = domain.HighlightPositive
			case st.selected:
				highlight = domain.HighlightNegative
			}
		}
		view.Options[i] = domain.OptionView{Index: i, Text: text, Highlight: highlight}
	}

	rs := domain.RenderState{
		SessionID:      e.cfg.SessionID,
		QuizID:         e.quiz.ID,
		Attempt:        st.attempt,
		CurrentIndex:   st.currentIndex,
		TotalQuestions: len(e.quiz.Questions),
		Phase:          st.phase,
		Score:          st.score,
	}
	if answered {
		view.Explanation = question.Explanation
		selected := st.selected
		correct := selected == question.CorrectIndex
		rs.SelectedAnswer = &selected
		rs.Correct = &correct
	}
	rs.Question = view
	if !st.deadline.IsZero() {
		deadline := st.deadline
		rs.AutoAdvanceAt = &deadline
	}
	if st.report != nil {
		report := *st.report
		rs.Report = &report
	}
	if e.notice != nil {
		notice := *e.notice
		rs.Notice = &notice
	}
	return rs
}

func (e *Engine) broadcastLocked() {
	state := e.renderLocked()
	e.publishLocked(domain.SessionEvent{Type: domain.EventState, State: &state})
}

func (e *Engine) publishLocked(event domain.SessionEvent) {
	for ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest event so the newest state always lands.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
