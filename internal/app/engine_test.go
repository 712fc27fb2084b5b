package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sulla-quiz-service/internal/domain"
)

type fakeTimer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) wasStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeScheduler records timers; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// fire runs the callback even if it was stopped, the way a timer that already
// fired before Stop would.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	t.fn()
}

type completions struct {
	mu      sync.Mutex
	reports []domain.CompletionReport
}

func (c *completions) record(r domain.CompletionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

func (c *completions) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}

func fiveQuestionQuiz() domain.Quiz {
	questions := make([]domain.Question, 5)
	for i := range questions {
		questions[i] = domain.Question{
			ID:           string(rune('a'+i)) + "-question",
			Prompt:       "Which block comes next?",
			Options:      []string{"genesis", "orphan", "uncle"},
			CorrectIndex: i % 3,
			Explanation:  "Blocks reference their parent by hash.",
		}
	}
	return domain.Quiz{ID: "blockchain-basics", Questions: questions}
}

func newTestEngine(t *testing.T, delay time.Duration) (*Engine, *fakeScheduler, *completions) {
	t.Helper()
	sched := &fakeScheduler{}
	done := &completions{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine, err := NewEngine(fiveQuestionQuiz(), EngineConfig{
		SessionID:        "s-1",
		UserID:           "u-1",
		PassThreshold:    60,
		AutoAdvanceDelay: delay,
		Scheduler:        sched,
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		OnComplete: done.record,
	})
	require.NoError(t, err)
	return engine, sched, done
}

func wrongIndex(q domain.Question) int {
	return (q.CorrectIndex + 1) % len(q.Options)
}

func TestSelectAnswerOnlyFirstCounts(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	q := engine.quiz.Questions[0]

	require.NoError(t, engine.SelectAnswer(q.CorrectIndex))
	require.NoError(t, engine.SelectAnswer(wrongIndex(q)))

	state := engine.RenderState()
	require.NotNil(t, state.SelectedAnswer)
	assert.Equal(t, q.CorrectIndex, *state.SelectedAnswer)
	assert.Equal(t, 1, state.Score)
	assert.Equal(t, domain.PhaseShowingExplanation, state.Phase)
	require.NotNil(t, state.Correct)
	assert.True(t, *state.Correct)
	assert.Equal(t, q.Explanation, state.Question.Explanation)
}

func TestSelectAnswerOutOfRange(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	before := engine.RenderState()

	for _, idx := range []int{-1, len(engine.quiz.Questions[0].Options)} {
		err := engine.SelectAnswer(idx)
		var target *domain.InvalidInputError
		require.True(t, errors.As(err, &target), "index %d: got %v", idx, err)
		assert.Equal(t, idx, target.Index)
	}

	assert.Equal(t, before, engine.RenderState())
}

func TestEmptyQuizIsConfigurationError(t *testing.T) {
	engine, err := NewEngine(domain.Quiz{ID: "empty"}, EngineConfig{})
	assert.Nil(t, engine)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestScenarioThreeOfFive(t *testing.T) {
	engine, _, done := newTestEngine(t, 0)

	for i, q := range engine.quiz.Questions {
		answer := q.CorrectIndex
		if i == 1 || i == 3 {
			answer = wrongIndex(q)
		}
		require.NoError(t, engine.SelectAnswer(answer))
		state := engine.RenderState()
		assert.LessOrEqual(t, state.Score, state.CurrentIndex+1)
		require.NoError(t, engine.Advance())
	}

	state := engine.RenderState()
	assert.Equal(t, domain.PhaseCompleted, state.Phase)
	assert.Equal(t, 3, state.Score)
	require.Equal(t, 1, done.count())
	report := done.reports[0]
	assert.Equal(t, 3, report.RawScore)
	assert.Equal(t, 5, report.TotalQuestions)
	assert.Equal(t, 60, report.Percentage)
	assert.True(t, report.Passed)
	assert.Equal(t, "s-1", report.SessionID)
	assert.Equal(t, "u-1", report.UserID)
	assert.Positive(t, report.TimeSpent)
	require.NotNil(t, state.Report)
	assert.Equal(t, report, *state.Report)
}

func TestProgressionIsMonotonic(t *testing.T) {
	engine, sched, _ := newTestEngine(t, 2*time.Second)

	seen := []int{engine.RenderState().CurrentIndex}
	for range engine.quiz.Questions {
		require.NoError(t, engine.SelectAnswer(0))
		sched.last().fire()
		seen = append(seen, engine.RenderState().CurrentIndex)
	}

	want := []int{0, 1, 2, 3, 4, 4}
	assert.Equal(t, want, seen)
	assert.Equal(t, domain.PhaseCompleted, engine.RenderState().Phase)
}

func TestAdvanceIgnoredWhileAnswering(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	require.NoError(t, engine.Advance())
	state := engine.RenderState()
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, domain.PhaseAnswering, state.Phase)
}

func TestAutoAdvanceArmsAndCancels(t *testing.T) {
	engine, sched, _ := newTestEngine(t, 3*time.Second)

	assert.Nil(t, sched.last(), "no timer before an answer")
	require.NoError(t, engine.SelectAnswer(0))
	timer := sched.last()
	require.NotNil(t, timer)
	assert.Equal(t, 3*time.Second, timer.delay)
	assert.NotNil(t, engine.RenderState().AutoAdvanceAt)

	require.NoError(t, engine.Advance())
	assert.True(t, timer.wasStopped(), "manual advance must cancel the timer")
	assert.Nil(t, engine.RenderState().AutoAdvanceAt)

	// A callback that slipped past Stop must not advance the next question.
	timer.fire()
	state := engine.RenderState()
	assert.Equal(t, 1, state.CurrentIndex)
	assert.Equal(t, domain.PhaseAnswering, state.Phase)
}

func TestCompletionReportedOnceWhenTimerRacesAdvance(t *testing.T) {
	engine, sched, done := newTestEngine(t, 5*time.Second)

	for i := 0; i < len(engine.quiz.Questions)-1; i++ {
		require.NoError(t, engine.SelectAnswer(0))
		sched.last().fire()
	}
	require.NoError(t, engine.SelectAnswer(0))
	last := sched.last()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		last.fire()
	}()
	go func() {
		defer wg.Done()
		_ = engine.Advance()
	}()
	wg.Wait()
	require.NoError(t, engine.Advance())

	assert.Equal(t, 1, done.count())
	assert.Equal(t, domain.PhaseCompleted, engine.RenderState().Phase)
}

func TestCompletedSessionIsFrozen(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	for range engine.quiz.Questions {
		require.NoError(t, engine.SelectAnswer(engine.quiz.Questions[engine.RenderState().CurrentIndex].CorrectIndex))
		require.NoError(t, engine.Advance())
	}
	before := engine.RenderState()
	require.NoError(t, engine.SelectAnswer(0))
	require.NoError(t, engine.Advance())
	assert.Equal(t, before, engine.RenderState())
	assert.Equal(t, 5, before.Score)
}

func TestRestartIsolatesState(t *testing.T) {
	engine, sched, done := newTestEngine(t, 4*time.Second)

	require.NoError(t, engine.SelectAnswer(engine.quiz.Questions[0].CorrectIndex))
	pending := sched.last()
	require.NoError(t, engine.Restart())
	assert.True(t, pending.wasStopped(), "restart must cancel the pending timer")

	state := engine.RenderState()
	assert.Equal(t, 0, state.Score)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, domain.PhaseAnswering, state.Phase)
	assert.Equal(t, 2, state.Attempt)
	assert.Nil(t, state.SelectedAnswer)

	// The stale callback from the discarded attempt must not touch the new one.
	pending.fire()
	assert.Equal(t, state, engine.RenderState())
	assert.Zero(t, done.count())

	// Same question order after restart.
	assert.Equal(t, engine.quiz.Questions[0].ID, state.Question.ID)
}

func TestRenderStateHighlights(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	q := engine.quiz.Questions[0]

	for _, opt := range engine.RenderState().Question.Options {
		assert.Equal(t, domain.HighlightNeutral, opt.Highlight)
	}
	assert.Empty(t, engine.RenderState().Question.Explanation)
	assert.Nil(t, engine.RenderState().Correct)

	wrong := wrongIndex(q)
	require.NoError(t, engine.SelectAnswer(wrong))
	state := engine.RenderState()
	for i, opt := range state.Question.Options {
		switch i {
		case q.CorrectIndex:
			assert.Equal(t, domain.HighlightPositive, opt.Highlight)
		case wrong:
			assert.Equal(t, domain.HighlightNegative, opt.Highlight)
		default:
			assert.Equal(t, domain.HighlightNeutral, opt.Highlight)
		}
		assert.Equal(t, q.Options[i], opt.Text)
	}
	require.NotNil(t, state.Correct)
	assert.False(t, *state.Correct)
}

func TestCloseCancelsTimerAndSubscribers(t *testing.T) {
	engine, sched, _ := newTestEngine(t, time.Second)
	events, cancel, err := engine.Subscribe()
	require.NoError(t, err)
	defer cancel()

	first := <-events
	assert.Equal(t, domain.EventState, first.Type)

	require.NoError(t, engine.SelectAnswer(0))
	<-events
	timer := sched.last()

	engine.Close()
	assert.True(t, timer.wasStopped())
	_, open := <-events
	assert.False(t, open)

	assert.ErrorIs(t, engine.SelectAnswer(0), domain.ErrSessionClosed)
	assert.ErrorIs(t, engine.Restart(), domain.ErrSessionClosed)
	timer.fire()
}

func TestSubscribeReceivesTimerAdvance(t *testing.T) {
	engine, sched, _ := newTestEngine(t, time.Second)
	events, cancel, err := engine.Subscribe()
	require.NoError(t, err)
	defer cancel()
	<-events

	require.NoError(t, engine.SelectAnswer(1))
	answered := <-events
	assert.Equal(t, domain.PhaseShowingExplanation, answered.State.Phase)

	sched.last().fire()
	next := <-events
	assert.Equal(t, 1, next.State.CurrentIndex)
	assert.Equal(t, domain.PhaseAnswering, next.State.Phase)

	engine.Notify(domain.Notification{Level: "error", Message: "offline"})
	notice := <-events
	assert.Equal(t, domain.EventNotice, notice.Type)
	assert.Equal(t, "offline", notice.Notice.Message)
}

func TestNoticeStaysInStateUntilRestart(t *testing.T) {
	engine, _, _ := newTestEngine(t, 0)
	assert.Nil(t, engine.RenderState().Notice)

	engine.Notify(domain.Notification{Level: "error", Message: "progress not saved"})
	state := engine.RenderState()
	require.NotNil(t, state.Notice)
	assert.Equal(t, "progress not saved", state.Notice.Message)
	require.NotNil(t, engine.RenderState().Notice, "reading the state does not consume the notice")

	require.NoError(t, engine.Restart())
	assert.Nil(t, engine.RenderState().Notice)
}

func TestSubscribeRacesClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		engine, _, _ := newTestEngine(t, 0)
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				events, cancel, err := engine.Subscribe()
				if err != nil {
					assert.ErrorIs(t, err, domain.ErrSessionClosed)
					return
				}
				defer cancel()
				first, ok := <-events
				if assert.True(t, ok, "snapshot must arrive before the channel closes") {
					assert.Equal(t, domain.EventState, first.Type)
					assert.Equal(t, 0, first.State.CurrentIndex)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.SelectAnswer(0)
		}()
		engine.Close()
		wg.Wait()
	}
}
