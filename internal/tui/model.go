package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/domain"
)

// eventMsg carries one session event from the engine into the program.
type eventMsg struct {
	event domain.SessionEvent
	ok    bool
}

// Model plays a single quiz session in the terminal.
type Model struct {
	service   *app.QuizService
	sessionID string
	title     string
	events    <-chan domain.SessionEvent
	cancel    func()

	state  domain.RenderState
	cursor int
	notice string
	err    error
}

// New starts a session and subscribes to its events.
func New(ctx context.Context, service *app.QuizService, title string, req app.StartRequest) (Model, error) {
	state, err := service.Start(ctx, req)
	if err != nil {
		return Model{}, err
	}
	events, cancel, err := service.Subscribe(ctx, state.SessionID)
	if err != nil {
		service.End(ctx, state.SessionID)
		return Model{}, err
	}
	return Model{
		service:   service,
		sessionID: state.SessionID,
		title:     title,
		events:    events,
		cancel:    cancel,
		state:     state,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan domain.SessionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{event: ev, ok: ok}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		if !msg.ok {
			return m, tea.Quit
		}
		m.apply(msg.event)
		return m, waitForEvent(m.events)

	case tea.KeyPressMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *Model) apply(ev domain.SessionEvent) {
	switch ev.Type {
	case domain.EventState:
		if ev.State != nil {
			if ev.State.CurrentIndex != m.state.CurrentIndex || ev.State.Attempt != m.state.Attempt {
				m.cursor = 0
			}
			m.state = *ev.State
		}
	case domain.EventNotice:
		if ev.Notice != nil {
			m.notice = ev.Notice.Message
		}
	}
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch key {
	case "ctrl+c", "q":
		m.close()
		return m, tea.Quit
	case "up", "k":
		if m.state.Phase == domain.PhaseAnswering && m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.state.Phase == domain.PhaseAnswering && m.cursor < len(m.state.Question.Options)-1 {
			m.cursor++
		}
	case "enter":
		if m.state.Phase == domain.PhaseShowingExplanation {
			m.run(m.service.Advance(ctx, m.sessionID))
			break
		}
		m.run(m.service.SelectAnswer(ctx, m.sessionID, m.cursor))
	case "n":
		m.run(m.service.Advance(ctx, m.sessionID))
	case "r":
		m.notice = ""
		m.run(m.service.Restart(ctx, m.sessionID))
		m.cursor = 0
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.state.Question.Options) {
				m.cursor = idx
				m.run(m.service.SelectAnswer(ctx, m.sessionID, idx))
			}
		}
	}
	return m, nil
}

func (m *Model) run(state domain.RenderState, err error) {
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	if state.CurrentIndex != m.state.CurrentIndex {
		m.cursor = 0
	}
	m.state = state
}

func (m *Model) close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.service.End(context.Background(), m.sessionID)
}

// State is the last state the model rendered from.
func (m Model) State() domain.RenderState { return m.state }

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.SetContent(m.render())
	return v
}

func (m Model) render() string {
	var b strings.Builder
	st := m.state
	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	if st.Phase == domain.PhaseCompleted && st.Report != nil {
		b.WriteString(renderReport(*st.Report))
		b.WriteString("\n" + hintStyle.Render("r restart · q quit") + "\n")
		if m.notice != "" {
			b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
		}
		return b.String()
	}

	b.WriteString(hintStyle.Render(fmt.Sprintf("Question %d of %d · Score %d", st.CurrentIndex+1, st.TotalQuestions, st.Score)) + "\n\n")
	b.WriteString(questionStyle.Render(st.Question.Prompt) + "\n\n")

	for _, opt := range st.Question.Options {
		prefix := "  "
		if st.Phase == domain.PhaseAnswering && opt.Index == m.cursor {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d)  %s", prefix, opt.Index+1, opt.Text)
		b.WriteString(optionStyle(st.Phase, opt, opt.Index == m.cursor).Render(line) + "\n")
	}

	if st.Phase == domain.PhaseShowingExplanation {
		verdict := lipgloss.NewStyle().Foreground(Error).Bold(true).Render("Not quite.")
		if st.Correct != nil && *st.Correct {
			verdict = lipgloss.NewStyle().Foreground(Success).Bold(true).Render("Correct!")
		}
		b.WriteString("\n" + verdict + " " + st.Question.Explanation + "\n")
		hint := "enter/n next"
		if st.AutoAdvanceAt != nil {
			hint += fmt.Sprintf(" · continuing in %s", time.Until(*st.AutoAdvanceAt).Round(time.Second))
		}
		b.WriteString("\n" + hintStyle.Render(hint) + "\n")
	} else {
		b.WriteString("\n" + hintStyle.Render("↑↓ move · enter or 1-9 answer · q quit") + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + noticeStyle.Render(m.err.Error()) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	return b.String()
}

func optionStyle(phase domain.Phase, opt domain.OptionView, underCursor bool) lipgloss.Style {
	switch opt.Highlight {
	case domain.HighlightPositive:
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	case domain.HighlightNegative:
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	}
	if phase != domain.PhaseAnswering {
		return lipgloss.NewStyle().Foreground(TextDim)
	}
	if underCursor {
		return lipgloss.NewStyle().Foreground(Primary).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(Text)
}

func renderReport(r domain.CompletionReport) string {
	verdict := lipgloss.NewStyle().Foreground(Error).Bold(true).Render("Not passed yet")
	if r.Passed {
		verdict = lipgloss.NewStyle().Foreground(Success).Bold(true).Render("Passed!")
	}
	return fmt.Sprintf("%s\n\nScore: %d/%d (%d%%, pass mark %d%%)\nTime: %s\n",
		verdict, r.RawScore, r.TotalQuestions, r.Percentage, r.PassThreshold, r.TimeSpent.Round(time.Second))
}

// Run plays the quiz until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	m.close()
	return err
}
