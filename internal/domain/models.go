package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
}

// Quiz is an ordered collection of questions plus the settings that drive a session over it.
type Quiz struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	ModuleID    string `json:"moduleId" yaml:"moduleId"`
	SectionID   string `json:"sectionId" yaml:"sectionId"`
	SectionName string `json:"sectionName,omitempty" yaml:"sectionName"`
	NextURL     string `json:"nextUrl,omitempty" yaml:"nextUrl"`
	// PassThreshold is a percentage; nil means "use the service default".
	PassThreshold *int `json:"passThreshold,omitempty" yaml:"passThreshold"`
	// AutoAdvanceMs overrides the default explanation delay when positive.
	AutoAdvanceMs int        `json:"autoAdvanceMs,omitempty" yaml:"autoAdvanceMs"`
	ManualAdvance bool       `json:"manualAdvance,omitempty" yaml:"manualAdvance"`
	Questions     []Question `json:"questions" yaml:"questions"`
}

// PassAt returns a quiz pass threshold of percent.
func PassAt(percent int) *int { return &percent }

// Phase is the state of the current question within a session.
type Phase string

const (
	PhaseAnswering          Phase = "answering"
	PhaseShowingExplanation Phase = "showing_explanation"
	PhaseCompleted          Phase = "completed"
)

// Highlight tells the presentation layer how to colour an option.
type Highlight string

const (
	HighlightNeutral  Highlight = "neutral"
	HighlightPositive Highlight = "positive"
	HighlightNegative Highlight = "negative"
)

// ReportContext holds caller-supplied identifiers passed through to the progress service untouched.
type ReportContext struct {
	ModuleID    string `json:"moduleId,omitempty"`
	SectionID   string `json:"sectionId,omitempty"`
	SectionName string `json:"sectionName,omitempty"`
	PageURL     string `json:"pageUrl,omitempty"`
	NextURL     string `json:"nextUrl,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// CompletionReport is emitted once per finished session.
// TimeSpent is encoded in whole seconds, like the progress payload.
type CompletionReport struct {
	SessionID      string        `json:"sessionId"`
	QuizID         string        `json:"quizId"`
	UserID         string        `json:"userId,omitempty"`
	RawScore       int           `json:"rawScore"`
	TotalQuestions int           `json:"totalQuestions"`
	Percentage     int           `json:"percentage"`
	Passed         bool          `json:"passed"`
	PassThreshold  int           `json:"passThreshold"`
	TimeSpent      time.Duration `json:"timeSpent"`
	CompletedAt    time.Time     `json:"completedAt"`
	Context        ReportContext `json:"context"`
}

// NewCompletionReport computes percentage and pass/fail for a raw score.
func NewCompletionReport(score, total, passThreshold int) CompletionReport {
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}
	return CompletionReport{
		RawScore:       score,
		TotalQuestions: total,
		Percentage:     percentage,
		Passed:         percentage >= passThreshold,
		PassThreshold:  passThreshold,
	}
}

// TimeSpentSeconds truncates TimeSpent to whole seconds.
func (r CompletionReport) TimeSpentSeconds() int64 {
	return int64(r.TimeSpent / time.Second)
}

func (r CompletionReport) MarshalJSON() ([]byte, error) {
	type plain CompletionReport
	return json.Marshal(struct {
		plain
		TimeSpent int64 `json:"timeSpent"`
	}{plain(r), r.TimeSpentSeconds()})
}

func (r *CompletionReport) UnmarshalJSON(data []byte) error {
	type plain CompletionReport
	aux := struct {
		*plain
		TimeSpent int64 `json:"timeSpent"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.TimeSpent = time.Duration(aux.TimeSpent) * time.Second
	return nil
}

// OptionView is a single rendered answer option.
type OptionView struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Highlight Highlight `json:"highlight"`
}

// QuestionView is what a client may see of the current question.
// Explanation stays empty while the question is still being answered.
type QuestionView struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Options     []OptionView `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
}

// RenderState is a read-only projection of a session for presentation layers.
type RenderState struct {
	SessionID      string            `json:"sessionId"`
	QuizID         string            `json:"quizId"`
	Attempt        int               `json:"attempt"`
	CurrentIndex   int               `json:"currentIndex"`
	TotalQuestions int               `json:"totalQuestions"`
	Question       QuestionView      `json:"question"`
	SelectedAnswer *int              `json:"selectedAnswer,omitempty"`
	Phase          Phase             `json:"phase"`
	Score          int               `json:"score"`
	Correct        *bool             `json:"correct,omitempty"`
	AutoAdvanceAt  *time.Time        `json:"autoAdvanceAt,omitempty"`
	Report         *CompletionReport `json:"report,omitempty"`
	// Notice is the last notification for this attempt, e.g. a failed progress save.
	Notice *Notification `json:"notice,omitempty"`
}

// Notification is a transient, dismissable message for the user (a toast).
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SessionEvent types.
const (
	EventState  = "state"
	EventNotice = "notice"
)

// SessionEvent is pushed to session subscribers.
type SessionEvent struct {
	Type   string        `json:"type"`
	State  *RenderState  `json:"state,omitempty"`
	Notice *Notification `json:"notice,omitempty"`
}
