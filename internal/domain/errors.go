package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist (or was reaped).
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when acting on a session that has been torn down.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)

// InvalidInputError reports an answer index outside the current question's options.
type InvalidInputError struct {
	QuestionID string
	Index      int
	Options    int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid answer index %d for question %q (%d options)", e.Index, e.QuestionID, e.Options)
}

// ConfigurationError reports quiz content that cannot back a session.
type ConfigurationError struct {
	QuizID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.QuizID == "" {
		return "invalid quiz configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid quiz configuration for %q: %s", e.QuizID, e.Reason)
}

// ProgressReportError indicates the progress service rejected or never received a report.
type ProgressReportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProgressReportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("progress report failed (%d): %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("progress report failed (%d)", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("progress report failed: %v", e.Err)
	}
	return "progress report failed"
}

func (e *ProgressReportError) Unwrap() error { return e.Err }

// MetricsRefreshError indicates the aggregate metrics refresh failed.
type MetricsRefreshError struct {
	StatusCode int
	Err        error
}

func (e *MetricsRefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metrics refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("metrics refresh failed (%d)", e.StatusCode)
}

func (e *MetricsRefreshError) Unwrap() error { return e.Err }
