package domain

import "fmt"

// Validate checks that the quiz can back a session. It never mutates the quiz.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return &ConfigurationError{QuizID: q.ID, Reason: "quiz has no questions"}
	}
	if t := q.PassThreshold; t != nil && (*t < 0 || *t > 100) {
		return &ConfigurationError{QuizID: q.ID, Reason: fmt.Sprintf("pass threshold %d outside 0..100", *t)}
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return &ConfigurationError{QuizID: q.ID, Reason: fmt.Sprintf("question %d has no id", i)}
		}
		if _, dup := seen[question.ID]; dup {
			return &ConfigurationError{QuizID: q.ID, Reason: fmt.Sprintf("duplicate question id %q", question.ID)}
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return &ConfigurationError{QuizID: q.ID, Reason: fmt.Sprintf("question %q needs at least 2 options", question.ID)}
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return &ConfigurationError{QuizID: q.ID, Reason: fmt.Sprintf("question %q correct index %d out of range", question.ID, question.CorrectIndex)}
		}
	}
	return nil
}
