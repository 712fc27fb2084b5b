package memory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"sulla-quiz-service/internal/domain"
)

// QuizBank is the on-disk YAML layout for quiz content.
type QuizBank struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// FileQuizLoader serves quizzes parsed from a YAML quiz bank.
type FileQuizLoader struct {
	*StaticQuizLoader
	ids []string
}

// LoadQuizBank reads and validates every quiz in a YAML file.
func LoadQuizBank(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseQuizBank(data)
}

// ParseQuizBank decodes YAML quiz content and validates each quiz.
func ParseQuizBank(data []byte) ([]domain.Quiz, error) {
	var bank QuizBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse quiz bank: %w", err)
	}
	seen := make(map[string]struct{}, len(bank.Quizzes))
	for _, quiz := range bank.Quizzes {
		if quiz.ID == "" {
			return nil, &domain.ConfigurationError{Reason: "quiz without id"}
		}
		if _, dup := seen[quiz.ID]; dup {
			return nil, &domain.ConfigurationError{QuizID: quiz.ID, Reason: "duplicate quiz id"}
		}
		seen[quiz.ID] = struct{}{}
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
	}
	return bank.Quizzes, nil
}

// NewFileQuizLoader loads the quiz bank at path once.
func NewFileQuizLoader(path string) (*FileQuizLoader, error) {
	quizzes, err := LoadQuizBank(path)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Quiz, len(quizzes))
	ids := make([]string, 0, len(quizzes))
	for _, quiz := range quizzes {
		byID[quiz.ID] = quiz
		ids = append(ids, quiz.ID)
	}
	sort.Strings(ids)
	return &FileQuizLoader{StaticQuizLoader: NewStaticQuizLoader(byID), ids: ids}, nil
}

// IDs lists the quiz IDs in the bank, sorted.
func (l *FileQuizLoader) IDs() []string {
	return append([]string(nil), l.ids...)
}

var _ QuizLoader = (*FileQuizLoader)(nil)
