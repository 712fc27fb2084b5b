package http

import (
	"context"
	"sync"
	"time"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/domain"
	"sulla-quiz-service/internal/infra/memory"
)

type stubReporter struct {
	mu      sync.Mutex
	err     error
	reports []domain.CompletionReport
}

func (r *stubReporter) ReportProgress(_ context.Context, report domain.CompletionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *stubReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func newTestService(reporter app.ProgressReporter) *app.QuizService {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	return app.NewQuizService(memory.NewSessionStore(), quizRepo, reporter,
		app.WithDefaults(app.Defaults{PassThreshold: 60, ReportTimeout: time.Second}))
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			ModuleID: "blockchain",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What links blocks together?",
					Options:      []string{"Timestamps", "Previous block hash", "Miner names"},
					CorrectIndex: 1,
					Explanation:  "Each header commits to the previous block's hash.",
				},
				{
					ID:           "q2",
					Prompt:       "Who validates Bitcoin transactions?",
					Options:      []string{"Full nodes", "Banks"},
					CorrectIndex: 0,
					Explanation:  "Every full node checks every rule.",
				},
			},
		},
	}
}
