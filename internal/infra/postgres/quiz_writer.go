package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"sulla-quiz-service/internal/domain"
)

// QuizWriter stores authored quizzes. Content is validated before it is written.
type QuizWriter struct {
	pool *pgxpool.Pool
}

func NewQuizWriter(pool *pgxpool.Pool) *QuizWriter {
	return &QuizWriter{pool: pool}
}

func (w *QuizWriter) UpsertQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = w.pool.Exec(ctx, `
INSERT INTO quizzes (id, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, quiz.ID, data)
	if err != nil {
		return fmt.Errorf("upsert quiz %s: %w", quiz.ID, err)
	}
	return nil
}
