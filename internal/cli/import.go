package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sulla-quiz-service/internal/config"
	"sulla-quiz-service/internal/infra/memory"
	pgstore "sulla-quiz-service/internal/infra/postgres"
	redisstore "sulla-quiz-service/internal/infra/redis"
	"sulla-quiz-service/internal/logging"
)

// NewImportCmd loads a YAML quiz bank into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <quizzes.yaml>",
		Short: "Validate a YAML quiz bank and upsert it into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log.Level, cfg.Log.Format)
			return runImport(cmd.Context(), cfg, args[0], log)
		},
	}
}

func runImport(ctx context.Context, cfg config.Config, path string, log logrus.FieldLogger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	quizzes, err := memory.LoadQuizBank(path)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var cache *redisstore.QuizRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache = redisstore.NewQuizRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute), log)
	}

	writer := pgstore.NewQuizWriter(pool)
	for _, quiz := range quizzes {
		if err := writer.UpsertQuiz(ctx, quiz); err != nil {
			return err
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, quiz.ID); err != nil {
				log.WithError(err).WithField("quiz_id", quiz.ID).Warn("cache invalidation failed")
			}
		}
		log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "questions": len(quiz.Questions)}).Info("quiz imported")
	}
	return nil
}
