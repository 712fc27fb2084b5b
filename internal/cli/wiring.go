package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/config"
	"sulla-quiz-service/internal/infra/memory"
	pgstore "sulla-quiz-service/internal/infra/postgres"
	"sulla-quiz-service/internal/infra/progress"
	redisstore "sulla-quiz-service/internal/infra/redis"
)

// runtime holds the assembled service plus whatever needs closing on exit.
type runtime struct {
	service *app.QuizService
	redis   *redis.Client
	pool    *pgxpool.Pool
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*runtime, error) {
	rt := &runtime{}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.pool = pool
	}

	loader, err := quizLoader(cfg, rt.pool, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var store app.SessionRepository
	if rt.redis != nil {
		quizRepo = redisstore.NewQuizRepository(rt.redis, loader, quizTTL, log)
		store = redisstore.NewSessionStore(rt.redis, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
	}

	reporter, metrics := progressCollaborators(cfg, log)

	defaults := app.DefaultSettings()
	if cfg.Quiz.PassThreshold > 0 {
		defaults.PassThreshold = cfg.Quiz.PassThreshold
	}
	defaults.AutoAdvanceDelay = config.TTLDuration(cfg.Quiz.AutoAdvance, defaults.AutoAdvanceDelay)
	defaults.ReportTimeout = config.TTLDuration(cfg.Quiz.ReportTimeout, defaults.ReportTimeout)

	rt.service = app.NewQuizService(store, quizRepo, reporter,
		app.WithMetricsRefresher(metrics),
		app.WithLogger(log),
		app.WithDefaults(defaults),
	)
	return rt, nil
}

// quizLoader picks the source of quiz content: Postgres, then a YAML bank, then the built-in samples.
func quizLoader(cfg config.Config, pool *pgxpool.Pool, log logrus.FieldLogger) (memory.QuizLoader, error) {
	if pool != nil {
		log.Info("loading quizzes from postgres")
		return pgstore.NewQuizLoader(pool), nil
	}
	if cfg.Quiz.ContentPath != "" {
		loader, err := memory.NewFileQuizLoader(cfg.Quiz.ContentPath)
		if err != nil {
			return nil, err
		}
		log.WithField("quizzes", len(loader.IDs())).Info("loaded quiz bank")
		return loader, nil
	}
	log.Warn("no quiz source configured, serving built-in sample quizzes")
	return memory.NewStaticQuizLoader(sampleQuizzes()), nil
}

func progressCollaborators(cfg config.Config, log logrus.FieldLogger) (app.ProgressReporter, app.MetricsRefresher) {
	if cfg.Progress.URL == "" {
		r := progress.NewLogReporter(log)
		return r, r
	}
	client := progress.New(progress.Config{
		URL:                  cfg.Progress.URL,
		MetricsURL:           cfg.Progress.MetricsURL,
		Token:                cfg.Progress.Token,
		TokenURL:             cfg.Progress.TokenURL,
		ClientID:             cfg.Progress.ClientID,
		ClientSecret:         cfg.Progress.ClientSecret,
		Timeout:              config.TTLDuration(cfg.Progress.Timeout, 5*time.Second),
		MaxRetries:           cfg.Progress.MaxRetries,
		RetryInitialInterval: config.TTLDuration(cfg.Progress.RetryInitialInterval, 200*time.Millisecond),
	})
	return client, client
}
