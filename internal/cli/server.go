package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/config"
	"sulla-quiz-service/internal/logging"
	transport "sulla-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rt, err := buildRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(rt.service, transport.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go reapIdleSessions(reapCtx, rt.service, config.TTLDuration(cfg.Quiz.IdleTimeout, 30*time.Minute))

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopReaper()
	serverErr := server.Shutdown(shutdownCtx)
	// WebSocket connections are hijacked and outlive server.Shutdown; closing the
	// sessions ends them and stops pending timers before reports are drained.
	if err := rt.service.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("progress reports still in flight at shutdown")
	}
	return serverErr
}

func reapIdleSessions(ctx context.Context, service *app.QuizService, maxIdle time.Duration) {
	interval := maxIdle / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.ReapIdle(ctx, maxIdle)
		}
	}
}
