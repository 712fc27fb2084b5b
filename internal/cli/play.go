package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/config"
	"sulla-quiz-service/internal/logging"
	"sulla-quiz-service/internal/tui"
)

// NewPlayCmd plays a quiz in the terminal against the configured backends.
func NewPlayCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "play <quizID>",
		Short: "Take a quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log.Level, cfg.Log.Format)
			// Log lines would tear the terminal UI.
			log.SetOutput(io.Discard)

			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			model, err := tui.New(cmd.Context(), rt.service, args[0], app.StartRequest{
				QuizID: args[0],
				UserID: userID,
			})
			if err != nil {
				return err
			}
			err = tui.Run(model)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = rt.service.Shutdown(shutdownCtx)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "user id reported with progress")
	return cmd
}
