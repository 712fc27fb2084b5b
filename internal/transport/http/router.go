package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"sulla-quiz-service/internal/app"
)

// RouterConfig controls the HTTP surface.
type RouterConfig struct {
	// AllowedOrigins for credentialed CORS; empty allows any origin.
	AllowedOrigins []string
	Logger         logrus.FieldLogger
}

// NewRouter wires REST, websocket and health endpoints.
func NewRouter(service *app.QuizService, cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rest := NewRESTHandler(service, cfg.Logger)
	r.Route("/api", rest.Routes)

	ws := NewWSHandler(service, cfg.Logger)
	r.Get("/ws", ws.ServeWS)
	return r
}
