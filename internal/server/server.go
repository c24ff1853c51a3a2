// Package server exposes the pipeline over HTTP: profile CRUD, reply
// suggestions and the messaging-platform webhook.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/rs/cors"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/notify"
)

// Options carries the settings the handlers read at request time.
type Options struct {
	VerifyToken string // webhook handshake token
	AutoReplies bool   // webhook events request suggestions
	SelfName    string // default self profile name
}

type Server struct {
	db       *db.DB
	ctrl     *ingest.Controller
	notifier *notify.Notifier
	opts     Options
	logger   *log.Logger
}

// New builds a server. notifier may be nil, in which case webhook
// suggestions are generated but only logged.
func New(database *db.DB, ctrl *ingest.Controller, notifier *notify.Notifier, opts Options, logger *log.Logger) *Server {
	return &Server{
		db:       database,
		ctrl:     ctrl,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}).Handler)

	r.Get("/health", s.health)

	r.Get("/webhook", s.verifyWebhook)
	r.Post("/webhook", s.receiveWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Get("/profiles", s.listProfiles)
		r.Get("/profiles/{id}", s.getProfile)
		r.Put("/profiles/{id}", s.putProfile)
		r.Delete("/profiles/{id}", s.deleteProfile)

		r.Get("/user", s.getSelf)
		r.Get("/user/profile", s.getSelfAsProfile)
		r.Put("/user", s.putSelf)

		r.Get("/conversations/{id}", s.getConversation)
		r.Post("/conversations/{id}", s.addMessage)

		r.Post("/ai/reply", s.suggestReplies)
		r.Post("/ai/polish", s.polish)
		r.Post("/regenerate-replies", s.regenerate)
		r.Post("/simulate-conversation", s.simulate)
		r.Post("/import-conversation", s.importConversation)

		r.Get("/analytics", s.analytics)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
