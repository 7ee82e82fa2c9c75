package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sonny"
)

// maxProgram is the largest program accepted
const maxProgram = 1 << 20

type server struct {
	router   *chi.Mux
	logger   *slog.Logger
	settings sonny.Settings
}

func newServer(s sonny.Settings, logger *slog.Logger) *server {
	srv := &server{
		router:   chi.NewRouter(),
		logger:   logger,
		settings: s,
	}
	r := srv.router
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", srv.handleHealth)
	r.Post("/chains", srv.handleChains)
	r.Post("/render", srv.handleRender)
	return srv
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := settings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-duration") || s.MaxDuration == 0 {
		s.MaxDuration = maxDur
	}
	if err := s.Validate(); err != nil {
		return err
	}
	logger := newLogger()
	srv := &http.Server{
		Addr:         addr,
		Handler:      newServer(s, logger).router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	logger.Info("server starting", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	<-done
	return nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) program(w http.ResponseWriter, r *http.Request) (*sonny.Registry, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxProgram))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, not
	}
	reg, err := sonny.ParseProgram(data, "request")
	if err != nil {
		s.fail(w, err)
		return nil, not
	}
	return reg, yes
}

// handleChains lists the named chains of the posted program.
func (s *server) handleChains(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.program(w, r)
	if !ok {
		return
	}
	out, _ := reg.Output()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"chains": reg.Names(),
		"output": out.String(),
		"end":    reg.EndTime(),
	})
}

// handleRender renders the posted program and replies with the WAV.
func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.program(w, r)
	if !ok {
		return
	}
	samples, err := sonny.Render(r.Context(), reg, s.settings, sonny.Options{Logger: s.logger})
	if err != nil {
		s.fail(w, err)
		return
	}
	f, err := os.CreateTemp("", "sonny-*.wav")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := sonny.WriteWAV(f, samples, int(s.settings.SampleRate)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "render.wav", time.Now(), f)
}

// fail reports program errors as 422, with the chain and link when known.
func (s *server) fail(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var e *sonny.Error
	if errors.As(err, &e) {
		body["kind"] = e.Kind.Error()
		if !e.Location.IsZero() {
			body["location"] = e.Location.String()
		}
		if e.Kind == sonny.ErrBackLinkOutOfRange {
			body["expected"], body["available"] = e.Expected, e.Available
		}
	}
	s.logger.Warn("program rejected", slog.Any("error", err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(body)
}
