// Package api exposes the training core to UI event handlers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/adapters/http/swagger"
	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/scoring"
	"github.com/okian/cyberguardian/internal/domain/training"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Progress(ctx context.Context, userID string) (*model.UserProgress, error)
	ScoreBreakdown(ctx context.Context, userID string) (scoring.Breakdown, error)
	ChartData(ctx context.Context, userID string, days int) ([]model.DailyStats, error)
	Badges(ctx context.Context, userID string) ([]model.Badge, error)
	EarnedBadges(ctx context.Context, userID string) ([]model.Badge, error)
	Sessions(ctx context.Context, userID string) ([]model.TrainingSession, error)
	SaveSessionIdempotent(ctx context.Context, userID, key string, draft model.SessionDraft) (service.SaveResult, bool, error)
	Reset(ctx context.Context, userID string) error

	// Trainer returns the user's state machine, creating it on first use.
	Trainer(userID string) (*training.Machine, error)
	EndTraining(ctx context.Context, userID string) error
}

// Server wires HTTP routes for the training API.
type Server struct {
	opsHandler      *OpsHandler
	progressHandler *ProgressHandler
	trainingHandler *TrainingHandler
}

// NewServer creates a new API server with all handlers. Checks are pinged by
// /healthz.
func NewServer(deps Dependencies, statsProvider StatsProvider, checks ...repository.Pinger) *Server {
	return &Server{
		opsHandler:      NewOpsHandler(statsProvider, checks...),
		progressHandler: NewProgressHandler(deps),
		trainingHandler: NewTrainingHandler(deps),
	}
}

// Routes returns the router with every endpoint registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(MetricsMiddleware)
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	ops := s.opsHandler
	r.Get("/healthz", ops.HandleHealth)
	r.Get("/metrics", ops.HandleMetrics)
	r.Get("/stats", ops.HandleStats)
	swagger.Register(r)

	r.Route("/v1/users/{user}", func(r chi.Router) {
		p := s.progressHandler
		r.Get("/progress", p.HandleGetProgress)
		r.Delete("/progress", p.HandleResetProgress)
		r.Get("/chart", p.HandleGetChart)
		r.Get("/badges", p.HandleGetBadges)
		r.Get("/sessions", p.HandleListSessions)
		r.Post("/sessions", p.HandleSaveSession)

		t := s.trainingHandler
		r.Route("/training", func(r chi.Router) {
			r.Get("/", t.HandleSnapshot)
			r.Delete("/", t.HandleEnd)
			r.Post("/identity", t.HandleIdentity)
			r.Post("/age-group", t.HandleAgeGroup)
			r.Post("/back", t.HandleBack)
			r.Post("/scenario", t.HandleScenario)
			r.Post("/messages", t.HandleMessage)
			r.Post("/continue", t.HandleContinue)
			r.Post("/retry", t.HandleRetry)
			r.Post("/exit", t.HandleExit)
		})
	})
}

type errorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	State   *training.Snapshot `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a domain error to its status and code.
func writeFailure(w http.ResponseWriter, err error, state *training.Snapshot) {
	status, code, msg := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: msg, State: state})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func userID(r *http.Request) string {
	return chi.URLParam(r, "user")
}
