package api

import (
	"context"
	"net/http"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/training"
)

// TrainingHandler forwards UI events to the user's state machine. Every
// response carries the machine snapshot, failures included.
type TrainingHandler struct {
	deps Dependencies
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(deps Dependencies) *TrainingHandler {
	return &TrainingHandler{deps: deps}
}

type identityRequest struct {
	Identity model.Identity `json:"identity"`
}

type ageGroupRequest struct {
	AgeGroup model.AgeGroup `json:"ageGroup"`
}

type scenarioRequest struct {
	Scenario model.ScenarioType `json:"scenario"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// step runs op against the user's machine and writes the outcome.
func (h *TrainingHandler) step(w http.ResponseWriter, r *http.Request, op func(context.Context, *training.Machine) (training.Snapshot, error)) {
	m, err := h.deps.Trainer(userID(r))
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	snap, err := op(r.Context(), m)
	if err != nil {
		writeFailure(w, err, &snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSnapshot handles GET /v1/users/{user}/training.
func (h *TrainingHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(_ context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Snapshot(), nil
	})
}

// HandleEnd handles DELETE /v1/users/{user}/training.
func (h *TrainingHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.EndTraining(r.Context(), userID(r)); err != nil {
		writeFailure(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleIdentity handles POST /v1/users/{user}/training/identity.
func (h *TrainingHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err, nil)
		return
	}
	h.step(w, r, func(_ context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.SelectIdentity(req.Identity)
	})
}

// HandleAgeGroup handles POST /v1/users/{user}/training/age-group.
func (h *TrainingHandler) HandleAgeGroup(w http.ResponseWriter, r *http.Request) {
	var req ageGroupRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err, nil)
		return
	}
	h.step(w, r, func(_ context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.SelectAgeGroup(req.AgeGroup)
	})
}

// HandleBack handles POST /v1/users/{user}/training/back.
func (h *TrainingHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(_ context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Back()
	})
}

// HandleScenario handles POST /v1/users/{user}/training/scenario.
func (h *TrainingHandler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err, nil)
		return
	}
	h.step(w, r, func(ctx context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.SelectScenario(ctx, req.Scenario)
	})
}

// HandleMessage handles POST /v1/users/{user}/training/messages.
func (h *TrainingHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err, nil)
		return
	}
	h.step(w, r, func(ctx context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Send(ctx, req.Text)
	})
}

// HandleContinue handles POST /v1/users/{user}/training/continue.
func (h *TrainingHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(ctx context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Continue(ctx)
	})
}

// HandleRetry handles POST /v1/users/{user}/training/retry.
func (h *TrainingHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(ctx context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Retry(ctx)
	})
}

// HandleExit handles POST /v1/users/{user}/training/exit.
func (h *TrainingHandler) HandleExit(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(ctx context.Context, m *training.Machine) (training.Snapshot, error) {
		return m.Exit(ctx)
	})
}
