package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/scoring"
)

// IdempotencyHeader carries the client key that makes POST /sessions safe to replay.
const IdempotencyHeader = "Idempotency-Key"

// ProgressHandler serves the progress read model and session saves.
type ProgressHandler struct {
	deps Dependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps Dependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

type progressResponse struct {
	Progress  *model.UserProgress `json:"progress"`
	Score     int                 `json:"score"`
	Breakdown scoring.Breakdown   `json:"breakdown"`
}

type saveResponse struct {
	Status    string                 `json:"status"`
	Duplicate bool                   `json:"duplicate"`
	Session   *model.TrainingSession `json:"session,omitempty"`
	Unlocked  []string               `json:"unlocked,omitempty"`
	Score     int                    `json:"score"`
}

// HandleGetProgress handles GET /v1/users/{user}/progress.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.deps.Progress(ctx, userID(r))
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	b := scoring.Explain(p)
	writeJSON(w, http.StatusOK, progressResponse{Progress: p, Score: b.Total, Breakdown: b})
}

// HandleResetProgress handles DELETE /v1/users/{user}/progress.
func (h *ProgressHandler) HandleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reset(r.Context(), userID(r)); err != nil {
		writeFailure(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetChart handles GET /v1/users/{user}/chart?days=N.
func (h *ProgressHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > model.MaxDailyStats {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("days must be an integer in 1..%d", model.MaxDailyStats))
			return
		}
		days = n
	}
	stats, err := h.deps.ChartData(r.Context(), userID(r), days)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleGetBadges handles GET /v1/users/{user}/badges?earned=true.
func (h *ProgressHandler) HandleGetBadges(w http.ResponseWriter, r *http.Request) {
	earned, _ := strconv.ParseBool(r.URL.Query().Get("earned"))
	var (
		list []model.Badge
		err  error
	)
	if earned {
		list, err = h.deps.EarnedBadges(r.Context(), userID(r))
	} else {
		list, err = h.deps.Badges(r.Context(), userID(r))
	}
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleListSessions handles GET /v1/users/{user}/sessions.
func (h *ProgressHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Sessions(r.Context(), userID(r))
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	if list == nil {
		list = []model.TrainingSession{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleSaveSession handles POST /v1/users/{user}/sessions. A repeated
// Idempotency-Key is acknowledged with 200 and nothing is saved. A key whose
// first save is still running gets 409 in_progress.
func (h *ProgressHandler) HandleSaveSession(w http.ResponseWriter, r *http.Request) {
	var draft model.SessionDraft
	if err := decode(r, &draft); err != nil {
		writeFailure(w, err, nil)
		return
	}

	res, duplicate, err := h.deps.SaveSessionIdempotent(r.Context(), userID(r), r.Header.Get(IdempotencyHeader), draft)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, saveResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{
		Status:   "saved",
		Session:  &res.Session,
		Unlocked: res.Unlocked,
		Score:    scoring.Calculate(res.Progress),
	})
}
