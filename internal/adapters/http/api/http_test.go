package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/adapters/http/api"
	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/conversation/conversationtest"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/training"
	"github.com/okian/cyberguardian/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type errorBody struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	State   *training.Snapshot `json:"state"`
}

type harness struct {
	fake    *conversationtest.Fake
	handler http.Handler
}

func newHarness(checks ...pinger) *harness {
	fake := conversationtest.New()
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithSimulator(fake),
		service.WithLocation(time.UTC),
	)
	var pingers []repository.Pinger
	for _, c := range checks {
		pingers = append(pingers, c)
	}
	srv := api.NewServer(svc, svc, pingers...)
	return &harness{fake: fake, handler: srv.Routes()}
}

func (h *harness) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func snapshotOf(w *httptest.ResponseRecorder) training.Snapshot {
	var s training.Snapshot
	So(json.Unmarshal(w.Body.Bytes(), &s), ShouldBeNil)
	return s
}

func errorOf(w *httptest.ResponseRecorder) errorBody {
	var e errorBody
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func (h *harness) startBank(user string) {
	base := "/v1/users/" + user + "/training"
	So(h.do(http.MethodPost, base+"/identity", map[string]string{"identity": "STUDENT"}).Code, ShouldEqual, http.StatusOK)
	So(h.do(http.MethodPost, base+"/age-group", map[string]string{"ageGroup": "YOUNG_ADULT"}).Code, ShouldEqual, http.StatusOK)
	So(h.do(http.MethodPost, base+"/scenario", map[string]string{"scenario": "BANK"}).Code, ShouldEqual, http.StatusOK)
}

func TestServer_Health(t *testing.T) {
	Convey("Given a server with a healthy store", t, func() {
		h := newHarness(pinger{})

		Convey("Then /healthz reports ok", func() {
			w := h.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /metrics is served", func() {
			w := h.do(http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /stats is served", func() {
			w := h.do(http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "activeTrainers")
			So(w.Body.String(), ShouldContainSubstring, "uptimeSeconds")
		})

		Convey("Then an unknown path is a 404", func() {
			w := h.do(http.MethodGet, "/nope", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a server with an unreachable store", t, func() {
		h := newHarness(pinger{err: errors.New("connection refused")})

		Convey("Then /healthz degrades", func() {
			w := h.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "degraded")
		})
	})
}

func TestServer_Sessions(t *testing.T) {
	Convey("Given a server", t, func() {
		h := newHarness()
		draft := model.SessionDraft{
			ScenarioType:       model.ScenarioGovernment,
			Identity:           model.IdentityGeneralUser,
			MessagesCount:      3,
			TacticsEncountered: []string{"Authority"},
			Completed:          true,
			Duration:           45,
		}

		Convey("When a session is posted", func() {
			w := h.do(http.MethodPost, "/v1/users/u1/sessions", draft, api.IdempotencyHeader, "abc")

			Convey("Then it is saved", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, "first_session")
			})

			Convey("Then a replay with the same key is acknowledged without saving", func() {
				w := h.do(http.MethodPost, "/v1/users/u1/sessions", draft, api.IdempotencyHeader, "abc")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

				w = h.do(http.MethodGet, "/v1/users/u1/sessions", nil)
				var list []model.TrainingSession
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list), ShouldEqual, 1)
			})

			Convey("Then progress includes the score", func() {
				w := h.do(http.MethodGet, "/v1/users/u1/progress", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Progress model.UserProgress `json:"progress"`
					Score    int                `json:"score"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Progress.TotalSessions, ShouldEqual, 1)
				So(body.Score, ShouldBeGreaterThan, 0)
			})

			Convey("Then earned badges can be listed alone", func() {
				w := h.do(http.MethodGet, "/v1/users/u1/badges?earned=true", nil)
				var list []model.Badge
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list), ShouldEqual, 1)

				w = h.do(http.MethodGet, "/v1/users/u1/badges", nil)
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list), ShouldEqual, 11)
			})

			Convey("Then the chart has the requested window", func() {
				w := h.do(http.MethodGet, "/v1/users/u1/chart?days=10", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats []model.DailyStats
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(len(stats), ShouldEqual, 10)
				So(stats[9].SessionsCompleted, ShouldEqual, 1)
			})

			Convey("Then reset clears it", func() {
				So(h.do(http.MethodDelete, "/v1/users/u1/progress", nil).Code, ShouldEqual, http.StatusNoContent)
				w := h.do(http.MethodGet, "/v1/users/u1/sessions", nil)
				So(w.Body.String(), ShouldStartWith, "[]")
			})
		})

		Convey("When the draft is invalid", func() {
			bad := draft
			bad.ScenarioType = "LOTTERY"
			w := h.do(http.MethodPost, "/v1/users/u1/sessions", bad)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w).Code, ShouldEqual, "invalid_draft")
		})

		Convey("When the body is not JSON", func() {
			w := h.do(http.MethodPost, "/v1/users/u1/sessions", "{nope")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the chart window is out of range", func() {
			w := h.do(http.MethodGet, "/v1/users/u1/chart?days=90", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Training(t *testing.T) {
	Convey("Given a server", t, func() {
		h := newHarness()
		base := "/v1/users/u1/training"

		Convey("When a fresh trainee asks for state", func() {
			w := h.do(http.MethodGet, base, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(snapshotOf(w).State, ShouldEqual, training.StateChoosingIdentity)
		})

		Convey("When an unknown identity is chosen", func() {
			w := h.do(http.MethodPost, base+"/identity", map[string]string{"identity": "ALIEN"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w).Code, ShouldEqual, "invalid_enum")
		})

		Convey("When a conversation is started", func() {
			h.startBank("u1")

			Convey("Then messages flow through the simulator", func() {
				w := h.do(http.MethodPost, base+"/messages", map[string]string{"text": "who is this"})
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(snapshotOf(w).Transcript), ShouldEqual, 3)
			})

			Convey("Then a mentor intervention blocks input until continue", func() {
				h.fake.QueueMentor("Urgency", "Slow down.")
				w := h.do(http.MethodPost, base+"/messages", map[string]string{"text": "ok take my pin"})
				So(snapshotOf(w).Turn, ShouldEqual, training.TurnMentor)

				w = h.do(http.MethodPost, base+"/messages", map[string]string{"text": "hello"})
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorOf(w).Code, ShouldEqual, "mentor_pending")

				w = h.do(http.MethodPost, base+"/continue", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(snapshotOf(w).Turn, ShouldEqual, training.TurnSimulator)
			})

			Convey("Then a backend failure returns the notice and the unchanged state", func() {
				h.fake.FailNext("message", conversation.ErrTransport)
				w := h.do(http.MethodPost, base+"/messages", map[string]string{"text": "hello"})
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				e := errorOf(w)
				So(e.Code, ShouldEqual, "upstream_unavailable")
				So(e.Message, ShouldEqual, training.FallbackNotice)
				So(e.State, ShouldNotBeNil)
				So(len(e.State.Transcript), ShouldEqual, 1)
			})

			Convey("Then an empty message is rejected", func() {
				w := h.do(http.MethodPost, base+"/messages", map[string]string{"text": ""})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorOf(w).Code, ShouldEqual, "empty_message")
			})

			Convey("Then retry restarts and saves the abandoned attempt", func() {
				h.do(http.MethodPost, base+"/messages", map[string]string{"text": "hi"})
				w := h.do(http.MethodPost, base+"/retry", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(snapshotOf(w).Transcript), ShouldEqual, 1)

				w = h.do(http.MethodGet, "/v1/users/u1/sessions", nil)
				var list []model.TrainingSession
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list), ShouldEqual, 1)
				So(list[0].Completed, ShouldBeFalse)
			})

			Convey("Then exit saves and returns to scenario selection", func() {
				w := h.do(http.MethodPost, base+"/exit", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(snapshotOf(w).State, ShouldEqual, training.StateChoosingScenario)

				w = h.do(http.MethodGet, "/v1/users/u1/progress", nil)
				So(w.Body.String(), ShouldContainSubstring, `"totalSessions":1`)
			})

			Convey("Then ending training saves the attempt", func() {
				So(h.do(http.MethodDelete, base, nil).Code, ShouldEqual, http.StatusNoContent)
				w := h.do(http.MethodGet, "/v1/users/u1/progress", nil)
				So(w.Body.String(), ShouldContainSubstring, `"totalSessions":1`)
			})
		})

		Convey("When continue is sent without a mentor", func() {
			w := h.do(http.MethodPost, base+"/continue", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w).Code, ShouldEqual, "invalid_transition")
		})
	})
}
