package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/training"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a router with the metrics middleware", t, func() {
		r := chi.NewRouter()
		r.Use(MetricsMiddleware)
		r.Get("/v1/users/{user}/progress", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})
		r.Get("/silent", func(http.ResponseWriter, *http.Request) {})

		Convey("Then the handler status passes through", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users/u1/progress", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("Then a handler that writes nothing is a 200", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/silent", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Error statuses are bucketed", t, func() {
		cases := []struct {
			status int
			want   string
		}{
			{http.StatusBadRequest, "client_error"},
			{http.StatusNotFound, "not_found"},
			{http.StatusConflict, "conflict"},
			{http.StatusInternalServerError, "server_error"},
			{http.StatusBadGateway, "upstream"},
			{http.StatusServiceUnavailable, "server_error"},
		}
		for _, c := range cases {
			So(errorType(c.status), ShouldEqual, c.want)
		}
	})
}

func TestClassify(t *testing.T) {
	Convey("Errors map to the status and code the UI branches on", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{service.ErrSaveInProgress, http.StatusConflict, "in_progress"},
			{training.ErrBusy, http.StatusConflict, "busy"},
			{training.ErrConversationEnded, http.StatusConflict, "conversation_ended"},
			{conversation.ErrTransport, http.StatusBadGateway, "upstream_unavailable"},
			{conversation.ErrSessionEnded, http.StatusBadGateway, "upstream_unavailable"},
		}
		for _, c := range cases {
			status, code, _ := classify(c.err)
			So(status, ShouldEqual, c.status)
			So(code, ShouldEqual, c.code)
		}
	})
}
