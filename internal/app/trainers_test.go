package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/training"
	"github.com/okian/cyberguardian/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func startTraining(ctx context.Context, m *training.Machine) {
	_, err := m.SelectIdentity(model.IdentitySeniorCitizen)
	So(err, ShouldBeNil)
	_, err = m.SelectAgeGroup(model.AgeSenior)
	So(err, ShouldBeNil)
	_, err = m.SelectScenario(ctx, model.ScenarioGovernment)
	So(err, ShouldBeNil)
}

func TestService_Trainer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a simulator", t, func() {
		c := &clock{now: time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)}
		svc := newService(c, service.WithIdleTTL(10*time.Minute))

		Convey("When a trainer is requested twice", func() {
			a, err := svc.Trainer("u1")
			So(err, ShouldBeNil)
			b, err := svc.Trainer("u1")
			So(err, ShouldBeNil)

			Convey("Then the same machine is returned", func() {
				So(a, ShouldEqual, b)
				So(svc.ActiveTrainers(), ShouldEqual, 1)
			})
		})

		Convey("When a trainee exits a conversation", func() {
			m, err := svc.Trainer("u1")
			So(err, ShouldBeNil)
			startTraining(ctx, m)
			_, err = m.Send(ctx, "who is this?")
			So(err, ShouldBeNil)
			_, err = m.Exit(ctx)
			So(err, ShouldBeNil)

			Convey("Then the session lands in the user's progress", func() {
				p, err := svc.Progress(ctx, "u1")
				So(err, ShouldBeNil)
				So(p.TotalSessions, ShouldEqual, 1)
				So(p.ScenariosCompleted[model.ScenarioGovernment], ShouldEqual, 1)
				So(p.TotalMessagesExchanged, ShouldEqual, 1)
			})
		})

		Convey("When training is ended mid-conversation", func() {
			m, err := svc.Trainer("u1")
			So(err, ShouldBeNil)
			startTraining(ctx, m)
			So(svc.EndTraining(ctx, "u1"), ShouldBeNil)

			Convey("Then the attempt is saved and the machine forgotten", func() {
				sessions, err := svc.Sessions(ctx, "u1")
				So(err, ShouldBeNil)
				So(len(sessions), ShouldEqual, 1)
				So(sessions[0].Completed, ShouldBeTrue)
				So(svc.ActiveTrainers(), ShouldEqual, 0)
			})
		})

		Convey("When a trainer sits idle past the TTL", func() {
			m, err := svc.Trainer("idle")
			So(err, ShouldBeNil)
			startTraining(ctx, m)
			_, err = svc.Trainer("picking")
			So(err, ShouldBeNil)
			_, err = svc.Trainer("fresh")
			So(err, ShouldBeNil)

			c.Advance(11 * time.Minute)
			fresh, _ := svc.Trainer("fresh")
			_, err = fresh.SelectIdentity(model.IdentityTeenager)
			So(err, ShouldBeNil)

			dropped := svc.Sweep(ctx)

			Convey("Then its conversation is saved as completed before it is dropped", func() {
				So(dropped, ShouldEqual, 2)
				So(svc.ActiveTrainers(), ShouldEqual, 1)
				sessions, err := svc.Sessions(ctx, "idle")
				So(err, ShouldBeNil)
				So(len(sessions), ShouldEqual, 1)
				So(sessions[0].Completed, ShouldBeTrue)
				So(sessions[0].ScenarioType, ShouldEqual, model.ScenarioGovernment)
			})

			Convey("Then a trainer that never started a conversation saves nothing", func() {
				sessions, err := svc.Sessions(ctx, "picking")
				So(err, ShouldBeNil)
				So(sessions, ShouldBeEmpty)
			})
		})

		Convey("When the user id is blank", func() {
			_, err := svc.Trainer("")
			So(errors.Is(err, service.ErrInvalidUser), ShouldBeTrue)
		})
	})

	Convey("Given an idle conversation whose save fails", t, func() {
		c := &clock{now: time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)}
		store := &stallingStore{
			Store:   repository.NewMemory(),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
			err:     errors.New("disk full"),
		}
		close(store.release)
		svc := newService(c, service.WithIdleTTL(10*time.Minute), service.WithStore(store))
		m, err := svc.Trainer("u1")
		So(err, ShouldBeNil)
		startTraining(ctx, m)
		c.Advance(11 * time.Minute)

		Convey("Then the sweep keeps the machine and its transcript", func() {
			So(svc.Sweep(ctx), ShouldEqual, 0)
			So(svc.ActiveTrainers(), ShouldEqual, 1)
			So(m.Active(), ShouldBeTrue)
			So(m.Snapshot().Transcript, ShouldNotBeEmpty)
		})
	})

	Convey("Given a service without a simulator", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		_, err := svc.Trainer("u1")
		So(errors.Is(err, service.ErrNoSimulator), ShouldBeTrue)
	})
}
