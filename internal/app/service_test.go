package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/cyberguardian/internal/app"
	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/conversation/conversationtest"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(c *clock, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithClock(c.Now),
		service.WithLocation(time.UTC),
		service.WithSimulator(conversationtest.New()),
	}
	return service.New(append(base, opts...)...)
}

func draft(scenario model.ScenarioType, tactics ...string) model.SessionDraft {
	return model.SessionDraft{
		ScenarioType:        scenario,
		Identity:            model.IdentityStudent,
		AgeGroup:            model.AgeYoungAdult,
		MessagesCount:       4,
		MentorInterventions: 1,
		TacticsEncountered:  tactics,
		Completed:           true,
		Duration:            120,
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(&clock{now: time.Now()})
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should be marked as started", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["activeTrainers"], ShouldEqual, 0)
			})

			Convey("And starting twice is harmless", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})
	})
}

func TestService_SaveSession(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with an empty store", t, func() {
		c := &clock{now: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)}
		svc := newService(c)

		Convey("When the first session is saved", func() {
			res, err := svc.SaveSession(ctx, "u1", draft(model.ScenarioBank, "Urgency"))
			So(err, ShouldBeNil)

			Convey("Then the record is stamped and the aggregate updated", func() {
				So(res.Session.ID, ShouldNotBeEmpty)
				So(res.Session.Date, ShouldEqual, model.Day("2026-03-10"))
				So(res.Session.Timestamp, ShouldEqual, model.TimestampOf(c.Now()))
				So(res.Progress.TotalSessions, ShouldEqual, 1)
				So(res.Progress.ScenariosCompleted[model.ScenarioBank], ShouldEqual, 1)
				So(res.Progress.Streak, ShouldEqual, 1)
				So(res.Progress.TacticsLearned, ShouldResemble, []string{"Urgency"})
				So(res.Unlocked, ShouldResemble, []string{"first_session"})
			})

			Convey("Then the derived views reflect it", func() {
				score, err := svc.Score(ctx, "u1")
				So(err, ShouldBeNil)
				b, err := svc.ScoreBreakdown(ctx, "u1")
				So(err, ShouldBeNil)
				So(b.Total, ShouldEqual, score)
				So(b.Sessions, ShouldEqual, 30)
				So(b.Tactics, ShouldEqual, 40)
				So(b.Badges, ShouldEqual, 30)
				So(b.Streak, ShouldEqual, 15)

				earned, err := svc.EarnedBadges(ctx, "u1")
				So(err, ShouldBeNil)
				So(len(earned), ShouldEqual, 1)
				all, err := svc.Badges(ctx, "u1")
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 11)

				sessions, err := svc.Sessions(ctx, "u1")
				So(err, ShouldBeNil)
				So(len(sessions), ShouldEqual, 1)
				So(sessions[0].ID, ShouldEqual, res.Session.ID)
			})

			Convey("Then the chart window ends today", func() {
				chart, err := svc.ChartData(ctx, "u1", 0)
				So(err, ShouldBeNil)
				So(len(chart), ShouldEqual, service.DefaultChartDays)
				So(chart[len(chart)-1].Date, ShouldEqual, model.Day("2026-03-10"))
				So(chart[len(chart)-1].SessionsCompleted, ShouldEqual, 1)
				So(chart[0].SessionsCompleted, ShouldEqual, 0)
			})

			Convey("Then other users are unaffected", func() {
				p, err := svc.Progress(ctx, "u2")
				So(err, ShouldBeNil)
				So(p.TotalSessions, ShouldEqual, 0)
			})
		})

		Convey("When sessions are saved on consecutive days", func() {
			var res service.SaveResult
			for i := 0; i < 3; i++ {
				var err error
				res, err = svc.SaveSession(ctx, "u1", draft(model.ScenarioJob))
				So(err, ShouldBeNil)
				c.Advance(24 * time.Hour)
			}

			Convey("Then the streak grows and its badge unlocks", func() {
				So(res.Progress.Streak, ShouldEqual, 3)
				So(res.Unlocked, ShouldContain, "streak_3")
				So(res.Unlocked, ShouldContain, "job_master")
			})
		})

		Convey("When the same draft is saved twice", func() {
			_, err := svc.SaveSession(ctx, "u1", draft(model.ScenarioBank))
			So(err, ShouldBeNil)
			res, err := svc.SaveSession(ctx, "u1", draft(model.ScenarioBank))
			So(err, ShouldBeNil)

			Convey("Then it counts as two sessions", func() {
				So(res.Progress.TotalSessions, ShouldEqual, 2)
				So(res.Unlocked, ShouldBeEmpty)
			})
		})

		Convey("When the draft is invalid", func() {
			_, err := svc.SaveSession(ctx, "u1", model.SessionDraft{ScenarioType: "PHISHING", Identity: model.IdentityStudent})

			Convey("Then nothing is stored", func() {
				So(errors.Is(err, model.ErrInvalidDraft), ShouldBeTrue)
				p, _ := svc.Progress(ctx, "u1")
				So(p.TotalSessions, ShouldEqual, 0)
			})
		})

		Convey("When the user id is blank", func() {
			_, err := svc.SaveSession(ctx, " ", draft(model.ScenarioBank))
			So(errors.Is(err, repository.ErrInvalidUser), ShouldBeTrue)
		})

		Convey("When the progress is reset", func() {
			_, err := svc.SaveSession(ctx, "u1", draft(model.ScenarioBank))
			So(err, ShouldBeNil)
			So(svc.Reset(ctx, "u1"), ShouldBeNil)

			Convey("Then the user starts over", func() {
				p, err := svc.Progress(ctx, "u1")
				So(err, ShouldBeNil)
				So(p.TotalSessions, ShouldEqual, 0)
				sessions, err := svc.Sessions(ctx, "u1")
				So(err, ShouldBeNil)
				So(sessions, ShouldBeEmpty)
			})
		})
	})
}

// stallingStore holds Update until release is closed and then fails it with
// err when err is set.
type stallingStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
	err     error
}

func (s *stallingStore) Update(ctx context.Context, userID string, record *model.TrainingSession, fn repository.UpdateFunc) (*model.UserProgress, error) {
	s.entered <- struct{}{}
	<-s.release
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.Update(ctx, userID, record, fn)
}

func TestService_SaveSessionIdempotent(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc := newService(&clock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)})

		Convey("When a key is replayed", func() {
			_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
			So(err, ShouldBeNil)
			So(replay, ShouldBeFalse)
			_, replay, err = svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
			So(err, ShouldBeNil)

			Convey("Then the second save is skipped", func() {
				So(replay, ShouldBeTrue)
				p, _ := svc.Progress(ctx, "u1")
				So(p.TotalSessions, ShouldEqual, 1)
			})

			Convey("Then the key is scoped to the user", func() {
				_, replay, err := svc.SaveSessionIdempotent(ctx, "u2", "k1", draft(model.ScenarioBank))
				So(err, ShouldBeNil)
				So(replay, ShouldBeFalse)
			})
		})

		Convey("When a keyed save fails", func() {
			_, _, err := svc.SaveSessionIdempotent(ctx, "u1", "k2", model.SessionDraft{})
			So(err, ShouldNotBeNil)

			Convey("Then the key can be used again", func() {
				_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k2", draft(model.ScenarioBank))
				So(err, ShouldBeNil)
				So(replay, ShouldBeFalse)
			})
		})

		Convey("When no key is given", func() {
			_, _, _ = svc.SaveSessionIdempotent(ctx, "u1", "", draft(model.ScenarioBank))
			_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "", draft(model.ScenarioBank))

			Convey("Then every call saves", func() {
				So(err, ShouldBeNil)
				So(replay, ShouldBeFalse)
				p, _ := svc.Progress(ctx, "u1")
				So(p.TotalSessions, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a keyed save stuck in the store", t, func() {
		store := &stallingStore{
			Store:   repository.NewMemory(),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		svc := newService(&clock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}, service.WithStore(store))

		type outcome struct {
			replay bool
			err    error
		}
		first := make(chan outcome, 1)
		start := func() {
			go func() {
				_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
				first <- outcome{replay, err}
			}()
			<-store.entered
		}

		Convey("When the same key arrives and the first save then fails", func() {
			store.err = errors.New("disk full")
			start()

			_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
			close(store.release)
			got := <-first

			Convey("Then the second caller is told the save is still running", func() {
				So(errors.Is(err, service.ErrSaveInProgress), ShouldBeTrue)
				So(replay, ShouldBeFalse)
			})

			Convey("Then the first caller sees the failure and the key is free again", func() {
				So(got.err, ShouldNotBeNil)
				So(got.replay, ShouldBeFalse)
				store.err = nil
				_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
				So(err, ShouldBeNil)
				So(replay, ShouldBeFalse)
			})
		})

		Convey("When the same key arrives and the first save then succeeds", func() {
			start()
			_, _, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
			So(errors.Is(err, service.ErrSaveInProgress), ShouldBeTrue)
			close(store.release)
			So((<-first).err, ShouldBeNil)

			Convey("Then a later retry is acknowledged as a replay", func() {
				_, replay, err := svc.SaveSessionIdempotent(ctx, "u1", "k1", draft(model.ScenarioBank))
				So(err, ShouldBeNil)
				So(replay, ShouldBeTrue)
				p, _ := svc.Progress(ctx, "u1")
				So(p.TotalSessions, ShouldEqual, 1)
			})
		})
	})
}
