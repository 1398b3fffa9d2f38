package scoring_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalculate(t *testing.T) {
	Convey("Given fresh progress", t, func() {
		p := model.NewProgress()

		Convey("Then the score is zero", func() {
			So(scoring.Calculate(p), ShouldEqual, 0)
			So(scoring.Explain(p), ShouldResemble, scoring.Breakdown{})
		})
	})

	Convey("Given progress after one bank session", t, func() {
		p := model.NewProgress()
		p.TotalSessions = 1
		p.ScenariosCompleted[model.ScenarioBank] = 1
		p.TacticsLearned = []string{"Urgency"}
		p.Streak = 1
		now := model.Timestamp(1)
		p.Badges[0].EarnedAt = &now

		Convey("Then each term contributes its points", func() {
			b := scoring.Explain(p)
			So(b.Sessions, ShouldEqual, 30)
			So(b.Tactics, ShouldEqual, 40)
			So(b.Badges, ShouldEqual, 30)
			So(b.Streak, ShouldEqual, 15)
			So(b.Scenarios, ShouldEqual, 25)
			So(b.Total, ShouldEqual, 140)
			So(scoring.Calculate(p), ShouldEqual, 140)
		})
	})

	Convey("Given progress past every cap", t, func() {
		p := model.NewProgress()
		p.TotalSessions = 50
		for _, s := range model.Scenarios() {
			p.ScenariosCompleted[s] = 10
		}
		p.TacticsLearned = []string{"a", "b", "c", "d", "e", "f", "g"}
		p.Streak = 30
		for i := range p.Badges {
			ts := model.Timestamp(i)
			p.Badges[i].EarnedAt = &ts
		}

		Convey("Then the total is exactly the maximum", func() {
			b := scoring.Explain(p)
			So(b.Sessions, ShouldEqual, 300)
			So(b.Tactics, ShouldEqual, 200)
			So(b.Badges, ShouldEqual, 300)
			So(b.Streak, ShouldEqual, 100)
			So(b.Scenarios, ShouldEqual, 100)
			So(b.Total, ShouldEqual, scoring.MaxScore)
		})
	})

	Convey("Given corrupt negative or huge counters", t, func() {
		p := model.NewProgress()
		p.TotalSessions = -10
		p.Streak = math.MaxInt

		So(scoring.Explain(p).Sessions, ShouldEqual, 0)
		So(scoring.Explain(p).Streak, ShouldEqual, 100)
		So(scoring.Calculate(nil), ShouldEqual, 0)
	})

	Convey("Given arbitrary non-negative counters", t, func() {
		rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // test data only
		for i := 0; i < 200; i++ {
			p := model.NewProgress()
			p.TotalSessions = rng.Intn(1000)
			p.Streak = rng.Intn(1000)
			for _, s := range model.Scenarios() {
				p.ScenariosCompleted[s] = rng.Intn(3)
			}
			for j := rng.Intn(20); j > 0; j-- {
				p.TacticsLearned = append(p.TacticsLearned, string(rune('a'+j)))
			}

			score := scoring.Calculate(p)
			So(score, ShouldBeBetweenOrEqual, 0, scoring.MaxScore)
		}
	})
}
