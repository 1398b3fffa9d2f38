package streak_test

import (
	"testing"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/streak"
	. "github.com/smartystreets/goconvey/convey"
)

func day(v string) *model.Day {
	d := model.Day(v)
	return &d
}

func TestCalculate(t *testing.T) {
	today := model.Day("2026-04-10")

	Convey("Given a trainee with no previous session", t, func() {
		So(streak.Calculate(nil, 0, today), ShouldEqual, 1)
	})

	Convey("Given a previous session", t, func() {
		Convey("On the same day the streak is unchanged", func() {
			So(streak.Calculate(day("2026-04-10"), 4, today), ShouldEqual, 4)
		})

		Convey("On the previous day the streak grows by one", func() {
			So(streak.Calculate(day("2026-04-09"), 4, today), ShouldEqual, 5)
		})

		Convey("Across a month boundary consecutive days still count", func() {
			So(streak.Calculate(day("2026-03-31"), 2, model.Day("2026-04-01")), ShouldEqual, 3)
		})

		Convey("After a skipped day the streak resets", func() {
			So(streak.Calculate(day("2026-04-08"), 9, today), ShouldEqual, 1)
		})

		Convey("With a last day in the future the streak resets", func() {
			So(streak.Calculate(day("2026-04-11"), 9, today), ShouldEqual, 1)
		})

		Convey("With an unparsable last day the streak resets", func() {
			So(streak.Calculate(day("soon"), 9, today), ShouldEqual, 1)
		})
	})

	Convey("Given a sequence of daily sessions", t, func() {
		var last *model.Day
		current := 0
		for i := 0; i < 5; i++ {
			d := model.Day("2026-04-01").AddDays(i)
			current = streak.Calculate(last, current, d)
			last = &d
		}
		So(current, ShouldEqual, 5)

		again := streak.Calculate(last, current, *last)
		So(again, ShouldEqual, 5)
	})
}
