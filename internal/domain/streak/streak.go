// Package streak computes consecutive-day activity streaks.
package streak

import "github.com/okian/cyberguardian/internal/domain/model"

// Calculate returns the streak after a session recorded on today.
//
// last is the day of the previous session (nil if none) and current is the
// streak stored alongside it. A same-day session keeps the streak, the next
// calendar day extends it by one, and any other gap (including a last day in
// the future) starts over at 1.
func Calculate(last *model.Day, current int, today model.Day) int {
	if last == nil {
		return 1
	}
	gap, err := model.DaysBetween(*last, today)
	if err != nil {
		return 1
	}
	switch gap {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 1:
		if current < 0 {
			current = 0
		}
		return current + 1
	default:
		return 1
	}
}
