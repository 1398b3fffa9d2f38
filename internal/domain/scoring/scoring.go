// Package scoring computes the bounded training score shown to the trainee.
package scoring

import "github.com/okian/cyberguardian/internal/domain/model"

// Per-term points and caps.
const (
	pointsPerSession  = 30
	sessionsCap       = 300
	pointsPerTactic   = 40
	tacticsCap        = 200
	pointsPerBadge    = 30
	badgesCap         = 300
	pointsPerStreak   = 15
	streakCap         = 100
	pointsPerScenario = 25

	// MaxScore bounds the total.
	MaxScore = 1000
)

// Breakdown holds each capped term of the score.
type Breakdown struct {
	Sessions  int `json:"sessions"`
	Tactics   int `json:"tactics"`
	Badges    int `json:"badges"`
	Streak    int `json:"streak"`
	Scenarios int `json:"scenarios"`
	Total     int `json:"total"`
}

// Calculate returns the score of p in [0, MaxScore].
func Calculate(p *model.UserProgress) int {
	return Explain(p).Total
}

// Explain returns the per-term breakdown of the score of p.
func Explain(p *model.UserProgress) Breakdown {
	if p == nil {
		return Breakdown{}
	}
	b := Breakdown{
		Sessions:  term(p.TotalSessions, pointsPerSession, sessionsCap),
		Tactics:   term(len(p.TacticsLearned), pointsPerTactic, tacticsCap),
		Badges:    term(len(p.EarnedBadges()), pointsPerBadge, badgesCap),
		Streak:    term(p.Streak, pointsPerStreak, streakCap),
		Scenarios: term(p.ScenarioTypesPracticed(), pointsPerScenario, len(model.Scenarios())*pointsPerScenario),
	}
	total := b.Sessions + b.Tactics + b.Badges + b.Streak + b.Scenarios
	b.Total = clamp(total, 0, MaxScore)
	return b
}

func term(count, points, limit int) int {
	if count <= 0 {
		return 0
	}
	// count*points can overflow for absurd counters.
	if count > limit/points+1 {
		return limit
	}
	return clamp(count*points, 0, limit)
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
