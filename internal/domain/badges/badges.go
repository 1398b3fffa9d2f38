// Package badges evaluates badge requirements against a progress aggregate.
package badges

import (
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// Catalog returns the fixed badge definitions, all unearned.
func Catalog() []model.Badge { return model.BadgeCatalog() }

// Satisfied reports whether p meets the requirement r.
func Satisfied(r model.Requirement, p *model.UserProgress) bool {
	switch r.Kind {
	case model.RequireSessions:
		return p.TotalSessions >= r.Value
	case model.RequireScenarioType:
		return p.ScenariosCompleted[r.Scenario] >= r.Value
	case model.RequireTactics:
		return len(p.TacticsLearned) >= r.Value
	case model.RequireStreak:
		return p.Streak >= r.Value
	}
	return false
}

// Evaluate stamps earnedAt=now on every unearned badge whose requirement is
// now met and returns the ids it stamped, in catalog order. Earned badges are
// skipped, so a stamp is never moved or cleared.
func Evaluate(p *model.UserProgress, now time.Time) []string {
	var unlocked []string
	ts := model.TimestampOf(now)
	for i := range p.Badges {
		b := &p.Badges[i]
		if b.Earned() || !Satisfied(b.Requirement, p) {
			continue
		}
		stamp := ts
		b.EarnedAt = &stamp
		unlocked = append(unlocked, b.ID)
	}
	return unlocked
}

// Earned lists the stamped badges of p.
func Earned(p *model.UserProgress) []model.Badge { return p.EarnedBadges() }
