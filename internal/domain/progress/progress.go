// Package progress folds one saved training session into the lifetime aggregate.
package progress

import (
	"time"

	"github.com/okian/cyberguardian/internal/domain/badges"
	"github.com/okian/cyberguardian/internal/domain/dailystats"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/streak"
)

// Apply mutates p with session s and returns the ids of badges unlocked by it.
//
// Every call counts as a distinct session; callers that may replay a save
// must deduplicate before calling.
func Apply(p *model.UserProgress, s model.TrainingSession, now time.Time) []string {
	if p.ScenariosCompleted == nil {
		p.ScenariosCompleted = make(map[model.ScenarioType]int, len(model.Scenarios()))
	}
	p.TotalSessions++
	p.ScenariosCompleted[s.ScenarioType]++
	p.TotalMentorInterventions += nonNegative(s.MentorInterventions)
	p.TotalMessagesExchanged += nonNegative(s.MessagesCount)
	p.TotalTimeSpent += nonNegative(s.Duration)

	p.TacticsLearned = MergeTactics(p.TacticsLearned, s.TacticsEncountered)

	p.Streak = streak.Calculate(p.LastSessionDate, p.Streak, s.Date)
	today := s.Date
	p.LastSessionDate = &today

	p.DailyStats = dailystats.Upsert(p.DailyStats, s, model.MaxDailyStats)

	return badges.Evaluate(p, now)
}

// MergeTactics returns the set union of learned and encountered, keeping the
// order in which each tactic first appeared.
func MergeTactics(learned, encountered []string) []string {
	seen := make(map[string]struct{}, len(learned)+len(encountered))
	out := make([]string, 0, len(learned)+len(encountered))
	for _, list := range [][]string{learned, encountered} {
		for _, t := range list {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
