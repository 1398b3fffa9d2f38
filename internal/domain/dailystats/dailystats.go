// Package dailystats rolls saved sessions into per-day buckets.
package dailystats

import "github.com/okian/cyberguardian/internal/domain/model"

// DefaultWindow is the chart length used when a caller asks for none.
const DefaultWindow = 7

// CorrectDecisions approximates the safe turns of a session as the user
// messages that did not trigger the mentor, floored at zero.
func CorrectDecisions(messages, interventions int) int {
	if d := messages - interventions; d > 0 {
		return d
	}
	return 0
}

// Upsert folds session s into the bucket for s.Date and returns the stats
// sorted newest first and truncated to capDays entries. A non-positive
// capDays means model.MaxDailyStats.
func Upsert(stats []model.DailyStats, s model.TrainingSession, capDays int) []model.DailyStats {
	if capDays <= 0 {
		capDays = model.MaxDailyStats
	}
	out := make([]model.DailyStats, 0, len(stats)+1)
	out = append(out, stats...)

	mistakes := s.MentorInterventions
	if mistakes < 0 {
		mistakes = 0
	}
	correct := CorrectDecisions(s.MessagesCount, s.MentorInterventions)

	found := false
	for i := range out {
		if out[i].Date != s.Date {
			continue
		}
		out[i].SessionsCompleted++
		out[i].MistakesCaught += mistakes
		out[i].CorrectDecisions += correct
		found = true
		break
	}
	if !found {
		out = append(out, model.DailyStats{
			Date:              s.Date,
			SessionsCompleted: 1,
			CorrectDecisions:  correct,
			MistakesCaught:    mistakes,
		})
	}

	model.SortDailyStats(out)
	if len(out) > capDays {
		out = out[:capDays]
	}
	return out
}

// Window returns exactly days buckets ending at today, oldest first, with
// zero-filled entries for days without sessions.
func Window(stats []model.DailyStats, today model.Day, days int) []model.DailyStats {
	if days <= 0 {
		days = DefaultWindow
	}
	byDay := make(map[model.Day]model.DailyStats, len(stats))
	for _, s := range stats {
		byDay[s.Date] = s
	}
	out := make([]model.DailyStats, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDays(-i)
		if s, ok := byDay[d]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, model.DailyStats{Date: d})
	}
	return out
}
