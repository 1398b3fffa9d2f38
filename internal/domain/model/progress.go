package model

import "sort"

// MaxDailyStats caps how many distinct days of DailyStats are retained.
const MaxDailyStats = 30

// DailyStats aggregates every session saved on one calendar day.
type DailyStats struct {
	Date              Day `json:"date"`
	SessionsCompleted int `json:"sessionsCompleted"`
	CorrectDecisions  int `json:"correctDecisions"`
	MistakesCaught    int `json:"mistakesCaught"`
}

// UserProgress is the per-user lifetime aggregate.
type UserProgress struct {
	TotalSessions            int                  `json:"totalSessions"`
	ScenariosCompleted       map[ScenarioType]int `json:"scenariosCompleted"`
	TotalMentorInterventions int                  `json:"totalMentorInterventions"`
	TacticsLearned           []string             `json:"tacticsLearned"`
	TotalMessagesExchanged   int                  `json:"totalMessagesExchanged"`
	TotalTimeSpent           int                  `json:"totalTimeSpent"` // seconds
	DailyStats               []DailyStats         `json:"dailyStats"`
	Badges                   []Badge              `json:"badges"`
	LastSessionDate          *Day                 `json:"lastSessionDate"`
	Streak                   int                  `json:"streak"`
}

// NewProgress returns the zeroed aggregate a user starts with.
func NewProgress() *UserProgress {
	p := &UserProgress{
		ScenariosCompleted: make(map[ScenarioType]int, len(Scenarios())),
		TacticsLearned:     []string{},
		DailyStats:         []DailyStats{},
		Badges:             BadgeCatalog(),
	}
	for _, s := range Scenarios() {
		p.ScenariosCompleted[s] = 0
	}
	return p
}

// Clone returns a deep copy of p.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.ScenariosCompleted = make(map[ScenarioType]int, len(p.ScenariosCompleted))
	for k, v := range p.ScenariosCompleted {
		c.ScenariosCompleted[k] = v
	}
	c.TacticsLearned = append([]string{}, p.TacticsLearned...)
	c.DailyStats = append([]DailyStats{}, p.DailyStats...)
	c.Badges = make([]Badge, len(p.Badges))
	for i, b := range p.Badges {
		if b.EarnedAt != nil {
			ts := *b.EarnedAt
			b.EarnedAt = &ts
		}
		c.Badges[i] = b
	}
	if p.LastSessionDate != nil {
		d := *p.LastSessionDate
		c.LastSessionDate = &d
	}
	return &c
}

// EarnedBadges returns the badges that have been stamped.
func (p *UserProgress) EarnedBadges() []Badge {
	out := []Badge{}
	for _, b := range p.Badges {
		if b.Earned() {
			out = append(out, b)
		}
	}
	return out
}

// ScenarioTypesPracticed counts scenario types with at least one completion.
func (p *UserProgress) ScenarioTypesPracticed() int {
	n := 0
	for _, s := range Scenarios() {
		if p.ScenariosCompleted[s] > 0 {
			n++
		}
	}
	return n
}

// Normalize migrates a decoded aggregate to the current schema in place.
// Missing scenario keys and badges are added, unknown badge ids are dropped,
// earned stamps are preserved, and derived collections are re-sorted and capped.
func (p *UserProgress) Normalize() {
	p.TotalSessions = nonNegative(p.TotalSessions)
	p.TotalMentorInterventions = nonNegative(p.TotalMentorInterventions)
	p.TotalMessagesExchanged = nonNegative(p.TotalMessagesExchanged)
	p.TotalTimeSpent = nonNegative(p.TotalTimeSpent)
	p.Streak = nonNegative(p.Streak)

	scenarios := make(map[ScenarioType]int, len(Scenarios()))
	for _, s := range Scenarios() {
		scenarios[s] = nonNegative(p.ScenariosCompleted[s])
	}
	p.ScenariosCompleted = scenarios

	p.TacticsLearned = uniqueTactics(p.TacticsLearned)

	if p.LastSessionDate != nil && !p.LastSessionDate.Valid() {
		p.LastSessionDate = nil
	}

	p.DailyStats = normalizeDaily(p.DailyStats)
	p.Badges = migrateBadges(p.Badges)
}

func uniqueTactics(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func normalizeDaily(in []DailyStats) []DailyStats {
	byDay := make(map[Day]int, len(in))
	out := make([]DailyStats, 0, len(in))
	for _, d := range in {
		if !d.Date.Valid() {
			continue
		}
		d.SessionsCompleted = nonNegative(d.SessionsCompleted)
		d.CorrectDecisions = nonNegative(d.CorrectDecisions)
		d.MistakesCaught = nonNegative(d.MistakesCaught)
		if i, ok := byDay[d.Date]; ok {
			out[i].SessionsCompleted += d.SessionsCompleted
			out[i].CorrectDecisions += d.CorrectDecisions
			out[i].MistakesCaught += d.MistakesCaught
			continue
		}
		byDay[d.Date] = len(out)
		out = append(out, d)
	}
	SortDailyStats(out)
	if len(out) > MaxDailyStats {
		out = out[:MaxDailyStats]
	}
	return out
}

// SortDailyStats orders stats newest first.
func SortDailyStats(stats []DailyStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Date.Time().After(stats[j].Date.Time())
	})
}

func migrateBadges(stored []Badge) []Badge {
	earned := make(map[string]*Timestamp, len(stored))
	for _, b := range stored {
		if _, seen := earned[b.ID]; seen {
			continue
		}
		earned[b.ID] = b.EarnedAt
	}
	out := BadgeCatalog()
	for i := range out {
		if ts := earned[out[i].ID]; ts != nil {
			v := *ts
			out[i].EarnedAt = &v
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
