package model

// RequirementKind discriminates badge requirements.
type RequirementKind string

// Requirement kinds.
const (
	RequireSessions     RequirementKind = "sessions"
	RequireScenarioType RequirementKind = "scenario_type"
	RequireTactics      RequirementKind = "tactics"
	RequireStreak       RequirementKind = "streak"
)

// Requirement is the threshold a badge tests against the progress aggregate.
type Requirement struct {
	Kind     RequirementKind `json:"type"`
	Value    int             `json:"value"`
	Scenario ScenarioType    `json:"scenarioType,omitempty"`
}

// Badge is a permanent achievement. EarnedAt is nil until first satisfied.
type Badge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Icon        string      `json:"icon"`
	Description string      `json:"description"`
	EarnedAt    *Timestamp  `json:"earnedAt"`
	Requirement Requirement `json:"requirement"`
}

// Earned reports whether the badge has been stamped.
func (b Badge) Earned() bool { return b.EarnedAt != nil }

var badgeCatalog = []Badge{
	{ID: "first_session", Name: "First Steps", Icon: "🎯", Description: "Complete your first training session",
		Requirement: Requirement{Kind: RequireSessions, Value: 1}},
	{ID: "five_sessions", Name: "Dedicated Learner", Icon: "📚", Description: "Complete 5 training sessions",
		Requirement: Requirement{Kind: RequireSessions, Value: 5}},
	{ID: "ten_sessions", Name: "Safety Expert", Icon: "🛡️", Description: "Complete 10 training sessions",
		Requirement: Requirement{Kind: RequireSessions, Value: 10}},
	{ID: "bank_master", Name: "Banking Guardian", Icon: "🏦", Description: "Complete 3 bank fraud scenarios",
		Requirement: Requirement{Kind: RequireScenarioType, Value: 3, Scenario: ScenarioBank}},
	{ID: "job_master", Name: "Recruitment Shield", Icon: "💼", Description: "Complete 3 job scam scenarios",
		Requirement: Requirement{Kind: RequireScenarioType, Value: 3, Scenario: ScenarioJob}},
	{ID: "govt_master", Name: "Authority Detector", Icon: "🏛️", Description: "Complete 3 government impersonation scenarios",
		Requirement: Requirement{Kind: RequireScenarioType, Value: 3, Scenario: ScenarioGovernment}},
	{ID: "emergency_master", Name: "Crisis Calm", Icon: "🚨", Description: "Complete 3 family emergency scenarios",
		Requirement: Requirement{Kind: RequireScenarioType, Value: 3, Scenario: ScenarioEmergency}},
	{ID: "three_tactics", Name: "Pattern Spotter", Icon: "👁️", Description: "Encounter 3 different manipulation tactics",
		Requirement: Requirement{Kind: RequireTactics, Value: 3}},
	{ID: "five_tactics", Name: "Manipulation Master", Icon: "🧠", Description: "Encounter 5 different manipulation tactics",
		Requirement: Requirement{Kind: RequireTactics, Value: 5}},
	{ID: "streak_3", Name: "Consistent Defender", Icon: "🔥", Description: "Train for 3 consecutive days",
		Requirement: Requirement{Kind: RequireStreak, Value: 3}},
	{ID: "streak_7", Name: "Weekly Warrior", Icon: "⚡", Description: "Train for 7 consecutive days",
		Requirement: Requirement{Kind: RequireStreak, Value: 7}},
}

// BadgeCatalog returns a fresh copy of the 11 known badge definitions, all unearned.
func BadgeCatalog() []Badge {
	out := make([]Badge, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

// KnownBadge reports whether id belongs to the catalog.
func KnownBadge(id string) bool {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return true
		}
	}
	return false
}
