package model

import (
	"fmt"
	"time"
)

// TrainingSession is the immutable record of one finished or abandoned attempt.
type TrainingSession struct {
	ID                  string       `json:"id"`
	Date                Day          `json:"date"`
	Timestamp           Timestamp    `json:"timestamp"`
	ScenarioType        ScenarioType `json:"scenarioType"`
	Identity            Identity     `json:"identity"`
	AgeGroup            AgeGroup     `json:"ageGroup,omitempty"` // empty on older records
	MessagesCount       int          `json:"messagesCount"`
	MentorInterventions int          `json:"mentorInterventions"`
	TacticsEncountered  []string     `json:"tacticsEncountered"`
	Completed           bool         `json:"completed"`
	Duration            int          `json:"duration"` // seconds
}

// SessionDraft is a TrainingSession before the store assigns id, date and timestamp.
type SessionDraft struct {
	ScenarioType        ScenarioType `json:"scenarioType"`
	Identity            Identity     `json:"identity"`
	AgeGroup            AgeGroup     `json:"ageGroup,omitempty"`
	MessagesCount       int          `json:"messagesCount"`
	MentorInterventions int          `json:"mentorInterventions"`
	TacticsEncountered  []string     `json:"tacticsEncountered"`
	Completed           bool         `json:"completed"`
	Duration            int          `json:"duration"`
}

// Validate rejects drafts that would corrupt the aggregate.
func (d SessionDraft) Validate() error {
	switch {
	case !d.ScenarioType.Valid():
		return fmt.Errorf("%w: scenario %q", ErrInvalidDraft, d.ScenarioType)
	case !d.Identity.Valid():
		return fmt.Errorf("%w: identity %q", ErrInvalidDraft, d.Identity)
	case d.AgeGroup != "" && !d.AgeGroup.Valid():
		return fmt.Errorf("%w: age group %q", ErrInvalidDraft, d.AgeGroup)
	case d.MessagesCount < 0:
		return fmt.Errorf("%w: negative messagesCount", ErrInvalidDraft)
	case d.MentorInterventions < 0:
		return fmt.Errorf("%w: negative mentorInterventions", ErrInvalidDraft)
	case d.Duration < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidDraft)
	}
	return nil
}

// Record stamps the draft into a TrainingSession created at now.
func (d SessionDraft) Record(id string, now time.Time, loc *time.Location) TrainingSession {
	tactics := make([]string, len(d.TacticsEncountered))
	copy(tactics, d.TacticsEncountered)
	return TrainingSession{
		ID:                  id,
		Date:                DayOf(now, loc),
		Timestamp:           TimestampOf(now),
		ScenarioType:        d.ScenarioType,
		Identity:            d.Identity,
		AgeGroup:            d.AgeGroup,
		MessagesCount:       d.MessagesCount,
		MentorInterventions: d.MentorInterventions,
		TacticsEncountered:  tactics,
		Completed:           d.Completed,
		Duration:            d.Duration,
	}
}

// Role identifies the author of a transcript message.
type Role string

// Transcript roles.
const (
	RoleScammer Role = "scammer"
	RoleUser    Role = "user"
	RoleMentor  Role = "mentor"
)

// Message is one entry of the chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}
