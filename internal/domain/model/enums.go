// Package model contains the training domain types shared by every layer.
package model

import (
	"fmt"
	"strings"
)

// ScenarioType is one of the fraud archetypes the simulator role-plays.
type ScenarioType string

// Scenario types.
const (
	ScenarioBank       ScenarioType = "BANK"
	ScenarioJob        ScenarioType = "JOB"
	ScenarioGovernment ScenarioType = "GOVERNMENT"
	ScenarioEmergency  ScenarioType = "EMERGENCY"
)

// Scenarios lists every scenario type in display order.
func Scenarios() []ScenarioType {
	return []ScenarioType{ScenarioBank, ScenarioJob, ScenarioGovernment, ScenarioEmergency}
}

// Valid reports whether s is a known scenario type.
func (s ScenarioType) Valid() bool {
	switch s {
	case ScenarioBank, ScenarioJob, ScenarioGovernment, ScenarioEmergency:
		return true
	}
	return false
}

// Identity is the trainee's assumed real-world role.
type Identity string

// Identities.
const (
	IdentityStudent       Identity = "STUDENT"
	IdentityJobSeeker     Identity = "JOB_SEEKER"
	IdentitySeniorCitizen Identity = "SENIOR_CITIZEN"
	IdentityTeenager      Identity = "TEENAGER"
	IdentityGeneralUser   Identity = "GENERAL_USER"
)

// Identities lists every identity in display order.
func Identities() []Identity {
	return []Identity{IdentityStudent, IdentityJobSeeker, IdentitySeniorCitizen, IdentityTeenager, IdentityGeneralUser}
}

// Valid reports whether i is a known identity.
func (i Identity) Valid() bool {
	switch i {
	case IdentityStudent, IdentityJobSeeker, IdentitySeniorCitizen, IdentityTeenager, IdentityGeneralUser:
		return true
	}
	return false
}

// AgeGroup buckets the trainee's age.
type AgeGroup string

// Age groups.
const (
	AgeTeen       AgeGroup = "TEEN"        // 13-19
	AgeYoungAdult AgeGroup = "YOUNG_ADULT" // 20-35
	AgeAdult      AgeGroup = "ADULT"       // 36-55
	AgeSenior     AgeGroup = "SENIOR"      // 56+
)

// AgeGroups lists every age group in display order.
func AgeGroups() []AgeGroup {
	return []AgeGroup{AgeTeen, AgeYoungAdult, AgeAdult, AgeSenior}
}

// Valid reports whether a is a known age group.
func (a AgeGroup) Valid() bool {
	switch a {
	case AgeTeen, AgeYoungAdult, AgeAdult, AgeSenior:
		return true
	}
	return false
}

// ParseScenario parses a scenario name case-insensitively.
func ParseScenario(v string) (ScenarioType, error) {
	s := ScenarioType(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: scenario %q", ErrInvalidEnum, v)
	}
	return s, nil
}

// ParseIdentity parses an identity name case-insensitively.
func ParseIdentity(v string) (Identity, error) {
	i := Identity(strings.ToUpper(strings.TrimSpace(v)))
	if !i.Valid() {
		return "", fmt.Errorf("%w: identity %q", ErrInvalidEnum, v)
	}
	return i, nil
}

// ParseAgeGroup parses an age group name case-insensitively.
func ParseAgeGroup(v string) (AgeGroup, error) {
	a := AgeGroup(strings.ToUpper(strings.TrimSpace(v)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: age group %q", ErrInvalidEnum, v)
	}
	return a, nil
}
