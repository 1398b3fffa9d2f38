package simulator

import (
	"fmt"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// Persona returns the backend persona key of identity.
func Persona(identity model.Identity) (string, error) {
	switch identity {
	case model.IdentityStudent:
		return "student", nil
	case model.IdentityJobSeeker:
		return "job_seeker", nil
	case model.IdentitySeniorCitizen:
		return "senior_citizen", nil
	case model.IdentityTeenager:
		return "teenager", nil
	case model.IdentityGeneralUser:
		return "general", nil
	}
	return "", fmt.Errorf("%w: identity %q has no persona", ErrInvalidEnum, identity)
}

// ScenarioKey returns the backend scenario key of scenario.
func ScenarioKey(scenario model.ScenarioType) (string, error) {
	switch scenario {
	case model.ScenarioBank:
		return "bank", nil
	case model.ScenarioGovernment:
		return "government", nil
	case model.ScenarioJob:
		return "job_offer", nil
	case model.ScenarioEmergency:
		return "relative_emergency", nil
	}
	return "", fmt.Errorf("%w: scenario %q has no backend key", ErrInvalidEnum, scenario)
}

// RepresentativeAge returns the age sent to the backend for an age group.
func RepresentativeAge(age model.AgeGroup) (int, error) {
	switch age {
	case model.AgeTeen:
		return 16, nil
	case model.AgeYoungAdult:
		return 28, nil
	case model.AgeAdult:
		return 45, nil
	case model.AgeSenior:
		return 65, nil
	}
	return 0, fmt.Errorf("%w: age group %q has no representative age", ErrInvalidEnum, age)
}
