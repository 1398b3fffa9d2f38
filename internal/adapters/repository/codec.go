package repository

import (
	"encoding/json"
	"fmt"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// Encode serializes progress into its stored blob form.
func Encode(p *model.UserProgress) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return b, nil
}

// Decode parses a stored blob and migrates it to the current schema.
// An empty blob yields defaults; a blob that does not parse returns defaults
// together with the parse error so the caller can report the reset.
func Decode(blob []byte) (*model.UserProgress, error) {
	if len(blob) == 0 {
		return model.NewProgress(), nil
	}
	var p model.UserProgress
	if err := json.Unmarshal(blob, &p); err != nil {
		return model.NewProgress(), fmt.Errorf("decode progress: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func encodeSession(s *model.TrainingSession) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return b, nil
}

func decodeSession(b []byte) (model.TrainingSession, error) {
	var s model.TrainingSession
	if err := json.Unmarshal(b, &s); err != nil {
		return model.TrainingSession{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
