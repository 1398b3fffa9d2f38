// Package conversation is the contract between the training state machine and
// whatever backend plays the scammer and decides when the mentor steps in.
package conversation

import (
	"context"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// Mode is the backend's classification of a turn.
type Mode string

// Turn modes.
const (
	ModeSimulator Mode = "SIMULATOR"
	ModeMentor    Mode = "MENTOR"
	ModeEnded     Mode = "ENDED"
)

// Handle is the opaque backend session id.
type Handle string

// Opening is the result of starting a session.
type Opening struct {
	Message string
	Handle  Handle
}

// Reply is the backend's answer to a turn. Tactic and Guidance are set only
// when Mode is ModeMentor.
type Reply struct {
	Mode     Mode
	Message  string
	Risk     string
	Tactic   string
	Guidance string
}

// Client is the boundary the training state machine drives.
type Client interface {
	Start(ctx context.Context, scenario model.ScenarioType, identity model.Identity, age model.AgeGroup) (Opening, error)
	SendMessage(ctx context.Context, h Handle, text string) (Reply, error)
	Continue(ctx context.Context, h Handle) (Reply, error)
	Retry(ctx context.Context, h Handle) (Reply, error)
}
