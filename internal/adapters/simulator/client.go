// Package simulator is the HTTP implementation of conversation.Client for the
// external simulation backend.
package simulator

import "github.com/okian/cyberguardian/internal/domain/conversation"

// Contract types, re-exported so adapter code reads in its own terms.
type (
	Mode    = conversation.Mode
	Handle  = conversation.Handle
	Opening = conversation.Opening
	Reply   = conversation.Reply
	Client  = conversation.Client
)

// Turn modes.
const (
	ModeSimulator = conversation.ModeSimulator
	ModeMentor    = conversation.ModeMentor
	ModeEnded     = conversation.ModeEnded
)

var _ Client = (*HTTPClient)(nil)
