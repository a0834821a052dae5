package states

import (
	"time"

	"github.com/rs/zerolog"
)

// SessionContext carries what the states need to know about the session
type SessionContext struct {
	// SessionID tags logs and events
	SessionID string

	Logger zerolog.Logger

	// Nickname we connect with
	Nickname string

	// PlayerID is our id, known once lobby data arrived
	PlayerID string

	// StartTime is when PhaseRunning was entered
	StartTime time.Time

	// Matches counts matches entered
	Matches int

	// Error holds the cause of a transition to PhaseError
	Error error

	// OnMatchStart runs when a match starts running; used to clear
	// per-match memory
	OnMatchStart func()

	// OnMatchEnd runs when the match ended; used to flush traces
	OnMatchEnd func()
}

// NewSessionContext creates a new session context
func NewSessionContext(sessionID, nickname string, logger zerolog.Logger) *SessionContext {
	return &SessionContext{
		SessionID: sessionID,
		Nickname:  nickname,
		Logger:    logger.With().Str("session_id", sessionID).Logger(),
	}
}

// GetElapsedTime returns the time since the match started running
func (sc *SessionContext) GetElapsedTime() time.Duration {
	if sc.StartTime.IsZero() {
		return 0
	}
	return time.Since(sc.StartTime)
}
