package states

import (
	"errors"
	"time"
)

var (
	// ErrNoNickname is returned when entering the lobby without a nickname
	ErrNoNickname = errors.New("nickname is required")
	// ErrNoCause is returned when entering PhaseError without an error
	ErrNoCause = errors.New("error state requires an error in context")
)

// ConnectingState waits for the server to accept the connection
type ConnectingState struct{}

func NewConnectingState() State {
	return &ConnectingState{}
}

func (s *ConnectingState) Phase() Phase {
	return PhaseConnecting
}

func (s *ConnectingState) Enter(ctx *SessionContext) error {
	ctx.Logger.Info().Str("nickname", ctx.Nickname).Msg("Connecting to server")
	return nil
}

func (s *ConnectingState) Exit(ctx *SessionContext) error {
	ctx.Logger.Debug().Msg("Exiting Connecting state")
	return nil
}

func (s *ConnectingState) Validate(ctx *SessionContext) error {
	return nil
}

// LobbyState waits for a match
type LobbyState struct{}

func NewLobbyState() State {
	return &LobbyState{}
}

func (s *LobbyState) Phase() Phase {
	return PhaseLobby
}

func (s *LobbyState) Enter(ctx *SessionContext) error {
	ctx.Logger.Info().Msg("Connection accepted, waiting for a match")
	return nil
}

func (s *LobbyState) Exit(ctx *SessionContext) error {
	ctx.Logger.Debug().Str("player_id", ctx.PlayerID).Msg("Leaving lobby")
	return nil
}

func (s *LobbyState) Validate(ctx *SessionContext) error {
	if ctx.Nickname == "" {
		return ErrNoNickname
	}
	return nil
}

// StartingState covers the countdown before the first game state
type StartingState struct{}

func NewStartingState() State {
	return &StartingState{}
}

func (s *StartingState) Phase() Phase {
	return PhaseStarting
}

func (s *StartingState) Enter(ctx *SessionContext) error {
	ctx.Logger.Info().Msg("Match starting")
	return nil
}

func (s *StartingState) Exit(ctx *SessionContext) error {
	ctx.Logger.Debug().Msg("Exiting Starting state")
	return nil
}

func (s *StartingState) Validate(ctx *SessionContext) error {
	return nil
}

// RunningState answers every game state
type RunningState struct{}

func NewRunningState() State {
	return &RunningState{}
}

func (s *RunningState) Phase() Phase {
	return PhaseRunning
}

func (s *RunningState) Enter(ctx *SessionContext) error {
	ctx.StartTime = time.Now()
	ctx.Matches++
	if ctx.OnMatchStart != nil {
		ctx.OnMatchStart()
	}
	ctx.Logger.Info().
		Int("match", ctx.Matches).
		Str("player_id", ctx.PlayerID).
		Msg("Match running")
	return nil
}

func (s *RunningState) Exit(ctx *SessionContext) error {
	ctx.Logger.Info().
		Dur("elapsed", ctx.GetElapsedTime()).
		Msg("Exiting running state")
	return nil
}

func (s *RunningState) Validate(ctx *SessionContext) error {
	return nil
}

// EndedState follows the final scores
type EndedState struct{}

func NewEndedState() State {
	return &EndedState{}
}

func (s *EndedState) Phase() Phase {
	return PhaseEnded
}

func (s *EndedState) Enter(ctx *SessionContext) error {
	if ctx.OnMatchEnd != nil {
		ctx.OnMatchEnd()
	}
	ctx.Logger.Info().
		Dur("match_duration", ctx.GetElapsedTime()).
		Msg("Match ended")
	return nil
}

func (s *EndedState) Exit(ctx *SessionContext) error {
	ctx.Logger.Debug().Msg("Exiting ended state")
	return nil
}

func (s *EndedState) Validate(ctx *SessionContext) error {
	return nil
}

// ErrorState represents a failed connection or a rejection
type ErrorState struct{}

func NewErrorState() State {
	return &ErrorState{}
}

func (s *ErrorState) Phase() Phase {
	return PhaseError
}

func (s *ErrorState) Enter(ctx *SessionContext) error {
	ctx.Logger.Error().
		Err(ctx.Error).
		Msg("Session entered error state")
	return nil
}

func (s *ErrorState) Exit(ctx *SessionContext) error {
	ctx.Logger.Info().Msg("Recovering from error state")
	ctx.Error = nil
	return nil
}

func (s *ErrorState) Validate(ctx *SessionContext) error {
	if ctx.Error == nil {
		return ErrNoCause
	}
	return nil
}

// ResetState clears match data
type ResetState struct{}

func NewResetState() State {
	return &ResetState{}
}

func (s *ResetState) Phase() Phase {
	return PhaseReset
}

func (s *ResetState) Enter(ctx *SessionContext) error {
	ctx.Logger.Info().Msg("Resetting session")
	ctx.StartTime = time.Time{}
	ctx.Error = nil
	return nil
}

func (s *ResetState) Exit(ctx *SessionContext) error {
	ctx.Logger.Debug().Msg("Session reset complete")
	return nil
}

func (s *ResetState) Validate(ctx *SessionContext) error {
	return nil
}
