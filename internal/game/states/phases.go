package states

import "fmt"

// Phase is where the agent's session stands relative to the match
type Phase int

const (
	// PhaseConnecting - dialing the server or waiting for it to accept us
	PhaseConnecting Phase = iota

	// PhaseLobby - accepted, waiting for a match to start
	PhaseLobby

	// PhaseStarting - the server announced the match start
	PhaseStarting

	// PhaseRunning - game states arrive and every one is answered
	PhaseRunning

	// PhaseEnded - the server reported the final scores
	PhaseEnded

	// PhaseError - the connection failed or the server rejected us
	PhaseError

	// PhaseReset - clearing match memory before the next match or connection
	PhaseReset
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "Connecting"
	case PhaseLobby:
		return "Lobby"
	case PhaseStarting:
		return "Starting"
	case PhaseRunning:
		return "Running"
	case PhaseEnded:
		return "Ended"
	case PhaseError:
		return "Error"
	case PhaseReset:
		return "Reset"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if only a reset can leave the phase
func (p Phase) IsTerminal() bool {
	return p == PhaseEnded || p == PhaseError
}

// CanAct returns true if game states should be answered with actions
func (p Phase) CanAct() bool {
	return p == PhaseRunning
}

// AllowedTransitions returns the valid phases this phase can transition to
func (p Phase) AllowedTransitions() []Phase {
	switch p {
	case PhaseConnecting:
		return []Phase{PhaseLobby, PhaseError}
	case PhaseLobby:
		// joining a match already in progress skips Starting
		return []Phase{PhaseStarting, PhaseRunning, PhaseEnded, PhaseConnecting, PhaseError}
	case PhaseStarting:
		return []Phase{PhaseRunning, PhaseEnded, PhaseConnecting, PhaseError}
	case PhaseRunning:
		return []Phase{PhaseEnded, PhaseConnecting, PhaseError}
	case PhaseEnded:
		return []Phase{PhaseReset}
	case PhaseError:
		return []Phase{PhaseReset}
	case PhaseReset:
		return []Phase{PhaseConnecting, PhaseLobby}
	default:
		return []Phase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to a Phase
func ParsePhase(s string) (Phase, error) {
	for p := PhaseConnecting; p <= PhaseReset; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PhaseConnecting, fmt.Errorf("unknown phase %q", s)
}
