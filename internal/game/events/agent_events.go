package events

import (
	"time"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

// Event type constants
const (
	TypeTickDecided       = "tick.decided"
	TypeModuleSwitched    = "behavior.module_switched"
	TypePathNotFound      = "navigation.path_not_found"
	TypeTargetForgotten   = "behavior.target_forgotten"
	TypeContractViolation = "snapshot.contract_violation"
	TypeSnapshotDropped   = "snapshot.dropped"
	TypePhaseChanged      = "session.phase_changed"
)

// TickDecidedEvent is published once per decided tick
type TickDecidedEvent struct {
	BaseEvent
	Module    string        `json:"module"`
	Action    string        `json:"action"`
	Priority  float64       `json:"priority"`
	Duration  time.Duration `json:"duration"`
	MaxThreat float64       `json:"max_threat"`

	// optional detail for trace consumers
	Priorities map[string]float64 `json:"priorities,omitempty"`
	PathLength int                `json:"path_length"`
	Replans    int                `json:"replans"`
}

// NewTickDecidedEvent creates a new TickDecidedEvent
func NewTickDecidedEvent(sessionID string, tick int, module string, action core.Action, priority float64, took time.Duration, maxThreat float64) *TickDecidedEvent {
	return &TickDecidedEvent{
		BaseEvent: newBase(TypeTickDecided, sessionID, tick),
		Module:    module,
		Action:    action.String(),
		Priority:  priority,
		Duration:  took,
		MaxThreat: maxThreat,
	}
}

// ModuleSwitchedEvent is published when the arbiter hands control to a
// different behavior module
type ModuleSwitchedEvent struct {
	BaseEvent
	From     string  `json:"from"`
	To       string  `json:"to"`
	Priority float64 `json:"priority"`
}

// NewModuleSwitchedEvent creates a new ModuleSwitchedEvent
func NewModuleSwitchedEvent(sessionID string, tick int, from, to string, priority float64) *ModuleSwitchedEvent {
	return &ModuleSwitchedEvent{
		BaseEvent: newBase(TypeModuleSwitched, sessionID, tick),
		From:      from,
		To:        to,
		Priority:  priority,
	}
}

// PathNotFoundEvent is published when a module cannot plan toward its target
type PathNotFoundEvent struct {
	BaseEvent
	Module    string        `json:"module"`
	From      core.Position `json:"from"`
	Target    core.Position `json:"target"`
	Exhausted bool          `json:"exhausted"`
}

// NewPathNotFoundEvent creates a new PathNotFoundEvent
func NewPathNotFoundEvent(sessionID string, tick int, module string, from, target core.Position, exhausted bool) *PathNotFoundEvent {
	return &PathNotFoundEvent{
		BaseEvent: newBase(TypePathNotFound, sessionID, tick),
		Module:    module,
		From:      from,
		Target:    target,
		Exhausted: exhausted,
	}
}

// TargetForgottenEvent is published when a module gives up on a target
type TargetForgottenEvent struct {
	BaseEvent
	Module    string        `json:"module"`
	Target    core.Position `json:"target"`
	UntilTick int           `json:"until_tick"`
}

// NewTargetForgottenEvent creates a new TargetForgottenEvent
func NewTargetForgottenEvent(sessionID string, tick int, module string, target core.Position, untilTick int) *TargetForgottenEvent {
	return &TargetForgottenEvent{
		BaseEvent: newBase(TypeTargetForgotten, sessionID, tick),
		Module:    module,
		Target:    target,
		UntilTick: untilTick,
	}
}

// ContractViolationEvent is published when a snapshot breaks the server contract
type ContractViolationEvent struct {
	BaseEvent
	Err error `json:"-"`
}

// NewContractViolationEvent creates a new ContractViolationEvent
func NewContractViolationEvent(sessionID string, tick int, err error) *ContractViolationEvent {
	return &ContractViolationEvent{
		BaseEvent: newBase(TypeContractViolation, sessionID, tick),
		Err:       err,
	}
}

// SnapshotDroppedEvent is published when a pending snapshot is replaced by a
// newer one before the decision loop picked it up
type SnapshotDroppedEvent struct {
	BaseEvent
	Replacement int `json:"replacement_tick"`
}

// NewSnapshotDroppedEvent creates a new SnapshotDroppedEvent
func NewSnapshotDroppedEvent(sessionID string, dropped, replacement int) *SnapshotDroppedEvent {
	return &SnapshotDroppedEvent{
		BaseEvent:   newBase(TypeSnapshotDropped, sessionID, dropped),
		Replacement: replacement,
	}
}

// PhaseChangedEvent is published when the session state machine transitions
type PhaseChangedEvent struct {
	BaseEvent
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase"`
	Reason    string `json:"reason"`
}

// NewPhaseChangedEvent creates a new PhaseChangedEvent
func NewPhaseChangedEvent(sessionID, fromPhase, toPhase, reason string) *PhaseChangedEvent {
	return &PhaseChangedEvent{
		BaseEvent: newBase(TypePhaseChanged, sessionID, -1),
		FromPhase: fromPhase,
		ToPhase:   toPhase,
		Reason:    reason,
	}
}
