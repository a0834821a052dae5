package core

import "fmt"

// ActionType represents the type of action
type ActionType int

const (
	ActionPass ActionType = iota
	ActionMove
	ActionRotate
	ActionAbility
)

func (t ActionType) String() string {
	switch t {
	case ActionPass:
		return "pass"
	case ActionMove:
		return "move"
	case ActionRotate:
		return "rotate"
	case ActionAbility:
		return "ability"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

// Action is the single response the agent sends for a tick
type Action interface {
	Type() ActionType
	Validate() error
	String() string
}

// MoveDirection is relative to the hull facing. Values match the wire format.
type MoveDirection int

const (
	Forward MoveDirection = iota
	Backward
)

func (m MoveDirection) String() string {
	if m == Backward {
		return "backward"
	}
	return "forward"
}

// AbilityType is a tank ability. Values match the wire format.
type AbilityType int

const (
	AbilityFireBullet AbilityType = iota
	AbilityUseLaser
	AbilityFireDoubleBullet
	AbilityUseRadar
	AbilityDropMine
)

func (a AbilityType) String() string {
	switch a {
	case AbilityFireBullet:
		return "fire_bullet"
	case AbilityUseLaser:
		return "use_laser"
	case AbilityFireDoubleBullet:
		return "fire_double_bullet"
	case AbilityUseRadar:
		return "use_radar"
	case AbilityDropMine:
		return "drop_mine"
	default:
		return fmt.Sprintf("AbilityType(%d)", int(a))
	}
}

// AbilityForItem maps a held item to the ability that consumes it
func AbilityForItem(kind ItemKind) (AbilityType, bool) {
	switch kind {
	case ItemLaser:
		return AbilityUseLaser, true
	case ItemDoubleBullet:
		return AbilityFireDoubleBullet, true
	case ItemRadar:
		return AbilityUseRadar, true
	case ItemMine:
		return AbilityDropMine, true
	default:
		return AbilityFireBullet, false
	}
}

// MoveAction drives the tank one cell
type MoveAction struct {
	Direction MoveDirection
}

func (m MoveAction) Type() ActionType { return ActionMove }
func (m MoveAction) String() string   { return "move " + m.Direction.String() }

func (m MoveAction) Validate() error {
	if m.Direction != Forward && m.Direction != Backward {
		return fmt.Errorf("move direction %d: %w", int(m.Direction), ErrInvalidAction)
	}
	return nil
}

// RotateAction turns hull and turret independently. A nil field leaves that
// part unchanged.
type RotateAction struct {
	Hull   *RotationDirection
	Turret *RotationDirection
}

func (r RotateAction) Type() ActionType { return ActionRotate }

func (r RotateAction) String() string {
	return fmt.Sprintf("rotate hull=%s turret=%s", rotationString(r.Hull), rotationString(r.Turret))
}

func (r RotateAction) Validate() error {
	if r.Hull != nil && !r.Hull.IsValid() {
		return fmt.Errorf("hull rotation %d: %w", int(*r.Hull), ErrInvalidAction)
	}
	if r.Turret != nil && !r.Turret.IsValid() {
		return fmt.Errorf("turret rotation %d: %w", int(*r.Turret), ErrInvalidAction)
	}
	return nil
}

func rotationString(r *RotationDirection) string {
	if r == nil {
		return "none"
	}
	return r.String()
}

// AbilityAction uses a weapon or item
type AbilityAction struct {
	Ability AbilityType
}

func (a AbilityAction) Type() ActionType { return ActionAbility }
func (a AbilityAction) String() string   { return "ability " + a.Ability.String() }

func (a AbilityAction) Validate() error {
	if a.Ability < AbilityFireBullet || a.Ability > AbilityDropMine {
		return fmt.Errorf("ability %d: %w", int(a.Ability), ErrInvalidAction)
	}
	return nil
}

// PassAction does nothing this tick
type PassAction struct{}

func (PassAction) Type() ActionType { return ActionPass }
func (PassAction) String() string   { return "pass" }
func (PassAction) Validate() error  { return nil }

// Pass is the shared no-op response
var Pass Action = PassAction{}

func Move(d MoveDirection) Action { return MoveAction{Direction: d} }

func Rotate(hull, turret *RotationDirection) Action {
	return RotateAction{Hull: hull, Turret: turret}
}

func UseAbility(a AbilityType) Action { return AbilityAction{Ability: a} }
