package movement

import (
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

var (
	// ErrIllegalDelta means the waypoint is not a single orthogonal step away
	ErrIllegalDelta = errors.New("waypoint is not a unit step")
	// ErrNoRotation means no turn is known for the facing and target pair
	ErrNoRotation = errors.New("no rotation for facing")
)

type turnKey struct {
	facing core.Direction
	target core.Direction
}

// turns maps every non-aligned (facing, target) pair to a single 90 degree
// turn. Perpendicular pairs use the shorter turn, opposite pairs always turn
// clockwise.
var turns = map[turnKey]core.RotationDirection{
	{core.Up, core.Right}:   core.RotateRight,
	{core.Down, core.Right}: core.RotateLeft,
	{core.Left, core.Right}: core.RotateRight,
	{core.Up, core.Left}:    core.RotateLeft,
	{core.Down, core.Left}:  core.RotateRight,
	{core.Right, core.Left}: core.RotateRight,
	{core.Right, core.Up}:   core.RotateLeft,
	{core.Left, core.Up}:    core.RotateRight,
	{core.Down, core.Up}:    core.RotateRight,
	{core.Right, core.Down}: core.RotateRight,
	{core.Left, core.Down}:  core.RotateLeft,
	{core.Up, core.Down}:    core.RotateRight,
}

// Turn returns the single rotation that brings facing closer to target
func Turn(facing, target core.Direction) (core.RotationDirection, error) {
	r, ok := turns[turnKey{facing: facing, target: target}]
	if !ok {
		return core.RotateRight, fmt.Errorf("facing %s toward %s: %w", facing, target, ErrNoRotation)
	}
	return r, nil
}

// NextAction compiles one step toward an adjacent waypoint into the single
// legal action for this tick: move forward when facing it, move backward when
// facing away and allowed, otherwise turn the hull.
func NextAction(pose core.Pose, waypoint core.Position, allowBackward bool) (core.Action, error) {
	target, ok := pose.Position.DirectionTo(waypoint)
	if !ok {
		return nil, fmt.Errorf("from %s to %s: %w", pose.Position, waypoint, ErrIllegalDelta)
	}

	if pose.Direction == target {
		return core.Move(core.Forward), nil
	}
	if allowBackward && pose.Direction.Opposite() == target {
		return core.Move(core.Backward), nil
	}

	r, err := Turn(pose.Direction, target)
	if err != nil {
		return nil, err
	}
	return core.Rotate(r.Ptr(), nil), nil
}

// TurretRotation returns the turret turn that points it from one cell at an
// aligned target. A nil rotation means the turret already points at it.
func TurretRotation(from, to core.Position, turret core.Direction) (*core.RotationDirection, error) {
	if from == to || !from.IsAlignedWith(to) {
		return nil, fmt.Errorf("turret from %s to %s: %w", from, to, ErrIllegalDelta)
	}
	target := DirectionToward(from, to)
	if turret == target {
		return nil, nil
	}
	r, err := Turn(turret, target)
	if err != nil {
		return nil, err
	}
	return r.Ptr(), nil
}

// DirectionToward returns the direction from one cell toward an aligned cell
func DirectionToward(from, to core.Position) core.Direction {
	switch {
	case to.Row < from.Row:
		return core.Up
	case to.Row > from.Row:
		return core.Down
	case to.Col < from.Col:
		return core.Left
	default:
		return core.Right
	}
}
