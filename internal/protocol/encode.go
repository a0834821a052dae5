package protocol

import (
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

// EncodeAction builds the response packet answering gameStateID. A nil
// action answers Pass.
func EncodeAction(action core.Action, gameStateID string) (Packet, error) {
	if action == nil {
		action = core.Pass
	}
	if err := action.Validate(); err != nil {
		return Packet{}, fmt.Errorf("encode %s: %w", action, err)
	}

	switch a := action.(type) {
	case core.MoveAction:
		return NewPacket(Movement, MovementPayload{
			GameStateID: gameStateID,
			Direction:   int(a.Direction),
		})
	case core.RotateAction:
		return NewPacket(Rotation, RotationPayload{
			GameStateID:    gameStateID,
			TankRotation:   rotationValue(a.Hull),
			TurretRotation: rotationValue(a.Turret),
		})
	case core.AbilityAction:
		return NewPacket(AbilityUse, AbilityUsePayload{
			GameStateID: gameStateID,
			AbilityType: int(a.Ability),
		})
	case core.PassAction:
		return NewPacket(PassAction, PassPayload{GameStateID: gameStateID})
	default:
		return Packet{}, fmt.Errorf("encode %T: %w", action, core.ErrInvalidAction)
	}
}

func rotationValue(r *core.RotationDirection) *int {
	if r == nil {
		return nil
	}
	v := int(*r)
	return &v
}
