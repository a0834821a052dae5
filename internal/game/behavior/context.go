package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// TickContext is the read-only input every module sees for one tick
type TickContext struct {
	Tick  int
	Model *world.Model
	Field threat.Field
	// TicksSinceDangerChange counts consecutive ticks with an unchanged
	// threat field
	TicksSinceDangerChange int

	weights *Weights
}

// Agent returns our tank for this tick
func (c *TickContext) Agent() *core.Agent {
	return c.Model.Agent()
}

// SelfID returns our player id
func (c *TickContext) SelfID() string {
	return c.Model.SelfID()
}

// Weights returns the weights in force for this tick
func (c *TickContext) Weights() *Weights {
	if c.weights == nil {
		w := DefaultWeights()
		c.weights = &w
	}
	return c.weights
}
