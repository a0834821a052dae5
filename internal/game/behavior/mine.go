package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
)

// layMine drops a carried mine where it does not box us in
type layMine struct{}

func newLayMine(*env) *layMine { return &layMine{} }

func (l *layMine) Name() ModuleName { return ModuleLayMine }

func (l *layMine) Priority(ctx *TickContext) float64 {
	agent := ctx.Agent()
	if !agent.HasItem(core.ItemMine) || ctx.Model.Grid().OnBorder(agent.Position) {
		return 0
	}
	open := 0
	for _, n := range agent.Position.Neighbors() {
		if pathfinding.Walkable(ctx.Model, ctx.Field, n, pathfinding.DefaultThreshold) {
			open++
		}
	}
	if open < 2 {
		return 0
	}
	return ctx.Weights().LayMine
}

func (l *layMine) Action(*TickContext) (core.Action, error) {
	return core.UseAbility(core.AbilityDropMine), nil
}

func (l *layMine) Reset() {}
