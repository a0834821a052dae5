package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/common"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/movement"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// fight engages the closest visible enemy: it lines up on the enemy's row or
// column, turns the turret and fires
type fight struct {
	env *env

	// cached by Priority for Action
	target  core.Position
	aligned bool
	path    pathfinding.Path
}

func newFight(e *env) *fight {
	return &fight{env: e}
}

func (f *fight) Name() ModuleName { return ModuleFight }

func (f *fight) Priority(ctx *TickContext) float64 {
	f.path = nil
	f.aligned = false

	agent := ctx.Agent()
	if !armed(agent) && agent.TicksToReload == nil {
		return 0
	}
	enemy, ok := closestEnemy(ctx.Model, agent.Position)
	if !ok {
		return 0
	}
	f.target = enemy

	if agent.Position.IsAlignedWith(enemy) && pathfinding.ClearLine(ctx.Model, agent.Position, enemy) {
		f.aligned = true
		if armed(agent) {
			return ctx.Weights().Fight
		}
		// turn the turret while the next bullet loads
		if agent.TurretDirection != movement.DirectionToward(agent.Position, enemy) && loadedWithin(agent, 1) {
			return ctx.Weights().Fight
		}
		return 0
	}

	path, err := pathfinding.FindAlignment(ctx.Model, ctx.Field, pathfinding.AlignmentQuery{
		Start:  agent.Position,
		Facing: agent.Direction,
		IsTarget: func(p core.Position) bool {
			return p != enemy && p.IsAlignedWith(enemy) && pathfinding.ClearLine(ctx.Model, p, enemy)
		},
		MaxDepth:  f.env.opts.AlignmentDepth,
		Threshold: f.env.opts.FightThreshold,
	})
	if err != nil || len(path) == 0 || !loadedWithin(agent, len(path)) {
		return 0
	}
	f.path = path
	return ctx.Weights().Fight
}

func (f *fight) Action(ctx *TickContext) (core.Action, error) {
	agent := ctx.Agent()
	if f.aligned {
		rot, err := movement.TurretRotation(agent.Position, f.target, agent.TurretDirection)
		if err != nil {
			return nil, err
		}
		if rot != nil {
			return core.Rotate(nil, rot), nil
		}
		return fire(agent), nil
	}
	if len(f.path) == 0 {
		return core.Pass, nil
	}
	// alignment paths only use forward moves and hull turns
	return movement.NextAction(agent.Pose(), f.path[0], false)
}

func (f *fight) Reset() {
	f.path = nil
	f.aligned = false
}

// closestEnemy picks the visible enemy nearest to lining up with, measured
// by the smaller axis offset and then by Manhattan distance
func closestEnemy(m *world.Model, from core.Position) (core.Position, bool) {
	var best core.Position
	found := false
	bestAxis, bestDist := 0, 0
	for _, e := range m.Enemies(true) {
		axis := min(common.Abs(e.Position.Row-from.Row), common.Abs(e.Position.Col-from.Col))
		dist := from.DistanceTo(e.Position)
		if !found || axis < bestAxis || (axis == bestAxis && dist < bestDist) {
			best, bestAxis, bestDist, found = e.Position, axis, dist, true
		}
	}
	return best, found
}

func armed(a *core.Agent) bool {
	return a.BulletCount > 0 || a.HasItem(core.ItemLaser) || a.HasItem(core.ItemDoubleBullet)
}

// loadedWithin reports whether the agent can fire within the given number of
// ticks, counting a pending bullet reload
func loadedWithin(a *core.Agent, ticks int) bool {
	return armed(a) || (a.TicksToReload != nil && *a.TicksToReload <= ticks)
}

// fire uses the strongest weapon available
func fire(a *core.Agent) core.Action {
	switch {
	case a.HasItem(core.ItemLaser):
		return core.UseAbility(core.AbilityUseLaser)
	case a.HasItem(core.ItemDoubleBullet):
		return core.UseAbility(core.AbilityFireDoubleBullet)
	case a.BulletCount > 0:
		return core.UseAbility(core.AbilityFireBullet)
	default:
		return core.Pass
	}
}
