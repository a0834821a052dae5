package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
)

// wander roams to random nearby cells. It keeps a target until it arrives or
// fails to plan toward it.
type wander struct {
	env *env

	target    core.Position
	hasTarget bool
}

func newWander(e *env) *wander {
	return &wander{env: e}
}

func (w *wander) Name() ModuleName { return ModuleWander }

func (w *wander) Priority(ctx *TickContext) float64 {
	return ctx.Weights().Wander
}

func (w *wander) Action(ctx *TickContext) (core.Action, error) {
	pos := ctx.Agent().Position
	if w.hasTarget && w.target == pos {
		w.hasTarget = false
	}
	if !w.hasTarget && !w.pick(ctx, pos) {
		return core.Pass, nil
	}

	action, err := w.env.navigate(ctx, ModuleWander, w.target)
	if err != nil {
		return nil, err
	}
	if w.env.nav.Arrived() || w.env.nav.LastFailed() {
		w.hasTarget = false
	}
	return action, nil
}

func (w *wander) pick(ctx *TickContext, pos core.Position) bool {
	cells := pathfinding.WalkableNear(ctx.Model, ctx.Field, pos, w.env.opts.WanderRadius, 0)
	if len(cells) == 0 {
		return false
	}
	w.target = cells[w.env.rng.Intn(len(cells))]
	w.hasTarget = true
	return true
}

func (w *wander) Target() (core.Position, bool) { return w.target, w.hasTarget }

func (w *wander) Reset() {
	w.hasTarget = false
}
