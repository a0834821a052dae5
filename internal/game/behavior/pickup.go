package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

// pickUpItem collects the most attractive remembered item while the
// secondary slot is empty. Items it cannot reach are ignored for a while.
type pickUpItem struct {
	env *env

	forgotten forgetList

	target    core.Position
	hasTarget bool
}

func newPickUpItem(e *env) *pickUpItem {
	return &pickUpItem{env: e, forgotten: make(forgetList)}
}

func (p *pickUpItem) Name() ModuleName { return ModulePickUpItem }

func (p *pickUpItem) Priority(ctx *TickContext) float64 {
	p.hasTarget = false
	agent := ctx.Agent()
	if agent.SecondaryItem != nil {
		return 0
	}

	w := ctx.Weights()
	bestScore, bestDist := 0.0, 0.0
	for _, item := range ctx.Model.Items() {
		if p.forgotten.ignores(item.Position, ctx.Tick) {
			continue
		}
		dist := distanceFactor(agent.Position.DistanceTo(item.Position))
		age := max(0, 1-float64(item.Staleness)/float64(w.ItemRecencyTicks))
		score := w.Item(item.Occupant.Item.Kind) * dist * age
		if score > bestScore {
			bestScore, bestDist = score, dist
			p.target, p.hasTarget = item.Position, true
		}
	}
	return bestDist
}

func (p *pickUpItem) Action(ctx *TickContext) (core.Action, error) {
	if !p.hasTarget {
		return core.Pass, nil
	}
	action, err := p.env.navigate(ctx, ModulePickUpItem, p.target)
	if err != nil {
		return nil, err
	}
	p.env.forgetIfExhausted(ctx, ModulePickUpItem, p.target, p.forgotten)
	return action, nil
}

func (p *pickUpItem) Reset() {
	p.forgotten = make(forgetList)
	p.hasTarget = false
}
