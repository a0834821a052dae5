package behavior

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// captureZone heads for the nearest zone we do not own and holds position
// inside it. Zone cells it cannot reach are ignored for a while.
type captureZone struct {
	env *env

	forgotten forgetList

	// cached by Priority for Action
	holding   bool
	target    core.Position
	hasTarget bool
}

func newCaptureZone(e *env) *captureZone {
	return &captureZone{env: e, forgotten: make(forgetList)}
}

func (c *captureZone) Name() ModuleName { return ModuleCaptureZone }

func (c *captureZone) Priority(ctx *TickContext) float64 {
	c.holding, c.hasTarget = false, false
	self := ctx.SelfID()
	pos := ctx.Agent().Position

	for _, z := range ctx.Model.Zones() {
		if z.Contains(pos) && !z.Status.OwnedBy(self) {
			c.holding = true
			return ctx.Weights().CaptureZone
		}
	}

	target, ok := nearestZoneCell(ctx.Model, pos, self, func(p core.Position) bool {
		return c.forgotten.ignores(p, ctx.Tick)
	})
	if !ok {
		return 0
	}
	c.target, c.hasTarget = target, true
	return ctx.Weights().CaptureZone
}

func (c *captureZone) Action(ctx *TickContext) (core.Action, error) {
	if c.holding {
		// standing still captures; sweep the turret meanwhile
		c.env.nav.Reset()
		return core.Rotate(nil, core.RotateRight.Ptr()), nil
	}
	if !c.hasTarget {
		return core.Pass, nil
	}
	action, err := c.env.navigate(ctx, ModuleCaptureZone, c.target)
	if err != nil {
		return nil, err
	}
	c.env.forgetIfExhausted(ctx, ModuleCaptureZone, c.target, c.forgotten)
	return action, nil
}

func (c *captureZone) Reset() {
	c.forgotten = make(forgetList)
	c.holding, c.hasTarget = false, false
}

// nearestZoneCell returns the closest enterable cell of any zone not owned by
// self, skipping cells for which skip reports true. A zone we are already
// capturing wins over any zone we are not. Ties go to the zone listed first,
// then row-major order.
func nearestZoneCell(m *world.Model, from core.Position, self string, skip func(core.Position) bool) (core.Position, bool) {
	var best core.Position
	bestDist := -1
	bestResume := false
	for _, z := range m.Zones() {
		if z.Status.OwnedBy(self) {
			continue
		}
		resume := z.Status.CapturingBy(self)
		if bestResume && !resume {
			continue
		}
		for _, p := range z.Cells() {
			if !m.InBounds(p) || !enterable(m.At(p).Occupant.Kind) {
				continue
			}
			if skip != nil && skip(p) {
				continue
			}
			d := from.DistanceTo(p)
			if bestDist < 0 || (resume && !bestResume) || d < bestDist {
				best, bestDist, bestResume = p, d, resume
			}
		}
	}
	return best, bestDist >= 0
}

func enterable(kind core.OccupantKind) bool {
	switch kind {
	case core.OccupantWall, core.OccupantMine, core.OccupantEnemyTank:
		return false
	default:
		return true
	}
}
