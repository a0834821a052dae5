package behavior

import (
	"errors"
	"math/rand"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/movement"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/rs/zerolog"
)

// ModuleName identifies a behavior module in logs, events and traces
type ModuleName string

const (
	ModuleNone        ModuleName = ""
	ModuleFight       ModuleName = "fight"
	ModuleCaptureZone ModuleName = "capture_zone"
	ModulePickUpItem  ModuleName = "pickup_item"
	ModuleLayMine     ModuleName = "lay_mine"
	ModuleScan        ModuleName = "scan"
	ModuleWander      ModuleName = "wander"
)

// Module is one competing behavior. Priority must not mutate the world and
// may only cache what Action needs for the same tick.
type Module interface {
	Name() ModuleName
	Priority(ctx *TickContext) float64
	Action(ctx *TickContext) (core.Action, error)
	// Reset clears per-match memory
	Reset()
}

// env is what the arbiter shares with its modules
type env struct {
	opts      Options
	nav       *movement.Navigator
	rng       *rand.Rand
	publisher events.Publisher
	logger    zerolog.Logger
}

// navigate drives toward target with the shared navigator. A missing path is
// published and answered with Pass; the caller can inspect the navigator to
// decide whether to give up on the target.
func (e *env) navigate(ctx *TickContext, module ModuleName, target core.Position) (core.Action, error) {
	action, err := e.nav.Next(ctx.Model, ctx.Field, target)
	if errors.Is(err, pathfinding.ErrNoPath) {
		e.publisher.Publish(events.NewPathNotFoundEvent(
			e.opts.SessionID, ctx.Tick, string(module), ctx.Agent().Position, target, e.nav.Exhausted()))
		return core.Pass, nil
	}
	return action, err
}

// forgetList maps targets a module gave up on to the tick they become
// eligible again
type forgetList map[core.Position]int

// ignores reports whether p is still forgotten at tick. Expired entries are
// dropped.
func (f forgetList) ignores(p core.Position, tick int) bool {
	until, ok := f[p]
	if !ok {
		return false
	}
	if tick < until {
		return true
	}
	delete(f, p)
	return false
}

// forgetIfExhausted gives up on target once the navigator has failed on the
// last rung of the ladder
func (e *env) forgetIfExhausted(ctx *TickContext, module ModuleName, target core.Position, list forgetList) {
	if !e.nav.LastFailed() || !e.nav.Exhausted() {
		return
	}
	until := ctx.Tick + e.opts.ForgetTicks
	list[target] = until
	e.nav.Reset()
	e.logger.Debug().
		Int("tick", ctx.Tick).
		Str("module", string(module)).
		Str("target", target.String()).
		Int("until", until).
		Msg("Forgetting unreachable target")
	e.publisher.Publish(events.NewTargetForgottenEvent(
		e.opts.SessionID, ctx.Tick, string(module), target, until))
}
