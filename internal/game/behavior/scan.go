package behavior

import "github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"

// scan looks around: a radar pulse when one is carried, otherwise a hull
// and turret turn in opposite senses. Scans in quick succession lose value.
type scan struct {
	env *env

	count    int
	lastTick int
	scanned  bool
}

func newScan(e *env) *scan {
	return &scan{env: e}
}

func (s *scan) Name() ModuleName { return ModuleScan }

// streak returns the scan count still in effect at tick
func (s *scan) streak(tick int) int {
	if !s.scanned || tick-s.lastTick >= s.env.opts.ScanWindow {
		return 0
	}
	return s.count
}

func (s *scan) Priority(ctx *TickContext) float64 {
	w := ctx.Weights()
	decay := max(0, 1-float64(s.streak(ctx.Tick))/float64(s.env.opts.ScanSaturation))
	p := decay*w.ScanBase + w.ScanFloor
	if ctx.TicksSinceDangerChange >= s.env.opts.QuietTicks {
		p += w.ScanQuietBonus
	}
	return p
}

func (s *scan) Action(ctx *TickContext) (core.Action, error) {
	s.count = s.streak(ctx.Tick) + 1
	s.lastTick = ctx.Tick
	s.scanned = true

	if ctx.Agent().HasItem(core.ItemRadar) {
		return core.UseAbility(core.AbilityUseRadar), nil
	}
	return core.Rotate(core.RotateRight.Ptr(), core.RotateLeft.Ptr()), nil
}

func (s *scan) Reset() {
	s.count = 0
	s.lastTick = 0
	s.scanned = false
}
