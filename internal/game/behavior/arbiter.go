package behavior

import (
	"errors"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/common"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/movement"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/rs/zerolog"
)

// Options tunes the arbiter and its modules. Zero values fall back to
// DefaultOptions field by field.
type Options struct {
	Ladder          []float64
	FailuresPerStep int
	AllowBackward   bool

	// ForgetTicks is how long an unreachable item or zone cell is ignored
	ForgetTicks int
	// WanderRadius bounds the square wander targets are drawn from
	WanderRadius int
	// ScanWindow is the gap below which consecutive scans count as a streak
	ScanWindow int
	// ScanSaturation is the streak length at which scanning stops paying off
	ScanSaturation int
	// QuietTicks is how long the threat field must stay unchanged before
	// Scan gets its bonus
	QuietTicks     int
	AlignmentDepth int
	// FightThreshold is the danger cells on the way to a firing position may carry
	FightThreshold float64

	Seed      int64
	SessionID string
}

// DefaultOptions returns the stock tuning
func DefaultOptions() Options {
	return Options{
		Ladder:          pathfinding.DefaultLadder,
		FailuresPerStep: 1,
		ForgetTicks:     100,
		WanderRadius:    5,
		ScanWindow:      100,
		ScanSaturation:  5,
		QuietTicks:      50,
		AlignmentDepth:  pathfinding.DefaultAlignmentDepth,
		FightThreshold:  0.5,
		Seed:            1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Ladder) == 0 {
		o.Ladder = d.Ladder
	}
	if o.FailuresPerStep <= 0 {
		o.FailuresPerStep = d.FailuresPerStep
	}
	if o.ForgetTicks <= 0 {
		o.ForgetTicks = d.ForgetTicks
	}
	if o.WanderRadius <= 0 {
		o.WanderRadius = d.WanderRadius
	}
	if o.ScanWindow <= 0 {
		o.ScanWindow = d.ScanWindow
	}
	if o.ScanSaturation <= 0 {
		o.ScanSaturation = d.ScanSaturation
	}
	if o.QuietTicks <= 0 {
		o.QuietTicks = d.QuietTicks
	}
	if o.AlignmentDepth <= 0 {
		o.AlignmentDepth = d.AlignmentDepth
	}
	if o.FightThreshold <= 0 {
		o.FightThreshold = d.FightThreshold
	}
	return o
}

// Score is one module's priority for the last decided tick
type Score struct {
	Module   ModuleName
	Priority float64
}

// Arbiter scores every module each tick and runs the winner. It owns all
// per-match memory, so one arbiter serves one agent.
type Arbiter struct {
	env     *env
	modules []Module
	weights atomic.Pointer[Weights]
	logger  zerolog.Logger

	active     ModuleName
	priorities []Score
}

// NewArbiter creates an arbiter with the fixed roster Fight, CaptureZone,
// PickUpItem, LayMine, Scan, Wander
func NewArbiter(opts Options, weights Weights, publisher events.Publisher, logger zerolog.Logger) (*Arbiter, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "Arbiter").Logger()

	e := &env{
		opts:      opts,
		nav:       movement.NewNavigator(pathfinding.NewEscalation(opts.Ladder, opts.FailuresPerStep), opts.AllowBackward, logger),
		rng:       rand.New(rand.NewSource(opts.Seed)),
		publisher: publisher,
		logger:    logger,
	}
	a := &Arbiter{
		env: e,
		modules: []Module{
			newFight(e),
			newCaptureZone(e),
			newPickUpItem(e),
			newLayMine(e),
			newScan(e),
			newWander(e),
		},
		logger: logger,
	}
	a.weights.Store(cloneWeights(weights))
	return a, nil
}

func cloneWeights(w Weights) *Weights {
	c := w.Clone()
	return &c
}

// SetWeights swaps the weights used from the next tick on. Safe to call from
// another goroutine.
func (a *Arbiter) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	a.weights.Store(cloneWeights(w))
	a.logger.Info().Msg("Behavior weights updated")
	return nil
}

// Weights returns the weights currently in force
func (a *Arbiter) Weights() Weights {
	return a.weights.Load().Clone()
}

// Decide picks the module with the highest priority and returns its action.
// It always returns a valid action.
func (a *Arbiter) Decide(ctx TickContext) core.Action {
	ctx.weights = a.weights.Load()
	agent := ctx.Agent()
	if agent.IsDead() {
		a.priorities = nil
		return core.Pass
	}

	scores := make([]Score, len(a.modules))
	best := -1
	for i, m := range a.modules {
		p := clampPriority(m.Priority(&ctx))
		scores[i] = Score{Module: m.Name(), Priority: p}
		if best < 0 || p > scores[best].Priority {
			best = i
		}
	}
	// a tie at the top keeps the module already in control
	for i, s := range scores {
		if s.Module == a.active && s.Priority == scores[best].Priority {
			best = i
			break
		}
	}
	a.priorities = scores

	winner := a.modules[best]
	if winner.Name() != a.active {
		a.logger.Debug().
			Int("tick", ctx.Tick).
			Str("from", string(a.active)).
			Str("to", string(winner.Name())).
			Float64("priority", scores[best].Priority).
			Msg("Switching behavior module")
		a.env.publisher.Publish(events.NewModuleSwitchedEvent(
			a.env.opts.SessionID, ctx.Tick, string(a.active), string(winner.Name()), scores[best].Priority))
		a.active = winner.Name()
	}

	action, err := winner.Action(&ctx)
	if err != nil {
		return a.fallback(ctx.Tick, winner.Name(), err)
	}
	if action == nil {
		a.logger.Error().Int("tick", ctx.Tick).Str("module", string(winner.Name())).Msg("Module returned no action")
		return core.Pass
	}
	if err := action.Validate(); err != nil {
		a.logger.Error().Int("tick", ctx.Tick).Str("module", string(winner.Name())).Err(err).Msg("Module returned an invalid action")
		return core.Pass
	}
	return action
}

// fallback degrades a failed module action to something safe. Compilation
// failures are bugs, so they are logged at error level and answered with a
// random hull turn which is always legal.
func (a *Arbiter) fallback(tick int, module ModuleName, err error) core.Action {
	switch {
	case errors.Is(err, movement.ErrIllegalDelta), errors.Is(err, movement.ErrNoRotation):
		a.logger.Error().Int("tick", tick).Str("module", string(module)).Err(err).Msg("Action compilation failed, turning at random")
		a.env.nav.Reset()
		r := core.RotationDirection(a.env.rng.Intn(2))
		return core.Rotate(r.Ptr(), nil)
	case errors.Is(err, pathfinding.ErrNoPath):
		a.logger.Debug().Int("tick", tick).Str("module", string(module)).Err(err).Msg("No path, passing")
		return core.Pass
	default:
		a.logger.Error().Int("tick", tick).Str("module", string(module)).Err(err).Msg("Module action failed")
		return core.Pass
	}
}

func clampPriority(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return common.Clamp(p, 0, 1)
}

// Reset clears all per-match memory and reseeds the random source so a new
// match replays deterministically
func (a *Arbiter) Reset() {
	for _, m := range a.modules {
		m.Reset()
	}
	a.env.nav.Reset()
	a.env.rng.Seed(a.env.opts.Seed)
	a.active = ModuleNone
	a.priorities = nil
}

// Active returns the module that decided the last tick
func (a *Arbiter) Active() ModuleName { return a.active }

// Priorities returns the scores of the last decided tick in roster order
func (a *Arbiter) Priorities() []Score {
	out := make([]Score, len(a.priorities))
	copy(out, a.priorities)
	return out
}

// ActivePriority returns the winning priority of the last decided tick
func (a *Arbiter) ActivePriority() float64 {
	for _, s := range a.priorities {
		if s.Module == a.active {
			return s.Priority
		}
	}
	return 0
}

// PathLength returns the number of waypoints left on the current route
func (a *Arbiter) PathLength() int {
	return len(a.env.nav.Remaining())
}

// Replans returns how many routes the navigator has planned so far
func (a *Arbiter) Replans() int {
	return a.env.nav.Replans()
}
