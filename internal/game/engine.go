package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/behavior"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// EngineConfig wires an Engine
type EngineConfig struct {
	Options   behavior.Options
	Weights   behavior.Weights
	Publisher events.Publisher
	Logger    zerolog.Logger
	// SessionID tags events and traces; a random UUID when empty
	SessionID string
}

// EngineStats counts what happened since the engine was created
type EngineStats struct {
	Decided    int
	Violations int
	Panics     int
}

// Engine turns one snapshot into one action. It is not safe for concurrent
// use; the transport guarantees a single decision in flight.
type Engine struct {
	sessionID string
	model     *world.Model
	arbiter   *behavior.Arbiter
	publisher events.Publisher
	logger    zerolog.Logger

	lastField  threat.Field
	hasField   bool
	quietTicks int
	stats      EngineStats
}

// NewEngine creates the world model and the arbiter for one agent session
func NewEngine(cfg EngineConfig) (*Engine, error) {
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	logger := cfg.Logger.With().Str("component", "DecisionEngine").Str("session_id", sessionID).Logger()

	opts := cfg.Options
	opts.SessionID = sessionID
	arbiter, err := behavior.NewArbiter(opts, cfg.Weights, publisher, logger)
	if err != nil {
		return nil, fmt.Errorf("create arbiter: %w", err)
	}

	return &Engine{
		sessionID: sessionID,
		model:     world.NewModel(logger),
		arbiter:   arbiter,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Decide runs the full pipeline for one snapshot. It never fails: contract
// violations, a dead agent and internal panics all answer Pass.
func (e *Engine) Decide(s *world.Snapshot) (action core.Action) {
	start := time.Now()
	tick := -1
	if s != nil {
		tick = s.Tick
	}

	defer func() {
		if r := recover(); r != nil {
			e.stats.Panics++
			e.logger.Error().
				Int("tick", tick).
				Interface("panic", r).
				Msg("Decision panicked, passing")
			action = core.Pass
		}
	}()

	if err := e.model.Update(s); err != nil {
		e.stats.Violations++
		if core.IsContractError(err) {
			e.logger.Error().Int("tick", tick).Err(err).Msg("Snapshot violates the server contract")
		} else {
			e.logger.Error().Int("tick", tick).Err(err).Msg("Snapshot rejected")
		}
		e.publisher.Publish(events.NewContractViolationEvent(e.sessionID, tick, err))
		return core.Pass
	}

	field := threat.Compute(e.model)
	if e.hasField && field.Equal(e.lastField) {
		e.quietTicks++
	} else {
		e.quietTicks = 0
	}
	e.lastField, e.hasField = field, true

	if e.model.Agent().IsDead() {
		e.logger.Debug().Int("tick", tick).Msg("Agent is dead, passing")
	}

	action = e.arbiter.Decide(behavior.TickContext{
		Tick:                   tick,
		Model:                  e.model,
		Field:                  field,
		TicksSinceDangerChange: e.quietTicks,
	})
	took := time.Since(start)
	e.stats.Decided++

	e.logger.Debug().
		Int("tick", tick).
		Str("module", string(e.arbiter.Active())).
		Str("action", action.String()).
		Dur("took", took).
		Msg("Tick decided")
	e.publish(tick, action, took, field)
	return action
}

func (e *Engine) publish(tick int, action core.Action, took time.Duration, field threat.Field) {
	scores := e.arbiter.Priorities()
	module := ""
	priority := 0.0
	if len(scores) > 0 {
		module = string(e.arbiter.Active())
		priority = e.arbiter.ActivePriority()
	}
	evt := events.NewTickDecidedEvent(e.sessionID, tick, module, action, priority, took, field.Max())
	if len(scores) > 0 {
		evt.Priorities = make(map[string]float64, len(scores))
		for _, sc := range scores {
			evt.Priorities[string(sc.Module)] = sc.Priority
		}
	}
	evt.PathLength = e.arbiter.PathLength()
	evt.Replans = e.arbiter.Replans()
	e.publisher.Publish(evt)
}

// Reset forgets the map and all behavior memory, for a new match
func (e *Engine) Reset() {
	e.model = world.NewModel(e.logger)
	e.arbiter.Reset()
	e.hasField = false
	e.quietTicks = 0
	e.logger.Info().Msg("Decision engine reset")
}

// SetWeights hot-swaps behavior weights between ticks
func (e *Engine) SetWeights(w behavior.Weights) error {
	return e.arbiter.SetWeights(w)
}

// SessionID returns the id attached to events and traces
func (e *Engine) SessionID() string { return e.sessionID }

// Model exposes the world model for diagnostics
func (e *Engine) Model() *world.Model { return e.model }

// Stats returns the decision counters
func (e *Engine) Stats() EngineStats { return e.stats }
