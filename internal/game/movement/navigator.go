package movement

import (
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/rs/zerolog"
)

// Navigator follows a planned path across ticks and replans when the target
// changes, the agent leaves the path or the danger along it changes.
type Navigator struct {
	escalation    *pathfinding.Escalation
	allowBackward bool
	logger        zerolog.Logger

	target    core.Position
	hasTarget bool
	start     core.Position
	path      pathfinding.Path
	planned   []float64
	next      int

	arrived    bool
	lastFailed bool
	replans    int
}

// NewNavigator creates a navigator using the given escalation ladder
func NewNavigator(esc *pathfinding.Escalation, allowBackward bool, logger zerolog.Logger) *Navigator {
	return &Navigator{
		escalation:    esc,
		allowBackward: allowBackward,
		logger:        logger.With().Str("component", "Navigator").Logger(),
	}
}

// Next returns the action that advances the agent toward target this tick.
// On arrival it returns Pass and Arrived reports true. A planning failure
// returns an error wrapping pathfinding.ErrNoPath and sets LastFailed.
func (n *Navigator) Next(m *world.Model, f threat.Field, target core.Position) (core.Action, error) {
	agent := m.Agent()
	if agent.IsDead() {
		return core.Pass, nil
	}
	pos := agent.Position
	n.arrived = false
	n.lastFailed = false

	if !n.hasTarget || n.target != target {
		n.clearPath()
		n.target = target
		n.hasTarget = true
	}
	n.escalation.Target(target)

	if pos == target {
		n.clearPath()
		n.arrived = true
		return core.Pass, nil
	}

	n.advance(pos)
	if n.stale(m, f, pos) {
		if err := n.plan(m, f, pos); err != nil {
			return nil, err
		}
	}

	action, err := NextAction(agent.Pose(), n.path[n.next], n.allowBackward)
	if err != nil {
		n.clearPath()
		return nil, err
	}
	return action, nil
}

// advance moves the waypoint pointer past cells already reached
func (n *Navigator) advance(pos core.Position) {
	for i := n.next; i < len(n.path); i++ {
		if n.path[i] == pos {
			n.next = i + 1
			return
		}
	}
}

func (n *Navigator) anchor() core.Position {
	if n.next == 0 {
		return n.start
	}
	return n.path[n.next-1]
}

func (n *Navigator) stale(m *world.Model, f threat.Field, pos core.Position) bool {
	if n.path == nil || n.next >= len(n.path) {
		return true
	}
	if n.anchor() != pos {
		return true
	}
	for i := n.next; i < len(n.path); i++ {
		p := n.path[i]
		if m.IsWall(p) || f.At(p) != n.planned[i] {
			return true
		}
	}
	return false
}

func (n *Navigator) plan(m *world.Model, f threat.Field, pos core.Position) error {
	threshold := n.escalation.Threshold()
	path, err := pathfinding.FindPath(m, f, pos, n.target, threshold)
	if err != nil {
		n.escalation.Failed()
		n.lastFailed = true
		n.clearPath()
		n.logger.Debug().
			Str("from", pos.String()).
			Str("target", n.target.String()).
			Float64("threshold", threshold).
			Int("rung", n.escalation.Step()).
			Err(err).
			Msg("Path planning failed")
		return fmt.Errorf("navigate to %s: %w", n.target, err)
	}

	n.escalation.Succeeded()
	n.start = pos
	n.path = path
	n.next = 0
	n.planned = make([]float64, len(path))
	for i, p := range path {
		n.planned[i] = f.At(p)
	}
	n.replans++
	return nil
}

func (n *Navigator) clearPath() {
	n.path = nil
	n.planned = nil
	n.next = 0
}

// Reset drops the target, the path and the escalation state
func (n *Navigator) Reset() {
	n.clearPath()
	n.hasTarget = false
	n.arrived = false
	n.lastFailed = false
	n.escalation.Reset()
}

// Arrived reports whether the last Next call found the agent on the target
func (n *Navigator) Arrived() bool { return n.arrived }

// LastFailed reports whether the last Next call could not plan a path
func (n *Navigator) LastFailed() bool { return n.lastFailed }

// Exhausted reports whether every danger threshold failed for the target
func (n *Navigator) Exhausted() bool { return n.escalation.Exhausted() }

// Target returns the current target, if any
func (n *Navigator) Target() (core.Position, bool) { return n.target, n.hasTarget }

// Remaining returns the waypoints not yet reached
func (n *Navigator) Remaining() pathfinding.Path {
	if n.next >= len(n.path) {
		return nil
	}
	return n.path[n.next:]
}

// Replans counts successful path plans since creation
func (n *Navigator) Replans() int { return n.replans }
