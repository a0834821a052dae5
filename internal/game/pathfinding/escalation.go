package pathfinding

import "github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"

// DefaultLadder is the sequence of danger thresholds tried for a target
var DefaultLadder = []float64{0.2, 0.5, 0.8, 1.0}

// Escalation relaxes the danger threshold for a target after repeated
// planning failures. A new target starts again from the bottom of the ladder.
type Escalation struct {
	ladder          []float64
	failuresPerStep int

	target    core.Position
	hasTarget bool
	step      int
	failures  int
}

// NewEscalation creates a ladder. An empty ladder falls back to
// DefaultLadder and failuresPerStep below 1 is treated as 1.
func NewEscalation(ladder []float64, failuresPerStep int) *Escalation {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	if failuresPerStep < 1 {
		failuresPerStep = 1
	}
	l := make([]float64, len(ladder))
	copy(l, ladder)
	return &Escalation{ladder: l, failuresPerStep: failuresPerStep}
}

// Target sets the goal being planned for, resetting the ladder if it changed
func (e *Escalation) Target(p core.Position) {
	if e.hasTarget && e.target == p {
		return
	}
	e.target = p
	e.hasTarget = true
	e.step = 0
	e.failures = 0
}

// Threshold returns the danger threshold for the current rung
func (e *Escalation) Threshold() float64 {
	return e.ladder[e.step]
}

// Step returns the index of the current rung
func (e *Escalation) Step() int { return e.step }

// Failed records a planning failure and climbs a rung when enough have
// accumulated
func (e *Escalation) Failed() {
	e.failures++
	if e.failures >= e.failuresPerStep && e.step < len(e.ladder)-1 {
		e.step++
		e.failures = 0
	}
}

// Succeeded clears the consecutive failure count and steps back down one
// rung, so the next plan for the same target tries a safer threshold first
func (e *Escalation) Succeeded() {
	e.failures = 0
	if e.step > 0 {
		e.step--
	}
}

// Exhausted reports whether the top rung has failed FailuresPerStep times
func (e *Escalation) Exhausted() bool {
	return e.step == len(e.ladder)-1 && e.failures >= e.failuresPerStep
}

// Reset forgets the target
func (e *Escalation) Reset() {
	e.hasTarget = false
	e.step = 0
	e.failures = 0
}
