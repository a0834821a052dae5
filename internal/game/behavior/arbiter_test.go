package behavior

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/movement"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/testutil"
)

// stubModule returns a fixed priority and action
type stubModule struct {
	name     ModuleName
	priority float64
	action   core.Action
	err      error
	resets   int
}

func (s *stubModule) Name() ModuleName                         { return s.name }
func (s *stubModule) Priority(*TickContext) float64            { return s.priority }
func (s *stubModule) Action(*TickContext) (core.Action, error) { return s.action, s.err }
func (s *stubModule) Reset()                                   { s.resets++ }

type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(e events.Event) { r.events = append(r.events, e) }

func (r *recorder) ofType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestArbiter(t *testing.T, pub events.Publisher) *Arbiter {
	t.Helper()
	a, err := NewArbiter(DefaultOptions(), DefaultWeights(), pub, testutil.NopLogger())
	require.NoError(t, err)
	return a
}

func tickFor(m *world.Model) TickContext {
	return TickContext{Tick: m.Tick(), Model: m, Field: threat.Compute(m)}
}

func captureScenario() *testutil.SnapshotBuilder {
	return testutil.NewSnapshot(
		"A....",
		".....",
		".....",
		".....",
		".....",
	).Facing(core.Right, core.Right).WithZone(core.Zone{Index: 0, X: 4, Y: 4, Width: 1, Height: 1})
}

func TestArbiter_Decide_CaptureScenario(t *testing.T) {
	// Arrange
	m := testutil.ModelFrom(t, captureScenario().Build())
	a := newTestArbiter(t, nil)

	// Act
	action := a.Decide(tickFor(m))

	// Assert
	assert.Equal(t, core.Move(core.Forward), action)
	assert.Equal(t, ModuleCaptureZone, a.Active())
	assert.Equal(t, 0.65, a.ActivePriority())
	assert.Equal(t, 8, a.PathLength(), "Manhattan path to the zone")
	assert.Equal(t, 1, a.Replans())

	scores := a.Priorities()
	require.Len(t, scores, 6)
	names := make([]ModuleName, len(scores))
	for i, s := range scores {
		names[i] = s.Module
		if s.Module != ModuleCaptureZone {
			assert.Less(t, s.Priority, 0.65, "module %s", s.Module)
		}
	}
	assert.Equal(t, []ModuleName{ModuleFight, ModuleCaptureZone, ModulePickUpItem, ModuleLayMine, ModuleScan, ModuleWander}, names)
}

func TestArbiter_Decide_Deterministic(t *testing.T) {
	run := func(a *Arbiter) []string {
		var out []string
		m := world.NewModel(zerolog.Nop())
		for tick := 1; tick <= 12; tick++ {
			require.NoError(t, m.Update(testutil.NewSnapshot(
				".......",
				".......",
				"...A...",
				".......",
				".......",
			).Tick(tick).Build()))
			out = append(out, fmt.Sprintf("%s:%s", a.Decide(tickFor(m)), a.Active()))
		}
		return out
	}

	first := newTestArbiter(t, nil)
	second := newTestArbiter(t, nil)

	firstRun := run(first)
	assert.Equal(t, firstRun, run(second))

	first.Reset()
	assert.Equal(t, firstRun, run(first), "reset replays the match")
}

func TestArbiter_Decide_Ties(t *testing.T) {
	tests := []struct {
		name     string
		active   ModuleName
		expected ModuleName
	}{
		{"roster order without history", ModuleNone, ModuleFight},
		{"active module keeps control", ModuleWander, ModuleWander},
		{"untied active module loses", ModuleScan, ModuleFight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Build())
			a := newTestArbiter(t, nil)
			a.modules = []Module{
				&stubModule{name: ModuleFight, priority: 0.5, action: core.Pass},
				&stubModule{name: ModuleScan, priority: 0.2, action: core.Pass},
				&stubModule{name: ModuleWander, priority: 0.5, action: core.Pass},
			}
			a.active = tt.active

			// Act
			a.Decide(tickFor(m))

			// Assert
			assert.Equal(t, tt.expected, a.Active())
		})
	}
}

func TestArbiter_Decide_PublishesModuleSwitch(t *testing.T) {
	// Arrange
	rec := &recorder{}
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Build())
	a := newTestArbiter(t, rec)
	fight := &stubModule{name: ModuleFight, priority: 0.3, action: core.Pass}
	wander := &stubModule{name: ModuleWander, priority: 0.1, action: core.Pass}
	a.modules = []Module{fight, wander}

	// Act
	a.Decide(tickFor(m))
	a.Decide(tickFor(m))
	fight.priority = 0
	a.Decide(tickFor(m))

	// Assert
	switches := rec.ofType(events.TypeModuleSwitched)
	require.Len(t, switches, 2)
	first := switches[0].(*events.ModuleSwitchedEvent)
	assert.Equal(t, "", first.From)
	assert.Equal(t, "fight", first.To)
	second := switches[1].(*events.ModuleSwitchedEvent)
	assert.Equal(t, "fight", second.From)
	assert.Equal(t, "wander", second.To)
	assert.Equal(t, 0.1, second.Priority)
}

func TestArbiter_Decide_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		action core.Action
		err    error
		check  func(t *testing.T, got core.Action)
	}{
		{
			name: "illegal delta turns the hull",
			err:  fmt.Errorf("wrapped: %w", movement.ErrIllegalDelta),
			check: func(t *testing.T, got core.Action) {
				rot, ok := got.(core.RotateAction)
				require.True(t, ok, "got %s", got)
				assert.NotNil(t, rot.Hull)
				assert.Nil(t, rot.Turret)
			},
		},
		{
			name: "missing rotation turns the hull",
			err:  movement.ErrNoRotation,
			check: func(t *testing.T, got core.Action) {
				assert.Equal(t, core.ActionRotate, got.Type())
			},
		},
		{
			name:  "no path passes",
			err:   pathfinding.ErrNoPath,
			check: func(t *testing.T, got core.Action) { assert.Equal(t, core.Pass, got) },
		},
		{
			name:  "unknown error passes",
			err:   fmt.Errorf("boom"),
			check: func(t *testing.T, got core.Action) { assert.Equal(t, core.Pass, got) },
		},
		{
			name:  "nil action passes",
			check: func(t *testing.T, got core.Action) { assert.Equal(t, core.Pass, got) },
		},
		{
			name:   "invalid action passes",
			action: core.UseAbility(core.AbilityType(9)),
			check:  func(t *testing.T, got core.Action) { assert.Equal(t, core.Pass, got) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Build())
			a := newTestArbiter(t, nil)
			a.modules = []Module{&stubModule{name: ModuleFight, priority: 1, action: tt.action, err: tt.err}}

			tt.check(t, a.Decide(tickFor(m)))
		})
	}
}

func TestArbiter_Decide_ClampsPriorities(t *testing.T) {
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Build())
	a := newTestArbiter(t, nil)
	a.modules = []Module{
		&stubModule{name: ModuleFight, priority: -3, action: core.Pass},
		&stubModule{name: ModuleWander, priority: 7, action: core.Pass},
	}

	a.Decide(tickFor(m))

	assert.Equal(t, []Score{{ModuleFight, 0}, {ModuleWander, 1}}, a.Priorities())
}

func TestArbiter_Decide_DeadAgentPasses(t *testing.T) {
	m := testutil.ModelFrom(t, captureScenario().Dead(3).Build())
	a := newTestArbiter(t, nil)

	action := a.Decide(tickFor(m))

	assert.Equal(t, core.Pass, action)
	assert.Empty(t, a.Priorities())
}

func TestArbiter_SetWeights(t *testing.T) {
	m := testutil.ModelFrom(t, captureScenario().Build())
	a := newTestArbiter(t, nil)

	bad := DefaultWeights()
	bad.CaptureZone = 1.5
	assert.ErrorIs(t, a.SetWeights(bad), ErrInvalidWeights)

	w := DefaultWeights()
	w.CaptureZone = 0
	require.NoError(t, a.SetWeights(w))
	action := a.Decide(tickFor(m))

	assert.Equal(t, ModuleScan, a.Active())
	assert.Equal(t, core.Rotate(core.RotateRight.Ptr(), core.RotateLeft.Ptr()), action)
	assert.Equal(t, 0.0, a.Weights().CaptureZone)
}

func TestArbiter_Reset(t *testing.T) {
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Build())
	a := newTestArbiter(t, nil)
	stub := &stubModule{name: ModuleFight, priority: 1, action: core.Pass}
	a.modules = []Module{stub}
	a.Decide(tickFor(m))

	a.Reset()

	assert.Equal(t, ModuleNone, a.Active())
	assert.Empty(t, a.Priorities())
	assert.Equal(t, 1, stub.resets)
}

func TestNewArbiter_RejectsInvalidWeights(t *testing.T) {
	w := DefaultWeights()
	w.Items[core.ItemRadar] = -1

	_, err := NewArbiter(DefaultOptions(), w, nil, testutil.NopLogger())

	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestArbiter_Decide_UnarmedAgentDoesNotChase(t *testing.T) {
	// Arrange
	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		"A...",
		"....",
		"...E",
	).Ammo(0).Build())
	a := newTestArbiter(t, nil)

	// Act
	a.Decide(tickFor(m))

	// Assert
	assert.NotEqual(t, ModuleFight, a.Active())
	assert.Equal(t, 0.0, a.Priorities()[0].Priority)
}

func TestArbiter_Decide_WalledZoneDoesNotStallCapture(t *testing.T) {
	// Arrange
	m := testutil.ModelFrom(t, walledZoneScenario().Build())
	rec := &recorder{}
	a := newTestArbiter(t, rec)

	// Act
	var actions []core.Action
	for i := 0; i < 8; i++ {
		actions = append(actions, a.Decide(tickFor(m)))
	}

	// Assert: four passes while the ladder is climbed, then the open zone
	assert.Equal(t, []core.Action{core.Pass, core.Pass, core.Pass, core.Pass}, actions[:4])
	for _, action := range actions[4:] {
		assert.NotEqual(t, core.Pass, action)
	}
	assert.Equal(t, ModuleCaptureZone, a.Active())
	assert.Len(t, rec.ofType(events.TypeTargetForgotten), 1)
}
