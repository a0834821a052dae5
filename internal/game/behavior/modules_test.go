package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/testutil"
)

// walledZoneScenario puts zone 0 inside four walls and zone 1 in the open
// corner
func walledZoneScenario() *testutil.SnapshotBuilder {
	return testutil.NewSnapshot(
		"A......",
		".......",
		"...#...",
		"..#.#..",
		"...#...",
		".......",
		".......",
	).Facing(core.Right, core.Right).
		WithZone(core.Zone{Index: 0, X: 3, Y: 3, Width: 1, Height: 1}).
		WithZone(core.Zone{Index: 1, X: 6, Y: 6, Width: 1, Height: 1})
}

func newTestEnv(t *testing.T, pub events.Publisher) *env {
	t.Helper()
	return newTestArbiter(t, pub).env
}

func contextFor(t *testing.T, b *testutil.SnapshotBuilder) *TickContext {
	t.Helper()
	ctx := tickFor(testutil.ModelFrom(t, b.Build()))
	return &ctx
}

func TestFight_Aligned(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *testutil.SnapshotBuilder
		priority float64
		expected core.Action
	}{
		{
			name:     "aimed fires a bullet",
			snapshot: testutil.NewSnapshot("A..E").Facing(core.Right, core.Right),
			priority: 1,
			expected: core.UseAbility(core.AbilityFireBullet),
		},
		{
			name:     "turret turns first",
			snapshot: testutil.NewSnapshot("A..E").Facing(core.Up, core.Up),
			priority: 1,
			expected: core.Rotate(nil, core.RotateRight.Ptr()),
		},
		{
			name:     "laser beats bullets",
			snapshot: testutil.NewSnapshot("A..E").Facing(core.Right, core.Right).Holding(core.ItemLaser),
			priority: 1,
			expected: core.UseAbility(core.AbilityUseLaser),
		},
		{
			name:     "double bullet when held",
			snapshot: testutil.NewSnapshot("E", ".", "A").Holding(core.ItemDoubleBullet),
			priority: 1,
			expected: core.UseAbility(core.AbilityFireDoubleBullet),
		},
		{
			name:     "aimed without ammo waits",
			snapshot: testutil.NewSnapshot("A..E").Facing(core.Right, core.Right).Ammo(0),
			priority: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx := contextFor(t, tt.snapshot)
			f := newFight(newTestEnv(t, nil))

			// Act
			priority := f.Priority(ctx)

			// Assert
			assert.Equal(t, tt.priority, priority)
			if tt.expected == nil {
				return
			}
			action, err := f.Action(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, action)
		})
	}
}

func TestFight_MovesToFiringCell(t *testing.T) {
	// Arrange
	ctx := contextFor(t, testutil.NewSnapshot(
		"....E",
		".....",
		"A....",
	))
	f := newFight(newTestEnv(t, nil))

	// Act
	priority := f.Priority(ctx)
	action, err := f.Action(ctx)

	// Assert
	assert.Equal(t, 1.0, priority)
	require.NoError(t, err)
	assert.Equal(t, core.Move(core.Forward), action)
	assert.Equal(t, core.NewPosition(0, 0), f.path[len(f.path)-1])
}

func TestFight_Priority_NeedsAmmo(t *testing.T) {
	unaligned := func() *testutil.SnapshotBuilder {
		return testutil.NewSnapshot(
			"A...",
			"....",
			"...E",
		).Ammo(0)
	}
	aligned := func() *testutil.SnapshotBuilder {
		return testutil.NewSnapshot("A..E").Facing(core.Right, core.Up).Ammo(0)
	}

	tests := []struct {
		name     string
		snapshot *testutil.SnapshotBuilder
		expected float64
	}{
		{"unaligned without ammo", unaligned(), 0},
		{"unaligned, bullet ready on arrival", unaligned().Reloading(1), 1},
		{"unaligned, bullet too far off", unaligned().Reloading(50), 0},
		{"unaligned with a laser", unaligned().Holding(core.ItemLaser), 1},
		{"aligned, turret off, nothing loading", aligned(), 0},
		{"aligned, turret off, bullet next tick", aligned().Reloading(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFight(newTestEnv(t, nil))

			// Act
			priority := f.Priority(contextFor(t, tt.snapshot))

			// Assert
			assert.Equal(t, tt.expected, priority)
			if tt.expected == 0 {
				assert.Empty(t, f.path)
			}
		})
	}
}

func TestFight_IgnoresWallsAndMemories(t *testing.T) {
	f := newFight(newTestEnv(t, nil))

	walled := contextFor(t, testutil.NewSnapshot("A.#E").Facing(core.Right, core.Right))
	assert.Equal(t, 0.0, f.Priority(walled), "the only firing cells lie behind the wall")

	m := testutil.ModelFrom(t,
		testutil.NewSnapshot("A..E").Build(),
		testutil.NewSnapshot("A..?").Tick(1).Build(),
	)
	remembered := tickFor(m)
	assert.Equal(t, 0.0, f.Priority(&remembered), "stale enemies are not engaged")
}

func TestClosestEnemy_PrefersSmallestAxisOffset(t *testing.T) {
	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		".E...",
		".....",
		"A....",
		".....",
		"....E",
	).Build())

	got, ok := closestEnemy(m, core.NewPosition(2, 0))

	require.True(t, ok)
	assert.Equal(t, core.NewPosition(0, 1), got, "one column away beats two rows away")
}

func TestCaptureZone_Priority(t *testing.T) {
	zone := func(status core.ZoneStatus) core.Zone {
		return core.Zone{Index: 0, X: 2, Y: 0, Width: 1, Height: 1, Status: status}
	}

	tests := []struct {
		name     string
		snapshot *testutil.SnapshotBuilder
		expected float64
	}{
		{"no zones", testutil.NewSnapshot("A.."), 0},
		{"neutral zone", testutil.NewSnapshot("A..").WithZone(zone(core.ZoneStatus{})), 0.65},
		{"captured by us", testutil.NewSnapshot("A..").WithZone(zone(testutil.CapturedBy(testutil.SelfID))), 0},
		{"captured by enemy", testutil.NewSnapshot("A..").WithZone(zone(testutil.CapturedBy(testutil.EnemyID))), 0.65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCaptureZone(newTestEnv(t, nil))
			assert.Equal(t, tt.expected, c.Priority(contextFor(t, tt.snapshot)))
		})
	}
}

func TestCaptureZone_Action_HoldsInsideZone(t *testing.T) {
	tests := []struct {
		name   string
		status core.ZoneStatus
	}{
		{"neutral", core.ZoneStatus{}},
		{"being captured by us", testutil.BeingCapturedBy(testutil.SelfID, 5)},
		{"captured by the enemy", testutil.CapturedBy(testutil.EnemyID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx := contextFor(t, testutil.NewSnapshot("A..").
				WithZone(core.Zone{Index: 0, X: 0, Y: 0, Width: 2, Height: 1, Status: tt.status}))
			c := newCaptureZone(newTestEnv(t, nil))

			// Act
			priority := c.Priority(ctx)
			action, err := c.Action(ctx)

			// Assert
			assert.Equal(t, 0.65, priority)
			require.NoError(t, err)
			assert.Equal(t, core.Rotate(nil, core.RotateRight.Ptr()), action)
		})
	}
}

func TestCaptureZone_ForgetsUnreachableZone(t *testing.T) {
	// Arrange: zone 0 is walled in on all four sides, zone 1 is open
	rec := &recorder{}
	walled := core.NewPosition(3, 3)
	open := core.NewPosition(6, 6)
	ctx := contextFor(t, walledZoneScenario().Tick(10))
	c := newCaptureZone(newTestEnv(t, rec))

	// Act: one failure per rung of the default ladder
	for i := 0; i < 4; i++ {
		require.Equal(t, 0.65, c.Priority(ctx))
		require.Equal(t, walled, c.target)
		action, err := c.Action(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Pass, action)
	}

	// Assert
	assert.Equal(t, 110, c.forgotten[walled])
	forgotten := rec.ofType(events.TypeTargetForgotten)
	require.Len(t, forgotten, 1)
	assert.Equal(t, string(ModuleCaptureZone), forgotten[0].(*events.TargetForgottenEvent).Module)

	assert.Equal(t, 0.65, c.Priority(ctx), "the open zone is still worth taking")
	assert.Equal(t, open, c.target)
	action, err := c.Action(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, core.Pass, action)

	c.Reset()
	assert.Empty(t, c.forgotten)
}

func TestCaptureZone_Priority_ZeroWhenEveryZoneForgotten(t *testing.T) {
	ctx := contextFor(t, testutil.NewSnapshot(
		"A.#.",
		"..##",
	).WithZone(core.Zone{Index: 0, X: 3, Y: 0, Width: 1, Height: 1}).Tick(5))
	c := newCaptureZone(newTestEnv(t, nil))

	for i := 0; i < 4; i++ {
		require.Equal(t, 0.65, c.Priority(ctx))
		_, err := c.Action(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 0.0, c.Priority(ctx))

	later := *ctx
	later.Tick = 105
	assert.Equal(t, 0.65, c.Priority(&later), "the zone becomes eligible again")
}

func TestNearestZoneCell(t *testing.T) {
	far := core.Zone{Index: 0, X: 4, Y: 4, Width: 1, Height: 1}
	near := core.Zone{Index: 1, X: 0, Y: 2, Width: 2, Height: 1}

	m := testutil.ModelFrom(t, captureScenario().WithZone(near).Build())
	got, ok := nearestZoneCell(m, core.NewPosition(0, 0), testutil.SelfID, nil)
	require.True(t, ok)
	assert.Equal(t, core.NewPosition(2, 0), got)

	skipped, ok := nearestZoneCell(m, core.NewPosition(0, 0), testutil.SelfID, func(p core.Position) bool {
		return p == core.NewPosition(2, 0)
	})
	require.True(t, ok)
	assert.Equal(t, core.NewPosition(2, 1), skipped)

	near.Status = testutil.CapturedBy(testutil.SelfID)
	m = testutil.ModelFrom(t, captureScenario().WithZone(near).Build())
	got, ok = nearestZoneCell(m, core.NewPosition(0, 0), testutil.SelfID, nil)
	require.True(t, ok)
	assert.Equal(t, far.Cells()[0], got)

	_, ok = nearestZoneCell(m, core.NewPosition(0, 0), testutil.SelfID, func(core.Position) bool { return true })
	assert.False(t, ok)
}

func TestNearestZoneCell_PrefersZoneBeingCapturedByUs(t *testing.T) {
	near := core.Zone{Index: 1, X: 0, Y: 2, Width: 2, Height: 1}
	far := core.Zone{Index: 0, X: 4, Y: 4, Width: 1, Height: 1, Status: testutil.BeingCapturedBy(testutil.SelfID, 3)}

	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		"A....",
		".....",
		".....",
		".....",
		".....",
	).WithZone(far).WithZone(near).Build())

	got, ok := nearestZoneCell(m, core.NewPosition(0, 0), testutil.SelfID, nil)

	require.True(t, ok)
	assert.Equal(t, core.NewPosition(4, 4), got)
}

func TestPickUpItem_Priority(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *testutil.SnapshotBuilder
		expected float64
		target   core.Position
	}{
		{"nothing to collect", testutil.NewSnapshot("A...."), 0, core.Position{}},
		{"radar two cells away", testutil.NewSnapshot("A.3.."), 0.8, core.NewPosition(0, 2)},
		{"weight times distance picks the double bullet", testutil.NewSnapshot("A2..3"), 1, core.NewPosition(0, 1)},
		{"slot already full", testutil.NewSnapshot("A.3..").Holding(core.ItemMine), 0, core.Position{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPickUpItem(newTestEnv(t, nil))

			got := p.Priority(contextFor(t, tt.snapshot))

			assert.Equal(t, tt.expected, got)
			if tt.expected > 0 {
				assert.Equal(t, tt.target, p.target)
			}
		})
	}
}

func TestPickUpItem_ForgetsUnreachableItem(t *testing.T) {
	// Arrange: the item is walled off
	rec := &recorder{}
	ctx := contextFor(t, testutil.NewSnapshot(
		"A#3",
		"##.",
	).Tick(10))
	p := newPickUpItem(newTestEnv(t, rec))

	// Act: one failure per rung of the default ladder
	for i := 0; i < 4; i++ {
		require.Equal(t, 0.8, p.Priority(ctx))
		action, err := p.Action(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Pass, action)
	}

	// Assert
	assert.Equal(t, 110, p.forgotten[core.NewPosition(0, 2)])
	assert.Equal(t, 0.0, p.Priority(ctx))
	assert.Len(t, rec.ofType(events.TypePathNotFound), 4)
	forgotten := rec.ofType(events.TypeTargetForgotten)
	require.Len(t, forgotten, 1)
	assert.Equal(t, 110, forgotten[0].(*events.TargetForgottenEvent).UntilTick)

	later := *ctx
	later.Tick = 110
	assert.Equal(t, 0.8, p.Priority(&later), "the item becomes eligible again")
}

func TestLayMine_Priority(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *testutil.SnapshotBuilder
		expected float64
	}{
		{"open ground", testutil.NewSnapshot(".....", ".A...", ".....").Holding(core.ItemMine), 0.2},
		{"no mine held", testutil.NewSnapshot(".....", ".A...", "....."), 0},
		{"on the border", testutil.NewSnapshot(".A...", ".....", ".....").Holding(core.ItemMine), 0},
		{"boxed in", testutil.NewSnapshot("#.#..", "#A#..", "###..").Holding(core.ItemMine), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLayMine(nil)
			assert.Equal(t, tt.expected, l.Priority(contextFor(t, tt.snapshot)))
		})
	}
}

func TestLayMine_Action(t *testing.T) {
	action, err := newLayMine(nil).Action(nil)

	require.NoError(t, err)
	assert.Equal(t, core.UseAbility(core.AbilityDropMine), action)
}

func TestScan_PriorityDecaysWithStreak(t *testing.T) {
	// Arrange
	s := newScan(newTestEnv(t, nil))
	ctx := contextFor(t, testutil.NewSnapshot("A.."))
	at := func(tick int) *TickContext {
		c := *ctx
		c.Tick = tick
		return &c
	}

	// Act & Assert
	assert.InDelta(t, 0.11, s.Priority(at(10)), 1e-9)

	_, err := s.Action(at(10))
	require.NoError(t, err)
	assert.InDelta(t, 0.09, s.Priority(at(11)), 1e-9)

	for tick := 11; tick < 15; tick++ {
		_, err = s.Action(at(tick))
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.01, s.Priority(at(15)), 1e-9, "five quick scans saturate")

	assert.InDelta(t, 0.11, s.Priority(at(114)), 1e-9, "the streak lapses after the window")
}

func TestScan_QuietBonus(t *testing.T) {
	s := newScan(newTestEnv(t, nil))
	ctx := contextFor(t, testutil.NewSnapshot("A.."))
	ctx.TicksSinceDangerChange = 50

	assert.InDelta(t, 0.16, s.Priority(ctx), 1e-9)
}

func TestScan_Action(t *testing.T) {
	s := newScan(newTestEnv(t, nil))

	turn, err := s.Action(contextFor(t, testutil.NewSnapshot("A..")))
	require.NoError(t, err)
	assert.Equal(t, core.Rotate(core.RotateRight.Ptr(), core.RotateLeft.Ptr()), turn)

	radar, err := s.Action(contextFor(t, testutil.NewSnapshot("A..").Holding(core.ItemRadar)))
	require.NoError(t, err)
	assert.Equal(t, core.UseAbility(core.AbilityUseRadar), radar)
}

func TestWander_Action_PicksNearbyTarget(t *testing.T) {
	// Arrange
	ctx := contextFor(t, testutil.NewSnapshot(
		"...........",
		"...........",
		"...........",
		".....A.....",
		"...........",
	))
	w := newWander(newTestEnv(t, nil))

	// Act
	action, err := w.Action(ctx)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, action)
	target, ok := w.Target()
	require.True(t, ok)
	assert.NotEqual(t, core.NewPosition(3, 5), target)
	assert.LessOrEqual(t, max(abs(target.Row-3), abs(target.Col-5)), 5)
	assert.Equal(t, 0.1, w.Priority(ctx))
}

func TestWander_Action_SameSeedSameTarget(t *testing.T) {
	snap := testutil.NewSnapshot(".......", "...A...", ".......")
	first := newWander(newTestEnv(t, nil))
	second := newWander(newTestEnv(t, nil))

	_, err := first.Action(contextFor(t, snap))
	require.NoError(t, err)
	_, err = second.Action(contextFor(t, snap))
	require.NoError(t, err)

	a, _ := first.Target()
	b, _ := second.Target()
	assert.Equal(t, a, b)
}

func TestWander_Action_BoxedInPasses(t *testing.T) {
	w := newWander(newTestEnv(t, nil))

	action, err := w.Action(contextFor(t, testutil.NewSnapshot("#A#")))

	require.NoError(t, err)
	assert.Equal(t, core.Pass, action)
	_, ok := w.Target()
	assert.False(t, ok)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
