package movement

import (
	"testing"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/pathfinding"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNavigator() *Navigator {
	return NewNavigator(pathfinding.NewEscalation(nil, 1), false, testutil.NopLogger())
}

func TestNavigator_Next_FirstActionFollowsFacing(t *testing.T) {
	// Arrange
	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		"A....",
		".....",
		".....",
		".....",
		".....",
	).Facing(core.Right, core.Right).Build())
	nav := newTestNavigator()

	// Act
	action, err := nav.Next(m, threat.Compute(m), core.NewPosition(4, 4))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, core.Move(core.Forward), action)
	assert.Len(t, nav.Remaining(), 8)
	assert.False(t, nav.Arrived())
}

func TestNavigator_Next_AdvancesAlongPath(t *testing.T) {
	nav := newTestNavigator()
	target := core.NewPosition(0, 3)

	m := testutil.ModelFrom(t, testutil.NewSnapshot("A...").Facing(core.Right, core.Right).Build())
	_, err := nav.Next(m, threat.Compute(m), target)
	require.NoError(t, err)
	assert.Equal(t, 1, nav.Replans())

	require.NoError(t, m.Update(testutil.NewSnapshot(".A..").Facing(core.Right, core.Right).Build()))
	action, err := nav.Next(m, threat.Compute(m), target)

	require.NoError(t, err)
	assert.Equal(t, core.Move(core.Forward), action)
	assert.Len(t, nav.Remaining(), 2)
	assert.Equal(t, 1, nav.Replans(), "following the path does not replan")
}

func TestNavigator_Next_ArrivalClearsPath(t *testing.T) {
	nav := newTestNavigator()
	m := testutil.ModelFrom(t, testutil.NewSnapshot("..A").Build())

	action, err := nav.Next(m, threat.Compute(m), core.NewPosition(0, 2))

	require.NoError(t, err)
	assert.Equal(t, core.Pass, action)
	assert.True(t, nav.Arrived())
	assert.Empty(t, nav.Remaining())
}

func TestNavigator_Next_ReplansWhenDangerChanges(t *testing.T) {
	// Arrange
	nav := newTestNavigator()
	target := core.NewPosition(0, 4)
	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		"A....",
		".....",
	).Facing(core.Right, core.Right).Build())
	_, err := nav.Next(m, threat.Compute(m), target)
	require.NoError(t, err)

	// Act: a mine appears on the planned row
	require.NoError(t, m.Update(testutil.NewSnapshot(
		"A..M.",
		".....",
	).Facing(core.Right, core.Right).Build()))
	_, err = nav.Next(m, threat.Compute(m), target)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, nav.Replans())
	assert.NotContains(t, nav.Remaining(), core.NewPosition(0, 3))
}

func TestNavigator_Next_ReplansWhenTargetChanges(t *testing.T) {
	nav := newTestNavigator()
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A...", "....").Facing(core.Right, core.Right).Build())
	f := threat.Compute(m)

	_, err := nav.Next(m, f, core.NewPosition(0, 3))
	require.NoError(t, err)
	action, err := nav.Next(m, f, core.NewPosition(1, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, nav.Replans())
	got, ok := nav.Target()
	require.True(t, ok)
	assert.Equal(t, core.NewPosition(1, 0), got)
	assert.Equal(t, core.Rotate(core.RotateRight.Ptr(), nil), action, "turn from Right toward Down")
}

func TestNavigator_Next_FailureFeedsEscalation(t *testing.T) {
	// Arrange: the only route crosses a laser row
	nav := newTestNavigator()
	m := testutil.ModelFrom(t, testutil.NewSnapshot(
		"A..",
		"L..",
		"...",
	).Build())
	f := threat.Compute(m)
	target := core.NewPosition(2, 2)

	// Act
	_, err := nav.Next(m, f, target)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pathfinding.ErrNoPath)
	assert.True(t, nav.LastFailed())

	// 0.5 and 0.8 still refuse the laser row, 1.0 accepts it
	_, err = nav.Next(m, f, target)
	assert.ErrorIs(t, err, pathfinding.ErrNoPath)
	_, err = nav.Next(m, f, target)
	assert.ErrorIs(t, err, pathfinding.ErrNoPath)
	action, err := nav.Next(m, f, target)
	require.NoError(t, err)
	assert.NotNil(t, action)
	assert.False(t, nav.LastFailed())
}

func TestNavigator_Next_DeadAgentPasses(t *testing.T) {
	nav := newTestNavigator()
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Dead(5).Build())

	action, err := nav.Next(m, threat.Compute(m), core.NewPosition(0, 2))

	require.NoError(t, err)
	assert.Equal(t, core.Pass, action)
}

func TestNavigator_Reset(t *testing.T) {
	nav := newTestNavigator()
	m := testutil.ModelFrom(t, testutil.NewSnapshot("A..").Facing(core.Right, core.Right).Build())
	_, err := nav.Next(m, threat.Compute(m), core.NewPosition(0, 2))
	require.NoError(t, err)

	nav.Reset()

	_, ok := nav.Target()
	assert.False(t, ok)
	assert.Empty(t, nav.Remaining())
}
