package testutil

import (
	"testing"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// ModelFrom builds a world model that has absorbed the given snapshots in order
func ModelFrom(t *testing.T, snaps ...*world.Snapshot) *world.Model {
	t.Helper()
	m := world.NewModel(NopLogger())
	for _, s := range snaps {
		require.NoError(t, m.Update(s))
	}
	return m
}

// AssertPanic asserts that the given function panics
func AssertPanic(t *testing.T, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic but none occurred: %v", msgAndArgs)
		}
	}()
	f()
}
