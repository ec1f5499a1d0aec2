package keysource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emmett/dictate/internal/shortcut"
)

func TestSnapshotForPrefersLeftSideForGenericModifiers(t *testing.T) {
	s, err := shortcut.Parse("Alt+Shift+Space")
	assertNoError(t, err)

	snap := snapshotFor(s)
	assert.True(t, snap.LAlt)
	assert.True(t, snap.LShift)
	assert.False(t, snap.RAlt)
	assert.False(t, snap.RShift)
}

func TestSnapshotForHonorsExplicitSide(t *testing.T) {
	s, err := shortcut.Parse("RAlt+Space")
	assertNoError(t, err)

	snap := snapshotFor(s)
	assert.True(t, snap.RAlt)
	assert.False(t, snap.LAlt)
}

func TestToPlatformHotkeyRejectsFnAndSideSpecificShortcuts(t *testing.T) {
	fn, err := shortcut.Parse("Fn+F5")
	assertNoError(t, err)
	_, _, ok := toPlatformHotkey(fn)
	assert.False(t, ok)

	sideSpecific, err := shortcut.Parse("RAlt+Space")
	assertNoError(t, err)
	_, _, ok = toPlatformHotkey(sideSpecific)
	assert.False(t, ok)
}

func TestToPlatformHotkeyAcceptsGenericShortcuts(t *testing.T) {
	s, err := shortcut.Parse("Alt+Space")
	assertNoError(t, err)
	mods, key, ok := toPlatformHotkey(s)
	assert.True(t, ok)
	assert.NotEmpty(t, mods)
	assert.NotZero(t, key)
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
