package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenericShortcutRoundTrips(t *testing.T) {
	s, err := Parse("Alt+Space")
	require.NoError(t, err)
	assert.Equal(t, "Alt+Space", s.String())

	assert.True(t, s.Matches(ModifierSnapshot{LAlt: true}, "Space"))
	assert.True(t, s.Matches(ModifierSnapshot{RAlt: true}, "Space"))
	assert.True(t, s.Matches(ModifierSnapshot{LAlt: true, RAlt: true}, "Space"))
}

func TestParseSideSpecificShortcutCaseInsensitive(t *testing.T) {
	s, err := Parse("ralt+space")
	require.NoError(t, err)
	assert.Equal(t, "RAlt+Space", s.String())

	assert.True(t, s.Matches(ModifierSnapshot{RAlt: true}, "Space"))
	assert.False(t, s.Matches(ModifierSnapshot{LAlt: true}, "Space"))
}

func TestParseFnShortcutMatchesFnState(t *testing.T) {
	s, err := Parse("fn+f5")
	require.NoError(t, err)
	assert.Equal(t, "Fn+F5", s.String())

	assert.True(t, s.Matches(ModifierSnapshot{Fn: true}, "F5"))
	assert.False(t, s.Matches(ModifierSnapshot{}, "F5"))
}

func TestParserUsesLastNonModifierTokenAsKey(t *testing.T) {
	s, err := Parse("A+Shift+S")
	require.NoError(t, err)
	assert.Equal(t, "Shift+S", s.String())
}

func TestParserRejectsModifierOnlyShortcuts(t *testing.T) {
	_, err := Parse("Alt+Shift")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, MissingKey, parseErr.Kind)
}

func TestParserRejectsEmptyShortcut(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, EmptyShortcut, parseErr.Kind)
}

func TestParserRejectsEmptyToken(t *testing.T) {
	_, err := Parse("Alt++Space")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, EmptyToken, parseErr.Kind)
}

func TestParserRejectsInvalidKeyToken(t *testing.T) {
	_, err := Parse("Alt+NotAKey")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, InvalidKeyToken, parseErr.Kind)
}

func TestSideSpecificMatchingRequiresExactSide(t *testing.T) {
	s, err := Parse("LAlt+Space")
	require.NoError(t, err)

	assert.True(t, s.Matches(ModifierSnapshot{LAlt: true}, "Space"))
	assert.False(t, s.Matches(ModifierSnapshot{RAlt: true}, "Space"))
	assert.False(t, s.Matches(ModifierSnapshot{LAlt: true, RAlt: true}, "Space"))
}

func TestGenericMatchingAllowsEitherOrBothSides(t *testing.T) {
	s, err := Parse("Alt+Space")
	require.NoError(t, err)

	assert.True(t, s.Matches(ModifierSnapshot{LAlt: true}, "Space"))
	assert.True(t, s.Matches(ModifierSnapshot{RAlt: true}, "Space"))
	assert.True(t, s.Matches(ModifierSnapshot{LAlt: true, RAlt: true}, "Space"))
}

func TestNormalizationDropsGenericWhenSideSpecificPresent(t *testing.T) {
	s, err := Parse("Fn+RAlt+Space")
	require.NoError(t, err)
	assert.Equal(t, "RAlt+Fn+Space", s.String())
	assert.False(t, s.has(Alt))
}

func TestDisplayOrderIsCanonicalRegardlessOfInputOrder(t *testing.T) {
	s, err := Parse("Space+Shift+Ctrl")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+Space", s.String())
}

func TestRoundTripForCanonicalStrings(t *testing.T) {
	canonical := []string{"Alt+Space", "LAlt+Space", "RAlt+RShift+A", "Fn+F5", "Ctrl+Shift+Cmd+Return"}
	for _, original := range canonical {
		s, err := Parse(original)
		require.NoError(t, err, original)
		assert.Equal(t, original, s.String())
	}
}

func TestParseAllowsFnAsTheShortcutKeyItself(t *testing.T) {
	s, err := Parse("RAlt+Fn")
	require.NoError(t, err)
	assert.Equal(t, "Fn", s.Key())
	assert.True(t, s.has(RAlt))
	assert.False(t, s.has(Fn), "Fn is the key here, not a held modifier")
	assert.Equal(t, "RAlt+Fn", s.String())
}

func TestParseStillTreatsFnBeforeTheTrailingKeyAsAModifier(t *testing.T) {
	s, err := Parse("Fn+F5")
	require.NoError(t, err)
	assert.Equal(t, "F5", s.Key())
	assert.True(t, s.has(Fn))
}

func TestCommandOrControlAliasResolvesPerPlatform(t *testing.T) {
	s, err := Parse("CommandOrControl+K")
	require.NoError(t, err)
	assert.True(t, s.has(Meta) || s.has(Ctrl))
}
