// Package shortcut implements the side-aware hotkey grammar: parsing textual
// shortcuts such as "Fn+RAlt+Space", normalizing them, and matching a parsed
// shortcut against a live modifier snapshot.
package shortcut

import (
	"fmt"
	"runtime"
	"strings"
)

// Modifier identifies one modifier key, distinguishing side-specific keys
// from their generic family.
type Modifier int

const (
	Ctrl Modifier = iota
	LCtrl
	RCtrl
	Alt
	LAlt
	RAlt
	Shift
	LShift
	RShift
	Meta
	LMeta
	RMeta
	Fn
)

// displayOrder fixes the canonical token order: Ctrl-family, Alt-family,
// Shift-family, Meta-family, then Fn.
var displayOrder = []Modifier{LCtrl, RCtrl, Ctrl, LAlt, RAlt, Alt, LShift, RShift, Shift, LMeta, RMeta, Meta, Fn}

func (m Modifier) token() string {
	switch m {
	case Ctrl:
		return "Ctrl"
	case LCtrl:
		return "LCtrl"
	case RCtrl:
		return "RCtrl"
	case Alt:
		return "Alt"
	case LAlt:
		return "LAlt"
	case RAlt:
		return "RAlt"
	case Shift:
		return "Shift"
	case LShift:
		return "LShift"
	case RShift:
		return "RShift"
	case Meta:
		return "Cmd"
	case LMeta:
		return "LMeta"
	case RMeta:
		return "RMeta"
	case Fn:
		return "Fn"
	default:
		return "?"
	}
}

// ParseError is returned by Parse when a shortcut string is malformed.
type ParseError struct {
	Kind  ParseErrorKind
	Token string
}

// ParseErrorKind enumerates the ways a shortcut string can fail to parse.
type ParseErrorKind int

const (
	EmptyShortcut ParseErrorKind = iota
	EmptyToken
	MissingKey
	InvalidKeyToken
)

func (e *ParseError) Error() string {
	switch e.Kind {
	case EmptyShortcut:
		return "shortcut cannot be empty"
	case EmptyToken:
		return "shortcut contains an empty token"
	case MissingKey:
		return "shortcut must include a non-modifier key"
	case InvalidKeyToken:
		return fmt.Sprintf("unsupported key token `%s`", e.Token)
	default:
		return "invalid shortcut"
	}
}

// Shortcut is an ordered set of modifiers plus exactly one non-modifier key.
type Shortcut struct {
	modifiers map[Modifier]struct{}
	key       string
}

// Key returns the shortcut's non-modifier key, in the canonical token form
// used by Parse/String (e.g. "Space", "F5", "A").
func (s Shortcut) Key() string { return s.key }

// Modifiers returns the shortcut's modifiers in display order.
func (s Shortcut) Modifiers() []Modifier {
	out := make([]Modifier, 0, len(s.modifiers))
	for _, m := range displayOrder {
		if _, ok := s.modifiers[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (s Shortcut) has(m Modifier) bool {
	_, ok := s.modifiers[m]
	return ok
}

// String renders the shortcut in canonical "+"-joined form.
func (s Shortcut) String() string {
	tokens := make([]string, 0, len(s.modifiers)+1)
	for _, m := range s.Modifiers() {
		tokens = append(tokens, m.token())
	}
	tokens = append(tokens, s.key)
	return strings.Join(tokens, "+")
}

// Parse parses a "+"-separated shortcut string into a Shortcut.
//
// The trailing token is tried as the key first, even when it also names a
// modifier (e.g. "RAlt+Fn": a shortcut whose key is physically Fn) —
// mirroring original_source's ParsedShortcut::parse, which always treats
// the last token as the key since a modifier key can itself be the
// physical trigger. This matters specifically for Fn: most key sources
// never see it as a KeyDown/KeyUp at all, only as a ModifiersChanged
// toggle, so it is the one modifier name normalizeKeyToken also accepts as
// a key. Among the remaining tokens, the last valid non-modifier key token
// becomes the key when the trailing token is not one; any other
// non-modifier key token is discarded, and a token that is neither a
// modifier nor a valid key fails with InvalidKeyToken.
func Parse(raw string) (Shortcut, error) {
	if strings.TrimSpace(raw) == "" {
		return Shortcut{}, &ParseError{Kind: EmptyShortcut}
	}

	rawTokens := strings.Split(raw, "+")
	tokens := make([]string, len(rawTokens))
	for i, rawToken := range rawTokens {
		token := strings.TrimSpace(rawToken)
		if token == "" {
			return Shortcut{}, &ParseError{Kind: EmptyToken}
		}
		tokens[i] = token
	}

	mods := make(map[Modifier]struct{})
	key := ""

	last := len(tokens) - 1
	trailingIsKey := false
	if normalizedKey, ok := normalizeKeyToken(tokens[last]); ok {
		key = normalizedKey
		tokens = tokens[:last]
		trailingIsKey = true
	}

	for _, token := range tokens {
		if m, ok := parseModifier(token); ok {
			mods[m] = struct{}{}
			continue
		}
		normalizedKey, ok := normalizeKeyToken(token)
		if !ok {
			return Shortcut{}, &ParseError{Kind: InvalidKeyToken, Token: token}
		}
		// The last non-modifier token is the key; earlier ones are discarded.
		if !trailingIsKey {
			key = normalizedKey
		}
	}

	if key == "" {
		return Shortcut{}, &ParseError{Kind: MissingKey}
	}

	normalizeModifiers(mods)

	return Shortcut{modifiers: mods, key: key}, nil
}

// normalizeModifierToken strips non-alphanumerics and upper-cases, so
// "L-Alt", "l_alt" and "LAlt" all compare equal.
func normalizeModifierToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseModifier(token string) (Modifier, bool) {
	normalized := normalizeModifierToken(token)

	switch normalized {
	case "LALT", "LEFTALT", "ALTLEFT", "LOPTION", "LEFTOPTION", "OPTIONLEFT":
		return LAlt, true
	case "RALT", "RIGHTALT", "ALTRIGHT", "ROPTION", "RIGHTOPTION", "OPTIONRIGHT":
		return RAlt, true
	case "ALT", "OPTION":
		return Alt, true
	case "LSHIFT", "LEFTSHIFT", "SHIFTLEFT":
		return LShift, true
	case "RSHIFT", "RIGHTSHIFT", "SHIFTRIGHT":
		return RShift, true
	case "SHIFT":
		return Shift, true
	case "LCTRL", "LCONTROL", "LEFTCTRL", "LEFTCONTROL", "CTRLLEFT", "CONTROLLEFT":
		return LCtrl, true
	case "RCTRL", "RCONTROL", "RIGHTCTRL", "RIGHTCONTROL", "CTRLRIGHT", "CONTROLRIGHT":
		return RCtrl, true
	case "CTRL", "CONTROL":
		return Ctrl, true
	case "LMETA", "LEFTMETA", "METALEFT", "LCMD", "LEFTCMD", "CMDLEFT", "LCOMMAND",
		"LEFTCOMMAND", "COMMANDLEFT", "LSUPER", "LEFTSUPER", "SUPERLEFT", "LOS", "LEFTOS", "OSLEFT":
		return LMeta, true
	case "RMETA", "RIGHTMETA", "METARIGHT", "RCMD", "RIGHTCMD", "CMDRIGHT", "RCOMMAND",
		"RIGHTCOMMAND", "COMMANDRIGHT", "RSUPER", "RIGHTSUPER", "SUPERRIGHT", "ROS", "RIGHTOS", "OSRIGHT":
		return RMeta, true
	case "META", "CMD", "COMMAND", "SUPER", "OS":
		return Meta, true
	case "FN", "FUNCTION":
		return Fn, true
	case "COMMANDORCONTROL", "COMMANDORCTRL", "CMDORCTRL", "CMDORCONTROL":
		if runtime.GOOS == "darwin" {
			return Meta, true
		}
		return Ctrl, true
	default:
		return 0, false
	}
}

// normalizeModifiers drops a generic family modifier when a side-specific
// modifier from the same family is present.
func normalizeModifiers(mods map[Modifier]struct{}) {
	dropRedundantGeneric(mods, Alt, LAlt, RAlt)
	dropRedundantGeneric(mods, Shift, LShift, RShift)
	dropRedundantGeneric(mods, Ctrl, LCtrl, RCtrl)
	dropRedundantGeneric(mods, Meta, LMeta, RMeta)
}

func dropRedundantGeneric(mods map[Modifier]struct{}, generic, left, right Modifier) {
	_, hasLeft := mods[left]
	_, hasRight := mods[right]
	if hasLeft || hasRight {
		delete(mods, generic)
	}
}

var keyAliases = map[string]string{
	"SPACE": "Space", "RETURN": "Return", "ENTER": "Return", "TAB": "Tab",
	"ESCAPE": "Escape", "ESC": "Escape",
	"BACKQUOTE": "`", "BACKSLASH": "\\", "BRACKETLEFT": "[", "BRACKETRIGHT": "]",
	"COMMA": ",", "EQUAL": "=", "MINUS": "-", "PERIOD": ".", "QUOTE": "'",
	"SEMICOLON": ";", "SLASH": "/",
	// Fn is the one modifier name normalizeKeyToken also accepts as a key,
	// so a shortcut can be defined with Fn itself as the trigger key (see
	// Parse's doc comment).
	"FN": "Fn", "FUNCTION": "Fn",
}

// normalizeKeyToken validates and canonicalizes a non-modifier key token.
// Recognition is case-insensitive and ignores non-alphanumeric punctuation
// within the token, mirroring modifier parsing.
func normalizeKeyToken(token string) (string, bool) {
	stripped := normalizeModifierToken(token)
	if stripped == "" {
		return "", false
	}

	if len(stripped) == 1 {
		c := stripped[0]
		if c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			return string(c), true
		}
		return "", false
	}

	if alias, ok := keyAliases[stripped]; ok {
		return alias, true
	}

	if len(stripped) >= 2 && stripped[0] == 'F' {
		n := stripped[1:]
		if isDigits(n) {
			num := 0
			for _, c := range n {
				num = num*10 + int(c-'0')
			}
			if num >= 1 && num <= 24 {
				return "F" + n, true
			}
		}
	}

	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ModifierSnapshot is the nine-bit live modifier state observed at an
// instant; sides are tracked independently so a shortcut can require an
// exact side.
type ModifierSnapshot struct {
	LAlt, RAlt     bool
	LShift, RShift bool
	LCtrl, RCtrl   bool
	LMeta, RMeta   bool
	Fn             bool
}

// FamilyRequirement is the matching rule derived from a Shortcut for one
// modifier family.
type FamilyRequirement int

const (
	ReqNone FamilyRequirement = iota
	ReqGeneric
	ReqLeft
	ReqRight
	ReqBoth
)

func requirementFor(s Shortcut, generic, left, right Modifier) FamilyRequirement {
	hasLeft, hasRight, hasGeneric := s.has(left), s.has(right), s.has(generic)
	switch {
	case hasLeft && hasRight:
		return ReqBoth
	case hasLeft:
		return ReqLeft
	case hasRight:
		return ReqRight
	case hasGeneric:
		return ReqGeneric
	default:
		return ReqNone
	}
}

func matchesFamily(req FamilyRequirement, leftPressed, rightPressed bool) bool {
	switch req {
	case ReqNone:
		return !leftPressed && !rightPressed
	case ReqGeneric:
		return leftPressed || rightPressed
	case ReqLeft:
		return leftPressed && !rightPressed
	case ReqRight:
		return !leftPressed && rightPressed
	default: // ReqBoth
		return leftPressed && rightPressed
	}
}

// Matches reports whether the given modifier snapshot and pressed key
// satisfy this shortcut: the key must match and each of the four modifier
// families and Fn must match their derived requirement.
func (s Shortcut) Matches(snapshot ModifierSnapshot, pressedKey string) bool {
	if s.key != pressedKey {
		return false
	}

	if !matchesFamily(requirementFor(s, Alt, LAlt, RAlt), snapshot.LAlt, snapshot.RAlt) {
		return false
	}
	if !matchesFamily(requirementFor(s, Shift, LShift, RShift), snapshot.LShift, snapshot.RShift) {
		return false
	}
	if !matchesFamily(requirementFor(s, Ctrl, LCtrl, RCtrl), snapshot.LCtrl, snapshot.RCtrl) {
		return false
	}
	if !matchesFamily(requirementFor(s, Meta, LMeta, RMeta), snapshot.LMeta, snapshot.RMeta) {
		return false
	}

	return s.has(Fn) == snapshot.Fn
}

// HasSideSpecificModifiers reports whether any family in the shortcut
// requires a particular physical side.
func (s Shortcut) HasSideSpecificModifiers() bool {
	for _, m := range []Modifier{LAlt, RAlt, LShift, RShift, LCtrl, RCtrl, LMeta, RMeta} {
		if s.has(m) {
			return true
		}
	}
	return false
}
