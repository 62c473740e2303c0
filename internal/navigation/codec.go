// Package navigation encodes interactive actions into compact tokens that
// carry their whole context, so a button press can be answered without any
// server-side session.
package navigation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Delimiter separates the tag and the fields of a token
const Delimiter = "|"

// MaxTokenBytes is the control payload limit of the chat transport
const MaxTokenBytes = 64

// Action is the tag in front of every token
type Action string

const (
	// ActionNav renders the menu for (date, meal, facility)
	ActionNav Action = "nav"
	// ActionToggle renders the other meal for (date, meal, facility)
	ActionToggle Action = "tgl"
	// ActionSelectFacility picks a facility, "all", or "reset" for the picker
	ActionSelectFacility Action = "sel"
	// ActionRefreshDish re-runs the occurrence search for a dish name
	ActionRefreshDish Action = "upd"
	// ActionFacilityInfo re-renders a facility's info card
	ActionFacilityInfo Action = "inf"
	// ActionSchedule shows opening hours for (date, meal, facility or "all")
	ActionSchedule Action = "orari"
	// ActionShowFirstBand previews the zero-income band from the scholarship view
	ActionShowFirstBand Action = "f1"
	// ActionBackToScholarship returns from the preview
	ActionBackToScholarship Action = "bs"
)

// Facility selectors accepted where a facility id is expected
const (
	FacilityAll   = "all"
	FacilityReset = "reset"
)

var arity = map[Action]int{
	ActionNav:               3,
	ActionToggle:            3,
	ActionSelectFacility:    1,
	ActionRefreshDish:       1,
	ActionFacilityInfo:      1,
	ActionSchedule:          3,
	ActionShowFirstBand:     0,
	ActionBackToScholarship: 0,
}

// Arity returns the number of fields the action carries
func (a Action) Arity() (int, bool) {
	n, ok := arity[a]
	return n, ok
}

// Token is a decoded action with its positional fields
type Token struct {
	Action Action
	Fields []string
}

// Field returns the i-th field, or "" when absent
func (t Token) Field(i int) string {
	if i < 0 || i >= len(t.Fields) {
		return ""
	}
	return t.Fields[i]
}

// String encodes the token, ignoring arity errors
func (t Token) String() string {
	s, _ := Encode(t.Action, t.Fields...)
	return s
}

// Encode builds the token for action. The delimiter is removed from every
// field, and when the result exceeds MaxTokenBytes the trailing fields are
// cut on a rune boundary until it fits.
func Encode(action Action, fields ...string) (string, error) {
	n, ok := arity[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q", action)
	}
	if len(fields) != n {
		return "", fmt.Errorf("action %q takes %d fields, got %d", action, n, len(fields))
	}

	clean := make([]string, len(fields))
	size := len(action)
	for i, f := range fields {
		clean[i] = strings.ReplaceAll(f, Delimiter, "")
		size += len(Delimiter) + len(clean[i])
	}

	for i := len(clean) - 1; i >= 0 && size > MaxTokenBytes; i-- {
		over := size - MaxTokenBytes
		cut := truncateBytes(clean[i], len(clean[i])-over)
		size -= len(clean[i]) - len(cut)
		clean[i] = cut
	}

	return strings.Join(append([]string{string(action)}, clean...), Delimiter), nil
}

// MustEncode is Encode for call sites whose action and field count are fixed
func MustEncode(action Action, fields ...string) string {
	s, err := Encode(action, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses a token. Unknown tags and tokens with fewer fields than the
// tag requires are rejected; extra fields are ignored.
func Decode(token string) (Token, bool) {
	parts := strings.Split(strings.TrimSpace(token), Delimiter)
	action := Action(parts[0])
	n, ok := arity[action]
	if !ok || len(parts)-1 < n {
		return Token{}, false
	}
	return Token{Action: action, Fields: parts[1 : 1+n]}, true
}

// truncateBytes returns the longest prefix of s no longer than limit bytes
// that ends on a rune boundary.
func truncateBytes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
