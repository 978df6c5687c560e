package generator

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const bindPrefix = "bind"

// eventRenames maps the remainder of a bind* attribute to the event name
// emitted after the "on" prefix.
var eventRenames = map[string]string{
	"tap":   "click",
	"click": "keydown",
}

// namer converts tag and attribute names. It wraps a cases.Caser, which is
// stateful, so each generation run owns its own namer.
type namer struct {
	upper cases.Caser
}

func newNamer() *namer {
	return &namer{upper: cases.Upper(language.Und)}
}

// firstUpper upper-cases the first character of s and leaves the rest alone.
// Full Unicode upper-casing applies, so "ß" becomes "SS".
func (n *namer) firstUpper(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size == 0 {
		return ""
	}
	return n.upper.String(s[:size]) + s[size:]
}

// componentName splits tag on '-' and upper-cases the first letter of each
// segment: "list-items" becomes "ListItems".
func (n *namer) componentName(tag string) string {
	var b strings.Builder
	for _, segment := range strings.Split(tag, "-") {
		b.WriteString(n.firstUpper(segment))
	}
	return b.String()
}

// ComponentName converts an element tag name to its component name.
func ComponentName(tag string) string {
	return newNamer().componentName(tag)
}

// FirstUpper upper-cases only the first character of s.
func FirstUpper(s string) string {
	return newNamer().firstUpper(s)
}

// RemapAttribute rewrites bind* event attributes: the prefix is replaced by
// "on" and the event renamed through a fixed table ("bindtap" becomes
// "onclick", "bindclick" becomes "onkeydown"). Other names are returned
// unchanged.
func RemapAttribute(name string) string {
	if !strings.HasPrefix(name, bindPrefix) {
		return name
	}
	event := strings.TrimPrefix(name, bindPrefix)
	if renamed, ok := eventRenames[event]; ok {
		event = renamed
	}
	return "on" + event
}

// IsRenamedEvent reports whether event has an entry in the rename table.
func IsRenamedEvent(event string) bool {
	_, ok := eventRenames[event]
	return ok
}

// UnwrapExpression removes every "{{" and "}}" from value. The expression
// itself is not parsed or validated.
func UnwrapExpression(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, "{{", ""), "}}", "")
}
