package lexer

import "fmt"

// Location is a position in the source. Line and Column are 1-based and
// best-effort; Offset is the byte offset and is exact.
type Location struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

// String renders the location as line:column.
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Kind identifies the variant of a Token.
type Kind int

const (
	KindEnd Kind = iota
	KindOpenTag
	KindCloseTag
	KindSelfCloseTag
	KindAttribute
	KindText
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindOpenTag:
		return "open tag"
	case KindCloseTag:
		return "close tag"
	case KindSelfCloseTag:
		return "self-closing tag"
	case KindAttribute:
		return "attribute"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Token is a lexical token. Which fields are meaningful depends on Kind:
//
//	OpenTag, SelfCloseTag  Name, Attributes
//	CloseTag               Name
//	Attribute              Name, Value (raw quoted content), Quote
//	Text                   Value
type Token struct {
	Kind       Kind
	Name       string
	Value      string
	Quote      rune
	Attributes []Token
	Location   Location
}

// IsTag reports whether the token opens, closes or self-closes an element.
func (t Token) IsTag() bool {
	return t.Kind == KindOpenTag || t.Kind == KindCloseTag || t.Kind == KindSelfCloseTag
}

// String renders the token roughly as it appeared in the source.
func (t Token) String() string {
	switch t.Kind {
	case KindOpenTag:
		return "<" + t.Name + ">"
	case KindCloseTag:
		return "</" + t.Name + ">"
	case KindSelfCloseTag:
		return "<" + t.Name + "/>"
	case KindAttribute:
		q := string(t.Quote)
		if t.Quote == 0 {
			q = `"`
		}
		return t.Name + "=" + q + t.Value + q
	case KindText:
		return t.Value
	default:
		return "EOF"
	}
}
