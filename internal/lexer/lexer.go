// Package lexer tokenizes markup documents into open, close and self-closing
// tag tokens (with their attributes) and text tokens.
//
// The scanner is pull based: Next returns one token at a time and reports
// errors.ErrEndOfInput once the source is exhausted. Input that ends inside
// a tag is reported as an unexpected end of input instead, so callers never
// have to guess which of the two happened.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/conneroisu/wxjsx/internal/errors"
)

// Lexer scans a source string. It is not safe for concurrent use; every
// document gets its own Lexer.
type Lexer struct {
	source string
	loc    Location
}

// New creates a Lexer positioned at the start of source.
func New(source string) *Lexer {
	return &Lexer{
		source: source,
		loc:    Location{Line: 1, Column: 1},
	}
}

// Tokenize scans the whole source and returns its tokens in order. The End
// sentinel is not included.
func Tokenize(source string) ([]Token, error) {
	l := New(source)
	var tokens []Token
	for {
		tok, err := l.Next()
		if errors.IsEndOfInput(err) {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// Location returns the current scan position.
func (l *Lexer) Location() Location {
	return l.loc
}

// Next returns the next token. At the end of input it returns a KindEnd token
// together with errors.ErrEndOfInput.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	c, ok := l.peekChar()
	if !ok {
		return Token{Kind: KindEnd, Location: l.loc}, errors.ErrEndOfInput
	}

	if c == '<' {
		return l.readTag()
	}
	return l.readText()
}

func (l *Lexer) readTag() (Token, error) {
	start := l.loc
	l.takeChar() // <

	if c, ok := l.peekChar(); ok && c == '/' {
		l.takeChar()
		name, err := l.readTagName("closing tag")
		if err != nil {
			return Token{}, err
		}
		l.skipWhitespace()
		if err := l.expect('>', errors.CodeMissingBracket, "closing tag </"+name, "'>' to close </"+name+">"); err != nil {
			return Token{}, err
		}
		return Token{Kind: KindCloseTag, Name: name, Location: start}, nil
	}

	name, err := l.readTagName("tag")
	if err != nil {
		return Token{}, err
	}

	attrs, err := l.readAttributes(name)
	if err != nil {
		return Token{}, err
	}

	if c, _ := l.peekChar(); c == '/' {
		l.takeChar()
		if err := l.expect('>', errors.CodeMissingBracket, "tag <"+name, "'>' after '/' in <"+name+"/>"); err != nil {
			return Token{}, err
		}
		return Token{Kind: KindSelfCloseTag, Name: name, Attributes: attrs, Location: start}, nil
	}

	if err := l.expect('>', errors.CodeMissingBracket, "tag <"+name, "'>' to close <"+name+">"); err != nil {
		return Token{}, err
	}
	return Token{Kind: KindOpenTag, Name: name, Attributes: attrs, Location: start}, nil
}

func (l *Lexer) readTagName(what string) (string, error) {
	name := l.takeWhile(isNameChar)
	if name != "" {
		return name, nil
	}
	if l.eof() {
		return "", l.located(errors.NewUnexpectedEOF(what))
	}
	return "", l.located(errors.NewExpected(errors.CodeEmptyName, what+" name"))
}

// readAttributes scans name="value" pairs until '>' or '/>'.
func (l *Lexer) readAttributes(tag string) ([]Token, error) {
	var attrs []Token
	for {
		l.skipWhitespace()

		c, ok := l.peekChar()
		if !ok {
			return nil, l.located(errors.NewUnexpectedEOF("attributes of <" + tag + ">"))
		}
		if c == '>' || (c == '/' && l.peekNext() == '>') {
			return attrs, nil
		}

		attr, err := l.readAttribute(tag)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
}

func (l *Lexer) readAttribute(tag string) (Token, error) {
	start := l.loc

	name := l.takeWhile(isAttributeNameChar)
	if name == "" {
		c, _ := l.peekChar()
		return Token{}, l.located(errors.NewUnexpected(errors.CodeEmptyName,
			fmt.Sprintf("%q in <%s>, expected attribute name", c, tag)))
	}

	l.skipWhitespace()
	if err := l.expect('=', errors.CodeMissingEquals, "attribute "+name, "'=' after attribute "+name); err != nil {
		return Token{}, err
	}
	l.skipWhitespace()

	quote, ok := l.peekChar()
	if !ok {
		return Token{}, l.located(errors.NewUnexpectedEOF("value of attribute " + name))
	}
	if quote != '"' && quote != '\'' {
		return Token{}, l.located(errors.NewExpected(errors.CodeMissingQuote,
			"quote to open value of attribute "+name))
	}
	l.takeChar()

	value := l.takeWhile(func(c rune) bool { return c != quote })
	if l.eof() {
		err := errors.NewUnexpectedEOF("value of attribute " + name)
		err.Code = errors.CodeMissingQuote
		return Token{}, l.located(err)
	}
	l.takeChar()

	return Token{Kind: KindAttribute, Name: name, Value: value, Quote: quote, Location: start}, nil
}

func (l *Lexer) readText() (Token, error) {
	start := l.loc
	text := l.takeWhile(isTextChar)
	if text == "" {
		c, _ := l.peekChar()
		return Token{}, l.located(errors.NewUnexpected(errors.CodeBadCharacter,
			fmt.Sprintf("character %q in text", c)))
	}
	return Token{Kind: KindText, Value: text, Location: start}, nil
}

// expect consumes want or fails. what names the construct for truncation
// errors, expected describes want for mismatch errors.
func (l *Lexer) expect(want rune, code, what, expected string) error {
	c, ok := l.peekChar()
	if !ok {
		return l.located(errors.NewUnexpectedEOF(what))
	}
	if c != want {
		err := errors.NewExpected(code, fmt.Sprintf("%s, found %q", expected, c))
		return l.located(err)
	}
	l.takeChar()
	return nil
}

func (l *Lexer) located(err *errors.CompileError) *errors.CompileError {
	return err.WithLocation(l.loc.Line, l.loc.Column, l.loc.Offset)
}

func (l *Lexer) eof() bool {
	return l.loc.Offset >= len(l.source)
}

func (l *Lexer) peekChar() (rune, bool) {
	if l.eof() {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.loc.Offset:])
	return r, true
}

// peekNext returns the character after the current one, or 0.
func (l *Lexer) peekNext() rune {
	if l.eof() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.source[l.loc.Offset:])
	if l.loc.Offset+size >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.loc.Offset+size:])
	return r
}

func (l *Lexer) takeChar() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.loc.Offset:])
	l.loc.Offset += size
	if r == '\n' {
		l.loc.Line++
		l.loc.Column = 1
	} else {
		l.loc.Column++
	}
	return r
}

func (l *Lexer) takeWhile(f func(rune) bool) string {
	start := l.loc.Offset
	for {
		c, ok := l.peekChar()
		if !ok || !f(c) {
			break
		}
		l.takeChar()
	}
	return l.source[start:l.loc.Offset]
}

func (l *Lexer) skipWhitespace() {
	l.takeWhile(unicode.IsSpace)
}

func isNameChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_'
}

func isAttributeNameChar(c rune) bool {
	switch c {
	case '=', '>', '/', '<', '"', '\'':
		return false
	}
	return !unicode.IsSpace(c)
}

func isTextChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
