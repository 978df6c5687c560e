// Package parser builds a single-rooted tree from the token stream produced
// by the lexer. Each token becomes exactly one node, except closing tags,
// which only terminate their parent's child list.
package parser

import (
	"fmt"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/lexer"
)

// Options controls how strictly the tree is checked.
type Options struct {
	// StrictCloseTags rejects a closing tag whose name differs from the
	// element it closes, and a stray closing tag at the root. When false any
	// closing tag ends the current element.
	StrictCloseTags bool
	// AllowTrailing ignores tokens left over after the root element.
	AllowTrailing bool
}

// DefaultOptions returns the options used by the compiler unless configured
// otherwise.
func DefaultOptions() Options {
	return Options{StrictCloseTags: true}
}

// Parser consumes tokens through a forward cursor.
type Parser struct {
	tokens []lexer.Token
	pos    int
	opts   Options
}

// New creates a parser over tokens.
func New(tokens []lexer.Token, opts Options) *Parser {
	return &Parser{tokens: tokens, opts: opts}
}

// Build turns tokens into a tree rooted at the first token.
func Build(tokens []lexer.Token, opts Options) (*Node, error) {
	return New(tokens, opts).Parse()
}

// ParseString tokenizes source and builds its tree.
func ParseString(source string, opts Options) (*Node, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Build(tokens, opts)
}

// Parse reads the root node and checks that nothing follows it.
func (p *Parser) Parse() (*Node, error) {
	root, err := p.readNode()
	if err != nil {
		return nil, err
	}

	if next, ok := p.peek(); ok && !p.opts.AllowTrailing {
		return nil, located(errors.NewUnexpected(errors.CodeTrailing,
			fmt.Sprintf("%s %s after the root element", next.Kind, next)), next.Location)
	}

	return root, nil
}

func (p *Parser) readNode() (*Node, error) {
	tok, ok := p.read()
	if !ok {
		return nil, located(errors.NewUnexpectedEOF("document"), p.endLocation())
	}

	switch tok.Kind {
	case lexer.KindOpenTag:
		return p.readElement(tok)

	case lexer.KindCloseTag:
		if p.opts.StrictCloseTags {
			return nil, located(errors.NewUnexpected(errors.CodeTagMismatch,
				fmt.Sprintf("closing tag %s without a matching open tag", tok)), tok.Location)
		}
		return &Node{Token: tok}, nil

	case lexer.KindSelfCloseTag, lexer.KindText:
		return &Node{Token: tok}, nil

	default:
		return nil, located(errors.NewMalformed(errors.CodeBadToken,
			fmt.Sprintf("malformed token stream: unexpected %s token", tok.Kind)), tok.Location)
	}
}

func (p *Parser) readElement(open lexer.Token) (*Node, error) {
	node := &Node{Token: open, Children: []*Node{}}

	for {
		next, ok := p.peek()
		if !ok {
			return nil, located(errors.NewUnexpectedEOF("children of "+open.String()), open.Location)
		}

		if next.Kind == lexer.KindCloseTag {
			p.read()
			if p.opts.StrictCloseTags && next.Name != open.Name {
				return nil, located(errors.NewUnexpected(errors.CodeTagMismatch,
					fmt.Sprintf("closing tag %s, expected </%s>", next, open.Name)), next.Location)
			}
			return node, nil
		}

		child, err := p.readNode()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}

func (p *Parser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) read() (lexer.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *Parser) endLocation() lexer.Location {
	if len(p.tokens) == 0 {
		return lexer.Location{Line: 1, Column: 1}
	}
	return p.tokens[len(p.tokens)-1].Location
}

func located(err *errors.CompileError, loc lexer.Location) *errors.CompileError {
	return err.WithLocation(loc.Line, loc.Column, loc.Offset)
}
