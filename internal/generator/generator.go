// Package generator turns a document tree into component markup.
//
// Generation is a pure recursive function: every subtree produces its own
// string, composed by the caller, so no accumulator is shared between nodes
// or between runs.
package generator

import (
	"fmt"
	"strings"

	"github.com/conneroisu/wxjsx/internal/lexer"
	"github.com/conneroisu/wxjsx/internal/parser"
)

// Directive attribute names.
const (
	DirectiveIf  = "wx:if"
	DirectiveFor = "wx:for"
	DirectiveKey = "wx:key"
)

// Options selects between the compatible output and the corrected forms.
type Options struct {
	// ConditionalIf emits wx:if as {cond && fragment}. When false the
	// condition is dropped and the element is always rendered.
	ConditionalIf bool
	// LegacyForWrap reproduces the historical unbalanced loop wrapper
	// "{list.map((item)=>fragment};" instead of "{list.map((item)=>fragment)}".
	LegacyForWrap bool
	// UniformTagCase applies the dash-splitting component name conversion to
	// self-closing tags too. When false only their first letter is upper-cased.
	UniformTagCase bool
}

type directive struct {
	name string
	expr string
}

// Generator produces output for one tree at a time.
type Generator struct {
	opts  Options
	namer *namer
}

// New creates a Generator.
func New(opts Options) *Generator {
	return &Generator{opts: opts, namer: newNamer()}
}

// Generate renders root with a fresh Generator.
func Generate(root *parser.Node, opts Options) string {
	return New(opts).Generate(root)
}

// Generate renders the tree rooted at root.
func (g *Generator) Generate(root *parser.Node) string {
	if root == nil {
		return ""
	}
	return g.node(root)
}

func (g *Generator) node(n *parser.Node) string {
	tok := n.Token

	switch tok.Kind {
	case lexer.KindOpenTag:
		tag := g.namer.componentName(tok.Name)
		var b strings.Builder
		b.WriteString("<" + tag)
		directives := g.attributes(&b, tok.Attributes)
		b.WriteString(">")
		for _, child := range n.Children {
			b.WriteString(g.node(child))
		}
		b.WriteString("</" + tag + ">")
		return g.wrap(directives, b.String())

	case lexer.KindSelfCloseTag:
		tag := g.namer.firstUpper(tok.Name)
		if g.opts.UniformTagCase {
			tag = g.namer.componentName(tok.Name)
		}
		var b strings.Builder
		b.WriteString("<" + tag)
		directives := g.attributes(&b, tok.Attributes)
		b.WriteString("/>")
		return g.wrap(directives, b.String())

	case lexer.KindText:
		return tok.Value

	default:
		return ""
	}
}

// attributes writes the literal attributes to b and returns the directives
// diverted from the output, in source order.
func (g *Generator) attributes(b *strings.Builder, attrs []lexer.Token) []directive {
	var directives []directive
	for _, attr := range attrs {
		if attr.Kind != lexer.KindAttribute {
			continue
		}
		name := RemapAttribute(attr.Name)
		expr := UnwrapExpression(attr.Value)

		switch name {
		case DirectiveKey:
			fmt.Fprintf(b, ` key="%s"`, expr)
		case DirectiveIf, DirectiveFor:
			directives = append(directives, directive{name: name, expr: expr})
		default:
			fmt.Fprintf(b, ` %s="%s"`, name, expr)
		}
	}
	return directives
}

// wrap applies the collected directives to a finished fragment.
func (g *Generator) wrap(directives []directive, code string) string {
	if len(directives) == 0 {
		return code
	}
	if g.opts.ConditionalIf {
		return g.wrapConditional(directives, code)
	}

	// The first directive decides; later ones are ignored.
	d := directives[0]
	if d.name == DirectiveFor {
		if g.opts.LegacyForWrap {
			return fmt.Sprintf("{%s.map((item)=>%s};", d.expr, code)
		}
		return fmt.Sprintf("{%s.map((item)=>%s)}", d.expr, code)
	}
	return code
}

// wrapConditional composes the first wx:for and the first wx:if into a
// single expression container: {cond && list.map((item)=>fragment)}.
func (g *Generator) wrapConditional(directives []directive, code string) string {
	var loop, cond *directive
	for i := range directives {
		switch {
		case directives[i].name == DirectiveFor && loop == nil:
			loop = &directives[i]
		case directives[i].name == DirectiveIf && cond == nil:
			cond = &directives[i]
		}
	}

	expr := code
	if loop != nil {
		expr = fmt.Sprintf("%s.map((item)=>%s)", loop.expr, code)
	}
	if cond != nil {
		return fmt.Sprintf("{%s && %s}", cond.expr, expr)
	}
	return "{" + expr + "}"
}
