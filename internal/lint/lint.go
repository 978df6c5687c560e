// Package lint reports markup that compiles but probably does not do what
// its author meant: native HTML tags, unsupported directives and events
// that keep their source name.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/generator"
	"github.com/conneroisu/wxjsx/internal/lexer"
	"github.com/conneroisu/wxjsx/internal/parser"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rule names.
const (
	RuleNativeElement      = "native-element"
	RuleUnknownDirective   = "unknown-directive"
	RuleConditionalIgnored = "conditional-ignored"
	RuleMultipleDirectives = "multiple-directives"
	RuleKeyWithoutLoop     = "key-without-loop"
	RuleUnmappedEvent      = "unmapped-event"
)

// Diagnostic is a single finding.
type Diagnostic struct {
	Severity Severity       `json:"severity" yaml:"severity"`
	Rule     string         `json:"rule" yaml:"rule"`
	Location lexer.Location `json:"location" yaml:"location"`
	Message  string         `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Location, d.Severity, d.Message, d.Rule)
}

// Options mirrors the generator settings that change what is reported.
type Options struct {
	ConditionalIf bool
}

// builtinComponents are the mini-program components. Several share a name
// with an HTML element; they are never reported.
var builtinComponents = map[string]bool{
	"audio":     true,
	"block":     true,
	"button":    true,
	"canvas":    true,
	"checkbox":  true,
	"form":      true,
	"icon":      true,
	"image":     true,
	"input":     true,
	"label":     true,
	"map":       true,
	"navigator": true,
	"picker":    true,
	"progress":  true,
	"radio":     true,
	"slider":    true,
	"switch":    true,
	"text":      true,
	"textarea":  true,
	"video":     true,
	"view":      true,
}

// Source compiles source with opts and lints the resulting tree. A compile
// failure is returned as the error.
func Source(source string, opts compiler.Options) ([]Diagnostic, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	root, err := parser.Build(tokens, opts.Parser)
	if err != nil {
		return nil, err
	}
	return Lint(root, Options{ConditionalIf: opts.Generator.ConditionalIf}), nil
}

// Lint walks the tree rooted at root. Diagnostics are ordered by position.
func Lint(root *parser.Node, opts Options) []Diagnostic {
	if root == nil {
		return nil
	}

	var diags []Diagnostic
	root.Walk(func(n *parser.Node, _ int) bool {
		if n.Token.Kind == lexer.KindOpenTag || n.Token.Kind == lexer.KindSelfCloseTag {
			diags = append(diags, lintElement(n.Token, opts)...)
		}
		return true
	})

	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Location.Offset < diags[j].Location.Offset
	})
	return diags
}

func lintElement(tok lexer.Token, opts Options) []Diagnostic {
	var diags []Diagnostic
	report := func(sev Severity, rule string, loc lexer.Location, format string, args ...interface{}) {
		diags = append(diags, Diagnostic{
			Severity: sev,
			Rule:     rule,
			Location: loc,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	name := strings.ToLower(tok.Name)
	if atom.Lookup([]byte(name)) != 0 && !builtinComponents[name] {
		report(SeverityWarning, RuleNativeElement, tok.Location,
			"<%s> is an HTML element and becomes the component <%s>", tok.Name, generator.ComponentName(tok.Name))
	}

	var directives []lexer.Token
	hasFor, hasKey := false, false
	for _, attr := range tok.Attributes {
		switch {
		case attr.Name == generator.DirectiveFor || attr.Name == generator.DirectiveIf:
			directives = append(directives, attr)
			if attr.Name == generator.DirectiveFor {
				hasFor = true
			} else if !opts.ConditionalIf {
				report(SeverityInfo, RuleConditionalIgnored, attr.Location,
					"wx:if is ignored; the element is always rendered")
			}

		case attr.Name == generator.DirectiveKey:
			hasKey = true

		case strings.HasPrefix(attr.Name, "wx:"):
			report(SeverityWarning, RuleUnknownDirective, attr.Location,
				"%s is not supported and is emitted as a plain attribute", attr.Name)

		case strings.HasPrefix(attr.Name, "bind"):
			event := strings.TrimPrefix(attr.Name, "bind")
			if !generator.IsRenamedEvent(event) {
				report(SeverityInfo, RuleUnmappedEvent, attr.Location,
					"%s becomes %s without renaming the event", attr.Name, generator.RemapAttribute(attr.Name))
			}
		}
	}

	if hasKey && !hasFor {
		report(SeverityInfo, RuleKeyWithoutLoop, tok.Location,
			"wx:key on <%s> has no wx:for", tok.Name)
	}

	if d, ok := multipleDirectives(directives, opts); ok {
		report(SeverityWarning, RuleMultipleDirectives, d.Location, "%s", multipleMessage(d, directives, opts))
	}

	return diags
}

// multipleDirectives returns the first directive that is ignored because
// another one takes precedence.
func multipleDirectives(directives []lexer.Token, opts Options) (lexer.Token, bool) {
	if !opts.ConditionalIf {
		if len(directives) > 1 {
			return directives[1], true
		}
		return lexer.Token{}, false
	}

	seen := map[string]bool{}
	for _, d := range directives {
		if seen[d.Name] {
			return d, true
		}
		seen[d.Name] = true
	}
	return lexer.Token{}, false
}

func multipleMessage(ignored lexer.Token, directives []lexer.Token, opts Options) string {
	if opts.ConditionalIf {
		return fmt.Sprintf("duplicate %s; only the first applies", ignored.Name)
	}
	return fmt.Sprintf("%s is ignored; only the first directive (%s) applies", ignored.Name, directives[0].Name)
}
