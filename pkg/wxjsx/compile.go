package wxjsx

import (
	"context"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/errors"
)

// CompileError describes why a document could not be compiled.
type CompileError = errors.CompileError

// Option adjusts compilation.
type Option func(*compiler.Options)

// WithLenientCloseTags lets any closing tag end the current element.
func WithLenientCloseTags() Option {
	return func(o *compiler.Options) { o.Parser.StrictCloseTags = false }
}

// WithAllowTrailing ignores content after the root element.
func WithAllowTrailing() Option {
	return func(o *compiler.Options) { o.Parser.AllowTrailing = true }
}

// WithConditionalIf renders wx:if as a conditional expression.
func WithConditionalIf() Option {
	return func(o *compiler.Options) { o.Generator.ConditionalIf = true }
}

// WithLegacyForWrap emits "{list.map((item)=>...};" exactly as older
// releases did.
func WithLegacyForWrap() Option {
	return func(o *compiler.Options) { o.Generator.LegacyForWrap = true }
}

// WithUniformTagCase applies dash-splitting to self-closing tag names.
func WithUniformTagCase() Option {
	return func(o *compiler.Options) { o.Generator.UniformTagCase = true }
}

// Compile translates a markup document into component markup.
func Compile(source string, opts ...Option) (string, error) {
	options := compiler.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return compiler.New(options, nil).Compile(context.Background(), source)
}

// IsSyntaxError reports whether err describes malformed input.
func IsSyntaxError(err error) bool {
	return errors.IsParseError(err)
}
