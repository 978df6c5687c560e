// Package compiler wires the lexer, parser and generator into the
// text -> tokens -> tree -> text pipeline.
//
// Every Compile call builds fresh lexer, parser and generator state, so one
// Compiler may be used from many goroutines at once.
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/generator"
	"github.com/conneroisu/wxjsx/internal/lexer"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/parser"
)

// Options configures every stage of the pipeline.
type Options struct {
	Parser    parser.Options
	Generator generator.Options
}

// DefaultOptions returns strict close-tag checking, the balanced loop
// wrapper, wx:if as a no-op and asymmetric self-closing tag casing.
func DefaultOptions() Options {
	return Options{
		Parser: parser.DefaultOptions(),
	}
}

// Fingerprint identifies the options in cache keys. Outputs compiled with
// different fingerprints must not be shared.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("s%t-t%t-i%t-l%t-u%t",
		o.Parser.StrictCloseTags,
		o.Parser.AllowTrailing,
		o.Generator.ConditionalIf,
		o.Generator.LegacyForWrap,
		o.Generator.UniformTagCase,
	)
}

// Result describes one successful compilation.
type Result struct {
	Output   string
	Tokens   int
	Nodes    int
	Duration time.Duration
}

// Compiler runs the pipeline with fixed options.
type Compiler struct {
	opts   Options
	logger logging.Logger
}

// New creates a Compiler. A nil logger discards output.
func New(opts Options, logger logging.Logger) *Compiler {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Compiler{
		opts:   opts,
		logger: logger.WithComponent("compiler"),
	}
}

// Options returns the compiler's options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Compile translates source and returns the generated markup.
func (c *Compiler) Compile(ctx context.Context, source string) (string, error) {
	result, err := c.CompileDocument(ctx, "", source)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// CompileDocument translates source, naming it in errors and logs. On
// failure no output is returned.
func (c *Compiler) CompileDocument(ctx context.Context, name, source string) (*Result, error) {
	start := time.Now()
	logger := c.logger
	if name != "" {
		logger = logger.With("document", name)
	}

	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, c.fail(ctx, logger, name, "tokenize", err)
	}
	logger.Debug(ctx, "tokenized", "tokens", len(tokens))

	root, err := parser.Build(tokens, c.opts.Parser)
	if err != nil {
		return nil, c.fail(ctx, logger, name, "build tree", err)
	}

	output := generator.Generate(root, c.opts.Generator)

	result := &Result{
		Output:   output,
		Tokens:   len(tokens),
		Nodes:    root.Count(),
		Duration: time.Since(start),
	}
	logger.Debug(ctx, "compiled",
		"nodes", result.Nodes,
		"bytes", len(output),
		"duration", result.Duration.String(),
	)
	return result, nil
}

func (c *Compiler) fail(ctx context.Context, logger logging.Logger, name, stage string, err error) error {
	var ce *errors.CompileError
	if e, ok := err.(*errors.CompileError); ok {
		ce = e
	} else {
		ce = errors.Wrap(err, errors.KindInternal, errors.CodeBadToken, stage+" failed")
	}
	if name != "" && ce.File == "" {
		ce.WithFile(name)
	}
	fields := append([]interface{}{"stage", stage}, errors.Fields(ce)...)
	logger.Debug(ctx, "compile failed", fields...)
	return ce
}

// Compile translates source with the default options.
func Compile(source string) (string, error) {
	return New(DefaultOptions(), nil).Compile(context.Background(), source)
}
