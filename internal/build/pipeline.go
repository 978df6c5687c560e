// Package build compiles discovered documents in batches.
//
// A Pipeline fans documents out to a fixed number of workers. Each worker
// compiles with fresh pipeline state, consults the BuildCache (keyed by
// content hash and compiler options), writes the output next to its source
// path under the output directory and records metrics. Failures are kept in
// an ErrorCollector so a batch always runs to completion.
package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/registry"
	"github.com/conneroisu/wxjsx/internal/scanner"
)

// DefaultOutExtension replaces the source extension of generated files.
const DefaultOutExtension = ".jsx"

// Config configures a Pipeline.
type Config struct {
	Compiler compiler.Options
	// Workers is the number of concurrent compilations, at least 1.
	Workers int
	// OutDir receives generated files. Nothing is written when empty.
	OutDir       string
	OutExtension string
	CacheSize    int64
	CacheTTL     time.Duration
}

// BuildResult represents the result of a build operation
type BuildResult struct {
	Document   *registry.Document
	Output     []byte
	OutputPath string
	Error      error
	Duration   time.Duration
	CacheHit   bool
	Hash       string
}

// BuildCallback is called when a build completes
type BuildCallback func(result BuildResult)

// Pipeline manages the build process for documents
type Pipeline struct {
	cfg       Config
	compiler  *compiler.Compiler
	cache     *BuildCache
	metrics   *Metrics
	errors    *errors.ErrorCollector
	logger    logging.Logger
	callbacks []BuildCallback
	mu        sync.RWMutex
}

// NewPipeline creates a pipeline. A nil logger discards output.
func NewPipeline(cfg Config, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OutExtension == "" {
		cfg.OutExtension = DefaultOutExtension
	}

	return &Pipeline{
		cfg:      cfg,
		compiler: compiler.New(cfg.Compiler, logger),
		cache:    NewBuildCache(cfg.CacheSize, cfg.CacheTTL),
		metrics:  NewMetrics(),
		errors:   errors.NewErrorCollector(),
		logger:   logger.WithComponent("build"),
	}
}

// AddCallback adds a callback to be called when builds complete
func (p *Pipeline) AddCallback(callback BuildCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

// Errors returns the collector holding failures of every build so far.
func (p *Pipeline) Errors() *errors.ErrorCollector {
	return p.errors
}

// GetMetrics returns the current build metrics
func (p *Pipeline) GetMetrics() MetricsSnapshot {
	return p.metrics.Snapshot()
}

// Cache returns the build cache.
func (p *Pipeline) Cache() *BuildCache {
	return p.cache
}

// BuildAll compiles docs with the worker pool and returns one result per
// document in input order. When ctx is cancelled, pending documents are
// skipped and ctx.Err() is returned with the results gathered so far.
func (p *Pipeline) BuildAll(ctx context.Context, docs []*registry.Document) ([]BuildResult, error) {
	perf := logging.StartOperation(p.logger, "build_all")

	type job struct {
		index int
		doc   *registry.Document
	}

	jobs := make(chan job)
	results := make([]BuildResult, len(docs))
	done := make([]bool, len(docs))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = p.Build(ctx, j.doc)
				done[j.index] = true
			}
		}()
	}

	var err error
dispatch:
	for i, doc := range docs {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- job{index: i, doc: doc}:
		}
	}
	close(jobs)
	wg.Wait()

	finished := results[:0]
	for i, ok := range done {
		if ok {
			finished = append(finished, results[i])
		}
	}

	if err != nil {
		perf.EndWithError(ctx, err)
		return finished, err
	}
	perf.End(ctx)
	return finished, nil
}

// Build compiles a single document.
func (p *Pipeline) Build(ctx context.Context, doc *registry.Document) BuildResult {
	start := time.Now()
	result := BuildResult{Document: doc, OutputPath: p.OutputPath(doc)}

	p.errors.ClearFile(doc.Path)

	source, err := os.ReadFile(doc.Path)
	if err != nil {
		result.Error = errors.WrapIO(err, errors.CodeReadFailed, "failed to read document").WithFile(doc.Path)
		return p.finish(ctx, result, start)
	}

	result.Hash = scanner.Hash(source)
	key := result.Hash + ":" + p.cfg.Compiler.Fingerprint()

	if output, ok := p.cache.Get(key); ok {
		result.Output = output
		result.CacheHit = true
	} else {
		compiled, err := p.compiler.CompileDocument(ctx, doc.Path, string(source))
		if err != nil {
			result.Error = err
			return p.finish(ctx, result, start)
		}
		result.Output = []byte(compiled.Output)
		p.cache.Set(key, result.Output)
	}

	if result.OutputPath != "" {
		if err := writeOutput(result.OutputPath, result.Output); err != nil {
			result.Error = err
		}
	}

	return p.finish(ctx, result, start)
}

// OutputPath maps doc to its generated file: the path relative to the source
// directory under OutDir, with the extension replaced. It returns "" when no
// output directory is configured.
func (p *Pipeline) OutputPath(doc *registry.Document) string {
	if p.cfg.OutDir == "" {
		return ""
	}
	name := filepath.FromSlash(doc.Name)
	if name == "" {
		name = filepath.Base(doc.Path)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + p.cfg.OutExtension
	return filepath.Join(p.cfg.OutDir, name)
}

func (p *Pipeline) finish(ctx context.Context, result BuildResult, start time.Time) BuildResult {
	result.Duration = time.Since(start)
	p.metrics.Record(result)

	doc := result.Document
	if result.Error != nil {
		p.errors.Add(errors.NewBuildError(doc.Name, doc.Path, result.Error))
		p.logger.Warn(ctx, result.Error, "build failed", "document", doc.Name)
	} else {
		p.logger.Debug(ctx, "build succeeded",
			"document", doc.Name,
			"cache_hit", result.CacheHit,
			"duration", result.Duration.String(),
		)
	}

	p.mu.RLock()
	callbacks := p.callbacks
	p.mu.RUnlock()
	for _, callback := range callbacks {
		callback(result)
	}

	return result
}

func writeOutput(path string, output []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "failed to create output directory").WithFile(path)
	}
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "failed to write output").WithFile(path)
	}
	return nil
}
