// Package orchestrator ties discovery, batch builds and file watching
// together for the long running commands.
//
// An Orchestrator owns the registry, the scanner, the build pipeline and the
// file watcher built from one Config. InitialScan and BuildAll serve the
// one-shot commands; Watch keeps the output in sync with the sources until
// its context is cancelled.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/config"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/registry"
	"github.com/conneroisu/wxjsx/internal/scanner"
	"github.com/conneroisu/wxjsx/internal/watcher"
)

// Orchestrator coordinates the services of a project.
type Orchestrator struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *registry.DocumentRegistry
	scanner  *scanner.DocumentScanner
	pipeline *build.Pipeline
	watcher  *watcher.FileWatcher

	shutdownOnce sync.Once
}

// New creates an Orchestrator for cfg. A nil logger discards output.
func New(cfg *config.Config, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	reg := registry.NewDocumentRegistry()
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.WithComponent("orchestrator"),
		registry: reg,
		scanner: scanner.NewDocumentScanner(reg, scanner.Options{
			Extension: cfg.Build.Extension,
			Exclude:   cfg.Build.Exclude,
			Workers:   cfg.Build.Workers,
		}),
		pipeline: build.NewPipeline(build.Config{
			Compiler:     cfg.CompilerOptions(),
			Workers:      cfg.Build.Workers,
			OutDir:       cfg.Build.OutDir,
			OutExtension: cfg.Build.OutExtension,
			CacheSize:    cfg.Build.CacheSize,
			CacheTTL:     cfg.Build.CacheTTL,
		}, logger),
	}
}

// Registry returns the document registry.
func (o *Orchestrator) Registry() *registry.DocumentRegistry {
	return o.registry
}

// Pipeline returns the build pipeline.
func (o *Orchestrator) Pipeline() *build.Pipeline {
	return o.pipeline
}

// Scanner returns the document scanner.
func (o *Orchestrator) Scanner() *scanner.DocumentScanner {
	return o.scanner
}

// InitialScan scans every configured source directory. A failing directory
// does not stop the others; all failures are returned combined.
func (o *Orchestrator) InitialScan(ctx context.Context) error {
	var errs []error
	for _, dir := range o.cfg.Build.SourceDirs {
		if err := o.scanner.ScanDirectory(dir); err != nil {
			o.logger.Warn(ctx, err, "scan failed", "dir", dir)
			errs = append(errs, err)
		}
	}

	o.logger.Info(ctx, "scan complete", "documents", o.registry.Count())
	return errors.CombineErrors(errs...)
}

// BuildAll compiles every registered document.
func (o *Orchestrator) BuildAll(ctx context.Context) ([]build.BuildResult, error) {
	return o.pipeline.BuildAll(ctx, o.registry.List())
}

// Watch starts watching the source directories and rebuilds changed
// documents. It returns once the watcher runs; watching stops when ctx is
// cancelled or Shutdown is called.
func (o *Orchestrator) Watch(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(o.cfg.Watch.Debounce, o.logger)
	if err != nil {
		return err
	}

	fw.AddFilter(watcher.ExtensionFilter(o.scanner.Extension()))
	fw.AddFilter(watcher.NoVendorFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		return o.handleFileChange(ctx, events)
	})

	for _, dir := range o.cfg.Build.SourceDirs {
		if err := fw.AddRecursive(dir); err != nil {
			fw.Stop()
			return err
		}
	}

	o.watcher = fw
	return fw.Start(ctx)
}

// handleFileChange applies a debounced batch of events to the registry and
// rebuilds the documents that still exist.
func (o *Orchestrator) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	var changed []*registry.Document

	for _, event := range events {
		o.logger.Debug(ctx, "file changed", "path", event.Path, "type", event.Type.String())

		root, ok := o.sourceRoot(event.Path)
		if !ok {
			continue
		}
		rel, _ := filepath.Rel(root, event.Path)
		if o.scanner.Excluded(rel) {
			continue
		}

		if _, err := os.Stat(event.Path); event.Gone() || os.IsNotExist(err) {
			o.removeDocument(ctx, event.Path)
			continue
		}

		if err := o.scanner.ScanFile(root, event.Path); err != nil {
			o.logger.Warn(ctx, err, "failed to rescan file", "path", event.Path)
			continue
		}
		if doc, ok := o.registry.Get(filepath.Clean(event.Path)); ok {
			changed = append(changed, doc)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	results, err := o.pipeline.BuildAll(ctx, changed)
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	o.logger.Info(ctx, "rebuilt changed documents", "documents", len(results), "failed", failed)
	return err
}

func (o *Orchestrator) removeDocument(ctx context.Context, path string) {
	doc, ok := o.registry.Get(filepath.Clean(path))
	if !ok {
		return
	}
	o.scanner.RemoveFile(path)
	o.pipeline.Errors().ClearFile(doc.Path)

	if out := o.pipeline.OutputPath(doc); out != "" {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			o.logger.Warn(ctx, err, "failed to remove stale output", "path", out)
		}
	}
	o.logger.Info(ctx, "document removed", "document", doc.Name)
}

// sourceRoot returns the configured source directory containing path.
func (o *Orchestrator) sourceRoot(path string) (string, bool) {
	for _, dir := range o.cfg.Build.SourceDirs {
		root := filepath.Clean(dir)
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

// Shutdown stops the file watcher if one is running.
func (o *Orchestrator) Shutdown() error {
	var err error
	o.shutdownOnce.Do(func() {
		if o.watcher != nil {
			err = o.watcher.Stop()
		}
	})
	return err
}
